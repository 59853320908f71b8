// Copyright 2025 E-Com Video Insider Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file defines the command that materializes the video as a local
// temporary file.
//
// Logic Flow:
// Two retrieval strategies exist because the metadata provider sometimes
// hands back a direct CDN media URL and sometimes only the share-page URL:
//
//  1. When a direct media URL is present, the command streams it over HTTP
//     straight to a temporary file, sending the browser user agent and a
//     host-matched referrer so the CDN accepts the request.
//  2. Otherwise (or when the direct stream fails, since CDN URLs expire
//     quickly) it shells out to yt-dlp against the share-page URL, which
//     handles the platform's extraction and certificate quirks.
//
// Either way the result is a LocalMediaHandle pointing at a sniffed-MIME
// local file, and the file path is registered with the context so the
// run's cleanup removes it.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/h2non/filetype"
)

const (
	MediaTempFilePrefix = "media-dl-"
	// DefaultMediaMIMEType is assumed when content sniffing cannot identify
	// the container. Short-video platforms serve mp4 almost exclusively.
	DefaultMediaMIMEType = "video/mp4"
)

// MediaRetrieve downloads the video into the run's temp directory and emits
// a LocalMediaHandle.
type MediaRetrieve struct {
	cor.BaseCommand
	config     *cloud.Config
	httpClient *http.Client
}

// NewMediaRetrieve is the constructor for the MediaRetrieve command.
func NewMediaRetrieve(name string, config *cloud.Config) *MediaRetrieve {
	timeout := time.Duration(config.Downloader.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &MediaRetrieve{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// GetLocalMediaParameterName returns the canonical context key holding the
// downloaded media handle.
func GetLocalMediaParameterName() string {
	return "__LOCAL_MEDIA__"
}

func (c *MediaRetrieve) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(c.GetInputParam()).(*model.VideoMetadata)
	return ok
}

// Execute resolves the retrieval strategy and produces the local file.
func (c *MediaRetrieve) Execute(context cor.Context) {
	metadata := context.Get(c.GetInputParam()).(*model.VideoMetadata)
	ctx := context.GetContext()

	var path string
	var err error
	if metadata.DownloadURL != "" {
		path, err = c.downloadDirect(context, metadata.DownloadURL)
		if err != nil {
			// Direct CDN URLs are signed and short-lived; a failure here is
			// routine, not fatal, as long as the page URL still works.
			slog.WarnContext(ctx, "direct media download failed, falling back to extractor",
				slog.String("url", metadata.DownloadURL), slog.Any("error", err))
			path, err = c.downloadWithExtractor(context, metadata.SourceURL)
		}
	} else {
		path, err = c.downloadWithExtractor(context, metadata.SourceURL)
	}
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}

	handle := model.NewReadyMediaHandle(path, sniffMIMEType(path))
	context.ReportProgress(30, "video downloaded")

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(GetLocalMediaParameterName(), handle)
	context.Add(c.GetOutputParam(), handle)
}

// downloadDirect streams the media URL to a temp file. The file is
// registered for cleanup before the body copy starts so a partial download
// never leaks.
func (c *MediaRetrieve) downloadDirect(context cor.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(context.GetContext(), http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}
	if c.config.Downloader.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.Downloader.UserAgent)
	}
	if referrer := c.referrerFor(mediaURL); referrer != "" {
		req.Header.Set("Referer", referrer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &model.DownloadError{URL: mediaURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &model.DownloadError{URL: mediaURL, Status: resp.StatusCode}
	}

	tempFile, err := os.CreateTemp(c.config.Application.TempDir, MediaTempFilePrefix)
	if err != nil {
		return "", err
	}
	defer tempFile.Close()
	context.AddTempFile(tempFile.Name())

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		return "", &model.DownloadError{URL: mediaURL, Err: err}
	}
	return tempFile.Name(), nil
}

// downloadWithExtractor shells out to yt-dlp. The output template is
// timestamped so concurrent runs never collide, and --print after_move
// gives back the final path including the extension yt-dlp chose.
func (c *MediaRetrieve) downloadWithExtractor(context cor.Context, pageURL string) (string, error) {
	template := filepath.Join(c.config.Application.TempDir,
		fmt.Sprintf("video_%d.%%(ext)s", time.Now().UnixNano()))

	args := []string{
		"--format", c.config.Downloader.Format,
		"--no-check-certificates",
		"--no-playlist",
		"--quiet",
		"--no-simulate",
		"--print", "after_move:filepath",
		"--output", template,
	}
	if c.config.Downloader.UserAgent != "" {
		args = append(args, "--user-agent", c.config.Downloader.UserAgent)
	}
	args = append(args, pageURL)

	cmd := exec.CommandContext(context.GetContext(), c.config.Downloader.YtDlpPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", &model.DownloadError{
			URL: pageURL,
			Err: fmt.Errorf("extractor failed: %w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", &model.DownloadError{URL: pageURL, Err: fmt.Errorf("extractor produced no output file")}
	}
	context.AddTempFile(path)
	return path, nil
}

// referrerFor matches the media URL's host against the configured referrer
// table. CDN hosts embed the platform name, so substring matching on the
// table key is enough.
func (c *MediaRetrieve) referrerFor(mediaURL string) string {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	for key, referrer := range c.config.Downloader.Referrers {
		if strings.Contains(host, key) {
			return referrer
		}
	}
	return ""
}

// sniffMIMEType inspects the file's magic bytes rather than trusting the
// URL's extension.
func sniffMIMEType(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return DefaultMediaMIMEType
	}
	return kind.MIME.Value
}
