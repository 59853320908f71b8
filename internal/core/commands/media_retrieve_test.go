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

package commands_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ecom-insider/video-insider/internal/core/commands"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	test "github.com/ecom-insider/video-insider/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// TestMediaRetrieveDirectDownload streams a direct media URL from a local
// test server and checks the downloaded file lands as a registered temp
// file wrapped in a ready media handle.
func TestMediaRetrieveDirectDownload(t *testing.T) {
	payload := []byte("fake video bytes")
	var gotUserAgent, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	config := test.GetTestConfig()
	config.Application.TempDir = t.TempDir()
	// The test server's host is 127.0.0.1; map it so the referrer header
	// gets exercised the way a CDN host match would.
	config.Downloader.Referrers = map[string]string{"127.0.0.1": "https://www.tiktok.com/"}

	cmd := commands.NewMediaRetrieve("media-retrieve", config)

	c := newCommandContext()
	c.Add(cor.CtxIn, &model.VideoMetadata{
		SourceURL:   "https://www.tiktok.com/@x/video/1",
		DownloadURL: server.URL + "/video.mp4",
	})
	assert.True(t, cmd.IsExecutable(c))

	cmd.Execute(c)

	assert.False(t, c.HasErrors())
	assert.Equal(t, "test-agent", gotUserAgent)
	assert.Equal(t, "https://www.tiktok.com/", gotReferer)

	handle, ok := c.Get(commands.GetLocalMediaParameterName()).(*model.LocalMediaHandle)
	assert.True(t, ok)
	assert.Equal(t, model.MediaReady, handle.State())
	// The payload is not a real container, so sniffing falls back to mp4.
	assert.Equal(t, commands.DefaultMediaMIMEType, handle.MIMEType)

	content, err := os.ReadFile(handle.Path)
	assert.NoError(t, err)
	assert.Equal(t, payload, content)

	// The file must be registered for cleanup with the run context.
	assert.Contains(t, c.GetTempFiles(), handle.Path)
}

// TestMediaRetrieveFallsBackOnHTTPError verifies that an expired direct URL
// (non-2xx response) falls through to the extractor. The extractor binary
// is pointed at a nonexistent path, so the fallback itself fails and the
// context must carry a download error.
func TestMediaRetrieveFallsBackOnHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	config := test.GetTestConfig()
	config.Application.TempDir = t.TempDir()
	config.Downloader.YtDlpPath = "/nonexistent/yt-dlp"

	cmd := commands.NewMediaRetrieve("media-retrieve", config)

	c := newCommandContext()
	c.Add(cor.CtxIn, &model.VideoMetadata{
		SourceURL:   "https://www.tiktok.com/@x/video/1",
		DownloadURL: server.URL + "/expired.mp4",
	})
	cmd.Execute(c)

	assert.True(t, c.HasErrors())
	var download *model.DownloadError
	assert.ErrorAs(t, c.FirstError(), &download)
	assert.Nil(t, c.Get(commands.GetLocalMediaParameterName()))
}

// TestMediaRetrieveNotExecutable checks that the command refuses to run
// without normalized metadata in the input slot.
func TestMediaRetrieveNotExecutable(t *testing.T) {
	cmd := commands.NewMediaRetrieve("media-retrieve", test.GetTestConfig())

	c := newCommandContext()
	assert.False(t, cmd.IsExecutable(c))

	c.Add(cor.CtxIn, "just a url string")
	assert.False(t, cmd.IsExecutable(c))
}
