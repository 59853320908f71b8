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

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ecom-insider/video-insider/internal/core/model"
)

// ApifyRunner runs a scraping actor against a single video URL and returns
// the raw dataset items. The pipeline treats the items as untyped maps
// because the actor's output schema drifts between versions; normalization
// happens in the metadata command.
type ApifyRunner interface {
	RunActor(ctx context.Context, videoURL string) ([]map[string]interface{}, error)
}

// ApifyClient calls the Apify run-sync-get-dataset-items endpoint, which
// starts the actor, blocks until it finishes, and returns the dataset in one
// round trip. Actor runs routinely take tens of seconds, so the HTTP timeout
// is configured well above normal API defaults.
type ApifyClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	actorID    string
}

// NewApifyClient validates that a token is present and builds the client.
// The base URL and actor ID come from configuration so tests can point the
// client at a local server.
func NewApifyClient(provider ApifyProvider) (*ApifyClient, error) {
	if provider.APIToken == "" {
		return nil, &model.ConfigError{Key: EnvApifyToken}
	}
	timeout := time.Duration(provider.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &ApifyClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    provider.BaseURL,
		token:      provider.APIToken,
		actorID:    provider.ActorID,
	}, nil
}

// RunActor posts the actor input and decodes the dataset items. An empty
// dataset means the target video is private, deleted, or region locked; that
// is surfaced as a ProviderError so callers can report it cleanly.
func (c *ApifyClient) RunActor(ctx context.Context, videoURL string) ([]map[string]interface{}, error) {
	input := map[string]interface{}{
		"postURLs":             []string{videoURL},
		"resultsPerPage":       1,
		"shouldDownloadVideos": false,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		c.baseURL, c.actorID, url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	slog.InfoContext(ctx, "starting scraper actor run", slog.String("actor", c.actorID))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Provider: "apify", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &model.ProviderError{
			Provider: "apify",
			Reason:   fmt.Sprintf("actor run returned status %d: %s", resp.StatusCode, string(payload)),
		}
	}

	var items []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &model.ProviderError{Provider: "apify", Reason: "malformed dataset response: " + err.Error()}
	}
	if len(items) == 0 {
		return nil, &model.ProviderError{Provider: "apify", Reason: "actor returned no items, the video may be private or deleted"}
	}
	return items, nil
}
