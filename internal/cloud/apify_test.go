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

// Package cloud_test contains unit tests for the provider clients. The
// HTTP-backed clients are tested against local httptest servers so no
// credentials or network access are needed.
package cloud_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// newApifyClient points a client at the given test server.
func newApifyClient(t *testing.T, serverURL string) *cloud.ApifyClient {
	t.Helper()
	client, err := cloud.NewApifyClient(cloud.ApifyProvider{
		APIToken: "test-token",
		BaseURL:  serverURL,
		ActorID:  "clockworks~tiktok-scraper",
	})
	assert.NoError(t, err)
	return client
}

// TestApifyRunActor verifies the synchronous actor call: the request shape
// (endpoint path, token, actor input) and the decoded dataset items.
func TestApifyRunActor(t *testing.T) {
	var gotPath, gotToken string
	var gotInput map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		_ = json.NewDecoder(r.Body).Decode(&gotInput)
		_, _ = w.Write([]byte(`[{"authorMeta": {"name": "beauty.finds"}, "playCount": 1250000}]`))
	}))
	defer server.Close()

	client := newApifyClient(t, server.URL)
	items, err := client.RunActor(context.Background(), "https://www.tiktok.com/@beauty.finds/video/1")

	assert.NoError(t, err)
	assert.Equal(t, "/v2/acts/clockworks~tiktok-scraper/run-sync-get-dataset-items", gotPath)
	assert.Equal(t, "test-token", gotToken)
	// The actor input requests exactly one result and no actor-side video
	// download; the pipeline downloads media itself.
	assert.Equal(t, []interface{}{"https://www.tiktok.com/@beauty.finds/video/1"}, gotInput["postURLs"])
	assert.Equal(t, float64(1), gotInput["resultsPerPage"])
	assert.Equal(t, false, gotInput["shouldDownloadVideos"])

	assert.Equal(t, 1, len(items))
	assert.Equal(t, float64(1_250_000), items[0]["playCount"])
}

// TestApifyRunActorEmptyDataset verifies that an empty dataset maps to a
// provider error naming the likely cause.
func TestApifyRunActorEmptyDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newApifyClient(t, server.URL)
	items, err := client.RunActor(context.Background(), "https://www.tiktok.com/@gone/video/0")

	assert.Nil(t, items)
	var provider *model.ProviderError
	assert.ErrorAs(t, err, &provider)
	assert.Contains(t, provider.Reason, "private or deleted")
}

// TestApifyRunActorHTTPError verifies that a non-2xx response surfaces as a
// provider error carrying the status and a body excerpt.
func TestApifyRunActorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error": "monthly usage hard limit exceeded"}`))
	}))
	defer server.Close()

	client := newApifyClient(t, server.URL)
	_, err := client.RunActor(context.Background(), "https://www.tiktok.com/@x/video/1")

	var provider *model.ProviderError
	assert.ErrorAs(t, err, &provider)
	assert.Contains(t, provider.Reason, "status 402")
	assert.Contains(t, provider.Reason, "hard limit")
}

// TestApifyRunActorMalformedResponse verifies that a non-JSON body is
// reported as a provider error rather than a decode panic.
func TestApifyRunActorMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer server.Close()

	client := newApifyClient(t, server.URL)
	_, err := client.RunActor(context.Background(), "https://www.tiktok.com/@x/video/1")

	var provider *model.ProviderError
	assert.ErrorAs(t, err, &provider)
	assert.Contains(t, provider.Reason, "malformed dataset response")
}

// TestNewApifyClientMissingToken verifies the constructor refuses to build
// a client without a token, naming the environment variable that supplies
// it.
func TestNewApifyClientMissingToken(t *testing.T) {
	client, err := cloud.NewApifyClient(cloud.ApifyProvider{BaseURL: "https://api.apify.com"})

	assert.Nil(t, client)
	var config *model.ConfigError
	assert.ErrorAs(t, err, &config)
	assert.Equal(t, cloud.EnvApifyToken, config.Key)
}
