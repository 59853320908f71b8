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

package cloud_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// writeTestAudio materializes a throwaway audio file for the multipart
// upload.
func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	assert.NoError(t, os.WriteFile(path, []byte("fake mp3 bytes"), 0o600))
	return path
}

// newSpeechClient points a client at the given test server.
func newSpeechClient(t *testing.T, endpoint string) *cloud.HTTPSpeechClient {
	t.Helper()
	client, err := cloud.NewHTTPSpeechClient(cloud.SpeechProvider{
		Endpoint: endpoint,
		APIKey:   "speech-key",
		Model:    "whisper-1",
	})
	assert.NoError(t, err)
	return client
}

// TestSpeechTranscribe verifies the multipart request shape and the mapping
// of verbose_json segments onto MM:SS transcript segments.
func TestSpeechTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotFormat string
	var gotFileBytes []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, r.ParseMultipartForm(1 << 20))
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		file, _, err := r.FormFile("file")
		assert.NoError(t, err)
		gotFileBytes, _ = io.ReadAll(file)
		_ = file.Close()

		_, _ = w.Write([]byte(`{
  "text": "full text",
  "segments": [
    {"start": 0.0, "end": 2.1, "text": "Okay so I was today years old"},
    {"start": 64.5, "end": 68.0, "text": "link is in the yellow basket"}
  ]
}`))
	}))
	defer server.Close()

	client := newSpeechClient(t, server.URL)
	segments, err := client.Transcribe(context.Background(), writeTestAudio(t))

	assert.NoError(t, err)
	assert.Equal(t, "Bearer speech-key", gotAuth)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "verbose_json", gotFormat)
	assert.Equal(t, []byte("fake mp3 bytes"), gotFileBytes)

	assert.Equal(t, []model.TranscriptSegment{
		{Timestamp: "00:00", Text: "Okay so I was today years old"},
		{Timestamp: "01:04", Text: "link is in the yellow basket"},
	}, segments)
}

// TestSpeechTranscribeFlatTextFallback verifies that a response with only
// flat text still yields a single segment anchored at the start.
func TestSpeechTranscribeFlatTextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text": "all the speech in one piece"}`))
	}))
	defer server.Close()

	client := newSpeechClient(t, server.URL)
	segments, err := client.Transcribe(context.Background(), writeTestAudio(t))

	assert.NoError(t, err)
	assert.Equal(t, []model.TranscriptSegment{
		{Timestamp: "00:00", Text: "all the speech in one piece"},
	}, segments)
}

// TestSpeechTranscribeHTTPError verifies a non-2xx response maps to a
// provider error carrying the status.
func TestSpeechTranscribeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer server.Close()

	client := newSpeechClient(t, server.URL)
	segments, err := client.Transcribe(context.Background(), writeTestAudio(t))

	assert.Nil(t, segments)
	var provider *model.ProviderError
	assert.ErrorAs(t, err, &provider)
	assert.Contains(t, provider.Reason, "status 401")
}

// TestSpeechTranscribeMissingFile verifies the client surfaces a filesystem
// error before making any request.
func TestSpeechTranscribeMissingFile(t *testing.T) {
	client := newSpeechClient(t, "https://speech.invalid/v1/audio/transcriptions")
	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

// TestNewHTTPSpeechClientMissingEndpoint verifies the constructor guard.
func TestNewHTTPSpeechClientMissingEndpoint(t *testing.T) {
	client, err := cloud.NewHTTPSpeechClient(cloud.SpeechProvider{Model: "whisper-1"})

	assert.Nil(t, client)
	var config *model.ConfigError
	assert.ErrorAs(t, err, &config)
}
