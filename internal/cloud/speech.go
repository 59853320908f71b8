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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ecom-insider/video-insider/internal/core/model"
)

// SpeechClient transcribes an audio file. The production implementation
// talks to an OpenAI-compatible transcription endpoint; a nil or unset
// client means transcription falls back to the multimodal model.
type SpeechClient interface {
	Transcribe(ctx context.Context, audioPath string) ([]model.TranscriptSegment, error)
}

// HTTPSpeechClient posts the audio as multipart form data with
// response_format=verbose_json and maps the returned segments onto the
// transcript model, rendering start offsets as MM:SS.
type HTTPSpeechClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

func NewHTTPSpeechClient(provider SpeechProvider) (*HTTPSpeechClient, error) {
	if provider.Endpoint == "" {
		return nil, &model.ConfigError{Key: "speech.endpoint"}
	}
	timeout := time.Duration(provider.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPSpeechClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   provider.Endpoint,
		apiKey:     provider.APIKey,
		model:      provider.Model,
	}, nil
}

type speechSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type speechResponse struct {
	Text     string          `json:"text"`
	Segments []speechSegment `json:"segments"`
}

func (c *HTTPSpeechClient) Transcribe(ctx context.Context, audioPath string) ([]model.TranscriptSegment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		_ = writer.WriteField("model", c.model)
		_ = writer.WriteField("response_format", "verbose_json")
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Provider: "speech", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &model.ProviderError{
			Provider: "speech",
			Reason:   fmt.Sprintf("transcription returned status %d: %s", resp.StatusCode, string(payload)),
		}
	}

	var decoded speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &model.ProviderError{Provider: "speech", Reason: "malformed transcription response: " + err.Error()}
	}

	segments := make([]model.TranscriptSegment, 0, len(decoded.Segments))
	for _, s := range decoded.Segments {
		segments = append(segments, model.TranscriptSegment{
			Timestamp: model.FormatTimestamp(s.Start),
			Text:      s.Text,
		})
	}
	// Some backends return only flat text when segmentation fails.
	if len(segments) == 0 && decoded.Text != "" {
		segments = append(segments, model.TranscriptSegment{
			Timestamp: model.FormatTimestamp(0),
			Text:      decoded.Text,
		})
	}
	return segments, nil
}
