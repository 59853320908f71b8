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

// This file defines the best-effort transcription command. Transcription
// enriches the report but is never allowed to sink a run: every failure
// path inside this command degrades to an empty transcript with a warning
// log instead of a context error.
//
// Two backends are tried in order:
//  1. A dedicated speech endpoint, when one is configured, fed the
//     extracted audio file.
//  2. The multimodal model itself, fed the uploaded audio handle and held
//     to the same JSON transcript contract.
//
// Either way the segments are run through a marker filter that drops the
// non-speech annotations transcribers emit ("[Music]", "[inaudible]" and
// friends) so downstream consumers only ever see actual speech.
package commands

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"google.golang.org/genai"
)

// failureMarkers are annotation tokens transcription backends emit for
// segments with no usable speech. Matching is case-insensitive on the
// whole trimmed segment text.
var failureMarkers = []string{
	"[music]",
	"[inaudible]",
	"[no speech]",
	"[silence]",
	"[applause]",
	"[laughter]",
}

// Transcribe produces a timestamped transcript of the media's audio track.
type Transcribe struct {
	cor.BaseCommand
	speech    cloud.SpeechClient // nil when no dedicated endpoint is configured.
	generator cloud.ContentGenerator
	prompt    string
}

// NewTranscribe is the constructor for the Transcribe command.
func NewTranscribe(name string, speech cloud.SpeechClient, generator cloud.ContentGenerator, prompt string) *Transcribe {
	return &Transcribe{BaseCommand: *cor.NewBaseCommand(name), speech: speech, generator: generator, prompt: prompt}
}

// GetTranscriptParameterName returns the canonical context key for the
// transcript.
func GetTranscriptParameterName() string {
	return "__TRANSCRIPT__"
}

// Execute tries the configured backends in order and always stores a
// transcript, empty if need be.
func (c *Transcribe) Execute(context cor.Context) {
	ctx := context.GetContext()
	transcript := &model.Transcript{Segments: []model.TranscriptSegment{}}

	if c.speech != nil {
		if audioPath, ok := context.Get(GetAudioPathParameterName()).(string); ok {
			segments, err := c.speech.Transcribe(ctx, audioPath)
			if err != nil {
				slog.WarnContext(ctx, "speech transcription failed, trying multimodal fallback", slog.Any("error", err))
			} else {
				transcript.Segments = filterSegments(segments)
			}
		}
	}

	if len(transcript.Segments) == 0 && c.generator != nil {
		if remote, ok := context.Get(GetRemoteAudioFileParameterName()).(*genai.File); ok {
			segments, err := c.transcribeMultimodal(context, remote)
			if err != nil {
				slog.WarnContext(ctx, "multimodal transcription failed, continuing without transcript", slog.Any("error", err))
			} else {
				transcript.Segments = filterSegments(segments)
			}
		}
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(GetTranscriptParameterName(), transcript)
	context.Add(c.GetOutputParam(), transcript)
}

// transcribeMultimodal asks the generative model for the transcript JSON
// envelope and parses it with the same fence-tolerant ladder used for the
// analysis report.
func (c *Transcribe) transcribeMultimodal(context cor.Context, remote *genai.File) ([]model.TranscriptSegment, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: c.prompt},
			{FileData: &genai.FileData{FileURI: remote.URI, MIMEType: remote.MIMEType}},
		},
	}}

	raw, err := c.generator.GenerateContent(context.GetContext(), contents)
	if err != nil {
		return nil, err
	}

	envelope, err := CoerceReport(raw)
	if err != nil {
		return nil, err
	}

	// Round-trip the coerced map into the typed transcript.
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	var transcript model.Transcript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return nil, err
	}
	return transcript.Segments, nil
}

// filterSegments drops empty segments and pure non-speech annotations.
func filterSegments(segments []model.TranscriptSegment) []model.TranscriptSegment {
	kept := make([]model.TranscriptSegment, 0, len(segments))
	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" || isFailureMarker(text) {
			continue
		}
		segment.Text = text
		kept = append(kept, segment)
	}
	return kept
}

func isFailureMarker(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range failureMarkers {
		if lowered == marker {
			return true
		}
	}
	return false
}
