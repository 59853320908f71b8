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

// Package model defines the core data structures for the analysis pipeline.
// This file holds the transient objects that flow through a pipeline run:
// the normalized video metadata from the scraping provider, the handle to a
// downloaded media file, the transcript produced by the speech path, the
// semi-structured analysis report returned by the model, and the immutable
// PipelineRun that ties them all together for export.
package model

import (
	"fmt"
	"os"
	"time"
)

// Canonical top-level section keys of an AnalysisReport. These names are a
// contract with the generative model's output format, not a compiler-checked
// schema, so consumers must tolerate their absence.
const (
	SectionContentSummary  = "video_content_summary"
	SectionStructure       = "structure_breakdown"
	SectionCreativeInsight = "creative_insight"
	SectionAdaptationBrief = "lazada_adaptation_brief"
)

// VideoMetadata is the normalized engagement record for a single public video,
// assembled from a scraping-provider payload. Counters are always populated
// (zero when the provider omits them) and strings are never "missing" — an
// absent field normalizes to the empty string. Downstream consumers must never
// have to branch on a missing key.
type VideoMetadata struct {
	SourceURL       string   `json:"video_url"`
	DownloadURL     string   `json:"download_url,omitempty"` // Direct media URL; provider-dependent, may be empty.
	Author          string   `json:"author"`
	Description     string   `json:"description"`
	PublishTime     string   `json:"publish_time"`
	DurationSeconds int      `json:"duration"`
	Views           int64    `json:"views"`
	Likes           int64    `json:"likes"`
	Comments        int64    `json:"comments"`
	Shares          int64    `json:"shares"`
	MusicName       string   `json:"music"`
	Hashtags        []string `json:"hashtags"`

	// RawProviderPayload keeps the untouched provider item for diagnostics.
	// It is never serialized into exports.
	RawProviderPayload map[string]interface{} `json:"-"`
}

// EngagementRate computes (likes + comments) / views * 100. Returns 0 when
// the view counter is zero so the metric is always well-defined.
func (m *VideoMetadata) EngagementRate() float64 {
	if m.Views == 0 {
		return 0
	}
	return float64(m.Likes+m.Comments) / float64(m.Views) * 100
}

// TranscriptSegment is one timestamped slice of speech, targeting 5-10 second
// granularity. An empty segment list is a valid transcript (no speech).
type TranscriptSegment struct {
	Timestamp string `json:"timestamp"` // MM:SS offset from the start of the media.
	Text      string `json:"text"`
}

// Transcript is the fixed JSON envelope the multimodal fallback transcriber
// asks the model to emit.
type Transcript struct {
	Segments []TranscriptSegment `json:"transcript"`
}

// FormatTimestamp renders a second offset as MM:SS, the timestamp format used
// across transcripts and the product-reveal field of the analysis report.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Section is one nested mapping of an AnalysisReport. Lookup helpers return
// safe zero values so consumers can render partial reports without panicking
// on fields the model chose not to emit.
type Section map[string]interface{}

// Str returns the string value under key, or "" when the key is absent or
// holds a non-string value.
func (s Section) Str(key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// AnalysisReport is the coerced structured record produced by the model. It
// is deliberately schema-less: the section and field names are a prompt-level
// contract, and every consumer is required to handle absence.
type AnalysisReport map[string]interface{}

// Section returns the named top-level section, or an empty Section when the
// model omitted it or emitted something that is not an object.
func (r AnalysisReport) Section(name string) Section {
	if r == nil {
		return Section{}
	}
	if v, ok := r[name].(map[string]interface{}); ok {
		return Section(v)
	}
	return Section{}
}

// MediaState tracks the lifecycle of a locally downloaded media file.
type MediaState int

const (
	MediaPending MediaState = iota
	MediaReady
	MediaConsumed
	MediaDeleted
)

// LocalMediaHandle owns the filesystem path of a downloaded video or audio
// file. Exactly one owner (the pipeline context) is responsible for calling
// Delete, and must do so on both success and failure paths.
type LocalMediaHandle struct {
	Path      string
	MIMEType  string
	CreatedAt time.Time
	state     MediaState
}

// NewReadyMediaHandle returns a handle in the ready state for a file that has
// been fully written to disk.
func NewReadyMediaHandle(path string, mimeType string) *LocalMediaHandle {
	return &LocalMediaHandle{
		Path:      path,
		MIMEType:  mimeType,
		CreatedAt: time.Now(),
		state:     MediaReady,
	}
}

// State returns the current lifecycle state of the handle.
func (h *LocalMediaHandle) State() MediaState {
	return h.state
}

// MarkConsumed records that the media bytes have been handed to the analysis
// backend. The file still exists on disk until Delete is called.
func (h *LocalMediaHandle) MarkConsumed() {
	if h.state == MediaReady {
		h.state = MediaConsumed
	}
}

// Delete removes the underlying file. It is idempotent: deleting an already
// deleted (or never materialized) handle is a no-op.
func (h *LocalMediaHandle) Delete() error {
	if h.state == MediaDeleted || h.Path == "" {
		return nil
	}
	err := os.Remove(h.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	h.state = MediaDeleted
	return nil
}

// PipelineRun ties one VideoMetadata and one AnalysisReport (plus the optional
// transcript enrichment) into a single exportable unit. A run is immutable
// once created; a new analysis supersedes the previous run rather than
// merging into it.
type PipelineRun struct {
	ID             string              `json:"id"`
	Metadata       *VideoMetadata      `json:"video_data"`
	Analysis       AnalysisReport      `json:"analysis"`
	Transcript     []TranscriptSegment `json:"transcript,omitempty"`
	EngagementRate float64             `json:"engagement_rate"`
	Timestamp      time.Time           `json:"timestamp"`
}
