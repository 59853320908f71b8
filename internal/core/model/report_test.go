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

// Package model_test contains unit tests for the transient pipeline data
// models: the engagement-rate computation, timestamp formatting, the safe
// lookup helpers on AnalysisReport, and the local media handle lifecycle.
package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestEngagementRate verifies the (likes + comments) / views * 100 metric,
// including the zero-view guard that keeps it well-defined for unplayed or
// scrubbed videos.
func TestEngagementRate(t *testing.T) {
	metadata := &model.VideoMetadata{
		Views:    1_250_000,
		Likes:    85_000,
		Comments: 3_200,
	}
	// (85000 + 3200) / 1250000 * 100 = 7.056
	assert.InDelta(t, 7.056, metadata.EngagementRate(), 1e-9)

	// A video with no views must report a rate of zero, not NaN or +Inf.
	empty := &model.VideoMetadata{Likes: 10, Comments: 5}
	assert.Equal(t, 0.0, empty.EngagementRate())
}

// TestFormatTimestamp checks the MM:SS rendering used for transcripts and
// the product-reveal timestamp.
func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", model.FormatTimestamp(0))
	assert.Equal(t, "00:05", model.FormatTimestamp(5.4))
	assert.Equal(t, "01:04", model.FormatTimestamp(64))
	assert.Equal(t, "10:00", model.FormatTimestamp(600))
	// Negative offsets clamp to the start of the media.
	assert.Equal(t, "00:00", model.FormatTimestamp(-3))
}

// TestAnalysisReportSection verifies that the lookup helpers tolerate
// sections and fields the model chose not to emit, returning safe zero
// values instead of panicking.
func TestAnalysisReportSection(t *testing.T) {
	report := model.AnalysisReport{
		model.SectionStructure: map[string]interface{}{
			"hook_description": "close-up of the product",
			"hook_end_time":    3.0,
		},
		"not_an_object": "plain string",
	}

	// A present section with a present string field.
	assert.Equal(t, "close-up of the product", report.Section(model.SectionStructure).Str("hook_description"))
	// A present section with a non-string field returns the empty string.
	assert.Equal(t, "", report.Section(model.SectionStructure).Str("hook_end_time"))
	// A missing field in a present section.
	assert.Equal(t, "", report.Section(model.SectionStructure).Str("missing"))
	// A missing section yields an empty (but usable) Section.
	assert.Equal(t, "", report.Section(model.SectionCreativeInsight).Str("anything"))
	// A top-level value that is not an object is treated as absent.
	assert.Equal(t, "", report.Section("not_an_object").Str("anything"))

	// A nil report must still be safe to query.
	var nilReport model.AnalysisReport
	assert.Equal(t, "", nilReport.Section(model.SectionContentSummary).Str("video_type"))
}

// TestLocalMediaHandleLifecycle exercises the state transitions of a media
// handle: ready after download, consumed after upload, deleted exactly once.
func TestLocalMediaHandleLifecycle(t *testing.T) {
	// Materialize a real file so Delete has something to remove.
	path := filepath.Join(t.TempDir(), "clip.mp4")
	assert.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o600))

	handle := model.NewReadyMediaHandle(path, "video/mp4")
	assert.Equal(t, model.MediaReady, handle.State())

	handle.MarkConsumed()
	assert.Equal(t, model.MediaConsumed, handle.State())

	// First delete removes the file and marks the handle deleted.
	assert.NoError(t, handle.Delete())
	assert.Equal(t, model.MediaDeleted, handle.State())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Second delete is an idempotent no-op.
	assert.NoError(t, handle.Delete())
}

// TestLocalMediaHandleDeleteMissingFile verifies that deleting a handle whose
// file has already vanished out from under it does not surface an error.
func TestLocalMediaHandleDeleteMissingFile(t *testing.T) {
	handle := model.NewReadyMediaHandle(filepath.Join(t.TempDir(), "gone.mp4"), "video/mp4")
	assert.NoError(t, handle.Delete())
	assert.Equal(t, model.MediaDeleted, handle.State())
}
