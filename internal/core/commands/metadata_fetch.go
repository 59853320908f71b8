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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that fetches video metadata from the scraping provider and
// normalizes it into the canonical VideoMetadata shape.
//
// Logic Flow:
//  1. The source video URL is read from the context input parameter.
//  2. The scraper actor is run synchronously; it returns dataset items as
//     untyped maps because the actor's output schema drifts between
//     versions.
//  3. The first item is normalized: every field is resolved through a
//     candidate list of historical field names, and absent fields default
//     to zero or empty rather than failing the run.
//  4. The resulting *model.VideoMetadata is stored in the context under the
//     canonical metadata key and the default output parameter.
package commands

import (
	"fmt"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
)

// MetadataFetch runs the scraper actor for a single video URL and maps the
// provider payload onto VideoMetadata.
type MetadataFetch struct {
	cor.BaseCommand
	runner cloud.ApifyRunner
}

// NewMetadataFetch is the constructor for the MetadataFetch command.
func NewMetadataFetch(name string, runner cloud.ApifyRunner) *MetadataFetch {
	return &MetadataFetch{BaseCommand: *cor.NewBaseCommand(name), runner: runner}
}

// GetVideoMetadataParameterName returns the canonical context key for the
// normalized metadata so later commands resolve it consistently.
func GetVideoMetadataParameterName() string {
	return "__VIDEO_METADATA__"
}

func (m *MetadataFetch) IsExecutable(context cor.Context) bool {
	url, ok := context.Get(m.GetInputParam()).(string)
	return ok && len(url) > 0
}

// Execute runs the actor and normalizes its first dataset item.
func (m *MetadataFetch) Execute(context cor.Context) {
	context.ReportProgress(10, "fetching video metadata")

	videoURL := context.Get(m.GetInputParam()).(string)
	items, err := m.runner.RunActor(context.GetContext(), videoURL)
	if err != nil {
		m.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(m.GetName(), fmt.Errorf("failed to fetch metadata for %s: %w", videoURL, err))
		return
	}

	if len(items) == 0 {
		m.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(m.GetName(), &model.ProviderError{Provider: "apify", Reason: "actor returned no items, the video may be private or deleted"})
		return
	}

	metadata := NormalizeProviderItem(videoURL, items[0])
	context.ReportProgress(25, "metadata received")

	m.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoMetadataParameterName(), metadata)
	context.Add(m.GetOutputParam(), metadata)
}

// NormalizeProviderItem maps one raw dataset item onto VideoMetadata. Field
// names are resolved through candidate lists covering the schema variants
// the scraper actor has shipped; a field absent under every candidate name
// normalizes to its zero value, never to an error.
func NormalizeProviderItem(sourceURL string, raw map[string]interface{}) *model.VideoMetadata {
	video := childMap(raw, "video")

	// The direct media URL has moved around the most across actor versions.
	downloadURL := firstString(
		stringAt(raw, "videoUrl"),
		stringAt(raw, "downloadAddr"),
		stringAt(video, "downloadAddr"),
		stringAt(video, "playAddr"),
	)

	metadata := &model.VideoMetadata{
		SourceURL:          firstString(stringAt(raw, "webVideoUrl"), stringAt(raw, "videoUrl"), sourceURL),
		DownloadURL:        downloadURL,
		Author:             firstString(stringAt(childMap(raw, "authorMeta"), "name"), stringAt(raw, "author")),
		Description:        firstString(stringAt(raw, "text"), stringAt(raw, "desc")),
		PublishTime:        firstString(stringAt(raw, "createTimeISO"), stringAt(raw, "createTime")),
		DurationSeconds:    int(numberAt(childMap(raw, "videoMeta"), "duration")),
		Views:              int64(numberAt(raw, "playCount")),
		Likes:              int64(numberAt(raw, "diggCount")),
		Comments:           int64(numberAt(raw, "commentCount")),
		Shares:             int64(numberAt(raw, "shareCount")),
		MusicName:          stringAt(childMap(raw, "musicMeta"), "musicName"),
		Hashtags:           hashtagsAt(raw),
		RawProviderPayload: raw,
	}
	return metadata
}

func childMap(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil {
		return nil
	}
	if m, ok := raw[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}

func stringAt(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

// numberAt tolerates the float64 that encoding/json produces plus the int
// types test fixtures tend to use.
func numberAt(raw map[string]interface{}, key string) float64 {
	if raw == nil {
		return 0
	}
	switch v := raw[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// hashtagsAt accepts both the flat string list and the object list
// ({"name": "..."}) forms the actor has emitted.
func hashtagsAt(raw map[string]interface{}) []string {
	list, ok := raw["hashtags"].([]interface{})
	if !ok {
		return []string{}
	}
	tags := make([]string, 0, len(list))
	for _, entry := range list {
		switch v := entry.(type) {
		case string:
			tags = append(tags, v)
		case map[string]interface{}:
			if name := stringAt(v, "name"); name != "" {
				tags = append(tags, name)
			}
		}
	}
	return tags
}
