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

// This file renders completed runs into their two export formats: the full
// JSON document and the Markdown shooting brief aimed at a creative team.
// When a report bucket is configured every export is also archived to GCS
// under the run's ID.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"cloud.google.com/go/storage"
	"github.com/ecom-insider/video-insider/internal/core/model"
)

// markdownBriefTemplate is the shooting brief handed to an editing team.
// Missing report fields render as empty strings rather than failing the
// export; a partial brief still beats no brief.
const markdownBriefTemplate = `# Video Analysis Report

## Original Video
- **Author**: @{{.Author}}
- **Views**: {{.Views}}
- **Likes**: {{.Likes}}
- **Engagement Rate**: {{printf "%.2f" .EngagementRate}}%

## AI Analysis

### Hook Strategy
{{.HookDescription}}

### Remake Script
{{.ScriptTemplate}}

### Localization Tip
{{.LocalizationTip}}
`

// briefFields is the flattened view the Markdown template consumes.
type briefFields struct {
	Author          string
	Views           int64
	Likes           int64
	EngagementRate  float64
	HookDescription string
	ScriptTemplate  string
	LocalizationTip string
}

// ExportService renders runs into downloadable documents.
type ExportService struct {
	template *template.Template
	storage  *storage.Client // nil disables archiving.
	bucket   string
}

// NewExportService compiles the brief template. client may be nil.
func NewExportService(client *storage.Client, bucket string) *ExportService {
	compiled := template.Must(template.New("markdown-brief").Parse(markdownBriefTemplate))
	return &ExportService{template: compiled, storage: client, bucket: bucket}
}

// JSONFileName returns the canonical download name for the JSON export.
func JSONFileName(run *model.PipelineRun) string {
	return fmt.Sprintf("analysis_%s_%d.json", sanitizeAuthor(run.Metadata.Author), run.Timestamp.Unix())
}

// MarkdownFileName returns the canonical download name for the brief.
func MarkdownFileName(run *model.PipelineRun) string {
	return fmt.Sprintf("script_%s_%d.md", sanitizeAuthor(run.Metadata.Author), run.Timestamp.Unix())
}

// RenderJSON serializes the complete run, indented for human readers.
func (s *ExportService) RenderJSON(ctx context.Context, run *model.PipelineRun) ([]byte, error) {
	body, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, err
	}
	s.archive(ctx, run, JSONFileName(run), "application/json", body)
	return body, nil
}

// RenderMarkdown produces the shooting brief.
func (s *ExportService) RenderMarkdown(ctx context.Context, run *model.PipelineRun) ([]byte, error) {
	structure := run.Analysis.Section(model.SectionStructure)
	brief := run.Analysis.Section(model.SectionAdaptationBrief)

	fields := briefFields{
		Author:          run.Metadata.Author,
		Views:           run.Metadata.Views,
		Likes:           run.Metadata.Likes,
		EngagementRate:  run.EngagementRate,
		HookDescription: structure.Str("hook_description"),
		ScriptTemplate:  brief.Str("script_template"),
		LocalizationTip: brief.Str("localization_tip"),
	}

	var sb strings.Builder
	if err := s.template.Execute(&sb, fields); err != nil {
		return nil, err
	}
	body := []byte(sb.String())
	s.archive(ctx, run, MarkdownFileName(run), "text/markdown", body)
	return body, nil
}

// archive writes the export to the configured bucket, keyed by run ID so
// the two formats for one run sit together. Failures are logged only; an
// export the user already holds must never error because archiving did.
func (s *ExportService) archive(ctx context.Context, run *model.PipelineRun, name string, contentType string, body []byte) {
	if s.storage == nil || s.bucket == "" {
		return
	}
	object := fmt.Sprintf("runs/%s/%s", run.ID, name)
	writer := s.storage.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(body); err != nil {
		slog.WarnContext(ctx, "failed to archive export", slog.String("object", object), slog.Any("error", err))
		_ = writer.Close()
		return
	}
	if err := writer.Close(); err != nil {
		slog.WarnContext(ctx, "failed to finalize export archive", slog.String("object", object), slog.Any("error", err))
	}
}

// sanitizeAuthor keeps export file names filesystem-safe even when the
// author handle carries unicode or separators.
func sanitizeAuthor(author string) string {
	if author == "" {
		return "unknown"
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, author)
	return cleaned
}
