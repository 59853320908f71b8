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

// This file defines the command that turns the model's raw text response
// into a structured AnalysisReport.
//
// Even with a JSON response MIME type configured, models wrap payloads in
// markdown fences or conversational filler often enough that a single
// json.Unmarshal is not reliable. The coercer runs a fixed ladder of
// extraction strategies and stops at the first that yields valid JSON:
//
//  1. Parse the whole response as-is.
//  2. Extract a ```json fenced block and parse its body.
//  3. Take the span from the first '{' to the last '}' and parse that.
//
// A strategy that finds no candidate text defers to the next one; a
// strategy whose candidate fails to parse also defers, because a later,
// wider strategy may still succeed. Only when the ladder is exhausted does
// the command fail, with the raw response preserved inside the error for
// diagnosis.
package commands

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
)

// fencedJSONPattern matches a markdown code fence with an optional json
// language tag and captures its body.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ReportCoercer parses the raw model response into an AnalysisReport.
type ReportCoercer struct {
	cor.BaseCommand
}

// NewReportCoercer is the constructor for the ReportCoercer command.
func NewReportCoercer(name string) *ReportCoercer {
	return &ReportCoercer{BaseCommand: *cor.NewBaseCommand(name)}
}

// GetAnalysisReportParameterName returns the canonical context key for the
// parsed report.
func GetAnalysisReportParameterName() string {
	return "__ANALYSIS_REPORT__"
}

func (c *ReportCoercer) IsExecutable(context cor.Context) bool {
	raw, ok := context.Get(c.GetInputParam()).(string)
	return ok && len(raw) > 0
}

// Execute runs the strategy ladder and stores the parsed report.
func (c *ReportCoercer) Execute(context cor.Context) {
	raw := context.Get(c.GetInputParam()).(string)

	report, err := CoerceReport(raw)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	context.ReportProgress(90, "analysis parsed")
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAnalysisReportParameterName(), report)
	context.Add(c.GetOutputParam(), report)
}

// CoerceReport applies the extraction ladder to raw model output.
func CoerceReport(raw string) (model.AnalysisReport, error) {
	var lastErr error
	for _, extract := range []func(string) (string, bool){
		extractWhole,
		extractFencedBlock,
		extractBraceSpan,
	} {
		candidate, ok := extract(raw)
		if !ok {
			continue
		}
		var report model.AnalysisReport
		if err := json.Unmarshal([]byte(candidate), &report); err != nil {
			lastErr = err
			continue
		}
		return report, nil
	}
	return nil, &model.MalformedResponseError{RawText: raw, Err: lastErr}
}

func extractWhole(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

func extractFencedBlock(raw string) (string, bool) {
	match := fencedJSONPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

func extractBraceSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
