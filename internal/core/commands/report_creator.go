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

// This file defines the command that asks the multimodal model for the
// structured creative breakdown of an uploaded video.
//
// The prompt template already carries the role framing and the task
// instruction in a single user turn; the consumer-tier generation API has
// no separate system-instruction channel, so everything travels together.
// The model's raw text response goes into the context untouched — layered
// JSON coercion is the next command's job.
package commands

import (
	"fmt"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"google.golang.org/genai"
)

// ReportCreator sends the analysis prompt and the remote video handle to
// the generative model.
type ReportCreator struct {
	cor.BaseCommand
	generator cloud.ContentGenerator
	prompt    string
}

// NewReportCreator is the constructor for the ReportCreator command.
func NewReportCreator(name string, generator cloud.ContentGenerator, prompt string) *ReportCreator {
	return &ReportCreator{BaseCommand: *cor.NewBaseCommand(name), generator: generator, prompt: prompt}
}

// GetRawAnalysisParameterName returns the canonical context key for the
// model's unparsed response text.
func GetRawAnalysisParameterName() string {
	return "__RAW_ANALYSIS__"
}

func (c *ReportCreator) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(c.GetInputParam()).(*genai.File)
	return ok
}

// Execute builds the multimodal request and stores the raw response.
func (c *ReportCreator) Execute(context cor.Context) {
	remote := context.Get(c.GetInputParam()).(*genai.File)
	ctx := context.GetContext()

	context.ReportProgress(70, "analyzing video structure")
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: c.prompt},
			{FileData: &genai.FileData{FileURI: remote.URI, MIMEType: remote.MIMEType}},
		},
	}}

	raw, err := c.generator.GenerateContent(ctx, contents)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), fmt.Errorf("video analysis generation failed: %w", err))
		return
	}

	context.ReportProgress(75, "model analysis complete")
	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(GetRawAnalysisParameterName(), raw)
	context.Add(c.GetOutputParam(), raw)
}
