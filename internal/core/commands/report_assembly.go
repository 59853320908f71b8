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

// This file defines the command that stitches the run's artifacts into the
// final PipelineRun: the normalized metadata, the parsed analysis report,
// the optional transcript, and the derived engagement rate.
package commands

import (
	"time"

	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/google/uuid"
)

// ReportAssembly builds the immutable PipelineRun from the context.
type ReportAssembly struct {
	cor.BaseCommand
}

// NewReportAssembly is the constructor for the ReportAssembly command.
func NewReportAssembly(name string) *ReportAssembly {
	return &ReportAssembly{BaseCommand: *cor.NewBaseCommand(name)}
}

// GetPipelineRunParameterName returns the canonical context key for the
// finished run.
func GetPipelineRunParameterName() string {
	return "__PIPELINE_RUN__"
}

func (c *ReportAssembly) IsExecutable(context cor.Context) bool {
	_, hasMetadata := context.Get(GetVideoMetadataParameterName()).(*model.VideoMetadata)
	_, hasAnalysis := context.Get(GetAnalysisReportParameterName()).(model.AnalysisReport)
	return hasMetadata && hasAnalysis
}

// Execute assembles the run. The transcript is optional; everything else
// is guaranteed present by IsExecutable.
func (c *ReportAssembly) Execute(context cor.Context) {
	metadata := context.Get(GetVideoMetadataParameterName()).(*model.VideoMetadata)
	analysis := context.Get(GetAnalysisReportParameterName()).(model.AnalysisReport)

	var segments []model.TranscriptSegment
	if transcript, ok := context.Get(GetTranscriptParameterName()).(*model.Transcript); ok {
		segments = transcript.Segments
	}

	run := &model.PipelineRun{
		ID:             uuid.NewString(),
		Metadata:       metadata,
		Analysis:       analysis,
		Transcript:     segments,
		EngagementRate: metadata.EngagementRate(),
		Timestamp:      time.Now().UTC(),
	}

	context.ReportProgress(95, "assembling report")
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetPipelineRunParameterName(), run)
	context.Add(c.GetOutputParam(), run)
}
