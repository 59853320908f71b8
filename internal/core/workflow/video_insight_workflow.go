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

// Package workflow defines the high-level business logic orchestrations,
// combining commands into coherent pipelines. This file implements the
// end-to-end video insight workflow: metadata, download, multimodal
// analysis, optional transcription, and report assembly.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/commands"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"golang.org/x/sync/errgroup"
)

// Polling schedules for the file-store processing loop. Video files are
// large and take a while; the extracted audio is a fraction of the size.
const (
	videoPollInterval = 5 * time.Second
	videoPollCeiling  = 300 * time.Second
	audioPollInterval = 2 * time.Second
	audioPollCeiling  = 120 * time.Second
)

// VideoInsightWorkflow orchestrates one analysis run. The work splits into
// four chains:
//
//   - acquire: scrape metadata and download the video to a temp file.
//   - analysis: upload the video to the file store, generate the
//     structured breakdown, and parse it. Errors here are fatal.
//   - transcription: extract the audio track and transcribe it. This chain
//     is best-effort; it runs concurrently with analysis on its own
//     context and its failures never sink the run.
//   - finish: assemble the immutable PipelineRun.
//
// Remote file-store uploads are deleted on every exit path, as are the
// local temp files owned by the run's contexts.
type VideoInsightWorkflow struct {
	cor.BaseCommand
	config             *cloud.Config
	clients            *cloud.ServiceClients
	genaiModel         cloud.ContentGenerator
	acquireChain       cor.Chain
	directChain        cor.Chain
	analysisChain      cor.Chain
	transcriptionChain cor.Chain
	finishChain        cor.Chain
	cleanup            *commands.RemoteCleanup
}

// Execute satisfies cor.Command for callers that embed this workflow in a
// larger chain. It expects the source URL under the input parameter.
func (m *VideoInsightWorkflow) Execute(context cor.Context) {
	url, ok := context.Get(m.GetInputParam()).(string)
	if !ok {
		context.AddError(m.GetName(), fmt.Errorf("workflow input is not a video URL"))
		return
	}
	run, err := m.run(context, url, nil)
	if err != nil {
		m.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(m.GetName(), err)
		return
	}
	m.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(commands.GetPipelineRunParameterName(), run)
	context.Add(m.GetOutputParam(), run)
}

// Run performs a complete analysis of the video behind a share-page URL.
// The progress callback receives coarse checkpoints; pass nil to disable.
func (m *VideoInsightWorkflow) Run(ctx context.Context, videoURL string, progress cor.ProgressFunc) (*model.PipelineRun, error) {
	c := cor.NewBaseContext()
	c.SetContext(ctx)
	c.SetProgress(progress)
	defer c.Close()
	return m.run(c, videoURL, nil)
}

// RunFromMedia analyzes a directly addressable media file, skipping the
// scraping step entirely. Metadata counters stay at zero so the report's
// engagement rate is zero and clearly marked as unavailable.
func (m *VideoInsightWorkflow) RunFromMedia(ctx context.Context, mediaURL string, progress cor.ProgressFunc) (*model.PipelineRun, error) {
	c := cor.NewBaseContext()
	c.SetContext(ctx)
	c.SetProgress(progress)
	defer c.Close()

	metadata := &model.VideoMetadata{
		SourceURL:   mediaURL,
		DownloadURL: mediaURL,
		Hashtags:    []string{},
	}
	return m.run(c, mediaURL, metadata)
}

// run drives the chains on an existing context. When metadata is non-nil
// the acquire chain skips the scraper and goes straight to download.
func (m *VideoInsightWorkflow) run(c cor.Context, videoURL string, metadata *model.VideoMetadata) (*model.PipelineRun, error) {
	// Remote uploads are deleted no matter how the run ends. Local temp
	// files are the caller's deferred Close.
	defer m.cleanup.Execute(c)

	if metadata != nil {
		c.Add(commands.GetVideoMetadataParameterName(), metadata)
		c.Add(cor.CtxIn, metadata)
		m.directChain.Execute(c)
	} else {
		c.Add(cor.CtxIn, videoURL)
		m.acquireChain.Execute(c)
	}
	if c.HasErrors() {
		return nil, c.FirstError()
	}

	media, ok := c.Get(commands.GetLocalMediaParameterName()).(*model.LocalMediaHandle)
	if !ok {
		return nil, fmt.Errorf("acquisition produced no local media")
	}

	// The transcription chain runs on its own context so its CtxIn/CtxOut
	// piping and its errors stay isolated from the fatal analysis path.
	// Both contexts share the same Go context and progress callback.
	transcriptionCtx := cor.NewBaseContext()
	transcriptionCtx.SetContext(c.GetContext())
	transcriptionCtx.Add(cor.CtxIn, media)

	group, _ := errgroup.WithContext(c.GetContext())
	group.Go(func() error {
		c.Add(cor.CtxIn, media)
		m.analysisChain.Execute(c)
		return c.FirstError()
	})
	group.Go(func() error {
		defer transcriptionCtx.Close()
		m.transcriptionChain.Execute(transcriptionCtx)
		if err := transcriptionCtx.FirstError(); err != nil {
			slog.WarnContext(c.GetContext(), "transcription failed, report will have no transcript", slog.Any("error", err))
			return nil
		}
		// Hand the transcript, and the audio upload for cleanup, back to
		// the main context.
		if transcript := transcriptionCtx.Get(commands.GetTranscriptParameterName()); transcript != nil {
			c.Add(commands.GetTranscriptParameterName(), transcript)
		}
		if remote := transcriptionCtx.Get(commands.GetRemoteAudioFileParameterName()); remote != nil {
			c.Add(commands.GetRemoteAudioFileParameterName(), remote)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	m.finishChain.Execute(c)
	if c.HasErrors() {
		return nil, c.FirstError()
	}

	run, ok := c.Get(commands.GetPipelineRunParameterName()).(*model.PipelineRun)
	if !ok {
		return nil, fmt.Errorf("workflow completed without producing a report")
	}
	c.ReportProgress(100, "done")
	return run, nil
}

// initializeChains builds the command sequences. Each command is an atomic
// unit of work whose output feeds the next command's input slot.
func (m *VideoInsightWorkflow) initializeChains() {
	acquire := cor.NewBaseChain("acquire-media")
	acquire.AddCommand(commands.NewMetadataFetch("metadata-fetch", m.clients.Apify))
	acquire.AddCommand(commands.NewMediaRetrieve("media-retrieve", m.config))
	m.acquireChain = acquire

	// Direct media runs skip the scraper but still route through a chain
	// so the download gets the same tracing and piping treatment.
	direct := cor.NewBaseChain("acquire-direct-media")
	direct.AddCommand(commands.NewMediaRetrieve("media-retrieve", m.config))
	m.directChain = direct

	analysis := cor.NewBaseChain("analyze-media")
	analysis.AddCommand(commands.NewMediaUpload(
		"video-upload", m.clients.Files, videoPollInterval, videoPollCeiling,
		commands.GetRemoteFileParameterName()))
	analysis.AddCommand(commands.NewReportCreator(
		"generate-analysis", m.genaiModel, m.config.AnalysisPrompt()))
	analysis.AddCommand(commands.NewReportCoercer("parse-analysis"))
	m.analysisChain = analysis

	// Transcription prefers the dedicated speech endpoint; the audio is
	// only uploaded to the file store when the multimodal fallback is the
	// sole available backend.
	transcription := cor.NewBaseChain("transcribe-media")
	transcription.AddCommand(commands.NewAudioExtract(
		"audio-extract", m.config.Downloader.FFmpegPath, m.config.Application.TempDir))
	if m.clients.Speech == nil {
		transcription.AddCommand(commands.NewMediaUpload(
			"audio-upload", m.clients.Files, audioPollInterval, audioPollCeiling,
			commands.GetRemoteAudioFileParameterName()))
	}
	transcription.AddCommand(commands.NewTranscribe(
		"transcribe", m.clients.Speech, m.genaiModel, m.config.TranscriptionPrompt()))
	m.transcriptionChain = transcription

	finish := cor.NewBaseChain("assemble-report")
	finish.AddCommand(commands.NewReportAssembly("report-assembly"))
	m.finishChain = finish

	m.cleanup = commands.NewRemoteCleanup("remote-cleanup", m.clients.Files)
}

// NewVideoInsightWorkflow is the constructor for the workflow. It resolves
// the agent model by its logical config name and builds the command chains.
func NewVideoInsightWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string) *VideoInsightWorkflow {

	genaiModel, ok := serviceClients.AgentModels[agentModelName]
	if !ok {
		panic(fmt.Sprintf("agent model %q is not configured", agentModelName))
	}

	pipeline := &VideoInsightWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-insight-pipeline"),
		config:      config,
		clients:     serviceClients,
		genaiModel:  genaiModel,
	}
	pipeline.initializeChains()
	return pipeline
}
