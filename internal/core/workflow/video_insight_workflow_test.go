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

// End-to-end tests for the insight pipeline, run entirely against in-memory
// fakes: a canned scraper actor, a local HTTP server standing in for the
// video CDN, a fake file store, and a fake generative model. The tests are
// in-package so a workflow can be assembled around the fakes directly.
package workflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	test "github.com/ecom-insider/video-insider/internal/testutil"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

type fakeApifyRunner struct {
	items []map[string]interface{}
	err   error
}

func (f *fakeApifyRunner) RunActor(_ context.Context, _ string) ([]map[string]interface{}, error) {
	return f.items, f.err
}

// fakeFileService hands out ACTIVE files immediately and records deletions
// so cleanup can be asserted.
type fakeFileService struct {
	mu        sync.Mutex
	uploadErr error
	uploads   []string
	deleted   []string
}

func (f *fakeFileService) Upload(_ context.Context, path string, _ string, mimeType string) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	name := "files/upload-" + mimeType
	f.uploads = append(f.uploads, name)
	return &genai.File{Name: name, URI: "https://files.invalid/" + name, MIMEType: mimeType, State: genai.FileStateActive}, nil
}

func (f *fakeFileService) Get(_ context.Context, name string) (*genai.File, error) {
	return &genai.File{Name: name, State: genai.FileStateActive}, nil
}

func (f *fakeFileService) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ []*genai.Content) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeSpeechClient struct {
	segments []model.TranscriptSegment
	err      error
}

func (f *fakeSpeechClient) Transcribe(_ context.Context, _ string) ([]model.TranscriptSegment, error) {
	return f.segments, f.err
}

// newTestWorkflow assembles a pipeline around the given fakes. The CDN
// server URL is patched into the scraper item so the download stays local,
// and "true" stands in for FFmpeg.
func newTestWorkflow(t *testing.T, runner *fakeApifyRunner, files *fakeFileService,
	generator *fakeGenerator, speech cloud.SpeechClient) (*VideoInsightWorkflow, *cloud.Config) {
	t.Helper()

	config := test.GetTestConfig()
	config.Application.TempDir = t.TempDir()
	config.Downloader.FFmpegPath = "true"

	clients := &cloud.ServiceClients{
		Apify:  runner,
		Files:  files,
		Speech: speech,
	}

	pipeline := &VideoInsightWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-insight-pipeline"),
		config:      config,
		clients:     clients,
		genaiModel:  generator,
	}
	pipeline.initializeChains()
	return pipeline, config
}

// startFakeCDN serves a small payload for any direct media URL.
func startFakeCDN(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fake video bytes"))
	}))
	t.Cleanup(server.Close)
	return server
}

// TestWorkflowRun drives a full successful run: scrape, download, analyze,
// transcribe, assemble. Checks the report contents, the transcript merge
// from the concurrent chain, progress checkpoints, and cleanup of both
// local temp files and remote uploads.
func TestWorkflowRun(t *testing.T) {
	cdn := startFakeCDN(t)

	item := test.GetModernScraperItem()
	item["video"] = map[string]interface{}{"downloadAddr": cdn.URL + "/video.mp4"}

	runner := &fakeApifyRunner{items: []map[string]interface{}{item}}
	files := &fakeFileService{}
	generator := &fakeGenerator{response: test.GetFencedAnalysisResponse()}
	speech := &fakeSpeechClient{segments: []model.TranscriptSegment{
		{Timestamp: "00:02", Text: "Okay so I was today years old"},
		{Timestamp: "00:05", Text: "[Music]"},
	}}

	pipeline, config := newTestWorkflow(t, runner, files, generator, speech)

	var progressStages []string
	run, err := pipeline.Run(context.Background(), "https://www.tiktok.com/@beauty.finds/video/1",
		func(_ int, stage string) { progressStages = append(progressStages, stage) })

	assert.NoError(t, err)
	assert.NotNil(t, run)
	assert.Equal(t, "beauty.finds", run.Metadata.Author)
	assert.InDelta(t, 7.056, run.EngagementRate, 1e-9)
	assert.Equal(t, "Visual Shock", run.Analysis.Section(model.SectionStructure).Str("hook_type"))

	// The transcript from the concurrent chain is attached, markers
	// filtered out.
	assert.Equal(t, []model.TranscriptSegment{
		{Timestamp: "00:02", Text: "Okay so I was today years old"},
	}, run.Transcript)

	// Progress runs from scrape to done.
	assert.Equal(t, "fetching video metadata", progressStages[0])
	assert.Equal(t, "done", progressStages[len(progressStages)-1])

	// Only the video was uploaded (a speech endpoint is configured), and it
	// was deleted when the run finished.
	assert.Equal(t, []string{"files/upload-video/mp4"}, files.uploads)
	assert.Equal(t, files.uploads, files.deleted)

	// Every temp file the run materialized is gone.
	assertDirEmpty(t, config.Application.TempDir)
}

// TestWorkflowRunWithoutSpeechEndpoint verifies the multimodal-only
// deployment: the extracted audio is uploaded to the file store, the
// generator answers the transcription prompt, and both uploads get deleted.
func TestWorkflowRunWithoutSpeechEndpoint(t *testing.T) {
	cdn := startFakeCDN(t)

	item := test.GetModernScraperItem()
	item["video"] = map[string]interface{}{"downloadAddr": cdn.URL + "/video.mp4"}

	runner := &fakeApifyRunner{items: []map[string]interface{}{item}}
	files := &fakeFileService{}
	// The same fake answers both the analysis and transcription prompts;
	// the transcript envelope parses out of the analysis response as empty,
	// so use the transcript fixture to observe the path end to end.
	generator := &fakeGenerator{response: test.GetTranscriptResponse()}

	pipeline, _ := newTestWorkflow(t, runner, files, generator, nil)

	run, err := pipeline.Run(context.Background(), "https://www.tiktok.com/@beauty.finds/video/1", nil)

	// The analysis "report" is the transcript envelope here; the run still
	// completes because it is valid JSON.
	assert.NoError(t, err)
	assert.Equal(t, 3, len(run.Transcript))

	// Video and audio were both uploaded and both cleaned up.
	assert.Equal(t, 2, len(files.uploads))
	assert.ElementsMatch(t, files.uploads, files.deleted)
}

// TestWorkflowRunFromMedia verifies the direct-media path: no scraper call,
// zero engagement counters, but a complete analysis.
func TestWorkflowRunFromMedia(t *testing.T) {
	cdn := startFakeCDN(t)

	runner := &fakeApifyRunner{err: errors.New("scraper must not be called")}
	files := &fakeFileService{}
	generator := &fakeGenerator{response: test.GetBareAnalysisResponse()}
	speech := &fakeSpeechClient{segments: []model.TranscriptSegment{}}

	pipeline, _ := newTestWorkflow(t, runner, files, generator, speech)

	run, err := pipeline.RunFromMedia(context.Background(), cdn.URL+"/direct.mp4", nil)

	assert.NoError(t, err)
	assert.Equal(t, cdn.URL+"/direct.mp4", run.Metadata.SourceURL)
	assert.Equal(t, 0.0, run.EngagementRate)
	assert.Equal(t, "Low", run.Analysis.Section(model.SectionAdaptationBrief).Str("remake_difficulty"))
	assert.Equal(t, 0, len(run.Transcript))
}

// TestWorkflowScraperFailure verifies an actor failure aborts the run
// before any download or upload, with a clean temp directory.
func TestWorkflowScraperFailure(t *testing.T) {
	runner := &fakeApifyRunner{err: &model.ProviderError{Provider: "apify", Reason: "actor returned no items, the video may be private or deleted"}}
	files := &fakeFileService{}
	generator := &fakeGenerator{response: test.GetBareAnalysisResponse()}

	pipeline, config := newTestWorkflow(t, runner, files, generator, &fakeSpeechClient{})

	run, err := pipeline.Run(context.Background(), "https://www.tiktok.com/@gone/video/0", nil)

	assert.Nil(t, run)
	var provider *model.ProviderError
	assert.ErrorAs(t, err, &provider)
	assert.Equal(t, 0, len(files.uploads))
	assertDirEmpty(t, config.Application.TempDir)
}

// TestWorkflowAnalysisFailureStillCleansUp verifies the core cleanup
// invariant: when the model errors mid-run, the uploaded video is still
// deleted from the file store and no temp files are left behind.
func TestWorkflowAnalysisFailureStillCleansUp(t *testing.T) {
	cdn := startFakeCDN(t)

	item := test.GetModernScraperItem()
	item["video"] = map[string]interface{}{"downloadAddr": cdn.URL + "/video.mp4"}

	runner := &fakeApifyRunner{items: []map[string]interface{}{item}}
	files := &fakeFileService{}
	generator := &fakeGenerator{err: errors.New("model overloaded")}
	speech := &fakeSpeechClient{segments: []model.TranscriptSegment{}}

	pipeline, config := newTestWorkflow(t, runner, files, generator, speech)

	run, err := pipeline.Run(context.Background(), "https://www.tiktok.com/@beauty.finds/video/1", nil)

	assert.Nil(t, run)
	assert.ErrorContains(t, err, "model overloaded")
	// The upload happened before the model call, so cleanup must cover it.
	assert.Equal(t, 1, len(files.uploads))
	assert.Equal(t, files.uploads, files.deleted)
	assertDirEmpty(t, config.Application.TempDir)
}

// TestWorkflowTranscriptionFailureIsNonFatal verifies a dead transcription
// path never sinks the run: the report just ships without a transcript.
func TestWorkflowTranscriptionFailureIsNonFatal(t *testing.T) {
	cdn := startFakeCDN(t)

	item := test.GetModernScraperItem()
	item["video"] = map[string]interface{}{"downloadAddr": cdn.URL + "/video.mp4"}

	runner := &fakeApifyRunner{items: []map[string]interface{}{item}}
	files := &fakeFileService{}
	generator := &fakeGenerator{response: test.GetBareAnalysisResponse()}
	speech := &fakeSpeechClient{err: errors.New("endpoint unreachable")}

	pipeline, _ := newTestWorkflow(t, runner, files, generator, speech)

	run, err := pipeline.Run(context.Background(), "https://www.tiktok.com/@beauty.finds/video/1", nil)

	assert.NoError(t, err)
	assert.Equal(t, 0, len(run.Transcript))
	assert.Equal(t, "Visual Shock", run.Analysis.Section(model.SectionStructure).Str("hook_type"))
}

// assertDirEmpty fails the test when the run left files behind.
func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(entries), "temp directory should be empty after the run")
}
