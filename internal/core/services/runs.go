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

// Package services holds the application-level services that sit between
// the API surface and the pipeline: run history, export rendering, and the
// per-user quota store. This file implements the run history.
//
// History is held in memory — the tool is operated interactively and a
// restart losing old runs is acceptable. When a BigQuery dataset is
// configured each completed run is additionally streamed into it, so
// deployments that want durable history get it without the API depending
// on a database being reachable.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"google.golang.org/api/googleapi"
)

// runRow is the flattened shape streamed to BigQuery. The nested analysis
// report is stored as its JSON text since its schema is model-defined.
type runRow struct {
	ID             string    `bigquery:"id"`
	SourceURL      string    `bigquery:"source_url"`
	Author         string    `bigquery:"author"`
	EngagementRate float64   `bigquery:"engagement_rate"`
	Analysis       string    `bigquery:"analysis_json"`
	Timestamp      time.Time `bigquery:"timestamp"`
}

// RunHistoryService records completed pipeline runs, newest first.
type RunHistoryService struct {
	mu      sync.RWMutex
	runs    []*model.PipelineRun
	byID    map[string]*model.PipelineRun
	sink    *bigquery.Inserter // nil when no dataset is configured.
	dataset string
}

// NewRunHistoryService builds the history. client may be nil; dataset and
// table are only consulted when it is not.
func NewRunHistoryService(client *bigquery.Client, dataset string, table string) *RunHistoryService {
	service := &RunHistoryService{
		byID: make(map[string]*model.PipelineRun),
	}
	if client != nil && dataset != "" && table != "" {
		service.sink = client.Dataset(dataset).Table(table).Inserter()
		service.dataset = dataset
	}
	return service
}

// Record stores a completed run and streams it to the sink when one is
// configured. Sink failures are logged, never returned: history is a
// convenience, the caller already has the run.
func (s *RunHistoryService) Record(ctx context.Context, run *model.PipelineRun, analysisJSON string) {
	s.mu.Lock()
	s.runs = append([]*model.PipelineRun{run}, s.runs...)
	s.byID[run.ID] = run
	s.mu.Unlock()

	if s.sink == nil {
		return
	}
	row := &runRow{
		ID:             run.ID,
		SourceURL:      run.Metadata.SourceURL,
		Author:         run.Metadata.Author,
		EngagementRate: run.EngagementRate,
		Analysis:       analysisJSON,
		Timestamp:      run.Timestamp,
	}
	if err := s.sink.Put(ctx, row); err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok {
			slog.WarnContext(ctx, "run history insert rejected",
				slog.Int("code", apiErr.Code), slog.String("message", apiErr.Message))
			return
		}
		slog.WarnContext(ctx, "run history insert failed", slog.Any("error", err))
	}
}

// List returns the recorded runs, newest first.
func (s *RunHistoryService) List() []*model.PipelineRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.PipelineRun, len(s.runs))
	copy(out, s.runs)
	return out
}

// Get returns a run by its ID, or nil.
func (s *RunHistoryService) Get(id string) *model.PipelineRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// Latest returns the most recent run, or nil when none exist.
func (s *RunHistoryService) Latest() *model.PipelineRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return nil
	}
	return s.runs[0]
}
