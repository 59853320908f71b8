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

// This file holds the application's state manager: a single container for
// configuration, external-service clients, and the application services,
// wired together once at startup.
//
// Functions:
//   - SetupOS: Points the configuration loader at the configs/ directory
//     and selects the runtime environment.
//   - GetConfig: Loads the TOML configuration exactly once.
//   - InitState: Creates the cloud clients, the quota store, the run
//     history, the export service, and the analysis pipeline.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/ecom-insider/video-insider/internal/core/services"
	"github.com/ecom-insider/video-insider/internal/core/workflow"
)

// AgentModelName is the logical config key of the model used for analysis
// and fallback transcription.
const AgentModelName = "creative-director"

// StateManager holds all shared dependencies, avoiding globals scattered
// across handlers.
type StateManager struct {
	config        *cloud.Config
	cloud         *cloud.ServiceClients
	quotaStore    *services.QuotaStore
	runHistory    *services.RunHistoryService
	exportService *services.ExportService
	pipeline      *workflow.VideoInsightWorkflow
}

var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader reads to
// locate the TOML files and pick the runtime overlay.
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
		return err
	}
	// The loader looks for ".env.local.toml" to override base settings.
	return os.Setenv(cloud.EnvConfigRuntime, "local")
}

// GetConfig provides the singleton application configuration, loading it
// from the TOML files on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}

// InitState wires the full application: cloud clients, application
// services, and the analysis pipeline.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.quotaStore = services.NewQuotaStore(config.APIUsers)
	state.runHistory = services.NewRunHistoryService(
		cloudClients.BigQueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.RunsTable)
	state.exportService = services.NewExportService(
		cloudClients.StorageClient,
		config.Storage.ReportBucket)

	state.pipeline = workflow.NewVideoInsightWorkflow(config, cloudClients, AgentModelName)
}

// recordRun pushes a completed run into history, serializing the analysis
// once for the optional BigQuery sink.
func (s *StateManager) recordRun(ctx context.Context, run *model.PipelineRun) {
	analysisJSON, err := json.Marshal(run.Analysis)
	if err != nil {
		slog.WarnContext(ctx, "failed to serialize analysis for history", slog.Any("error", err))
		analysisJSON = []byte("{}")
	}
	s.runHistory.Record(ctx, run, string(analysisJSON))
}
