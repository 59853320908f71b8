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

// This file initializes and holds the client objects for every external
// service the pipeline talks to. It acts as a dependency injection
// container: `NewCloudServiceClients` is called once at startup and the
// resulting `ServiceClients` struct is shared by the workflows and API
// handlers.
//
// Logic Flow:
//  1. `NewCloudServiceClients` receives the loaded configuration.
//  2. It creates the generative AI client (consumer Gemini API, keyed by
//     GEMINI_API_KEY) and the scraper and transcription clients.
//  3. Storage and BigQuery clients are created only when the relevant
//     config sections are populated; both are optional sinks.
//  4. Each configured agent model is wrapped in the rate-limiting
//     QuotaAwareGenerativeAIModel and stored in a map keyed by its
//     logical name from the config.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is a container for all external-service clients. Optional
// clients (storage, BigQuery, speech) are nil when their config section is
// absent; consumers must check before use.
type ServiceClients struct {
	GenAIClient    *genai.Client
	StorageClient  *storage.Client  // nil unless storage.report_bucket is set.
	BigQueryClient *bigquery.Client // nil unless big_query_data_source is set.
	Apify          ApifyRunner
	Speech         SpeechClient // nil when no speech endpoint is configured.
	Files          FileService
	AgentModels    map[string]*QuotaAwareGenerativeAIModel
}

// Close releases the optional clients. The genai client keeps no
// long-lived connection and has no close function.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
}

// NewCloudServiceClients initializes every client the configuration calls
// for. It fails fast on the required ones (generative AI, scraper) and
// logs-and-skips the optional sinks so a missing bucket never blocks
// analysis.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GenAI.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.GenAI.APIBase,
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create genai client", slog.Any("error", err))
		return nil, err
	}

	apify, err := NewApifyClient(config.Apify)
	if err != nil {
		return nil, err
	}

	var speech SpeechClient
	if config.Speech.Endpoint != "" {
		sp, err := NewHTTPSpeechClient(config.Speech)
		if err != nil {
			return nil, err
		}
		speech = sp
	}

	var sc *storage.Client
	if config.Storage.ReportBucket != "" {
		sc, err = storage.NewClient(ctx)
		if err != nil {
			slog.WarnContext(ctx, "storage client unavailable, report archiving disabled", slog.Any("error", err))
			sc = nil
		}
	}

	var bc *bigquery.Client
	if config.BigQueryDataSource.DatasetName != "" {
		bc, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			slog.WarnContext(ctx, "bigquery client unavailable, run history sink disabled", slog.Any("error", err))
			bc = nil
		}
	}

	// Wrap each configured agent model with its generation settings and
	// client-side rate limit.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		agentModels[amKey] = NewQuotaAwareModel(NewModelConfig(values), values.Model, gc.Models, values.RateLimit)
	}

	return &ServiceClients{
		GenAIClient:    gc,
		StorageClient:  sc,
		BigQueryClient: bc,
		Apify:          apify,
		Speech:         speech,
		Files:          NewGenAIFileService(gc),
		AgentModels:    agentModels,
	}, nil
}
