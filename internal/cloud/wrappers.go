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

// Package cloud holds configuration and external-service clients. This file
// wraps the raw generative model handle with a client-side rate limiter so
// the pipeline stays inside the inference service's per-minute quotas. The
// wrapper satisfies ContentGenerator, which is what the pipeline commands
// depend on; tests substitute a fake.
package cloud

import (
	"context"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the single-call generation boundary the pipeline
// commands use. Implementations return the model's concatenated text output.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (string, error)
}

// QuotaAwareGenerativeAIModel decorates a generative model with a token
// bucket sized from configuration. A call blocks until the limiter admits it
// or the context is canceled; there is no automatic retry here — retry
// policy belongs to the caller.
type QuotaAwareGenerativeAIModel struct {
	GenerateConfig *genai.GenerateContentConfig
	ModelName      string
	ModelHandle    *genai.Models
	Limiter        *rate.Limiter
}

// NewQuotaAwareModel wraps the model handle with a limiter admitting
// requestsPerSecond calls per second (burst of the same size).
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerateConfig: config,
		ModelName:      name,
		ModelHandle:    handle,
		Limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// GenerateContent waits for a limiter token, issues one generation request,
// and flattens the candidates into a single string. Fenced ```json markers
// around the whole payload are stripped here because the model emits them
// even when asked for a bare JSON document; deeper coercion is the
// responsibility of the response coercer.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (string, error) {
	if err := q.Limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerateConfig)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	value := strings.TrimSpace(sb.String())
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}

// NewModelConfig translates the TOML model settings into the generation
// config sent with every request.
func NewModelConfig(values GenAiLLMModel) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		TopK:             genai.Ptr[float32](values.TopK),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
}
