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

// Package cloud holds the application configuration structs (loaded from
// TOML files) and the clients for every external service the pipeline talks
// to: the generative AI backend, the scraping provider, the speech service,
// and the optional GCS/BigQuery sinks.
//
// Credentials live in the Config struct, filled in by the loader from the
// process environment exactly once at startup. No component reads ambient
// state directly; everything receives its configuration explicitly.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings disables content blocking for all harm categories.
// The pipeline analyzes arbitrary public ad creative; a blocked response is
// indistinguishable from a malformed one downstream, so filtering is left to
// the operator's account-level policy.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// ApifyProvider configures the job-based scraping provider used for video
// metadata. The token is resolved from APIFY_API_TOKEN when not set here.
type ApifyProvider struct {
	APIToken         string `toml:"api_token"`
	BaseURL          string `toml:"base_url"`           // Defaults to the public Apify API.
	ActorID          string `toml:"actor_id"`           // e.g. "clockworks~tiktok-scraper".
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Job calls block until completion; keep this large.
}

// GenAIProvider configures the multimodal inference backend. The key is
// resolved from GEMINI_API_KEY when not set here; APIBase supports proxy
// deployments and is usually empty.
type GenAIProvider struct {
	APIKey  string `toml:"api_key"`
	APIBase string `toml:"api_base"`
}

// SpeechProvider configures the speech-to-text endpoint used by the primary
// transcription strategy. An empty endpoint disables the strategy and the
// transcriber falls straight through to the multimodal fallback.
type SpeechProvider struct {
	Endpoint         string `toml:"endpoint"`
	APIKey           string `toml:"api_key"` // Resolved from SPEECH_API_KEY when empty.
	Model            string `toml:"model"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Downloader configures media acquisition: the external yt-dlp and ffmpeg
// binaries, the spoofed browser identity, and per-host referrer headers for
// sites that reject unauthenticated scripted requests.
type Downloader struct {
	YtDlpPath        string            `toml:"yt_dlp_path"`
	FFmpegPath       string            `toml:"ffmpeg_path"`
	Format           string            `toml:"format"` // yt-dlp format selector, e.g. "best[ext=mp4]/best".
	UserAgent        string            `toml:"user_agent"`
	Referrers        map[string]string `toml:"referrers"` // host substring -> referrer header.
	TimeoutInSeconds int               `toml:"timeout_in_seconds"`
}

// GenAiLLMModel configures one generative model, mirroring the knobs the
// inference service exposes plus our client-side rate limit.
type GenAiLLMModel struct {
	Model        string  `toml:"model"`
	Temperature  float32 `toml:"temperature"`
	TopP         float32 `toml:"top_p"`
	TopK         float32 `toml:"top_k"`
	MaxTokens    int32   `toml:"max_tokens"`
	OutputFormat string  `toml:"output_format"` // Response MIME type, e.g. "application/json".
	RateLimit    int     `toml:"rate_limit"`    // Requests per second.
}

// Storage configures the optional GCS archive for exported reports. An empty
// bucket name disables archiving.
type Storage struct {
	ReportBucket string `toml:"report_bucket"`
}

// BigQueryDataSource configures the optional run-history sink. An empty
// dataset name disables persistence and history stays in-memory only.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`
	RunsTable   string `toml:"runs_table"`
}

// PromptTemplates optionally overrides the built-in prompt text. Empty
// fields fall back to the defaults in prompts.go.
type PromptTemplates struct {
	Analysis      string `toml:"analysis"`
	Transcription string `toml:"transcription"`
}

// APIUser is one entry of the static token store gating the HTTP surface.
type APIUser struct {
	Username           string `toml:"username"`
	Email              string `toml:"email"`
	QuotaMonthly       int    `toml:"quota_monthly"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
}

// Config is the top-level application configuration, loaded from TOML files
// with environment-specific overrides.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"` // Only needed when the GCS/BigQuery sinks are enabled.
		TempDir         string `toml:"temp_dir"`          // Defaults to the OS temp directory when empty.
		Port            int    `toml:"port"`
	} `toml:"application"`
	Apify              ApifyProvider            `toml:"apify"`
	GenAI              GenAIProvider            `toml:"genai"`
	Speech             SpeechProvider           `toml:"speech"`
	Downloader         Downloader               `toml:"downloader"`
	Storage            Storage                  `toml:"storage"`
	BigQueryDataSource BigQueryDataSource       `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates          `toml:"prompt_templates"`
	AgentModels        map[string]GenAiLLMModel `toml:"agent_models"`
	APIUsers           map[string]APIUser       `toml:"api_users"` // Keyed by bearer token.
}

// NewConfig returns a Config with its maps initialized so the TOML decoder
// never writes into a nil map.
func NewConfig() *Config {
	return &Config{
		AgentModels: make(map[string]GenAiLLMModel),
		APIUsers:    make(map[string]APIUser),
	}
}
