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

// Package testutil provides fixtures and helpers for the test suite:
// a ready-made configuration, scraper payloads in the field-name variants
// the actor has shipped, and sample model responses in the shapes the
// response coercer has to survive.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/ecom-insider/video-insider/internal/cloud"
)

// HandleErr fails the test on a non-nil error. Convenience to cut
// boilerplate in test bodies.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestConfig returns a configuration suitable for unit tests: no real
// credentials, local binary names, and a single agent model.
func GetTestConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Application.Name = "video-insider-test"
	config.Application.TempDir = ""
	config.Apify.APIToken = "test-token"
	config.Apify.BaseURL = "https://api.apify.com"
	config.Apify.ActorID = "clockworks~tiktok-scraper"
	config.GenAI.APIKey = "test-key"
	config.Downloader.YtDlpPath = "yt-dlp"
	config.Downloader.FFmpegPath = "ffmpeg"
	config.Downloader.Format = "best[ext=mp4]/best"
	config.Downloader.UserAgent = "test-agent"
	config.Downloader.Referrers = map[string]string{"tiktok": "https://www.tiktok.com/"}
	config.AgentModels["creative-director"] = cloud.GenAiLLMModel{
		Model:        "gemini-2.0-flash",
		Temperature:  0.2,
		TopP:         0.95,
		TopK:         40,
		MaxTokens:    8192,
		OutputFormat: "application/json",
		RateLimit:    1,
	}
	config.APIUsers["demo_token_123"] = cloud.APIUser{
		Username:           "demo_user",
		Email:              "demo@example.com",
		QuotaMonthly:       100,
		RateLimitPerMinute: 10,
	}
	return config
}

// GetModernScraperItem returns a dataset item in the actor's current
// schema: nested authorMeta/videoMeta/musicMeta objects and an ISO create
// time.
func GetModernScraperItem() map[string]interface{} {
	return decodeItem(`{
  "webVideoUrl": "https://www.tiktok.com/@beauty.finds/video/7300000000000000001",
  "text": "This concealer is unreal #makeup #lazada",
  "createTimeISO": "2025-03-18T09:30:00Z",
  "diggCount": 85000,
  "commentCount": 3200,
  "shareCount": 4100,
  "playCount": 1250000,
  "authorMeta": { "name": "beauty.finds" },
  "musicMeta": { "musicName": "original sound - beauty.finds" },
  "videoMeta": { "duration": 34 },
  "video": { "downloadAddr": "https://v16.tiktokcdn.com/abc123/video.mp4" },
  "hashtags": [ { "name": "makeup" }, { "name": "lazada" } ]
}`)
}

// GetLegacyScraperItem returns a dataset item in the older flat schema:
// top-level videoUrl, author string, numeric createTime, and flat hashtag
// strings.
func GetLegacyScraperItem() map[string]interface{} {
	return decodeItem(`{
  "videoUrl": "https://www.tiktok.com/@kitchen.hacks/video/7200000000000000002",
  "desc": "3 gadgets you did not know you needed",
  "createTime": "1700000000",
  "diggCount": 12500,
  "commentCount": 340,
  "shareCount": 890,
  "playCount": 156000,
  "author": "kitchen.hacks",
  "hashtags": [ "kitchen", "gadgets" ]
}`)
}

// GetEmptyScraperItem returns a dataset item with no recognized fields at
// all, exercising the all-defaults normalization path.
func GetEmptyScraperItem() map[string]interface{} {
	return decodeItem(`{ "unrelated": true }`)
}

// GetBareAnalysisResponse is a model response that is already clean JSON.
func GetBareAnalysisResponse() string {
	return `{
  "video_content_summary": {
    "what_is_this_video_about": "A creator demonstrates a concealer with before and after shots.",
    "primary_language": "English",
    "estimated_sentiment": "Positive"
  },
  "structure_breakdown": {
    "hook_type": "Visual Shock",
    "hook_description": "Extreme close-up of dark under-eye circles, upbeat sound starts immediately.",
    "hook_text_overlay": "POV: you found THE concealer",
    "pain_point_addressed": "Under-eye circles that makeup never fully covers",
    "product_reveal_timestamp": "00:04",
    "actual_product_shown": "Liquid concealer in a brown tube",
    "key_selling_proposition": "One swipe full coverage"
  },
  "creative_insight": {
    "why_it_works": "Before/after contrast triggers curiosity and social proof.",
    "visual_style": "UGC",
    "editing_pace": "Fast"
  },
  "lazada_adaptation_brief": {
    "remake_difficulty": "Low",
    "script_template": "1. Close-up of the problem. 2. Apply product on one side. 3. Split-screen compare. 4. Show yellow basket.",
    "localization_tip": "Use a local creator and show the Lazada price overlay in the last two seconds."
  }
}`
}

// GetFencedAnalysisResponse wraps the bare response in a markdown fence,
// the most common deviation the coercer sees.
func GetFencedAnalysisResponse() string {
	return "```json\n" + GetBareAnalysisResponse() + "\n```"
}

// GetProseAnalysisResponse surrounds the fenced payload with the
// conversational filler some model versions insist on adding.
func GetProseAnalysisResponse() string {
	return "Sure! Here is the structured analysis you asked for:\n\n" +
		GetFencedAnalysisResponse() +
		"\n\nLet me know if you need anything else."
}

// GetTranscriptResponse is a model transcription response including the
// non-speech markers the filter has to drop.
func GetTranscriptResponse() string {
	return `{
  "transcript": [
    { "timestamp": "00:00", "text": "[Music]" },
    { "timestamp": "00:02", "text": "Okay so I was today years old" },
    { "timestamp": "00:06", "text": "when I found out this exists" },
    { "timestamp": "00:11", "text": "" },
    { "timestamp": "00:14", "text": "link is in the yellow basket" }
  ]
}`
}

func decodeItem(payload string) map[string]interface{} {
	var item map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		panic(err)
	}
	return item
}
