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

package cloud_test

import (
	"strings"
	"testing"

	"github.com/ecom-insider/video-insider/internal/cloud"
	test "github.com/ecom-insider/video-insider/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// TestAnalysisPromptDefault verifies that the built-in analysis prompt is
// used when no override is configured and that the task suffix is always
// appended.
func TestAnalysisPromptDefault(t *testing.T) {
	config := test.GetTestConfig()
	prompt := config.AnalysisPrompt()

	assert.True(t, strings.HasPrefix(prompt, cloud.DefaultAnalysisPrompt))
	assert.True(t, strings.HasSuffix(prompt, cloud.AnalysisTaskSuffix))
	// Few-shot example is embedded between the template and the task suffix.
	assert.Contains(t, prompt, "# Example Output")
	assert.Contains(t, prompt, "Visual Shock")
	// The prompt names every top-level section the coercer and exporters
	// depend on.
	for _, section := range []string{
		"video_content_summary",
		"structure_breakdown",
		"creative_insight",
		"lazada_adaptation_brief",
	} {
		assert.Contains(t, prompt, section)
	}
}

// TestAnalysisPromptOverride verifies a configured template replaces the
// default but still gets the task suffix.
func TestAnalysisPromptOverride(t *testing.T) {
	config := test.GetTestConfig()
	config.PromptTemplates.Analysis = "Custom framework."

	prompt := config.AnalysisPrompt()
	assert.True(t, strings.HasPrefix(prompt, "Custom framework."))
	assert.True(t, strings.HasSuffix(prompt, cloud.AnalysisTaskSuffix))
	assert.NotContains(t, prompt, "# Role Definition")
}

// TestTranscriptionPrompt verifies the default and override paths for the
// fallback transcription prompt.
func TestTranscriptionPrompt(t *testing.T) {
	config := test.GetTestConfig()
	prompt := config.TranscriptionPrompt()
	assert.True(t, strings.HasPrefix(prompt, cloud.DefaultTranscriptionPrompt))
	assert.Contains(t, prompt, `"transcript"`)
	assert.Contains(t, prompt, "yellow basket")

	config.PromptTemplates.Transcription = "Transcribe differently."
	assert.True(t, strings.HasPrefix(config.TranscriptionPrompt(), "Transcribe differently."))
	assert.NotContains(t, config.TranscriptionPrompt(), cloud.DefaultTranscriptionPrompt)
}
