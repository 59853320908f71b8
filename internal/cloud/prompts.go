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

package cloud

import (
	"encoding/json"

	"github.com/ecom-insider/video-insider/internal/core/model"
)

// Built-in prompt templates. Deployments can override either one through
// the prompt_templates config section; these defaults are used when the
// section is empty. The task suffix is appended to the analysis template
// at request time because the consumer-tier generation API has no separate
// system-instruction channel, so role framing and task travel together in a
// single user turn.

// DefaultAnalysisPrompt drives the structured breakdown of a short-form
// commerce video into the four report sections.
const DefaultAnalysisPrompt = `# Role Definition
You are an expert E-commerce Short-Video Creative Director specializing in Direct Response Marketing (DRM). Your expertise lies in analyzing viral TikTok/Reels content and reverse-engineering them into high-converting ad scripts for platforms like Lazada and Shopee in Southeast Asia.

# CRITICAL INSTRUCTION
**YOU MUST CAREFULLY WATCH THE ENTIRE VIDEO BEFORE ANALYZING.**
- Do NOT make assumptions or generate content that is not present in the video
- Do NOT hallucinate or invent details
- If you cannot see or hear something clearly, say "Not clear" or "Not visible"
- Your analysis MUST be 100% based on what you actually observe in the video

# Task
I will provide you with a video file. You must:
1. **WATCH the video carefully from start to finish**
2. Analyze the visual, audio, and narrative structure
3. Extract the key elements that make it effective
4. Provide a structured breakdown and adaptation strategy for Lazada/Shopee

# Analysis Framework (The "Golden Structure")
You must extract the following data points with extreme precision:

1. **The Hook (0-3 Seconds):**
   - **Visual Trigger:** What EXACTLY is on screen in the first 3 seconds? Describe what you SEE.
   - **Audio Trigger:** What is the ACTUAL first sound you HEAR? (e.g., music, voice, sound effect)
   - **Text Overlay:** What text appears on screen? (If none, say "No text overlay")

2. **The Retention Strategy (3-10 Seconds):**
   - **Pain Point/Conflict:** What problem or situation does the video present? Be specific.
   - **Pacing:** Describe the editing speed (fast cuts vs. slow demonstration)

3. **The Product Reveal:**
   - **Timing:** At what timestamp (MM:SS) is the product FIRST clearly shown or mentioned?
   - **Product Description:** What is the ACTUAL product shown in the video?
   - **Selling Point:** What is the main benefit emphasized? Quote the exact words if spoken.

4. **The CTA (Call to Action):**
   - What EXACTLY does the creator say or show to drive action? Quote the exact words.
   - Is there a visual CTA (e.g., "yellow basket", "link in bio")?

5. **Overall Content Summary:**
   - In 2-3 sentences, describe what this video is ACTUALLY about
   - What is the main message or story?

# Output Format (JSON Only)
Please output your analysis strictly in the following JSON format:

{
  "video_content_summary": {
    "what_is_this_video_about": "String (2-3 sentence summary of the ACTUAL video content)",
    "primary_language": "String (language spoken in the video)",
    "estimated_sentiment": "Positive/Neutral/Shocking/Educational"
  },
  "structure_breakdown": {
    "hook_type": "String (e.g., Visual Shock / Verbal Question / Product Demo)",
    "hook_description": "String (Detailed description of what you SEE and HEAR in the first 3 seconds)",
    "hook_text_overlay": "String (Exact text shown, or 'No text overlay')",
    "pain_point_addressed": "String (The specific problem or need addressed)",
    "product_reveal_timestamp": "String (MM:SS)",
    "actual_product_shown": "String (Name or description of the ACTUAL product in the video)",
    "key_selling_proposition": "String (The main benefit emphasized)"
  },
  "creative_insight": {
    "why_it_works": "String (Brief analysis of consumer psychology used)",
    "visual_style": "String (e.g., UGC, Green Screen, High Production, POV, Talking Head)",
    "editing_pace": "Fast/Medium/Slow"
  },
  "lazada_adaptation_brief": {
    "remake_difficulty": "Low/Medium/High",
    "script_template": "String (A step-by-step shooting instruction based on the ACTUAL video structure: 1. Do this, 2. Say this, 3. Show this)",
    "localization_tip": "String (Advice for adapting this for SE Asia/Lazada context)"
  }
}

# Final Reminder
- WATCH THE VIDEO CAREFULLY
- Base your analysis ONLY on what you actually see and hear
- Do NOT invent or assume content
- If unsure, say "Not clear" rather than guessing`

// AnalysisTaskSuffix is appended to the analysis template for each request.
const AnalysisTaskSuffix = `

---

Now, please analyze the following video according to the framework above.
Return your analysis in valid JSON format.
`

// DefaultTranscriptionPrompt is the multimodal fallback used when no
// dedicated speech endpoint is configured. The model is held to the same
// transcript contract the speech client produces.
const DefaultTranscriptionPrompt = `Listen to the audio track and transcribe every spoken word.
Return ONLY a JSON object with this exact shape:

{
  "transcript": [
    {"timestamp": "MM:SS", "text": "what is said starting at that time"}
  ]
}

Rules:
- One entry per natural phrase or sentence, in chronological order.
- Timestamps are the start of the phrase, formatted MM:SS.
- Transcribe in the original spoken language, do not translate.
- If there is no speech at all, return {"transcript": []}.`

// AnalysisPrompt returns the configured template or the default, with a
// complete example output and the task suffix appended. Embedding a
// well-formed example JSON document (few-shot prompting) significantly
// improves how consistently the model sticks to the output contract.
func (c *Config) AnalysisPrompt() string {
	template := DefaultAnalysisPrompt
	if c.PromptTemplates.Analysis != "" {
		template = c.PromptTemplates.Analysis
	}
	example, _ := json.MarshalIndent(model.GetExampleReport(), "", "  ")
	return template + "\n\n# Example Output\n" + string(example) + "\n" + AnalysisTaskSuffix
}

// TranscriptionPrompt returns the configured fallback-transcription template
// or the default, with an example transcript appended.
func (c *Config) TranscriptionPrompt() string {
	template := DefaultTranscriptionPrompt
	if c.PromptTemplates.Transcription != "" {
		template = c.PromptTemplates.Transcription
	}
	example, _ := json.Marshal(model.GetExampleTranscript())
	return template + "\n\nExample output:\n" + string(example)
}
