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

// Package model defines the core data structures for the analysis pipeline.
// This file provides hardcoded example instances used for few-shot prompting:
// embedding a concrete, well-formed example of the desired JSON output inside
// the prompt makes the model's responses far more consistent and parsable.
package model

// GetExampleReport returns a complete example analysis report in the exact
// shape the golden-structure prompt demands. It is serialized into the
// analysis prompt as the reference output.
func GetExampleReport() AnalysisReport {
	return AnalysisReport{
		SectionContentSummary: map[string]interface{}{
			"what_is_this_video_about": "A creator demonstrates a stain remover on a dirty couch and reveals a dramatic before/after result.",
			"primary_language":         "English",
			"estimated_sentiment":      "Positive",
		},
		SectionStructure: map[string]interface{}{
			"hook_type":                "Visual Shock",
			"hook_description":         "Split screen of a stained couch cushion next to a spotless one, fast zoom onto the stain.",
			"hook_text_overlay":        "WAIT FOR IT...",
			"pain_point_addressed":     "Set-in fabric stains that normal cleaners cannot remove",
			"product_reveal_timestamp": "00:05",
			"actual_product_shown":     "Foaming upholstery stain remover spray",
			"key_selling_proposition":  "Removes years-old stains in one pass",
		},
		SectionCreativeInsight: map[string]interface{}{
			"why_it_works": "The satisfying transformation visual keeps viewers watching for the payoff.",
			"visual_style": "UGC",
			"editing_pace": "Fast",
		},
		SectionAdaptationBrief: map[string]interface{}{
			"remake_difficulty": "Medium",
			"script_template":   "1. Close-up of the dirty surface 2. Apply the product with a satisfying sound 3. Wipe and reveal the clean result 4. Show price and CTA",
			"localization_tip":  "Emphasize cash-on-delivery and add local-language subtitles for SE Asia audiences.",
		},
	}
}

// GetExampleTranscript returns a short example transcript in the fixed JSON
// envelope used by the multimodal fallback transcriber prompt.
func GetExampleTranscript() *Transcript {
	return &Transcript{
		Segments: []TranscriptSegment{
			{Timestamp: "00:00", Text: "You will not believe what this spray just did to my couch."},
			{Timestamp: "00:07", Text: "One coat, wait ten seconds, and wipe."},
			{Timestamp: "00:15", Text: "Link is in the yellow basket below."},
		},
	}
}
