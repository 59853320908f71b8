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
// This file holds the typed error taxonomy. Every pipeline stage raises one
// of these types so the orchestrator and the HTTP layer can classify failures
// with errors.As without string matching. Messages keep the original cause
// intact; nothing is swallowed on the way up.
package model

import (
	"fmt"
	"time"
)

// ConfigError reports a missing credential or other required setting. It is
// fatal and raised before any outbound call is attempted.
type ConfigError struct {
	Key string // The configuration key or environment variable that is missing.
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Key)
}

// ProviderError reports that the metadata scraping provider completed its job
// but yielded nothing usable. Fatal for the run.
type ProviderError struct {
	Provider string
	Reason   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s returned no usable result: %s", e.Provider, e.Reason)
}

// DownloadError reports a media acquisition failure, either a non-success
// HTTP status or a transport error. Fatal for the visual-analysis path.
type DownloadError struct {
	URL    string
	Status int // HTTP status code when applicable, 0 for transport failures.
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download failed for %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// TranscodeError reports a non-zero exit from the external transcoder. The
// captured stderr is kept for diagnostics. The pipeline treats this as
// recoverable: transcription is best-effort enrichment, never fatal.
type TranscodeError struct {
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed: %v: %s", e.Err, e.Stderr)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// RemoteProcessingError reports that the inference service moved an uploaded
// file to its terminal FAILED state. Fatal, not retried.
type RemoteProcessingError struct {
	FileName string
	Reason   string
}

func (e *RemoteProcessingError) Error() string {
	return fmt.Sprintf("remote processing failed for %s: %s", e.FileName, e.Reason)
}

// ProcessingTimeoutError reports that an uploaded file stayed in PROCESSING
// past the caller-supplied ceiling. The caller decides whether to re-run;
// the pipeline never retries automatically.
type ProcessingTimeoutError struct {
	FileName string
	Ceiling  time.Duration
}

func (e *ProcessingTimeoutError) Error() string {
	return fmt.Sprintf("remote processing of %s exceeded %s", e.FileName, e.Ceiling)
}

// MalformedResponseError reports that every coercion strategy failed to
// recover a structured record from the model's response. The raw text is
// preserved so the caller can surface it for manual inspection; silently
// substituting an empty report would be indistinguishable from a vacuous
// but successful analysis.
type MalformedResponseError struct {
	RawText string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("model response contains no recoverable JSON: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
