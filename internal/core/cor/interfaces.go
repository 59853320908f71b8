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

// Package cor (Chain of Responsibility) provides the building blocks for the
// analysis pipeline: atomic commands, chains that sequence them, and a shared
// context that carries data, errors, temporary-file ownership, and progress
// checkpoints through a single run.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys that drive data piping inside a chain: the
// value a command stores under CtxOut becomes the next command's CtxIn.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// ProgressFunc receives coarse pipeline checkpoints: a percentage and a
// human-readable stage label. The presentation layer renders them; the
// pipeline owns no UI concerns.
type ProgressFunc func(percent int, stage string)

// Context is the shared state object passed through a chain of commands.
// Implementations must be safe for concurrent use: the transcription
// enrichment path runs alongside the visual-analysis path on the same
// context.
type Context interface {
	// SetContext installs the Go context used for cancellation and tracing.
	SetContext(ctx context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a key-value pair, returning the Context for chaining.
	Add(key string, value interface{}) Context

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// AddError records an error keyed by the command that produced it.
	AddError(key string, err error)

	// GetErrors returns all recorded errors.
	GetErrors() map[string]error

	// FirstError returns one recorded error, or nil. Typed pipeline errors
	// survive the trip so callers can classify them with errors.As.
	FirstError() error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile registers a file for deletion when the context closes.
	// The context is the single owner of every temporary artifact a run
	// creates; registration here is what guarantees cleanup on all paths.
	AddTempFile(file string)

	// GetTempFiles returns the registered temporary file paths.
	GetTempFiles() []string

	// SetProgress installs the progress callback. A nil callback disables
	// reporting.
	SetProgress(fn ProgressFunc)

	// ReportProgress emits a checkpoint through the installed callback.
	ReportProgress(percent int, stage string)

	// Close deletes every registered temporary file. Callers defer it at
	// the start of a run so cleanup happens on success and failure alike.
	Close()
}

// Executable is anything with a single unit of business logic.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, individually traceable unit of pipeline work.
type Command interface {
	Executable

	// GetName returns the command's unique name for logs and telemetry.
	GetName() string

	// GetInputParam returns the context key holding the command's input.
	GetInputParam() string

	// GetOutputParam returns the context key receiving the command's output.
	GetOutputParam() string

	// IsExecutable reports whether the context satisfies the command's
	// preconditions.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter counts successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter counts failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain sequences commands. A Chain is itself a Command, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps executing after a
	// command records an error. Default is to stop at the first failure.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
