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

// Package cor_test contains unit tests for the Chain of Responsibility
// engine: context data and error handling, temp-file cleanup on Close, and
// the input/output piping between chained commands.
package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/zeebo/assert"
)

// appendCommand records the input it ran with and emits a fixed value for
// the next command. It is always executable so piping can be observed even
// with an empty input slot.
type appendCommand struct {
	cor.BaseCommand
	ran      bool
	sawInput interface{}
	emit     interface{}
	fail     error
}

func (c *appendCommand) IsExecutable(ctx cor.Context) bool {
	return ctx.GetContext() != nil
}

func (c *appendCommand) Execute(ctx cor.Context) {
	c.ran = true
	c.sawInput = ctx.Get(c.GetInputParam())
	if c.fail != nil {
		ctx.AddError(c.GetName(), c.fail)
		return
	}
	if c.emit != nil {
		ctx.Add(c.GetOutputParam(), c.emit)
	}
}

func newAppendCommand(name string, emit interface{}) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), emit: emit}
}

// TestContextDataAndErrors covers the basic data map and error aggregation
// behavior of the base context.
func TestContextDataAndErrors(t *testing.T) {
	c := cor.NewBaseContext()
	c.SetContext(context.Background())

	c.Add("key", "value")
	assert.Equal(t, "value", c.Get("key"))
	c.Remove("key")
	assert.Nil(t, c.Get("key"))

	assert.False(t, c.HasErrors())
	assert.NoError(t, c.FirstError())

	boom := errors.New("boom")
	c.AddError("step", boom)
	assert.True(t, c.HasErrors())
	assert.Equal(t, boom, c.FirstError())
	assert.Equal(t, 1, len(c.GetErrors()))
}

// TestContextCloseRemovesTempFiles verifies that Close deletes every
// registered temp file and tolerates files that are already gone.
func TestContextCloseRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.tmp")
	assert.NoError(t, os.WriteFile(present, []byte("x"), 0o600))
	missing := filepath.Join(dir, "missing.tmp")

	c := cor.NewBaseContext()
	c.AddTempFile(present)
	c.AddTempFile(missing)
	assert.Equal(t, 2, len(c.GetTempFiles()))

	c.Close()

	_, err := os.Stat(present)
	assert.True(t, os.IsNotExist(err))
}

// TestChainPipesOutputToInput verifies the core piping rule: each command's
// output value becomes the next command's input value, and a command that
// emits nothing clears the input slot.
func TestChainPipesOutputToInput(t *testing.T) {
	first := newAppendCommand("first", "from-first")
	second := newAppendCommand("second", nil)
	third := newAppendCommand("third", "from-third")

	chain := cor.NewBaseChain("pipe-test")
	chain.AddCommand(first)
	chain.AddCommand(second)
	chain.AddCommand(third)

	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	c.Add(cor.CtxIn, "seed")

	chain.Execute(c)

	assert.False(t, c.HasErrors())
	assert.Equal(t, "seed", first.sawInput)
	assert.Equal(t, "from-first", second.sawInput)
	// second emitted nothing, so third started with an empty input slot.
	assert.True(t, third.ran)
	assert.Nil(t, third.sawInput)
	assert.Equal(t, "from-third", c.Get(cor.CtxIn))
}

// TestChainStopsOnError verifies that a failing command halts the chain
// unless ContinueOnFailure is set.
func TestChainStopsOnError(t *testing.T) {
	failing := newAppendCommand("failing", nil)
	failing.fail = errors.New("broken step")
	after := newAppendCommand("after", nil)

	chain := cor.NewBaseChain("halt-test")
	chain.AddCommand(failing)
	chain.AddCommand(after)

	c := cor.NewBaseContext()
	c.SetContext(context.Background())
	chain.Execute(c)

	assert.True(t, c.HasErrors())
	assert.False(t, after.ran)

	// With ContinueOnFailure the trailing command still executes.
	resumed := newAppendCommand("resumed", nil)
	tolerant := cor.NewBaseChain("tolerant-test").ContinueOnFailure(true)
	tolerant.AddCommand(&appendCommand{BaseCommand: *cor.NewBaseCommand("failing"), fail: errors.New("broken step")})
	tolerant.AddCommand(resumed)

	c2 := cor.NewBaseContext()
	c2.SetContext(context.Background())
	tolerant.Execute(c2)

	assert.True(t, c2.HasErrors())
	assert.True(t, resumed.ran)
}

// TestContextProgressReporting verifies the progress callback plumbing,
// including the nil-callback no-op.
func TestContextProgressReporting(t *testing.T) {
	c := cor.NewBaseContext()
	// No callback set: must not panic.
	c.ReportProgress(10, "early")

	var gotPercent int
	var gotStage string
	c.SetProgress(func(percent int, stage string) {
		gotPercent = percent
		gotStage = stage
	})
	c.ReportProgress(50, "halfway")

	assert.Equal(t, 50, gotPercent)
	assert.Equal(t, "halfway", gotStage)
}
