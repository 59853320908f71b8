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

// This file defines the command that uploads a local media file to the
// inference file store and waits for it to become usable.
//
// Logic Flow:
//  1. The local media handle is read from the context input parameter.
//  2. The file is uploaded through the FileService boundary.
//  3. **Crucial Step**: after the upload call the remote file sits in a
//     PROCESSING state and is not yet usable by the model. The command
//     polls its status at a fixed interval until it leaves that state or
//     the ceiling elapses.
//  4. An ACTIVE file handle goes into the context for the generation
//     command; FAILED and timeout become typed errors so callers can tell
//     "the service rejected this media" from "the service is slow today".
//
// The poll interval and ceiling are constructor arguments: video files get
// a 5s/300s schedule, the much smaller audio files 2s/120s.
package commands

import (
	"fmt"
	"time"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"google.golang.org/genai"
)

// Sleeper lets tests drive the polling loop without real waits. The
// default honors context cancellation.
type Sleeper func(context cor.Context, d time.Duration) error

func defaultSleeper(context cor.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-context.GetContext().Done():
		return context.GetContext().Err()
	case <-timer.C:
		return nil
	}
}

// MediaUpload pushes a local file into the inference file store and polls
// until the remote copy is ACTIVE.
type MediaUpload struct {
	cor.BaseCommand
	files        cloud.FileService
	pollInterval time.Duration
	ceiling      time.Duration
	sleep        Sleeper
	outputKey    string
}

// NewMediaUpload is the constructor for the MediaUpload command. outputKey
// names the context slot for the remote handle so the video and audio
// instances of this command do not clobber each other.
func NewMediaUpload(name string, files cloud.FileService, pollInterval time.Duration, ceiling time.Duration, outputKey string) *MediaUpload {
	return &MediaUpload{
		BaseCommand:  *cor.NewBaseCommand(name),
		files:        files,
		pollInterval: pollInterval,
		ceiling:      ceiling,
		sleep:        defaultSleeper,
		outputKey:    outputKey,
	}
}

// WithSleeper replaces the polling wait, for tests.
func (v *MediaUpload) WithSleeper(s Sleeper) *MediaUpload {
	v.sleep = s
	return v
}

// GetRemoteFileParameterName returns the canonical key for the uploaded
// video's remote handle.
func GetRemoteFileParameterName() string {
	return "__REMOTE_FILE__"
}

// GetRemoteAudioFileParameterName returns the canonical key for the
// uploaded audio's remote handle.
func GetRemoteAudioFileParameterName() string {
	return "__REMOTE_AUDIO_FILE__"
}

func (v *MediaUpload) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(v.GetInputParam()).(*model.LocalMediaHandle)
	return ok
}

// Execute uploads the file and runs the polling loop.
func (v *MediaUpload) Execute(context cor.Context) {
	media := context.Get(v.GetInputParam()).(*model.LocalMediaHandle)
	ctx := context.GetContext()

	context.ReportProgress(50, "uploading media for analysis")
	remote, err := v.files.Upload(ctx, media.Path, media.Path, media.MIMEType)
	if err != nil {
		v.GetErrorCounter().Add(ctx, 1)
		context.AddError(v.GetName(), fmt.Errorf("failed to upload media file: %w", err))
		return
	}
	media.MarkConsumed()
	// Register the remote handle before polling: the file exists in the
	// store from this point on, so the cleanup command must be able to
	// find it even when polling ends in a timeout or a FAILED state.
	context.Add(v.outputKey, remote)

	// === Polling Loop ===
	// The remote file is not usable immediately after the upload call;
	// wait for the service to finish processing it, up to the ceiling.
	// The budget is counted in poll attempts so the loop is deterministic.
	attempts := 0
	maxAttempts := int(v.ceiling / v.pollInterval)
	for remote.State == genai.FileStateProcessing {
		if attempts >= maxAttempts {
			v.GetErrorCounter().Add(ctx, 1)
			context.AddError(v.GetName(), &model.ProcessingTimeoutError{FileName: remote.Name, Ceiling: v.ceiling})
			return
		}
		attempts++
		if err := v.sleep(context, v.pollInterval); err != nil {
			v.GetErrorCounter().Add(ctx, 1)
			context.AddError(v.GetName(), err)
			return
		}
		if remote, err = v.files.Get(ctx, remote.Name); err != nil {
			v.GetErrorCounter().Add(ctx, 1)
			context.AddError(v.GetName(), fmt.Errorf("failed to get file status during processing: %w", err))
			return
		}
	}

	if remote.State == genai.FileStateFailed {
		v.GetErrorCounter().Add(ctx, 1)
		context.AddError(v.GetName(), &model.RemoteProcessingError{FileName: remote.Name, Reason: "file store reported FAILED state"})
		return
	}

	context.ReportProgress(60, "media processed by model service")
	v.GetSuccessCounter().Add(ctx, 1)
	context.Add(v.outputKey, remote)
	context.Add(v.GetOutputParam(), remote)
}
