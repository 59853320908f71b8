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

// This file defines the command that deletes the run's uploads from the
// inference file store. The store expires files on its own after two days,
// so deletion failures are logged and swallowed rather than failing a run
// that already has its report.
package commands

import (
	"log/slog"

	"github.com/ecom-insider/video-insider/internal/cloud"
	"github.com/ecom-insider/video-insider/internal/core/cor"
	"google.golang.org/genai"
)

// RemoteCleanup removes the uploaded media files from the file store.
type RemoteCleanup struct {
	cor.BaseCommand
	files cloud.FileService
}

// NewRemoteCleanup is the constructor for the RemoteCleanup command.
func NewRemoteCleanup(name string, files cloud.FileService) *RemoteCleanup {
	return &RemoteCleanup{BaseCommand: *cor.NewBaseCommand(name), files: files}
}

// Execute deletes whichever remote handles the run produced.
func (c *RemoteCleanup) Execute(context cor.Context) {
	ctx := context.GetContext()
	for _, key := range []string{GetRemoteFileParameterName(), GetRemoteAudioFileParameterName()} {
		remote, ok := context.Get(key).(*genai.File)
		if !ok {
			continue
		}
		if err := c.files.Delete(ctx, remote.Name); err != nil {
			slog.WarnContext(ctx, "failed to delete remote media file",
				slog.String("file", remote.Name), slog.Any("error", err))
			continue
		}
		context.Remove(key)
	}
	c.GetSuccessCounter().Add(ctx, 1)
}
