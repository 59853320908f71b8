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

// This file defines the command that strips the audio track out of the
// downloaded video with FFmpeg, downmixed to mono 16 kHz MP3, which is what
// speech-transcription endpoints expect and a fraction of the upload size
// of the full video.
package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
)

// Constants used for the FFmpeg command execution.
const (
	// DefaultAudioExtractArgs is a format string for the FFmpeg invocation.
	// -y: Overwrite output files without asking.
	// -hide_banner: Suppresses the FFmpeg banner.
	// -i %s: The input video file.
	// -vn: Drop the video stream.
	// -ac 1 -ar 16000: Downmix to one channel at 16 kHz.
	// -f mp3 %s: Force MP3 output at the given path.
	DefaultAudioExtractArgs = "-y -hide_banner -i %s -vn -ac 1 -ar 16000 -f mp3 %s"
	AudioTempFilePrefix     = "audio-extract-"
	CommandSeparator        = " "
)

// AudioExtract transcodes the local video into a speech-ready audio file.
type AudioExtract struct {
	cor.BaseCommand
	commandPath string // Path to the FFmpeg executable.
	tempDir     string
}

// NewAudioExtract is the constructor for the AudioExtract command.
func NewAudioExtract(name string, commandPath string, tempDir string) *AudioExtract {
	return &AudioExtract{BaseCommand: *cor.NewBaseCommand(name), commandPath: commandPath, tempDir: tempDir}
}

// GetAudioPathParameterName returns the canonical context key holding the
// extracted audio file path.
func GetAudioPathParameterName() string {
	return "__AUDIO_PATH__"
}

func (c *AudioExtract) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(c.GetInputParam()).(*model.LocalMediaHandle)
	return ok
}

// Execute runs FFmpeg and stores the audio path in the context. The output
// file is registered for cleanup before FFmpeg runs so a failed transcode
// never leaves a stray file behind.
func (c *AudioExtract) Execute(context cor.Context) {
	media := context.Get(c.GetInputParam()).(*model.LocalMediaHandle)

	tempFile, err := os.CreateTemp(c.tempDir, AudioTempFilePrefix)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	_ = tempFile.Close()
	context.AddTempFile(tempFile.Name())

	args := fmt.Sprintf(DefaultAudioExtractArgs, media.Path, tempFile.Name())
	cmd := exec.CommandContext(context.GetContext(), c.commandPath, strings.Split(args, CommandSeparator)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.TranscodeError{Stderr: stderr.String(), Err: err})
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAudioPathParameterName(), tempFile.Name())
	// Downstream upload commands consume media handles, so the audio file
	// is wrapped in one for the chain output.
	context.Add(c.GetOutputParam(), model.NewReadyMediaHandle(tempFile.Name(), "audio/mpeg"))
}
