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
	"context"

	"google.golang.org/genai"
)

// FileService is the narrow slice of the inference file store the pipeline
// needs: upload a local file, poll its processing state, delete it when the
// run is over. The production implementation delegates to the genai client;
// tests use a scripted fake so the upload/poll commands can be exercised
// without network access.
type FileService interface {
	Upload(ctx context.Context, path string, displayName string, mimeType string) (*genai.File, error)
	Get(ctx context.Context, name string) (*genai.File, error)
	Delete(ctx context.Context, name string) error
}

// GenAIFileService backs FileService with the real file store.
type GenAIFileService struct {
	client *genai.Client
}

func NewGenAIFileService(client *genai.Client) *GenAIFileService {
	return &GenAIFileService{client: client}
}

func (s *GenAIFileService) Upload(ctx context.Context, path string, displayName string, mimeType string) (*genai.File, error) {
	return s.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		DisplayName: displayName,
		MIMEType:    mimeType,
	})
}

func (s *GenAIFileService) Get(ctx context.Context, name string) (*genai.File, error) {
	return s.client.Files.Get(ctx, name, &genai.GetFileConfig{})
}

func (s *GenAIFileService) Delete(ctx context.Context, name string) error {
	_, err := s.client.Files.Delete(ctx, name, &genai.DeleteFileConfig{})
	return err
}
