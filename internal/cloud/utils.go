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

// Package cloud holds configuration and external-service clients. This file
// implements the hierarchical configuration loader: a base .env.toml is read
// first, then an environment-specific .env.<runtime>.toml overwrites it, and
// finally missing credentials are resolved from the process environment
// (after an optional .env file is loaded via godotenv). The loader is the
// only place in the program that touches ambient state.
package cloud

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "VI_CONFIG_PREFIX" // Directory holding the TOML config files.
	EnvConfigRuntime    = "VI_RUNTIME"       // Runtime name, e.g. "local", "test", "prod".

	EnvApifyToken   = "APIFY_API_TOKEN"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvGeminiBase   = "GEMINI_API_BASE"
	EnvSpeechAPIKey = "SPEECH_API_KEY"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig from the base TOML file, then overlays the
// environment-specific file, then resolves credentials from the environment.
func LoadConfig(baseConfig *Config) {
	// Secrets may live in a local .env file during development. Absence is
	// normal in deployed environments.
	_ = godotenv.Load()

	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "local"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			slog.Error("failed to decode base configuration file", "file", baseConfigFileName, "error", err)
			os.Exit(1)
		}
	}

	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			slog.Error("failed to decode environment configuration file", "file", envConfigFileName, "error", err)
			os.Exit(1)
		}
	}

	resolveSecrets(baseConfig)

	if baseConfig.Application.TempDir == "" {
		baseConfig.Application.TempDir = os.TempDir()
	}
}

// resolveSecrets fills credential fields left empty by the TOML files from
// the process environment. Components never read these variables themselves.
func resolveSecrets(config *Config) {
	if config.Apify.APIToken == "" {
		config.Apify.APIToken = os.Getenv(EnvApifyToken)
	}
	if config.GenAI.APIKey == "" {
		config.GenAI.APIKey = os.Getenv(EnvGeminiKey)
	}
	if config.GenAI.APIBase == "" {
		config.GenAI.APIBase = os.Getenv(EnvGeminiBase)
	}
	if config.Speech.APIKey == "" {
		config.Speech.APIKey = os.Getenv(EnvSpeechAPIKey)
	}
}
