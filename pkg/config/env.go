// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by the gateway.
const (
	EnvHost      = "MCP_GATEWAY_HOST"
	EnvPort      = "MCP_GATEWAY_PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFile   = "LOG_FILE"
	EnvLogFormat = "LOG_FORMAT"
)

// DotEnvFiles are loaded in order; earlier files win because godotenv never
// overrides a variable that is already set.
var DotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads .env files from the working directory. Missing files are
// skipped.
func LoadDotEnv() error {
	for _, file := range DotEnvFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
		slog.Debug("Loaded environment file", "file", file)
	}
	return nil
}

// ApplyEnv overrides config values with the gateway environment variables.
func (c *Config) ApplyEnv() error {
	if host := os.Getenv(EnvHost); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv(EnvPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, port, err)
		}
		c.Server.Port = n
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logger.Level = level
	}
	if file := os.Getenv(EnvLogFile); file != "" {
		c.Logger.File = file
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		c.Logger.Format = format
	}
	return nil
}
