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
	"fmt"
	"slices"

	"github.com/kadirpekel/mcpgateway/pkg/logger"
)

var logFormats = []string{logger.FormatSimple, logger.FormatVerbose, logger.FormatJSON}

// LoggerConfig is the logger section. The CLI flags and the LOG_LEVEL,
// LOG_FILE and LOG_FORMAT variables take precedence over it. An empty File
// logs to stderr.
type LoggerConfig struct {
	Level  string `yaml:"level,omitempty"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"`
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = logger.FormatSimple
	}
}

func (c *LoggerConfig) Validate() error {
	if _, err := logger.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if !slices.Contains(logFormats, c.Format) {
		return fmt.Errorf("invalid format %q, expected one of %v", c.Format, logFormats)
	}
	return nil
}
