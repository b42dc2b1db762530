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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kadirpekel/mcpgateway/pkg/config"
	"github.com/kadirpekel/mcpgateway/pkg/logger"
)

// logSettings is the resolved logger configuration.
type logSettings struct {
	level  string
	file   string
	format string
}

var activeLog logSettings

// resolveLogSettings picks each setting from the first source that sets it:
// CLI flag, environment, config file, default. cfg may be nil before the
// config is loaded.
func resolveLogSettings(cli *CLI, cfg *config.LoggerConfig) logSettings {
	var fromCfg config.LoggerConfig
	if cfg != nil {
		fromCfg = *cfg
	}
	return logSettings{
		level:  firstNonEmpty(cli.LogLevel, os.Getenv(config.EnvLogLevel), fromCfg.Level, "info"),
		file:   firstNonEmpty(cli.LogFile, os.Getenv(config.EnvLogFile), fromCfg.File),
		format: firstNonEmpty(cli.LogFormat, os.Getenv(config.EnvLogFormat), fromCfg.Format, logger.FormatSimple),
	}
}

// setupLogger installs the default logger. The returned cleanup closes the
// log file, if any. Nothing is rebuilt when the settings did not change.
func setupLogger(cli *CLI, cfg *config.LoggerConfig) (func(), error) {
	s := resolveLogSettings(cli, cfg)
	if s == activeLog {
		return func() {}, nil
	}

	lvl, err := logger.ParseLevel(s.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer = os.Stderr
	cleanup := func() {}
	if s.file != "" {
		file, closeFile, err := logger.OpenLogFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = closeFile
	}

	logger.Init(lvl, output, s.format)
	activeLog = s
	return cleanup, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
