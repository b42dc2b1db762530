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
	"context"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/mcpgateway/pkg/config"
	"github.com/kadirpekel/mcpgateway/pkg/config/provider"
)

// loadConfig loads the configuration named by the global flags. Without
// --config the gateway runs on defaults plus environment overrides and the
// returned Loader is nil.
func loadConfig(ctx context.Context, cli *CLI) (*config.Config, *config.Loader, error) {
	source, err := provider.ParseType(cli.ConfigSource)
	if err != nil {
		return nil, nil, err
	}

	cfg, loader, err := config.Load(ctx, provider.ProviderConfig{
		Type:      source,
		Path:      cli.Config,
		Endpoints: cli.ConfigEndpoints,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cli.Config == "" {
		slog.Info("Using zero-config mode")
	} else {
		slog.Info("Loaded configuration", "source", source, "path", cli.Config)
	}
	return cfg, loader, nil
}

// ValidateCmd loads and validates the configuration.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, loader, err := loadConfig(context.Background(), cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	fmt.Printf("Configuration is valid (listen %s, task store %s)\n", cfg.Server.Address(), cfg.TaskStore.Backend)
	return nil
}
