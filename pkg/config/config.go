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

// Package config loads the gateway configuration.
//
// Configuration is read from a provider.Provider (file, consul, etcd or
// zookeeper), parsed as YAML or JSON, environment-expanded, decoded with
// mapstructure and validated. A missing config file is not an error: the
// gateway runs on defaults plus environment overrides.
package config

import (
	"fmt"

	"github.com/kadirpekel/mcpgateway/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig         `yaml:"server,omitempty"`
	Gateway       GatewayConfig        `yaml:"gateway,omitempty"`
	TaskStore     TaskStoreConfig      `yaml:"task_store,omitempty"`
	Logger        LoggerConfig         `yaml:"logger,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Gateway.SetDefaults()
	c.TaskStore.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
	if c.Observability.Tracing.ServiceVersion == "" {
		c.Observability.Tracing.ServiceVersion = c.Server.Version
	}
}

// Validate checks all sections.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.TaskStore.Validate(); err != nil {
		return fmt.Errorf("task_store: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}
