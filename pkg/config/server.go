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
	"net"
	"strconv"
	"time"
)

// ServerConfig configures the A2A HTTP server and its agent card.
//
// Example:
//
//	server:
//	  host: 0.0.0.0
//	  port: 8000
//	  public_url: https://gateway.example.com/
type ServerConfig struct {
	// Host to bind. Overridden by MCP_GATEWAY_HOST.
	// Default: localhost
	Host string `yaml:"host,omitempty"`

	// Port to bind. Overridden by MCP_GATEWAY_PORT.
	// Default: 8000
	Port int `yaml:"port,omitempty"`

	// PublicURL is advertised in the agent card.
	// Default: http://{host}:{port}/
	PublicURL string `yaml:"public_url,omitempty"`

	// Version is advertised in the agent card.
	// Default: 0.1.0
	Version string `yaml:"version,omitempty"`

	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`

	// CORSOrigins lists allowed origins. Default: ["*"]
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// SetDefaults applies default values to ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	return nil
}

// Address returns host:port.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the URL advertised in the agent card.
func (c *ServerConfig) URL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return fmt.Sprintf("http://%s/", c.Address())
}

// GatewayConfig configures outbound MCP calls.
type GatewayConfig struct {
	// DefaultPath is used when a command carries no request path.
	// Default: /messages/
	DefaultPath string `yaml:"default_path,omitempty"`

	// Timeout bounds one outbound call.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxResponseBytes caps the MCP response body.
	// Default: 10 MiB
	MaxResponseBytes int64 `yaml:"max_response_bytes,omitempty"`

	// TLS configures verification of MCP service certificates.
	TLS TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig configures outbound TLS.
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
	CACertificate      string `yaml:"ca_certificate,omitempty"`
}

// SetDefaults applies default values to GatewayConfig.
func (c *GatewayConfig) SetDefaults() {
	if c.DefaultPath == "" {
		c.DefaultPath = "/messages/"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = 10 << 20
	}
}

// Validate checks the gateway configuration.
func (c *GatewayConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.MaxResponseBytes < 0 {
		return fmt.Errorf("max_response_bytes must be non-negative")
	}
	return nil
}

// TaskStoreConfig selects the task store backend.
//
// Example:
//
//	task_store:
//	  backend: sql
//	  database:
//	    driver: sqlite
//	    database: ./mcpgateway.db
type TaskStoreConfig struct {
	// Backend is "memory" or "sql". Default: memory
	Backend string `yaml:"backend,omitempty"`

	// Database is required for the sql backend.
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// SetDefaults applies default values to TaskStoreConfig.
func (c *TaskStoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Database != nil {
		c.Database.SetDefaults()
	}
}

// Validate checks the task store configuration.
func (c *TaskStoreConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "sql":
		if c.Database == nil {
			return fmt.Errorf("database is required for the sql backend")
		}
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid backend %q (valid: memory, sql)", c.Backend)
	}
}

// IsSQL reports whether tasks are persisted in SQL.
func (c *TaskStoreConfig) IsSQL() bool {
	return c.Backend == "sql"
}
