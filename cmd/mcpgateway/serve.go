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
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/mcpgateway/pkg/config"
	"github.com/kadirpekel/mcpgateway/pkg/logger"
	"github.com/kadirpekel/mcpgateway/pkg/observability"
	"github.com/kadirpekel/mcpgateway/pkg/server"
)

const observabilityShutdownTimeout = 5 * time.Second

// ServeCmd starts the gateway.
type ServeCmd struct {
	Host  string `help:"Host to bind (overrides config and MCP_GATEWAY_HOST)."`
	Port  int    `help:"Port to listen on (overrides config and MCP_GATEWAY_PORT)."`
	Watch bool   `help:"Watch the config source and apply log level changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}

	cleanup, err := setupLogger(cli, &cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tracer, err := observability.NewTracer(ctx, &cfg.Observability.Tracing)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	metrics, err := observability.NewMetrics(&cfg.Observability.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Tracer shutdown failed", "error", err)
		}
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics shutdown failed", "error", err)
		}
	}()

	srv, err := server.NewHTTPServer(ctx, cfg, server.WithObservability(tracer, metrics))
	if err != nil {
		return err
	}

	printStartup(cfg, srv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if c.Watch {
		if loader == nil {
			slog.Warn("Config watching needs --config, ignoring --watch")
		} else {
			loader.OnChange(func(next *config.Config) {
				c.reload(cli, cfg, next)
			})
			g.Go(func() error {
				return loader.Watch(gctx)
			})
		}
	}

	return g.Wait()
}

// applyOverrides applies the serve flags on top of the loaded config.
func (c *ServeCmd) applyOverrides(cfg *config.Config) error {
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// reload applies the log level of a changed config at runtime. Other
// changes only take effect after a restart.
func (c *ServeCmd) reload(cli *CLI, current, next *config.Config) {
	if err := c.applyOverrides(next); err != nil {
		slog.Error("Ignoring reloaded config", "error", err)
		return
	}

	settings := resolveLogSettings(cli, &next.Logger)
	if lvl, err := logger.ParseLevel(settings.level); err == nil {
		logger.SetLevel(lvl)
	}
	if settings.file != activeLog.file || settings.format != activeLog.format {
		slog.Warn("Log file and format changes require a restart")
	}

	for name, changed := range map[string]bool{
		"server":        !reflect.DeepEqual(current.Server, next.Server),
		"gateway":       !reflect.DeepEqual(current.Gateway, next.Gateway),
		"task_store":    !reflect.DeepEqual(current.TaskStore, next.TaskStore),
		"observability": !reflect.DeepEqual(current.Observability, next.Observability),
	} {
		if changed {
			slog.Warn("Config section changed, restart to apply", "section", name)
		}
	}
}

func printStartup(cfg *config.Config, srv *server.HTTPServer) {
	base := cfg.Server.URL()
	fmt.Printf("\nMCP gateway ready\n")
	fmt.Printf("   A2A JSON-RPC: %s\n", base)
	fmt.Printf("   Agent Card:   http://%s%s\n", srv.Address(), server.PathAgentCard)
	fmt.Printf("   Schema:       http://%s%s\n", srv.Address(), server.PathCommandSchema)
	fmt.Printf("   Health:       http://%s%s\n", srv.Address(), server.PathHealth)
	if cfg.TaskStore.IsSQL() {
		fmt.Printf("   Task store:   %s (%s)\n", cfg.TaskStore.Database.Driver, cfg.TaskStore.Database.Database)
	} else {
		fmt.Printf("   Task store:   in-memory (not persisted)\n")
	}
	if cfg.Observability.Tracing.Enabled {
		fmt.Printf("   Tracing:      %s (%s)\n", cfg.Observability.Tracing.Exporter, cfg.Observability.Tracing.Endpoint)
	}
	if cfg.Observability.Metrics.Enabled {
		fmt.Printf("   Metrics:      http://%s%s\n", srv.Address(), cfg.Observability.Metrics.Endpoint)
	}
	fmt.Println("\nPress Ctrl+C to stop")
}
