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

// Command mcp-mock is a minimal MCP service for trying the gateway locally.
//
// It serves the streamable HTTP transport in stateless mode, so a single
// JSON-RPC POST per call is enough:
//
//	mcp-mock --addr :8001
//	mcpgateway call --target http://localhost:8001 --path /mcp --method tools/call \
//	    --params '{"name":"echo","arguments":{"content":"hello"}}'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kadirpekel/mcpgateway"
	"github.com/kadirpekel/mcpgateway/pkg/logger"
)

const statusURI = "mock://status"

type CLI struct {
	Addr     string `help:"Address to listen on." default:":8001"`
	Path     string `help:"Endpoint path." default:"/mcp"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Name("mcp-mock"), kong.Description("Mock MCP service"))

	lvl, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	logger.Init(lvl, os.Stderr, logger.FormatSimple)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cli); err != nil {
		slog.Error("mcp-mock failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cli CLI) error {
	srv := &http.Server{
		Addr:              cli.Addr,
		Handler:           newHandler(cli.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Mock MCP service listening", "address", cli.Addr, "path", cli.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newHandler serves the mock over stateless streamable HTTP at path.
func newHandler(path string) http.Handler {
	return server.NewStreamableHTTPServer(newMCPServer(),
		server.WithStateLess(true),
		server.WithEndpointPath(path),
	)
}

func newMCPServer() *server.MCPServer {
	s := server.NewMCPServer("mcp-mock", mcpgateway.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.AddTool(mcp.NewTool("echo",
		mcp.WithDescription("Returns its content argument"),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text to echo")),
	), handleEcho)

	s.AddTool(mcp.NewTool("add",
		mcp.WithDescription("Adds two numbers"),
		mcp.WithNumber("a", mcp.Required()),
		mcp.WithNumber("b", mcp.Required()),
	), handleAdd)

	s.AddResource(mcp.NewResource(statusURI, "status",
		mcp.WithResourceDescription("Health of the mock service"),
		mcp.WithMIMEType("application/json"),
	), handleStatus)

	return s
}

func handleEcho(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slog.Debug("echo", "content", content)
	return mcp.NewToolResultText(content), nil
}

func handleAdd(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := req.RequireFloat("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := req.RequireFloat("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructured(map[string]any{"sum": a + b}, formatNumber(a+b)), nil
}

func handleStatus(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	body, err := json.Marshal(map[string]any{"status": "ok", "version": mcpgateway.Version})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}, nil
}

func formatNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
