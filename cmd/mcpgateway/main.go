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

// Command mcpgateway runs the A2A to MCP gateway.
//
// Usage:
//
//	mcpgateway serve --config config.yaml
//	mcpgateway serve --port 9000 --watch -c config.yaml
//	mcpgateway call --target http://localhost:8001 --path /mcp --method tools/list
//	mcpgateway schema
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/mcpgateway"
	"github.com/kadirpekel/mcpgateway/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the gateway."`
	Call     CallCmd     `cmd:"" help:"Send one MCP call through a running gateway."`
	Schema   SchemaCmd   `cmd:"" help:"Print the JSON Schema of the command DataPart."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration."`

	Config          string   `short:"c" help:"Config path (file path or key for remote sources)."`
	ConfigSource    string   `name:"config-source" help:"Config source (file, consul, etcd, zookeeper)." default:"file" enum:"file,consul,etcd,zookeeper"`
	ConfigEndpoints []string `name:"config-endpoints" help:"Endpoints of a remote config source." sep:","`
	LogLevel        string   `help:"Log level (debug, info, warn, error)."`
	LogFile         string   `help:"Log file path (empty = stderr)."`
	LogFormat       string   `help:"Log format (simple, verbose, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(mcpgateway.GetVersion())
	return nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("mcpgateway"),
		kong.Description("A2A agent forwarding JSON-RPC calls to MCP services"),
		kong.UsageOnError(),
	)

	// Config file logger settings are applied later by commands that load
	// the config.
	cleanup, err := setupLogger(&cli, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
