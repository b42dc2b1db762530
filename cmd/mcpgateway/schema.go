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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/mcpgateway/pkg/config"
	"github.com/kadirpekel/mcpgateway/pkg/gateway"
)

// SchemaCmd prints a JSON Schema to stdout.
type SchemaCmd struct {
	Compact      bool `help:"Compact JSON output (no indentation)."`
	ConfigSchema bool `name:"config-schema" help:"Print the configuration file schema instead of the command schema."`
}

func (c *SchemaCmd) Run() error {
	return c.write(os.Stdout)
}

func (c *SchemaCmd) write(out io.Writer) error {
	schema := gateway.CommandSchema()
	if c.ConfigSchema {
		schema = configSchema()
	}

	encoder := json.NewEncoder(out)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

func configSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		FieldNameTag:   "yaml",
		DoNotReference: true,
	}
	schema := reflector.Reflect(&config.Config{})
	schema.ID = "https://github.com/kadirpekel/mcpgateway/schema/config.json"
	schema.Title = "MCP Gateway Configuration"
	return schema
}
