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

package gateway

import (
	"github.com/invopop/jsonschema"
)

// CommandSchemaID identifies the published command schema.
const CommandSchemaID = "https://github.com/kadirpekel/mcpgateway/schema/command.json"

// CommandSchema returns the JSON Schema of the data part a caller sends to
// the gateway. Only the canonical mcp_ keys are described.
func CommandSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(&Command{})
	schema.ID = CommandSchemaID
	schema.Title = "MCP gateway command"
	schema.Description = "First data part of an A2A message forwarded by the gateway to an MCP service."
	return schema
}
