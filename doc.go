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

// Package mcpgateway is an A2A agent that forwards MCP JSON-RPC calls.
//
// An A2A client sends a task whose message carries a DataPart describing an
// MCP call:
//
//	{
//	  "mcp_target_url": "http://localhost:8001",
//	  "mcp_request_path": "/mcp",
//	  "mcp_method": "tools/call",
//	  "mcp_params": {"name": "echo", "arguments": {"content": "hi"}}
//	}
//
// The gateway posts the call to the MCP service, waits for the response and
// completes the task with the MCP result as a DataPart artifact. Validation
// and communication problems fail the task; JSON-RPC errors returned by the
// MCP service complete it with the error as the artifact.
//
// Start the gateway:
//
//	mcpgateway serve --config config.yaml
//
// See pkg/gateway for the forwarding pipeline and pkg/server for the HTTP
// surface.
package mcpgateway
