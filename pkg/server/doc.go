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

// Package server exposes the gateway over HTTP.
//
// HTTPServer wires the task store, the MCP executor and the lifecycle
// coordinator behind a go-chi router:
//
//	POST /                              A2A JSON-RPC
//	GET  /.well-known/agent.json        agent card
//	GET  /.well-known/agent-card.json   agent card
//	GET  /schema/command.json           JSON Schema of the command DataPart
//	GET  /health                        liveness
//	GET  /metrics                       Prometheus exposition, when enabled
package server
