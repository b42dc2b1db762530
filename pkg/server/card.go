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

package server

import (
	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/mcpgateway/pkg/config"
)

// Agent card values advertised by the gateway.
const (
	AgentName        = "MCP Gateway Agent"
	AgentDescription = "A generic A2A agent acting as a gateway to forward requests to any MCP-compliant service and receive its responses."

	SkillID          = "execute_mcp_json_rpc"
	SkillName        = "Execute MCP JSON-RPC Method"
	SkillDescription = "Forwards the MCP JSON-RPC call described by the message DataPart (mcp_target_url, mcp_method, mcp_params) and returns the MCP response as a task artifact."

	ProviderOrg = "THINKER-ONLY"
	ProviderURL = "https://github.com/THINKER-ONLY"

	// ModeData is the only input and output mode: commands and results are
	// exchanged as DataParts.
	ModeData = "data"
)

// BuildAgentCard describes the gateway for A2A discovery.
func BuildAgentCard(cfg *config.ServerConfig) *a2a.AgentCard {
	modes := []string{ModeData}

	return &a2a.AgentCard{
		Name:               AgentName,
		Description:        AgentDescription,
		URL:                cfg.URL(),
		Version:            cfg.Version,
		ProtocolVersion:    "0.2.5",
		DefaultInputModes:  modes,
		DefaultOutputModes: modes,
		Capabilities: a2a.AgentCapabilities{
			Streaming:         false,
			PushNotifications: false,
		},
		Skills: []a2a.AgentSkill{{
			ID:          SkillID,
			Name:        SkillName,
			Description: SkillDescription,
			Tags:        []string{"mcp", "json-rpc", "gateway"},
			InputModes:  modes,
			OutputModes: modes,
		}},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Provider: &a2a.AgentProvider{
			Org: ProviderOrg,
			URL: ProviderURL,
		},
	}
}
