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
	"encoding/json"
	"fmt"
	"math"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultTargetPath is appended to the target base URL when the command
// names no path and the executor has no configured default.
const DefaultTargetPath = "/messages/"

// Command keys carried by the first DataPart of an inbound message.
const (
	KeyTargetURL   = "mcp_target_url"
	KeyRequestPath = "mcp_request_path"
	KeyMethod      = "mcp_method"
	KeyParams      = "mcp_params"
	KeyRequestID   = "mcp_request_id"
)

// Unprefixed aliases accepted for the command keys.
var keyAliases = map[string]string{
	KeyTargetURL:   "target_base_url",
	KeyRequestPath: "target_path",
	KeyMethod:      "method",
	KeyParams:      "params",
	KeyRequestID:   "request_id",
}

// Command is the MCP call described by an inbound A2A message.
type Command struct {
	TargetBaseURL string         `json:"mcp_target_url" jsonschema:"description=Base URL of the MCP service,example=http://localhost:8001"`
	TargetPath    string         `json:"mcp_request_path,omitempty" jsonschema:"description=Path appended to the base URL,default=/messages/"`
	Method        string         `json:"mcp_method" jsonschema:"description=MCP JSON-RPC method,example=tools/call"`
	Params        map[string]any `json:"mcp_params" jsonschema:"description=MCP JSON-RPC params object"`

	// RequestID is nil, a string or an int64.
	RequestID any `json:"mcp_request_id,omitempty" jsonschema:"oneof_type=string;integer,description=Outbound JSON-RPC id (generated when absent)"`

	// defaultedPath marks a TargetPath filled in by Extract, which an
	// executor-level default may replace.
	defaultedPath bool
}

// Extract validates the command embedded in msg. Exactly one of the returned
// values is non-nil.
func Extract(msg *a2a.Message) (cmd *Command, verr *ValidationError) {
	defer func() {
		if r := recover(); r != nil {
			cmd = nil
			verr = &ValidationError{
				Code:    CodeInternalError,
				Message: fmt.Sprintf("internal error while extracting command: %v", r),
			}
		}
	}()

	if msg == nil || len(msg.Parts) == 0 {
		return nil, invalidRequest("message has no content parts")
	}

	data, ok := dataPayload(msg.Parts[0])
	if !ok {
		return nil, invalidRequest("first message part must be a data part")
	}
	if data == nil {
		return nil, invalidRequest("first message part must carry a data object")
	}

	cmd = &Command{}

	for _, key := range []string{KeyTargetURL, KeyMethod, KeyParams} {
		if _, found := lookup(data, key); !found {
			return nil, invalidParams(key, "missing required field %s", key)
		}
	}

	raw, _ := lookup(data, KeyTargetURL)
	if cmd.TargetBaseURL, ok = raw.(string); !ok || cmd.TargetBaseURL == "" {
		return nil, invalidParams(KeyTargetURL, "%s must be a non-empty string", KeyTargetURL)
	}

	raw, _ = lookup(data, KeyMethod)
	if cmd.Method, ok = raw.(string); !ok || cmd.Method == "" {
		return nil, invalidParams(KeyMethod, "%s must be a non-empty string", KeyMethod)
	}

	raw, _ = lookup(data, KeyParams)
	if cmd.Params, ok = raw.(map[string]any); !ok {
		return nil, invalidParams(KeyParams, "%s must be an object", KeyParams)
	}

	if raw, found := lookup(data, KeyRequestPath); found {
		if cmd.TargetPath, ok = raw.(string); !ok {
			return nil, invalidParams(KeyRequestPath, "%s must be a string", KeyRequestPath)
		}
	} else {
		cmd.TargetPath = DefaultTargetPath
		cmd.defaultedPath = true
	}

	if raw, found := lookup(data, KeyRequestID); found {
		id, err := normalizeID(raw)
		if err != nil {
			return nil, invalidParams(KeyRequestID, "%s %v", KeyRequestID, err)
		}
		cmd.RequestID = id
	}

	if verr := validateMethodParams(cmd.Method, cmd.Params); verr != nil {
		return nil, verr
	}

	return cmd, nil
}

func dataPayload(part a2a.Part) (map[string]any, bool) {
	switch p := part.(type) {
	case a2a.DataPart:
		return p.Data, true
	case *a2a.DataPart:
		if p == nil {
			return nil, true
		}
		return p.Data, true
	default:
		return nil, false
	}
}

// lookup reads a command key, preferring the mcp_ prefixed name over its alias.
func lookup(data map[string]any, key string) (any, bool) {
	if v, ok := data[key]; ok {
		return v, true
	}
	v, ok := data[keyAliases[key]]
	return v, ok
}

// normalizeID accepts a string or an integer, whatever numeric type the
// decoder produced for it.
func normalizeID(v any) (any, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case string:
		return id, nil
	case int:
		return int64(id), nil
	case int32:
		return int64(id), nil
	case int64:
		return id, nil
	case float64:
		if id != math.Trunc(id) || id >= math.MaxInt64 || id < math.MinInt64 {
			return nil, fmt.Errorf("must be a string or an int64 integer, got %v", id)
		}
		return int64(id), nil
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return nil, fmt.Errorf("must be a string or an integer, got %s", id)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("must be a string or an integer, got %T", v)
	}
}

// validateMethodParams checks the params shape of the MCP methods the gateway
// knows about. Other methods are forwarded as-is.
func validateMethodParams(method string, params map[string]any) *ValidationError {
	switch mcp.MCPMethod(method) {
	case mcp.MethodToolsCall:
		var p mcp.CallToolParams
		if err := remarshal(params, &p); err != nil {
			return invalidParams(KeyParams, "invalid %s params: %v", method, err)
		}
		if p.Name == "" {
			return invalidParams(KeyParams, "%s params require a tool name", method)
		}
		if args, ok := params["arguments"]; ok && args != nil {
			if _, isMap := args.(map[string]any); !isMap {
				return invalidParams(KeyParams, "%s arguments must be an object", method)
			}
		}
	case mcp.MethodResourcesRead:
		var p mcp.ReadResourceParams
		if err := remarshal(params, &p); err != nil {
			return invalidParams(KeyParams, "invalid %s params: %v", method, err)
		}
		if p.URI == "" {
			return invalidParams(KeyParams, "%s params require a resource uri", method)
		}
	}
	return nil
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
