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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/mcpgateway/pkg/gateway"
	"github.com/kadirpekel/mcpgateway/pkg/httpclient"
	"github.com/kadirpekel/mcpgateway/pkg/transport"
)

// CallCmd sends one tasks/send request to a running gateway and prints the
// resulting task.
type CallCmd struct {
	Gateway   string        `help:"Gateway A2A endpoint." default:"http://localhost:8000/"`
	Target    string        `help:"Base URL of the MCP service." required:""`
	Path      string        `help:"Request path on the MCP service (empty = gateway default)."`
	Method    string        `help:"MCP method, e.g. tools/list or tools/call." required:""`
	Params    string        `help:"MCP params as a JSON object." default:"{}"`
	RequestID string        `name:"request-id" help:"Outbound JSON-RPC id (default: generated by the gateway)."`
	TaskID    string        `name:"task-id" help:"A2A task id (default: random UUID)."`
	Timeout   time.Duration `help:"Request timeout." default:"60s"`
}

type callReply struct {
	Result json.RawMessage   `json:"result"`
	Error  *gateway.RPCError `json:"error"`
}

func (c *CallCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *CallCmd) run(ctx context.Context, out io.Writer) error {
	req, err := c.request()
	if err != nil {
		return err
	}

	client, err := httpclient.New(httpclient.WithTimeout(c.Timeout))
	if err != nil {
		return err
	}
	resp, err := client.PostJSON(ctx, c.Gateway, req)
	if err != nil {
		return fmt.Errorf("gateway call failed: %w", err)
	}

	var reply callReply
	if err := json.Unmarshal(resp.Body, &reply); err != nil {
		return fmt.Errorf("invalid gateway response: %w", err)
	}

	if len(reply.Result) > 0 && string(reply.Result) != "null" {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, reply.Result, "", "  "); err != nil {
			return fmt.Errorf("invalid task in response: %w", err)
		}
		pretty.WriteByte('\n')
		if _, err := pretty.WriteTo(out); err != nil {
			return err
		}
	}
	if reply.Error != nil {
		return reply.Error
	}
	return nil
}

// request builds the tasks/send envelope carrying the MCP command.
func (c *CallCmd) request() (*transport.Request, error) {
	var params map[string]any
	if err := json.Unmarshal([]byte(c.Params), &params); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}

	command := map[string]any{
		gateway.KeyTargetURL: c.Target,
		gateway.KeyMethod:    c.Method,
		gateway.KeyParams:    params,
	}
	if c.Path != "" {
		command[gateway.KeyRequestPath] = c.Path
	}
	if c.RequestID != "" {
		command[gateway.KeyRequestID] = c.RequestID
	}

	taskID := c.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{Data: command})
	rawParams, err := json.Marshal(map[string]any{
		"id":        taskID,
		"sessionId": uuid.NewString(),
		"message":   msg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	return &transport.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"` + uuid.NewString() + `"`),
		Method:  transport.MethodTasksSend,
		Params:  rawParams,
	}, nil
}
