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

// Package transport exposes the gateway over A2A JSON-RPC 2.0.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/mcpgateway/pkg/gateway"
)

// A2A JSON-RPC methods.
const (
	MethodTasksSend          = "tasks/send"
	MethodTasksGet           = "tasks/get"
	MethodTasksCancel        = "tasks/cancel"
	MethodTasksSendSubscribe = "tasks/sendSubscribe"
	MethodTasksResubscribe   = "tasks/resubscribe"
	MethodMessageSend        = "message/send"
	MethodMessageStream      = "message/stream"
)

// DefaultMaxBodyBytes bounds the size of an inbound request.
const DefaultMaxBodyBytes = 4 << 20

// TaskService is the task API served over JSON-RPC.
// *gateway.Coordinator implements it.
type TaskService interface {
	SendTask(ctx context.Context, p gateway.SendTaskParams) (*a2a.Task, *gateway.RPCError)
	GetTask(ctx context.Context, id a2a.TaskID) (*a2a.Task, *gateway.RPCError)
	CancelTask(ctx context.Context, id a2a.TaskID) (*a2a.Task, *gateway.RPCError)
	Subscribe(ctx context.Context, p gateway.SendTaskParams) *gateway.RPCError
	Resubscribe(ctx context.Context, id a2a.TaskID) *gateway.RPCError
}

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response. Result and Error may both be set:
// a failed task is returned together with the error that failed it.
type Response struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Result  any               `json:"result,omitempty"`
	Error   *gateway.RPCError `json:"error,omitempty"`
}

type sendTaskParams struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Message   *wireMessage   `json:"message"`
	Metadata  map[string]any `json:"metadata"`
}

type sendMessageParams struct {
	Message  *wireMessage   `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

type taskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength *int   `json:"historyLength,omitempty"`
}

// JSONRPCHandler serves A2A JSON-RPC requests on a single endpoint.
type JSONRPCHandler struct {
	service      TaskService
	maxBodyBytes int64
	newID        func() string
}

// HandlerOption configures a JSONRPCHandler.
type HandlerOption func(*JSONRPCHandler)

// WithMaxBodyBytes bounds the request body size.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *JSONRPCHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithTaskIDGenerator replaces the generator of task and session ids.
func WithTaskIDGenerator(fn func() string) HandlerOption {
	return func(h *JSONRPCHandler) {
		h.newID = fn
	}
}

// NewJSONRPCHandler creates a handler dispatching to service.
func NewJSONRPCHandler(service TaskService, opts ...HandlerOption) *JSONRPCHandler {
	h := &JSONRPCHandler{
		service:      service,
		maxBodyBytes: DefaultMaxBodyBytes,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.write(w, Response{Error: gateway.NewRPCError(gateway.CodeInvalidRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))})
			return
		}
		h.write(w, Response{Error: gateway.NewRPCError(gateway.CodeParseError, "failed to read request body")})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		if json.Valid(body) {
			h.write(w, Response{Error: gateway.NewRPCError(gateway.CodeInvalidRequest, "request must be a JSON object")})
			return
		}
		h.write(w, Response{Error: gateway.NewRPCError(gateway.CodeParseError, "invalid JSON")})
		return
	}
	if req.JSONRPC != "2.0" {
		h.write(w, Response{ID: req.ID, Error: gateway.NewRPCError(gateway.CodeInvalidRequest, "invalid JSON-RPC version")})
		return
	}
	if req.Method == "" {
		h.write(w, Response{ID: req.ID, Error: gateway.NewRPCError(gateway.CodeInvalidRequest, "method is required")})
		return
	}

	slog.Debug("JSON-RPC request", "method", req.Method, "id", string(req.ID))

	resp := h.dispatch(r.Context(), &req)
	resp.ID = req.ID
	h.write(w, resp)
}

func (h *JSONRPCHandler) dispatch(ctx context.Context, req *Request) Response {
	switch req.Method {
	case MethodTasksSend:
		var p sendTaskParams
		if rpcErr := decodeParams(req.Params, &p); rpcErr != nil {
			return Response{Error: rpcErr}
		}
		params, rpcErr := h.sendParams(p.ID, p.SessionID, p.Message, p.Metadata)
		if rpcErr != nil {
			return Response{Error: rpcErr}
		}
		return taskResponse(h.service.SendTask(ctx, params))

	case MethodMessageSend:
		var p sendMessageParams
		if rpcErr := decodeParams(req.Params, &p); rpcErr != nil {
			return Response{Error: rpcErr}
		}
		if p.Message == nil {
			return Response{Error: invalidParams("message is required")}
		}
		params, rpcErr := h.sendParams(p.Message.TaskID, p.Message.ContextID, p.Message, p.Metadata)
		if rpcErr != nil {
			return Response{Error: rpcErr}
		}
		return taskResponse(h.service.SendTask(ctx, params))

	case MethodTasksGet:
		var p taskQueryParams
		if rpcErr := decodeTaskQuery(req.Params, &p); rpcErr != nil {
			return Response{Error: rpcErr}
		}
		t, rpcErr := h.service.GetTask(ctx, a2a.TaskID(p.ID))
		if t != nil && p.HistoryLength != nil {
			t = trimHistory(t, *p.HistoryLength)
		}
		return taskResponse(t, rpcErr)

	case MethodTasksCancel:
		var p taskQueryParams
		if rpcErr := decodeTaskQuery(req.Params, &p); rpcErr != nil {
			return Response{Error: rpcErr}
		}
		return taskResponse(h.service.CancelTask(ctx, a2a.TaskID(p.ID)))

	case MethodTasksSendSubscribe, MethodMessageStream:
		return Response{Error: h.service.Subscribe(ctx, gateway.SendTaskParams{})}

	case MethodTasksResubscribe:
		return Response{Error: h.service.Resubscribe(ctx, "")}

	default:
		return Response{Error: gateway.NewRPCError(gateway.CodeMethodNotFound, "method not found: "+req.Method)}
	}
}

// sendParams resolves the message and fills in missing task or session ids.
func (h *JSONRPCHandler) sendParams(id, sessionID string, wm *wireMessage, metadata map[string]any) (gateway.SendTaskParams, *gateway.RPCError) {
	msg, err := wm.toMessage()
	if err != nil {
		return gateway.SendTaskParams{}, invalidParams("invalid message: " + err.Error())
	}
	if id == "" {
		id = h.newID()
	}
	if sessionID == "" {
		sessionID = h.newID()
	}
	return gateway.SendTaskParams{
		ID:        a2a.TaskID(id),
		SessionID: sessionID,
		Message:   msg,
		Metadata:  metadata,
	}, nil
}

func taskResponse(t *a2a.Task, rpcErr *gateway.RPCError) Response {
	resp := Response{Error: rpcErr}
	if t != nil {
		resp.Result = t
	}
	return resp
}

func decodeParams(raw json.RawMessage, v any) *gateway.RPCError {
	if len(raw) == 0 {
		return invalidParams("params are required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams("invalid params: " + err.Error())
	}
	return nil
}

func decodeTaskQuery(raw json.RawMessage, p *taskQueryParams) *gateway.RPCError {
	if rpcErr := decodeParams(raw, p); rpcErr != nil {
		return rpcErr
	}
	if p.ID == "" {
		return invalidParams("task id is required")
	}
	return nil
}

func invalidParams(msg string) *gateway.RPCError {
	return gateway.NewRPCError(gateway.CodeInvalidParams, msg)
}

// trimHistory keeps the last n history entries of a copy of t.
func trimHistory(t *a2a.Task, n int) *a2a.Task {
	if n < 0 || n >= len(t.History) {
		return t
	}
	c := *t
	c.History = t.History[len(t.History)-n:]
	return &c
}

func (h *JSONRPCHandler) write(w http.ResponseWriter, resp Response) {
	resp.JSONRPC = "2.0"
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write JSON-RPC response", "error", err)
	}
}
