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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/mcpgateway/pkg/httpclient"
)

const (
	// DefaultCallTimeout bounds a single outbound MCP call.
	DefaultCallTimeout = 30 * time.Second

	// MalformedResponseMessage is the failure message for a 2xx response
	// whose body is not JSON.
	MalformedResponseMessage = "malformed response body"

	// NonDictResultKey wraps a JSON-RPC result that is not an object.
	NonDictResultKey = "non_dict_result"

	tracerName = "github.com/kadirpekel/mcpgateway/pkg/gateway"
)

// Call outcomes reported to a CallRecorder.
const (
	OutcomeSuccess     = "success"
	OutcomeRemoteError = "remote_error"
	OutcomeFailure     = "failure"
)

// OutboundRequest is the JSON-RPC 2.0 request sent to the MCP service.
type OutboundRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// Result is the outcome of one outbound call: either Success or Failure.
type Result interface {
	isResult()
}

// Success carries the payload of a call that produced a response.
type Success struct {
	Payload map[string]any
	// RequestID is the id sent in the outbound request.
	RequestID any
}

// Failure describes a call that did not produce a usable result.
type Failure struct {
	Code    int
	Message string
	Data    any
	// Remote is set when the MCP service answered with a well-formed
	// JSON-RPC error object.
	Remote bool
	// RequestID is the id sent in the outbound request.
	RequestID any
}

func (Success) isResult() {}
func (Failure) isResult() {}

func (f Failure) Error() string {
	return fmt.Sprintf("mcp call failed (%d): %s", f.Code, f.Message)
}

// CallRecorder receives one observation per outbound call.
type CallRecorder interface {
	RecordCall(ctx context.Context, method, outcome string, duration time.Duration)
}

// Caller performs outbound MCP calls. *Executor is the production Caller.
type Caller interface {
	Execute(ctx context.Context, cmd *Command) Result
}

// Executor sends commands to MCP services over HTTP.
type Executor struct {
	client      *httpclient.Client
	timeout     time.Duration
	defaultPath string
	newID       func() string
	tracer      trace.Tracer
	recorder    CallRecorder
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClient sets the HTTP client used for outbound calls.
func WithClient(client *httpclient.Client) ExecutorOption {
	return func(e *Executor) {
		e.client = client
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithDefaultPath sets the path used for commands that carry none.
func WithDefaultPath(path string) ExecutorOption {
	return func(e *Executor) {
		if path != "" {
			e.defaultPath = path
		}
	}
}

// WithIDGenerator replaces the generator used for outbound ids.
func WithIDGenerator(fn func() string) ExecutorOption {
	return func(e *Executor) {
		e.newID = fn
	}
}

// WithCallRecorder reports every call to r.
func WithCallRecorder(r CallRecorder) ExecutorOption {
	return func(e *Executor) {
		e.recorder = r
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) (*Executor, error) {
	e := &Executor{
		timeout:     DefaultCallTimeout,
		defaultPath: DefaultTargetPath,
		newID:       uuid.NewString,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.client == nil {
		client, err := httpclient.New(httpclient.WithTimeout(e.timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
		e.client = client
	}

	return e, nil
}

// JoinURL joins base and path with exactly one slash between them.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// TargetURL is the URL cmd is posted to.
func (e *Executor) TargetURL(cmd *Command) string {
	path := cmd.TargetPath
	if path == "" || cmd.defaultedPath {
		path = e.defaultPath
	}
	return JoinURL(cmd.TargetBaseURL, path)
}

// NewOutboundRequest builds the JSON-RPC request for cmd. newID is only
// called when the command carries no request id.
func NewOutboundRequest(cmd *Command, newID func() string) *OutboundRequest {
	var id any = cmd.RequestID
	if id == nil {
		id = newID()
	}
	return &OutboundRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Method:  cmd.Method,
		Params:  cmd.Params,
	}
}

// Execute performs the call described by cmd. It never returns nil.
func (e *Executor) Execute(ctx context.Context, cmd *Command) Result {
	req := NewOutboundRequest(cmd, e.newID)
	url := e.TargetURL(cmd)

	ctx, span := e.tracer.Start(ctx, "mcp.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mcp.method", cmd.Method),
			attribute.String("mcp.target", url),
		))
	defer span.End()

	start := time.Now()
	result := e.call(ctx, url, req)
	elapsed := time.Since(start)

	outcome := OutcomeSuccess
	if f, ok := result.(Failure); ok {
		outcome = OutcomeFailure
		if f.Remote {
			outcome = OutcomeRemoteError
		}
		span.SetStatus(codes.Error, f.Message)
		span.SetAttributes(attribute.Int("mcp.error_code", f.Code))
	}
	span.SetAttributes(attribute.String("mcp.outcome", outcome))

	if e.recorder != nil {
		e.recorder.RecordCall(ctx, cmd.Method, outcome, elapsed)
	}

	slog.Debug("MCP call finished",
		"url", url,
		"method", cmd.Method,
		"request_id", req.ID,
		"outcome", outcome,
		"duration", elapsed)

	return result
}

func (e *Executor) call(ctx context.Context, url string, req *OutboundRequest) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.PostJSON(ctx, url, req)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return statusFailure(statusErr, req.ID)
		}
		return Failure{Code: CodeInternalError, Message: err.Error(), RequestID: req.ID}
	}

	return ClassifyBody(resp.Body, req.ID)
}

// statusFailure maps a non-2xx response. When the body is a JSON-RPC error
// its message and data are kept.
func statusFailure(err *httpclient.StatusError, id any) Failure {
	f := Failure{
		Code:      err.StatusCode,
		Message:   err.Text(),
		RequestID: id,
	}
	if f.Code == 0 {
		f.Code = CodeInternalError
	}

	var body map[string]any
	if json.Unmarshal(err.Body, &body) != nil {
		return f
	}
	if rpcErr, ok := body["error"].(map[string]any); ok {
		if msg, ok := rpcErr["message"].(string); ok && msg != "" {
			f.Message = fmt.Sprintf("HTTP %d: %s", err.StatusCode, msg)
		}
		f.Data = rpcErr["data"]
	}
	return f
}

// ClassifyBody interprets a 2xx response body.
func ClassifyBody(body []byte, id any) Result {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Failure{Code: CodeParseError, Message: MalformedResponseMessage, RequestID: id}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return Success{Payload: map[string]any{NonDictResultKey: decoded}, RequestID: id}
	}

	_, hasID := obj["id"]
	rpcErr, isErr := obj["error"].(map[string]any)
	if isErr && hasID {
		return Failure{
			Code:      errorCode(rpcErr["code"]),
			Message:   errorMessage(rpcErr["message"]),
			Data:      rpcErr["data"],
			Remote:    true,
			RequestID: id,
		}
	}

	if result, hasResult := obj["result"]; hasResult && !isErr {
		if payload, isMap := result.(map[string]any); isMap {
			return Success{Payload: payload, RequestID: id}
		}
		return Success{Payload: map[string]any{NonDictResultKey: result}, RequestID: id}
	}

	return Success{Payload: obj, RequestID: id}
}

func errorCode(v any) int {
	switch c := v.(type) {
	case float64:
		if c == math.Trunc(c) && c >= math.MinInt32 && c <= math.MaxInt32 {
			return int(c)
		}
	case json.Number:
		if n, err := c.Int64(); err == nil {
			return int(n)
		}
	}
	return CodeInternalError
}

func errorMessage(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown error"
}
