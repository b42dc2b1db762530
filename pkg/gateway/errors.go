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

// Package gateway translates A2A task requests into MCP JSON-RPC calls.
//
// The package holds the four pieces of the request pipeline:
//   - Extract validates the command embedded in the inbound message
//   - Executor performs the outbound JSON-RPC call and classifies the outcome
//   - FromResult / FromFailure map an outcome onto task status and artifacts
//   - Coordinator drives the task through the store for one inbound request
package gateway

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSON-RPC 2.0 reserved error codes, plus the A2A task error codes.
const (
	CodeParseError     = mcp.PARSE_ERROR
	CodeInvalidRequest = mcp.INVALID_REQUEST
	CodeMethodNotFound = mcp.METHOD_NOT_FOUND
	CodeInvalidParams  = mcp.INVALID_PARAMS
	CodeInternalError  = mcp.INTERNAL_ERROR

	CodeTaskNotFound         = -32001
	CodeTaskNotCancelable    = -32002
	CodeUnsupportedOperation = -32004
)

// RPCError is a JSON-RPC error object returned to A2A callers.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewRPCError creates an RPCError without data.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ValidationError reports a malformed or incomplete embedded command.
type ValidationError struct {
	Code    int
	Message string
	// Field is the command key at fault, empty for structural problems.
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid command field %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// RPCError converts the validation error into the JSON-RPC error sent to the caller.
func (e *ValidationError) RPCError() *RPCError {
	rpcErr := &RPCError{Code: e.Code, Message: e.Message}
	if e.Field != "" {
		rpcErr.Data = map[string]any{"field": e.Field}
	}
	return rpcErr
}

func invalidRequest(format string, args ...any) *ValidationError {
	return &ValidationError{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func invalidParams(field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: CodeInvalidParams, Field: field, Message: fmt.Sprintf(format, args...)}
}
