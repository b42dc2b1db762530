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
	"errors"
	"fmt"
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/mcpgateway/pkg/task"
)

// Messages of the task errors returned to A2A callers.
const (
	msgTaskNotFound      = "task not found"
	msgTaskNotCancelable = "task cannot be canceled"
	msgStreaming         = "streaming is not supported"
)

// TaskRecorder receives the final state of every task settled by SendTask.
type TaskRecorder interface {
	RecordTask(ctx context.Context, state string)
}

// SendTaskParams are the inputs of a send-task request.
type SendTaskParams struct {
	ID        a2a.TaskID
	SessionID string
	Message   *a2a.Message
	Metadata  map[string]any
}

// Coordinator drives a task through submitted, working and a terminal
// state while the embedded MCP command is validated and executed.
type Coordinator struct {
	store    task.Store
	caller   Caller
	tracer   trace.Tracer
	recorder TaskRecorder
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithTaskRecorder reports settled task states to r.
func WithTaskRecorder(r TaskRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// NewCoordinator creates a coordinator persisting tasks in store and
// forwarding commands through caller.
func NewCoordinator(store task.Store, caller Caller, opts ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("task store is required")
	}
	if caller == nil {
		return nil, errors.New("caller is required")
	}
	c := &Coordinator{
		store:  store,
		caller: caller,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendTask registers the task, runs the embedded command and persists the
// outcome. Once registered, a task always leaves SendTask completed or
// failed unless the store rejects every write. A non-nil error is meant to
// be sent alongside the task.
func (c *Coordinator) SendTask(ctx context.Context, p SendTaskParams) (result *a2a.Task, rpcErr *RPCError) {
	if p.ID == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "task id is required"}
	}

	ctx, span := c.tracer.Start(ctx, "a2a.send_task",
		trace.WithAttributes(attribute.String("a2a.task_id", string(p.ID))))
	registered := false
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing task", "task_id", p.ID, "panic", r)
			rpcErr = NewRPCError(CodeInternalError, fmt.Sprintf("internal error: %v", r))
			result = nil
			if registered {
				result = c.abandon(ctx, p.ID, rpcErr.Message)
			}
		}
		if rpcErr != nil {
			span.SetStatus(codes.Error, rpcErr.Message)
			span.SetAttributes(attribute.Int("a2a.error_code", rpcErr.Code))
		}
		if result != nil {
			span.SetAttributes(attribute.String("a2a.task_state", string(result.Status.State)))
		}
		span.End()
	}()

	t, err := c.store.Create(ctx, p.ID, p.SessionID, p.Message, p.Metadata)
	if err != nil {
		slog.Error("Failed to register task", "task_id", p.ID, "error", err)
		return nil, NewRPCError(CodeInternalError, "failed to register task: "+err.Error())
	}
	if t.Status.State.Terminal() {
		return t, NewRPCError(CodeInvalidRequest,
			fmt.Sprintf("task %s already in terminal state %s", p.ID, t.Status.State))
	}
	if t.Status.State != a2a.TaskStateSubmitted {
		return t, NewRPCError(CodeInvalidRequest, fmt.Sprintf("task %s is already being processed", p.ID))
	}
	registered = true

	cmd, verr := Extract(p.Message)
	if verr != nil {
		slog.Info("Rejected MCP command", "task_id", p.ID, "code", verr.Code, "error", verr.Error())
		status, artifacts := FromValidationError(verr)
		t, err := c.settle(ctx, p.ID, status, artifacts)
		if err != nil {
			return t, err
		}
		return t, verr.RPCError()
	}

	working := newStatus(a2a.TaskStateWorking,
		fmt.Sprintf("Forwarding %s to %s", cmd.Method, cmd.TargetBaseURL))
	if _, err := c.store.Update(ctx, p.ID, working, nil); err != nil {
		slog.Error("Failed to mark task working", "task_id", p.ID, "error", err)
		rpcErr := NewRPCError(CodeInternalError, "failed to update task: "+err.Error())
		return c.abandon(ctx, p.ID, rpcErr.Message), rpcErr
	}

	switch r := c.caller.Execute(ctx, cmd).(type) {
	case Success:
		status, artifacts := FromResult(r.Payload, r.RequestID)
		return c.settle(ctx, p.ID, status, artifacts)
	case Failure:
		if r.Remote {
			// The service answered with a JSON-RPC error; the call itself
			// went through, so the task completes with the error as data.
			status, artifacts := FromResult(remoteErrorPayload(r), r.RequestID)
			return c.settle(ctx, p.ID, status, artifacts)
		}
		status, artifacts := FromFailure(r, r.RequestID)
		t, err := c.settle(ctx, p.ID, status, artifacts)
		if err != nil {
			return t, err
		}
		return t, &RPCError{Code: r.Code, Message: r.Message, Data: r.Data}
	default:
		status, artifacts := FromFailure(Failure{Code: CodeInternalError, Message: "caller returned no result"}, nil)
		t, _ := c.settle(ctx, p.ID, status, artifacts)
		return t, NewRPCError(CodeInternalError, "caller returned no result")
	}
}

// settle persists the terminal status of a task.
func (c *Coordinator) settle(ctx context.Context, id a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, *RPCError) {
	t, err := c.store.Update(ctx, id, status, artifacts)
	if err != nil {
		slog.Error("Failed to persist task result", "task_id", id, "state", status.State, "error", err)
		rpcErr := NewRPCError(CodeInternalError, "failed to update task: "+err.Error())
		return c.abandon(ctx, id, rpcErr.Message), rpcErr
	}
	c.record(ctx, t)
	slog.Info("Task settled", "task_id", id, "state", t.Status.State)
	return t, nil
}

// abandon marks a task failed with an internal error artifact after its
// normal settlement went wrong. It returns nil when that write fails too.
func (c *Coordinator) abandon(ctx context.Context, id a2a.TaskID, reason string) *a2a.Task {
	status, artifacts := FromFailure(Failure{Code: CodeInternalError, Message: reason}, nil)
	t, err := c.store.Update(context.WithoutCancel(ctx), id, status, artifacts)
	if err != nil {
		slog.Error("Failed to mark task failed", "task_id", id, "error", err)
		return nil
	}
	c.record(ctx, t)
	slog.Warn("Task failed after internal error", "task_id", id, "reason", reason)
	return t
}

func (c *Coordinator) record(ctx context.Context, t *a2a.Task) {
	if c.recorder != nil {
		c.recorder.RecordTask(ctx, string(t.Status.State))
	}
}

// GetTask returns the stored task.
func (c *Coordinator) GetTask(ctx context.Context, id a2a.TaskID) (*a2a.Task, *RPCError) {
	t, err := c.store.Get(ctx, id)
	if errors.Is(err, task.ErrTaskNotFound) {
		return nil, NewRPCError(CodeTaskNotFound, msgTaskNotFound)
	}
	if err != nil {
		slog.Error("Failed to load task", "task_id", id, "error", err)
		return nil, NewRPCError(CodeInternalError, "failed to load task: "+err.Error())
	}
	return t, nil
}

// CancelTask refuses every cancellation: tasks settle before SendTask
// returns, so there is never an in-flight task to cancel.
func (c *Coordinator) CancelTask(ctx context.Context, id a2a.TaskID) (*a2a.Task, *RPCError) {
	t, rpcErr := c.GetTask(ctx, id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return t, NewRPCError(CodeTaskNotCancelable, msgTaskNotCancelable)
}

// Subscribe always fails: the gateway does not stream task updates.
func (c *Coordinator) Subscribe(context.Context, SendTaskParams) *RPCError {
	return NewRPCError(CodeUnsupportedOperation, msgStreaming)
}

// Resubscribe always fails, see Subscribe.
func (c *Coordinator) Resubscribe(context.Context, a2a.TaskID) *RPCError {
	return NewRPCError(CodeUnsupportedOperation, msgStreaming)
}
