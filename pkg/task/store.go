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

// Package task stores A2A tasks driven by the gateway.
//
// A task moves submitted → working → completed/failed, or straight from
// submitted to failed when its command is rejected. Stores enforce these
// transitions and never move a task out of a terminal state.
package task

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
)

// Store is the task persistence used by the gateway.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Create registers a task in state submitted. When the id is already
	// known the stored task is returned unchanged except that msg, if any,
	// is appended to its history (create-or-fetch).
	Create(ctx context.Context, id a2a.TaskID, contextID string, msg *a2a.Message, metadata map[string]any) (*a2a.Task, error)

	// Update sets the task status and appends artifacts. Repeating the
	// current terminal state is a no-op; any other change to a terminal
	// task returns ErrTaskTerminal.
	Update(ctx context.Context, id a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error)

	// Get returns the task or ErrTaskNotFound.
	Get(ctx context.Context, id a2a.TaskID) (*a2a.Task, error)

	// Close releases resources held by the store.
	Close() error
}

// Error is a task store error.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrTaskNotFound is returned when a task doesn't exist.
	ErrTaskNotFound = &Error{Code: "task_not_found", Message: "task not found"}

	// ErrTaskTerminal is returned when changing a task in a terminal state.
	ErrTaskTerminal = &Error{Code: "task_terminal", Message: "task is in terminal state"}

	// ErrInvalidTransition is returned for a state change the lifecycle forbids.
	ErrInvalidTransition = &Error{Code: "invalid_transition", Message: "invalid task state transition"}
)

var allowedTransitions = map[a2a.TaskState][]a2a.TaskState{
	a2a.TaskStateSubmitted: {a2a.TaskStateWorking, a2a.TaskStateFailed, a2a.TaskStateCanceled},
	a2a.TaskStateWorking:   {a2a.TaskStateWorking, a2a.TaskStateCompleted, a2a.TaskStateFailed, a2a.TaskStateCanceled},
}

// CanTransition reports whether a task may move from one state to another.
func CanTransition(from, to a2a.TaskState) bool {
	return slices.Contains(allowedTransitions[from], to)
}

// newTask builds a freshly submitted task.
func newTask(id a2a.TaskID, contextID string, msg *a2a.Message, metadata map[string]any) *a2a.Task {
	now := time.Now().UTC()
	t := &a2a.Task{
		ID:        id,
		ContextID: contextID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateSubmitted,
			Timestamp: &now,
		},
		History:   make([]*a2a.Message, 0, 3),
		Artifacts: make([]*a2a.Artifact, 0, 1),
		Metadata:  maps.Clone(metadata),
	}
	if msg != nil {
		t.History = append(t.History, withTask(msg, t))
	}
	return t
}

// appendMessage adds msg to the history of an existing task. Terminal
// tasks keep their history as it was when they settled.
func appendMessage(t *a2a.Task, msg *a2a.Message) {
	if msg != nil && !t.Status.State.Terminal() {
		t.History = append(t.History, withTask(msg, t))
	}
}

// applyUpdate mutates t according to the Store.Update contract. It reports
// whether anything changed.
func applyUpdate(t *a2a.Task, status a2a.TaskStatus, artifacts []*a2a.Artifact) (bool, error) {
	if t.Status.State.Terminal() {
		if status.State == t.Status.State {
			return false, nil
		}
		return false, ErrTaskTerminal
	}
	if !CanTransition(t.Status.State, status.State) {
		return false, ErrInvalidTransition
	}

	if status.Timestamp == nil {
		now := time.Now().UTC()
		status.Timestamp = &now
	}
	t.Status = status
	if status.Message != nil {
		t.History = append(t.History, withTask(status.Message, t))
	}
	t.Artifacts = append(t.Artifacts, artifacts...)
	return true, nil
}

// withTask returns a copy of msg bound to the task and its context.
func withTask(msg *a2a.Message, t *a2a.Task) *a2a.Message {
	m := *msg
	m.TaskID = t.ID
	if m.ContextID == "" {
		m.ContextID = t.ContextID
	}
	return &m
}

// clone copies the task so callers can't mutate stored state. Messages and
// artifacts are shared; stores never modify them after insertion.
func clone(t *a2a.Task) *a2a.Task {
	c := *t
	c.History = slices.Clone(t.History)
	c.Artifacts = slices.Clone(t.Artifacts)
	c.Metadata = maps.Clone(t.Metadata)
	if t.Status.Timestamp != nil {
		ts := *t.Status.Timestamp
		c.Status.Timestamp = &ts
	}
	return &c
}
