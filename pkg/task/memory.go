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

package task

import (
	"context"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
)

// InMemoryStore keeps tasks in a map. Tasks are lost on restart.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[a2a.TaskID]*a2a.Task
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks: make(map[a2a.TaskID]*a2a.Task),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, id a2a.TaskID, contextID string, msg *a2a.Message, metadata map[string]any) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[id]; ok {
		appendMessage(t, msg)
		return clone(t), nil
	}

	t := newTask(id, contextID, msg, metadata)
	s.tasks[id] = t
	return clone(t), nil
}

func (s *InMemoryStore) Update(ctx context.Context, id a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if _, err := applyUpdate(t, status, artifacts); err != nil {
		return nil, err
	}
	return clone(t), nil
}

func (s *InMemoryStore) Get(ctx context.Context, id a2a.TaskID) (*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return clone(t), nil
}

// Len returns the number of stored tasks.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *InMemoryStore) Close() error {
	return nil
}

var _ Store = (*InMemoryStore)(nil)
