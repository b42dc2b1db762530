package task

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/mcpgateway/pkg/config"
)

func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewInMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tasks.db"))
			require.NoError(t, err)
			db.SetMaxOpenConns(1)
			t.Cleanup(func() { db.Close() })

			store, err := NewSQLStore(db, "sqlite3")
			require.NoError(t, err)
			return store
		},
	}
}

func userMessage(text string) *a2a.Message {
	return a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{Data: map[string]any{"mcp_method": text}})
}

func TestStore_Lifecycle(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			defer s.Close()

			created, err := s.Create(ctx, "task-1", "session-1", userMessage("tools/list"), map[string]any{"origin": "test"})
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateSubmitted, created.Status.State)
			assert.Equal(t, "session-1", created.ContextID)
			require.Len(t, created.History, 1)
			assert.Equal(t, a2a.TaskID("task-1"), created.History[0].TaskID)
			assert.Equal(t, "session-1", created.History[0].ContextID)

			working, err := s.Update(ctx, "task-1", a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateWorking, working.Status.State)
			assert.NotNil(t, working.Status.Timestamp)

			artifact := &a2a.Artifact{
				ID:    a2a.NewArtifactID(),
				Name:  "mcp_result",
				Parts: a2a.ContentParts{a2a.DataPart{Data: map[string]any{"ok": true}}},
			}
			done, err := s.Update(ctx, "task-1", a2a.TaskStatus{State: a2a.TaskStateCompleted}, []*a2a.Artifact{artifact})
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateCompleted, done.Status.State)

			got, err := s.Get(ctx, "task-1")
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
			assert.Equal(t, "test", got.Metadata["origin"])
			require.Len(t, got.Artifacts, 1)
			assert.Equal(t, "mcp_result", got.Artifacts[0].Name)
			require.Len(t, got.Artifacts[0].Parts, 1)
			part, ok := got.Artifacts[0].Parts[0].(a2a.DataPart)
			require.True(t, ok, "expected DataPart, got %T", got.Artifacts[0].Parts[0])
			assert.Equal(t, true, part.Data["ok"])
		})
	}
}

func TestStore_TerminalIsFinal(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Create(ctx, "task-2", "s", nil, nil)
			require.NoError(t, err)
			_, err = s.Update(ctx, "task-2", a2a.TaskStatus{State: a2a.TaskStateFailed}, nil)
			require.NoError(t, err)

			// Repeating the terminal state is a no-op.
			again, err := s.Update(ctx, "task-2", a2a.TaskStatus{State: a2a.TaskStateFailed}, nil)
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateFailed, again.Status.State)

			_, err = s.Update(ctx, "task-2", a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
			assert.ErrorIs(t, err, ErrTaskTerminal)

			// Resending does not reopen or extend a settled task.
			fetched, err := s.Create(ctx, "task-2", "s", userMessage("late"), nil)
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateFailed, fetched.Status.State)
			assert.Empty(t, fetched.History)
		})
	}
}

func TestStore_InvalidTransition(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Create(ctx, "task-3", "s", nil, nil)
			require.NoError(t, err)
			_, err = s.Update(ctx, "task-3", a2a.TaskStatus{State: a2a.TaskStateCompleted}, nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			got, err := s.Get(ctx, "task-3")
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateSubmitted, got.Status.State)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrTaskNotFound)
			_, err = s.Update(ctx, "missing", a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
			assert.ErrorIs(t, err, ErrTaskNotFound)
		})
	}
}

func TestStore_CreateOrFetch(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Create(ctx, "task-4", "first", userMessage("a"), nil)
			require.NoError(t, err)
			_, err = s.Update(ctx, "task-4", a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
			require.NoError(t, err)

			again, err := s.Create(ctx, "task-4", "second", userMessage("b"), nil)
			require.NoError(t, err)
			assert.Equal(t, "first", again.ContextID)
			assert.Equal(t, a2a.TaskStateWorking, again.Status.State)
			assert.Len(t, again.History, 2)
		})
	}
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	created, err := s.Create(ctx, "task-5", "s", nil, map[string]any{"k": "v"})
	require.NoError(t, err)
	created.Metadata["k"] = "mutated"
	created.Status.State = a2a.TaskStateCompleted

	got, err := s.Get(ctx, "task-5")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Metadata["k"])
	assert.Equal(t, a2a.TaskStateSubmitted, got.Status.State)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := a2a.TaskID(fmt.Sprintf("task-%d", i))
			_, err := s.Create(ctx, id, "s", nil, nil)
			assert.NoError(t, err)
			_, err = s.Update(ctx, id, a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
			assert.NoError(t, err)
			_, err = s.Update(ctx, id, a2a.TaskStatus{State: a2a.TaskStateCompleted}, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(a2a.TaskStateSubmitted, a2a.TaskStateWorking))
	assert.True(t, CanTransition(a2a.TaskStateSubmitted, a2a.TaskStateFailed))
	assert.True(t, CanTransition(a2a.TaskStateWorking, a2a.TaskStateCompleted))
	assert.False(t, CanTransition(a2a.TaskStateSubmitted, a2a.TaskStateCompleted))
	assert.False(t, CanTransition(a2a.TaskStateCompleted, a2a.TaskStateWorking))
	assert.False(t, CanTransition(a2a.TaskStateFailed, a2a.TaskStateFailed))
}

func TestNewStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	s, err := NewStoreFromConfig(ctx, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	pool := config.NewDBPool()
	defer pool.Close()

	cfg := &config.TaskStoreConfig{
		Backend:  "sql",
		Database: &config.DatabaseConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "gw.db")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	s, err = NewStoreFromConfig(ctx, cfg, pool)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)

	_, err = s.Create(ctx, "persisted", "s", nil, nil)
	require.NoError(t, err)

	// A second store on the same pool sees the same rows.
	s2, err := NewStoreFromConfig(ctx, cfg, pool)
	require.NoError(t, err)
	_, err = s2.Get(ctx, "persisted")
	require.NoError(t, err)

	_, err = NewStoreFromConfig(ctx, &config.TaskStoreConfig{Backend: "sql"}, pool)
	assert.Error(t, err)
}
