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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const schemaTimeout = 30 * time.Second

// schema is applied in order. Statements flagged indexOnly are skipped on
// mysql, which lacks CREATE INDEX IF NOT EXISTS.
var schema = []struct {
	stmt      string
	indexOnly bool
}{
	{stmt: `CREATE TABLE IF NOT EXISTS mcp_tasks (
	id         VARCHAR(255) PRIMARY KEY,
	context_id VARCHAR(255) NOT NULL,
	state      VARCHAR(32)  NOT NULL,
	status     TEXT NOT NULL,
	history    TEXT,
	artifacts  TEXT,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`},
	{stmt: `CREATE INDEX IF NOT EXISTS mcp_tasks_context_idx ON mcp_tasks (context_id)`, indexOnly: true},
	{stmt: `CREATE INDEX IF NOT EXISTS mcp_tasks_updated_idx ON mcp_tasks (updated_at)`, indexOnly: true},
}

const (
	taskColumns = `id, context_id, status, history, artifacts, metadata`
	selectTask  = `SELECT ` + taskColumns + ` FROM mcp_tasks WHERE id = ?`
	insertTask  = `INSERT INTO mcp_tasks (id, context_id, state, status, history, artifacts, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateTask = `UPDATE mcp_tasks SET state = ?, status = ?, history = ?, artifacts = ?, updated_at = ? WHERE id = ?`
)

// SQLStore keeps one row per task with the a2a sub-objects stored as JSON
// text. It works on sqlite, postgres and mysql.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore migrates the schema on db. The handle is borrowed and is not
// closed by the store.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("sql task store needs a database handle")
	}
	if dialect == "sqlite3" {
		dialect = "sqlite"
	}
	switch dialect {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("sql task store: unsupported dialect %q", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	for _, m := range schema {
		if m.indexOnly && s.dialect == "mysql" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("migrate task schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Create(ctx context.Context, id a2a.TaskID, contextID string, msg *a2a.Message, metadata map[string]any) (*a2a.Task, error) {
	var out *a2a.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := s.fetch(ctx, tx, id)
		switch {
		case errors.Is(err, ErrTaskNotFound):
			out = newTask(id, contextID, msg, metadata)
			return s.insert(ctx, tx, out)
		case err != nil:
			return err
		}
		appendMessage(t, msg)
		out = t
		return s.update(ctx, tx, t)
	})
	return out, err
}

func (s *SQLStore) Update(ctx context.Context, id a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	var out *a2a.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := s.fetch(ctx, tx, id)
		if err != nil {
			return err
		}
		changed, err := applyUpdate(t, status, artifacts)
		if err != nil {
			return err
		}
		out = t
		if !changed {
			return nil
		}
		return s.update(ctx, tx, t)
	})
	return out, err
}

func (s *SQLStore) Get(ctx context.Context, id a2a.TaskID) (*a2a.Task, error) {
	return s.fetch(ctx, s.db, id)
}

// Close leaves the shared handle open for its owner.
func (s *SQLStore) Close() error { return nil }

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// fetch locks the row with FOR UPDATE inside a transaction on servers that
// support it.
func (s *SQLStore) fetch(ctx context.Context, q rowQuerier, id a2a.TaskID) (*a2a.Task, error) {
	query := selectTask
	if _, tx := q.(*sql.Tx); tx && s.dialect != "sqlite" {
		query += " FOR UPDATE"
	}

	t := &a2a.Task{}
	var rawID string
	var status, history, artifacts, metadata []byte
	err := q.QueryRowContext(ctx, s.bind(query), string(id)).
		Scan(&rawID, &t.ContextID, &status, &history, &artifacts, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		slog.Error("Task lookup failed", "task_id", id, "error", err)
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}

	t.ID = a2a.TaskID(rawID)
	if len(status) == 0 {
		return nil, fmt.Errorf("task %s has no stored status", id)
	}
	for _, col := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"status", status, &t.Status},
		{"history", history, &t.History},
		{"artifacts", artifacts, &t.Artifacts},
		{"metadata", metadata, &t.Metadata},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode task %s %s: %w", id, col.name, err)
		}
	}
	if t.History == nil {
		t.History = []*a2a.Message{}
	}
	if t.Artifacts == nil {
		t.Artifacts = []*a2a.Artifact{}
	}
	if len(t.Metadata) == 0 {
		t.Metadata = nil
	}
	return t, nil
}

// encoded holds the JSON columns of a task.
type encoded struct {
	status, history, artifacts, metadata string
}

func encode(t *a2a.Task) (encoded, error) {
	var (
		e   encoded
		err error
	)
	if e.status, err = jsonText(t.Status, ""); err != nil {
		return e, err
	}
	if e.history, err = jsonText(t.History, "[]"); err != nil {
		return e, err
	}
	if e.artifacts, err = jsonText(t.Artifacts, "[]"); err != nil {
		return e, err
	}
	e.metadata, err = jsonText(t.Metadata, "{}")
	return e, err
}

// jsonText marshals v, substituting empty for nil slices and maps.
func jsonText(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}
	if empty != "" && string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, t *a2a.Task) error {
	e, err := encode(t)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, s.bind(insertTask),
		string(t.ID), t.ContextID, string(t.Status.State),
		e.status, e.history, e.artifacts, e.metadata, now, now)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

// update rewrites the mutable columns.
func (s *SQLStore) update(ctx context.Context, tx *sql.Tx, t *a2a.Task) error {
	e, err := encode(t)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.bind(updateTask),
		string(t.Status.State), e.status, e.history, e.artifacts, time.Now().UTC(), string(t.ID))
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// bind converts ? placeholders to postgres $n form.
func (s *SQLStore) bind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, part := range strings.Split(query, "?") {
		if n > 0 {
			b.WriteString("$" + strconv.Itoa(n))
		}
		b.WriteString(part)
		n++
	}
	return b.String()
}

var _ Store = (*SQLStore)(nil)
