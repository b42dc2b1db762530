package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/mcpgateway/pkg/task"
)

type taskRecorder struct {
	states []string
}

func (r *taskRecorder) RecordTask(_ context.Context, state string) {
	r.states = append(r.states, state)
}

// countingServer answers every call with body and counts the calls.
func countingServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestCoordinator(t *testing.T, opts ...CoordinatorOption) (*Coordinator, *task.InMemoryStore) {
	t.Helper()
	exec, err := NewExecutor()
	require.NoError(t, err)
	store := task.NewInMemoryStore()
	c, err := NewCoordinator(store, exec, opts...)
	require.NoError(t, err)
	return c, store
}

func sendParams(id string, data map[string]any) SendTaskParams {
	return SendTaskParams{ID: a2a.TaskID(id), SessionID: "session-" + id, Message: dataMessage(data)}
}

func TestCoordinator_ResultWithoutID(t *testing.T) {
	srv, _ := countingServer(t, `{"result":{"ok":true}}`)
	c, _ := newTestCoordinator(t)

	got, rpcErr := c.SendTask(context.Background(), sendParams("t1b", map[string]any{
		"target_base_url": srv.URL,
		"method":          "tools/call",
		"params":          map[string]any{"name": "echo"},
	}))

	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, map[string]any{"ok": true}, artifactData(t, got.Artifacts[0]))
}

func TestCoordinator_Success(t *testing.T) {
	srv, calls := countingServer(t, `{"jsonrpc":"2.0","id":"1","result":{"ok":true}}`)
	rec := &taskRecorder{}
	c, _ := newTestCoordinator(t, WithTaskRecorder(rec))

	got, rpcErr := c.SendTask(context.Background(), sendParams("t1", map[string]any{
		"target_base_url": srv.URL,
		"method":          "tools/call",
		"params":          map[string]any{"name": "echo"},
	}))

	require.Nil(t, rpcErr)
	require.NotNil(t, got)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, map[string]any{"ok": true}, artifactData(t, got.Artifacts[0]))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"completed"}, rec.states)

	// user message, working note, final note
	assert.Len(t, got.History, 3)
	assert.Equal(t, "session-t1", got.ContextID)
}

func TestCoordinator_ValidationFailure(t *testing.T) {
	srv, calls := countingServer(t, `{}`)
	c, store := newTestCoordinator(t)

	got, rpcErr := c.SendTask(context.Background(), sendParams("t2", map[string]any{
		"target_base_url": srv.URL,
		"params":          map[string]any{},
	}))

	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
	require.NotNil(t, got)
	assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, ArtifactValidationError, got.Artifacts[0].Name)
	assert.Equal(t, int32(0), calls.Load(), "no outbound call expected")

	stored, err := store.Get(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateFailed, stored.Status.State)
}

func TestCoordinator_NonDataPart(t *testing.T) {
	c, _ := newTestCoordinator(t)

	got, rpcErr := c.SendTask(context.Background(), SendTaskParams{
		ID:      "t-text",
		Message: a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "call echo please"}),
	})

	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInvalidRequest, rpcErr.Code)
	assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
}

func TestCoordinator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newTestCoordinator(t)
	got, rpcErr := c.SendTask(context.Background(), sendParams("t3", map[string]any{
		"mcp_target_url": url,
		"mcp_method":     "tools/list",
		"mcp_params":     map[string]any{},
	}))

	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInternalError, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "connection refused")
	require.NotNil(t, got)
	assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	data := artifactData(t, got.Artifacts[0])
	assert.Equal(t, CodeInternalError, data["code"])
}

func TestCoordinator_RemoteErrorCompletes(t *testing.T) {
	srv, _ := countingServer(t, `{"jsonrpc":"2.0","id":4,"error":{"code":-32601,"message":"Method not found"}}`)
	c, _ := newTestCoordinator(t)

	got, rpcErr := c.SendTask(context.Background(), sendParams("t4", map[string]any{
		"mcp_target_url": srv.URL,
		"mcp_method":     "bogus/method",
		"mcp_params":     map[string]any{},
		"mcp_request_id": float64(4),
	}))

	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	data := artifactData(t, got.Artifacts[0])
	assert.Equal(t, map[string]any{"code": -32601, "message": "Method not found"}, data["error"])
	assert.Equal(t, int64(4), got.Artifacts[0].Metadata[MetaRequestIDEcho])
}

func TestCoordinator_StreamingUnsupported(t *testing.T) {
	c, store := newTestCoordinator(t)

	rpcErr := c.Subscribe(context.Background(), sendParams("t5", map[string]any{}))
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeUnsupportedOperation, rpcErr.Code)

	rpcErr = c.Resubscribe(context.Background(), "t5")
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeUnsupportedOperation, rpcErr.Code)

	assert.Equal(t, 0, store.Len())
}

func TestCoordinator_ResendTerminalTask(t *testing.T) {
	srv, calls := countingServer(t, `{"jsonrpc":"2.0","id":"1","result":{}}`)
	c, _ := newTestCoordinator(t)
	params := sendParams("t6", map[string]any{
		"mcp_target_url": srv.URL,
		"mcp_method":     "tools/list",
		"mcp_params":     map[string]any{},
	})

	_, rpcErr := c.SendTask(context.Background(), params)
	require.Nil(t, rpcErr)

	got, rpcErr := c.SendTask(context.Background(), params)
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInvalidRequest, rpcErr.Code)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_GetAndCancel(t *testing.T) {
	srv, _ := countingServer(t, `{"jsonrpc":"2.0","id":"1","result":{}}`)
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, rpcErr := c.GetTask(ctx, "missing")
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeTaskNotFound, rpcErr.Code)

	_, rpcErr = c.CancelTask(ctx, "missing")
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeTaskNotFound, rpcErr.Code)

	_, rpcErr = c.SendTask(ctx, sendParams("t7", map[string]any{
		"mcp_target_url": srv.URL,
		"mcp_method":     "tools/list",
		"mcp_params":     map[string]any{},
	}))
	require.Nil(t, rpcErr)

	got, rpcErr := c.GetTask(ctx, "t7")
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)

	got, rpcErr = c.CancelTask(ctx, "t7")
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeTaskNotCancelable, rpcErr.Code)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
}

type failingStore struct {
	task.Store
}

func (failingStore) Create(context.Context, a2a.TaskID, string, *a2a.Message, map[string]any) (*a2a.Task, error) {
	return nil, errors.New("disk full")
}

type panickingCaller struct{}

func (panickingCaller) Execute(context.Context, *Command) Result {
	panic("boom")
}

func TestCoordinator_InternalErrors(t *testing.T) {
	exec, err := NewExecutor()
	require.NoError(t, err)

	c, err := NewCoordinator(failingStore{}, exec)
	require.NoError(t, err)
	got, rpcErr := c.SendTask(context.Background(), sendParams("t8", map[string]any{}))
	assert.Nil(t, got)
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInternalError, rpcErr.Code)

	c, err = NewCoordinator(task.NewInMemoryStore(), panickingCaller{})
	require.NoError(t, err)
	got, rpcErr = c.SendTask(context.Background(), sendParams("t9", map[string]any{
		"mcp_target_url": "http://svc",
		"mcp_method":     "ping",
		"mcp_params":     map[string]any{},
	}))
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInternalError, rpcErr.Code)
	require.NotNil(t, got)
	assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, ArtifactError, got.Artifacts[0].Name)
	assert.EqualValues(t, CodeInternalError, artifactData(t, got.Artifacts[0])["code"])
	assert.Contains(t, artifactData(t, got.Artifacts[0])["message"], "boom")

	_, err = NewCoordinator(nil, exec)
	assert.Error(t, err)
	_, err = NewCoordinator(task.NewInMemoryStore(), nil)
	assert.Error(t, err)

	_, rpcErr = c.SendTask(context.Background(), SendTaskParams{})
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

// flakyStore fails the update numbered failOn (1-based) and delegates the
// rest to an in-memory store.
type flakyStore struct {
	*task.InMemoryStore
	failOn  int
	updates int
}

func (s *flakyStore) Update(ctx context.Context, id a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	s.updates++
	if s.updates == s.failOn {
		return nil, errors.New("disk full")
	}
	return s.InMemoryStore.Update(ctx, id, status, artifacts)
}

func TestCoordinator_StoreFailureFailsTask(t *testing.T) {
	srv, calls := countingServer(t, `{"jsonrpc":"2.0","id":1,"result":{}}`)
	params := sendParams("t10", map[string]any{
		"target_base_url": srv.URL,
		"method":          "ping",
		"params":          map[string]any{},
	})

	tests := []struct {
		name   string
		failOn int
	}{
		{"working update", 1},
		{"final update", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := NewExecutor()
			require.NoError(t, err)
			rec := &taskRecorder{}
			store := &flakyStore{InMemoryStore: task.NewInMemoryStore(), failOn: tt.failOn}
			c, err := NewCoordinator(store, exec, WithTaskRecorder(rec))
			require.NoError(t, err)

			got, rpcErr := c.SendTask(context.Background(), params)
			require.NotNil(t, rpcErr)
			assert.Equal(t, CodeInternalError, rpcErr.Code)
			assert.Contains(t, rpcErr.Message, "disk full")
			require.NotNil(t, got)
			assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
			require.Len(t, got.Artifacts, 1)
			assert.Equal(t, ArtifactError, got.Artifacts[0].Name)
			assert.Equal(t, []string{"failed"}, rec.states)

			stored, err := store.Get(context.Background(), params.ID)
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateFailed, stored.Status.State)

			// A resend sees a terminal task instead of one stuck in progress.
			_, rpcErr = c.SendTask(context.Background(), params)
			require.NotNil(t, rpcErr)
			assert.Contains(t, rpcErr.Message, "terminal state")
		})
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_StoreRejectsEveryWrite(t *testing.T) {
	c, err := NewCoordinator(&alwaysFailingUpdates{InMemoryStore: task.NewInMemoryStore()}, panickingCaller{})
	require.NoError(t, err)

	got, rpcErr := c.SendTask(context.Background(), sendParams("t11", map[string]any{
		"target_base_url": "http://svc",
		"method":          "ping",
		"params":          map[string]any{},
	}))
	assert.Nil(t, got)
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInternalError, rpcErr.Code)
}

type alwaysFailingUpdates struct {
	*task.InMemoryStore
}

func (alwaysFailingUpdates) Update(context.Context, a2a.TaskID, a2a.TaskStatus, []*a2a.Artifact) (*a2a.Task, error) {
	return nil, errors.New("read-only")
}
