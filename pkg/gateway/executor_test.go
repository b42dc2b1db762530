package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method  string
	outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordCall(_ context.Context, method, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{method, outcome})
}

// mcpServer replies to every POST with status and body, and captures the
// decoded request.
func mcpServer(t *testing.T, status int, body string) (*httptest.Server, <-chan map[string]any) {
	t.Helper()
	requests := make(chan map[string]any, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(raw, &req)
		req["_path"] = r.URL.Path
		requests <- req

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://x/", "/p", "http://x/p"},
		{"http://x", "p", "http://x/p"},
		{"http://x/", "p", "http://x/p"},
		{"http://x", "/p", "http://x/p"},
		{"http://x//", "//messages/", "http://x/messages/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinURL(tt.base, tt.path), "JoinURL(%q, %q)", tt.base, tt.path)
	}
}

func TestNewOutboundRequest(t *testing.T) {
	cmd := &Command{Method: "tools/list", Params: map[string]any{}}

	seen := make(map[any]bool)
	for range 100 {
		req := NewOutboundRequest(cmd, uuid.NewString)
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.False(t, seen[req.ID], "duplicate id %v", req.ID)
		seen[req.ID] = true
	}

	cmd.RequestID = int64(5)
	req := NewOutboundRequest(cmd, func() string {
		t.Fatal("generator called although an id was given")
		return ""
	})
	assert.Equal(t, int64(5), req.ID)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":5,"method":"tools/list","params":{}}`, string(body))
}

func TestClassifyBody(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, r Result)
	}{
		{"result object", `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`, func(t *testing.T, r Result) {
			s := r.(Success)
			assert.Equal(t, map[string]any{"ok": true}, s.Payload)
		}},
		{"result without id", `{"result":{"ok":true}}`, func(t *testing.T, r Result) {
			assert.Equal(t, map[string]any{"ok": true}, r.(Success).Payload)
		}},
		{"result next to null error", `{"result":[1],"error":null}`, func(t *testing.T, r Result) {
			assert.Equal(t, map[string]any{NonDictResultKey: []any{float64(1)}}, r.(Success).Payload)
		}},
		{"error code beyond int range", `{"id":1,"error":{"code":1e20,"message":"x"}}`, func(t *testing.T, r Result) {
			assert.Equal(t, CodeInternalError, r.(Failure).Code)
		}},
		{"result scalar", `{"id":1,"result":42}`, func(t *testing.T, r Result) {
			s := r.(Success)
			assert.Equal(t, map[string]any{NonDictResultKey: float64(42)}, s.Payload)
		}},
		{"error with id", `{"id":1,"error":{"code":-32601,"message":"no such method","data":{"m":"x"}}}`, func(t *testing.T, r Result) {
			f := r.(Failure)
			assert.True(t, f.Remote)
			assert.Equal(t, -32601, f.Code)
			assert.Equal(t, "no such method", f.Message)
			assert.Equal(t, map[string]any{"m": "x"}, f.Data)
		}},
		{"error without id", `{"error":{"code":1,"message":"x"}}`, func(t *testing.T, r Result) {
			s := r.(Success)
			assert.Contains(t, s.Payload, "error")
		}},
		{"array", `[1,2]`, func(t *testing.T, r Result) {
			s := r.(Success)
			assert.Equal(t, []any{float64(1), float64(2)}, s.Payload[NonDictResultKey])
		}},
		{"plain object", `{"status":"up"}`, func(t *testing.T, r Result) {
			assert.Equal(t, map[string]any{"status": "up"}, r.(Success).Payload)
		}},
		{"malformed", `{not json`, func(t *testing.T, r Result) {
			f := r.(Failure)
			assert.Equal(t, CodeParseError, f.Code)
			assert.Equal(t, MalformedResponseMessage, f.Message)
			assert.False(t, f.Remote)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ClassifyBody([]byte(tt.body), "id-1")
			require.NotNil(t, r)
			tt.check(t, r)
		})
	}
}

func TestExecutor_Success(t *testing.T) {
	srv, requests := mcpServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":"fixed","result":{"ok":true}}`)
	rec := &fakeRecorder{}
	exec, err := NewExecutor(
		WithIDGenerator(func() string { return "fixed" }),
		WithCallRecorder(rec),
	)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), &Command{
		TargetBaseURL: srv.URL + "/",
		TargetPath:    "/messages/",
		Method:        "tools/call",
		Params:        map[string]any{"name": "echo"},
	})

	s, ok := result.(Success)
	require.True(t, ok, "got %#v", result)
	assert.Equal(t, map[string]any{"ok": true}, s.Payload)
	assert.Equal(t, "fixed", s.RequestID)

	req := <-requests
	assert.Equal(t, "/messages/", req["_path"])
	assert.Equal(t, "2.0", req["jsonrpc"])
	assert.Equal(t, "fixed", req["id"])
	assert.Equal(t, "tools/call", req["method"])
	assert.Equal(t, map[string]any{"name": "echo"}, req["params"])

	assert.Equal(t, []recordedCall{{"tools/call", OutcomeSuccess}}, rec.calls)
}

func TestExecutor_DefaultPath(t *testing.T) {
	srv, requests := mcpServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{}}`)
	cmd := &Command{TargetBaseURL: srv.URL, Method: "tools/list", Params: map[string]any{}}

	exec, err := NewExecutor()
	require.NoError(t, err)
	assert.Equal(t, srv.URL+DefaultTargetPath, exec.TargetURL(cmd))
	_ = exec.Execute(context.Background(), cmd)
	assert.Equal(t, DefaultTargetPath, (<-requests)["_path"])

	exec, err = NewExecutor(WithDefaultPath("/mcp"))
	require.NoError(t, err)
	_ = exec.Execute(context.Background(), cmd)
	assert.Equal(t, "/mcp", (<-requests)["_path"])

	cmd.TargetPath = "rpc"
	assert.Equal(t, srv.URL+"/rpc", exec.TargetURL(cmd))

	// A path filled in by Extract yields to the configured default, a
	// path named by the caller does not.
	extracted, verr := Extract(dataMessage(map[string]any{
		"target_base_url": srv.URL, "method": "ping", "params": map[string]any{},
	}))
	require.Nil(t, verr)
	assert.Equal(t, srv.URL+"/mcp", exec.TargetURL(extracted))

	extracted, verr = Extract(dataMessage(map[string]any{
		"target_base_url": srv.URL, "target_path": "/messages/", "method": "ping", "params": map[string]any{},
	}))
	require.Nil(t, verr)
	assert.Equal(t, srv.URL+"/messages/", exec.TargetURL(extracted))
}

func TestExecutor_RemoteError(t *testing.T) {
	srv, _ := mcpServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":3,"error":{"code":-32602,"message":"bad tool"}}`)
	rec := &fakeRecorder{}
	exec, err := NewExecutor(WithCallRecorder(rec))
	require.NoError(t, err)

	result := exec.Execute(context.Background(), &Command{
		TargetBaseURL: srv.URL, TargetPath: "/", Method: "tools/call",
		Params: map[string]any{"name": "x"}, RequestID: int64(3),
	})

	f, ok := result.(Failure)
	require.True(t, ok)
	assert.True(t, f.Remote)
	assert.Equal(t, -32602, f.Code)
	assert.Equal(t, int64(3), f.RequestID)
	assert.Equal(t, OutcomeRemoteError, rec.calls[0].outcome)
}

func TestExecutor_HTTPStatus(t *testing.T) {
	srv, _ := mcpServer(t, http.StatusInternalServerError, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"boom","data":"trace"}}`)
	exec, err := NewExecutor()
	require.NoError(t, err)

	result := exec.Execute(context.Background(), &Command{TargetBaseURL: srv.URL, Method: "ping", Params: map[string]any{}})

	f, ok := result.(Failure)
	require.True(t, ok)
	assert.False(t, f.Remote)
	assert.Equal(t, http.StatusInternalServerError, f.Code)
	assert.Equal(t, "HTTP 500: boom", f.Message)
	assert.Equal(t, "trace", f.Data)
}

func TestExecutor_HTTPStatusPlainBody(t *testing.T) {
	srv, _ := mcpServer(t, http.StatusNotFound, `not here`)
	exec, err := NewExecutor()
	require.NoError(t, err)

	f, ok := exec.Execute(context.Background(), &Command{TargetBaseURL: srv.URL, Method: "ping", Params: map[string]any{}}).(Failure)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, f.Code)
	assert.Equal(t, "Not Found", f.Message)
}

func TestExecutor_MalformedBody(t *testing.T) {
	srv, _ := mcpServer(t, http.StatusOK, `<html>`)
	exec, err := NewExecutor()
	require.NoError(t, err)

	f, ok := exec.Execute(context.Background(), &Command{TargetBaseURL: srv.URL, Method: "ping", Params: map[string]any{}}).(Failure)
	require.True(t, ok)
	assert.Equal(t, CodeParseError, f.Code)
}

func TestExecutor_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &fakeRecorder{}
	exec, err := NewExecutor(WithCallRecorder(rec))
	require.NoError(t, err)

	f, ok := exec.Execute(context.Background(), &Command{TargetBaseURL: url, Method: "ping", Params: map[string]any{}}).(Failure)
	require.True(t, ok)
	assert.Equal(t, CodeInternalError, f.Code)
	assert.Contains(t, f.Message, "connection refused")
	assert.NotEmpty(t, f.RequestID)
	assert.Equal(t, OutcomeFailure, rec.calls[0].outcome)
}

func TestExecutor_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	exec, err := NewExecutor(WithCallTimeout(50 * time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	f, ok := exec.Execute(context.Background(), &Command{TargetBaseURL: srv.URL, Method: "ping", Params: map[string]any{}}).(Failure)
	require.True(t, ok)
	assert.Equal(t, CodeInternalError, f.Code)
	assert.Less(t, time.Since(start), time.Second)
}
