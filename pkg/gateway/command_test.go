package gateway

import (
	"encoding/json"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataMessage(data map[string]any) *a2a.Message {
	return a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{Data: data})
}

func TestExtract_Valid(t *testing.T) {
	cmd, verr := Extract(dataMessage(map[string]any{
		"mcp_target_url":   "http://svc",
		"mcp_method":       "tools/call",
		"mcp_params":       map[string]any{"name": "echo", "arguments": map[string]any{"text": "hi"}},
		"mcp_request_id":   float64(7),
		"mcp_request_path": "/mcp",
	}))
	require.Nil(t, verr)
	require.NotNil(t, cmd)

	assert.Equal(t, "http://svc", cmd.TargetBaseURL)
	assert.Equal(t, "/mcp", cmd.TargetPath)
	assert.Equal(t, "tools/call", cmd.Method)
	assert.Equal(t, "echo", cmd.Params["name"])
	assert.Equal(t, int64(7), cmd.RequestID)
}

func TestExtract_AliasesAndDefaults(t *testing.T) {
	cmd, verr := Extract(dataMessage(map[string]any{
		"target_base_url": "http://svc",
		"method":          "tools/list",
		"params":          map[string]any{},
	}))
	require.Nil(t, verr)
	assert.Equal(t, DefaultTargetPath, cmd.TargetPath)
	assert.Nil(t, cmd.RequestID)

	// Prefixed keys win over aliases.
	cmd, verr = Extract(dataMessage(map[string]any{
		"mcp_target_url":  "http://primary",
		"target_base_url": "http://alias",
		"mcp_method":      "ping",
		"mcp_params":      map[string]any{},
		"request_id":      "abc",
	}))
	require.Nil(t, verr)
	assert.Equal(t, "http://primary", cmd.TargetBaseURL)
	assert.Equal(t, "abc", cmd.RequestID)
}

func TestExtract_Invalid(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"mcp_target_url": "http://svc",
			"mcp_method":     "tools/call",
			"mcp_params":     map[string]any{"name": "echo"},
		}
	}
	without := func(key string) map[string]any {
		d := valid()
		delete(d, key)
		return d
	}
	with := func(key string, v any) map[string]any {
		d := valid()
		d[key] = v
		return d
	}

	tests := []struct {
		name     string
		msg      *a2a.Message
		wantCode int
		field    string
	}{
		{"nil message", nil, CodeInvalidRequest, ""},
		{"no parts", &a2a.Message{Role: a2a.MessageRoleUser}, CodeInvalidRequest, ""},
		{"text part first", a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "hi"}), CodeInvalidRequest, ""},
		{"nil data", a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{}), CodeInvalidRequest, ""},
		{"missing method", dataMessage(without(KeyMethod)), CodeInvalidParams, KeyMethod},
		{"missing target", dataMessage(without(KeyTargetURL)), CodeInvalidParams, KeyTargetURL},
		{"missing params", dataMessage(without(KeyParams)), CodeInvalidParams, KeyParams},
		{"empty method", dataMessage(with(KeyMethod, "")), CodeInvalidParams, KeyMethod},
		{"numeric target", dataMessage(with(KeyTargetURL, 42.0)), CodeInvalidParams, KeyTargetURL},
		{"params list", dataMessage(with(KeyParams, []any{1, 2})), CodeInvalidParams, KeyParams},
		{"path not string", dataMessage(with(KeyRequestPath, true)), CodeInvalidParams, KeyRequestPath},
		{"fractional id", dataMessage(with(KeyRequestID, 1.5)), CodeInvalidParams, KeyRequestID},
		{"id beyond int64", dataMessage(with(KeyRequestID, 1e20)), CodeInvalidParams, KeyRequestID},
		{"object id", dataMessage(with(KeyRequestID, map[string]any{})), CodeInvalidParams, KeyRequestID},
		{"tool without name", dataMessage(with(KeyParams, map[string]any{})), CodeInvalidParams, KeyParams},
		{"tool arguments list", dataMessage(with(KeyParams, map[string]any{"name": "echo", "arguments": []any{}})), CodeInvalidParams, KeyParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				cmd  *Command
				verr *ValidationError
			)
			require.NotPanics(t, func() { cmd, verr = Extract(tt.msg) })
			assert.Nil(t, cmd)
			require.NotNil(t, verr)
			assert.Equal(t, tt.wantCode, verr.Code)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestExtract_ResourcesReadNeedsURI(t *testing.T) {
	_, verr := Extract(dataMessage(map[string]any{
		"mcp_target_url": "http://svc",
		"mcp_method":     "resources/read",
		"mcp_params":     map[string]any{},
	}))
	require.NotNil(t, verr)
	assert.Equal(t, CodeInvalidParams, verr.Code)

	cmd, verr := Extract(dataMessage(map[string]any{
		"mcp_target_url": "http://svc",
		"mcp_method":     "resources/read",
		"mcp_params":     map[string]any{"uri": "mock://status"},
	}))
	require.Nil(t, verr)
	assert.Equal(t, "mock://status", cmd.Params["uri"])
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in      any
		want    any
		wantErr bool
	}{
		{"x", "x", false},
		{3, int64(3), false},
		{float64(12), int64(12), false},
		{json.Number("99"), int64(99), false},
		{json.Number("1.5"), nil, true},
		{float64(-1 << 53), int64(-1 << 53), false},
		{1e20, nil, true},
		{-1e20, nil, true},
		{true, nil, true},
	}
	for _, tt := range tests {
		got, err := normalizeID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidationError_RPCError(t *testing.T) {
	verr := invalidParams(KeyMethod, "missing required field %s", KeyMethod)
	rpcErr := verr.RPCError()
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
	assert.Equal(t, "missing required field mcp_method", rpcErr.Message)
	assert.Equal(t, map[string]any{"field": KeyMethod}, rpcErr.Data)
	assert.Contains(t, verr.Error(), `"mcp_method"`)
}
