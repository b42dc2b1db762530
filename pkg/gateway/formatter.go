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
	"fmt"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
)

// Artifact names produced by the formatter.
const (
	ArtifactResult          = "mcp_result"
	ArtifactError           = "mcp_error"
	ArtifactValidationError = "validation_error"

	// MetaRequestIDEcho holds the outbound JSON-RPC id in artifact metadata.
	MetaRequestIDEcho = "mcp_request_id_echo"
)

// FromResult formats a call that produced a response. The state is always
// completed: an "error" key inside the payload is reported in the status
// text and kept in the artifact data.
func FromResult(payload map[string]any, echoID any) (a2a.TaskStatus, []*a2a.Artifact) {
	text := "MCP call completed"
	if remoteErr, ok := payload["error"]; ok {
		text = "MCP service returned an error: " + describeRemoteError(remoteErr)
	} else if isErr, _ := payload["isError"].(bool); isErr {
		text = "MCP tool reported an error"
	}

	artifact := &a2a.Artifact{
		ID:          a2a.NewArtifactID(),
		Name:        ArtifactResult,
		Description: "Response returned by the MCP service",
		Parts:       a2a.ContentParts{a2a.DataPart{Data: payload}},
		Metadata:    map[string]any{MetaRequestIDEcho: echoID},
	}

	return newStatus(a2a.TaskStateCompleted, text), []*a2a.Artifact{artifact}
}

// FromFailure formats a call that could not be completed. The state is
// always failed, with exactly one artifact describing the failure.
func FromFailure(f Failure, echoID any) (a2a.TaskStatus, []*a2a.Artifact) {
	artifact := &a2a.Artifact{
		ID:          a2a.NewArtifactID(),
		Name:        ArtifactError,
		Description: "MCP call failure",
		Parts: a2a.ContentParts{a2a.DataPart{Data: map[string]any{
			"code":            f.Code,
			"message":         f.Message,
			"data":            f.Data,
			MetaRequestIDEcho: echoID,
		}}},
		Metadata: map[string]any{MetaRequestIDEcho: echoID},
	}

	text := fmt.Sprintf("MCP call failed (%d): %s", f.Code, f.Message)
	return newStatus(a2a.TaskStateFailed, text), []*a2a.Artifact{artifact}
}

// FromValidationError formats a rejected command.
func FromValidationError(verr *ValidationError) (a2a.TaskStatus, []*a2a.Artifact) {
	data := map[string]any{
		"code":    verr.Code,
		"message": verr.Message,
	}
	if verr.Field != "" {
		data["field"] = verr.Field
	}

	artifact := &a2a.Artifact{
		ID:          a2a.NewArtifactID(),
		Name:        ArtifactValidationError,
		Description: "The embedded MCP command was rejected",
		Parts:       a2a.ContentParts{a2a.DataPart{Data: data}},
	}

	return newStatus(a2a.TaskStateFailed, "Invalid MCP command: "+verr.Error()), []*a2a.Artifact{artifact}
}

// remoteErrorPayload is the Contract A payload used for a JSON-RPC error
// returned by the MCP service.
func remoteErrorPayload(f Failure) map[string]any {
	remote := map[string]any{
		"code":    f.Code,
		"message": f.Message,
	}
	if f.Data != nil {
		remote["data"] = f.Data
	}
	return map[string]any{"error": remote}
}

func describeRemoteError(v any) string {
	switch e := v.(type) {
	case map[string]any:
		msg, _ := e["message"].(string)
		if code, ok := e["code"]; ok {
			return fmt.Sprintf("%s (code %v)", msg, code)
		}
		if msg != "" {
			return msg
		}
	case string:
		return e
	}
	return fmt.Sprintf("%v", v)
}

func newStatus(state a2a.TaskState, text string) a2a.TaskStatus {
	now := time.Now().UTC()
	return a2a.TaskStatus{
		State:     state,
		Message:   a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: text}),
		Timestamp: &now,
	}
}
