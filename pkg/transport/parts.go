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

package transport

import (
	"encoding/json"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
)

// MetaUnsupportedPartKind records the kind of a part the gateway could not
// decode. An empty value means the part named no kind at all.
const MetaUnsupportedPartKind = "unsupported_part_kind"

// wireMessage is an inbound A2A message before its parts are resolved.
type wireMessage struct {
	Role      string            `json:"role"`
	Parts     []json.RawMessage `json:"parts"`
	MessageID string            `json:"messageId,omitempty"`
	TaskID    string            `json:"taskId,omitempty"`
	ContextID string            `json:"contextId,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// toMessage resolves the parts of m. A nil wire message yields nil.
func (m *wireMessage) toMessage() (*a2a.Message, error) {
	if m == nil {
		return nil, nil
	}

	parts := make([]a2a.Part, 0, len(m.Parts))
	for i, raw := range m.Parts {
		part, err := parsePart(raw)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		parts = append(parts, part)
	}

	msg := a2a.NewMessage(toRole(m.Role), parts...)
	if m.MessageID != "" {
		msg.ID = m.MessageID
	}
	msg.TaskID = a2a.TaskID(m.TaskID)
	msg.ContextID = m.ContextID
	msg.Metadata = m.Metadata
	return msg, nil
}

func toRole(role string) a2a.MessageRole {
	switch role {
	case "agent", "assistant", "ROLE_AGENT":
		return a2a.MessageRoleAgent
	default:
		return a2a.MessageRoleUser
	}
}

// parsePart decodes one part. The discriminator is "kind", or the legacy
// "type" used before A2A 0.2.
func parsePart(raw json.RawMessage) (a2a.Part, error) {
	var peek struct {
		Kind string `json:"kind"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, fmt.Errorf("failed to peek part kind: %w", err)
	}
	kind := peek.Kind
	if kind == "" {
		kind = peek.Type
	}

	switch kind {
	case "text":
		var p struct {
			Text     string         `json:"text"`
			Metadata map[string]any `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return a2a.TextPart{Text: p.Text, Metadata: p.Metadata}, nil
	case "data":
		var p struct {
			Data     json.RawMessage `json:"data"`
			Metadata map[string]any  `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		// A data member that is not an object is kept as an empty part so
		// the command extractor can reject it.
		var data map[string]any
		if json.Unmarshal(p.Data, &data) != nil {
			data = nil
		}
		return a2a.DataPart{Data: data, Metadata: p.Metadata}, nil
	case "file":
		normalized, err := withKind(raw, kind)
		if err != nil {
			return nil, err
		}
		var part a2a.FilePart
		if err := json.Unmarshal(normalized, &part); err != nil {
			return nil, err
		}
		return part, nil
	default:
		// Kept as an empty text part so the command extractor, not the
		// envelope decoder, rejects it and the task is recorded as failed.
		return a2a.TextPart{Metadata: map[string]any{MetaUnsupportedPartKind: kind}}, nil
	}
}

// withKind rewrites a legacy part so it carries "kind" instead of "type".
func withKind(raw json.RawMessage, kind string) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	delete(obj, "type")
	obj["kind"] = kind
	return json.Marshal(obj)
}
