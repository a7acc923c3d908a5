// Package llmutils provides small helpers for rendering values sent to
// or received from the model.
package llmutils

import (
	"encoding/json"
	"strings"
)

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func BackticksJSON(js string) string {
	return "\n```json\n" + strings.TrimSpace(js) + "\n```\n"
}

// JSONValue renders a tool output as a JSON value: raw output is kept when
// it already is valid JSON, otherwise it is encoded as a JSON string.
func JSONValue(out string) json.RawMessage {
	trimmed := strings.TrimSpace(out)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	js, _ := json.Marshal(out)
	return js
}
