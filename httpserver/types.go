package httpserver

import "encoding/json"

// ChatMessage is one element of a client-supplied conversation.
// Only user, assistant and system roles are accepted; tool turns are
// produced server-side.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the body of POST /v1/chat and /v1/chat/stream.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`
}

// Usage reports token accounting for the turn.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ChatResponse is the buffered response of POST /v1/chat.
type ChatResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// ErrorResponse carries an error back to the client.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SSE event type names.
const (
	EventTextDelta     = "text_delta"
	EventToolInvoked   = "tool_invoked"
	EventToolCompleted = "tool_completed"
	EventDone          = "done"
	EventFailed        = "failed"
)

// StreamChunk is one SSE data payload of POST /v1/chat/stream.
// Type selects which of the optional fields are set.
type StreamChunk struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	CallID    string          `json:"call_id,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    string          `json:"result,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	Usage *Usage `json:"usage,omitempty"`
	Error string `json:"error,omitempty"`
}
