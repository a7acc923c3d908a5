// Package chatmodel defines the conversation data model shared by the
// registry, the model gateway and the orchestrator: turns with typed
// content parts, tool call requests and their results.
package chatmodel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the type of a conversation turn.
type Role string

const (
	// RoleUser is a turn sent by the user.
	RoleUser Role = "user"
	// RoleAssistant is a turn produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool is a turn carrying a tool execution result.
	RoleTool Role = "tool"
	// RoleSystem is the system prompt turn.
	RoleSystem Role = "system"
)

// Turn is one element of the model-visible history. It has a role and a
// sequence of parts. History is built per request and discarded once the
// response is finalized.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is an interface all turn content parts implement.
type Part interface {
	isPart()
}

// TextContent is a part with plain text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isPart() {}

// ToolCallRequest is a model-issued request to invoke a tool.
// CallID is opaque and must be echoed back unchanged in the ToolResult
// so the model can correlate the two.
type ToolCallRequest struct {
	// CallID is the unique identifier of the tool call.
	CallID string `json:"call_id"`
	// Name is the name of the tool to invoke.
	Name string `json:"name"`
	// Arguments is the call input, as a JSON object.
	Arguments json.RawMessage `json:"arguments"`
}

func (tc ToolCallRequest) String() string {
	return fmt.Sprintf("ToolCallRequest: %s (%s), arguments: %s", tc.CallID, tc.Name, string(tc.Arguments))
}

func (ToolCallRequest) isPart() {}

// ToolResult is the outcome of a tool call. Exactly one of Value or Error
// is set. A result is submitted at most once per CallID.
type ToolResult struct {
	// CallID matches the CallID of the originating ToolCallRequest.
	CallID string `json:"call_id"`
	// Name is the name of the tool that was called.
	Name string `json:"name"`
	// Value is the tool output, as a JSON value.
	Value json.RawMessage `json:"value,omitempty"`
	// Error describes a tool-level failure folded into the conversation.
	Error *ErrorDescriptor `json:"error,omitempty"`
}

func (tr ToolResult) String() string {
	return fmt.Sprintf("ToolResult: %s (%s), response size: %d", tr.CallID, tr.Name, len(tr.Content()))
}

func (ToolResult) isPart() {}

// Content renders the result as the text submitted back to the model.
func (tr ToolResult) Content() string {
	if tr.Error != nil {
		return fmt.Sprintf("Tool call failed (%s): %s", tr.Error.Kind, tr.Error.Message)
	}
	return string(tr.Value)
}

// IsError reports whether the result carries an ErrorDescriptor.
func (tr ToolResult) IsError() bool {
	return tr.Error != nil
}

// TurnFromText creates a Turn with a role and a list of text parts.
func TurnFromText(role Role, parts ...string) Turn {
	result := Turn{
		Role:  role,
		Parts: make([]Part, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, TextContent{Text: part})
	}
	return result
}

// TurnFromToolCall creates an assistant Turn carrying a tool call request.
func TurnFromToolCall(call ToolCallRequest) Turn {
	return Turn{
		Role:  RoleAssistant,
		Parts: []Part{call},
	}
}

// TurnFromToolResult creates a tool Turn carrying a tool result.
func TurnFromToolResult(result ToolResult) Turn {
	return Turn{
		Role:  RoleTool,
		Parts: []Part{result},
	}
}

// GetContent returns the textual content of the turn.
func (t Turn) GetContent() string {
	var buf strings.Builder
	for i, p := range t.Parts {
		if i > 0 {
			buf.WriteString("\n")
		}
		switch typ := p.(type) {
		case TextContent:
			buf.WriteString(typ.Text)
		case ToolCallRequest:
			buf.WriteString(typ.String())
		case ToolResult:
			buf.WriteString(typ.Content())
		}
	}
	return buf.String()
}

// ToolCall returns the tool call request carried by the turn, if any.
func (t Turn) ToolCall() *ToolCallRequest {
	for _, p := range t.Parts {
		if call, ok := p.(ToolCallRequest); ok {
			return &call
		}
	}
	return nil
}

// NewCallID generates a call ID for providers that omit one.
func NewCallID() string {
	return "call_" + uuid.NewString()
}

// Interface compliance checks.
var (
	_ Part = TextContent{}
	_ Part = ToolCallRequest{}
	_ Part = ToolResult{}
)
