package chatmodel_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/effective-security/toolchat/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TurnFromText(t *testing.T) {
	turn := chatmodel.TurnFromText(chatmodel.RoleUser, "hello", "world")
	assert.Equal(t, chatmodel.RoleUser, turn.Role)
	require.Len(t, turn.Parts, 2)
	assert.Equal(t, "hello\nworld", turn.GetContent())
}

func Test_Turn_ToolCall(t *testing.T) {
	call := chatmodel.ToolCallRequest{
		CallID:    "call_1",
		Name:      "websearch",
		Arguments: json.RawMessage(`{"query":"go"}`),
	}
	turn := chatmodel.TurnFromToolCall(call)
	assert.Equal(t, chatmodel.RoleAssistant, turn.Role)
	got := turn.ToolCall()
	require.NotNil(t, got)
	assert.Equal(t, "call_1", got.CallID)
	assert.Equal(t, "websearch", got.Name)

	plain := chatmodel.TurnFromText(chatmodel.RoleUser, "hi")
	assert.Nil(t, plain.ToolCall())
}

func Test_ToolResult_Content(t *testing.T) {
	ok := chatmodel.ToolResult{
		CallID: "call_1",
		Name:   "echo",
		Value:  json.RawMessage(`{"text":"hi"}`),
	}
	assert.False(t, ok.IsError())
	assert.Equal(t, `{"text":"hi"}`, ok.Content())

	failed := chatmodel.ToolResult{
		CallID: "call_2",
		Name:   "echo",
		Error: &chatmodel.ErrorDescriptor{
			Kind:    chatmodel.KindTimeout,
			Message: "deadline exceeded",
		},
	}
	assert.True(t, failed.IsError())
	assert.Equal(t, "Tool call failed (timeout): deadline exceeded", failed.Content())
}

func Test_TurnFromToolResult(t *testing.T) {
	result := chatmodel.ToolResult{
		CallID: "call_1",
		Name:   "echo",
		Value:  json.RawMessage(`"ok"`),
	}
	turn := chatmodel.TurnFromToolResult(result)
	assert.Equal(t, chatmodel.RoleTool, turn.Role)
	assert.Equal(t, `"ok"`, turn.GetContent())
}

func Test_NewCallID(t *testing.T) {
	id1 := chatmodel.NewCallID()
	id2 := chatmodel.NewCallID()
	assert.True(t, strings.HasPrefix(id1, "call_"))
	assert.NotEqual(t, id1, id2)
}
