package openai

import (
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Stream_AppendToolCallFragments(t *testing.T) {
	s := &stream{}

	var first openai.ChatCompletionChunkChoiceDeltaToolCall
	first.Index = 0
	first.ID = "call_1"
	first.Function.Name = "search"
	first.Function.Arguments = `{"query":`
	s.append(first)

	// Continuation fragments carry only the next slice of arguments.
	var second openai.ChatCompletionChunkChoiceDeltaToolCall
	second.Index = 0
	second.Function.Arguments = `"go"}`
	s.append(second)

	var other openai.ChatCompletionChunkChoiceDeltaToolCall
	other.Index = 1
	other.ID = "call_2"
	other.Function.Name = "echo"
	other.Function.Arguments = `{}`
	s.append(other)

	require.Len(t, s.builders, 2)
	assert.Equal(t, "call_1", s.builders[0].id)
	assert.Equal(t, "search", s.builders[0].name)
	assert.JSONEq(t, `{"query":"go"}`, s.builders[0].args.String())
	assert.Equal(t, "call_2", s.builders[1].id)
	assert.Equal(t, "echo", s.builders[1].name)
}
