package llmutils_test

import (
	"testing"

	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_BackticksJSON(t *testing.T) {
	out := llmutils.BackticksJSON(llmutils.ToJSONIndent(map[string]string{"a": "b"}))
	assert.Equal(t, "\n```json\n{\n\t\"a\": \"b\"\n}\n```\n", out)
}

func Test_JSONValue(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(llmutils.JSONValue(`{"a":1}`)))
	assert.Equal(t, `[1,2]`, string(llmutils.JSONValue(" [1,2] ")))
	assert.Equal(t, `"plain text"`, string(llmutils.JSONValue("plain text")))
	assert.Equal(t, `""`, string(llmutils.JSONValue("")))
}
