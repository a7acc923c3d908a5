package llmfactory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/toolchat/llmfactory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "toolchat.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func Test_LoadConfig(t *testing.T) {
	t.Setenv("TEST_LLM_TOKEN", "secret-token")
	file := writeConfig(t, `
provider: ANTHROPIC
model: claude-test
token: ${TEST_LLM_TOKEN}
max_tokens: 1024
temperature: 0.2
system_prompt: You are helpful.
tool_timeout: 45s
`)
	cfg, err := llmfactory.LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "ANTHROPIC", cfg.Provider)
	assert.Equal(t, "claude-test", cfg.Model)
	// environment variables are expanded
	assert.Equal(t, "secret-token", cfg.Token)
	assert.Equal(t, 1024, cfg.MaxTokens)
	assert.Equal(t, "45s", cfg.ToolTimeout)
}

func Test_LoadConfig_Invalid(t *testing.T) {
	tcases := []struct {
		name    string
		content string
	}{
		{
			name:    "missing model",
			content: "provider: OPENAI\n",
		},
		{
			name:    "unsupported provider",
			content: "provider: BEDROCK\nmodel: titan\n",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := llmfactory.LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func Test_New(t *testing.T) {
	gw, err := llmfactory.New(&llmfactory.Config{
		Provider: "ANTHROPIC",
		Model:    "claude-test",
		Token:    "test-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", gw.GetName())

	gw, err = llmfactory.New(&llmfactory.Config{
		Provider: "OPENAI",
		Model:    "gpt-test",
		Token:    "test-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", gw.GetName())

	_, err = llmfactory.New(&llmfactory.Config{
		Provider: "BEDROCK",
		Model:    "titan",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}
