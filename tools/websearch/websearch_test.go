package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Tool(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "testkey")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req tavilyModels.SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "What is capital of France", req.Query)

		resp := websearch.SearchResult{
			Results: []tavilyModels.SearchResult{
				{Title: "Test Result", URL: "https://example.com", Content: "Test content", Score: 0.9},
			},
		}
		if req.IncludeAnswer {
			resp.Answer = "Paris"
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	ctx := context.Background()

	tool, err := websearch.New()
	require.NoError(t, err)
	tool.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	assert.Equal(t, websearch.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "web search")

	_, err = tool.Call(ctx, "plain string")
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))

	_, err = tool.Run(ctx, &websearch.SearchRequest{})
	assert.EqualError(t, err, "invalid request: empty query")

	resp, err := tool.Run(ctx, &websearch.SearchRequest{Query: "What is capital of France"})
	require.NoError(t, err)
	assert.Equal(t, "Paris", resp.Answer)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Test Result", resp.Results[0].Title)
}

func Test_New_RequiresKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	_, err := websearch.New()
	require.Error(t, err)
}

func Test_Declaration(t *testing.T) {
	decl := websearch.Declaration()
	assert.Equal(t, websearch.ToolName, decl.Name)
	assert.Contains(t, string(decl.Parameters), `"query"`)
}
