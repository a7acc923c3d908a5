package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/toolchat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchInput struct {
	Query string `json:"query" jsonschema:"title=query,description=The search query."`
	Limit int    `json:"limit,omitempty" jsonschema:"title=limit"`
}

func Test_New(t *testing.T) {
	sc, err := schema.New(reflect.TypeOf(searchInput{}))
	require.NoError(t, err)
	require.NotNil(t, sc.Parameters)

	js := string(sc.ParametersJSON())
	assert.Contains(t, js, `"query"`)
	assert.Contains(t, js, `"limit"`)
	assert.Contains(t, js, `"required":["query"]`)
	assert.Contains(t, js, `"type":"object"`)

	// cached on second reflection
	sc2, err := schema.New(reflect.TypeOf(searchInput{}))
	require.NoError(t, err)
	assert.Same(t, sc, sc2)
}

func Test_FromAny(t *testing.T) {
	sc, err := schema.FromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "object", sc.Type)

	assert.NotPanics(t, func() {
		schema.MustFromAny(map[string]any{"type": "object"})
	})
}
