// Package echo provides a diagnostic tool that returns its input.
package echo

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/schema"
	"github.com/effective-security/toolchat/tools"
)

const ToolName = "echo"

// Request represents the tool input.
type Request struct {
	Text string `json:"text" jsonschema:"title=text,description=The text to echo back."`
}

// Response represents the tool output.
type Response struct {
	Text string `json:"text"`
}

// Tool echoes its input back. Useful for wiring checks and examples.
type Tool struct{}

var _ tools.Tool[Request, Response] = (*Tool)(nil)

func New() *Tool {
	return &Tool{}
}

// Declaration returns the tool configuration entry for this tool.
func Declaration() tools.Declaration {
	sc, _ := schema.New(reflect.TypeOf(Request{}))
	return tools.Declaration{
		Name:        ToolName,
		Description: "Echoes the provided text back to the caller.",
		Parameters:  sc.ParametersJSON(),
	}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Echoes the provided text back to the caller."
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Text: req.Text}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req Request
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", errors.WithMessage(tools.ErrFailedUnmarshalInput, err.Error())
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}
