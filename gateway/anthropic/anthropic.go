// Package anthropic implements gateway.Gateway on top of the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "anthropic")

const defaultModel = "claude-sonnet-4-5"

// Gateway is the Anthropic implementation of gateway.Gateway.
type Gateway struct {
	client *anthropic.Client
	opts   *Options
}

var _ gateway.Gateway = (*Gateway)(nil)

// New returns a Gateway backed by the Anthropic Messages API.
func New(opts ...Option) (*Gateway, error) {
	options := &Options{
		Token: os.Getenv(TokenEnvVarName),
		Model: defaultModel,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Token == "" {
		return nil, errors.Newf("missing token: set %s or provide one explicitly", TokenEnvVarName)
	}

	clientOptions := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(5 * time.Minute),
	}
	if options.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(options.BaseURL))
	}
	if options.HttpClient != nil {
		clientOptions = append(clientOptions, option.WithHTTPClient(options.HttpClient))
	}
	if options.AnthropicBetaHeader != "" {
		clientOptions = append(clientOptions, option.WithHeader("anthropic-beta", options.AnthropicBetaHeader))
	}

	client := anthropic.NewClient(clientOptions...)
	return &Gateway{
		client: &client,
		opts:   options,
	}, nil
}

// GetName implements gateway.Gateway.
func (g *Gateway) GetName() string {
	return "anthropic"
}

// Complete implements gateway.Gateway.
func (g *Gateway) Complete(ctx context.Context, history []chatmodel.Turn, specs []tools.Spec) (*gateway.Completion, error) {
	params, err := g.newParams(history, specs)
	if err != nil {
		return nil, err
	}

	result, err := g.client.Messages.New(ctx, *params)
	if err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "anthropic: failed to create message"), gateway.ErrUpstreamUnavailable)
	}
	if len(result.Content) == 0 {
		return nil, errors.Mark(errors.New("anthropic: empty content in response"), gateway.ErrUpstreamProtocol)
	}

	completion := &gateway.Completion{
		StopReason: string(result.StopReason),
		Usage: gateway.Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, content := range result.Content {
		switch block := content.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			if completion.ToolCall != nil {
				logger.ContextKV(ctx, xlog.WARNING,
					"status", "extra_tool_use_ignored",
					"tool", block.Name,
				)
				continue
			}
			completion.ToolCall = &chatmodel.ToolCallRequest{
				CallID:    values.StringsCoalesce(block.ID, chatmodel.NewCallID()),
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			}
		default:
			return nil, errors.Mark(errors.Newf("anthropic: unsupported content type: %s", content.Type), gateway.ErrUpstreamProtocol)
		}
	}
	completion.Text = text.String()

	return completion, nil
}

// Stream implements gateway.Gateway.
func (g *Gateway) Stream(ctx context.Context, history []chatmodel.Turn, specs []tools.Spec) (gateway.Stream, error) {
	params, err := g.newParams(history, specs)
	if err != nil {
		return nil, err
	}
	return newStream(g.client.Messages.NewStreaming(ctx, *params)), nil
}

func (g *Gateway) newParams(history []chatmodel.Turn, specs []tools.Spec) (*anthropic.MessageNewParams, error) {
	messages, systemPrompt, err := processTurns(history)
	if err != nil {
		return nil, err
	}

	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(g.opts.Model),
		Messages:  messages,
		MaxTokens: int64(values.NumbersCoalesce(g.opts.MaxTokens, 4096)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		}
	}
	if g.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(g.opts.Temperature)
	}
	if len(specs) > 0 {
		toolList, err := toTools(specs)
		if err != nil {
			return nil, err
		}
		params.Tools = toolList
	}
	return params, nil
}

func processTurns(history []chatmodel.Turn) ([]anthropic.MessageParam, string, error) {
	messages := make([]anthropic.MessageParam, 0, len(history))
	var systemPrompt string
	for _, turn := range history {
		switch turn.Role {
		case chatmodel.RoleSystem:
			systemPrompt = turn.GetContent()
		case chatmodel.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(turn.GetContent()),
			))
		case chatmodel.RoleAssistant:
			msg, err := assistantMessage(turn)
			if err != nil {
				return nil, "", err
			}
			messages = append(messages, msg)
		case chatmodel.RoleTool:
			msg, err := toolMessage(turn)
			if err != nil {
				return nil, "", err
			}
			messages = append(messages, msg)
		default:
			return nil, "", errors.Newf("anthropic: unsupported role: %s", turn.Role)
		}
	}
	return messages, systemPrompt, nil
}

func assistantMessage(turn chatmodel.Turn) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Parts))
	for _, part := range turn.Parts {
		switch p := part.(type) {
		case chatmodel.TextContent:
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
		case chatmodel.ToolCallRequest:
			blocks = append(blocks, anthropic.NewToolUseBlock(p.CallID, p.Arguments, p.Name))
		default:
			return anthropic.MessageParam{}, errors.Newf("anthropic: unsupported assistant part: %T", part)
		}
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock(""))
	}
	return anthropic.NewAssistantMessage(blocks...), nil
}

func toolMessage(turn chatmodel.Turn) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Parts))
	for _, part := range turn.Parts {
		p, ok := part.(chatmodel.ToolResult)
		if !ok {
			return anthropic.MessageParam{}, errors.Newf("anthropic: unsupported tool part: %T", part)
		}
		blocks = append(blocks, anthropic.NewToolResultBlock(p.CallID, p.Content(), p.IsError()))
	}
	return anthropic.NewUserMessage(blocks...), nil
}

func toTools(specs []tools.Spec) ([]anthropic.ToolUnionParam, error) {
	toolList := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		var parameters struct {
			Type       string         `json:"type"`
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if err := json.Unmarshal(spec.ParametersJSON(), &parameters); err != nil {
			return nil, errors.WithMessagef(err, "anthropic: invalid parameters for tool %q", spec.Name)
		}
		toolList = append(toolList, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: parameters.Properties,
					Required:   parameters.Required,
				},
			},
		})
	}
	return toolList, nil
}
