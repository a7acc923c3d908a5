// Package openai implements gateway.Gateway on top of the OpenAI
// Chat Completions API.
package openai

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "openai")

const defaultModel = "gpt-5-mini"

// Gateway is the OpenAI implementation of gateway.Gateway.
type Gateway struct {
	client *openai.Client
	opts   *Options
}

var _ gateway.Gateway = (*Gateway)(nil)

// New returns a Gateway backed by the OpenAI Chat Completions API.
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
	if options.Organization != "" {
		clientOptions = append(clientOptions, option.WithOrganization(options.Organization))
	}
	if options.HttpClient != nil {
		clientOptions = append(clientOptions, option.WithHTTPClient(options.HttpClient))
	}

	client := openai.NewClient(clientOptions...)
	return &Gateway{
		client: &client,
		opts:   options,
	}, nil
}

// GetName implements gateway.Gateway.
func (g *Gateway) GetName() string {
	return "openai"
}

// Complete implements gateway.Gateway.
func (g *Gateway) Complete(ctx context.Context, history []chatmodel.Turn, specs []tools.Spec) (*gateway.Completion, error) {
	params, err := g.newParams(history, specs)
	if err != nil {
		return nil, err
	}

	result, err := g.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "openai: failed to create completion"), gateway.ErrUpstreamUnavailable)
	}
	if len(result.Choices) == 0 {
		return nil, errors.Mark(errors.New("openai: empty choices in response"), gateway.ErrUpstreamProtocol)
	}

	choice := result.Choices[0]
	completion := &gateway.Completion{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: gateway.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}
	for _, call := range choice.Message.ToolCalls {
		if completion.ToolCall != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "extra_tool_call_ignored",
				"tool", call.Function.Name,
			)
			continue
		}
		completion.ToolCall = &chatmodel.ToolCallRequest{
			CallID:    values.StringsCoalesce(call.ID, chatmodel.NewCallID()),
			Name:      call.Function.Name,
			Arguments: json.RawMessage(values.StringsCoalesce(call.Function.Arguments, "{}")),
		}
	}

	return completion, nil
}

// Stream implements gateway.Gateway.
func (g *Gateway) Stream(ctx context.Context, history []chatmodel.Turn, specs []tools.Spec) (gateway.Stream, error) {
	params, err := g.newParams(history, specs)
	if err != nil {
		return nil, err
	}
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	return newStream(g.client.Chat.Completions.NewStreaming(ctx, *params)), nil
}

func (g *Gateway) newParams(history []chatmodel.Turn, specs []tools.Spec) (*openai.ChatCompletionNewParams, error) {
	messages, err := processTurns(history)
	if err != nil {
		return nil, err
	}

	params := &openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(g.opts.Model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(values.NumbersCoalesce(g.opts.MaxTokens, 4096))),
	}
	if g.opts.Temperature > 0 {
		params.Temperature = openai.Float(g.opts.Temperature)
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

func processTurns(history []chatmodel.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case chatmodel.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.GetContent()))
		case chatmodel.RoleUser:
			messages = append(messages, openai.UserMessage(turn.GetContent()))
		case chatmodel.RoleAssistant:
			msg, err := assistantMessage(turn)
			if err != nil {
				return nil, err
			}
			messages = append(messages, msg)
		case chatmodel.RoleTool:
			for _, part := range turn.Parts {
				p, ok := part.(chatmodel.ToolResult)
				if !ok {
					return nil, errors.Newf("openai: unsupported tool part: %T", part)
				}
				messages = append(messages, openai.ToolMessage(p.Content(), p.CallID))
			}
		default:
			return nil, errors.Newf("openai: unsupported role: %s", turn.Role)
		}
	}
	return messages, nil
}

func assistantMessage(turn chatmodel.Turn) (openai.ChatCompletionMessageParamUnion, error) {
	var text string
	var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
	for _, part := range turn.Parts {
		switch p := part.(type) {
		case chatmodel.TextContent:
			text += p.Text
		case chatmodel.ToolCallRequest:
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: p.CallID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      p.Name,
						Arguments: string(p.Arguments),
					},
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, errors.Newf("openai: unsupported assistant part: %T", part)
		}
	}
	if len(toolCalls) == 0 {
		return openai.AssistantMessage(text), nil
	}
	msg := openai.ChatCompletionAssistantMessageParam{
		ToolCalls: toolCalls,
	}
	if text != "" {
		msg.Content.OfString = openai.String(text)
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}, nil
}

func toTools(specs []tools.Spec) ([]openai.ChatCompletionToolUnionParam, error) {
	toolList := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		var parameters map[string]any
		if err := json.Unmarshal(spec.ParametersJSON(), &parameters); err != nil {
			return nil, errors.WithMessagef(err, "openai: invalid parameters for tool %q", spec.Name)
		}
		toolList = append(toolList, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  shared.FunctionParameters(parameters),
		}))
	}
	return toolList, nil
}
