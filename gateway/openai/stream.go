package openai

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/x/values"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

type toolCallBuilder struct {
	id   string
	name string
	args strings.Builder
}

// stream adapts the chunked completion stream to gateway.Stream. Tool
// call fragments are keyed by index and surfaced as assembled calls
// once the upstream stream completes.
type stream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]

	builders []*toolCallBuilder
	pending  []gateway.PartialEvent

	stopReason string
	usage      gateway.Usage
	drained    bool
}

var _ gateway.Stream = (*stream)(nil)

func newStream(inner *ssestream.Stream[openai.ChatCompletionChunk]) *stream {
	return &stream{inner: inner}
}

// Next implements gateway.Stream.
func (s *stream) Next() (gateway.PartialEvent, error) {
	if len(s.pending) > 0 {
		event := s.pending[0]
		s.pending = s.pending[1:]
		return event, nil
	}
	if s.drained {
		return nil, io.EOF
	}
	for s.inner.Next() {
		chunk := s.inner.Current()
		if chunk.Usage.TotalTokens > 0 {
			s.usage.InputTokens = chunk.Usage.PromptTokens
			s.usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			s.stopReason = choice.FinishReason
		}
		for _, fragment := range choice.Delta.ToolCalls {
			s.append(fragment)
		}
		if choice.Delta.Content != "" {
			return gateway.TextDelta{Text: choice.Delta.Content}, nil
		}
	}
	if err := s.inner.Err(); err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "openai: stream failed"), gateway.ErrUpstreamUnavailable)
	}

	s.drained = true
	for _, b := range s.builders {
		s.pending = append(s.pending, gateway.ToolCallAssembled{
			Request: chatmodel.ToolCallRequest{
				CallID:    values.StringsCoalesce(b.id, chatmodel.NewCallID()),
				Name:      b.name,
				Arguments: json.RawMessage(values.StringsCoalesce(b.args.String(), "{}")),
			},
		})
	}
	s.pending = append(s.pending, gateway.StreamEnd{StopReason: s.stopReason, Usage: s.usage})

	event := s.pending[0]
	s.pending = s.pending[1:]
	return event, nil
}

func (s *stream) append(fragment openai.ChatCompletionChunkChoiceDeltaToolCall) {
	idx := int(fragment.Index)
	for len(s.builders) <= idx {
		s.builders = append(s.builders, &toolCallBuilder{})
	}
	b := s.builders[idx]
	if fragment.ID != "" {
		b.id = fragment.ID
	}
	if fragment.Function.Name != "" {
		b.name = fragment.Function.Name
	}
	b.args.WriteString(fragment.Function.Arguments)
}

// Close implements gateway.Stream. It tears down the underlying SSE
// connection, which unblocks a pending Next.
func (s *stream) Close() error {
	return s.inner.Close()
}
