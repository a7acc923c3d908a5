package anthropic

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/x/values"
)

// stream adapts the SDK event stream to gateway.Stream. Tool call
// input arrives as partial JSON fragments; they are buffered until the
// content block stops and then surfaced as one assembled call.
type stream struct {
	inner *ssestream.Stream[anthropic.MessageStreamEventUnion]

	toolCall *chatmodel.ToolCallRequest
	argsBuf  strings.Builder

	stopReason string
	usage      gateway.Usage
	ended      bool
}

var _ gateway.Stream = (*stream)(nil)

func newStream(inner *ssestream.Stream[anthropic.MessageStreamEventUnion]) *stream {
	return &stream{inner: inner}
}

// Next implements gateway.Stream.
func (s *stream) Next() (gateway.PartialEvent, error) {
	if s.ended {
		return nil, io.EOF
	}
	for s.inner.Next() {
		switch event := s.inner.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			s.usage.InputTokens = event.Message.Usage.InputTokens
		case anthropic.ContentBlockStartEvent:
			if block, ok := event.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				s.toolCall = &chatmodel.ToolCallRequest{
					CallID: values.StringsCoalesce(block.ID, chatmodel.NewCallID()),
					Name:   block.Name,
				}
				s.argsBuf.Reset()
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := event.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					return gateway.TextDelta{Text: delta.Text}, nil
				}
			case anthropic.InputJSONDelta:
				s.argsBuf.WriteString(delta.PartialJSON)
			}
		case anthropic.ContentBlockStopEvent:
			if s.toolCall != nil {
				call := *s.toolCall
				call.Arguments = json.RawMessage(values.StringsCoalesce(s.argsBuf.String(), "{}"))
				s.toolCall = nil
				return gateway.ToolCallAssembled{Request: call}, nil
			}
		case anthropic.MessageDeltaEvent:
			s.stopReason = values.StringsCoalesce(string(event.Delta.StopReason), s.stopReason)
			s.usage.OutputTokens = event.Usage.OutputTokens
		}
	}
	if err := s.inner.Err(); err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "anthropic: stream failed"), gateway.ErrUpstreamUnavailable)
	}
	s.ended = true
	return gateway.StreamEnd{StopReason: s.stopReason, Usage: s.usage}, nil
}

// Close implements gateway.Stream. It tears down the underlying SSE
// connection, which unblocks a pending Next.
func (s *stream) Close() error {
	return s.inner.Close()
}
