// Package gateway defines the contract to the remote chat model: send a
// conversation plus tool declarations, receive either plain text or a
// tool-invocation request, in buffered or incremental form. The gateway
// performs no tool logic; it is a pure translation boundary between the
// provider wire format and the chatmodel data model.
package gateway

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/tools"
)

//go:generate mockgen -source=gateway.go -destination=../mocks/mockgateway/gateway_mock.gen.go -package mockgateway

var (
	// ErrUpstreamUnavailable indicates a network or auth failure reaching
	// the model provider. Not retried by the gateway; surfaced to the caller.
	ErrUpstreamUnavailable = errors.New("model upstream unavailable")
	// ErrUpstreamProtocol indicates a malformed provider response.
	ErrUpstreamProtocol = errors.New("model upstream protocol error")
)

// Usage reports token accounting for one model call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Add accumulates usage across model calls.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Completion is the buffered outcome of one model call: either plain text
// or a request to invoke a tool.
type Completion struct {
	Text       string
	ToolCall   *chatmodel.ToolCallRequest
	StopReason string
	Usage      Usage
}

// IsToolCall reports whether the model chose to invoke a tool.
func (c *Completion) IsToolCall() bool {
	return c.ToolCall != nil
}

// PartialEvent is a sealed interface over the incremental events of one
// streamed model call. The unexported marker method prevents external
// implementations.
type PartialEvent interface {
	partialEvent()
}

// TextDelta is an incremental piece of the reply text.
type TextDelta struct {
	Text string
}

func (TextDelta) partialEvent() {}

// ToolCallAssembled is emitted once the provider has fully assembled a
// tool-invocation request, arguments included.
type ToolCallAssembled struct {
	Request chatmodel.ToolCallRequest
}

func (ToolCallAssembled) partialEvent() {}

// StreamEnd is the final event of a well-formed stream.
type StreamEnd struct {
	StopReason string
	Usage      Usage
}

func (StreamEnd) partialEvent() {}

// Interface compliance checks.
var (
	_ PartialEvent = TextDelta{}
	_ PartialEvent = ToolCallAssembled{}
	_ PartialEvent = StreamEnd{}
)

// Stream is a pull-based iterator over PartialEvents. Next returns io.EOF
// after StreamEnd. Close tears down the upstream connection; a consumer
// that stops early must call it so no further tokens are fetched.
type Stream interface {
	Next() (PartialEvent, error)
	Close() error
}

// Gateway is the model provider contract.
type Gateway interface {
	// GetName returns the provider name, for logs and metrics.
	GetName() string
	// Complete performs one buffered model call.
	Complete(ctx context.Context, history []chatmodel.Turn, specs []tools.Spec) (*Completion, error)
	// Stream performs one incremental model call. Cancelling ctx closes
	// the underlying connection.
	Stream(ctx context.Context, history []chatmodel.Turn, specs []tools.Spec) (Stream, error)
}
