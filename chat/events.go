package chat

import (
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
)

// StreamEvent is an item delivered on a Stream's channel. The sequence
// for a turn is zero or more TextDelta events, optionally interleaved
// with one ToolInvoked/ToolCompleted pair, terminated by exactly one
// Done or Failed.
type StreamEvent interface {
	isStreamEvent()
}

// TextDelta carries an ordered fragment of assistant text.
type TextDelta struct {
	Text string
}

func (TextDelta) isStreamEvent() {}

// ToolInvoked signals that a requested tool call is about to execute.
type ToolInvoked struct {
	Call chatmodel.ToolCallRequest
}

func (ToolInvoked) isStreamEvent() {}

// ToolCompleted carries the result of the executed tool call,
// successful or failed.
type ToolCompleted struct {
	Result chatmodel.ToolResult
}

func (ToolCompleted) isStreamEvent() {}

// Done terminates a successful turn. Text is the accumulated final
// response and Usage aggregates token counts across all model calls in
// the turn.
type Done struct {
	Text  string
	Usage gateway.Usage
}

func (Done) isStreamEvent() {}

// Failed terminates a turn that could not complete.
type Failed struct {
	Err error
}

func (Failed) isStreamEvent() {}

// Interface compliance checks.
var (
	_ StreamEvent = TextDelta{}
	_ StreamEvent = ToolInvoked{}
	_ StreamEvent = ToolCompleted{}
	_ StreamEvent = Done{}
	_ StreamEvent = Failed{}
)
