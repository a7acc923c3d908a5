package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// DefaultExecuteTimeout bounds a single tool execution.
const DefaultExecuteTimeout = 30 * time.Second

// Executor runs bound tools. Failures never escape its boundary: bad
// arguments, implementation faults and timeouts all come back as a
// ToolResult carrying an ErrorDescriptor, so the model can react within
// the turn. A tool call is attempted exactly once.
type Executor struct {
	timeout  time.Duration
	callback Callback
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout overrides the default execution timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithCallback sets a tool lifecycle callback.
func WithCallback(cb Callback) ExecutorOption {
	return func(e *Executor) {
		e.callback = cb
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		timeout: DefaultExecuteTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates the arguments against the binding's declared schema
// and runs the implementation. The returned result always echoes the
// request's CallID.
func (e *Executor) Execute(ctx context.Context, b *Binding, call chatmodel.ToolCallRequest) chatmodel.ToolResult {
	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, b.Spec.Name)

	input := string(call.Arguments)
	if input == "" {
		input = "{}"
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return e.failed(ctx, b, call, input, chatmodel.KindInvalidArguments,
			errors.WithMessage(err, "arguments are not a JSON object"))
	}
	if err := b.ValidateArguments(args); err != nil {
		return e.failed(ctx, b, call, input, chatmodel.KindInvalidArguments, err)
	}

	if e.callback != nil {
		e.callback.OnToolStart(ctx, b.Tool, input)
	}

	out, err := e.invoke(ctx, b.Tool, input)
	if err != nil {
		kind := chatmodel.KindExecutionFailed
		if errors.Is(err, context.DeadlineExceeded) {
			kind = chatmodel.KindTimeout
		}
		return e.failed(ctx, b, call, input, kind, err)
	}

	if e.callback != nil {
		e.callback.OnToolEnd(ctx, b.Tool, input, out)
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, b.Spec.Name)

	return chatmodel.ToolResult{
		CallID: call.CallID,
		Name:   b.Spec.Name,
		Value:  llmutils.JSONValue(out),
	}
}

// invoke runs the tool body under the execution timeout. The body runs in
// its own goroutine so a stuck tool cannot wedge the turn; on timeout the
// goroutine is abandoned and its eventual result discarded.
func (e *Executor) invoke(ctx context.Context, tool ITool, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type callResult struct {
		out string
		err error
	}
	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: errors.Newf("tool panicked: %v", r)}
			}
		}()
		out, err := tool.Call(ctx, input)
		done <- callResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return "", errors.WithStack(ctx.Err())
	}
}

func (e *Executor) failed(ctx context.Context, b *Binding, call chatmodel.ToolCallRequest, input string, kind chatmodel.ErrorKind, err error) chatmodel.ToolResult {
	metricskey.StatsToolCallsFailed.IncrCounter(1, b.Spec.Name, string(kind))
	logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_call_failed",
		"tool", b.Spec.Name,
		"call_id", call.CallID,
		"kind", string(kind),
		"err", err.Error(),
	)
	if e.callback != nil {
		e.callback.OnToolError(ctx, b.Tool, input, err)
	}
	return chatmodel.ToolResult{
		CallID: call.CallID,
		Name:   b.Spec.Name,
		Error: &chatmodel.ErrorDescriptor{
			Kind:    kind,
			Message: err.Error(),
		},
	}
}
