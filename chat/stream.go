package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
)

// Stream delivers the events of one streamed turn to a single
// consumer. The channel is closed after the terminal event, or after
// cancellation without one.
type Stream struct {
	events chan StreamEvent
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Events returns the event channel. It is closed when the turn
// finishes or is cancelled; events published after cancellation are
// dropped rather than delivered.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Cancel aborts the turn. It closes the upstream model stream and
// suppresses further events. Safe to call multiple times and after the
// turn already finished.
func (s *Stream) Cancel() {
	s.cancel()
}

// publish delivers an event unless the stream is cancelled. The
// ctx check makes the post-cancel drop deterministic even when the
// channel has free capacity.
func (s *Stream) publish(event StreamEvent) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- event:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Stream) close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}

// StreamTurn runs one streamed turn over the given history. It returns
// immediately; events arrive on the returned Stream. The turn runs
// until Done or Failed is delivered, the caller cancels, or ctx is
// cancelled.
func (o *Orchestrator) StreamTurn(ctx context.Context, history []chatmodel.Turn) (*Stream, error) {
	if len(history) == 0 {
		return nil, errors.New("empty history")
	}
	streamCtx, cancel := context.WithCancel(ctx)
	st := &Stream{
		events: make(chan StreamEvent, o.cfg.eventBuffer),
		ctx:    streamCtx,
		cancel: cancel,
	}
	go o.runStream(st, o.withSystemPrompt(history))
	return st, nil
}

func (o *Orchestrator) runStream(st *Stream, turns []chatmodel.Turn) {
	started := time.Now()
	model := o.gw.GetName()
	defer st.close()
	defer st.cancel()
	defer metricskey.PerfChatTurn.MeasureSince(started, model)

	specs := o.registry.ListSpecs()
	var text strings.Builder
	var usage gateway.Usage

	call, err := o.streamPhase(st, turns, specs, &text, &usage)
	if err != nil {
		o.finishFailed(st, err)
		return
	}
	if call == nil {
		o.finishDone(st, text.String(), usage)
		return
	}

	binding, err := o.registry.Resolve(call.Name)
	if err != nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, call.Name)
		o.finishFailed(st, errors.WithMessagef(err, "call %s", call.CallID))
		return
	}
	if !st.publish(ToolInvoked{Call: *call}) {
		o.finishCancelled(st)
		return
	}

	// A cancel during execution lets the tool finish, then drops the
	// result at publish.
	result := o.executor.Execute(context.WithoutCancel(st.ctx), binding, *call)
	if !st.publish(ToolCompleted{Result: result}) {
		o.finishCancelled(st)
		return
	}

	turns = append(turns,
		newAssistantTurn(text.String(), *call),
		chatmodel.TurnFromToolResult(result),
	)
	extraCall, err := o.streamPhase(st, turns, specs, &text, &usage)
	if err != nil {
		o.finishFailed(st, err)
		return
	}
	if extraCall != nil {
		logger.ContextKV(st.ctx, xlog.WARNING,
			"status", "tool_call_limit_reached",
			"tool", extraCall.Name,
			"call_id", extraCall.CallID,
		)
	}
	o.finishDone(st, text.String(), usage)
}

// streamPhase runs one model call, forwarding text deltas to the
// consumer and returning the assembled tool call, if any.
func (o *Orchestrator) streamPhase(
	st *Stream,
	turns []chatmodel.Turn,
	specs []tools.Spec,
	text *strings.Builder,
	usage *gateway.Usage,
) (*chatmodel.ToolCallRequest, error) {
	started := time.Now()
	model := o.gw.GetName()
	defer metricskey.PerfGatewayCall.MeasureSince(started, model)

	upstream, err := o.gw.Stream(st.ctx, turns, specs)
	if err != nil {
		metricskey.StatsGatewayCallsFailed.IncrCounter(1, model)
		return nil, err
	}
	defer upstream.Close()

	var call *chatmodel.ToolCallRequest
	for {
		event, err := upstream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if st.ctx.Err() != nil {
				return nil, errors.WithStack(st.ctx.Err())
			}
			metricskey.StatsGatewayCallsFailed.IncrCounter(1, model)
			return nil, err
		}
		switch ev := event.(type) {
		case gateway.TextDelta:
			text.WriteString(ev.Text)
			if !st.publish(TextDelta{Text: ev.Text}) {
				return nil, errors.WithStack(context.Canceled)
			}
		case gateway.ToolCallAssembled:
			if call == nil {
				c := ev.Request
				call = &c
			} else {
				logger.ContextKV(st.ctx, xlog.WARNING,
					"status", "extra_tool_call_ignored",
					"tool", ev.Request.Name,
				)
			}
		case gateway.StreamEnd:
			usage.Add(ev.Usage)
		}
	}
	return call, nil
}

func (o *Orchestrator) finishDone(st *Stream, text string, usage gateway.Usage) {
	model := o.gw.GetName()
	if !st.publish(Done{Text: text, Usage: usage}) {
		o.finishCancelled(st)
		return
	}
	metricskey.StatsChatTurnsSucceeded.IncrCounter(1, model)
}

func (o *Orchestrator) finishFailed(st *Stream, err error) {
	model := o.gw.GetName()
	if errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
		o.finishCancelled(st)
		return
	}
	logger.ContextKV(st.ctx, xlog.ERROR,
		"status", "turn_failed",
		"model", model,
		"err", err.Error(),
	)
	metricskey.StatsChatTurnsFailed.IncrCounter(1, model)
	st.publish(Failed{Err: err})
}

func (o *Orchestrator) finishCancelled(st *Stream) {
	metricskey.StatsChatTurnsCancelled.IncrCounter(1, o.gw.GetName())
}
