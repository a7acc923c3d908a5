// Package chat runs tool-augmented conversation turns: it drives the
// model gateway, executes at most one tool call per turn and folds the
// result back into the conversation before the final completion.
package chat

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "chat")

// Orchestrator coordinates one conversation turn at a time. It is
// stateless between turns and safe for concurrent use.
type Orchestrator struct {
	gw       gateway.Gateway
	registry *tools.Registry
	executor *tools.Executor
	cfg      config
}

// New creates an Orchestrator over the given gateway and tool registry.
func New(gw gateway.Gateway, registry *tools.Registry, opts ...Option) *Orchestrator {
	cfg := config{
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	var execOpts []tools.ExecutorOption
	if cfg.toolTimeout > 0 {
		execOpts = append(execOpts, tools.WithTimeout(cfg.toolTimeout))
	}
	if cfg.callback != nil {
		execOpts = append(execOpts, tools.WithCallback(cfg.callback))
	}
	return &Orchestrator{
		gw:       gw,
		registry: registry,
		executor: tools.NewExecutor(execOpts...),
		cfg:      cfg,
	}
}

// Provider returns the gateway name serving this orchestrator.
func (o *Orchestrator) Provider() string {
	return o.gw.GetName()
}

// ToolNames returns the registered tool names in declaration order.
func (o *Orchestrator) ToolNames() []string {
	return o.registry.Names()
}

// Result is the buffered outcome of a completed turn.
type Result struct {
	// Text is the final assistant response.
	Text string
	// Turns are the turns produced during the exchange, in order: the
	// assistant turn, the tool turn when a tool was called, and the
	// final assistant turn. Callers append them to their history.
	Turns []chatmodel.Turn
	// Usage aggregates token counts across all model calls in the turn.
	Usage gateway.Usage
}

// CompleteTurn runs one buffered turn over the given history. The
// history must not be empty. At most one tool call is honored; if the
// follow-up completion requests another, it is logged and the text is
// returned as final.
func (o *Orchestrator) CompleteTurn(ctx context.Context, history []chatmodel.Turn) (*Result, error) {
	started := time.Now()
	model := o.gw.GetName()
	defer metricskey.PerfChatTurn.MeasureSince(started, model)

	res, err := o.completeTurn(ctx, history)
	if err != nil {
		if errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
			metricskey.StatsChatTurnsCancelled.IncrCounter(1, model)
		} else {
			metricskey.StatsChatTurnsFailed.IncrCounter(1, model)
		}
		return nil, err
	}
	metricskey.StatsChatTurnsSucceeded.IncrCounter(1, model)
	return res, nil
}

func (o *Orchestrator) completeTurn(ctx context.Context, history []chatmodel.Turn) (*Result, error) {
	if len(history) == 0 {
		return nil, errors.New("empty history")
	}
	turns := o.withSystemPrompt(history)
	specs := o.registry.ListSpecs()

	first, err := o.complete(ctx, turns, specs)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Usage: first.Usage,
	}
	if first.ToolCall == nil {
		res.Text = first.Text
		res.Turns = []chatmodel.Turn{chatmodel.TurnFromText(chatmodel.RoleAssistant, first.Text)}
		return res, nil
	}

	call := *first.ToolCall
	assistantTurn := newAssistantTurn(first.Text, call)

	binding, err := o.registry.Resolve(call.Name)
	if err != nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, call.Name)
		return nil, errors.WithMessagef(err, "call %s", call.CallID)
	}

	result := o.executor.Execute(ctx, binding, call)
	if ctx.Err() != nil {
		return nil, errors.WithStack(ctx.Err())
	}
	toolTurn := chatmodel.TurnFromToolResult(result)

	turns = append(turns, assistantTurn, toolTurn)
	second, err := o.complete(ctx, turns, specs)
	if err != nil {
		return nil, err
	}
	res.Usage.Add(second.Usage)
	if second.ToolCall != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_limit_reached",
			"tool", second.ToolCall.Name,
			"call_id", second.ToolCall.CallID,
		)
	}
	res.Text = second.Text
	res.Turns = []chatmodel.Turn{
		assistantTurn,
		toolTurn,
		chatmodel.TurnFromText(chatmodel.RoleAssistant, second.Text),
	}
	return res, nil
}

func (o *Orchestrator) complete(ctx context.Context, turns []chatmodel.Turn, specs []tools.Spec) (*gateway.Completion, error) {
	started := time.Now()
	model := o.gw.GetName()
	defer metricskey.PerfGatewayCall.MeasureSince(started, model)

	completion, err := o.gw.Complete(ctx, turns, specs)
	if err != nil {
		metricskey.StatsGatewayCallsFailed.IncrCounter(1, model)
		return nil, err
	}
	return completion, nil
}

// withSystemPrompt prepends the configured system turn unless the
// history already starts with one.
func (o *Orchestrator) withSystemPrompt(history []chatmodel.Turn) []chatmodel.Turn {
	if o.cfg.systemPrompt == "" || (len(history) > 0 && history[0].Role == chatmodel.RoleSystem) {
		return append([]chatmodel.Turn{}, history...)
	}
	turns := make([]chatmodel.Turn, 0, len(history)+1)
	turns = append(turns, chatmodel.TurnFromText(chatmodel.RoleSystem, o.cfg.systemPrompt))
	return append(turns, history...)
}

func newAssistantTurn(text string, call chatmodel.ToolCallRequest) chatmodel.Turn {
	turn := chatmodel.Turn{Role: chatmodel.RoleAssistant}
	if text != "" {
		turn.Parts = append(turn.Parts, chatmodel.TextContent{Text: text})
	}
	turn.Parts = append(turn.Parts, call)
	return turn
}
