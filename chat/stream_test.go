package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chat"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/mocks/mockgateway"
	"github.com/effective-security/toolchat/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// scriptedStream plays back a fixed sequence of events, then io.EOF.
type scriptedStream struct {
	events []gateway.PartialEvent
	next   int
	closed atomic.Bool
}

func (s *scriptedStream) Next() (gateway.PartialEvent, error) {
	if s.next >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}

func (s *scriptedStream) Close() error {
	s.closed.Store(true)
	return nil
}

// blockedStream waits for ctx cancellation, like an SSE read would.
type blockedStream struct {
	ctx    context.Context
	first  bool
	closed atomic.Bool
}

func (s *blockedStream) Next() (gateway.PartialEvent, error) {
	if !s.first {
		s.first = true
		return gateway.TextDelta{Text: "thinking"}, nil
	}
	<-s.ctx.Done()
	return nil, errors.Mark(s.ctx.Err(), gateway.ErrUpstreamUnavailable)
}

func (s *blockedStream) Close() error {
	s.closed.Store(true)
	return nil
}

func collect(t *testing.T, st *chat.Stream) []chat.StreamEvent {
	t.Helper()
	var events []chat.StreamEvent
	for {
		select {
		case ev, ok := <-st.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for stream events")
		}
	}
}

func Test_StreamTurn_NoTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upstream := &scriptedStream{events: []gateway.PartialEvent{
		gateway.TextDelta{Text: "Hel"},
		gateway.TextDelta{Text: "lo!"},
		gateway.StreamEnd{StopReason: "end_turn", Usage: gateway.Usage{InputTokens: 10, OutputTokens: 3}},
	}}

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).Return(upstream, nil).Times(1)

	orc := chat.New(gw, newRegistry(t, newSearchTool(ctrl)))
	st, err := orc.StreamTurn(context.Background(), []chatmodel.Turn{
		chatmodel.TurnFromText(chatmodel.RoleUser, "hi"),
	})
	require.NoError(t, err)

	events := collect(t, st)
	require.Len(t, events, 3)
	assert.Equal(t, chat.TextDelta{Text: "Hel"}, events[0])
	assert.Equal(t, chat.TextDelta{Text: "lo!"}, events[1])
	done, ok := events[2].(chat.Done)
	require.True(t, ok)
	assert.Equal(t, "Hello!", done.Text)
	assert.Equal(t, int64(10), done.Usage.InputTokens)
	assert.True(t, upstream.closed.Load())

	// cancel after completion is a no-op
	st.Cancel()
	st.Cancel()
}

func Test_StreamTurn_ToolRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	impl := newSearchTool(ctrl)
	impl.EXPECT().Call(gomock.Any(), `{"query":"golang"}`).Return(`{"answer":"a language"}`, nil)

	call := chatmodel.ToolCallRequest{
		CallID:    "call_abc",
		Name:      "websearch",
		Arguments: json.RawMessage(`{"query":"golang"}`),
	}
	firstUpstream := &scriptedStream{events: []gateway.PartialEvent{
		gateway.TextDelta{Text: "Let me check. "},
		gateway.ToolCallAssembled{Request: call},
		gateway.StreamEnd{StopReason: "tool_use", Usage: gateway.Usage{InputTokens: 10, OutputTokens: 5}},
	}}
	secondUpstream := &scriptedStream{events: []gateway.PartialEvent{
		gateway.TextDelta{Text: "Go is a language."},
		gateway.StreamEnd{StopReason: "end_turn", Usage: gateway.Usage{InputTokens: 20, OutputTokens: 6}},
	}}

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	first := gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).Return(firstUpstream, nil)
	second := gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, history []chatmodel.Turn, _ []tools.Spec) (gateway.Stream, error) {
			toolTurn := history[len(history)-1]
			result, ok := toolTurn.Parts[0].(chatmodel.ToolResult)
			require.True(t, ok)
			assert.Equal(t, "call_abc", result.CallID)
			return secondUpstream, nil
		})
	gomock.InOrder(first, second)

	orc := chat.New(gw, newRegistry(t, impl))
	st, err := orc.StreamTurn(context.Background(), []chatmodel.Turn{
		chatmodel.TurnFromText(chatmodel.RoleUser, "what is golang?"),
	})
	require.NoError(t, err)

	events := collect(t, st)
	require.Len(t, events, 5)
	assert.Equal(t, chat.TextDelta{Text: "Let me check. "}, events[0])

	invoked, ok := events[1].(chat.ToolInvoked)
	require.True(t, ok)
	assert.Equal(t, "call_abc", invoked.Call.CallID)
	assert.Equal(t, "websearch", invoked.Call.Name)

	completed, ok := events[2].(chat.ToolCompleted)
	require.True(t, ok)
	assert.Equal(t, "call_abc", completed.Result.CallID)
	assert.False(t, completed.Result.IsError())

	assert.Equal(t, chat.TextDelta{Text: "Go is a language."}, events[3])

	done, ok := events[4].(chat.Done)
	require.True(t, ok)
	assert.Equal(t, "Let me check. Go is a language.", done.Text)
	assert.Equal(t, int64(30), done.Usage.InputTokens)
	assert.Equal(t, int64(11), done.Usage.OutputTokens)
}

func Test_StreamTurn_UpstreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.Mark(errors.New("connection refused"), gateway.ErrUpstreamUnavailable))

	orc := chat.New(gw, newRegistry(t, newSearchTool(ctrl)))
	st, err := orc.StreamTurn(context.Background(), []chatmodel.Turn{
		chatmodel.TurnFromText(chatmodel.RoleUser, "hi"),
	})
	require.NoError(t, err)

	events := collect(t, st)
	require.Len(t, events, 1)
	failed, ok := events[0].(chat.Failed)
	require.True(t, ok)
	assert.True(t, errors.Is(failed.Err, gateway.ErrUpstreamUnavailable))
}

func Test_StreamTurn_UnknownTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upstream := &scriptedStream{events: []gateway.PartialEvent{
		gateway.ToolCallAssembled{Request: chatmodel.ToolCallRequest{
			CallID:    "call_1",
			Name:      "calculator",
			Arguments: json.RawMessage(`{}`),
		}},
		gateway.StreamEnd{StopReason: "tool_use"},
	}}

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).Return(upstream, nil).Times(1)

	orc := chat.New(gw, newRegistry(t, newSearchTool(ctrl)))
	st, err := orc.StreamTurn(context.Background(), []chatmodel.Turn{
		chatmodel.TurnFromText(chatmodel.RoleUser, "2+2?"),
	})
	require.NoError(t, err)

	events := collect(t, st)
	require.Len(t, events, 1)
	failed, ok := events[0].(chat.Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, tools.ErrUnknownTool)
}

func Test_StreamTurn_CancelMidStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var upstream *blockedStream
	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []chatmodel.Turn, _ []tools.Spec) (gateway.Stream, error) {
			upstream = &blockedStream{ctx: ctx}
			return upstream, nil
		}).
		Times(1)

	orc := chat.New(gw, newRegistry(t, newSearchTool(ctrl)))
	st, err := orc.StreamTurn(context.Background(), []chatmodel.Turn{
		chatmodel.TurnFromText(chatmodel.RoleUser, "hi"),
	})
	require.NoError(t, err)

	// consume the first delta, then abort
	select {
	case ev := <-st.Events():
		assert.Equal(t, chat.TextDelta{Text: "thinking"}, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first delta")
	}
	st.Cancel()

	// the channel closes without a terminal event
	events := collect(t, st)
	assert.Empty(t, events)
	assert.True(t, upstream.closed.Load())
}

func Test_StreamTurn_CancelDuringTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	toolGate := make(chan struct{})
	var toolFinished atomic.Bool

	impl := newSearchTool(ctrl)
	impl.EXPECT().Call(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) (string, error) {
		<-toolGate
		toolFinished.Store(true)
		return `"ok"`, nil
	})

	upstream := &scriptedStream{events: []gateway.PartialEvent{
		gateway.ToolCallAssembled{Request: chatmodel.ToolCallRequest{
			CallID:    "call_1",
			Name:      "websearch",
			Arguments: json.RawMessage(`{"query":"golang"}`),
		}},
		gateway.StreamEnd{StopReason: "tool_use"},
	}}

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	// no second model call happens after the cancel
	gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).Return(upstream, nil).Times(1)

	orc := chat.New(gw, newRegistry(t, impl))
	st, err := orc.StreamTurn(context.Background(), []chatmodel.Turn{
		chatmodel.TurnFromText(chatmodel.RoleUser, "what is golang?"),
	})
	require.NoError(t, err)

	select {
	case ev := <-st.Events():
		_, ok := ev.(chat.ToolInvoked)
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tool invocation")
	}

	// cancel while the tool is executing, then let it finish
	st.Cancel()
	close(toolGate)

	// the result is discarded: no ToolCompleted, no terminal event
	events := collect(t, st)
	assert.Empty(t, events)

	require.Eventually(t, toolFinished.Load, 5*time.Second, 10*time.Millisecond)
}
