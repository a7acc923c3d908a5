package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/toolchat/chat"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/httpserver"
	"github.com/effective-security/toolchat/mocks/mockgateway"
	"github.com/effective-security/toolchat/mocks/mocktools"
	"github.com/effective-security/toolchat/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T, gw gateway.Gateway) *httptest.Server {
	t.Helper()
	ctrl := gomock.NewController(t)
	impl := mocktools.NewMockITool(ctrl)
	impl.EXPECT().Name().Return("echo").AnyTimes()
	impl.EXPECT().Description().Return("echo").AnyTimes()

	reg, err := tools.LoadRegistry(&tools.Config{
		Tools: []tools.Declaration{
			{Name: "echo", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
	}, impl)
	require.NoError(t, err)

	srv := httptest.NewServer(httpserver.New(chat.New(gw, reg)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func Test_Healthz(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	srv := newServer(t, gw)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Contains(t, string(body), `"provider":"mock"`)
	assert.Contains(t, string(body), `"echo"`)
}

func Test_Chat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	gw.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&gateway.Completion{
			Text:  "Hello!",
			Usage: gateway.Usage{InputTokens: 10, OutputTokens: 3},
		}, nil)
	srv := newServer(t, gw)

	res, err := http.Post(srv.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body httpserver.ChatResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "Hello!", body.Text)
	assert.Equal(t, int64(10), body.Usage.InputTokens)
}

func Test_Chat_BadRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	srv := newServer(t, gw)

	tcases := []struct {
		name string
		body string
	}{
		{name: "empty messages", body: `{"messages":[]}`},
		{name: "bad role", body: `{"messages":[{"role":"tool","content":"x"}]}`},
		{name: "not json", body: `nope`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := http.Post(srv.URL+"/v1/chat", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
}

func Test_Chat_UpstreamError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()
	gw.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, gateway.ErrUpstreamUnavailable)
	srv := newServer(t, gw)

	res, err := http.Post(srv.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func Test_ChatStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mockgateway.NewMockGateway(ctrl)
	gw.EXPECT().GetName().Return("mock").AnyTimes()

	stream := mockgateway.NewMockStream(ctrl)
	events := []gateway.PartialEvent{
		gateway.TextDelta{Text: "Hel"},
		gateway.TextDelta{Text: "lo!"},
		gateway.StreamEnd{StopReason: "end_turn", Usage: gateway.Usage{InputTokens: 10, OutputTokens: 3}},
	}
	next := 0
	stream.EXPECT().Next().DoAndReturn(func() (gateway.PartialEvent, error) {
		if next >= len(events) {
			return nil, io.EOF
		}
		ev := events[next]
		next++
		return ev, nil
	}).AnyTimes()
	stream.EXPECT().Close().Return(nil)
	gw.EXPECT().Stream(gomock.Any(), gomock.Any(), gomock.Any()).Return(stream, nil)

	srv := newServer(t, gw)
	res, err := http.Post(srv.URL+"/v1/chat/stream", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	payload := string(body)
	assert.Contains(t, payload, `"type":"text_delta"`)
	assert.Contains(t, payload, "Hel")
	assert.Contains(t, payload, `"type":"done"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(payload), "data: [DONE]"))
}
