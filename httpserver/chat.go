package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/chat"
	"github.com/effective-security/toolchat/chatmodel"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := chatmodel.WithChatContext(c.Request.Context(), chatmodel.NewChatContext(chatmodel.NewChatID()))
	res, err := s.orc.CompleteTurn(ctx, toHistory(req.Messages))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.ContextKV(ctx, xlog.ERROR, "status", "chat_failed", "err", err.Error())
		c.JSON(statusFromError(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Text: res.Text,
		Usage: Usage{
			InputTokens:  res.Usage.InputTokens,
			OutputTokens: res.Usage.OutputTokens,
		},
	})
}

func (s *Server) handleChatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := chatmodel.WithChatContext(c.Request.Context(), chatmodel.NewChatContext(chatmodel.NewChatID()))
	st, err := s.orc.StreamTurn(ctx, toHistory(req.Messages))
	if err != nil {
		c.JSON(statusFromError(err), ErrorResponse{Error: err.Error()})
		return
	}
	defer st.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	w := c.Writer
	for {
		select {
		case <-c.Request.Context().Done():
			st.Cancel()
			return
		case event, ok := <-st.Events():
			if !ok {
				fmt.Fprintf(w, "data: [DONE]\n\n")
				w.Flush()
				return
			}
			writeChunk(c, toChunk(event))
		}
	}
}

func writeChunk(c *gin.Context, chunk StreamChunk) {
	c.SSEvent("", chunk)
	c.Writer.Flush()
}

func toChunk(event chat.StreamEvent) StreamChunk {
	switch ev := event.(type) {
	case chat.TextDelta:
		return StreamChunk{Type: EventTextDelta, Text: ev.Text}
	case chat.ToolInvoked:
		return StreamChunk{
			Type:      EventToolInvoked,
			CallID:    ev.Call.CallID,
			Tool:      ev.Call.Name,
			Arguments: ev.Call.Arguments,
		}
	case chat.ToolCompleted:
		return StreamChunk{
			Type:    EventToolCompleted,
			CallID:  ev.Result.CallID,
			Tool:    ev.Result.Name,
			Result:  ev.Result.Content(),
			IsError: ev.Result.IsError(),
		}
	case chat.Done:
		return StreamChunk{
			Type: EventDone,
			Text: ev.Text,
			Usage: &Usage{
				InputTokens:  ev.Usage.InputTokens,
				OutputTokens: ev.Usage.OutputTokens,
			},
		}
	case chat.Failed:
		return StreamChunk{Type: EventFailed, Error: ev.Err.Error()}
	default:
		return StreamChunk{}
	}
}

func toHistory(messages []ChatMessage) []chatmodel.Turn {
	history := make([]chatmodel.Turn, 0, len(messages))
	for _, msg := range messages {
		history = append(history, chatmodel.TurnFromText(chatmodel.Role(msg.Role), msg.Content))
	}
	return history
}

func statusFromError(err error) int {
	switch {
	case errors.IsAny(err, gateway.ErrUpstreamUnavailable, gateway.ErrUpstreamProtocol):
		return http.StatusBadGateway
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
