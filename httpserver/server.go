// Package httpserver exposes the chat orchestrator over HTTP: a
// buffered JSON endpoint, an SSE streaming endpoint and a health
// check.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/effective-security/toolchat/chat"
	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "httpserver")

// Server routes chat requests to the orchestrator.
type Server struct {
	orc    *chat.Orchestrator
	engine *gin.Engine
}

// New creates a Server over the given orchestrator.
func New(orc *chat.Orchestrator) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		orc:    orc,
		engine: engine,
	}
	engine.GET("/healthz", s.handleHealthz)
	v1 := engine.Group("/v1")
	v1.POST("/chat", s.handleChat)
	v1.POST("/chat/stream", s.handleChatStream)
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.INFO, "status", "listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": s.orc.Provider(),
		"tools":    s.orc.ToolNames(),
	})
}
