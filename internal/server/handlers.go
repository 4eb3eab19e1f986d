package server

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

//go:embed web/terminal.html
var terminalPage []byte

// TerminalView serves the browser terminal page.
func (s *Server) TerminalView(c *gin.Context) {
	telemetry.WithSpan(c.Request.Context(), "TerminalView", func(context.Context) error {
		c.Data(http.StatusOK, "text/html; charset=utf-8", terminalPage)
		return nil
	})
}

// HealthCheckView exercises the full cache path (set, get, delete) and
// reports the round-tripped value, so a probe of this endpoint also proves
// the cache and its instrumentation are alive.
func (s *Server) HealthCheckView(c *gin.Context) {
	telemetry.WithSpan(c.Request.Context(), "HealthCheckView", func(ctx context.Context) error {
		const key = "health_check_key"

		s.store.Set(ctx, key, "pong")
		s.metrics.RecordCacheOp("SET")

		value, err := s.store.Get(ctx, key)
		s.metrics.RecordCacheOp("GET")
		if err != nil {
			value = ""
		}

		s.store.Delete(ctx, key)
		s.metrics.RecordCacheOp("DELETE")

		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"cache_value": value,
		})
		return nil
	})
}
