// Package api provides HTTP handlers for the tracker.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soundwave/tracker/policy"
	"github.com/soundwave/tracker/tracker"
)

// Handler handles HTTP requests.
type Handler struct {
	processor *tracker.Processor
	query     *tracker.Query
	policy    *policy.Engine
}

// NewHandler creates a new handler.
func NewHandler(processor *tracker.Processor, query *tracker.Query, policyEngine *policy.Engine) *Handler {
	return &Handler{
		processor: processor,
		query:     query,
		policy:    policyEngine,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	e.POST("/track", h.Track)

	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/:session_key", h.GetSession)
}

// Root confirms the backend is running.
func (h *Handler) Root(c echo.Context) error {
	return c.String(http.StatusOK, "SoundWave tracker is running")
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
