package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/soundwave/tracker/domain"
)

// ListSessions returns sessions sorted by recency.
// GET /v1/sessions?limit=50&tz=local
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	if c.QueryParam("tz") == "local" {
		views, err := h.query.ListSessionViews(ctx, limit)
		if err != nil {
			log.Printf("ERROR: failed to list sessions: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"sessions": views,
		})
	}

	sessions, err := h.query.ListSessions(ctx, limit)
	if err != nil {
		log.Printf("ERROR: failed to list sessions: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// GetSession returns a single session by key.
// GET /v1/sessions/:session_key
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionKey := c.Param("session_key")

	session, err := h.query.GetSession(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		log.Printf("ERROR: failed to get session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get session"})
	}

	return c.JSON(http.StatusOK, session)
}
