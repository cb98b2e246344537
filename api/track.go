package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soundwave/tracker/domain"
)

// Track records one interaction event.
// POST /track
func (h *Handler) Track(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.TrackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	decision, err := h.policy.Evaluate(ctx, map[string]interface{}{
		"kind":     string(req.Kind),
		"user_key": req.UserKey,
		"subject":  req.Subject,
	})
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "policy evaluation failed"})
	}
	if decision != "allow" {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "event rejected by policy"})
	}

	origin := domain.Origin{
		UserAgent:  c.Request().UserAgent(),
		RemoteAddr: c.RealIP(),
	}

	session, err := h.processor.Track(ctx, req, origin)
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": ve.Error()})
		case errors.Is(err, domain.ErrSessionEnded):
			return c.JSON(http.StatusConflict, map[string]string{"error": "session already ended"})
		default:
			log.Printf("ERROR: failed to track action: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to track action"})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Action tracked successfully",
		"session": session,
	})
}
