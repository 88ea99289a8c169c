package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StreamEvents exposes the caller's document events as an SSE stream.
// There is no replay: a client that reconnects re-fetches current state
// and resumes from there.
func (h *Handler) StreamEvents(c *gin.Context) {
	userID := currentUserID(c)

	sub, err := h.notifier.Subscribe(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to open event subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open event stream"})
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	h.log.Debug().Str("user_id", userID.String()).Msg("Event stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("document", event)
			return true
		}
	})

	h.log.Debug().Str("user_id", userID.String()).Msg("Event stream closed")
}
