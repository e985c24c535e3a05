package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

// StreamLookup runs a batch lookup as a server-sent event sequence so the
// caller can render progress before the document is in. Closing the
// connection cancels the stream; the event sequence otherwise ends with
// exactly one terminal event.
func (h *HTTPHandler) StreamLookup(c *gin.Context) {
	var req domain.StreamLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events := h.lookup.LookupStream(c.Request.Context(), &req)

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(event.Stage), event)
		return !event.Terminal()
	})
}
