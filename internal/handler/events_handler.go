package handler

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

const eventsHeartbeat = 25 * time.Second

type changeSubscriber interface {
	Subscribe(ctx context.Context, collections ...models.Collection) (<-chan models.Change, error)
}

// EventsHandler streams collection change notifications to clients over SSE so open
// views can refetch what changed.
type EventsHandler struct {
	feed      changeSubscriber
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(feed changeSubscriber, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{feed: feed, logger: logger, heartbeat: eventsHeartbeat}
}

// Stream godoc
// @Summary Subscribe to change notifications
// @Tags Events
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	changes, err := h.feed.Subscribe(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("change", change)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
	h.logger.Debug("event stream closed", zap.String("client_ip", c.ClientIP()))
}
