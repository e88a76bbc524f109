package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/voxelpilot/cache"
	"github.com/kasuganosora/voxelpilot/cache/feed"
	"go.uber.org/zap"
)

const keepalive = 30 * time.Second

// Handler streams the pilot feed to browsers and visualizers.
type Handler struct {
	pubsub    cache.PubSub
	keepalive time.Duration
	logger    *zap.Logger
}

func NewHandler(pubsub cache.PubSub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, keepalive: keepalive, logger: logger}
}

// ServeSSE handles GET /sse. Status snapshots arrive as "status" events and
// engine transitions as "event" events.
//
//	?only=events      skip status snapshots
//	?status_every=1s  send at most one snapshot per interval
func (h *Handler) ServeSSE(c *gin.Context) {
	channels := []string{feed.ChannelStatus, feed.ChannelEvents}
	if c.Query("only") == "events" {
		channels = channels[1:]
	}
	var every time.Duration
	if s := c.Query("status_every"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status_every"})
			return
		}
		every = d
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgCh, unsub, err := h.pubsub.Subscribe(ctx, channels...)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprint(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	var lastStatus time.Time
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return false
			}
			if msg.Channel == feed.ChannelStatus && every > 0 {
				now := time.Now()
				if now.Sub(lastStatus) < every {
					return true
				}
				lastStatus = now
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(msg.Channel), msg.Payload)
			return true
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func eventName(channel string) string {
	if channel == feed.ChannelStatus {
		return "status"
	}
	return "event"
}
