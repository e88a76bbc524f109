package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/voxelpilot/audit"
	"github.com/kasuganosora/voxelpilot/cache/feed"
	"github.com/kasuganosora/voxelpilot/game/sim"
	"github.com/kasuganosora/voxelpilot/game/world"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
	readTimeout       = 2 * time.Second
)

// PilotHandler serves the agent's command surface.
type PilotHandler struct {
	driver  *sim.Driver
	feed    *feed.Publisher
	journal *audit.Journal
	logger  *zap.Logger
}

// NewPilotHandler creates a PilotHandler. feed and journal are optional;
// reads fall back to the live engine without them.
func NewPilotHandler(d *sim.Driver, f *feed.Publisher, j *audit.Journal, logger *zap.Logger) *PilotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PilotHandler{driver: d, feed: f, journal: j, logger: logger}
}

// Status returns the latest status snapshot.
// GET /api/status
func (h *PilotHandler) Status(c *gin.Context) {
	if h.feed != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
		defer cancel()
		st, err := h.feed.Latest(ctx)
		if err == nil {
			c.JSON(http.StatusOK, st)
			return
		}
		if !errors.Is(err, feed.ErrNoStatus) {
			h.logger.Warn("status feed read failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, h.driver.Engine().Status())
}

// Render returns the latest render snapshot.
// GET /api/render
func (h *PilotHandler) Render(c *gin.Context) {
	if h.feed != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
		defer cancel()
		if r, err := h.feed.LatestRender(ctx); err == nil {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusOK, h.driver.Engine().Render())
}

// Events lists recent events, newest first. The journal is preferred over
// the feed because it survives restarts.
// GET /api/events?limit=50
func (h *PilotHandler) Events(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	switch {
	case h.journal != nil:
		rows, err := h.journal.Recent(ctx, limit)
		if err != nil {
			h.logger.Error("list events failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": rows, "count": len(rows)})
	case h.feed != nil:
		events, err := h.feed.Events(ctx, limit)
		if err != nil {
			h.logger.Error("list feed events failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event history disabled"})
	}
}

// Missions lists mission summaries, most recent first.
// GET /api/missions?limit=50
func (h *PilotHandler) Missions(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()
	rows, err := h.journal.Missions(ctx, limit)
	if err != nil {
		h.logger.Error("list missions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": rows, "count": len(rows)})
}

// Mission returns one mission summary.
// GET /api/missions/:id
func (h *PilotHandler) Mission(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()
	row, err := h.journal.Mission(ctx, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "mission not found"})
		return
	}
	if err != nil {
		h.logger.Error("get mission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, row)
}

type startRequest struct {
	// HeadingDeg is a bearing from +X toward +Z. Omit it to let the
	// navigator pick the heading.
	HeadingDeg *float64 `json:"heading_deg"`
}

// StartMission begins a new mission, replacing any running one.
// POST /api/mission/start
func (h *PilotHandler) StartMission(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	now := time.Now()
	if req.HeadingDeg != nil {
		h.driver.StartWithHeading(now, world.HeadingFromDegrees(*req.HeadingDeg))
	} else {
		h.driver.Start(now)
	}
	st := h.driver.Engine().Status()
	h.logger.Info("mission started via api", zap.Stringer("origin", st.Position))
	c.JSON(http.StatusOK, gin.H{"mission": st.Mission})
}

// StopMission halts the running mission.
// POST /api/mission/stop
func (h *PilotHandler) StopMission(c *gin.Context) {
	h.driver.Stop(time.Now())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultEventLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return min(n, maxEventLimit), true
}
