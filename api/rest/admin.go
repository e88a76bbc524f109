package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/voxelpilot/audit"
	"github.com/kasuganosora/voxelpilot/game/sim"
	"github.com/kasuganosora/voxelpilot/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	driver  *sim.Driver
	sched   *scheduler.Scheduler
	journal *audit.Journal
	remote  *sim.Remote
	started time.Time
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler. journal may be nil.
func NewAdminHandler(d *sim.Driver, sched *scheduler.Scheduler, j *audit.Journal, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{driver: d, sched: sched, journal: j, started: time.Now(), logger: logger}
}

// SetRemote exposes the simulated external engine to the admin surface.
func (h *AdminHandler) SetRemote(r *sim.Remote) { h.remote = r }

// Metrics returns process-level counters.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	st := h.driver.Engine().Status()
	out := gin.H{
		"uptime_s":         int64(time.Since(h.started).Seconds()),
		"ticks":            h.driver.Ticks(),
		"mode":             st.Mode,
		"running":          st.Running,
		"backend_switches": st.BackendSwitches,
		"scheduler_tasks":  h.sched.ListTickers(),
	}
	if h.journal != nil {
		out["journal_written"] = h.journal.Written()
		out["journal_dropped"] = h.journal.Dropped()
	}
	c.JSON(http.StatusOK, out)
}

// ListSchedulerTasks returns run statistics for every ticker task.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Stats()})
}

type vitalsRequest struct {
	Health *float64 `json:"health" binding:"required,gte=0,lte=20"`
	Hunger *int     `json:"hunger" binding:"required,gte=0,lte=20"`
}

// SetVitals overrides the body's health and hunger, for exercising the
// crisis handlers by hand.
// POST /api/admin/vitals
func (h *AdminHandler) SetVitals(c *gin.Context) {
	var req vitalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.driver.SetVitals(*req.Health, *req.Hunger)
	h.logger.Info("vitals overridden",
		zap.Float64("health", *req.Health),
		zap.Int("hunger", *req.Hunger))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type externalRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// SetExternal connects or disconnects the simulated external engine so
// backend failover can be observed.
// POST /api/admin/external
func (h *AdminHandler) SetExternal(c *gin.Context) {
	if h.remote == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "external engine not configured"})
		return
	}
	var req externalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.remote.SetAvailable(*req.Available)
	h.logger.Info("external engine toggled", zap.Bool("available", *req.Available))
	c.JSON(http.StatusOK, gin.H{"ok": true, "available": *req.Available})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// If adminKey is empty all admin endpoints answer 503, so the pilot cannot
// be deployed with its controls unprotected.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
