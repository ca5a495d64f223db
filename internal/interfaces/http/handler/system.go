package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taxfiling/backend/internal/interfaces/http/router"
)

// SchedulerControl is the slice of the cron scheduler the system
// endpoints need
type SchedulerControl interface {
	GetStatus() map[string]any
	TriggerManualRun(ctx context.Context) error
}

// DatabasePinger reports database connectivity
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler handles health and operational endpoints
type SystemHandler struct {
	BaseHandler
	db        DatabasePinger
	scheduler SchedulerControl
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db DatabasePinger, scheduler SchedulerControl) *SystemHandler {
	return &SystemHandler{
		db:        db,
		scheduler: scheduler,
		startedAt: time.Now(),
	}
}

// Health handles GET /healthz. Database connectivity degrades the status
// but the endpoint still answers 200 so orchestrators can tell a slow
// dependency from a dead process.
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// SchedulerStatus handles GET /system/scheduler
func (h *SystemHandler) SchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		h.Success(c, gin.H{"enabled": false})
		return
	}
	h.Success(c, h.scheduler.GetStatus())
}

// TriggerScheduler handles POST /system/scheduler/run
func (h *SystemHandler) TriggerScheduler(c *gin.Context) {
	if h.scheduler == nil {
		h.BadRequest(c, "Scheduler is not enabled")
		return
	}
	if err := h.scheduler.TriggerManualRun(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

// SystemRoutes builds the route group for system endpoints
func SystemRoutes(handler *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("/system")
	group.GET("/scheduler", handler.SchedulerStatus)
	group.POST("/scheduler/run", handler.TriggerScheduler)
	return group
}
