package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/response"
	"github.com/stemsi/institute-portal/internal/service"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler reports process liveness.
type SystemHandler struct {
	store      Pinger
	institutes *service.InstituteService
	startTime  time.Time
	log        zerolog.Logger
}

func NewSystemHandler(store Pinger, instituteService *service.InstituteService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		store:      store,
		institutes: instituteService,
		startTime:  time.Now(),
		log:        log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Sessions   string `json:"sessions"`
	Institutes int    `json:"institutes"`
	Goroutines int    `json:"goroutines"`
	GoVersion  string `json:"go_version"`
}

// Health godoc
// GET /health
// 200 while the session store answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	status := healthStatus{
		Status:     "ok",
		Uptime:     formatDuration(time.Since(h.startTime)),
		Sessions:   "ok",
		Institutes: len(h.institutes.List()),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Session store unreachable")
		status.Status = "degraded"
		status.Sessions = "unreachable"
		response.Success(c, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(c, http.StatusOK, status)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
