// Package health provides liveness/readiness HTTP endpoints. There is
// no Redis check here: the core carries no Redis dependency, so the
// only probed resource is the database connection pool.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is the subset of database.DB the health checker depends on.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the coarse health verdict returned by a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Response is the JSON body returned by every probe endpoint.
type Response struct {
	Status     Status                 `json:"status"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// Checker backs the liveness/readiness endpoints.
type Checker struct {
	db        Pinger
	startTime time.Time
	mu        sync.RWMutex
	ready     bool
}

// NewChecker creates a Checker.
func NewChecker(db Pinger) *Checker {
	return &Checker{db: db, startTime: time.Now()}
}

// SetReady marks the service ready or not ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) isReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// LivenessHandler reports whether the process is running at all.
func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		ReportedAt: time.Now(),
	})
}

// ReadinessHandler reports whether the service can accept traffic,
// which requires both a completed startup and a reachable database.
func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.isReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			ReportedAt: time.Now(),
			Checks: map[string]CheckResult{
				"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
			},
		})
	}

	dbCheck := c.checkDatabase(ctx.Request().Context())
	status := StatusHealthy
	statusCode := http.StatusOK
	if dbCheck.Status == StatusUnhealthy {
		status = StatusUnhealthy
		statusCode = http.StatusServiceUnavailable
	}

	return ctx.JSON(statusCode, Response{
		Status:     status,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     map[string]CheckResult{"database": dbCheck},
		ReportedAt: time.Now(),
	})
}

func (c *Checker) checkDatabase(ctx context.Context) CheckResult {
	if c.db == nil {
		return CheckResult{Status: StatusUnhealthy, Message: "database not configured"}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Latency: time.Since(start).String()}
	}
	return CheckResult{Status: StatusHealthy, Latency: time.Since(start).String()}
}

// RegisterRoutes mounts the liveness/readiness probes.
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/live", c.LivenessHandler)
	e.GET("/ready", c.ReadinessHandler)
}
