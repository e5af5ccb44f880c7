package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HealthChecker probes one dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) Name() string                    { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// NewChecker adapts fn to a HealthChecker.
func NewChecker(name string, fn func(ctx context.Context) error) HealthChecker {
	return checkFunc{name: name, fn: fn}
}

// HealthReporter mirrors probe results into metrics.
type HealthReporter interface {
	SetHealth(component string, up bool)
}

// ComponentStatus is the result of one probe.
type ComponentStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthResponse is the body of the probe endpoints.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version  string
	started  time.Time
	timeout  time.Duration
	reporter HealthReporter
	checkers []HealthChecker
}

// NewHealthHandler returns a HealthHandler.  reporter may be nil.
func NewHealthHandler(version string, reporter HealthReporter, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		started:  time.Now(),
		timeout:  3 * time.Second,
		reporter: reporter,
		checkers: checkers,
	}
}

// Liveness always answers 200 while the process serves requests.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

// Readiness probes every dependency concurrently and answers 503 when any
// of them is down.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var mu sync.Mutex
	components := make(map[string]ComponentStatus, len(h.checkers))
	ready := true

	var g errgroup.Group
	for _, chk := range h.checkers {
		chk := chk
		g.Go(func() error {
			start := time.Now()
			err := chk.Check(ctx)
			st := ComponentStatus{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = "down"
				st.Error = err.Error()
			}
			if h.reporter != nil {
				h.reporter.SetHealth(chk.Name(), err == nil)
			}
			mu.Lock()
			components[chk.Name()] = st
			if err != nil {
				ready = false
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{
		Status:     "ready",
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: components,
	}
	status := http.StatusOK
	if !ready {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

//Personal.AI order the ending
