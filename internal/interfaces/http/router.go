// Package http assembles the BlindDock REST API on gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/internal/interfaces/http/handlers"
	"github.com/turtacn/BlindDock/internal/interfaces/http/middleware"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// RouterConfig collects the handlers and cross-cutting hooks of the API.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Jobs    *handlers.JobHandler
	Health  *handlers.HealthHandler
	Logger  logging.Logger
	Logging middleware.LoggingConfig

	// CORS is applied when it lists at least one origin.
	CORS middleware.CORSConfig

	// Metrics records request counts and latency; nil disables it.
	Metrics  middleware.RequestRecorder
	InFlight middleware.InFlightGauge
	// MetricsHandler is exposed on MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the gin engine.  Middleware order: recovery, request id,
// CORS, logging, metrics.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.Recovery(cfg.Logger), middleware.RequestID())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORS))
	}
	r.Use(middleware.Logging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics, cfg.InFlight))
	}

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	if cfg.Jobs != nil {
		cfg.Jobs.Register(v1)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:      string(errors.ErrCodeNotFound),
			Message:   "route not found",
			RequestID: middleware.GetRequestID(c),
		})
	})
	return r
}

//Personal.AI order the ending
