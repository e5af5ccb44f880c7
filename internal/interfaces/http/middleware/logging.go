package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// LoggingConfig controls request logging.
type LoggingConfig struct {
	// SkipPaths are logged at debug level only (probes, scrapes).
	SkipPaths []string
	// SlowThreshold promotes slower requests to warn level; zero disables.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probe and scrape endpoints.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 5 * time.Second,
	}
}

// Logging writes one structured line per request.
func Logging(log logging.Logger, cfg LoggingConfig) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("http")
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("latency", elapsed),
			logging.String("client_ip", c.ClientIP()),
			logging.Int("bytes", c.Writer.Size()),
		}
		if id := GetRequestID(c); id != "" {
			fields = append(fields, logging.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		_, quiet := skip[c.Request.URL.Path]
		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold:
			log.Warn("slow request", fields...)
		case quiet:
			log.Debug("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// Recovery turns a handler panic into a logged 500.
func Recovery(log logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			logging.String("path", c.Request.URL.Path),
			logging.Any("panic", recovered),
			logging.String("request_id", GetRequestID(c)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
	})
}

//Personal.AI order the ending
