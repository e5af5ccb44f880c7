package http

import (
	"github.com/turtacn/BlindDock/internal/bootstrap"
	"github.com/turtacn/BlindDock/internal/interfaces/http/handlers"
	"github.com/turtacn/BlindDock/internal/interfaces/http/middleware"
)

// StackConfig returns the router configuration shared by the API server and
// the worker: probes over the stack's checks, request logging and, when
// metrics are enabled, the collector endpoint and request metrics.  Job
// routes are left to the caller.
func StackConfig(stack *bootstrap.Stack, version string) RouterConfig {
	checkers := make([]handlers.HealthChecker, 0, len(stack.Checks))
	for _, c := range stack.Checks {
		checkers = append(checkers, handlers.NewChecker(c.Name, c.Fn))
	}
	rc := RouterConfig{
		Logger:  stack.Logger,
		Logging: middleware.DefaultLoggingConfig(),
	}
	if stack.Metrics == nil {
		rc.Health = handlers.NewHealthHandler(version, nil, checkers...)
		return rc
	}
	rc.Health = handlers.NewHealthHandler(version, stack.Metrics, checkers...)
	rc.Metrics = stack.Metrics
	rc.InFlight = stack.Metrics.HTTPActiveRequests.WithLabelValues()
	rc.MetricsHandler = stack.Collector.Handler()
	rc.MetricsPath = stack.Config.Metrics.Path
	return rc
}

//Personal.AI order the ending
