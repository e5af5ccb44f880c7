package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
}

// InFlightGauge tracks concurrent requests.
type InFlightGauge interface {
	Inc()
	Dec()
}

// Metrics records method, route template, status and latency.  Unmatched
// routes are reported under "unmatched" to keep label cardinality bounded.
func Metrics(rec RequestRecorder, inflight InFlightGauge) gin.HandlerFunc {
	return func(c *gin.Context) {
		if inflight != nil {
			inflight.Inc()
			defer inflight.Dec()
		}
		start := time.Now()
		c.Next()
		if rec == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
