package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/jobs/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ─── Request ID ───

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	w := do(newEngine(RequestID()), http.MethodGet, "/jobs/a", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestRequestID_PropagatesCallerValue(t *testing.T) {
	w := do(newEngine(RequestID()), http.MethodGet, "/jobs/a", map[string]string{HeaderRequestID: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

// ─── Logging / Recovery ───

func observedLogger(level zapcore.Level) (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logging.NewLoggerFromCore(core), logs
}

func TestLogging_WritesRequestLine(t *testing.T) {
	log, logs := observedLogger(zapcore.DebugLevel)
	r := newEngine(RequestID(), Logging(log, DefaultLoggingConfig()))

	do(r, http.MethodGet, "/jobs/j1", map[string]string{HeaderRequestID: "rid"})

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "/jobs/j1", ctx["path"])
	assert.EqualValues(t, 200, ctx["status"])
	assert.Equal(t, "rid", ctx["request_id"])
}

func TestLogging_LevelsByOutcome(t *testing.T) {
	log, logs := observedLogger(zapcore.DebugLevel)
	r := newEngine(Logging(log, DefaultLoggingConfig()))

	do(r, http.MethodGet, "/fail", nil)
	do(r, http.MethodGet, "/healthz", nil)

	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)

	quiet := logs.FilterMessage("request").All()
	require.Len(t, quiet, 1)
	assert.Equal(t, zapcore.DebugLevel, quiet[0].Level)
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	log, logs := observedLogger(zapcore.InfoLevel)
	r := newEngine(Recovery(log))

	w := do(r, http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_001")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

// ─── CORS ───

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://ui.example.com"}
	r := newEngine(CORS(cfg))

	w := do(r, http.MethodOptions, "/jobs/a", map[string]string{
		"Origin":                        "https://ui.example.com",
		"Access-Control-Request-Method": http.MethodGet,
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PreflightRejectedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://ui.example.com"}
	r := newEngine(CORS(cfg))

	w := do(r, http.MethodOptions, "/jobs/a", map[string]string{
		"Origin":                        "https://evil.test",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORS_WildcardAndSubdomain(t *testing.T) {
	assert.True(t, originAllowed([]string{"*.example.com"}, "https://lab.example.com"))
	assert.False(t, originAllowed([]string{"*.example.com"}, "https://example.org"))
	assert.True(t, originAllowed([]string{"*"}, "http://anything"))

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}
	w := do(newEngine(CORS(cfg)), http.MethodGet, "/jobs/a", map[string]string{"Origin": "http://x.test"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginPassesThrough(t *testing.T) {
	w := do(newEngine(CORS(DefaultCORSConfig())), http.MethodGet, "/jobs/a", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ─── Metrics ───

type recordedRequest struct {
	method, path string
	status       int
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(method, path string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedRequest{method, path, status})
}

type fakeGauge struct{ cur, max int }

func (g *fakeGauge) Inc() {
	g.cur++
	if g.cur > g.max {
		g.max = g.cur
	}
}
func (g *fakeGauge) Dec() { g.cur-- }

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &fakeRecorder{}
	gauge := &fakeGauge{}
	r := newEngine(Metrics(rec, gauge))

	do(r, http.MethodGet, "/jobs/abc", nil)
	do(r, http.MethodGet, "/nope", nil)

	require.Len(t, rec.seen, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/jobs/:id", 200}, rec.seen[0])
	assert.Equal(t, recordedRequest{http.MethodGet, "unmatched", 404}, rec.seen[1])
	assert.Equal(t, 0, gauge.cur)
	assert.Equal(t, 1, gauge.max)
}

//Personal.AI order the ending
