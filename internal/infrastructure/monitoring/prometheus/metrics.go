package prometheus

import (
	"strconv"
	"time"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// Default buckets
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRunDurationBuckets  = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800}
	DefaultJobDurationBuckets  = []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600, 7200}
	DefaultEnergyBuckets       = []float64{-16, -14, -12, -10, -9, -8, -7, -6, -5, -4, -2, 0}
)

// DockingMetrics holds every BlindDock metric.  It implements the run
// observer of the domain runner and the job observer of the pipeline.
type DockingMetrics struct {
	// Runs
	RunsTotal      CounterVec
	RunDuration    HistogramVec
	RunRetries     CounterVec
	RunAttempts    HistogramVec
	PoolSlotsInUse GaugeVec
	PoolSlots      GaugeVec

	// Jobs
	JobsTotal     CounterVec
	JobDuration   HistogramVec
	JobPoses      HistogramVec
	JobBestEnergy HistogramVec
	JobErrors     CounterVec

	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Infrastructure
	CacheAccess      CounterVec
	MessagesConsumed CounterVec
	HealthStatus     GaugeVec
}

// NewDockingMetrics registers all metrics on collector.
func NewDockingMetrics(c MetricsCollector) *DockingMetrics {
	return &DockingMetrics{
		RunsTotal:      c.RegisterCounter("runs_total", "Docking runs by terminal status", "status"),
		RunDuration:    c.RegisterHistogram("run_duration_seconds", "Wall time of finished docking runs", DefaultRunDurationBuckets, "status"),
		RunRetries:     c.RegisterCounter("run_retries_total", "Retries after transient engine failures", "reason"),
		RunAttempts:    c.RegisterHistogram("run_attempts", "Engine invocations per finished run", []float64{1, 2, 3, 4, 5, 8}),
		PoolSlotsInUse: c.RegisterGauge("pool_slots_in_use", "Engine slots currently held"),
		PoolSlots:      c.RegisterGauge("pool_slots", "Engine slots available to the process"),

		JobsTotal:     c.RegisterCounter("jobs_total", "Docking jobs by terminal status", "status"),
		JobDuration:   c.RegisterHistogram("job_duration_seconds", "Wall time of finished jobs", DefaultJobDurationBuckets, "status"),
		JobPoses:      c.RegisterHistogram("job_poses", "Poses parsed per job", []float64{0, 5, 10, 25, 50, 100, 250, 500}),
		JobBestEnergy: c.RegisterHistogram("job_best_energy_kcal_mol", "Best binding energy of completed jobs", DefaultEnergyBuckets),
		JobErrors:     c.RegisterCounter("job_errors_total", "Failed jobs by error code", "code"),

		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests"),

		CacheAccess:      c.RegisterCounter("cache_access_total", "Result cache lookups", "result"),
		MessagesConsumed: c.RegisterCounter("messages_consumed_total", "Job request messages by outcome", "outcome"),
		HealthStatus:     c.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component"),
	}
}

// ─── domain.Observer ───

// RunFinished records the terminal status and duration of run.
func (m *DockingMetrics) RunFinished(run *domain.Run) {
	status := string(run.Status)
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(run.Duration().Seconds())
	m.RunAttempts.WithLabelValues().Observe(float64(run.Attempts))
}

// RunRetried counts a retry, labelled by the error code that caused it.
func (m *DockingMetrics) RunRetried(_ *domain.Run, err error) {
	m.RunRetries.WithLabelValues(codeLabel(err)).Inc()
}

// PoolUsage reports engine slot saturation.
func (m *DockingMetrics) PoolUsage(inUse, size int) {
	m.PoolSlotsInUse.WithLabelValues().Set(float64(inUse))
	m.PoolSlots.WithLabelValues().Set(float64(size))
}

// ─── app.JobObserver ───

// JobFinished records the outcome of a job.
func (m *DockingMetrics) JobFinished(o *app.Outcome) {
	status := string(o.Status)
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues(status).Observe(o.Elapsed.Seconds())
	m.JobPoses.WithLabelValues().Observe(float64(o.Poses))
	if o.Status == domain.JobFailed {
		code := o.ErrorCode
		if code == "" {
			code = string(errors.CodeUnknown)
		}
		m.JobErrors.WithLabelValues(code).Inc()
		return
	}
	if o.Table != nil {
		if best, ok := o.Table.Best(); ok {
			m.JobBestEnergy.WithLabelValues().Observe(best)
		}
	}
}

// Helpers

// RecordHTTPRequest records one served request.
func (m *DockingMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheAccess records a result cache hit or miss.
func (m *DockingMetrics) RecordCacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccess.WithLabelValues(result).Inc()
}

// RecordMessage records how a consumed job request was settled.
func (m *DockingMetrics) RecordMessage(outcome string) {
	m.MessagesConsumed.WithLabelValues(outcome).Inc()
}

// SetHealth records the health of a component.
func (m *DockingMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthStatus.WithLabelValues(component).Set(v)
}

func codeLabel(err error) string {
	return string(errors.GetCode(err))
}

var (
	_ domain.Observer = (*DockingMetrics)(nil)
	_ app.JobObserver = (*DockingMetrics)(nil)
)

//Personal.AI order the ending
