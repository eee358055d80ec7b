// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SubmissionsTotal  *prometheus.CounterVec
	CaptchaFailures   prometheus.Counter
	ModerationActions *prometheus.CounterVec
	SyncRuns          prometheus.Counter
	SyncFailures      prometheus.Counter
	SyncEpisodes      prometheus.Counter

	// Histograms (seconds)
	SyncDuration    prometheus.Observer
	RequestDuration prometheus.Observer

	// Gauges
	ModerationQueueGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "sifo_submissions_total", Help: "Public submissions accepted, by kind"}, []string{"kind"})
		CaptchaFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "sifo_captcha_failures_total", Help: "Submissions rejected by captcha verification"})
		ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "sifo_moderation_actions_total", Help: "Moderator verdicts, by entity and action"}, []string{"entity", "action"})
		SyncRuns = promauto.NewCounter(prometheus.CounterOpts{Name: "sifo_sync_runs_total", Help: "Series metadata sync runs started"})
		SyncFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "sifo_sync_failures_total", Help: "Series metadata sync runs that failed"})
		SyncEpisodes = promauto.NewCounter(prometheus.CounterOpts{Name: "sifo_sync_episodes_upserted_total", Help: "Episodes written by the series sync"})
		SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "sifo_sync_duration_seconds", Help: "Series sync duration seconds", Buckets: prometheus.DefBuckets})
		RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "sifo_http_request_duration_seconds", Help: "HTTP request duration seconds", Buckets: prometheus.DefBuckets})
		ModerationQueueGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "sifo_moderation_queue_depth", Help: "Submissions currently awaiting review"})
	})
}

// CountSubmission records an accepted public submission ("video" or "link").
func CountSubmission(kind string) {
	if SubmissionsTotal != nil {
		SubmissionsTotal.WithLabelValues(kind).Inc()
	}
}

// CountCaptchaFailure records a submission blocked by captcha.
func CountCaptchaFailure() {
	if CaptchaFailures != nil {
		CaptchaFailures.Inc()
	}
}

// CountModeration records a moderator verdict.
func CountModeration(entity, action string) {
	if ModerationActions != nil {
		ModerationActions.WithLabelValues(entity, action).Inc()
	}
}

// CountSyncRun records a sync run start.
func CountSyncRun() {
	if SyncRuns != nil {
		SyncRuns.Inc()
	}
}

// CountSyncFailure records a failed sync run.
func CountSyncFailure() {
	if SyncFailures != nil {
		SyncFailures.Inc()
	}
}

// AddSyncEpisodesUpserted records episodes written by a sync run.
func AddSyncEpisodesUpserted(n int) {
	if SyncEpisodes != nil {
		SyncEpisodes.Add(float64(n))
	}
}

// ObserveSyncDuration records one sync run's wall time.
func ObserveSyncDuration(seconds float64) {
	if SyncDuration != nil {
		SyncDuration.Observe(seconds)
	}
}

// SetModerationQueueDepth records the current review backlog.
func SetModerationQueueDepth(n int) {
	if ModerationQueueGauge != nil {
		ModerationQueueGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
