package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if SubmissionsTotal == nil {
		t.Error("SubmissionsTotal not initialized")
	}
	if SyncDuration == nil {
		t.Error("SyncDuration histogram not initialized")
	}
	if ModerationQueueGauge == nil {
		t.Error("ModerationQueueGauge not initialized")
	}
}

func TestCountersIncrement(t *testing.T) {
	Init()

	before := counterValue(t, SubmissionsTotal.WithLabelValues("video"))
	CountSubmission("video")
	after := counterValue(t, SubmissionsTotal.WithLabelValues("video"))
	if after != before+1 {
		t.Errorf("CountSubmission: got %v, want %v", after, before+1)
	}

	before = counterValue(t, ModerationActions.WithLabelValues("link", "reject"))
	CountModeration("link", "reject")
	after = counterValue(t, ModerationActions.WithLabelValues("link", "reject"))
	if after != before+1 {
		t.Errorf("CountModeration: got %v, want %v", after, before+1)
	}
}

// Helpers must be safe to call before Init, as library code cannot assume the
// process registered metrics.
func TestHelpersNilSafeBeforeInit(t *testing.T) {
	saved := SubmissionsTotal
	SubmissionsTotal = nil
	defer func() { SubmissionsTotal = saved }()

	CountSubmission("video")
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration %v too short", duration)
	}
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("expected empty correlation, got %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("expected abc-123, got %q", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
