package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestQueueMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	m.TaskProcessed()
	m.TaskProcessed()
	m.TaskFailed()
	m.TaskRetried()
	m.RateLimited("messages")
	m.SetQueueDepth(7)

	if got := testutil.ToFloat64(m.processedTotal); got != 2 {
		t.Errorf("processed counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failedTotal); got != 1 {
		t.Errorf("failed counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.retriedTotal); got != 1 {
		t.Errorf("retried counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rateLimitedTotal.WithLabelValues("messages")); got != 1 {
		t.Errorf("rate limited counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 7 {
		t.Errorf("queue depth gauge = %v, want 7", got)
	}
}

func TestQueueMetricsNilSafe(t *testing.T) {
	var m *QueueMetrics
	m.TaskProcessed()
	m.TaskFailed()
	m.TaskRetried()
	m.RateLimited("conversations")
	m.SetQueueDepth(0)
}
