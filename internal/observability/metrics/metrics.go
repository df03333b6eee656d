package metrics

import "github.com/prometheus/client_golang/prometheus"

// QueueMetrics exposes counters/gauges for the ingestion pipeline.
type QueueMetrics struct {
	processedTotal   prometheus.Counter
	failedTotal      prometheus.Counter
	retriedTotal     prometheus.Counter
	rateLimitedTotal *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	m := &QueueMetrics{
		processedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "decoynet",
			Subsystem: "ingest",
			Name:      "tasks_processed_total",
			Help:      "Total tasks persisted successfully",
		}),
		failedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "decoynet",
			Subsystem: "ingest",
			Name:      "tasks_failed_total",
			Help:      "Total tasks moved to the dead-letter list",
		}),
		retriedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "decoynet",
			Subsystem: "ingest",
			Name:      "tasks_retried_total",
			Help:      "Total task retry resubmissions",
		}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "decoynet",
			Subsystem: "ingest",
			Name:      "rate_limited_total",
			Help:      "Total admissions rejected by the rate limiter",
		}, []string{"window"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "decoynet",
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Tasks currently waiting in the priority queue",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.processedTotal, m.failedTotal, m.retriedTotal, m.rateLimitedTotal, m.queueDepth)
	return m
}

func (m *QueueMetrics) TaskProcessed() {
	if m == nil {
		return
	}
	m.processedTotal.Inc()
}

func (m *QueueMetrics) TaskFailed() {
	if m == nil {
		return
	}
	m.failedTotal.Inc()
}

func (m *QueueMetrics) TaskRetried() {
	if m == nil {
		return
	}
	m.retriedTotal.Inc()
}

func (m *QueueMetrics) RateLimited(window string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(window).Inc()
}

func (m *QueueMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
