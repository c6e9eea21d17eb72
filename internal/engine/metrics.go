package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics holds Prometheus metrics for ledger operations.
type engineMetrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	videos     prometheus.Gauge
}

// initEngineMetrics registers the engine metrics with reg.
func initEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	factory := promauto.With(reg)
	m := &engineMetrics{}

	m.operations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_operations_total",
			Help: "ledger operations by outcome (committed, rejected, failed)",
		},
		[]string{"op", "outcome"},
	)
	m.rejections = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_rejections_total",
			Help: "rejected ledger operations by error code",
		},
		[]string{"op", "code"},
	)
	m.duration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reel_operation_duration_seconds",
			Help:    "time spent applying a ledger operation, including retries",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"op"},
	)
	m.videos = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_videos",
			Help: "video_count of the platform state after the last committed operation",
		},
	)
	return m
}

func (m *engineMetrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		m.operations.WithLabelValues(op, "committed").Inc()
	case IsRejection(err):
		m.operations.WithLabelValues(op, "rejected").Inc()
		m.rejections.WithLabelValues(op, string(CodeOf(err))).Inc()
	default:
		m.operations.WithLabelValues(op, "failed").Inc()
	}
}

func (m *engineMetrics) setVideos(n uint64) {
	if m == nil {
		return
	}
	m.videos.Set(float64(n))
}
