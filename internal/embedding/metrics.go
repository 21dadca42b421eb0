package embedding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "confidant"

// Metrics holds the engine collectors.
type Metrics struct {
	// Loads counts lifecycle transitions. Labels: op (load, autoload, unload), result (ok, error).
	Loads *prometheus.CounterVec

	// Inferences counts embedding requests. Labels: mode (local, remote), result (ok, error).
	Inferences *prometheus.CounterVec

	// Duration measures engine operations. Labels: op.
	Duration *prometheus.HistogramVec

	// Loaded is 1 while a local model is loaded.
	Loaded prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "embedding",
			Name:      "lifecycle_total",
			Help:      "Embedding model lifecycle operations.",
		}, []string{"op", "result"}),
		Inferences: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embedding requests by mode and result.",
		}, []string{"mode", "result"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "embedding",
			Name:      "duration_seconds",
			Help:      "Duration of embedding engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		Loaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "embedding",
			Name:      "model_loaded",
			Help:      "1 while a local embedding model is loaded.",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
