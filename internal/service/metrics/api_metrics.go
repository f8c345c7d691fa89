package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aleorisk",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of analysis API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleorisk",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by analysis API endpoint and code",
		},
		[]string{"endpoint", "code"},
	)

	ProgressSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aleorisk",
			Subsystem: "progress",
			Name:      "subscribers",
			Help:      "Open websocket progress subscriptions",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, ProgressSubscribers)
	})
}
