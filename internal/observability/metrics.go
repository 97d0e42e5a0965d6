package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamdevice",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "streamdevice",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamdevice",
			Subsystem: "convert",
			Name:      "operations_total",
			Help:      "Print and scan operations per conversion.",
		},
		[]string{"conv", "op", "result"},
	)
	conversionBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamdevice",
			Subsystem: "convert",
			Name:      "bytes_total",
			Help:      "Wire bytes produced by print and consumed by scan.",
		},
		[]string{"conv", "op"},
	)
	reporterMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamdevice",
			Subsystem: "reporter",
			Name:      "messages_total",
			Help:      "Error reporter calls by category and outcome.",
		},
		[]string{"category", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, conversions, conversionBytes, reporterMessages)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordConversion counts one print or scan; n is the wire byte count on success.
func RecordConversion(conv byte, op, result string, n int) {
	RegisterMetrics()
	convLabel := string(rune(conv))
	conversions.WithLabelValues(convLabel, op, result).Inc()
	if n > 0 {
		conversionBytes.WithLabelValues(convLabel, op).Add(float64(n))
	}
}

func RecordReport(category, outcome string) {
	RegisterMetrics()
	reporterMessages.WithLabelValues(category, outcome).Inc()
}
