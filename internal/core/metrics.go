// AngelaMos | 2026
// metrics.go

package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by the admission
// pipeline, the rate limiters and the scheduled jobs.
type Metrics struct {
	admissionTotal    *prometheus.CounterVec
	admissionDuration *prometheus.HistogramVec
	quotaAnomalies    *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	jobRuns           *prometheus.CounterVec
	jobItems          *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the process-wide metrics registered on the default registry.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = NewMetrics(prometheus.DefaultRegisterer)
	})
	return metricsInstance
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		admissionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Subsystem: "admission",
				Name:      "decisions_total",
				Help:      "SDK admission decisions by request type and outcome",
			},
			[]string{"request_type", "outcome"},
		),
		admissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "entitlements",
				Subsystem: "admission",
				Name:      "duration_seconds",
				Help:      "Time spent deciding SDK admission",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"request_type"},
		),
		quotaAnomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Subsystem: "quota",
				Name:      "anomalies_total",
				Help:      "Quota ledger writes that could not be confirmed",
			},
			[]string{"kind"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Subsystem: "ratelimit",
				Name:      "rejections_total",
				Help:      "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Subsystem: "jobs",
				Name:      "runs_total",
				Help:      "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		),
		jobItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Subsystem: "jobs",
				Name:      "items_total",
				Help:      "Items processed by scheduled jobs",
			},
			[]string{"job"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.admissionTotal,
			m.admissionDuration,
			m.quotaAnomalies,
			m.rateLimited,
			m.jobRuns,
			m.jobItems,
		)
	}

	return m
}

func (m *Metrics) RecordAdmission(requestType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.admissionTotal.WithLabelValues(requestType, outcome).Inc()
	m.admissionDuration.WithLabelValues(requestType).Observe(seconds)
}

func (m *Metrics) RecordQuotaAnomaly(kind string) {
	if m == nil {
		return
	}
	m.quotaAnomalies.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}

func (m *Metrics) RecordJobRun(job string, items int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobItems.WithLabelValues(job).Add(float64(items))
}
