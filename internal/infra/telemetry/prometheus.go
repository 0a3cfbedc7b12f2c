package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hookd/internal/domain"
)

type PrometheusMetrics struct {
	executionDuration   *prometheus.HistogramVec
	retries             *prometheus.CounterVec
	rateLimitRejections *prometheus.CounterVec
	callbackDeliveries  *prometheus.CounterVec
	activeStreams       prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		executionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hookd_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "status"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookd_execution_retries_total",
				Help: "Total number of retried execution attempts",
			},
			[]string{"tool", "reason"},
		),
		rateLimitRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookd_rate_limit_rejections_total",
				Help: "Total number of executions rejected by admission control",
			},
			[]string{"tool"},
		),
		callbackDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookd_callback_deliveries_total",
				Help: "Total number of async callback delivery outcomes",
			},
			[]string{"status"},
		),
		activeStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hookd_active_streams",
				Help: "Current number of open streaming response handles",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveExecution(tool string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	p.executionDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveRetry(tool string, reason domain.ErrorType) {
	p.retries.WithLabelValues(tool, string(reason)).Inc()
}

func (p *PrometheusMetrics) ObserveRateLimitRejection(tool string) {
	p.rateLimitRejections.WithLabelValues(tool).Inc()
}

func (p *PrometheusMetrics) ObserveCallbackDelivery(status domain.JobStatus) {
	p.callbackDeliveries.WithLabelValues(string(status)).Inc()
}

func (p *PrometheusMetrics) SetActiveStreams(count int) {
	p.activeStreams.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
