package telemetry

import (
	"time"

	"hookd/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveExecution(_ string, _ time.Duration, _ bool) {}

func (n *NoopMetrics) ObserveRetry(_ string, _ domain.ErrorType) {}

func (n *NoopMetrics) ObserveRateLimitRejection(_ string) {}

func (n *NoopMetrics) ObserveCallbackDelivery(_ domain.JobStatus) {}

func (n *NoopMetrics) SetActiveStreams(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
