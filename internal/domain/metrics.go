package domain

import "time"

// Metrics receives execution telemetry. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveExecution(tool string, duration time.Duration, success bool)
	ObserveRetry(tool string, reason ErrorType)
	ObserveRateLimitRejection(tool string)
	ObserveCallbackDelivery(status JobStatus)
	SetActiveStreams(count int)
}
