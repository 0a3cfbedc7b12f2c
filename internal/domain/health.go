package domain

import "time"

// HealthStatus classifies a tool's rolling success rate.
type HealthStatus string

const (
	// HealthUnknown: no recorded executions yet.
	HealthUnknown HealthStatus = "unknown"
	// HealthHealthy: success rate >= 80%.
	HealthHealthy HealthStatus = "healthy"
	// HealthDegraded: success rate in [50%, 80%).
	HealthDegraded HealthStatus = "degraded"
	// HealthCritical: success rate < 50%.
	HealthCritical HealthStatus = "critical"
)

// LastError captures the most recent failure recorded for a tool.
type LastError struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
}

// HealthStats are per-tool rolling counters. Mutated only by the health
// monitor; never reset except by explicit clear.
type HealthStats struct {
	Total           int            `json:"total"`
	Success         int            `json:"success"`
	Errors          int            `json:"errors"`
	AvgResponseTime time.Duration  `json:"avgResponseTime"`
	LastSuccess     time.Time      `json:"lastSuccess,omitzero"`
	LastError       *LastError     `json:"lastError,omitempty"`
	ErrorTypes      map[string]int `json:"errorTypes,omitempty"`
}

// SuccessRate is the percentage of successful executions, 0 when empty.
func (s HealthStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total) * 100
}

// Status classifies the stats per the success-rate thresholds.
func (s HealthStats) Status() HealthStatus {
	if s.Total == 0 {
		return HealthUnknown
	}
	rate := s.SuccessRate()
	switch {
	case rate < 50:
		return HealthCritical
	case rate < 80:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

// HealthReport is a point-in-time view of one tool's health.
type HealthReport struct {
	Tool        string       `json:"tool"`
	Status      HealthStatus `json:"status"`
	SuccessRate float64      `json:"successRate"`
	Stats       HealthStats  `json:"stats"`
}

// HealthSummary aggregates health across every tracked tool.
type HealthSummary struct {
	Tools    map[string]HealthReport `json:"tools"`
	Healthy  int                     `json:"healthy"`
	Degraded int                     `json:"degraded"`
	Critical int                     `json:"critical"`
	Unknown  int                     `json:"unknown"`
}

// ProbeResult reports a live reachability check. Probes are diagnostics;
// they never touch HealthStats.
type ProbeResult struct {
	Tool      string        `json:"tool"`
	Reachable bool          `json:"reachable"`
	Status    int           `json:"status,omitempty"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// RateLimitStatus reports current sliding-window usage for a tool.
type RateLimitStatus struct {
	Tool      string    `json:"tool"`
	Requests  int       `json:"requests"`
	Limit     int       `json:"limit"`
	ResetTime time.Time `json:"resetTime,omitzero"`
}
