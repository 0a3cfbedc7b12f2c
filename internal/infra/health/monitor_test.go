package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hookd/internal/domain"
)

func successResult(tool string, responseTime time.Duration) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success:      true,
		Status:       200,
		Tool:         tool,
		Timestamp:    time.Now(),
		ResponseTime: responseTime,
	}
}

func failureResult(tool string, status int, errType domain.ErrorType) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success:   false,
		Status:    status,
		Tool:      tool,
		Timestamp: time.Now(),
		Error:     "boom",
		ErrorType: errType,
	}
}

func TestMonitor_RecordSuccess(t *testing.T) {
	monitor := NewMonitor(zap.NewNop())

	monitor.RecordExecution("echo", successResult("echo", 100*time.Millisecond))
	monitor.RecordExecution("echo", successResult("echo", 300*time.Millisecond))

	report := monitor.Health("echo")
	require.Equal(t, domain.HealthHealthy, report.Status)
	require.Equal(t, 2, report.Stats.Total)
	require.Equal(t, 2, report.Stats.Success)
	require.Equal(t, 200*time.Millisecond, report.Stats.AvgResponseTime)
	require.False(t, report.Stats.LastSuccess.IsZero())
}

func TestMonitor_RecordFailure(t *testing.T) {
	monitor := NewMonitor(zap.NewNop())

	monitor.RecordExecution("echo", failureResult("echo", 500, domain.ErrorTypeHTTP))
	monitor.RecordExecution("echo", failureResult("echo", 0, domain.ErrorTypeTimeout))

	report := monitor.Health("echo")
	require.Equal(t, domain.HealthCritical, report.Status)
	require.Equal(t, 2, report.Stats.Errors)
	require.NotNil(t, report.Stats.LastError)
	require.Equal(t, "boom", report.Stats.LastError.Message)
	require.Equal(t, 1, report.Stats.ErrorTypes["http_error"])
	require.Equal(t, 1, report.Stats.ErrorTypes["timeout"])
}

func TestMonitor_StatusThresholds(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		expect    domain.HealthStatus
	}{
		{name: "no executions", expect: domain.HealthUnknown},
		{name: "all success", successes: 5, expect: domain.HealthHealthy},
		{name: "exactly 80 percent", successes: 4, failures: 1, expect: domain.HealthHealthy},
		{name: "between 50 and 80", successes: 3, failures: 2, expect: domain.HealthDegraded},
		{name: "exactly 50 percent", successes: 1, failures: 1, expect: domain.HealthDegraded},
		{name: "below 50", successes: 1, failures: 3, expect: domain.HealthCritical},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			monitor := NewMonitor(zap.NewNop())
			for i := 0; i < tc.successes; i++ {
				monitor.RecordExecution("echo", successResult("echo", time.Millisecond))
			}
			for i := 0; i < tc.failures; i++ {
				monitor.RecordExecution("echo", failureResult("echo", 500, domain.ErrorTypeHTTP))
			}
			require.Equal(t, tc.expect, monitor.Health("echo").Status)
		})
	}
}

func TestMonitor_OverallHealth(t *testing.T) {
	monitor := NewMonitor(zap.NewNop())

	monitor.RecordExecution("good", successResult("good", time.Millisecond))
	monitor.RecordExecution("bad", failureResult("bad", 500, domain.ErrorTypeHTTP))

	summary := monitor.OverallHealth()
	require.Len(t, summary.Tools, 2)
	require.Equal(t, 1, summary.Healthy)
	require.Equal(t, 1, summary.Critical)
	require.Equal(t, domain.HealthHealthy, summary.Tools["good"].Status)
}

func TestMonitor_SnapshotIsDetached(t *testing.T) {
	monitor := NewMonitor(zap.NewNop())
	monitor.RecordExecution("echo", failureResult("echo", 500, domain.ErrorTypeHTTP))

	report := monitor.Health("echo")
	report.Stats.ErrorTypes["http_error"] = 99
	report.Stats.LastError.Message = "mutated"

	fresh := monitor.Health("echo")
	require.Equal(t, 1, fresh.Stats.ErrorTypes["http_error"])
	require.Equal(t, "boom", fresh.Stats.LastError.Message)
}

func TestMonitor_Clear(t *testing.T) {
	monitor := NewMonitor(zap.NewNop())
	monitor.RecordExecution("echo", successResult("echo", time.Millisecond))

	monitor.Clear("echo")
	require.Equal(t, domain.HealthUnknown, monitor.Health("echo").Status)
}
