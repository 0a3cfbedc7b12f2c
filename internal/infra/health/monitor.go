package health

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"hookd/internal/domain"
)

// Monitor keeps per-tool rolling execution statistics. State is in-memory
// only and reset solely through Clear.
type Monitor struct {
	mu     sync.Mutex
	stats  map[string]*domain.HealthStats
	logger *zap.Logger
}

func NewMonitor(logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		stats:  make(map[string]*domain.HealthStats),
		logger: logger.Named("health"),
	}
}

// RecordExecution folds one finished execution into the tool's counters.
// Results are read-only here; the monitor never mutates them.
func (m *Monitor) RecordExecution(tool string, result domain.ExecutionResult) {
	if tool == "" {
		tool = result.Tool
	}
	if tool == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.stats[tool]
	if !ok {
		stats = &domain.HealthStats{ErrorTypes: make(map[string]int)}
		m.stats[tool] = stats
	}

	stats.Total++
	if result.Success {
		stats.Success++
		stats.LastSuccess = result.Timestamp
		// Running mean over successful executions only.
		prev := stats.AvgResponseTime
		n := time.Duration(stats.Success)
		stats.AvgResponseTime = (prev*(n-1) + result.ResponseTime) / n
		return
	}

	stats.Errors++
	stats.LastError = &domain.LastError{
		Timestamp: result.Timestamp,
		Message:   result.Error,
		Status:    result.Status,
	}
	kind := string(result.ErrorType)
	if kind == "" {
		kind = string(domain.ErrorTypeNetwork)
	}
	stats.ErrorTypes[kind]++

	if stats.Status() == domain.HealthCritical {
		m.logger.Warn("tool health critical",
			zap.String("tool", tool),
			zap.Float64("successRate", stats.SuccessRate()),
			zap.Int("total", stats.Total),
		)
	}
}

// Health reports one tool's stats snapshot.
func (m *Monitor) Health(tool string) domain.HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reportLocked(tool)
}

// OverallHealth snapshots every tracked tool plus status tallies.
func (m *Monitor) OverallHealth() domain.HealthSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := domain.HealthSummary{Tools: make(map[string]domain.HealthReport, len(m.stats))}
	for tool := range m.stats {
		report := m.reportLocked(tool)
		summary.Tools[tool] = report
		switch report.Status {
		case domain.HealthHealthy:
			summary.Healthy++
		case domain.HealthDegraded:
			summary.Degraded++
		case domain.HealthCritical:
			summary.Critical++
		default:
			summary.Unknown++
		}
	}
	return summary
}

// Clear drops recorded stats; with no arguments it drops every tool.
func (m *Monitor) Clear(tools ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tools) == 0 {
		m.stats = make(map[string]*domain.HealthStats)
		return
	}
	for _, tool := range tools {
		delete(m.stats, tool)
	}
}

func (m *Monitor) reportLocked(tool string) domain.HealthReport {
	stats, ok := m.stats[tool]
	if !ok {
		return domain.HealthReport{Tool: tool, Status: domain.HealthUnknown}
	}

	copied := *stats
	copied.ErrorTypes = make(map[string]int, len(stats.ErrorTypes))
	for kind, count := range stats.ErrorTypes {
		copied.ErrorTypes[kind] = count
	}
	if stats.LastError != nil {
		lastErr := *stats.LastError
		copied.LastError = &lastErr
	}

	return domain.HealthReport{
		Tool:        tool,
		Status:      copied.Status(),
		SuccessRate: copied.SuccessRate(),
		Stats:       copied,
	}
}
