package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"hookd/internal/domain"
)

// Prober issues lightweight reachability checks against tool endpoints.
// Probes use a short fixed timeout independent of the tool's own policy
// and are never folded into HealthStats.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewProber(client *http.Client, logger *zap.Logger) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		client:  client,
		timeout: domain.DefaultProbeTimeoutMillis * time.Millisecond,
		logger:  logger.Named("probe"),
	}
}

// Check sends a bodyless HEAD request to the tool's URL and reports
// reachability plus latency. Any HTTP status counts as reachable.
func (p *Prober) Check(ctx context.Context, tool domain.ToolDefinition) domain.ProbeResult {
	result := domain.ProbeResult{Tool: tool.Name}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, tool.URL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		p.logger.Debug("probe failed", zap.String("tool", tool.Name), zap.Error(err))
		return result
	}
	defer resp.Body.Close()

	result.Reachable = true
	result.Status = resp.StatusCode
	return result
}
