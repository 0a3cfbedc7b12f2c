package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hookd/internal/domain"
)

// CallbackExecutor runs a tool in the background and POSTs the finished
// result to a caller-supplied callback URL. Delivery uses a fixed timeout
// and never retries; a delivery failure is recorded on the job, not
// surfaced to the original caller.
type CallbackExecutor struct {
	engine *Engine
	client *http.Client
	logger *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*domain.DeliveryJob
}

func NewCallbackExecutor(engine *Engine, logger *zap.Logger) *CallbackExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackExecutor{
		engine: engine,
		client: &http.Client{Timeout: time.Duration(domain.CallbackTimeoutMillis) * time.Millisecond},
		logger: logger.Named("callback"),
		jobs:   make(map[string]*domain.DeliveryJob),
	}
}

// ExecuteAndDeliver starts the execution in the background and returns the
// job ID immediately. An empty jobID gets a generated one.
func (c *CallbackExecutor) ExecuteAndDeliver(ctx context.Context, jobID string, tool domain.ToolDefinition, args any, callerHeaders map[string]string, callbackURL string) string {
	if jobID == "" {
		jobID = uuid.NewString()
	}

	c.mu.Lock()
	c.jobs[jobID] = &domain.DeliveryJob{
		ID:          jobID,
		Tool:        tool.Name,
		CallbackURL: callbackURL,
		Status:      domain.JobPending,
	}
	c.mu.Unlock()

	go c.run(ctx, jobID, tool, args, callerHeaders, callbackURL)
	return jobID
}

// Job returns a snapshot of a delivery job.
func (c *CallbackExecutor) Job(jobID string) (domain.DeliveryJob, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return domain.DeliveryJob{}, domain.E(domain.CodeNotFound, "callback.Job",
			fmt.Sprintf("job %q not found", jobID), domain.ErrJobNotFound)
	}
	return *job, nil
}

func (c *CallbackExecutor) run(ctx context.Context, jobID string, tool domain.ToolDefinition, args any, callerHeaders map[string]string, callbackURL string) {
	result := c.engine.Execute(ctx, tool, args, callerHeaders)

	// Callback payloads are always materialized; a stream cannot be
	// forwarded as a single POST body.
	if result.Stream != nil {
		text, err := BufferStream(result.Stream)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			result.ErrorType = domain.ErrorTypeNetwork
		} else {
			result.Data = text
		}
		result.Stream = nil
	}

	status := domain.JobCompleted
	if !result.Success {
		status = domain.JobFailed
	}
	envelope := domain.DeliveryEnvelope{
		JobID:    jobID,
		ToolName: tool.Name,
		Status:   status,
	}
	if result.Success {
		envelope.Result = &result
	} else {
		envelope.Error = &result
	}

	deliveryErr := c.deliver(callbackURL, envelope)
	if deliveryErr != nil {
		status = domain.JobCallbackFailed
		c.logger.Warn("callback delivery failed",
			zap.String("job", jobID),
			zap.String("tool", tool.Name),
			zap.String("callback_url", callbackURL),
			zap.Error(deliveryErr),
		)
	}

	c.mu.Lock()
	if job, ok := c.jobs[jobID]; ok {
		job.Status = status
		job.CompletedAt = time.Now()
		if deliveryErr != nil {
			job.Error = deliveryErr.Error()
		} else if !result.Success {
			job.Error = result.Error
		}
	}
	c.mu.Unlock()

	c.engine.metrics.ObserveCallbackDelivery(status)
}

func (c *CallbackExecutor) deliver(callbackURL string, envelope domain.DeliveryEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned %d", resp.StatusCode)
	}
	return nil
}
