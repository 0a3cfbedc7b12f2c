package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hookd/internal/domain"
	"hookd/internal/infra/credentials"
	"hookd/internal/infra/health"
	"hookd/internal/infra/ratelimit"
	"hookd/internal/infra/telemetry"
)

// Engine executes tool definitions against their upstream webhooks:
// admission control, credential resolution, request construction, the
// retry loop, response classification, and health recording. Ordinary
// failures never escape Execute; they come back as failed results.
type Engine struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	health  *health.Monitor
	creds   *credentials.Resolver
	metrics domain.Metrics
	logger  *zap.Logger

	sleep   func(time.Duration)
	now     func() time.Time
	streams atomic.Int64
}

type Options struct {
	Client      *http.Client
	Limiter     *ratelimit.Limiter
	Health      *health.Monitor
	Credentials *credentials.Resolver
	Metrics     domain.Metrics
	Logger      *zap.Logger
}

func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &Engine{
		client:  opts.Client,
		limiter: opts.Limiter,
		health:  opts.Health,
		creds:   opts.Credentials,
		metrics: opts.Metrics,
		logger:  logger.Named("executor"),
		sleep:   time.Sleep,
		now:     time.Now,
	}
	if engine.client == nil {
		engine.client = &http.Client{}
	}
	if engine.limiter == nil {
		engine.limiter = ratelimit.NewLimiter()
	}
	if engine.health == nil {
		engine.health = health.NewMonitor(logger)
	}
	if engine.creds == nil {
		engine.creds = credentials.NewResolver(os.LookupEnv, nil, logger)
	}
	if engine.metrics == nil {
		engine.metrics = telemetry.NewNoopMetrics()
	}
	return engine
}

// Limiter exposes the engine's admission control for status queries.
func (e *Engine) Limiter() *ratelimit.Limiter { return e.limiter }

// Health exposes the engine's health monitor for status queries.
func (e *Engine) Health() *health.Monitor { return e.health }

// Execute runs one tool call end to end and returns the normalized result.
func (e *Engine) Execute(ctx context.Context, tool domain.ToolDefinition, args any, callerHeaders map[string]string) domain.ExecutionResult {
	start := e.now()

	if tool.RateLimit != nil && !e.limiter.IsAllowed(tool.Name, *tool.RateLimit) {
		e.metrics.ObserveRateLimitRejection(tool.Name)
		usage := e.limiter.Status(tool.Name, *tool.RateLimit)
		e.logger.Warn("rate limit exceeded",
			zap.String("tool", tool.Name),
			zap.Int("requests", usage.Requests),
			zap.Int("limit", usage.Limit),
		)
		result := e.failure(tool, 429, domain.ErrorTypeRateLimit, "rate limit exceeded", usage)
		return e.record(tool, start, result)
	}

	headers := e.creds.Resolve(tool, stripHopByHop(callerHeaders))

	attempts := tool.EffectiveMaxRetries()
	if attempts < 1 {
		attempts = 1
	}
	baseDelay := tool.EffectiveRetryDelay()

	var result domain.ExecutionResult
	for attempt := 1; ; attempt++ {
		attemptResult, errType, retryable := e.attempt(ctx, tool, args, headers, start)
		if retryable && attempt < attempts {
			delay := backoffDelay(baseDelay, attempt)
			e.metrics.ObserveRetry(tool.Name, errType)
			e.logger.Debug("retrying tool execution",
				zap.String("tool", tool.Name),
				zap.Int("attempt", attempt),
				zap.String("reason", string(errType)),
				zap.Duration("delay", delay),
			)
			e.sleep(delay)
			continue
		}
		result = attemptResult
		break
	}

	return e.record(tool, start, result)
}

// attempt performs a single bounded HTTP exchange. The error type and
// retryable flag describe how the retry loop should treat a failure.
//
// The timeout is armed as a cancel timer rather than a context deadline so
// the streaming path can disarm it once headers are in: a deadline would
// keep running and abort body reads mid-stream.
func (e *Engine) attempt(ctx context.Context, tool domain.ToolDefinition, args any, headers map[string]string, start time.Time) (domain.ExecutionResult, domain.ErrorType, bool) {
	attemptCtx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	timer := time.AfterFunc(tool.EffectiveTimeout(), func() {
		timedOut.Store(true)
		cancel()
	})
	finish := func() {
		timer.Stop()
		cancel()
	}

	req, err := buildRequest(attemptCtx, tool, args, headers)
	if err != nil {
		finish()
		return e.failure(tool, 500, domain.ErrorTypeNetwork, err.Error(), nil), domain.ErrorTypeNetwork, false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		finish()
		errType, retryable := classifyAttemptError(err, timedOut.Load())
		return e.failure(tool, exhaustionStatus(errType), errType, err.Error(), nil), errType, retryable
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result := e.upstreamFailure(tool, resp)
		finish()
		// Server errors stay retryable; client errors fail fast.
		return result, domain.ErrorTypeHTTP, resp.StatusCode >= 500
	}

	contentType := resp.Header.Get("Content-Type")
	if isStreamingContentType(contentType) {
		// Headers arrived within the bound; the body is the consumer's to
		// pace, so the timer is disarmed before handing the stream over.
		timer.Stop()
		return e.streamResult(tool, start, resp, cancel, contentType), "", false
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	finish()
	if err != nil {
		errType, retryable := classifyAttemptError(err, timedOut.Load())
		return e.failure(tool, exhaustionStatus(errType), errType, err.Error(), nil), errType, retryable
	}

	var data any
	if isJSONContentType(contentType) {
		var decoded any
		if json.Unmarshal(raw, &decoded) == nil {
			data = decoded
		} else {
			data = string(raw)
		}
	} else {
		data = string(raw)
	}

	return domain.ExecutionResult{
		Success:      true,
		Data:         data,
		Status:       resp.StatusCode,
		Tool:         tool.Name,
		Timestamp:    e.now(),
		ResponseTime: e.now().Sub(start),
		ContentType:  contentType,
	}, "", false
}

// streamResult hands the live body to the caller. The attempt's
// cancellation is released when the stream is closed, not before; the
// timeout timer was already disarmed, so a consumer can read for as long
// as the upstream keeps the stream open.
func (e *Engine) streamResult(tool domain.ToolDefinition, start time.Time, resp *http.Response, cancel context.CancelFunc, contentType string) domain.ExecutionResult {
	e.metrics.SetActiveStreams(int(e.streams.Add(1)))
	closer := &streamCloser{
		body:   resp.Body,
		cancel: cancel,
		onClose: func() {
			e.metrics.SetActiveStreams(int(e.streams.Add(-1)))
		},
	}
	return domain.ExecutionResult{
		Success:      true,
		Stream:       domain.NewBodyStream(closer, contentType),
		Status:       resp.StatusCode,
		Tool:         tool.Name,
		Timestamp:    e.now(),
		ResponseTime: e.now().Sub(start),
		ContentType:  contentType,
	}
}

func (e *Engine) upstreamFailure(tool domain.ToolDefinition, resp *http.Response) domain.ExecutionResult {
	details := parseErrorBody(resp.Body)
	resp.Body.Close()
	message := fmt.Sprintf("upstream returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return e.failure(tool, resp.StatusCode, domain.ErrorTypeHTTP, message, details)
}

func (e *Engine) failure(tool domain.ToolDefinition, status int, errType domain.ErrorType, message string, details any) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success:   false,
		Status:    status,
		Tool:      tool.Name,
		Timestamp: e.now(),
		Error:     message,
		ErrorType: errType,
		Details:   details,
	}
}

// record finishes a result: health recording is unconditional, metrics
// observe the full wall-clock duration including retries.
func (e *Engine) record(tool domain.ToolDefinition, start time.Time, result domain.ExecutionResult) domain.ExecutionResult {
	e.health.RecordExecution(tool.Name, result)
	e.metrics.ObserveExecution(tool.Name, e.now().Sub(start), result.Success)
	return result
}

// streamCloser releases the attempt's cancellation and the stream gauge
// exactly once, whichever path closes the stream.
type streamCloser struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	onClose func()
	once    sync.Once
}

func (c *streamCloser) Read(p []byte) (int, error) {
	return c.body.Read(p)
}

func (c *streamCloser) Close() error {
	err := c.body.Close()
	c.once.Do(func() {
		c.cancel()
		if c.onClose != nil {
			c.onClose()
		}
	})
	return err
}

// BufferStream drains a stream into a single text blob for consumers that
// cannot process incremental chunks, marking it as reassembled.
func BufferStream(stream *domain.BodyStream) (string, error) {
	if stream == nil {
		return "", nil
	}
	defer stream.Close()

	raw, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("drain stream: %w", err)
	}
	return domain.StreamReassembledPrefix + string(raw), nil
}
