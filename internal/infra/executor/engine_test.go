package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hookd/internal/domain"
	"hookd/internal/infra/credentials"
	"hookd/internal/infra/health"
)

type spyMetrics struct {
	mu         sync.Mutex
	retries    []domain.ErrorType
	rejections int
	streams    []int
	deliveries []domain.JobStatus
}

func (m *spyMetrics) ObserveExecution(string, time.Duration, bool) {}

func (m *spyMetrics) ObserveRetry(_ string, errType domain.ErrorType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries = append(m.retries, errType)
}

func (m *spyMetrics) ObserveRateLimitRejection(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections++
}

func (m *spyMetrics) ObserveCallbackDelivery(status domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, status)
}

func (m *spyMetrics) SetActiveStreams(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, n)
}

func newTestEngine(t *testing.T, metrics domain.Metrics) (*Engine, *[]time.Duration) {
	t.Helper()

	var sleeps []time.Duration
	engine := NewEngine(Options{
		Health:  health.NewMonitor(zap.NewNop()),
		Metrics: metrics,
		Logger:  zap.NewNop(),
	})
	engine.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return engine, &sleeps
}

func testTool(url string) domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        "notify",
		Description: "Forward to Notify webhook",
		URL:         url,
		Method:      "POST",
	}
}

func TestExecuteSuccess(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"received":"hi"}`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), map[string]any{"message": "hi"}, nil)

	require.True(t, result.Success)
	require.Equal(t, 200, result.Status)
	require.Equal(t, "notify", result.Tool)
	require.Equal(t, map[string]any{"received": "hi"}, result.Data)
	require.False(t, result.Timestamp.IsZero())
	require.GreaterOrEqual(t, result.ResponseTime, time.Duration(0))
	require.JSONEq(t, `{"message":"hi"}`, string(gotBody))
	require.Equal(t, "application/json", gotContentType)
}

func TestExecuteUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	engine, sleeps := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), nil, nil)

	require.False(t, result.Success)
	require.Equal(t, 400, result.Status)
	require.Equal(t, domain.ErrorTypeHTTP, result.ErrorType)
	require.Contains(t, result.Error, "400")
	require.Equal(t, map[string]any{"error": "boom"}, result.Details)
	require.Empty(t, *sleeps, "client errors must not be retried")
}

func TestExecuteRetriesServerErrorsWithBackoff(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	metrics := &spyMetrics{}
	engine, sleeps := newTestEngine(t, metrics)

	tool := testTool(server.URL)
	result := engine.Execute(context.Background(), tool, nil, nil)

	require.True(t, result.Success)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)
	require.Equal(t, []domain.ErrorType{domain.ErrorTypeHTTP, domain.ErrorTypeHTTP}, metrics.retries)
}

func TestExecuteRetryExhaustion(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	engine, sleeps := newTestEngine(t, nil)
	tool := testTool(server.URL)
	retries := 2
	tool.MaxRetries = &retries

	result := engine.Execute(context.Background(), tool, nil, nil)

	require.False(t, result.Success)
	require.Equal(t, 500, result.Status)
	require.EqualValues(t, 2, calls.Load())
	require.Len(t, *sleeps, 1)
	require.Equal(t, "upstream down", result.Details)
}

func TestExecuteTimeoutReports408(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	engine, _ := newTestEngine(t, nil)
	tool := testTool(server.URL)
	timeout := 50
	tool.Timeout = &timeout
	retries := 1
	tool.MaxRetries = &retries

	result := engine.Execute(context.Background(), tool, nil, nil)

	require.False(t, result.Success)
	require.Equal(t, 408, result.Status)
	require.Contains(t, []domain.ErrorType{domain.ErrorTypeTimeout, domain.ErrorTypeConnTimeout}, result.ErrorType)
}

func TestExecuteRateLimitAdmission(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	metrics := &spyMetrics{}
	engine, _ := newTestEngine(t, metrics)

	tool := testTool(server.URL)
	tool.RateLimit = &domain.RateLimitConfig{Requests: 1, Window: 60000}

	first := engine.Execute(context.Background(), tool, nil, nil)
	second := engine.Execute(context.Background(), tool, nil, nil)

	require.True(t, first.Success)
	require.False(t, second.Success)
	require.Equal(t, 429, second.Status)
	require.Equal(t, domain.ErrorTypeRateLimit, second.ErrorType)
	require.EqualValues(t, 1, calls.Load(), "rejected calls must not reach the upstream")
	require.Equal(t, 1, metrics.rejections)

	usage, ok := second.Details.(domain.RateLimitStatus)
	require.True(t, ok)
	require.Equal(t, 1, usage.Requests)
	require.Equal(t, 1, usage.Limit)

	// Rejections still land in health stats.
	report := engine.Health().Health("notify")
	require.EqualValues(t, 2, report.Stats.Total)
	require.EqualValues(t, 1, report.Stats.Errors)
	require.EqualValues(t, 1, report.Stats.ErrorTypes[string(domain.ErrorTypeRateLimit)])
}

func TestExecuteStripsHopByHopAndMergesCredentials(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		got.Set("Host", r.Host)
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	engine.creds = credentials.NewResolver(func(string) (string, bool) { return "", false }, nil, zap.NewNop())

	tool := testTool(server.URL)
	tool.Auth = &domain.AuthConfig{Type: domain.AuthHeader, Name: "X-Api-Key", Value: "s3cret"}

	callerHeaders := map[string]string{
		"Host":           "spoofed.example.com",
		"User-Agent":     "spoofed-agent",
		"Content-Length": "999",
		"X-Request-Id":   "req-1",
		"x-api-key":      "caller-supplied",
	}
	result := engine.Execute(context.Background(), tool, nil, callerHeaders)

	require.True(t, result.Success)
	require.Equal(t, "s3cret", got.Get("X-Api-Key"))
	require.Equal(t, "req-1", got.Get("X-Request-Id"))
	require.NotEqual(t, "spoofed-agent", got.Get("User-Agent"))
	require.NotContains(t, got.Get("Host"), "spoofed.example.com")
}

func TestExecuteGetQueryParameters(t *testing.T) {
	var gotQuery string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	tool := testTool(server.URL)
	tool.Method = "GET"

	result := engine.Execute(context.Background(), tool, map[string]any{"q": "hello world", "limit": float64(5)}, nil)

	require.True(t, result.Success)
	require.Empty(t, gotBody)
	require.Contains(t, gotQuery, "q=hello+world")
	require.Contains(t, gotQuery, "limit=5")
}

func TestExecuteVerbatimStringBody(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), "raw payload", map[string]string{
		"Content-Type": "text/plain",
	})

	require.True(t, result.Success)
	require.Equal(t, "raw payload", string(gotBody))
	require.Equal(t, "text/plain", gotContentType)
}

func TestExecuteTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<b>done</b>`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), nil, nil)

	require.True(t, result.Success)
	require.Equal(t, "<b>done</b>", result.Data)
	require.Nil(t, result.Stream)
}

func TestExecuteMalformedJSONFallsBackToText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), nil, nil)

	require.True(t, result.Success)
	require.Equal(t, `{not json`, result.Data)
}

func TestExecuteBinaryEnvelopePassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"binary":true,"contentType":"image/png","data":"Zm9v"}`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), nil, nil)

	require.True(t, result.Success)
	envelope, ok := domain.AsBinaryEnvelope(result.Data)
	require.True(t, ok)
	require.Equal(t, "image/png", envelope.ContentType)
	require.Equal(t, "Zm9v", envelope.Data)
}

func TestExecuteStreamingResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.Write([]byte("data: one\n\n"))
		flusher.Flush()
		w.Write([]byte("data: two\n\n"))
	}))
	defer server.Close()

	metrics := &spyMetrics{}
	engine, _ := newTestEngine(t, metrics)
	result := engine.Execute(context.Background(), testTool(server.URL), nil, nil)

	require.True(t, result.Success)
	require.NotNil(t, result.Stream)
	require.Nil(t, result.Data)
	require.Equal(t, "text/event-stream", result.Stream.ContentType())

	raw, err := io.ReadAll(result.Stream)
	require.NoError(t, err)
	require.Equal(t, "data: one\n\ndata: two\n\n", string(raw))
	require.NoError(t, result.Stream.Close())
	require.Equal(t, []int{1, 0}, metrics.streams)
}

func TestExecuteStreamOutlivesAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.Write([]byte("data: one\n\n"))
		flusher.Flush()
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("data: two\n\n"))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	tool := testTool(server.URL)
	timeout := 200
	tool.Timeout = &timeout

	result := engine.Execute(context.Background(), tool, nil, nil)
	require.True(t, result.Success)
	require.NotNil(t, result.Stream)

	// The second chunk lands well past the attempt bound; the handle
	// stays live until the consumer closes it.
	raw, err := io.ReadAll(result.Stream)
	require.NoError(t, err)
	require.Equal(t, "data: one\n\ndata: two\n\n", string(raw))
	require.NoError(t, result.Stream.Close())
}

func TestBufferStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte("{\"n\":1}\n{\"n\":2}\n"))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	result := engine.Execute(context.Background(), testTool(server.URL), nil, nil)
	require.NotNil(t, result.Stream)

	text, err := BufferStream(result.Stream)
	require.NoError(t, err)
	require.Equal(t, domain.StreamReassembledPrefix+"{\"n\":1}\n{\"n\":2}\n", text)
}

func TestExecuteRecordsHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t, nil)
	tool := testTool(server.URL)

	engine.Execute(context.Background(), tool, nil, nil)
	engine.Execute(context.Background(), tool, nil, nil)

	report := engine.Health().Health("notify")
	require.EqualValues(t, 2, report.Stats.Total)
	require.EqualValues(t, 2, report.Stats.Success)
	require.Equal(t, domain.HealthHealthy, report.Status)
}
