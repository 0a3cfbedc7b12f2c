package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hookd/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiterWithClock(clock.Now)
	cfg := domain.RateLimitConfig{Requests: 2, Window: 1000}

	require.True(t, limiter.IsAllowed("echo", cfg))
	clock.Advance(100 * time.Millisecond)
	require.True(t, limiter.IsAllowed("echo", cfg))
	clock.Advance(100 * time.Millisecond)
	require.False(t, limiter.IsAllowed("echo", cfg))

	// t=1100: both admitted timestamps (t=0, t=100) have left the window.
	clock.Advance(900 * time.Millisecond)
	require.True(t, limiter.IsAllowed("echo", cfg))
}

func TestLimiter_RejectionNotRecorded(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiterWithClock(clock.Now)
	cfg := domain.RateLimitConfig{Requests: 1, Window: 1000}

	require.True(t, limiter.IsAllowed("echo", cfg))
	for i := 0; i < 5; i++ {
		require.False(t, limiter.IsAllowed("echo", cfg))
	}

	status := limiter.Status("echo", cfg)
	require.Equal(t, 1, status.Requests)
}

func TestLimiter_Status(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiterWithClock(clock.Now)
	cfg := domain.RateLimitConfig{Requests: 3, Window: 2000}

	start := clock.Now()
	require.True(t, limiter.IsAllowed("echo", cfg))
	clock.Advance(500 * time.Millisecond)
	require.True(t, limiter.IsAllowed("echo", cfg))

	status := limiter.Status("echo", cfg)
	require.Equal(t, "echo", status.Tool)
	require.Equal(t, 2, status.Requests)
	require.Equal(t, 3, status.Limit)
	require.Equal(t, start.Add(2*time.Second), status.ResetTime)
}

func TestLimiter_ToolsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiterWithClock(clock.Now)
	cfg := domain.RateLimitConfig{Requests: 1, Window: 1000}

	require.True(t, limiter.IsAllowed("a", cfg))
	require.True(t, limiter.IsAllowed("b", cfg))
	require.False(t, limiter.IsAllowed("a", cfg))
	require.False(t, limiter.IsAllowed("b", cfg))
}

func TestLimiter_Clear(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiterWithClock(clock.Now)
	cfg := domain.RateLimitConfig{Requests: 1, Window: 60000}

	require.True(t, limiter.IsAllowed("echo", cfg))
	require.False(t, limiter.IsAllowed("echo", cfg))

	limiter.Clear("echo")
	require.True(t, limiter.IsAllowed("echo", cfg))
}

func TestLimiter_ZeroConfigAlwaysAllows(t *testing.T) {
	limiter := NewLimiter()
	for i := 0; i < 10; i++ {
		require.True(t, limiter.IsAllowed("echo", domain.RateLimitConfig{}))
	}
}

func TestLimiter_ConcurrentAdmission(t *testing.T) {
	limiter := NewLimiter()
	cfg := domain.RateLimitConfig{Requests: 10, Window: 60000}

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- limiter.IsAllowed("echo", cfg)
		}()
	}
	wg.Wait()
	close(allowed)

	admitted := 0
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	require.Equal(t, 10, admitted)
}
