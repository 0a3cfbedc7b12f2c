package ratelimit

import (
	"sync"
	"time"

	"hookd/internal/domain"
)

// Limiter applies per-tool sliding-window admission control. A tool's
// window is the ordered set of admitted request timestamps pruned to the
// trailing interval on every check.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// NewLimiterWithClock injects a clock for tests.
func NewLimiterWithClock(now func() time.Time) *Limiter {
	l := NewLimiter()
	if now != nil {
		l.now = now
	}
	return l
}

// IsAllowed prunes the tool's window and admits the call unless the pruned
// count already meets the quota. Rejected calls are not recorded.
func (l *Limiter) IsAllowed(tool string, cfg domain.RateLimitConfig) bool {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := time.Duration(cfg.Window) * time.Millisecond
	kept := l.prune(tool, now, window)

	if len(kept) >= cfg.Requests {
		l.windows[tool] = kept
		return false
	}

	l.windows[tool] = append(kept, now)
	return true
}

// Status reports current usage without admitting anything. ResetTime is
// when the oldest counted request exits the window.
func (l *Limiter) Status(tool string, cfg domain.RateLimitConfig) domain.RateLimitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	status := domain.RateLimitStatus{
		Tool:  tool,
		Limit: cfg.Requests,
	}
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return status
	}

	now := l.now()
	window := time.Duration(cfg.Window) * time.Millisecond
	kept := l.prune(tool, now, window)
	l.windows[tool] = kept

	status.Requests = len(kept)
	if len(kept) > 0 {
		status.ResetTime = kept[0].Add(window)
	}
	return status
}

// Clear drops recorded windows; with no arguments it drops every tool.
func (l *Limiter) Clear(tools ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(tools) == 0 {
		l.windows = make(map[string][]time.Time)
		return
	}
	for _, tool := range tools {
		delete(l.windows, tool)
	}
}

func (l *Limiter) prune(tool string, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	stored := l.windows[tool]
	kept := stored[:0:0]
	for _, ts := range stored {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
