package executor

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hookd/internal/domain"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		errType   domain.ErrorType
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, domain.ErrorTypeTimeout, true},
		{"canceled", context.Canceled, domain.ErrorTypeNetwork, false},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, domain.ErrorTypeDNS, true},
		{"reset", syscall.ECONNRESET, domain.ErrorTypeConnReset, true},
		{"wrapped reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, domain.ErrorTypeConnReset, true},
		{"net timeout", timeoutErr{}, domain.ErrorTypeConnTimeout, true},
		{"other", errors.New("tls handshake failure"), domain.ErrorTypeNetwork, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errType, retryable := classifyError(tc.err)
			require.Equal(t, tc.errType, errType)
			require.Equal(t, tc.retryable, retryable)
		})
	}
}

func TestClassifyAttemptError(t *testing.T) {
	wrapped := &net.OpError{Op: "read", Err: context.Canceled}

	errType, retryable := classifyAttemptError(wrapped, true)
	require.Equal(t, domain.ErrorTypeTimeout, errType)
	require.True(t, retryable, "timer-fired cancellations retry like timeouts")

	errType, retryable = classifyAttemptError(wrapped, false)
	require.Equal(t, domain.ErrorTypeNetwork, errType)
	require.False(t, retryable, "caller aborts never retry")

	errType, _ = classifyAttemptError(syscall.ECONNRESET, true)
	require.Equal(t, domain.ErrorTypeConnReset, errType, "a concrete transport error wins over the timer")
}

func TestExhaustionStatus(t *testing.T) {
	require.Equal(t, 408, exhaustionStatus(domain.ErrorTypeTimeout))
	require.Equal(t, 408, exhaustionStatus(domain.ErrorTypeConnTimeout))
	require.Equal(t, 500, exhaustionStatus(domain.ErrorTypeConnReset))
	require.Equal(t, 500, exhaustionStatus(domain.ErrorTypeDNS))
	require.Equal(t, 500, exhaustionStatus(domain.ErrorTypeNetwork))
}

func TestBackoffDelay(t *testing.T) {
	base := 1000 * time.Millisecond
	require.Equal(t, 1*time.Second, backoffDelay(base, 1))
	require.Equal(t, 2*time.Second, backoffDelay(base, 2))
	require.Equal(t, 4*time.Second, backoffDelay(base, 3))
	require.Equal(t, 1*time.Second, backoffDelay(base, 0))
}
