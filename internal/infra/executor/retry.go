package executor

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"hookd/internal/domain"
)

// classifyError maps a transport failure to its error kind and whether the
// attempt may be retried. Retryable kinds: timeout/abort, connection
// reset, DNS failure, connection timeout. Everything else fails fast.
func classifyError(err error) (domain.ErrorType, bool) {
	if err == nil {
		return "", false
	}

	if errors.Is(err, context.Canceled) {
		return domain.ErrorTypeNetwork, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorTypeTimeout, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ErrorTypeDNS, true
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return domain.ErrorTypeConnReset, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrorTypeConnTimeout, true
	}

	return domain.ErrorTypeNetwork, false
}

// classifyAttemptError folds the attempt timer into classification: a
// cancellation fired by the timer is a timeout, not a caller abort.
func classifyAttemptError(err error, timedOut bool) (domain.ErrorType, bool) {
	if timedOut && errors.Is(err, context.Canceled) {
		return domain.ErrorTypeTimeout, true
	}
	return classifyError(err)
}

// exhaustionStatus is the status reported after retries run out without an
// HTTP response: 408 for timeout kinds, 500 otherwise. The split mirrors
// the error taxonomy rather than any network standard.
func exhaustionStatus(errType domain.ErrorType) int {
	switch errType {
	case domain.ErrorTypeTimeout, domain.ErrorTypeConnTimeout:
		return 408
	default:
		return 500
	}
}

// backoffDelay doubles the base delay per prior attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}
