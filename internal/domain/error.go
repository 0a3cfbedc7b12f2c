package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeUnavailable       ErrorCode = "UNAVAILABLE"
	CodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	CodeInternal          ErrorCode = "INTERNAL"
	CodeDeadlineExceeded  ErrorCode = "DEADLINE_EXCEEDED"
)

type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:      existing.Code,
			Op:        op,
			Message:   existing.Message,
			Cause:     existing.Cause,
			Retryable: existing.Retryable,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrInvalidTool), errors.Is(err, ErrDuplicateToolName):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrToolNotFound), errors.Is(err, ErrJobNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrRateLimited):
		return CodeResourceExhausted, true
	default:
		return "", false
	}
}

var ErrInvalidTool = errors.New("invalid tool definition")
var ErrDuplicateToolName = errors.New("duplicate tool name")
var ErrToolNotFound = errors.New("tool not found")
var ErrRateLimited = errors.New("rate limit exceeded")
var ErrJobNotFound = errors.New("job not found")
