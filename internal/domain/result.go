package domain

import (
	"encoding/json"
	"io"
	"time"
)

// ErrorType labels the failure kind carried by a failed ExecutionResult.
type ErrorType string

const (
	// ErrorTypeTimeout indicates a client-side attempt timeout.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnTimeout indicates the connection itself timed out.
	ErrorTypeConnTimeout ErrorType = "connection_timeout"
	// ErrorTypeConnReset indicates the peer reset the connection.
	ErrorTypeConnReset ErrorType = "connection_reset"
	// ErrorTypeDNS indicates name resolution failed.
	ErrorTypeDNS ErrorType = "dns_failure"
	// ErrorTypeHTTP indicates the upstream returned a non-2xx response.
	ErrorTypeHTTP ErrorType = "http_error"
	// ErrorTypeNetwork indicates an unclassified transport failure.
	ErrorTypeNetwork ErrorType = "network_error"
	// ErrorTypeRateLimit indicates admission control rejected the call.
	ErrorTypeRateLimit ErrorType = "rate_limited"
)

// ExecutionResult is the normalized outcome of one tool execution.
// Created fresh per call and immutable once returned.
type ExecutionResult struct {
	Success      bool          `json:"success"`
	Data         any           `json:"data,omitempty"`
	Stream       *BodyStream   `json:"-"`
	Status       int           `json:"status"`
	Tool         string        `json:"tool"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"responseTime,omitempty"`
	ContentType  string        `json:"contentType,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorType    ErrorType     `json:"errorType,omitempty"`
	Details      any           `json:"details,omitempty"`
}

// BodyStream is a live, single-consumer, forward-only byte stream over an
// upstream response body. The consumer must drain or Close it to release
// the underlying connection.
type BodyStream struct {
	rc          io.ReadCloser
	contentType string
}

func NewBodyStream(rc io.ReadCloser, contentType string) *BodyStream {
	return &BodyStream{rc: rc, contentType: contentType}
}

func (s *BodyStream) Read(p []byte) (int, error) {
	if s == nil || s.rc == nil {
		return 0, io.EOF
	}
	return s.rc.Read(p)
}

func (s *BodyStream) Close() error {
	if s == nil || s.rc == nil {
		return nil
	}
	return s.rc.Close()
}

func (s *BodyStream) ContentType() string {
	if s == nil {
		return ""
	}
	return s.contentType
}

// BinaryEnvelope is the JSON convention carrying base64 payloads through a
// JSON response path: {"binary": true, "contentType": ..., "data": ...}.
// The engine passes it through untouched; decoding is a transport concern.
type BinaryEnvelope struct {
	Binary      bool   `json:"binary"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

// AsBinaryEnvelope reports whether a decoded JSON body matches the binary
// envelope shape. Detection is shape-driven regardless of the response's
// own Content-Type header.
func AsBinaryEnvelope(body any) (BinaryEnvelope, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return BinaryEnvelope{}, false
	}
	binary, ok := obj["binary"].(bool)
	if !ok || !binary {
		return BinaryEnvelope{}, false
	}
	contentType, ok := obj["contentType"].(string)
	if !ok {
		return BinaryEnvelope{}, false
	}
	data, ok := obj["data"].(string)
	if !ok {
		return BinaryEnvelope{}, false
	}
	return BinaryEnvelope{Binary: true, ContentType: contentType, Data: data}, true
}

// CloneJSONValue deep-copies a JSON-shaped value via round-trip encoding.
func CloneJSONValue(value any) any {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
