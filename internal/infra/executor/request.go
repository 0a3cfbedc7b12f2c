package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hookd/internal/domain"
)

// hopByHopHeaders are always stripped from caller headers; the transport
// regenerates them.
var hopByHopHeaders = []string{"Host", "Content-Length", "User-Agent"}

func stripHopByHop(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		out[name] = value
	}
	for _, hop := range hopByHopHeaders {
		for name := range out {
			if strings.EqualFold(name, hop) {
				delete(out, name)
			}
		}
	}
	return out
}

// buildRequest constructs one outbound attempt. Object arguments become a
// JSON body for write methods and query parameters for GET; non-object
// payloads pass through verbatim with the caller responsible for any
// Content-Type.
func buildRequest(ctx context.Context, tool domain.ToolDefinition, args any, headers map[string]string) (*http.Request, error) {
	method := tool.EffectiveMethod()
	target := tool.URL

	var body io.Reader
	forceJSON := false

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		switch payload := args.(type) {
		case nil:
		case map[string]any:
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encode arguments: %w", err)
			}
			body = bytes.NewReader(encoded)
			forceJSON = true
		case string:
			body = strings.NewReader(payload)
		case []byte:
			body = bytes.NewReader(payload)
		case json.RawMessage:
			body = bytes.NewReader(payload)
		default:
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encode arguments: %w", err)
			}
			body = bytes.NewReader(encoded)
			forceJSON = true
		}
	case http.MethodGet:
		if payload, ok := args.(map[string]any); ok && len(payload) > 0 {
			withQuery, err := appendQuery(target, payload)
			if err != nil {
				return nil, err
			}
			target = withQuery
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if forceJSON {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func appendQuery(target string, args map[string]any) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	query := parsed.Query()
	for key, value := range args {
		query.Set(key, coerceQueryValue(value))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func coerceQueryValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
