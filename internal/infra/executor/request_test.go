package executor

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"hookd/internal/domain"
)

func TestStripHopByHop(t *testing.T) {
	in := map[string]string{
		"host":           "a",
		"Content-Length": "12",
		"USER-AGENT":     "curl",
		"X-Keep":         "yes",
	}
	out := stripHopByHop(in)

	require.Equal(t, map[string]string{"X-Keep": "yes"}, out)
	require.Len(t, in, 4, "input must not be mutated")
}

func TestBuildRequestObjectBody(t *testing.T) {
	tool := domain.ToolDefinition{Name: "t", URL: "http://example.com/hook", Method: "POST"}
	req, err := buildRequest(context.Background(), tool, map[string]any{"a": 1}, map[string]string{
		"Content-Type": "text/plain",
		"X-Trace":      "abc",
	})
	require.NoError(t, err)

	body, _ := io.ReadAll(req.Body)
	require.JSONEq(t, `{"a":1}`, string(body))
	// Object payloads always go out as JSON, caller override or not.
	require.Equal(t, "application/json", req.Header.Get("Content-Type"))
	require.Equal(t, "application/json", req.Header.Get("Accept"))
	require.Equal(t, "abc", req.Header.Get("X-Trace"))
}

func TestBuildRequestNilBody(t *testing.T) {
	tool := domain.ToolDefinition{Name: "t", URL: "http://example.com/hook", Method: "POST"}
	req, err := buildRequest(context.Background(), tool, nil, nil)
	require.NoError(t, err)
	require.Nil(t, req.Body)
	require.Empty(t, req.Header.Get("Content-Type"))
}

func TestBuildRequestVerbatimBytes(t *testing.T) {
	tool := domain.ToolDefinition{Name: "t", URL: "http://example.com/hook", Method: "PUT"}
	req, err := buildRequest(context.Background(), tool, []byte("<xml/>"), map[string]string{
		"Content-Type": "application/xml",
	})
	require.NoError(t, err)

	body, _ := io.ReadAll(req.Body)
	require.Equal(t, "<xml/>", string(body))
	require.Equal(t, "application/xml", req.Header.Get("Content-Type"))
}

func TestBuildRequestGetMergesQuery(t *testing.T) {
	tool := domain.ToolDefinition{Name: "t", URL: "http://example.com/search?page=1", Method: "GET"}
	req, err := buildRequest(context.Background(), tool, map[string]any{
		"q":      "go",
		"strict": true,
		"limit":  float64(10),
	}, nil)
	require.NoError(t, err)

	query := req.URL.Query()
	require.Equal(t, "1", query.Get("page"))
	require.Equal(t, "go", query.Get("q"))
	require.Equal(t, "true", query.Get("strict"))
	require.Equal(t, "10", query.Get("limit"))
	require.Nil(t, req.Body)
}

func TestBuildRequestGetEmptyArgsLeavesURL(t *testing.T) {
	tool := domain.ToolDefinition{Name: "t", URL: "http://example.com/search", Method: "GET"}
	req, err := buildRequest(context.Background(), tool, map[string]any{}, nil)
	require.NoError(t, err)
	require.Equal(t, "http://example.com/search", req.URL.String())
}

func TestBuildRequestDefaultsMethod(t *testing.T) {
	tool := domain.ToolDefinition{Name: "t", URL: "http://example.com/hook"}
	req, err := buildRequest(context.Background(), tool, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, req.Method)
}
