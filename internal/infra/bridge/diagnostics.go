package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Diagnostic tools are registered once and never removed by catalog swaps.
func (b *Bridge) registerDiagnostics() {
	b.server.AddTool(&mcp.Tool{
		Name:        "hookd_health_check",
		Description: "Probe a tool's webhook endpoint and report reachability and latency",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool": map[string]any{"type": "string", "description": "Tool name from the manifest"},
			},
			"required": []string{"tool"},
		},
	}, b.healthCheckHandler)

	b.server.AddTool(&mcp.Tool{
		Name:        "hookd_health_status",
		Description: "Report recorded execution health for one tool or all tools",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool": map[string]any{"type": "string", "description": "Tool name; omit for the overall summary"},
			},
		},
	}, b.healthStatusHandler)

	b.server.AddTool(&mcp.Tool{
		Name:        "hookd_rate_limit_status",
		Description: "Report current sliding-window rate limit usage for a tool",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool": map[string]any{"type": "string", "description": "Tool name from the manifest"},
			},
			"required": []string{"tool"},
		},
	}, b.rateLimitStatusHandler)
}

type diagnosticParams struct {
	Tool string `json:"tool"`
}

func decodeDiagnosticParams(req *mcp.CallToolRequest) (diagnosticParams, error) {
	var params diagnosticParams
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return params, fmt.Errorf("decode arguments: %w", err)
	}
	return params, nil
}

func (b *Bridge) healthCheckHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := decodeDiagnosticParams(req)
	if err != nil {
		return diagnosticError(err.Error()), nil
	}
	if params.Tool == "" {
		return diagnosticError("tool is required"), nil
	}

	tool, ok := b.lookup(params.Tool)
	if !ok {
		return diagnosticError(fmt.Sprintf("tool %q not found", params.Tool)), nil
	}
	return diagnosticResult(b.prober.Check(ctx, tool)), nil
}

func (b *Bridge) healthStatusHandler(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := decodeDiagnosticParams(req)
	if err != nil {
		return diagnosticError(err.Error()), nil
	}

	if params.Tool == "" {
		return diagnosticResult(b.engine.Health().OverallHealth()), nil
	}
	return diagnosticResult(b.engine.Health().Health(params.Tool)), nil
}

func (b *Bridge) rateLimitStatusHandler(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := decodeDiagnosticParams(req)
	if err != nil {
		return diagnosticError(err.Error()), nil
	}
	if params.Tool == "" {
		return diagnosticError("tool is required"), nil
	}

	tool, ok := b.lookup(params.Tool)
	if !ok {
		return diagnosticError(fmt.Sprintf("tool %q not found", params.Tool)), nil
	}
	if tool.RateLimit == nil {
		return diagnosticResult(map[string]any{
			"tool":       tool.Name,
			"configured": false,
		}), nil
	}
	return diagnosticResult(b.engine.Limiter().Status(tool.Name, *tool.RateLimit)), nil
}
