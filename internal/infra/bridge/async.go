package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"hookd/internal/infra/manifest"
)

// Async delivery tools: run a tool in the background and POST the finished
// result to a callback URL instead of holding the MCP call open. Registered
// once, like the diagnostics, and never removed by catalog swaps.
func (b *Bridge) registerAsync() {
	b.server.AddTool(&mcp.Tool{
		Name:        "hookd_execute_async",
		Description: "Execute a tool in the background and POST the result to a callback URL",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool":         map[string]any{"type": "string", "description": "Tool name from the manifest"},
				"args":         map[string]any{"description": "Arguments forwarded to the tool"},
				"callback_url": map[string]any{"type": "string", "description": "URL the finished result is POSTed to"},
				"job_id":       map[string]any{"type": "string", "description": "Job ID to assign; generated when omitted"},
			},
			"required": []string{"tool", "callback_url"},
		},
	}, b.executeAsyncHandler)

	b.server.AddTool(&mcp.Tool{
		Name:        "hookd_job_status",
		Description: "Report the delivery status of an asynchronous execution job",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{"type": "string", "description": "Job ID returned by hookd_execute_async"},
			},
			"required": []string{"job_id"},
		},
	}, b.jobStatusHandler)
}

type asyncParams struct {
	Tool        string          `json:"tool"`
	Args        json.RawMessage `json:"args"`
	CallbackURL string          `json:"callback_url"`
	JobID       string          `json:"job_id"`
}

func (b *Bridge) executeAsyncHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return diagnosticError("tool and callback_url are required"), nil
	}
	var params asyncParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return diagnosticError(fmt.Sprintf("decode arguments: %v", err)), nil
	}
	if params.Tool == "" || params.CallbackURL == "" {
		return diagnosticError("tool and callback_url are required"), nil
	}

	tool, ok := b.lookup(params.Tool)
	if !ok {
		return diagnosticError(fmt.Sprintf("tool %q not found", params.Tool)), nil
	}
	if err := manifest.AssertValid(tool); err != nil {
		return nil, err
	}

	// The job outlives this MCP call; only process shutdown should stop it.
	jobID := b.callbacks.ExecuteAndDeliver(context.WithoutCancel(ctx), params.JobID, tool, decodePayload(params.Args), nil, params.CallbackURL)
	return diagnosticResult(map[string]any{
		"job_id": jobID,
		"status": "accepted",
	}), nil
}

func (b *Bridge) jobStatusHandler(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		JobID string `json:"job_id"`
	}
	if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return diagnosticError(fmt.Sprintf("decode arguments: %v", err)), nil
		}
	}
	if params.JobID == "" {
		return diagnosticError("job_id is required"), nil
	}

	job, err := b.callbacks.Job(params.JobID)
	if err != nil {
		return diagnosticError(err.Error()), nil
	}
	return diagnosticResult(job), nil
}
