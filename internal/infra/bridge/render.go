package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"hookd/internal/domain"
	"hookd/internal/infra/executor"
)

// renderResult converts an execution result into an MCP tool result.
// Failures become IsError results carrying the full failure envelope as
// structured content; streams are buffered because the protocol delivers
// one result per call.
func renderResult(result domain.ExecutionResult) *mcp.CallToolResult {
	if !result.Success {
		return &mcp.CallToolResult{
			IsError:           true,
			Content:           []mcp.Content{&mcp.TextContent{Text: result.Error}},
			StructuredContent: domain.CloneJSONValue(result),
		}
	}

	if result.Stream != nil {
		text, err := executor.BufferStream(result.Stream)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}
	}

	if envelope, ok := domain.AsBinaryEnvelope(result.Data); ok {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("binary content (%s)", envelope.ContentType),
			}},
			StructuredContent: result.Data,
		}
	}

	switch data := result.Data.(type) {
	case nil:
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: ""}},
		}
	case string:
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: data}},
		}
	default:
		text, err := json.Marshal(data)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("encode result: %v", err)}},
			}
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
			StructuredContent: data,
		}
	}
}

// diagnosticResult renders a diagnostic payload as pretty JSON text plus
// structured content.
func diagnosticResult(payload any) *mcp.CallToolResult {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return diagnosticError(fmt.Sprintf("encode diagnostic: %v", err))
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
		StructuredContent: domain.CloneJSONValue(payload),
	}
}

func diagnosticError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}
