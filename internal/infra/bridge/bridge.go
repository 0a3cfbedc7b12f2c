package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"hookd/internal/domain"
	"hookd/internal/infra/executor"
	"hookd/internal/infra/health"
	"hookd/internal/infra/manifest"
)

// Bridge exposes a tool catalog over MCP. Each manifest tool becomes an
// MCP tool whose handler runs the execution engine; diagnostic tools
// surface health and rate-limit state.
type Bridge struct {
	engine    *executor.Engine
	prober    *health.Prober
	callbacks *executor.CallbackExecutor
	server    *mcp.Server
	logger    *zap.Logger

	mu         sync.Mutex
	catalog    manifest.Catalog
	registered map[string]struct{}
}

func New(engine *executor.Engine, prober *health.Prober, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		engine:    engine,
		prober:    prober,
		callbacks: executor.NewCallbackExecutor(engine, logger),
		logger:    logger.Named("bridge"),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "hookd",
			Version: "0.1.0",
		}, &mcp.ServerOptions{
			HasTools: true,
		}),
		registered: make(map[string]struct{}),
	}
	b.registerDiagnostics()
	b.registerAsync()
	return b
}

// Run serves the bridge over stdio until the context is done.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge starting (stdio transport)")
	return b.server.Run(ctx, &mcp.StdioTransport{})
}

// Apply swaps the exposed tool set to the given catalog. Tools whose input
// schema does not resolve as an object JSON Schema are skipped, not fatal,
// so one bad entry cannot take the rest of the manifest offline.
func (b *Bridge) Apply(catalog manifest.Catalog) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.catalog = catalog

	next := make(map[string]struct{})
	for _, def := range catalog.List() {
		tool := mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def),
		}
		if def.Output != nil {
			tool.OutputSchema = def.Output
		}
		if err := checkObjectSchema(tool.InputSchema); err != nil {
			b.logger.Warn("skip tool with unresolvable input schema",
				zap.String("tool", def.Name),
				zap.Error(err),
			)
			continue
		}
		b.server.AddTool(&tool, b.toolHandler(def.Name))
		next[def.Name] = struct{}{}
	}

	var remove []string
	for name := range b.registered {
		if _, ok := next[name]; !ok {
			remove = append(remove, name)
		}
	}
	if len(remove) > 0 {
		b.server.RemoveTools(remove...)
	}

	b.registered = next
	b.logger.Info("tool set applied",
		zap.Int("tools", len(next)),
		zap.Int("removed", len(remove)),
	)
}

func (b *Bridge) lookup(name string) (domain.ToolDefinition, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.catalog.Get(name)
}

func (b *Bridge) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tool, ok := b.lookup(name)
		if !ok {
			return nil, domain.E(domain.CodeNotFound, "bridge.call",
				fmt.Sprintf("tool %q not found", name), domain.ErrToolNotFound)
		}
		// Synchronous guard; the only path allowed to raise instead of
		// returning a failure result.
		if err := manifest.AssertValid(tool); err != nil {
			return nil, err
		}

		result := b.engine.Execute(ctx, tool, decodeArguments(req), nil)
		return renderResult(result), nil
	}
}

// decodeArguments maps the wire arguments onto the engine's payload model:
// JSON objects become maps, JSON strings become verbatim bodies, anything
// else passes through raw.
func decodeArguments(req *mcp.CallToolRequest) any {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	return decodePayload(json.RawMessage(req.Params.Arguments))
}

func decodePayload(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}
	switch payload := decoded.(type) {
	case map[string]any:
		return payload
	case string:
		return payload
	case nil:
		return nil
	default:
		return raw
	}
}

// inputSchema falls back to a permissive object schema when the manifest
// declares none.
func inputSchema(def domain.ToolDefinition) map[string]any {
	if def.Input != nil {
		return def.Input
	}
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// checkObjectSchema verifies the schema resolves as a JSON Schema and
// describes an object, the only argument shape MCP tools accept.
func checkObjectSchema(schema any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}

	var parsed jsonschema.Schema
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	if _, err := parsed.Resolve(nil); err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("schema is not an object: %w", err)
	}
	if typ, ok := obj["type"].(string); ok && typ != "object" {
		return fmt.Errorf("schema type %q, want object", typ)
	}
	return nil
}
