package manifest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"hookd/internal/domain"
)

// Catalog is a loaded, normalized, validated set of tools in manifest order.
type Catalog struct {
	Tools map[string]domain.ToolDefinition
	Order []string
}

// Get looks a tool up by name.
func (c Catalog) Get(name string) (domain.ToolDefinition, bool) {
	tool, ok := c.Tools[name]
	return tool, ok
}

// List returns the tools in manifest order.
func (c Catalog) List() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, 0, len(c.Order))
	for _, name := range c.Order {
		if tool, ok := c.Tools[name]; ok {
			out = append(out, tool)
		}
	}
	return out
}

// Entries are kept as yaml nodes so one malformed entry is skipped on its
// own instead of failing the whole document decode.
type rawManifest struct {
	Tools []yaml.Node `yaml:"tools"`
}

// Loader reads a YAML manifest file: env interpolation first, then per-entry
// decode, normalize, duplicate check, and quiet validation filtering.
// Invalid entries are dropped with a warning so a manifest may carry
// experimental tools without breaking enumeration. Decoding goes through
// yaml.v3 rather than a case-folding config layer: the advisory input/output
// schemas must keep their property names exactly as authored.
type Loader struct {
	logger *zap.Logger
	debug  bool
}

func NewLoader(logger *zap.Logger, debug bool) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("manifest"), debug: debug}
}

func (l *Loader) Load(ctx context.Context, path string) (Catalog, error) {
	if err := ctx.Err(); err != nil {
		return Catalog{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read manifest: %w", err)
	}
	return l.Parse(raw)
}

func (l *Loader) Parse(raw []byte) (Catalog, error) {
	expanded, missingVars, err := expandManifestEnv(raw)
	if err != nil {
		return Catalog{}, err
	}
	if len(missingVars) > 0 {
		l.logger.Warn("manifest references unset environment variables, substituting empty strings",
			zap.Strings("vars", missingVars),
		)
	}

	var decoded rawManifest
	if err := yaml.Unmarshal(expanded, &decoded); err != nil {
		return Catalog{}, fmt.Errorf("decode manifest: %w", err)
	}

	definitions := make([]domain.ToolDefinition, 0, len(decoded.Tools))
	for i := range decoded.Tools {
		node := &decoded.Tools[i]

		var entry RawToolEntry
		if err := node.Decode(&entry); err != nil {
			l.logger.Warn("skipping undecodable manifest entry",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if l.debug {
			l.warnUnknownFields(i, node)
		}
		definitions = append(definitions, Normalize(entry).Definition())
	}

	if err := ValidateManifest(definitions); err != nil {
		return Catalog{}, err
	}

	catalog := Catalog{Tools: make(map[string]domain.ToolDefinition, len(definitions))}
	for _, def := range definitions {
		if violations := Violations(def); len(violations) > 0 {
			l.logger.Warn("skipping invalid tool",
				zap.String("tool", def.Name),
				zap.Strings("violations", violations),
			)
			continue
		}
		catalog.Tools[def.Name] = def
		catalog.Order = append(catalog.Order, def.Name)
	}

	l.logger.Info("manifest loaded",
		zap.Int("tools", len(catalog.Order)),
		zap.Int("skipped", len(definitions)-len(catalog.Order)),
	)
	return catalog, nil
}

func (l *Loader) warnUnknownFields(index int, node *yaml.Node) {
	var entry map[string]any
	if err := node.Decode(&entry); err != nil {
		return
	}
	if unknown := UnknownFields(entry); len(unknown) > 0 {
		name, _ := entry["name"].(string)
		l.logger.Debug("manifest entry has unknown fields",
			zap.Int("index", index),
			zap.String("tool", name),
			zap.String("fields", strings.Join(unknown, ", ")),
		)
	}
}
