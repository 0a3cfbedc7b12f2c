package manifest

import (
	"hookd/internal/domain"
)

// RawToolEntry is a manifest entry before normalization: either a canonical
// tool definition or a {name, webhook} shorthand. Pointer fields keep
// "absent" distinguishable from zero for the validator. Decoded with
// yaml.v3 directly so nested schema keys keep their authored casing.
type RawToolEntry struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Webhook     string                  `yaml:"webhook"`
	URL         string                  `yaml:"url"`
	Method      string                  `yaml:"method"`
	Input       map[string]any          `yaml:"input"`
	Output      map[string]any          `yaml:"output"`
	Timeout     *int                    `yaml:"timeout"`
	MaxRetries  *int                    `yaml:"maxRetries"`
	RetryDelay  *int                    `yaml:"retryDelay"`
	RateLimit   *domain.RateLimitConfig `yaml:"rateLimit"`
	Auth        *domain.AuthConfig      `yaml:"auth"`
	AuthFrom    *domain.AuthFromConfig  `yaml:"authFrom"`
	Public      *bool                   `yaml:"public"`
}

// Definition maps a normalized raw entry onto the canonical type. The
// shorthand webhook field is gone by this point; anything still malformed
// is left for the validator to reject.
func (e RawToolEntry) Definition() domain.ToolDefinition {
	def := domain.ToolDefinition{
		Name:        e.Name,
		Description: e.Description,
		URL:         e.URL,
		Method:      e.Method,
		Input:       e.Input,
		Output:      e.Output,
		Timeout:     e.Timeout,
		MaxRetries:  e.MaxRetries,
		RetryDelay:  e.RetryDelay,
		RateLimit:   e.RateLimit,
		Auth:        e.Auth,
		AuthFrom:    e.AuthFrom,
	}
	if e.Public != nil {
		def.Public = *e.Public
	}
	return def
}

// knownEntryFields are the recognized top-level manifest entry keys.
// Anything else is warned about (never a validation failure).
var knownEntryFields = map[string]struct{}{
	"name":        {},
	"description": {},
	"webhook":     {},
	"url":         {},
	"method":      {},
	"input":       {},
	"output":      {},
	"timeout":     {},
	"maxRetries":  {},
	"retryDelay":  {},
	"rateLimit":   {},
	"auth":        {},
	"authFrom":    {},
	"public":      {},
}

// UnknownFields lists unrecognized top-level keys of a decoded entry.
func UnknownFields(entry map[string]any) []string {
	var unknown []string
	for key := range entry {
		if _, ok := knownEntryFields[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}
