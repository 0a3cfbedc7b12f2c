package domain

import (
	"strings"
	"time"
)

// AuthType selects how a credential is attached to an outbound request.
type AuthType string

const (
	// AuthHeader sets a named header to a literal or env-resolved value.
	AuthHeader AuthType = "header"
	// AuthJWT sets the Authorization header to a bearer token.
	AuthJWT AuthType = "jwt"
)

// AuthConfig declares the credential a tool attaches to its upstream call.
// Exactly one of Value/ValueFromEnv (header) or Token/TokenFromEnv (jwt)
// must be set.
type AuthConfig struct {
	Type         AuthType `json:"type" yaml:"type"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Value        string   `json:"value,omitempty" yaml:"value,omitempty"`
	ValueFromEnv string   `json:"valueFromEnv,omitempty" yaml:"valueFromEnv,omitempty"`
	Token        string   `json:"token,omitempty" yaml:"token,omitempty"`
	TokenFromEnv string   `json:"tokenFromEnv,omitempty" yaml:"tokenFromEnv,omitempty"`
}

// AuthFromConfig points at an externally stored credential keyed by
// (user, tool name). Mutually exclusive with AuthConfig on a tool.
type AuthFromConfig struct {
	User string `json:"user" yaml:"user"`
}

// RateLimitConfig caps executions per sliding window.
type RateLimitConfig struct {
	Requests int `json:"requests" yaml:"requests"`
	Window   int `json:"window" yaml:"window"` // milliseconds
}

// ToolDefinition is the canonical, post-normalization description of a
// callable webhook. Input/Output are advisory JSON-Schema shapes; the
// engine does not enforce them against payloads.
type ToolDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	URL         string           `json:"url"`
	Method      string           `json:"method,omitempty"`
	Input       map[string]any   `json:"input,omitempty"`
	Output      map[string]any   `json:"output,omitempty"`
	Timeout     *int             `json:"timeout,omitempty"`    // milliseconds, nil means default
	MaxRetries  *int             `json:"maxRetries,omitempty"` // nil means default
	RetryDelay  *int             `json:"retryDelay,omitempty"` // milliseconds, nil means default
	RateLimit   *RateLimitConfig `json:"rateLimit,omitempty"`
	Auth        *AuthConfig      `json:"auth,omitempty"`
	AuthFrom    *AuthFromConfig  `json:"authFrom,omitempty"`
	Public      bool             `json:"public,omitempty"`
}

// AllowedMethods is the HTTP verb set a tool may declare.
var AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

func IsAllowedMethod(method string) bool {
	upper := strings.ToUpper(strings.TrimSpace(method))
	for _, m := range AllowedMethods {
		if m == upper {
			return true
		}
	}
	return false
}

// EffectiveMethod resolves the tool's verb, uppercased, defaulting to POST.
func (t ToolDefinition) EffectiveMethod() string {
	if strings.TrimSpace(t.Method) == "" {
		return DefaultMethod
	}
	return strings.ToUpper(strings.TrimSpace(t.Method))
}

// EffectiveTimeout bounds a single HTTP attempt.
func (t ToolDefinition) EffectiveTimeout() time.Duration {
	if t.Timeout == nil || *t.Timeout <= 0 {
		return DefaultTimeoutMillis * time.Millisecond
	}
	return time.Duration(*t.Timeout) * time.Millisecond
}

// EffectiveMaxRetries is the total attempt budget (attempt 1 included).
func (t ToolDefinition) EffectiveMaxRetries() int {
	if t.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *t.MaxRetries
}

// EffectiveRetryDelay is the base delay for exponential backoff.
func (t ToolDefinition) EffectiveRetryDelay() time.Duration {
	if t.RetryDelay == nil {
		return DefaultRetryDelayMillis * time.Millisecond
	}
	return time.Duration(*t.RetryDelay) * time.Millisecond
}
