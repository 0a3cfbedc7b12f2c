package credentials

import (
	"strings"

	"go.uber.org/zap"

	"hookd/internal/domain"
)

// EnvLookup resolves an environment variable. os.LookupEnv satisfies it.
type EnvLookup func(key string) (string, bool)

// SecretStore resolves externally managed credentials keyed by
// (user, tool name).
type SecretStore interface {
	Lookup(user, tool string) (*domain.AuthConfig, bool)
}

// Resolver turns a tool's auth declaration into concrete request headers.
// Missing credential material is never fatal: the header stays unset and
// the upstream call is left to fail on its own terms.
type Resolver struct {
	env     EnvLookup
	secrets SecretStore
	logger  *zap.Logger
}

func NewResolver(env EnvLookup, secrets SecretStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		env:     env,
		secrets: secrets,
		logger:  logger.Named("credentials"),
	}
}

// Resolve returns a new header map: the caller's headers with the tool's
// resolved credential merged in. A resolved credential always replaces a
// caller-supplied header of the same name, compared case-insensitively.
// authFrom indirection replaces the tool's inline auth entirely; the two
// are never combined.
func (r *Resolver) Resolve(tool domain.ToolDefinition, callerHeaders map[string]string) map[string]string {
	headers := make(map[string]string, len(callerHeaders)+1)
	for name, value := range callerHeaders {
		headers[name] = value
	}

	auth := tool.Auth
	if tool.AuthFrom != nil {
		auth = nil
		if r.secrets != nil {
			if stored, ok := r.secrets.Lookup(tool.AuthFrom.User, tool.Name); ok {
				auth = stored
			}
		}
		if auth == nil {
			r.logger.Warn("external credential not found, proceeding without auth",
				zap.String("tool", tool.Name),
				zap.String("user", tool.AuthFrom.User),
			)
			return headers
		}
	}
	if auth == nil {
		return headers
	}

	switch auth.Type {
	case domain.AuthHeader:
		value := r.resolveValue(tool.Name, auth.ValueFromEnv, auth.Value)
		if value == "" || auth.Name == "" {
			r.logger.Warn("header credential unresolved, proceeding without auth",
				zap.String("tool", tool.Name),
				zap.String("header", auth.Name),
			)
			return headers
		}
		deleteHeader(headers, auth.Name)
		headers[auth.Name] = value
	case domain.AuthJWT:
		token := r.resolveValue(tool.Name, auth.TokenFromEnv, auth.Token)
		if token == "" {
			r.logger.Warn("jwt credential unresolved, proceeding without auth",
				zap.String("tool", tool.Name),
			)
			return headers
		}
		deleteHeader(headers, "Authorization")
		headers["Authorization"] = "Bearer " + token
	default:
		r.logger.Warn("unknown auth type, proceeding without auth",
			zap.String("tool", tool.Name),
			zap.String("type", string(auth.Type)),
		)
	}
	return headers
}

// resolveValue prefers the environment variable when it is declared and
// set, falling back to the literal value.
func (r *Resolver) resolveValue(tool, envKey, literal string) string {
	if envKey != "" && r.env != nil {
		if value, ok := r.env(envKey); ok {
			return value
		}
		r.logger.Warn("credential env var not set, falling back to literal",
			zap.String("tool", tool),
			zap.String("envVar", envKey),
		)
	}
	return literal
}

func deleteHeader(headers map[string]string, name string) {
	for key := range headers {
		if strings.EqualFold(key, name) {
			delete(headers, key)
		}
	}
}
