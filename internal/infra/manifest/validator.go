package manifest

import (
	"fmt"
	"strings"

	"hookd/internal/domain"
)

// Violations collects every structural problem with a canonical tool
// definition, in check order. An empty result means the tool is valid.
func Violations(tool domain.ToolDefinition) []string {
	var errs []string

	if strings.TrimSpace(tool.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(tool.Description) == "" {
		errs = append(errs, "description is required")
	}
	if strings.TrimSpace(tool.URL) == "" {
		errs = append(errs, "url is required")
	}
	if tool.Method != "" && !domain.IsAllowedMethod(tool.Method) {
		errs = append(errs, fmt.Sprintf("method %q must be one of %s", tool.Method, strings.Join(domain.AllowedMethods, ", ")))
	}

	if tool.Auth != nil && tool.AuthFrom != nil {
		errs = append(errs, "auth and authFrom are mutually exclusive")
	}
	if tool.Auth != nil {
		errs = append(errs, authViolations(*tool.Auth)...)
	}
	if tool.AuthFrom != nil && strings.TrimSpace(tool.AuthFrom.User) == "" {
		errs = append(errs, "authFrom.user is required")
	}

	if tool.Timeout != nil && *tool.Timeout <= 0 {
		errs = append(errs, "timeout must be a positive number")
	}
	if tool.MaxRetries != nil && (*tool.MaxRetries < 0 || *tool.MaxRetries > domain.MaxRetriesCeiling) {
		errs = append(errs, fmt.Sprintf("maxRetries must be between 0 and %d", domain.MaxRetriesCeiling))
	}
	if tool.RetryDelay != nil && *tool.RetryDelay < 0 {
		errs = append(errs, "retryDelay must be >= 0")
	}
	if tool.RateLimit != nil && (tool.RateLimit.Requests <= 0 || tool.RateLimit.Window <= 0) {
		errs = append(errs, "rateLimit requires requests and window")
	}

	return errs
}

func authViolations(auth domain.AuthConfig) []string {
	var errs []string

	switch auth.Type {
	case domain.AuthHeader:
		if strings.TrimSpace(auth.Name) == "" {
			errs = append(errs, "auth.name is required for header auth")
		}
		if (auth.Value == "") == (auth.ValueFromEnv == "") {
			errs = append(errs, "header auth requires exactly one of value or valueFromEnv")
		}
	case domain.AuthJWT:
		if (auth.Token == "") == (auth.TokenFromEnv == "") {
			errs = append(errs, "jwt auth requires exactly one of token or tokenFromEnv")
		}
	default:
		errs = append(errs, fmt.Sprintf("auth.type %q must be header or jwt", auth.Type))
	}

	return errs
}

// IsValid is the quiet form used when listing: invalid tools are filtered
// out without failing the caller.
func IsValid(tool domain.ToolDefinition) bool {
	return len(Violations(tool)) == 0
}

// AssertValid is the strict form used immediately before execution: the
// first violation aborts the call with an invalid-argument error.
func AssertValid(tool domain.ToolDefinition) error {
	violations := Violations(tool)
	if len(violations) == 0 {
		return nil
	}
	return domain.E(domain.CodeInvalidArgument, "manifest.AssertValid",
		fmt.Sprintf("tool %q: %s", tool.Name, violations[0]), domain.ErrInvalidTool)
}

// ValidateManifest checks each tool independently and rejects the whole
// set when any name appears more than once, reporting every duplicate.
func ValidateManifest(tools []domain.ToolDefinition) error {
	counts := make(map[string]int, len(tools))
	for _, tool := range tools {
		if tool.Name == "" {
			continue
		}
		counts[tool.Name]++
	}

	var messages []string
	reported := make(map[string]struct{})
	for _, tool := range tools {
		if counts[tool.Name] < 2 {
			continue
		}
		if _, done := reported[tool.Name]; done {
			continue
		}
		reported[tool.Name] = struct{}{}
		messages = append(messages, fmt.Sprintf("duplicate tool name %q (%d occurrences)", tool.Name, counts[tool.Name]))
	}
	if len(messages) > 0 {
		return domain.E(domain.CodeInvalidArgument, "manifest.ValidateManifest",
			strings.Join(messages, "; "), domain.ErrDuplicateToolName)
	}
	return nil
}
