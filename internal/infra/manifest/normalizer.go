package manifest

import (
	"net/url"
	"strings"
)

// Normalize expands a shorthand {name, webhook} entry into the canonical
// shape. Entries that already carry description, url, input, and output
// pass through unchanged, as do unrecognized shapes (the validator rejects
// those later). The input entry is never mutated.
func Normalize(entry RawToolEntry) RawToolEntry {
	if entry.Description != "" && entry.URL != "" && entry.Input != nil && entry.Output != nil {
		return entry
	}
	if entry.Webhook == "" || entry.URL != "" {
		return entry
	}

	out := entry
	out.URL = entry.Webhook
	out.Webhook = ""
	if out.Description == "" {
		out.Description = "Forward to " + webhookLabel(out.URL) + " webhook"
	}
	if out.Method == "" {
		out.Method = "POST"
	}
	if out.Input == nil {
		out.Input = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	if out.Output == nil {
		out.Output = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"result": map[string]any{"type": "string"},
			},
		}
	}
	if out.Public == nil {
		public := false
		out.Public = &public
	}
	return out
}

// webhookLabel derives a human-readable label from the webhook URL: the
// last non-empty path segment with -/_ turned into spaces and title-cased,
// falling back to the host, falling back to the literal "webhook".
func webhookLabel(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "webhook"
	}

	segments := strings.Split(parsed.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		segment := strings.TrimSpace(segments[i])
		if segment == "" {
			continue
		}
		words := strings.FieldsFunc(segment, func(r rune) bool {
			return r == '-' || r == '_'
		})
		for j, word := range words {
			words[j] = titleWord(word)
		}
		if label := strings.Join(words, " "); label != "" {
			return label
		}
	}

	if parsed.Host != "" {
		return parsed.Host
	}
	return "webhook"
}

func titleWord(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
