package executor

import (
	"encoding/json"
	"io"
	"mime"
	"strings"
)

// streamingContentTypes mark a 2xx response as a live stream. The bare
// "text/plain; charset=utf-8" form is a streaming convention some webhook
// runtimes use for incremental text.
func isStreamingContentType(contentType string) bool {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/event-stream", "application/x-ndjson":
		return true
	case "text/plain":
		return strings.EqualFold(params["charset"], "utf-8")
	default:
		return false
	}
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// parseErrorBody decodes a non-2xx body as JSON, falling back to plain
// text, falling back to a placeholder when the body cannot be read.
func parseErrorBody(body io.Reader) any {
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return "response body unparseable"
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}
	return string(raw)
}
