package platform

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPError reports a non-2xx platform response with a best-effort detail
// message extracted from the body.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status code: %d - %s", e.StatusCode, e.Detail)
}

// newHTTPError drains the response body and builds an HTTPError. It never
// fails: any body that cannot be interpreted is carried verbatim.
func newHTTPError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Detail:     extractDetail(body),
	}
}

// extractDetail pulls a human-readable message out of an API error body,
// checking the known error envelopes in order: a detail field, the first
// entry of an errors list, a _meta message. Anything else comes back raw.
func extractDetail(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}
	if detail, ok := payload["detail"]; ok {
		return stringify(detail)
	}
	if errs, ok := payload["errors"].([]any); ok && len(errs) > 0 {
		if first, ok := errs[0].(map[string]any); ok {
			if title, ok := first["title"]; ok {
				return stringify(title)
			}
		}
	}
	if meta, ok := payload["_meta"].(map[string]any); ok {
		if message, ok := meta["message"]; ok {
			return stringify(message)
		}
	}
	return string(body)
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
