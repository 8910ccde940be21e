package milvus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nucleus/vector-migrate/internal/connector/httpx"
	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// classifyError converts transport failures into coded errors. Status codes
// are authoritative; anything else falls through to message matching.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 401 || httpErr.StatusCode == 403:
			return endpoint.WrapError(endpoint.CodeAuthInvalid, false, err)
		case httpErr.StatusCode == 408:
			return endpoint.WrapError(endpoint.CodeTimeout, true, err)
		case httpErr.IsRateLimited():
			return endpoint.WrapError(endpoint.CodeRateLimited, true, err)
		case httpErr.IsServerError():
			return endpoint.WrapError(endpoint.CodeQueryFailed, true, err)
		}
		return endpoint.WrapError(endpoint.CodeQueryFailed, false, err)
	}
	return endpoint.ClassifyMessage(err)
}

// classifyAPIError converts a non-zero envelope code into a coded error.
// The REST surface reports failures in-band, so the HTTP status is usually
// 200 and only the message tells the story.
func classifyAPIError(code int, message string) error {
	err := fmt.Errorf("api error %d: %s", code, message)
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "permission"):
		return endpoint.WrapError(endpoint.CodeAuthInvalid, false, err)
	case strings.Contains(msg, "can't find collection") ||
		strings.Contains(msg, "collection not found") ||
		strings.Contains(msg, "collection not exist"):
		return endpoint.WrapError(endpoint.CodeCollectionMissing, false, err)
	case strings.Contains(msg, "dimension") || strings.Contains(msg, "schema"):
		return endpoint.WrapError(endpoint.CodeSchemaViolation, false, err)
	case strings.Contains(msg, "quota") || strings.Contains(msg, "memory"):
		return endpoint.WrapError(endpoint.CodeResourceExhausted, false, err)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many"):
		return endpoint.WrapError(endpoint.CodeRateLimited, true, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return endpoint.WrapError(endpoint.CodeTimeout, true, err)
	}
	return endpoint.ClassifyMessage(err)
}
