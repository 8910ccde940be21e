package weaviate

import (
	"errors"

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
		case httpErr.StatusCode == 404:
			return endpoint.WrapError(endpoint.CodeCollectionMissing, false, err)
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
