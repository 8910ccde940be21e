package endpoint

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes shared by the connectors.
const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeAuthInvalid         = "E_AUTH_INVALID"
	CodeTimeout             = "E_TIMEOUT"
	CodeRateLimited         = "E_RATE_LIMITED"
	CodeSchemaViolation     = "E_SCHEMA_VIOLATION"
	CodeResourceExhausted   = "E_RESOURCE_EXHAUSTED"
	CodeCollectionMissing   = "E_COLLECTION_MISSING"
	CodeInsertFailed        = "E_INSERT_FAILED"
	CodeQueryFailed         = "E_QUERY_FAILED"
	CodeImportFailed        = "E_IMPORT_FAILED"
	CodeBucketMissing       = "E_BUCKET_MISSING"
	CodeStagingFailed       = "E_STAGING_FAILED"
)

// Error wraps store failures with a code and retryability hint. Connectors
// build these at the boundary; the driver only ever looks at Code/Retryable.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return e.Code }
func (e *Error) RetryableStatus() bool { return e.Retryable }

// CodedError exposes code and retryability without depending on the
// concrete type.
type CodedError interface {
	error
	CodeValue() string
	RetryableStatus() bool
}

// WrapError builds a coded error around err.
func WrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// Codes that abort a whole collection migration when a batch insert fails.
var fatalCodes = map[string]struct{}{
	CodeAuthInvalid:       {},
	CodeSchemaViolation:   {},
	CodeResourceExhausted: {},
	CodeCollectionMissing: {},
	CodeBucketMissing:     {},
}

// Substring fallbacks for stores that return free-text errors. Checked only
// when no coded error is present; fatal patterns win over retryable ones.
var fatalPatterns = []string{
	"length exceeds",
	"exceeds max length",
	"field length",
	"type mismatch",
	"schema violation",
	"schema mismatch",
	"dimension mismatch",
	"out of memory",
	"quota exceeded",
	"storage quota",
	"unauthorized",
	"forbidden",
	"authentication",
	"invalid credential",
	"collection not found",
	"index not found",
	"connection refused",
}

var retryablePatterns = []string{
	"timeout",
	"deadline exceeded",
	"rate limit",
	"too many requests",
	"throttl",
	"connection reset",
	"temporarily unavailable",
}

// IsFatal reports whether a batch failure must abort the collection.
// Coded errors are authoritative; substring matching is the fallback
// adapter for vendors without structured codes.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var coded CodedError
	if errors.As(err, &coded) {
		_, fatal := fatalCodes[coded.CodeValue()]
		return fatal
	}
	lowered := strings.ToLower(err.Error())
	for _, pat := range fatalPatterns {
		if strings.Contains(lowered, pat) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether an error is worth retrying. Fatal errors are
// never retryable regardless of what the vendor claims.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsFatal(err) {
		return false
	}
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.RetryableStatus()
	}
	lowered := strings.ToLower(err.Error())
	for _, pat := range retryablePatterns {
		if strings.Contains(lowered, pat) {
			return true
		}
	}
	return false
}

// ClassifyMessage converts a free-text vendor error into a coded one.
// Used by connectors whose transport surfaces only message strings.
func ClassifyMessage(err error) *Error {
	if err == nil {
		return nil
	}
	lowered := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowered, "unauthorized") ||
		strings.Contains(lowered, "forbidden") ||
		strings.Contains(lowered, "authentication") ||
		strings.Contains(lowered, "invalid credential"):
		return WrapError(CodeAuthInvalid, false, err)
	case strings.Contains(lowered, "dimension mismatch") ||
		strings.Contains(lowered, "type mismatch") ||
		strings.Contains(lowered, "schema") ||
		strings.Contains(lowered, "length exceeds") ||
		strings.Contains(lowered, "exceeds max length"):
		return WrapError(CodeSchemaViolation, false, err)
	case strings.Contains(lowered, "out of memory") ||
		strings.Contains(lowered, "quota"):
		return WrapError(CodeResourceExhausted, false, err)
	case strings.Contains(lowered, "collection not found") ||
		strings.Contains(lowered, "index not found") ||
		strings.Contains(lowered, "can't find collection"):
		return WrapError(CodeCollectionMissing, false, err)
	case strings.Contains(lowered, "timeout") ||
		strings.Contains(lowered, "deadline exceeded"):
		return WrapError(CodeTimeout, true, err)
	case strings.Contains(lowered, "rate limit") ||
		strings.Contains(lowered, "too many requests") ||
		strings.Contains(lowered, "throttl"):
		return WrapError(CodeRateLimited, true, err)
	case strings.Contains(lowered, "connection refused") ||
		strings.Contains(lowered, "no such host") ||
		strings.Contains(lowered, "unreachable"):
		return WrapError(CodeEndpointUnreachable, true, err)
	}
	return WrapError(CodeInsertFailed, true, err)
}
