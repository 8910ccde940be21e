package endpoint

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodedErrorsAreAuthoritative(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		fatal     bool
		retryable bool
	}{
		{"auth code", WrapError(CodeAuthInvalid, false, errors.New("x")), true, false},
		{"schema code", WrapError(CodeSchemaViolation, false, errors.New("x")), true, false},
		{"quota code", WrapError(CodeResourceExhausted, false, errors.New("x")), true, false},
		{"missing collection code", WrapError(CodeCollectionMissing, false, errors.New("x")), true, false},
		{"missing bucket code", WrapError(CodeBucketMissing, false, errors.New("x")), true, false},
		{"timeout code", WrapError(CodeTimeout, true, errors.New("x")), false, true},
		{"rate limit code", WrapError(CodeRateLimited, true, errors.New("x")), false, true},
		{"unreachable code", WrapError(CodeEndpointUnreachable, true, errors.New("x")), false, true},
		{"insert code not retryable", WrapError(CodeInsertFailed, false, errors.New("x")), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsFatal(tc.err); got != tc.fatal {
				t.Errorf("IsFatal = %v, want %v", got, tc.fatal)
			}
			if got := IsRetryable(tc.err); got != tc.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tc.retryable)
			}
		})
	}
}

// A coded error keeps its classification even when its message carries a
// pattern from the other bucket.
func TestCodeWinsOverMessageText(t *testing.T) {
	err := WrapError(CodeTimeout, true, errors.New("unauthorized: token rejected"))
	if IsFatal(err) {
		t.Error("coded timeout classified fatal by its message text")
	}
	if !IsRetryable(err) {
		t.Error("coded timeout not retryable")
	}
}

func TestCodedErrorSurvivesWrapping(t *testing.T) {
	inner := WrapError(CodeSchemaViolation, false, errors.New("dim 768 != 1536"))
	wrapped := fmt.Errorf("insert batch 3: %w", inner)

	if !IsFatal(wrapped) {
		t.Error("fatal code lost through fmt.Errorf wrapping")
	}
	var coded CodedError
	if !errors.As(wrapped, &coded) || coded.CodeValue() != CodeSchemaViolation {
		t.Errorf("CodeValue = %v", coded)
	}
}

func TestSubstringFallback(t *testing.T) {
	cases := []struct {
		msg       string
		fatal     bool
		retryable bool
	}{
		{"Unauthorized: bad api key", true, false},
		{"field length exceeds limit", true, false},
		{"request timeout after 60s", false, true},
		{"429 Too Many Requests", false, true},
		{"connection refused", true, false},
		{"something odd happened", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			err := errors.New(tc.msg)
			if got := IsFatal(err); got != tc.fatal {
				t.Errorf("IsFatal(%q) = %v, want %v", tc.msg, got, tc.fatal)
			}
			if got := IsRetryable(err); got != tc.retryable {
				t.Errorf("IsRetryable(%q) = %v, want %v", tc.msg, got, tc.retryable)
			}
		})
	}
}

func TestClassifyMessage(t *testing.T) {
	cases := []struct {
		msg       string
		code      string
		retryable bool
	}{
		{"401 unauthorized", CodeAuthInvalid, false},
		{"vector dimension mismatch", CodeSchemaViolation, false},
		{"storage quota exceeded", CodeResourceExhausted, false},
		{"can't find collection docs", CodeCollectionMissing, false},
		{"context deadline exceeded", CodeTimeout, true},
		{"throttled by server", CodeRateLimited, true},
		{"dial tcp: connection refused", CodeEndpointUnreachable, true},
		{"unexpected EOF", CodeInsertFailed, true},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			got := ClassifyMessage(errors.New(tc.msg))
			if got.Code != tc.code {
				t.Errorf("code = %s, want %s", got.Code, tc.code)
			}
			if got.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", got.Retryable, tc.retryable)
			}
		})
	}
}

func TestClassifyMessageNil(t *testing.T) {
	if got := ClassifyMessage(nil); got != nil {
		t.Errorf("ClassifyMessage(nil) = %v", got)
	}
	if IsFatal(nil) || IsRetryable(nil) {
		t.Error("nil error classified")
	}
}

func TestRegistryUnknownTemplate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateSource("vector.unknown", nil); err == nil {
		t.Error("expected error for unknown source template")
	}
	if _, err := r.CreateTarget("vector.unknown", nil); err == nil {
		t.Error("expected error for unknown target template")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	factory := func(config map[string]any) (SourceStore, error) { return nil, nil }
	r.RegisterSource("vector.dup", factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.RegisterSource("vector.dup", factory)
}
