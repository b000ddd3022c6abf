package llm

import (
	"errors"
	"fmt"
)

// Kind classifies an LLM call failure. The chat controller switches on it
// exhaustively to pick the user-visible reply.
type Kind string

const (
	// KindRateLimited: HTTP 429. Not retried; free-tier models hit this often.
	KindRateLimited Kind = "rate_limited"
	// KindModelNotFound: HTTP 404, the configured model does not exist.
	KindModelNotFound Kind = "model_not_found"
	// KindTimeout: the per-attempt deadline elapsed. Retried.
	KindTimeout Kind = "timeout"
	// KindUpstream: HTTP 5xx or a transport-level failure. Retried.
	KindUpstream Kind = "upstream"
	// KindMalformedResponse: any other non-200 status, or a 200 whose body
	// does not carry choices[0].message.content. A contract break, not a
	// transient failure, so never retried.
	KindMalformedResponse Kind = "malformed_response"
)

// Error is a classified LLM call failure.
type Error struct {
	Kind    Kind
	Status  int // HTTP status when one was received, else 0
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("llm: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// retryable reports whether the failure is worth another attempt.
func (e *Error) retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindUpstream
}

// KindOf extracts the failure Kind from err, or "" when err is not an LLM
// client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
