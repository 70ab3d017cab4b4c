package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by cache tiers when a key is absent.
var ErrNotFound = errors.New("not found")

// QuotaExhaustedError indicates the request was denied by a quota gate.
// Callers should serve stale data or surface the retry-after hint.
type QuotaExhaustedError struct {
	Bucket     string
	Reason     string
	RetryAfter time.Duration
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted for bucket %q (%s), retry after %v", e.Bucket, e.Reason, e.RetryAfter)
}

// BackoffActiveError indicates an upstream-error backoff window is in effect.
type BackoffActiveError struct {
	RetryAfter time.Duration
}

func (e *BackoffActiveError) Error() string {
	return fmt.Sprintf("backoff active, retry after %v", e.RetryAfter)
}

// UpstreamError wraps a failed upstream call with its HTTP status code.
type UpstreamError struct {
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream timeout: %v", e.Err)
	}
	return fmt.Sprintf("upstream error (status %d): %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IntegrityError indicates a terminal-looking payload failed the completeness
// check and was not persisted. Treated as transient; safe to retry later.
type IntegrityError struct {
	Key    string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: %s", e.Key, e.Reason)
}
