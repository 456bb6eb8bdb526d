package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetryLimit is the retry ceiling used when a Payload does not
// override RetryLimit. Overridden at process startup by
// dispatcher.WithRetryDefaults.
var DefaultRetryLimit int32 = 17

// DefaultBaseRetryDelay is the base of the exponential backoff formula
// 2^(n+1) * base when a Payload does not override RetryDelay. Overridden
// at process startup by dispatcher.WithRetryDefaults.
var DefaultBaseRetryDelay = time.Second

// DefaultMaxRetryDelay caps RetryDelay's output when a Payload does not
// set its own MaxDelay. Zero means uncapped. Overridden at process
// startup by dispatcher.WithRetryDefaults.
var DefaultMaxRetryDelay time.Duration

// Payload is the embedder-supplied, serializable task object. The core is
// agnostic to its concrete shape: it only needs the retry policy and the
// abort flag.
type Payload interface {
	// TypeName identifies the concrete payload type for the serializer's
	// type registry; it is never persisted itself, but is what lets a
	// decoded blob be reconstructed into the right Go type.
	TypeName() string

	// RetryLimit returns the maximum number of retries allowed before the
	// task transitions to Failed.
	RetryLimit() int32

	// RetryDelay returns the delay to wait before retry attempt n
	// (0-indexed) after a non-success run.
	RetryDelay(attempt int32) time.Duration

	// AbortRequested reports whether the Dispatcher has asked the
	// currently running task to stop cooperatively.
	AbortRequested() bool

	// SetAbortRequested is called by the Dispatcher on the in-memory
	// payload of a task that is currently running when DeleteTask targets
	// it. Never persisted.
	SetAbortRequested(bool)
}

// Runnable is the capability a Payload may expose to let the default
// executor invoke it. A Payload that does not implement Runnable can only
// be run by a Dispatcher configured with a custom executor via
// dispatcher.WithRunTask.
type Runnable interface {
	// Run executes the task. A (false, nil) return requests a retry.
	Run(ctx context.Context) (bool, error)
}

// BasePayload implements the default retry policy (limit 17, delay
// 2^(n+1) seconds, optionally capped) and abort-flag bookkeeping.
// Embedder payload types compose it by embedding BasePayload.
type BasePayload struct {
	// Limit overrides DefaultRetryLimit when positive.
	Limit int32 `json:"retry_limit,omitempty"`
	// BaseDelay overrides DefaultBaseRetryDelay when positive.
	BaseDelay time.Duration `json:"base_retry_delay,omitempty"`
	// MaxDelay caps RetryDelay's output when positive; zero means
	// uncapped.
	MaxDelay time.Duration `json:"max_retry_delay,omitempty"`
	// CorrelationID identifies this task across retries and across its
	// event log, independent of the store's integer row id, which is not
	// stable across a legacy-decode substitution. Set by NewBasePayload;
	// zero-value on a payload constructed by hand.
	CorrelationID uuid.UUID `json:"correlation_id,omitempty"`

	mu      sync.Mutex
	aborted bool
}

// NewBasePayload returns a BasePayload with a fresh CorrelationID, ready
// to be embedded in a concrete payload type at construction time.
func NewBasePayload() BasePayload {
	return BasePayload{CorrelationID: uuid.New()}
}

// RetryLimit implements Payload.
func (b *BasePayload) RetryLimit() int32 {
	if b.Limit > 0 {
		return b.Limit
	}
	return DefaultRetryLimit
}

// RetryDelay implements Payload using base * 2^(n+1), capped at MaxDelay
// when MaxDelay is positive.
func (b *BasePayload) RetryDelay(attempt int32) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = DefaultBaseRetryDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base * time.Duration(int64(1)<<uint(attempt+1))
	max := b.MaxDelay
	if max <= 0 {
		max = DefaultMaxRetryDelay
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// AbortRequested implements Payload.
func (b *BasePayload) AbortRequested() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aborted
}

// SetAbortRequested implements Payload.
func (b *BasePayload) SetAbortRequested(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aborted = v
}
