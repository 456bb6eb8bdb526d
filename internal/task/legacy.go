package task

import "time"

// LegacyPayload stands in for a task or event payload that could not be
// decoded by the configured serializer — a schema change, a corrupted
// blob, or a payload written by an older version of an embedder's task
// types. It carries the original bytes verbatim so nothing is lost, and
// reports a zero retry policy. The queue worker never runs it: when a
// payload fails to decode, the worker marks the task failed with the
// decode reason straight away.
type LegacyPayload struct {
	// Raw is the exact, un-decodable payload bytes, preserved for
	// forensic inspection or export.
	Raw []byte

	// DecodeErr is the error the serializer returned when it attempted
	// to decode Raw.
	DecodeErr error
}

// TypeName reports the sentinel legacy type name; it is never looked up
// in the serializer's registry since a LegacyPayload is constructed
// directly by the decode failure path, not decoded from a type name.
func (l *LegacyPayload) TypeName() string { return "legacy" }

// RetryLimit always returns 0: a legacy task is never retried.
func (l *LegacyPayload) RetryLimit() int32 { return 0 }

// RetryDelay always returns 0: a legacy task is never retried.
func (l *LegacyPayload) RetryDelay(int32) time.Duration { return 0 }

// AbortRequested always returns false; a legacy task never runs, so it
// never needs to observe an abort request.
func (l *LegacyPayload) AbortRequested() bool { return false }

// SetAbortRequested is a no-op for a legacy task.
func (l *LegacyPayload) SetAbortRequested(bool) {}

var _ Payload = (*LegacyPayload)(nil)

// LegacyEvent stands in for an event whose blob could not be decoded. It
// carries the original bytes for the same forensic-preservation reason as
// LegacyPayload.
type LegacyEvent struct {
	Raw       []byte
	DecodeErr error
}
