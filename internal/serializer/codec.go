package serializer

import "github.com/Grunthos/TaskQueue/internal/task"

// Codec encodes and decodes the opaque payloads the store persists as
// byte blobs. Decode must never panic and must return a *DecodeError
// (wrapped or not) rather than a bare error when the blob cannot be
// turned back into a live object, so callers can distinguish "genuinely
// broken data" from any other failure.
type Codec interface {
	// EncodeTask serializes a task payload for storage.
	EncodeTask(payload task.Payload) ([]byte, error)

	// DecodeTask reconstructs a task payload from stored bytes. On
	// failure it returns a *DecodeError.
	DecodeTask(data []byte) (task.Payload, error)

	// EncodeEvent serializes event data for storage.
	EncodeEvent(data any) ([]byte, error)

	// DecodeEvent reconstructs event data from stored bytes. On failure
	// it returns a *DecodeError.
	DecodeEvent(data []byte) (any, error)
}
