package serializer

import "fmt"

// DecodeError wraps the underlying decode failure with which kind of blob
// (task or event) failed to decode and, for tasks, the unrecognized type
// name if that was the cause.
type DecodeError struct {
	Kind     string // "task" or "event"
	TypeName string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("failed to decode %s payload of type %q: %v", e.Kind, e.TypeName, e.Err)
	}
	return fmt.Sprintf("failed to decode %s payload: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
