package cursor

import (
	"time"

	"github.com/Grunthos/TaskQueue/internal/store"
	"github.com/Grunthos/TaskQueue/internal/task"
)

// TaskRow decorates a persisted task row with its decoded payload,
// decoded exception (if any), event count, and ephemeral UI state.
type TaskRow struct {
	Record     *store.TaskRecord
	Payload    task.Payload
	Exception  any
	EventCount int64

	// Selected is per-row multi-select state for list views. It is never
	// read from or written to the store.
	Selected bool
}

// ID returns the task's persisted id.
func (r *TaskRow) ID() int64 { return r.Record.ID }

// QueueID returns the id of the queue this task belongs to.
func (r *TaskRow) QueueID() int64 { return r.Record.QueueID }

// QueuedAt returns when the task was first enqueued.
func (r *TaskRow) QueuedAt() time.Time { return r.Record.QueuedAt }

// RetryAt returns the earliest time this task is eligible to run.
func (r *TaskRow) RetryAt() time.Time { return r.Record.RetryAt }

// RetryCount returns the number of retry attempts recorded so far.
func (r *TaskRow) RetryCount() int32 { return r.Record.RetryCount }

// Status returns the persisted status code.
func (r *TaskRow) Status() store.TaskStatus { return r.Record.Status }

// FailureReason returns the persisted failure reason, or "" if none.
func (r *TaskRow) FailureReason() string {
	if r.Record.FailureReason == nil {
		return ""
	}
	return *r.Record.FailureReason
}

// IsLegacy reports whether the row's payload could not be decoded into
// its original concrete type.
func (r *TaskRow) IsLegacy() bool {
	_, ok := r.Payload.(*task.LegacyPayload)
	return ok
}

// EventRow decorates a persisted event row with its decoded data and
// ephemeral UI state.
type EventRow struct {
	Record *store.EventRecord
	Data   any

	// Selected is per-row multi-select state for list views. It is never
	// read from or written to the store.
	Selected bool
}

// ID returns the event's persisted id.
func (r *EventRow) ID() int64 { return r.Record.ID }

// TaskID returns the id of the task this event is attached to, or nil for
// a free-standing event.
func (r *EventRow) TaskID() *int64 { return r.Record.TaskID }

// At returns when the event was recorded.
func (r *EventRow) At() time.Time { return r.Record.EventAt }

// IsLegacy reports whether the row's data could not be decoded into its
// original concrete type.
func (r *EventRow) IsLegacy() bool {
	_, ok := r.Data.(*task.LegacyEvent)
	return ok
}
