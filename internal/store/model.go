package store

import "time"

// TaskStatus is the single-character status code persisted on a task row.
type TaskStatus string

// Persisted task status codes. A prior design also carried a 'W'
// ("waiting"/watch-list) code; nothing in this implementation writes it —
// MarkRequeue transitions eligible-for-retry tasks back to Queued, never
// to a distinct on-disk "waiting" status, and the Failed cursor reads
// status='F' exclusively.
const (
	StatusQueued    TaskStatus = "Q"
	StatusSucceeded TaskStatus = "S"
	StatusFailed    TaskStatus = "F"
)

// TaskKind selects a cursor projection over the task table.
type TaskKind int

const (
	// TaskKindAll returns every task row, most recent first.
	TaskKindAll TaskKind = iota
	// TaskKindQueued returns rows with status Queued.
	TaskKindQueued
	// TaskKindActive returns rows with status other than Succeeded.
	TaskKindActive
	// TaskKindFailed returns rows with status Failed.
	TaskKindFailed
)

// Queue is a named worker lane.
type Queue struct {
	ID   int64
	Name string
}

// TaskRecord is a persisted task row. The opaque payload/exception blobs
// are decoded above this package, by internal/serializer and internal/task.
type TaskRecord struct {
	ID             int64
	QueueID        int64
	QueuedAt       time.Time
	Priority       int32
	Status         TaskStatus
	RetryAt        time.Time
	RetryCount     int32
	FailureReason  *string
	ExceptionBlob  []byte
	PayloadBlob    []byte
}

// EventRecord is a persisted event row. TaskID is nil for free-standing
// events not attached to any task.
type EventRecord struct {
	ID        int64
	TaskID    *int64
	EventBlob []byte
	EventAt   time.Time
}

// ScheduledTask is the result of Store.NextTask: either the task that is
// eligible to run right now (Wait == 0), or the soonest-future task along
// with how long the caller should sleep before asking again.
type ScheduledTask struct {
	Task *TaskRecord
	Wait time.Duration
}

// TaskWithEventCount decorates a TaskRecord with its event count, the
// aggregate the cursor projections need to render at a glance.
type TaskWithEventCount struct {
	Task       *TaskRecord
	EventCount int64
}
