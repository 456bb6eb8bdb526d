package store

import (
	"context"
	"time"
)

// Store is the durable persistence contract for queues, tasks, and events.
// All multi-statement mutations run inside a transaction; a task row
// being absent when a write method runs is never an error — the Dispatcher
// may delete a task out from under a running worker, and every write
// method below must tolerate that race as a no-op.
type Store interface {
	// GetOrCreateQueue returns the id of the named queue, creating it if
	// it does not yet exist. Idempotent.
	GetOrCreateQueue(ctx context.Context, name string) (int64, error)

	// Enqueue persists a new task on the named queue with the given
	// priority and payload, and returns its id. If create is false and
	// the queue does not exist, it returns ErrUnknownQueue.
	Enqueue(ctx context.Context, queueName string, create bool, priority int32, payload []byte) (int64, error)

	// NextTask selects the next task to run on the named queue under a
	// single read snapshot, using the two-phase rule: an eligible-now
	// task (Wait == 0) takes priority over the soonest future task
	// (Wait > 0). Returns (nil, nil) if the queue has no queued tasks at
	// all.
	NextTask(ctx context.Context, queueName string, now time.Time) (*ScheduledTask, error)

	// MarkSuccess finalizes a successful run: the row is deleted if the
	// task has no events, or set to Succeeded if it does.
	MarkSuccess(ctx context.Context, taskID int64) error

	// MarkRequeue records a non-success run outcome. If retryCount would
	// exceed retryLimit, it delegates to MarkFailure with a retry-limit
	// reason. Otherwise it schedules the next attempt at
	// now.Add(retryDelay) and increments retry_count.
	MarkRequeue(ctx context.Context, taskID int64, retryLimit int32, retryDelay time.Duration, now time.Time, payload []byte) error

	// MarkFailure sets a task's status to Failed and persists the failure
	// reason, optional exception blob, and updated payload blob.
	MarkFailure(ctx context.Context, taskID int64, reason string, exception []byte, payload []byte) error

	// UpdateTask rewrites a task's payload blob. No-op if the row has
	// been deleted.
	UpdateTask(ctx context.Context, taskID int64, payload []byte) error

	// StoreTaskEvent inserts an event attached to taskID after verifying
	// the task still exists, transactionally. Returns (0, nil) — no error
	// — if the task is already gone.
	StoreTaskEvent(ctx context.Context, taskID int64, eventBlob []byte, at time.Time) (int64, error)

	// StoreEvent inserts a free-standing event, unconditionally.
	StoreEvent(ctx context.Context, eventBlob []byte, at time.Time) (int64, error)

	// DeleteTask deletes a task's events and then the task itself.
	// Idempotent.
	DeleteTask(ctx context.Context, taskID int64) error

	// DeleteEvent deletes a single event and runs orphan cleanup
	// afterward.
	DeleteEvent(ctx context.Context, eventID int64) error

	// CleanupOldTasks deletes task rows whose retry_at predates
	// now.AddDate(0, 0, -days), then runs orphan cleanup.
	CleanupOldTasks(ctx context.Context, days int, now time.Time) error

	// CleanupOldEvents deletes event rows whose event_at predates
	// now.AddDate(0, 0, -days), then runs orphan cleanup.
	CleanupOldEvents(ctx context.Context, days int, now time.Time) error

	// BringTaskToFront sets a task's priority below every other queued
	// priority on its queue, so it is selected first. Unlike DeleteTask,
	// this is not idempotent: it returns an error wrapping ErrTaskNotFound
	// if taskID does not exist.
	BringTaskToFront(ctx context.Context, taskID int64) error

	// SendTaskToBack sets a task's priority above every other queued
	// priority on its queue, so it is selected last. Returns an error
	// wrapping ErrTaskNotFound if taskID does not exist.
	SendTaskToBack(ctx context.Context, taskID int64) error

	// GetQueueNames enumerates every known queue name, for startup
	// recovery.
	GetQueueNames(ctx context.Context) ([]string, error)

	// Tasks returns the cursor projection for the given kind, most recent
	// id first, each row decorated with its event count.
	Tasks(ctx context.Context, kind TaskKind) ([]TaskWithEventCount, error)

	// TaskEvents returns every event attached to taskID, oldest first.
	TaskEvents(ctx context.Context, taskID int64) ([]EventRecord, error)

	// AllEvents returns every event, free-standing or attached, oldest
	// first.
	AllEvents(ctx context.Context) ([]EventRecord, error)
}
