package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Grunthos/TaskQueue/internal/clock"
	"github.com/Grunthos/TaskQueue/internal/observer"
	"github.com/Grunthos/TaskQueue/internal/serializer"
	"github.com/Grunthos/TaskQueue/internal/store"
	"github.com/Grunthos/TaskQueue/internal/task"
)

// Coordinator is the subset of the Dispatcher a Worker calls back into. It
// exists so worker.go has no import-cycle dependency on the dispatcher
// package: the dispatcher constructs Workers and satisfies this interface
// itself.
type Coordinator interface {
	// NextTask selects the next task for queueName under whatever
	// serialization the coordinator requires with respect to deletes,
	// priority changes, and other workers starting. Returns (nil, nil)
	// when the queue is empty.
	NextTask(ctx context.Context, queueName string) (*store.ScheduledTask, error)

	// RunTask invokes the configured task executor. Default behavior is
	// the task's own Runnable capability; embedders may override it.
	RunTask(ctx context.Context, t *task.Task) (bool, error)

	// QueueStarting and QueueTerminating are worker lifecycle callbacks,
	// invoked once each from the worker's own goroutine.
	QueueStarting(w *Worker)
	QueueTerminating(w *Worker)
}

// Worker runs the single-threaded Polling/Waiting/Running loop for one
// named queue. A Worker processes exactly one task at a time and exits as
// soon as its queue runs dry; the coordinator is responsible for spawning
// a replacement on the next submit to that queue.
type Worker struct {
	name  string
	store store.Store
	codec serializer.Codec
	clk   clock.Clock
	coord Coordinator

	taskReg *observer.TaskRegistry
	exec    observer.CallbackExecutor

	log *slog.Logger

	wake            chan struct{}
	pollIdleTimeout time.Duration

	mu      sync.Mutex
	current *task.Task
}

// NewWorker constructs a Worker for the named queue. It does not start
// running until Run is called, typically from a goroutine the coordinator
// spawns while holding whatever lock it uses to serialize worker
// bookkeeping. wakeBuffer sizes the wake channel (values below 1 fall
// back to 1); pollIdleTimeout bounds how long the worker sleeps on a
// future-scheduled task before re-polling the store (zero means sleep
// the full duration).
func NewWorker(
	name string,
	st store.Store,
	codec serializer.Codec,
	clk clock.Clock,
	coord Coordinator,
	taskReg *observer.TaskRegistry,
	exec observer.CallbackExecutor,
	log *slog.Logger,
	wakeBuffer int,
	pollIdleTimeout time.Duration,
) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if exec == nil {
		exec = observer.Direct
	}
	if wakeBuffer < 1 {
		wakeBuffer = 1
	}
	return &Worker{
		name:            name,
		store:           st,
		codec:           codec,
		clk:             clk,
		coord:           coord,
		taskReg:         taskReg,
		exec:            exec,
		log:             log.With("queue", name),
		wake:            make(chan struct{}, wakeBuffer),
		pollIdleTimeout: pollIdleTimeout,
	}
}

// Name returns the queue name this worker serves.
func (w *Worker) Name() string { return w.name }

// Wake nudges a worker parked in Waiting back to Polling early. Safe to
// call from any goroutine. If the worker is not currently asleep, the
// wake stays pending in the wake channel and ends its next wait at once;
// wakes beyond the channel's buffer size are dropped.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Signal requests cooperative abort of the task with the given id if this
// worker is currently running it. Reports whether it found a match.
func (w *Worker) Signal(taskID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil && w.current.Record.ID == taskID {
		w.current.Payload.SetAbortRequested(true)
		return true
	}
	return false
}

// CurrentTaskID reports the id of the task presently running on this
// worker, if any.
func (w *Worker) CurrentTaskID() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return 0, false
	}
	return w.current.Record.ID, true
}

func (w *Worker) setCurrent(t *task.Task) {
	w.mu.Lock()
	w.current = t
	w.mu.Unlock()
}

func (w *Worker) clearCurrent() {
	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()
}

// Run drives the Polling/Waiting/Running loop until the queue runs dry,
// ctx is cancelled, or an unrecoverable store error occurs. It always
// invokes QueueStarting once at entry and QueueTerminating once before
// returning.
func (w *Worker) Run(ctx context.Context) {
	w.coord.QueueStarting(w)
	defer w.coord.QueueTerminating(w)

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("worker context cancelled, terminating")
			return
		default:
		}

		scheduled, err := w.coord.NextTask(ctx, w.name)
		if err != nil {
			w.log.Error("nextTask failed, terminating worker", "error", err)
			return
		}
		if scheduled == nil {
			w.log.Debug("queue drained, terminating worker")
			return
		}

		if scheduled.Wait > 0 {
			wait := scheduled.Wait
			if w.pollIdleTimeout > 0 && wait > w.pollIdleTimeout {
				wait = w.pollIdleTimeout
			}
			select {
			case <-ctx.Done():
				return
			case <-w.clk.After(wait):
			case <-w.wake:
			}
			continue
		}

		if err := w.runTask(ctx, scheduled.Task); err != nil {
			w.log.Error("task execution loop failed, terminating worker", "error", err)
			return
		}
	}
}

func (w *Worker) runTask(ctx context.Context, record *store.TaskRecord) error {
	logger := w.log.With("task_id", record.ID)

	payload, err := w.codec.DecodeTask(record.PayloadBlob)
	if err != nil {
		var decodeErr *serializer.DecodeError
		reason := err.Error()
		if errors.As(err, &decodeErr) {
			reason = decodeErr.Error()
		}
		logger.Warn("payload decode failed, substituting legacy placeholder", "error", err)

		legacy := &task.LegacyPayload{Raw: record.PayloadBlob, DecodeErr: err}
		w.setCurrent(&task.Task{Record: record, Payload: legacy})
		defer w.clearCurrent()

		if markErr := w.store.MarkFailure(ctx, record.ID, reason, []byte(reason), record.PayloadBlob); markErr != nil {
			return markErr
		}
		w.notifyTask(observer.TaskCompleted, record.ID)
		return nil
	}

	t := &task.Task{Record: record, Payload: payload}
	w.setCurrent(t)
	defer w.clearCurrent()

	w.notifyTask(observer.TaskRunning, record.ID)
	logger.Info("running task")

	ok, runErr := w.coord.RunTask(ctx, t)

	updatedBlob := record.PayloadBlob
	if encoded, encErr := w.codec.EncodeTask(payload); encErr != nil {
		logger.Warn("failed to re-encode payload after run, keeping prior blob", "error", encErr)
	} else {
		updatedBlob = encoded
	}

	switch {
	case runErr != nil:
		exception := record.ExceptionBlob
		if exception == nil {
			exception = []byte(runErr.Error())
		}
		logger.Error("task execution failed", "error", runErr)
		if err := w.store.MarkFailure(ctx, record.ID, runErr.Error(), exception, updatedBlob); err != nil {
			return err
		}
		w.notifyTask(observer.TaskCompleted, record.ID)

	case !ok:
		delay := payload.RetryDelay(record.RetryCount)
		logger.Info("task requested requeue", "retry_delay", delay)
		if err := w.store.MarkRequeue(ctx, record.ID, payload.RetryLimit(), delay, w.clk.Now(), updatedBlob); err != nil {
			return err
		}
		w.notifyTask(observer.TaskWaiting, record.ID)

	default:
		logger.Info("task completed successfully")
		if err := w.store.MarkSuccess(ctx, record.ID); err != nil {
			return err
		}
		w.notifyTask(observer.TaskCompleted, record.ID)
	}

	return nil
}

func (w *Worker) notifyTask(kind observer.TaskChangeKind, taskID int64) {
	if w.taskReg == nil {
		return
	}
	w.taskReg.Notify(w.exec, observer.TaskChange{Kind: kind, TaskID: taskID, QueueName: w.name})
}
