package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Grunthos/TaskQueue/internal/clock"
	"github.com/Grunthos/TaskQueue/internal/observer"
	"github.com/Grunthos/TaskQueue/internal/queue"
	"github.com/Grunthos/TaskQueue/internal/serializer"
	"github.com/Grunthos/TaskQueue/internal/store"
	"github.com/Grunthos/TaskQueue/internal/task"
)

// RunTaskFunc invokes a task and reports its outcome: true for success,
// false to request a requeue, or a non-nil error for failure.
type RunTaskFunc func(ctx context.Context, t *task.Task) (bool, error)

// defaultRunTask invokes the task's own Runnable capability if present,
// otherwise fails with ErrUnsupportedTask.
func defaultRunTask(ctx context.Context, t *task.Task) (bool, error) {
	r, ok := t.Payload.(task.Runnable)
	if !ok {
		return false, task.ErrUnsupportedTask
	}
	return r.Run(ctx)
}

// Manager is the single process-wide coordinator: it owns the active
// worker set, persists and routes submissions, and multicasts change
// notifications. Construct one with New and call Start once.
type Manager struct {
	store store.Store
	codec serializer.Codec
	clk   clock.Clock

	taskReg  *observer.TaskRegistry
	eventReg *observer.EventRegistry
	exec     observer.CallbackExecutor

	runTask RunTaskFunc
	log     *slog.Logger

	wakeBuffer      int
	pollIdleTimeout time.Duration

	mu      sync.Mutex
	workers map[string]*queue.Worker
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithCallbackExecutor overrides the executor observer notifications are
// submitted to. Defaults to observer.Direct.
func WithCallbackExecutor(exec observer.CallbackExecutor) Option {
	return func(m *Manager) { m.exec = exec }
}

// WithRunTask overrides the default task executor, which otherwise
// invokes the task's own Runnable capability.
func WithRunTask(fn RunTaskFunc) Option {
	return func(m *Manager) { m.runTask = fn }
}

// WithRetryDefaults overrides the package-wide retry policy defaults a
// Payload falls back to when it does not set its own Limit, BaseDelay, or
// MaxDelay. limit and baseDelay are ignored if not positive; maxDelay of
// zero leaves retries uncapped.
func WithRetryDefaults(limit int32, baseDelay, maxDelay time.Duration) Option {
	return func(m *Manager) {
		if limit > 0 {
			task.DefaultRetryLimit = limit
		}
		if baseDelay > 0 {
			task.DefaultBaseRetryDelay = baseDelay
		}
		task.DefaultMaxRetryDelay = maxDelay
	}
}

// WithWakeBuffer sets the buffer size of each worker's wake channel.
// Values below 1 are ignored; the default is 1, which is sufficient for
// Wake's coalescing behavior.
func WithWakeBuffer(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.wakeBuffer = n
		}
	}
}

// WithPollIdleTimeout bounds how long a worker sleeps before a scheduled
// future task becomes eligible: it re-polls the store at least this
// often rather than sleeping straight through to the scheduled time, so
// a priority change made directly against the store is picked up
// promptly. Zero (the default) means a worker sleeps the full duration.
func WithPollIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.pollIdleTimeout = d }
}

// New constructs a Manager. It does not start any workers until Start is
// called.
func New(st store.Store, codec serializer.Codec, clk clock.Clock, log *slog.Logger, opts ...Option) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		store:      st,
		codec:      codec,
		clk:        clk,
		taskReg:    observer.NewTaskRegistry(log),
		eventReg:   observer.NewEventRegistry(log),
		exec:       observer.Direct,
		runTask:    defaultRunTask,
		log:        log.With("component", "dispatcher"),
		workers:    make(map[string]*queue.Worker),
		wakeBuffer: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TaskRegistry returns the registry embedders subscribe task listeners to.
func (m *Manager) TaskRegistry() *observer.TaskRegistry { return m.taskReg }

// EventRegistry returns the registry embedders subscribe event listeners
// to.
func (m *Manager) EventRegistry() *observer.EventRegistry { return m.eventReg }

// Start spawns a worker for every queue the store already knows about
// (startup recovery) and marks the Manager ready to accept submissions.
// The supplied ctx bounds the lifetime of every worker goroutine; cancel
// it (or call Stop) to shut the whole dispatcher down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.started = true

	names, err := m.store.GetQueueNames(m.ctx)
	if err != nil {
		m.started = false
		m.cancel()
		m.mu.Unlock()
		return fmt.Errorf("enumerate queues: %w", err)
	}
	for _, name := range names {
		m.spawnLocked(name)
	}
	m.mu.Unlock()

	m.log.Info("dispatcher started", "recovered_queues", len(names))
	return nil
}

// checkStarted returns ErrNotStarted if Start has not yet succeeded. Public
// entry points that touch m.ctx or the worker set call this before doing
// anything else.
func (m *Manager) checkStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return ErrNotStarted
	}
	return nil
}

// Stop cancels every worker and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// spawnLocked registers and starts a new worker for name. Callers must
// hold m.mu.
func (m *Manager) spawnLocked(name string) *queue.Worker {
	w := queue.NewWorker(name, m.store, m.codec, m.clk, m, m.taskReg, m.exec, m.log, m.wakeBuffer, m.pollIdleTimeout)
	m.workers[name] = w
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		w.Run(m.ctx)
	}()
	return w
}

// NextTask implements queue.Coordinator. It runs Store.NextTask under the
// dispatcher mutex, serializing next-task selection against deletes,
// priority mutation, and other workers spawning.
func (m *Manager) NextTask(ctx context.Context, queueName string) (*store.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.NextTask(ctx, queueName, m.clk.Now())
}

// RunTask implements queue.Coordinator by delegating to the configured
// executor. Never called under the dispatcher mutex.
func (m *Manager) RunTask(ctx context.Context, t *task.Task) (bool, error) {
	return m.runTask(ctx, t)
}

// QueueStarting implements queue.Coordinator.
func (m *Manager) QueueStarting(w *queue.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Info("queue_started", "queue", w.Name())
}

// QueueTerminating implements queue.Coordinator. It removes w from the
// active set only if w is still the registered worker for its name — a
// freshly spawned successor for the same queue must survive a delayed
// termination callback from its predecessor.
func (m *Manager) QueueTerminating(w *queue.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.workers[w.Name()]; ok && cur == w {
		delete(m.workers, w.Name())
	}
	m.log.Info("queue_stopped", "queue", w.Name())
}

// Submit persists a new task on queueName and wakes (or spawns) its
// worker. Returns the assigned task id.
func (m *Manager) Submit(ctx context.Context, queueName string, payload task.Payload, priority int32) (int64, error) {
	if err := m.checkStarted(); err != nil {
		return 0, err
	}
	if err := validateSubmit(queueName, priority); err != nil {
		return 0, err
	}
	blob, err := m.codec.EncodeTask(payload)
	if err != nil {
		return 0, fmt.Errorf("encode task payload: %w", err)
	}

	m.mu.Lock()
	id, err := m.store.Enqueue(ctx, queueName, true, priority, blob)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	if w, ok := m.workers[queueName]; ok {
		w.Wake()
	} else {
		m.spawnLocked(queueName)
	}
	m.mu.Unlock()

	m.taskReg.Notify(m.exec, observer.TaskChange{Kind: observer.TaskCreated, TaskID: id, QueueName: queueName})
	return id, nil
}

// SaveTask rewrites a task's payload blob and notifies TaskUpdated.
func (m *Manager) SaveTask(ctx context.Context, taskID int64, payload task.Payload) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	blob, err := m.codec.EncodeTask(payload)
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}
	if err := m.store.UpdateTask(ctx, taskID, blob); err != nil {
		return err
	}
	m.taskReg.Notify(m.exec, observer.TaskChange{Kind: observer.TaskUpdated, TaskID: taskID})
	return nil
}

// DeleteTask signals cooperative abort to any worker currently running
// taskID, deletes the task (cascading its events), and notifies
// observers.
func (m *Manager) DeleteTask(ctx context.Context, taskID int64) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	m.mu.Lock()
	for _, w := range m.workers {
		if w.Signal(taskID) {
			break
		}
	}
	m.mu.Unlock()

	if err := m.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	m.eventReg.Notify(m.exec, observer.EventChange{Kind: observer.EventDeleted, TaskID: &taskID})
	m.taskReg.Notify(m.exec, observer.TaskChange{Kind: observer.TaskDeleted, TaskID: taskID})
	return nil
}

// DeleteEvent deletes a single event and notifies EventDeleted. Any
// orphaned task the deletion exposes is cleaned up by the store itself.
func (m *Manager) DeleteEvent(ctx context.Context, eventID int64) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	if err := m.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	m.eventReg.Notify(m.exec, observer.EventChange{Kind: observer.EventDeleted, EventID: eventID})
	return nil
}

// CleanupOldEvents ages off event rows older than days and runs orphan
// cleanup. It does not emit a per-row notification: the store does not
// report which rows it removed.
func (m *Manager) CleanupOldEvents(ctx context.Context, days int) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	if err := validateRetentionDays(days); err != nil {
		return err
	}
	return m.store.CleanupOldEvents(ctx, days, m.clk.Now())
}

// CleanupOldTasks ages off task rows whose retry_at predates days and
// runs orphan cleanup.
func (m *Manager) CleanupOldTasks(ctx context.Context, days int) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	if err := validateRetentionDays(days); err != nil {
		return err
	}
	return m.store.CleanupOldTasks(ctx, days, m.clk.Now())
}

// BringTaskToFront moves taskID ahead of every other queued task on its
// queue.
func (m *Manager) BringTaskToFront(ctx context.Context, taskID int64) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.BringTaskToFront(ctx, taskID); err != nil {
		return err
	}
	m.taskReg.Notify(m.exec, observer.TaskChange{Kind: observer.TaskUpdated, TaskID: taskID})
	return nil
}

// SendTaskToBack moves taskID behind every other queued task on its
// queue.
func (m *Manager) SendTaskToBack(ctx context.Context, taskID int64) error {
	if err := m.checkStarted(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SendTaskToBack(ctx, taskID); err != nil {
		return err
	}
	m.taskReg.Notify(m.exec, observer.TaskChange{Kind: observer.TaskUpdated, TaskID: taskID})
	return nil
}

// StoreTaskEvent attaches an event to taskID. Returns the assigned event
// id, or 0 if the task no longer exists.
func (m *Manager) StoreTaskEvent(ctx context.Context, taskID int64, data any) (int64, error) {
	if err := m.checkStarted(); err != nil {
		return 0, err
	}
	blob, err := m.codec.EncodeEvent(data)
	if err != nil {
		return 0, fmt.Errorf("encode event data: %w", err)
	}
	id, err := m.store.StoreTaskEvent(ctx, taskID, blob, m.clk.Now())
	if err != nil {
		return 0, err
	}
	if id != 0 {
		tid := taskID
		m.eventReg.Notify(m.exec, observer.EventChange{Kind: observer.EventCreated, EventID: id, TaskID: &tid})
	}
	return id, nil
}

// StoreEvent inserts a free-standing event, unconditionally.
func (m *Manager) StoreEvent(ctx context.Context, data any) (int64, error) {
	if err := m.checkStarted(); err != nil {
		return 0, err
	}
	blob, err := m.codec.EncodeEvent(data)
	if err != nil {
		return 0, fmt.Errorf("encode event data: %w", err)
	}
	id, err := m.store.StoreEvent(ctx, blob, m.clk.Now())
	if err != nil {
		return 0, err
	}
	m.eventReg.Notify(m.exec, observer.EventChange{Kind: observer.EventCreated, EventID: id})
	return id, nil
}

// GetTasks returns the cursor projection for kind.
func (m *Manager) GetTasks(ctx context.Context, kind store.TaskKind) ([]store.TaskWithEventCount, error) {
	return m.store.Tasks(ctx, kind)
}

// GetTaskEvents returns every event attached to taskID, oldest first.
func (m *Manager) GetTaskEvents(ctx context.Context, taskID int64) ([]store.EventRecord, error) {
	return m.store.TaskEvents(ctx, taskID)
}

// GetAllEvents returns every event, free-standing or attached, oldest
// first.
func (m *Manager) GetAllEvents(ctx context.Context) ([]store.EventRecord, error) {
	return m.store.AllEvents(ctx)
}

var _ queue.Coordinator = (*Manager)(nil)
