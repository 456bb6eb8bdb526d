package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grunthos/TaskQueue/internal/clock"
	"github.com/Grunthos/TaskQueue/internal/observer"
	"github.com/Grunthos/TaskQueue/internal/serializer"
	"github.com/Grunthos/TaskQueue/internal/store"
	"github.com/Grunthos/TaskQueue/internal/task"
)

type samplePayload struct {
	task.BasePayload
	Message string
	run     func(ctx context.Context) (bool, error)
}

func (p *samplePayload) TypeName() string { return "sample" }
func (p *samplePayload) Run(ctx context.Context) (bool, error) {
	if p.run != nil {
		return p.run(ctx)
	}
	return true, nil
}

func newTestCodec() *serializer.JSONCodec {
	c := serializer.NewJSONCodec()
	c.RegisterTaskType("sample", func() task.Payload { return &samplePayload{} })
	return c
}

// fakeStore implements store.Store, recording the calls that matter to the
// worker loop and returning canned results for everything else.
type fakeStore struct {
	nextTasks   []*store.ScheduledTask
	markSuccess []int64
	markRequeue []int64
	markFailure []int64
	failReason  []string
}

func (f *fakeStore) nextScheduled() *store.ScheduledTask {
	if len(f.nextTasks) == 0 {
		return nil
	}
	next := f.nextTasks[0]
	f.nextTasks = f.nextTasks[1:]
	return next
}

func (f *fakeStore) GetOrCreateQueue(ctx context.Context, name string) (int64, error) { return 1, nil }
func (f *fakeStore) Enqueue(ctx context.Context, queueName string, create bool, priority int32, payload []byte) (int64, error) {
	return 1, nil
}
func (f *fakeStore) NextTask(ctx context.Context, queueName string, now time.Time) (*store.ScheduledTask, error) {
	return f.nextScheduled(), nil
}
func (f *fakeStore) MarkSuccess(ctx context.Context, taskID int64) error {
	f.markSuccess = append(f.markSuccess, taskID)
	return nil
}
func (f *fakeStore) MarkRequeue(ctx context.Context, taskID int64, retryLimit int32, retryDelay time.Duration, now time.Time, payload []byte) error {
	f.markRequeue = append(f.markRequeue, taskID)
	return nil
}
func (f *fakeStore) MarkFailure(ctx context.Context, taskID int64, reason string, exception []byte, payload []byte) error {
	f.markFailure = append(f.markFailure, taskID)
	f.failReason = append(f.failReason, reason)
	return nil
}
func (f *fakeStore) UpdateTask(ctx context.Context, taskID int64, payload []byte) error { return nil }
func (f *fakeStore) StoreTaskEvent(ctx context.Context, taskID int64, eventBlob []byte, at time.Time) (int64, error) {
	return 1, nil
}
func (f *fakeStore) StoreEvent(ctx context.Context, eventBlob []byte, at time.Time) (int64, error) {
	return 1, nil
}
func (f *fakeStore) DeleteTask(ctx context.Context, taskID int64) error  { return nil }
func (f *fakeStore) DeleteEvent(ctx context.Context, eventID int64) error { return nil }
func (f *fakeStore) CleanupOldTasks(ctx context.Context, days int, now time.Time) error {
	return nil
}
func (f *fakeStore) CleanupOldEvents(ctx context.Context, days int, now time.Time) error {
	return nil
}
func (f *fakeStore) BringTaskToFront(ctx context.Context, taskID int64) error { return nil }
func (f *fakeStore) SendTaskToBack(ctx context.Context, taskID int64) error  { return nil }
func (f *fakeStore) GetQueueNames(ctx context.Context) ([]string, error)    { return nil, nil }
func (f *fakeStore) Tasks(ctx context.Context, kind store.TaskKind) ([]store.TaskWithEventCount, error) {
	return nil, nil
}
func (f *fakeStore) TaskEvents(ctx context.Context, taskID int64) ([]store.EventRecord, error) {
	return nil, nil
}
func (f *fakeStore) AllEvents(ctx context.Context) ([]store.EventRecord, error) { return nil, nil }

var _ store.Store = (*fakeStore)(nil)

type fakeCoordinator struct {
	starting    int
	terminating int
	runTaskFn   func(ctx context.Context, t *task.Task) (bool, error)
}

func (c *fakeCoordinator) NextTask(ctx context.Context, queueName string) (*store.ScheduledTask, error) {
	return nil, nil // overridden per-test via a wrapping fakeStore-backed coordinator below
}
func (c *fakeCoordinator) RunTask(ctx context.Context, t *task.Task) (bool, error) {
	if c.runTaskFn != nil {
		return c.runTaskFn(ctx, t)
	}
	if r, ok := t.Payload.(task.Runnable); ok {
		return r.Run(ctx)
	}
	return false, task.ErrUnsupportedTask
}
func (c *fakeCoordinator) QueueStarting(w *Worker)    { c.starting++ }
func (c *fakeCoordinator) QueueTerminating(w *Worker) { c.terminating++ }

// storeBackedCoordinator forwards NextTask straight to the underlying
// fakeStore so a test can drive the worker loop through a scripted
// sequence of scheduled tasks.
type storeBackedCoordinator struct {
	*fakeCoordinator
	st *fakeStore
}

func (c *storeBackedCoordinator) NextTask(ctx context.Context, queueName string) (*store.ScheduledTask, error) {
	return c.st.nextScheduled(), nil
}

func TestWorker_RunSuccessPath(t *testing.T) {
	codec := newTestCodec()
	blob, err := codec.EncodeTask(&samplePayload{Message: "hi"})
	require.NoError(t, err)

	st := &fakeStore{
		nextTasks: []*store.ScheduledTask{
			{Task: &store.TaskRecord{ID: 1, PayloadBlob: blob}, Wait: 0},
		},
	}
	coord := &storeBackedCoordinator{fakeCoordinator: &fakeCoordinator{}, st: st}
	taskReg := observer.NewTaskRegistry(nil)

	var changes []observer.TaskChange
	token := taskReg.Register(observer.TaskListenerFunc(func(c observer.TaskChange) {
		changes = append(changes, c)
	}))
	defer token.Unregister()

	w := NewWorker("default", st, codec, clock.NewFake(time.Unix(0, 0)), coord, taskReg, observer.Direct, nil, 1, 0)
	w.Run(context.Background())

	assert.Equal(t, 1, coord.starting)
	assert.Equal(t, 1, coord.terminating)
	assert.Equal(t, []int64{1}, st.markSuccess)
	require.Len(t, changes, 2)
	assert.Equal(t, observer.TaskRunning, changes[0].Kind)
	assert.Equal(t, observer.TaskCompleted, changes[1].Kind)
}

func TestWorker_RequeueOnFalseResult(t *testing.T) {
	codec := newTestCodec()
	blob, err := codec.EncodeTask(&samplePayload{Message: "retry-me"})
	require.NoError(t, err)

	st := &fakeStore{
		nextTasks: []*store.ScheduledTask{
			{Task: &store.TaskRecord{ID: 2, PayloadBlob: blob}, Wait: 0},
		},
	}
	coord := &storeBackedCoordinator{
		fakeCoordinator: &fakeCoordinator{
			runTaskFn: func(ctx context.Context, t *task.Task) (bool, error) { return false, nil },
		},
		st: st,
	}
	taskReg := observer.NewTaskRegistry(nil)
	w := NewWorker("default", st, codec, clock.NewFake(time.Unix(0, 0)), coord, taskReg, observer.Direct, nil, 1, 0)
	w.Run(context.Background())

	assert.Equal(t, []int64{2}, st.markRequeue)
	assert.Empty(t, st.markSuccess)
	assert.Empty(t, st.markFailure)
}

func TestWorker_FailureOnExecutorError(t *testing.T) {
	codec := newTestCodec()
	blob, err := codec.EncodeTask(&samplePayload{Message: "boom"})
	require.NoError(t, err)

	st := &fakeStore{
		nextTasks: []*store.ScheduledTask{
			{Task: &store.TaskRecord{ID: 3, PayloadBlob: blob}, Wait: 0},
		},
	}
	wantErr := errors.New("kaboom")
	coord := &storeBackedCoordinator{
		fakeCoordinator: &fakeCoordinator{
			runTaskFn: func(ctx context.Context, t *task.Task) (bool, error) { return false, wantErr },
		},
		st: st,
	}
	taskReg := observer.NewTaskRegistry(nil)
	w := NewWorker("default", st, codec, clock.NewFake(time.Unix(0, 0)), coord, taskReg, observer.Direct, nil, 1, 0)
	w.Run(context.Background())

	require.Equal(t, []int64{3}, st.markFailure)
	assert.Contains(t, st.failReason[0], "kaboom")
}

func TestWorker_DecodeFailureMarksFailureWithoutExecuting(t *testing.T) {
	codec := newTestCodec()

	st := &fakeStore{
		nextTasks: []*store.ScheduledTask{
			{Task: &store.TaskRecord{ID: 4, PayloadBlob: []byte(`not json envelope`)}, Wait: 0},
		},
	}
	ran := false
	coord := &storeBackedCoordinator{
		fakeCoordinator: &fakeCoordinator{
			runTaskFn: func(ctx context.Context, t *task.Task) (bool, error) {
				ran = true
				return true, nil
			},
		},
		st: st,
	}
	taskReg := observer.NewTaskRegistry(nil)
	w := NewWorker("default", st, codec, clock.NewFake(time.Unix(0, 0)), coord, taskReg, observer.Direct, nil, 1, 0)
	w.Run(context.Background())

	assert.False(t, ran)
	require.Equal(t, []int64{4}, st.markFailure)
	assert.Empty(t, st.markSuccess)
}

func TestWorker_WaitThenWakeReturnsToPolling(t *testing.T) {
	codec := newTestCodec()
	blob, err := codec.EncodeTask(&samplePayload{Message: "later"})
	require.NoError(t, err)

	fc := clock.NewFake(time.Unix(0, 0))
	st := &fakeStore{
		nextTasks: []*store.ScheduledTask{
			{Task: nil, Wait: time.Hour},
			{Task: &store.TaskRecord{ID: 5, PayloadBlob: blob}, Wait: 0},
		},
	}
	coord := &storeBackedCoordinator{fakeCoordinator: &fakeCoordinator{}, st: st}
	taskReg := observer.NewTaskRegistry(nil)
	w := NewWorker("default", st, codec, fc, coord, taskReg, observer.Direct, nil, 1, 0)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	// Give the worker a moment to reach the Waiting state, then wake it
	// early rather than waiting a full hour of fake clock time.
	time.Sleep(20 * time.Millisecond)
	w.Wake()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate after wake")
	}

	assert.Equal(t, []int64{5}, st.markSuccess)
}

func TestWorker_SignalSetsAbortOnCurrentTask(t *testing.T) {
	codec := newTestCodec()
	blob, err := codec.EncodeTask(&samplePayload{Message: "long-running"})
	require.NoError(t, err)

	gotAbort := make(chan bool, 1)
	st := &fakeStore{
		nextTasks: []*store.ScheduledTask{
			{Task: &store.TaskRecord{ID: 6, PayloadBlob: blob}, Wait: 0},
		},
	}
	started := make(chan struct{})
	coord := &storeBackedCoordinator{
		fakeCoordinator: &fakeCoordinator{
			runTaskFn: func(ctx context.Context, t *task.Task) (bool, error) {
				close(started)
				time.Sleep(30 * time.Millisecond)
				gotAbort <- t.Payload.AbortRequested()
				return true, nil
			},
		},
		st: st,
	}
	taskReg := observer.NewTaskRegistry(nil)
	w := NewWorker("default", st, codec, clock.NewFake(time.Unix(0, 0)), coord, taskReg, observer.Direct, nil, 1, 0)

	go w.Run(context.Background())
	<-started
	id, ok := w.CurrentTaskID()
	require.True(t, ok)
	require.Equal(t, int64(6), id)
	assert.True(t, w.Signal(6))

	assert.True(t, <-gotAbort)
}
