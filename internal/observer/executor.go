package observer

// CallbackExecutor marshals an observer callback onto whatever thread the
// embedder wants notifications to run on — a UI main-thread dispatcher in
// the original design, an arbitrary goroutine pool in a headless service.
// The Dispatcher never invokes a listener directly from the queue worker
// goroutine that produced the notification.
type CallbackExecutor interface {
	Run(fn func())
}

// CallbackExecutorFunc adapts a plain function to a CallbackExecutor.
type CallbackExecutorFunc func(func())

// Run implements CallbackExecutor.
func (f CallbackExecutorFunc) Run(fn func()) { f(fn) }

// Direct runs the callback synchronously on the calling goroutine. Useful
// for tests and for embedders with no preferred notification thread.
var Direct CallbackExecutor = CallbackExecutorFunc(func(fn func()) { fn() })

// Goroutine runs the callback on a new goroutine, decoupling the notifier
// from however long the listener takes.
var Goroutine CallbackExecutor = CallbackExecutorFunc(func(fn func()) { go fn() })
