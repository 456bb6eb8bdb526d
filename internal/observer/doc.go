// Package observer implements weakly-held task/event listener registries:
// subscribers are held by weak.Pointer so a forgotten listener does not
// keep the Dispatcher from reclaiming it, and dead entries are pruned
// lazily the next time the registry is snapshotted for dispatch.
// Notifications are handed to a caller-supplied CallbackExecutor so they
// never run on the queue worker goroutine that produced them.
package observer
