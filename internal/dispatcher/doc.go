// Package dispatcher implements the process-wide Manager: the single
// coordinator that owns the set of active per-queue workers, serializes
// cross-queue mutations behind one mutex, and multicasts task/event
// lifecycle changes to the observer registries. Only one Manager should
// run against a given store at a time — two concurrent instances would
// race on next-task selection and priority mutation.
package dispatcher
