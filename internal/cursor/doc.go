// Package cursor implements the read-only projections used by list and
// detail views: all tasks, queued, active, and failed tasks, and events
// scoped to a task or global. Rows decode their opaque payload/exception/
// event blobs on the way out, falling back to a legacy placeholder when
// decoding fails, and carry an ephemeral per-row selection flag for
// multi-select UIs that is never written back to the store.
package cursor
