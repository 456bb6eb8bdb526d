// Package store defines the storage-agnostic contract for the scheduling
// engine: the durable schema of queues, tasks, and events, the queries the
// Dispatcher and queue workers depend on, and the sentinel errors every
// implementation must map onto.
//
// internal/platform/postgres provides the only implementation shipped by
// this module. Anything that talks to the Store — the Dispatcher, the
// queue worker, the cursor projections — depends only on the interfaces
// declared here, never on the postgres package directly.
package store
