// Package queue implements the single-threaded per-queue worker loop:
// Polling for the next eligible task, Waiting on a wakeable timer when
// nothing is due yet, and Running a task to completion before returning
// to Polling. A worker terminates itself the moment the queue runs dry
// and is expected to be respawned by its coordinator on the next submit.
package queue
