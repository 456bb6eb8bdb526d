package dispatcher

import "errors"

// ErrAlreadyStarted is returned by Start if called more than once on the
// same Manager.
var ErrAlreadyStarted = errors.New("dispatcher: already started")

// ErrNotStarted is returned by operations that require an active worker
// set when Start has not yet been called.
var ErrNotStarted = errors.New("dispatcher: not started")
