package task

import "errors"

// ErrUnsupportedTask is returned by the default executor when a Payload
// does not implement Runnable and the Dispatcher has not been configured
// with a custom executor via dispatcher.WithRunTask.
var ErrUnsupportedTask = errors.New("task payload does not support execution")
