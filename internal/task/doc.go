// Package task defines the runtime task/event domain types layered on top
// of the durable rows in internal/store: the decoded Payload contract an
// embedder implements, the Runnable capability the default executor looks
// for, and the Legacy placeholder substituted when a stored blob cannot be
// decoded.
package task
