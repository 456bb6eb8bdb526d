// Package logger provides structured logging functionality for the
// application, built on log/slog, plus a small context-carrying
// convention so request- and task-scoped fields (queue name, task id)
// ride along without threading a *slog.Logger through every call.
package logger
