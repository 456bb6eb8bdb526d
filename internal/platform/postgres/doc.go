// Package postgres implements store.Store against PostgreSQL via
// database/sql and the pgx driver, registered under the "pgx" driver
// name by internal/platform/postgres's caller (see cmd/workqueued).
package postgres
