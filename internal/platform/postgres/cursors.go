package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Grunthos/TaskQueue/internal/store"
)

// GetQueueNames implements store.Store.
func (s *Store) GetQueueNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM queue ORDER BY id ASC`)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, MapError(err)
		}
		names = append(names, name)
	}
	return names, MapError(rows.Err())
}

var kindFilters = map[store.TaskKind]string{
	store.TaskKindAll:    "TRUE",
	store.TaskKindQueued: "t.status = 'Q'",
	store.TaskKindActive: "t.status <> 'S'",
	store.TaskKindFailed: "t.status = 'F'",
}

// Tasks implements store.Store.
func (s *Store) Tasks(ctx context.Context, kind store.TaskKind) ([]store.TaskWithEventCount, error) {
	filter, ok := kindFilters[kind]
	if !ok {
		return nil, fmt.Errorf("postgres: unknown task kind %d", kind)
	}

	query := fmt.Sprintf(`
		SELECT t.id, t.queue_id, t.queued_at, t.priority, t.status, t.retry_at, t.retry_count,
		       t.failure_reason, t.exception, t.payload, COUNT(e.id) AS event_count
		FROM task t
		LEFT JOIN event e ON e.task_id = t.id
		WHERE %s
		GROUP BY t.id
		ORDER BY t.id DESC`, filter)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var out []store.TaskWithEventCount
	for rows.Next() {
		rec, eventCount, err := scanTaskWithCount(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, store.TaskWithEventCount{Task: rec, EventCount: eventCount})
	}
	return out, MapError(rows.Err())
}

func scanTaskWithCount(rows rowScanner) (*store.TaskRecord, int64, error) {
	var rec store.TaskRecord
	var failureReason sql.NullString
	var eventCount int64
	if err := rows.Scan(
		&rec.ID, &rec.QueueID, &rec.QueuedAt, &rec.Priority, &rec.Status,
		&rec.RetryAt, &rec.RetryCount, &failureReason, &rec.ExceptionBlob, &rec.PayloadBlob, &eventCount,
	); err != nil {
		return nil, 0, err
	}
	if failureReason.Valid {
		rec.FailureReason = &failureReason.String
	}
	return &rec, eventCount, nil
}

// TaskEvents implements store.Store.
func (s *Store) TaskEvents(ctx context.Context, taskID int64) ([]store.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, event, event_at FROM event WHERE task_id = $1 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// AllEvents implements store.Store.
func (s *Store) AllEvents(ctx context.Context) ([]store.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, event, event_at FROM event ORDER BY id ASC`)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

func scanEventRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]store.EventRecord, error) {
	var out []store.EventRecord
	for rows.Next() {
		var rec store.EventRecord
		var taskID sql.NullInt64
		if err := rows.Scan(&rec.ID, &taskID, &rec.EventBlob, &rec.EventAt); err != nil {
			return nil, MapError(err)
		}
		if taskID.Valid {
			id := taskID.Int64
			rec.TaskID = &id
		}
		out = append(out, rec)
	}
	return out, MapError(rows.Err())
}
