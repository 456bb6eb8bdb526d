package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Grunthos/TaskQueue/internal/platform/logger"
	"github.com/Grunthos/TaskQueue/internal/store"
)

// Store implements store.Store against a PostgreSQL database.
type Store struct {
	db *sql.DB
}

// New wraps an already-open, already-migrated *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

// GetOrCreateQueue implements store.Store.
func (s *Store) GetOrCreateQueue(ctx context.Context, name string) (int64, error) {
	const query = `
		INSERT INTO queue (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		logFromCtx(ctx).Error("failed to get or create queue", "queue_name", name, "error", err)
		return 0, MapError(err)
	}
	return id, nil
}

// Enqueue implements store.Store.
func (s *Store) Enqueue(ctx context.Context, queueName string, create bool, priority int32, payload []byte) (int64, error) {
	var queueID int64
	if create {
		id, err := s.GetOrCreateQueue(ctx, queueName)
		if err != nil {
			return 0, err
		}
		queueID = id
	} else {
		const lookup = `SELECT id FROM queue WHERE name = $1`
		if err := s.db.QueryRowContext(ctx, lookup, queueName).Scan(&queueID); err != nil {
			if IsNotFoundErr(err) {
				return 0, store.ErrUnknownQueue
			}
			return 0, MapError(err)
		}
	}

	const insert = `
		INSERT INTO task (queue_id, queued_at, priority, status, retry_at, retry_count, payload)
		VALUES ($1, now(), $2, 'Q', now(), 0, $3)
		RETURNING id`

	var taskID int64
	if err := s.db.QueryRowContext(ctx, insert, queueID, priority, payload).Scan(&taskID); err != nil {
		logFromCtx(ctx).Error("failed to enqueue task", "queue_name", queueName, "error", err)
		return 0, MapError(err)
	}
	return taskID, nil
}

const taskColumns = `id, queue_id, queued_at, priority, status, retry_at, retry_count, failure_reason, exception, payload`

func scanTaskRow(row rowScanner) (*store.TaskRecord, error) {
	var rec store.TaskRecord
	var failureReason sql.NullString
	if err := row.Scan(
		&rec.ID, &rec.QueueID, &rec.QueuedAt, &rec.Priority, &rec.Status,
		&rec.RetryAt, &rec.RetryCount, &failureReason, &rec.ExceptionBlob, &rec.PayloadBlob,
	); err != nil {
		return nil, err
	}
	if failureReason.Valid {
		rec.FailureReason = &failureReason.String
	}
	return &rec, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// NextTask implements store.Store's two-phase selection.
func (s *Store) NextTask(ctx context.Context, queueName string, now time.Time) (*store.ScheduledTask, error) {
	var queueID int64
	const lookup = `SELECT id FROM queue WHERE name = $1`
	if err := s.db.QueryRowContext(ctx, lookup, queueName).Scan(&queueID); err != nil {
		if IsNotFoundErr(err) {
			return nil, nil
		}
		return nil, MapError(err)
	}

	eligible := fmt.Sprintf(`
		SELECT %s FROM task
		WHERE queue_id = $1 AND status = 'Q' AND retry_at <= $2
		ORDER BY priority ASC, retry_at ASC, id ASC
		LIMIT 1`, taskColumns)

	rec, err := scanTaskRow(s.db.QueryRowContext(ctx, eligible, queueID, now))
	if err == nil {
		return &store.ScheduledTask{Task: rec, Wait: 0}, nil
	}
	if !IsNotFoundErr(err) {
		logFromCtx(ctx).Error("failed to select next eligible task", "queue_name", queueName, "error", err)
		return nil, MapError(err)
	}

	future := fmt.Sprintf(`
		SELECT %s FROM task
		WHERE queue_id = $1 AND status = 'Q' AND retry_at > $2
		ORDER BY retry_at ASC, priority ASC, id ASC
		LIMIT 1`, taskColumns)

	rec, err = scanTaskRow(s.db.QueryRowContext(ctx, future, queueID, now))
	if err == nil {
		return &store.ScheduledTask{Task: rec, Wait: rec.RetryAt.Sub(now)}, nil
	}
	if IsNotFoundErr(err) {
		return nil, nil
	}
	return nil, MapError(err)
}

// IsNotFoundErr reports whether err is sql.ErrNoRows, unwrapped or
// wrapped by MapError.
func IsNotFoundErr(err error) bool {
	return err == sql.ErrNoRows || store.IsNotFoundError(err)
}

func logFromCtx(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx)
}
