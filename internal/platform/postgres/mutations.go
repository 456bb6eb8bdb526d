package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Grunthos/TaskQueue/internal/store"
)

// MarkSuccess implements store.Store: rows with no events are deleted
// outright, rows with events are marked Succeeded and retained.
func (s *Store) MarkSuccess(ctx context.Context, taskID int64) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var eventCount int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM event WHERE task_id = $1`, taskID).Scan(&eventCount); err != nil {
			return MapError(err)
		}

		if eventCount == 0 {
			_, err := tx.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, taskID)
			return MapError(err)
		}
		_, err := tx.ExecContext(ctx, `UPDATE task SET status = 'S' WHERE id = $1`, taskID)
		return MapError(err)
	})
}

// MarkRequeue implements store.Store. The CASE expressions all read the
// pre-update row, so retryLimit is checked against the retry_count
// already on disk before it is incremented, matching the "retry_count >=
// retry_limit transitions to Failed" rule.
func (s *Store) MarkRequeue(ctx context.Context, taskID int64, retryLimit int32, retryDelay time.Duration, now time.Time, payload []byte) error {
	const query = `
		UPDATE task SET
			status = CASE WHEN retry_count >= $2 THEN 'F' ELSE 'Q' END,
			failure_reason = CASE WHEN retry_count >= $2 THEN 'retry limit exceeded' ELSE failure_reason END,
			retry_at = CASE WHEN retry_count >= $2 THEN retry_at ELSE $3 END,
			retry_count = CASE WHEN retry_count >= $2 THEN retry_count ELSE retry_count + 1 END,
			payload = $4
		WHERE id = $1`

	_, err := s.db.ExecContext(ctx, query, taskID, retryLimit, now.Add(retryDelay), payload)
	if err != nil {
		logFromCtx(ctx).Error("failed to requeue task", "task_id", taskID, "error", err)
	}
	return MapError(err)
}

// MarkFailure implements store.Store.
func (s *Store) MarkFailure(ctx context.Context, taskID int64, reason string, exception []byte, payload []byte) error {
	const query = `
		UPDATE task SET status = 'F', failure_reason = $2, exception = $3, payload = $4
		WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, taskID, reason, exception, payload)
	if err != nil {
		logFromCtx(ctx).Error("failed to mark task failed", "task_id", taskID, "reason", reason, "error", err)
	}
	return MapError(err)
}

// UpdateTask implements store.Store.
func (s *Store) UpdateTask(ctx context.Context, taskID int64, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `UPDATE task SET payload = $2 WHERE id = $1`, taskID, payload)
	return MapError(err)
}

// StoreTaskEvent implements store.Store: it verifies the task still
// exists and inserts the event in one transaction, returning (0, nil)
// without inserting if the task is already gone.
func (s *Store) StoreTaskEvent(ctx context.Context, taskID int64, eventBlob []byte, at time.Time) (int64, error) {
	var id int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM task WHERE id = $1)`, taskID).Scan(&exists); err != nil {
			return MapError(err)
		}
		if !exists {
			return nil
		}
		return MapError(tx.QueryRowContext(ctx,
			`INSERT INTO event (task_id, event, event_at) VALUES ($1, $2, $3) RETURNING id`,
			taskID, eventBlob, at,
		).Scan(&id))
	})
	return id, err
}

// StoreEvent implements store.Store.
func (s *Store) StoreEvent(ctx context.Context, eventBlob []byte, at time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO event (task_id, event, event_at) VALUES (NULL, $1, $2) RETURNING id`,
		eventBlob, at,
	).Scan(&id)
	return id, MapError(err)
}

// DeleteTask implements store.Store.
func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event WHERE task_id = $1`, taskID); err != nil {
			return MapError(err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, taskID)
		return MapError(err)
	})
}

// DeleteEvent implements store.Store.
func (s *Store) DeleteEvent(ctx context.Context, eventID int64) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event WHERE id = $1`, eventID); err != nil {
			return MapError(err)
		}
		return cleanupOrphansTx(ctx, tx)
	})
}
