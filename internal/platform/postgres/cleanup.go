package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Grunthos/TaskQueue/internal/store"
)

// CleanupOldTasks implements store.Store. It ages off task rows purely by
// retry_at, per the on-disk contract: a task retried recently keeps a
// fresh retry_at and is not eligible for cleanup even if it was first
// queued long ago.
func (s *Store) CleanupOldTasks(ctx context.Context, days int, now time.Time) error {
	cutoff := now.AddDate(0, 0, -days)
	return runCleanupTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM task WHERE retry_at < $1`, cutoff)
		return MapError(err)
	})
}

// CleanupOldEvents implements store.Store.
func (s *Store) CleanupOldEvents(ctx context.Context, days int, now time.Time) error {
	cutoff := now.AddDate(0, 0, -days)
	return runCleanupTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM event WHERE event_at < $1`, cutoff)
		return MapError(err)
	})
}

func runCleanupTx(ctx context.Context, db *sql.DB, delete func(context.Context, *sql.Tx) error) error {
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := delete(ctx, tx); err != nil {
			return err
		}
		return cleanupOrphansTx(ctx, tx)
	})
}

func cleanupOrphansTx(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event WHERE task_id IS NOT NULL AND task_id NOT IN (SELECT id FROM task)`,
	); err != nil {
		return MapError(err)
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM task WHERE status = 'S' AND id NOT IN (SELECT DISTINCT task_id FROM event WHERE task_id IS NOT NULL)`,
	)
	return MapError(err)
}

// BringTaskToFront implements store.Store.
func (s *Store) BringTaskToFront(ctx context.Context, taskID int64) error {
	return s.reprioritize(ctx, taskID, "MIN", -1)
}

// SendTaskToBack implements store.Store.
func (s *Store) SendTaskToBack(ctx context.Context, taskID int64) error {
	return s.reprioritize(ctx, taskID, "MAX", 1)
}

func (s *Store) reprioritize(ctx context.Context, taskID int64, aggregate string, delta int32) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var queueID int64
		if err := tx.QueryRowContext(ctx, `SELECT queue_id FROM task WHERE id = $1`, taskID).Scan(&queueID); err != nil {
			if IsNotFoundErr(err) {
				return store.NewStoreError("task", "reprioritize", "task not found", store.ErrTaskNotFound)
			}
			return MapError(err)
		}

		query := `SELECT COALESCE(` + aggregate + `(priority), 0) FROM task WHERE queue_id = $1 AND status = 'Q'`
		var extreme int32
		if err := tx.QueryRowContext(ctx, query, queueID).Scan(&extreme); err != nil {
			return MapError(err)
		}

		_, err := tx.ExecContext(ctx, `UPDATE task SET priority = $2 WHERE id = $1`, taskID, extreme+delta)
		return MapError(err)
	})
}
