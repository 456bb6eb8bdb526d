//go:build test_without_external_deps

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grunthos/TaskQueue/internal/store"
)

func TestCleanupOldTasks_DeletesByRetryAtThenOrphans(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task WHERE retry_at < \$1`).
		WithArgs(now.AddDate(0, 0, -30)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM event WHERE task_id IS NOT NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM task WHERE status = 'S'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.CleanupOldTasks(context.Background(), 30, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBringTaskToFront_MissingTaskReturnsStoreError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT queue_id FROM task WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.BringTaskToFront(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "task", storeErr.Entity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBringTaskToFront_SetsPriorityBelowMinimum(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT queue_id FROM task WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"queue_id"}).AddRow(int64(5)))
	mock.ExpectQuery(`SELECT COALESCE\(MIN\(priority\), 0\)`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(int32(2)))
	mock.ExpectExec(`UPDATE task SET priority = \$2 WHERE id = \$1`).
		WithArgs(int64(1), int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.BringTaskToFront(context.Background(), 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendTaskToBack_MissingTaskReturnsStoreError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT queue_id FROM task WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.SendTaskToBack(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
