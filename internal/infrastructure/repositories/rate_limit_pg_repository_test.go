package repositories_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/db"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/repositories"
)

func newMockDB(t *testing.T) (*db.Database, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = raw.Close()
	})
	return db.NewDatabaseFromDB(sqlx.NewDb(raw, "postgres")), mock
}

func TestPostgresRepository_Get(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewRateLimitPostgresRepository(database, nil)
	ws := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, window_start, count, expires_at FROM usage_records WHERE key = $1")).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"key", "window_start", "count", "expires_at"}).
			AddRow("k", ws, 7, ws.Add(48*time.Hour)))

	rec, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, 7, rec.Count)
	require.Equal(t, ws, rec.WindowStart)
}

func TestPostgresRepository_GetMissing(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewRateLimitPostgresRepository(database, nil)

	mock.ExpectQuery("FROM usage_records").WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"key", "window_start", "count", "expires_at"}))

	rec, err := repo.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestPostgresRepository_ConditionalIncrement(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewRateLimitPostgresRepository(database, nil)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("WHERE usage_records.window_start > $4")).
		WithArgs("k", now, now.Add(2*time.Hour), now.Add(-time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE usage_records.window_start > $4")).
		WithArgs("k", now, now.Add(2*time.Hour), now.Add(-time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ConditionalIncrement(context.Background(), "k", now, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ConditionalIncrement(context.Background(), "k", now, time.Hour)
	require.NoError(t, err)
	require.False(t, ok, "zero rows affected means the stored window is stale")
}

func TestPostgresRepository_ResetAndPurge(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewRateLimitPostgresRepository(database, nil)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SET window_start = EXCLUDED.window_start, count = 1")).
		WithArgs("k", now, now.Add(2*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM usage_records WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.Reset(context.Background(), "k", now, time.Hour))
	n, err := repo.PurgeExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
}

func TestPostgresRepository_PropagatesErrors(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewRateLimitPostgresRepository(database, nil)

	mock.ExpectExec("INSERT INTO usage_records").WillReturnError(errors.New("connection reset"))

	_, err := repo.ConditionalIncrement(context.Background(), "k", time.Now(), time.Hour)
	require.Error(t, err)
}
