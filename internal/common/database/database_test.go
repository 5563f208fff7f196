package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "creative-funding/internal/common/errors"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

type cachedRole struct {
	Role string `json:"role"`
}

func TestJSONCache_RoundTripAndExpiry(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, client, "profile:role:u-1", cachedRole{Role: "reviewer"}, time.Minute))

	var got cachedRole
	require.NoError(t, GetJSON(ctx, client, "profile:role:u-1", &got))
	assert.Equal(t, "reviewer", got.Role)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, GetJSON(ctx, client, "profile:role:u-1", &got), ErrCacheMiss)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	client, mr := setupRedis(t)
	require.NoError(t, mr.Set("broken", "{not-json"))

	var got cachedRole
	err := GetJSON(context.Background(), client, "broken", &got)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE applications SET status = 'submitted'`)
		return err
	})
	require.NoError(t, err)

	failure := errors.New("audit insert failed")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPing_ReportsConnectionFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	assert.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))
	err = client.Ping(context.Background())
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeDatabaseConnectionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
