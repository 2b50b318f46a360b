package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestSQLState(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation})
	require.Equal(t, CodeUniqueViolation, SQLState(wrapped))
	require.Equal(t, "", SQLState(errors.New("boom")))
	require.Equal(t, "", SQLState(nil))
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(&pgconn.PgError{Code: CodeSerializationFailure}))
	require.True(t, Retryable(&pgconn.PgError{Code: CodeDeadlockDetected}))
	require.False(t, Retryable(&pgconn.PgError{Code: CodeUniqueViolation}))
}
