package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavestack/sheetmatch/internal/adapter/postgres"
)

func TestExecute_Select_RowLimit(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE gpr ("Scan" BIGINT, "Depth" NUMERIC(6,2), seen TIMESTAMPTZ)`)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := pool.Exec(ctx, `INSERT INTO gpr VALUES ($1, 1.25, now())`, i)
		require.NoError(t, err)
	}

	executor := postgres.NewExecutor(pool, 3, 10*time.Second)

	results, err := executor.Execute(ctx, `SELECT "Scan", "Depth", seen FROM gpr ORDER BY "Scan"`)
	require.NoError(t, err)
	require.Len(t, results, 3, "should be limited to maxRows=3")
	assert.Equal(t, int64(0), results[0]["Scan"])
	assert.InDelta(t, 1.25, results[0]["Depth"], 1e-9)
	assert.IsType(t, "", results[0]["seen"])
}

func TestExecute_ReadOnly(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE SEQUENCE scan_seq`)
	require.NoError(t, err)

	executor := postgres.NewExecutor(pool, 10, 10*time.Second)

	// A SELECT with side effects is refused by the read-only transaction.
	_, err = executor.Execute(ctx, `SELECT nextval('scan_seq')`)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "read-only")
}

func TestExecute_StatementTimeout(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	executor := postgres.NewExecutor(pool, 100, 1*time.Second)

	_, err := executor.Execute(ctx, "SELECT pg_sleep(30)")
	require.Error(t, err)

	// PostgreSQL cancels with SQLSTATE 57014 (query_canceled), or the Go
	// context expires first.
	errMsg := strings.ToLower(err.Error())
	assert.True(t,
		strings.Contains(errMsg, "statement timeout") ||
			strings.Contains(errMsg, "cancel") ||
			strings.Contains(errMsg, "57014") ||
			strings.Contains(errMsg, "deadline exceeded") ||
			strings.Contains(errMsg, "timeout"),
		"expected timeout-related error, got: %s", err,
	)
}
