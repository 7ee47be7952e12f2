package executor_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attolytics/attolytics/internal/executor"
	"github.com/attolytics/attolytics/internal/planner"
)

// TestExecute_Postgres runs against a real database when
// TEST_DATABASE_URL is set; otherwise it is skipped.
func TestExecute_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS exec_test_events (
		ts BIGINT NOT NULL,
		event_type VARCHAR NOT NULL,
		score INTEGER
	)`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP TABLE IF EXISTS exec_test_events`)
	})

	e := executor.New(executor.WrapPool(pool), 5*time.Second)

	t.Run("commit", func(t *testing.T) {
		ack, err := e.Execute(ctx, []*planner.Plan{{
			Table:     "exec_test_events",
			SQL:       `INSERT INTO "exec_test_events" ("ts", "event_type", "score") VALUES ($1, $2, $3), ($4, $5, $6)`,
			Args:      []any{int64(1), "game_start", nil, int64(2), "game_end", int32(42)},
			Positions: []int{0, 1},
		}})
		require.NoError(t, err)
		assert.Equal(t, 2, ack.Rows["exec_test_events"])

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM exec_test_events`).Scan(&n))
		assert.Equal(t, 2, n)
	})

	t.Run("rollback leaves nothing behind", func(t *testing.T) {
		var before int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM exec_test_events`).Scan(&before))

		_, err := e.Execute(ctx, []*planner.Plan{
			{
				Table:     "exec_test_events",
				SQL:       `INSERT INTO "exec_test_events" ("ts", "event_type", "score") VALUES ($1, $2, $3)`,
				Args:      []any{int64(3), "ok", nil},
				Positions: []int{0},
			},
			{
				Table:     "exec_test_events",
				SQL:       `INSERT INTO "exec_test_events" ("ts", "event_type", "score") VALUES ($1, $2, $3)`,
				Args:      []any{nil, "violates not null", nil},
				Positions: []int{1},
			},
		})
		require.Error(t, err)

		var after int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM exec_test_events`).Scan(&after))
		assert.Equal(t, before, after, "failed batch must not leave partial rows")
	})
}
