package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attolytics/attolytics/internal/executor"
	"github.com/attolytics/attolytics/internal/planner"
)

type fakeTx struct {
	execSQL    []string
	execErr    error
	failOnCall int // 1-based call number that returns execErr; 0 means first
	calls      int
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.calls++
	t.execSQL = append(t.execSQL, sql)
	if t.execErr != nil && (t.failOnCall == 0 || t.calls == t.failOnCall) {
		return pgconn.CommandTag{}, t.execErr
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", countRows(sql))), nil
}

// countRows counts placeholder groups in the statement.
func countRows(sql string) int {
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '(' {
			n++
		}
	}
	return n - 1 // first group is the column list
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakePool struct {
	tx       *fakeTx
	beginErr error
	beginFn  func(ctx context.Context) error
	begins   int
}

func (p *fakePool) Begin(ctx context.Context) (executor.Tx, error) {
	p.begins++
	if p.beginFn != nil {
		if err := p.beginFn(ctx); err != nil {
			return nil, err
		}
	}
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}

func (p *fakePool) Ping(ctx context.Context) error { return nil }

func plansFor(tables ...string) []*planner.Plan {
	plans := make([]*planner.Plan, 0, len(tables))
	for i, name := range tables {
		plans = append(plans, &planner.Plan{
			Table:     name,
			SQL:       fmt.Sprintf(`INSERT INTO %q ("a") VALUES ($1), ($2)`, name),
			Args:      []any{1, 2},
			Positions: []int{2 * i, 2*i + 1},
		})
	}
	return plans
}

func TestExecute_CommitsAndCounts(t *testing.T) {
	tx := &fakeTx{}
	e := executor.New(&fakePool{tx: tx}, time.Second)

	ack, err := e.Execute(context.Background(), plansFor("game_events", "crashes"))
	require.NoError(t, err)

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, map[string]int{"game_events": 2, "crashes": 2}, ack.Rows)
	assert.Len(t, tx.execSQL, 2)
}

func TestExecute_RollsBackOnPlanFailure(t *testing.T) {
	tx := &fakeTx{execErr: errors.New("constraint violation"), failOnCall: 2}
	e := executor.New(&fakePool{tx: tx}, time.Second)

	_, err := e.Execute(context.Background(), plansFor("game_events", "crashes"))
	require.Error(t, err)

	assert.True(t, tx.rolledBack, "transaction must roll back on any plan failure")
	assert.False(t, tx.committed)

	var execErr *executor.Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "crashes", execErr.Table)
	assert.Equal(t, []int{2, 3}, execErr.Positions)
}

func TestExecute_RollsBackOnCommitFailure(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("connection reset")}
	e := executor.New(&fakePool{tx: tx}, time.Second)

	_, err := e.Execute(context.Background(), plansFor("game_events"))
	require.Error(t, err)
	assert.True(t, tx.rolledBack)

	var execErr *executor.Error
	require.ErrorAs(t, err, &execErr)
	assert.Empty(t, execErr.Table)
	assert.Contains(t, execErr.Error(), "commit")
}

func TestExecute_PoolTimeout(t *testing.T) {
	pool := &fakePool{
		beginFn: func(ctx context.Context) error {
			// Block until the acquire deadline fires.
			<-ctx.Done()
			return ctx.Err()
		},
	}
	e := executor.New(pool, 10*time.Millisecond)

	_, err := e.Execute(context.Background(), plansFor("game_events"))
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrPoolTimeout)
}

func TestExecute_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := &fakePool{
		beginFn: func(ctx context.Context) error { return ctx.Err() },
	}
	e := executor.New(pool, time.Second)

	_, err := e.Execute(ctx, plansFor("game_events"))
	require.Error(t, err)
	// Caller cancellation is not a pool timeout.
	assert.NotErrorIs(t, err, executor.ErrPoolTimeout)
}

func TestExecute_SanitizesPgError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Severity: "ERROR",
		Code:     "23505",
		Message:  "duplicate key value violates unique constraint",
		Detail:   "Key (score)=(42) already exists.",
	}
	tx := &fakeTx{execErr: pgErr}
	e := executor.New(&fakePool{tx: tx}, time.Second)

	_, err := e.Execute(context.Background(), plansFor("game_events"))
	require.Error(t, err)

	// The detail line repeats parameter values and must never surface.
	assert.NotContains(t, err.Error(), "42")
	assert.Contains(t, err.Error(), "SQLSTATE 23505")
	assert.Contains(t, err.Error(), "duplicate key")
}
