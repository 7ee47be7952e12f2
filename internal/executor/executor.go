// Package executor runs a request's insert plans inside one database
// transaction, committing only if every plan succeeds.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/attolytics/attolytics/internal/planner"
)

// ErrPoolTimeout reports that no connection could be acquired from the
// pool within the configured timeout. Callers may treat this class as
// retryable; validation failures are not.
var ErrPoolTimeout = errors.New("timed out acquiring database connection")

// Tx is the transaction surface the executor needs. *pgxpool.Pool's
// transactions satisfy it; tests substitute fakes.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool hands out transactions and answers health probes.
type Pool interface {
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
}

// Ack reports a committed batch: rows inserted per table.
type Ack struct {
	Rows map[string]int
}

// Error is an execution failure. The transaction has been rolled back;
// no rows from the request are visible.
type Error struct {
	// Table is the table whose plan failed; empty for transaction-level
	// failures (begin, commit).
	Table string

	// Positions are the request positions of the failed plan's rows.
	// A multi-row statement fails as a unit, so the database does not
	// single out one row; all candidates are reported.
	Positions []int

	// Err is the underlying failure with parameter values stripped.
	Err error
}

func (e *Error) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("insert failed: %v", e.Err)
	}
	return fmt.Sprintf("insert into %q failed: %v", e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Executor owns the bounded connection pool shared across requests.
type Executor struct {
	pool           Pool
	acquireTimeout time.Duration
}

func New(pool Pool, acquireTimeout time.Duration) *Executor {
	return &Executor{pool: pool, acquireTimeout: acquireTimeout}
}

// Ping checks database reachability for readiness probes.
func (e *Executor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

// Execute runs every plan in one transaction, in planner order. On any
// failure the whole transaction is rolled back and an *Error is
// returned; on success the transaction is committed and the ack carries
// per-table row counts. The connection returns to the pool on every
// exit path. Context cancellation aborts the in-flight transaction via
// rollback.
func (e *Executor) Execute(ctx context.Context, plans []*planner.Plan) (*Ack, error) {
	beginCtx := ctx
	if e.acquireTimeout > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, e.acquireTimeout)
		defer cancel()
	}
	tx, err := e.pool.Begin(beginCtx)
	if err != nil {
		if beginCtx.Err() != nil && ctx.Err() == nil {
			return nil, &Error{Err: fmt.Errorf("%w: %v", ErrPoolTimeout, sanitize(err))}
		}
		return nil, &Error{Err: fmt.Errorf("begin transaction: %w", sanitize(err))}
	}

	ack := &Ack{Rows: make(map[string]int, len(plans))}
	for _, plan := range plans {
		tag, err := tx.Exec(ctx, plan.SQL, plan.Args...)
		if err != nil {
			// Rollback with a fresh context so cancellation of the
			// request still aborts the transaction cleanly.
			rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = tx.Rollback(rbCtx)
			cancel()
			return nil, &Error{
				Table:     plan.Table,
				Positions: plan.Positions,
				Err:       sanitize(err),
			}
		}
		ack.Rows[plan.Table] += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		_ = tx.Rollback(rbCtx)
		cancel()
		return nil, &Error{Err: fmt.Errorf("commit: %w", sanitize(err))}
	}
	return ack, nil
}

// sanitize strips parts of a driver error that can echo parameter
// values. PgError.Detail in particular repeats offending key values
// ("Key (id)=(42) already exists"), which would leak event payloads
// into logs and error responses.
func sanitize(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	return err
}
