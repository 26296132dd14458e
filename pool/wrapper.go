package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// recoveryInterval is the minimum time between two recoveries of the same
// connection. A connection that dies again sooner is retired instead.
const recoveryInterval = time.Minute

// PhysicalConn is one dedicated database session. *sql.Conn satisfies it.
type PhysicalConn interface {
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

// Conn is a pooled connection. Close returns it to the pool. A Conn must only
// be used by the goroutine that checked it out.
type Conn struct {
	pool *Pool
	id   uint64
	raw  PhysicalConn
	tx   *sql.Tx

	createdAt    time.Time
	lastUsed     time.Time
	lastRecovery time.Time

	// checkedOut is guarded by pool.mu.
	checkedOut bool
	retired    atomic.Bool
}

// ID identifies the connection within its pool.
func (c *Conn) ID() uint64 { return c.id }

// Raw exposes the current physical connection. It changes after a recovery.
func (c *Conn) Raw() PhysicalConn { return c.raw }

// Validate runs the validation query, or a ping when none is configured.
// Any failure reports false.
func (c *Conn) Validate(ctx context.Context) bool {
	var err error
	if q := c.pool.params.ValidationQuery; q != "" {
		_, err = c.raw.ExecContext(ctx, q)
	} else {
		err = c.raw.PingContext(ctx)
	}
	if err != nil {
		c.pool.log.Debug("connection failed validation", "conn", c.id, "error", err)
		return false
	}
	return true
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	var stmt *sql.Stmt
	err := c.withRecovery(ctx, func(raw PhysicalConn) (err error) {
		stmt, err = raw.PrepareContext(ctx, query)
		return err
	})
	return stmt, err
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := c.withRecovery(ctx, func(raw PhysicalConn) (err error) {
		if c.tx != nil {
			rows, err = c.tx.QueryContext(ctx, query, args...)
		} else {
			rows, err = raw.QueryContext(ctx, query, args...)
		}
		return err
	})
	return rows, err
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := c.withRecovery(ctx, func(raw PhysicalConn) (err error) {
		if c.tx != nil {
			res, err = c.tx.ExecContext(ctx, query, args...)
		} else {
			res, err = raw.ExecContext(ctx, query, args...)
		}
		return err
	})
	return res, err
}

// QueryRowContext is not retried since *sql.Row defers its error to Scan.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}
	return c.raw.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction that stays open until committed, rolled back
// or the connection is returned. A dead connection is retired, not recovered.
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if c.tx != nil {
		return nil, errors.New("transaction already open on this connection")
	}
	tx, err := c.raw.BeginTx(ctx, opts)
	if err != nil {
		if c.pool.isConnectionError(err) {
			c.retired.Store(true)
		}
		return nil, err
	}
	c.tx = tx
	return tx, nil
}

// InTx reports whether a transaction started through BeginTx may still be open.
func (c *Conn) InTx() bool { return c.tx != nil }

// EndTx forgets the current transaction after it was committed or rolled back.
func (c *Conn) EndTx() { c.tx = nil }

// Retire makes the pool close this connection instead of reusing it.
func (c *Conn) Retire() { c.pool.Retire(c) }

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	c.pool.release(c)
	return nil
}

func (c *Conn) withRecovery(ctx context.Context, op func(PhysicalConn) error) error {
	err := op(c.raw)
	if err == nil || c.tx != nil || !c.pool.isConnectionError(err) {
		return err
	}
	if rerr := c.recover(ctx, err); rerr != nil {
		c.pool.log.Warn("connection recovery failed", "conn", c.id, "cause", err, "error", rerr)
		return err
	}
	return op(c.raw)
}

// recover swaps in a fresh physical connection from the pool factory.
func (c *Conn) recover(ctx context.Context, cause error) error {
	now := time.Now()
	if !c.lastRecovery.IsZero() && now.Sub(c.lastRecovery) < recoveryInterval {
		c.retired.Store(true)
		return fmt.Errorf("%w: last recovery %s ago", ErrRecoveryRefused, now.Sub(c.lastRecovery).Round(time.Second))
	}

	fresh, err := c.pool.factory.Connect(ctx)
	if err != nil {
		c.retired.Store(true)
		return err
	}
	if cerr := c.raw.Close(); cerr != nil {
		c.pool.log.Debug("closing dead connection", "conn", c.id, "error", cerr)
	}
	c.raw = fresh
	c.lastRecovery = now
	c.pool.recovered.Add(1)
	c.pool.log.Info("connection recovered", "conn", c.id, "cause", cause)
	return nil
}

// resetTx rolls back a transaction left open by the previous user.
func (c *Conn) resetTx() {
	if c.tx == nil {
		return
	}
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		c.pool.log.Warn("rollback of abandoned transaction failed", "conn", c.id, "error", err)
		c.retired.Store(true)
	}
	c.tx = nil
}
