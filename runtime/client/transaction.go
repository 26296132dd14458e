package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/objgraph/pool"
	"github.com/satishbabariya/objgraph/query/dialect"
)

// IsolationLevel represents transaction isolation levels
type IsolationLevel int

const (
	// ReadUncommitted allows dirty reads
	ReadUncommitted IsolationLevel = iota
	// ReadCommitted prevents dirty reads (default)
	ReadCommitted
	// RepeatableRead prevents dirty reads and non-repeatable reads
	RepeatableRead
	// Serializable prevents dirty reads, non-repeatable reads, and phantom reads
	Serializable
)

// ToSQLIsolationLevel converts IsolationLevel to sql.IsolationLevel
func (level IsolationLevel) ToSQLIsolationLevel() sql.IsolationLevel {
	switch level {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Serializable:
		return sql.LevelSerializable
	default:
		return sql.LevelReadCommitted
	}
}

// NewTxOptions creates sql.TxOptions from isolation level
func NewTxOptions(isolation IsolationLevel, readOnly bool) *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: isolation.ToSQLIsolationLevel(),
		ReadOnly:  readOnly,
	}
}

// Tx is a transaction bound to one pooled connection. Selects, commits and
// Exec calls made with a context carrying it run inside it.
type Tx struct {
	client *Client
	conn   *pool.Conn
	tx     *sql.Tx
	depth  int // savepoint nesting
}

// Depth is the number of open savepoints.
func (tx *Tx) Depth() int { return tx.depth }

type txKey struct{}

// TxFromContext returns the transaction carried by ctx.
func TxFromContext(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// TransactionFunc runs inside a transaction. Its context carries the Tx.
type TransactionFunc func(ctx context.Context) error

// Transaction runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise. Called with a context that already carries a
// transaction of this client, it nests through a savepoint.
func (c *Client) Transaction(ctx context.Context, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions is Transaction with custom options. Options are
// ignored for nested transactions.
func (c *Client) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn TransactionFunc) error {
	if tx, ok := TxFromContext(ctx); ok && tx.client == c {
		return tx.nested(ctx, fn)
	}

	conn, err := c.pool.Get(ctx)
	if err != nil {
		return err
	}
	sqlTx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Tx{client: c, conn: conn, tx: sqlTx}
	finish := func() {
		conn.EndTx()
		_ = conn.Close()
	}

	// Defer rollback in case of panic
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			finish()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		rbErr := sqlTx.Rollback()
		finish()
		if rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	err = sqlTx.Commit()
	finish()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nested runs fn inside a savepoint of tx.
func (tx *Tx) nested(ctx context.Context, fn TransactionFunc) error {
	tx.depth++
	create, rollback, release := savepointSQL(tx.client.adapter, fmt.Sprintf("sp_%d", tx.depth))
	defer func() { tx.depth-- }()

	if _, err := tx.client.exec(ctx, tx.conn, create, nil); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = tx.client.exec(ctx, tx.conn, rollback, nil)
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.client.exec(ctx, tx.conn, rollback, nil); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint failed: %v)", err, rbErr)
		}
		return err
	}

	if release == "" {
		return nil
	}
	if _, err := tx.client.exec(ctx, tx.conn, release, nil); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// savepointSQL renders savepoint statements. SQL Server has no release.
func savepointSQL(a dialect.Adapter, name string) (create, rollback, release string) {
	if a.Name() == "sqlserver" {
		return "SAVE TRANSACTION " + name, "ROLLBACK TRANSACTION " + name, ""
	}
	return "SAVEPOINT " + name, "ROLLBACK TO SAVEPOINT " + name, "RELEASE SAVEPOINT " + name
}

// TransactionWithIsolation executes a transaction with a specific isolation level
func (c *Client) TransactionWithIsolation(ctx context.Context, isolation IsolationLevel, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, NewTxOptions(isolation, false), fn)
}

// ReadOnlyTransaction executes a read-only transaction
func (c *Client) ReadOnlyTransaction(ctx context.Context, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}
