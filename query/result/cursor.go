package result

import (
	"fmt"
	"io"
	"strings"
)

// Row is one cursor step: column labels and their values in select order.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of a column by label.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if strings.EqualFold(c, column) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Len is the number of columns.
func (r Row) Len() int { return len(r.Values) }

// Cursor is the tabular source a CursorIterator reads. *sql.Rows satisfies it.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// CursorOptions lists the resources closed together with the cursor.
type CursorOptions struct {
	// Statement is closed after the cursor, if set.
	Statement io.Closer
	// Connection is closed last, if set. Pooled connections return to the pool.
	Connection io.Closer
}

// CursorIterator reads raw rows from a Cursor.
type CursorIterator struct {
	lookahead[Row]
	cursor  Cursor
	opts    CursorOptions
	columns []string
	closed  bool
}

// NewCursorIterator wraps an open cursor.
func NewCursorIterator(cursor Cursor, opts CursorOptions) *CursorIterator {
	it := &CursorIterator{cursor: cursor, opts: opts}
	it.fetch = it.read
	it.skip = it.advance
	return it
}

// Columns returns the cursor's column labels.
func (it *CursorIterator) Columns() ([]string, error) {
	if it.columns == nil {
		cols, err := it.cursor.Columns()
		if err != nil {
			return nil, err
		}
		it.columns = cols
	}
	return it.columns, nil
}

func (it *CursorIterator) read() (Row, bool, error) {
	if it.closed {
		return Row{}, false, nil
	}
	cols, err := it.Columns()
	if err != nil {
		return Row{}, false, err
	}
	if !it.cursor.Next() {
		return Row{}, false, it.cursor.Err()
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.cursor.Scan(ptrs...); err != nil {
		return Row{}, false, err
	}
	return Row{Columns: cols, Values: values}, true, nil
}

func (it *CursorIterator) advance() (bool, error) {
	if it.closed {
		return false, nil
	}
	if !it.cursor.Next() {
		return false, it.cursor.Err()
	}
	return true, nil
}

// Close closes the cursor, then the statement and connection when configured,
// reporting every failure together.
func (it *CursorIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.done, it.ready = true, false

	var errs []error
	if err := it.cursor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cursor: %w", err))
	}
	if it.opts.Statement != nil {
		if err := it.opts.Statement.Close(); err != nil {
			errs = append(errs, fmt.Errorf("statement: %w", err))
		}
	}
	if it.opts.Connection != nil {
		if err := it.opts.Connection.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return &CloseError{Errs: errs}
	}
	return nil
}

// Slice iterates over rows already in memory. It is used for cached results
// and in tests.
type Slice[T any] struct {
	lookahead[T]
	rows []T
	pos  int
}

// FromSlice creates an iterator over rows.
func FromSlice[T any](rows []T) *Slice[T] {
	s := &Slice[T]{rows: rows}
	s.fetch = func() (T, bool, error) {
		var zero T
		if s.pos >= len(s.rows) {
			return zero, false, nil
		}
		v := s.rows[s.pos]
		s.pos++
		return v, true, nil
	}
	return s
}

func (s *Slice[T]) Close() error {
	s.done, s.ready = true, false
	return nil
}
