// Package result turns database cursors into lazily materialized sequences.
// Iterators compose as decorators: a cursor iterator yields raw rows, Distinct
// and Limit filter them, and Materialize applies a RowReader. None of them is
// safe for concurrent use.
package result

import "errors"

// Iterator is a forward-only, single-pass sequence with one row of lookahead.
type Iterator[T any] interface {
	// HasNextRow reports whether NextRow will return a row or a pending
	// read error. It prefetches at most one row.
	HasNextRow() bool
	// NextRow consumes the next row. It returns ErrNoMoreRows when nothing
	// is pending and a *ReadError when reading failed.
	NextRow() (T, error)
	// SkipRow consumes the next row without materializing it.
	SkipRow() error
	// AllRows drains the remaining rows.
	AllRows() ([]T, error)
	// Close releases underlying resources. It is idempotent.
	Close() error
}

// lookahead implements the shared one-row-ahead state machine. fetch returns
// the next row or ok=false at the end; skip defaults to fetch-and-discard.
type lookahead[T any] struct {
	fetch func() (T, bool, error)
	skip  func() (bool, error)

	next  T
	ready bool
	err   error
	done  bool
}

func (l *lookahead[T]) HasNextRow() bool {
	if l.ready || l.err != nil {
		return true
	}
	if l.done {
		return false
	}
	v, ok, err := l.fetch()
	switch {
	case err != nil:
		l.err, l.done = err, true
		return true
	case !ok:
		l.done = true
		return false
	}
	l.next, l.ready = v, true
	return true
}

func (l *lookahead[T]) NextRow() (T, error) {
	var zero T
	if !l.HasNextRow() {
		return zero, ErrNoMoreRows
	}
	if l.err != nil {
		err := l.err
		l.err = nil
		return zero, wrapRead(err)
	}
	v := l.next
	l.next, l.ready = zero, false
	return v, nil
}

func (l *lookahead[T]) SkipRow() error {
	var zero T
	switch {
	case l.ready:
		l.next, l.ready = zero, false
		return nil
	case l.err != nil:
		err := l.err
		l.err = nil
		return wrapRead(err)
	case l.done:
		return ErrNoMoreRows
	}

	var (
		ok  bool
		err error
	)
	if l.skip != nil {
		ok, err = l.skip()
	} else {
		_, ok, err = l.fetch()
	}
	switch {
	case err != nil:
		l.done = true
		return wrapRead(err)
	case !ok:
		l.done = true
		return ErrNoMoreRows
	}
	return nil
}

func (l *lookahead[T]) AllRows() ([]T, error) {
	var out []T
	for l.HasNextRow() {
		v, err := l.NextRow()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// pullNext reads one row from src, mapping the end of the stream to ok=false.
func pullNext[T any](src Iterator[T]) (T, bool, error) {
	var zero T
	if !src.HasNextRow() {
		return zero, false, nil
	}
	v, err := src.NextRow()
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// skipNext advances src by one row without materializing it.
func skipNext[T any](src Iterator[T]) (bool, error) {
	err := src.SkipRow()
	if errors.Is(err, ErrNoMoreRows) {
		return false, nil
	}
	return err == nil, err
}
