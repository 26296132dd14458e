package result

import (
	"fmt"
	"strings"
)

// KeyFunc computes the identity of a row for Distinct.
type KeyFunc func(Row) (string, error)

// FullRowKey treats two rows as equal when all their values are equal.
func FullRowKey(r Row) (string, error) {
	return encodeKey(r.Values), nil
}

// PrimaryKeyKey treats two rows as equal when the named columns are equal.
func PrimaryKeyKey(columns ...string) KeyFunc {
	return func(r Row) (string, error) {
		values := make([]any, len(columns))
		for i, c := range columns {
			v, ok := r.Get(c)
			if !ok {
				return "", fmt.Errorf("distinct key column %q is not in the result", c)
			}
			values[i] = v
		}
		return encodeKey(values), nil
	}
}

func encodeKey(values []any) string {
	var sb strings.Builder
	for _, v := range values {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		fmt.Fprintf(&sb, "%T:%v\x00", v, v)
	}
	return sb.String()
}

// Distinct drops rows whose key was already seen, keeping first occurrences
// in their original order.
type Distinct struct {
	lookahead[Row]
	src  Iterator[Row]
	key  KeyFunc
	seen map[string]struct{}
}

// NewDistinct filters src by key.
func NewDistinct(src Iterator[Row], key KeyFunc) *Distinct {
	d := &Distinct{src: src, key: key, seen: make(map[string]struct{})}
	d.fetch = d.read
	return d
}

func (d *Distinct) read() (Row, bool, error) {
	for {
		r, ok, err := pullNext(d.src)
		if err != nil || !ok {
			return Row{}, false, err
		}
		k, err := d.key(r)
		if err != nil {
			return Row{}, false, err
		}
		if _, dup := d.seen[k]; dup {
			continue
		}
		d.seen[k] = struct{}{}
		return r, true, nil
	}
}

func (d *Distinct) Close() error {
	d.done, d.ready = true, false
	return d.src.Close()
}

// Limit skips offset rows up front and then returns at most limit rows.
// A non-positive limit is unlimited.
type Limit[T any] struct {
	lookahead[T]
	src      Iterator[T]
	limit    int
	returned int
}

// NewLimit discards offset rows of src immediately. Reaching the end of src
// while skipping leaves an empty result, not an error.
func NewLimit[T any](src Iterator[T], offset, limit int) *Limit[T] {
	l := &Limit[T]{src: src, limit: limit}
	l.fetch = l.read
	l.skip = l.advance

	for i := 0; i < offset; i++ {
		ok, err := skipNext(src)
		if err != nil {
			l.err, l.done = err, true
			break
		}
		if !ok {
			l.done = true
			break
		}
	}
	return l
}

func (l *Limit[T]) exhausted() bool {
	return l.limit > 0 && l.returned >= l.limit
}

func (l *Limit[T]) read() (T, bool, error) {
	var zero T
	if l.exhausted() {
		return zero, false, nil
	}
	v, ok, err := pullNext(l.src)
	if ok {
		l.returned++
	}
	return v, ok, err
}

func (l *Limit[T]) advance() (bool, error) {
	if l.exhausted() {
		return false, nil
	}
	ok, err := skipNext(l.src)
	if ok {
		l.returned++
	}
	return ok, err
}

func (l *Limit[T]) Close() error {
	l.done, l.ready = true, false
	return l.src.Close()
}

// RowReader turns one raw row into a value.
type RowReader[T any] interface {
	ReadRow(Row) (T, error)
}

// RowReaderFunc adapts a function to RowReader.
type RowReaderFunc[T any] func(Row) (T, error)

func (f RowReaderFunc[T]) ReadRow(r Row) (T, error) { return f(r) }

// Materialized applies a RowReader to each row of its source.
type Materialized[T any] struct {
	lookahead[T]
	src    Iterator[Row]
	reader RowReader[T]
}

// Materialize reads src through reader. Skipped rows are not materialized.
func Materialize[T any](src Iterator[Row], reader RowReader[T]) *Materialized[T] {
	m := &Materialized[T]{src: src, reader: reader}
	m.fetch = m.read
	m.skip = func() (bool, error) { return skipNext(m.src) }
	return m
}

func (m *Materialized[T]) read() (T, bool, error) {
	var zero T
	r, ok, err := pullNext(m.src)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := m.reader.ReadRow(r)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (m *Materialized[T]) Close() error {
	m.done, m.ready = true, false
	return m.src.Close()
}
