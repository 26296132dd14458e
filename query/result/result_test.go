package result_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/meta/metatest"
	"github.com/satishbabariya/objgraph/query/dialect"
	"github.com/satishbabariya/objgraph/query/result"
)

// fakeCursor serves fixed rows and can fail reads and closes.
type fakeCursor struct {
	columns  []string
	rows     [][]any
	pos      int
	failAt   int
	closeErr error
	closed   int
	scans    int
}

func newFakeCursor(columns []string, rows ...[]any) *fakeCursor {
	return &fakeCursor{columns: columns, rows: rows, failAt: -1}
}

func (c *fakeCursor) Columns() ([]string, error) { return c.columns, nil }

func (c *fakeCursor) Next() bool {
	if c.pos == c.failAt || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Scan(dest ...any) error {
	c.scans++
	for i, d := range dest {
		*(d.(*any)) = c.rows[c.pos-1][i]
	}
	return nil
}

func (c *fakeCursor) Err() error {
	if c.pos == c.failAt {
		return errors.New("connection reset by peer")
	}
	return nil
}

func (c *fakeCursor) Close() error {
	c.closed++
	return c.closeErr
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func idRows(ids ...string) *result.Slice[result.Row] {
	rows := make([]result.Row, len(ids))
	for i, id := range ids {
		rows[i] = result.Row{Columns: []string{"ID", "SEQ"}, Values: []any{id, i}}
	}
	return result.FromSlice(rows)
}

func ids(t *testing.T, rows []result.Row) []string {
	t.Helper()
	out := make([]string, len(rows))
	for i, r := range rows {
		v, ok := r.Get("ID")
		require.True(t, ok)
		out[i] = v.(string)
	}
	return out
}

func TestDistinctKeepsFirstOccurrences(t *testing.T) {
	it := result.NewDistinct(idRows("A", "A", "B", "A", "C"), result.PrimaryKeyKey("ID"))
	rows, err := it.AllRows()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ids(t, rows))

	seq, _ := rows[1].Get("SEQ")
	assert.Equal(t, 2, seq, "B keeps its original position")
	require.NoError(t, it.Close())
}

func TestDistinctFullRowKey(t *testing.T) {
	rows := []result.Row{
		{Columns: []string{"A", "B"}, Values: []any{1, "x"}},
		{Columns: []string{"A", "B"}, Values: []any{1, []byte("x")}},
		{Columns: []string{"A", "B"}, Values: []any{1, "y"}},
		{Columns: []string{"A", "B"}, Values: []any{int64(1), "x"}},
	}
	out, err := result.NewDistinct(result.FromSlice(rows), result.FullRowKey).AllRows()
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestDistinctMissingKeyColumn(t *testing.T) {
	it := result.NewDistinct(idRows("A"), result.PrimaryKeyKey("NOPE"))
	require.True(t, it.HasNextRow())
	_, err := it.NextRow()
	var readErr *result.ReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestLimitWindow(t *testing.T) {
	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("r%02d", i+1)
	}
	src := idRows(names...)
	it := result.NewLimit[result.Row](src, 5, 7)

	var got []string
	for i := 0; i < 7; i++ {
		require.True(t, it.HasNextRow())
		r, err := it.NextRow()
		require.NoError(t, err)
		v, _ := r.Get("ID")
		got = append(got, v.(string))
	}
	assert.Equal(t, []string{"r06", "r07", "r08", "r09", "r10", "r11", "r12"}, got)
	assert.False(t, it.HasNextRow())
	assert.True(t, src.HasNextRow(), "upstream still has rows")

	_, err := it.NextRow()
	assert.ErrorIs(t, err, result.ErrNoMoreRows)
}

func TestLimitEdgeCases(t *testing.T) {
	t.Run("offset past end", func(t *testing.T) {
		rows, err := result.NewLimit[result.Row](idRows("A", "B"), 5, 0).AllRows()
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
	t.Run("unlimited", func(t *testing.T) {
		rows, err := result.NewLimit[result.Row](idRows("A", "B", "C"), 1, 0).AllRows()
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C"}, ids(t, rows))
	})
	t.Run("skip counts toward the limit", func(t *testing.T) {
		it := result.NewLimit[result.Row](idRows("A", "B", "C"), 0, 2)
		require.NoError(t, it.SkipRow())
		rows, err := it.AllRows()
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, ids(t, rows))
	})
}

func TestCursorIteratorReadsLazily(t *testing.T) {
	cur := newFakeCursor([]string{"ARTIST_ID", "ARTIST_NAME"},
		[]any{int64(1), "Dali"}, []any{int64(2), "Picasso"}, []any{int64(3), "Miro"})
	it := result.NewCursorIterator(cur, result.CursorOptions{})

	assert.Equal(t, 0, cur.pos, "nothing read before the first call")
	require.True(t, it.HasNextRow())
	require.True(t, it.HasNextRow())
	assert.Equal(t, 1, cur.pos, "HasNextRow prefetches a single row")

	r, err := it.NextRow()
	require.NoError(t, err)
	name, ok := r.Get("artist_name")
	require.True(t, ok)
	assert.Equal(t, "Dali", name)

	require.NoError(t, it.SkipRow())
	assert.Equal(t, 1, cur.scans, "skipped row is not scanned")

	rest, err := it.AllRows()
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, []any{int64(3), "Miro"}, rest[0].Values)

	_, err = it.NextRow()
	assert.ErrorIs(t, err, result.ErrNoMoreRows)
	assert.ErrorIs(t, it.SkipRow(), result.ErrNoMoreRows)
}

func TestCursorIteratorWrapsReadErrors(t *testing.T) {
	cur := newFakeCursor([]string{"A"}, []any{1}, []any{2})
	cur.failAt = 1
	it := result.NewCursorIterator(cur, result.CursorOptions{})

	rows, err := it.AllRows()
	assert.Len(t, rows, 1)
	var readErr *result.ReadError
	require.ErrorAs(t, err, &readErr)
	assert.ErrorContains(t, err, "connection reset by peer")
	assert.False(t, it.HasNextRow())
}

func TestCursorIteratorCloseCollectsAllFailures(t *testing.T) {
	cur := newFakeCursor([]string{"A"})
	cur.closeErr = errors.New("cursor gone")
	stmtClosed, connClosed := 0, 0
	it := result.NewCursorIterator(cur, result.CursorOptions{
		Statement:  closerFunc(func() error { stmtClosed++; return errors.New("statement gone") }),
		Connection: closerFunc(func() error { connClosed++; return nil }),
	})

	err := it.Close()
	var closeErr *result.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Len(t, closeErr.Errs, 2)
	assert.ErrorContains(t, err, "cursor gone")
	assert.ErrorContains(t, err, "statement gone")
	assert.Equal(t, 1, connClosed, "connection is closed even after earlier failures")

	require.NoError(t, it.Close())
	assert.Equal(t, 1, cur.closed)
	assert.Equal(t, 1, stmtClosed)
}

func TestDecoratorsCloseTheirSource(t *testing.T) {
	cur := newFakeCursor([]string{"ID"}, []any{"A"}, []any{"A"}, []any{"B"})
	chain := result.NewLimit[result.Row](result.NewDistinct(result.NewCursorIterator(cur, result.CursorOptions{}), result.FullRowKey), 0, 1)

	rows, err := chain.AllRows()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	require.NoError(t, chain.Close())
	assert.Equal(t, 1, cur.closed)
}

func gallerySegment(t *testing.T, entity string, columns ...string) result.Segment {
	t.Helper()
	r := metatest.Gallery(t)
	e := r.ObjEntity(entity)
	require.NotNil(t, e)
	seg := result.Segment{Kind: result.SegmentEntity, Entity: e}
	for _, c := range columns {
		col := result.Column{Label: c, DbAttr: e.DbEntity().Attribute(c)}
		require.NotNil(t, col.DbAttr, c)
		for _, a := range e.AllAttributes() {
			if a.DbAttribute() == col.DbAttr {
				col.ObjAttr = a
			}
		}
		for _, sub := range e.SubEntities() {
			for _, a := range sub.AllAttributes() {
				if a.DbAttribute() == col.DbAttr {
					col.ObjAttr = a
				}
			}
		}
		seg.Columns = append(seg.Columns, col)
	}
	return seg
}

func TestEntityReader(t *testing.T) {
	seg := gallerySegment(t, "Artist", "ARTIST_ID", "ARTIST_NAME")
	cur := newFakeCursor([]string{"ARTIST_ID", "ARTIST_NAME"}, []any{int64(7), []byte("Dali")})
	it := result.Materialize[any](result.NewCursorIterator(cur, result.CursorOptions{}), result.NewEntityReader(seg, dialect.NewSQLite(nil)))

	objs, err := it.AllRows()
	require.NoError(t, err)
	require.Len(t, objs, 1)

	artist := objs[0].(*meta.DataObject)
	assert.Equal(t, "Artist", artist.EntityName())
	assert.Equal(t, "Dali", artist.Get("artistName"))
	assert.Equal(t, meta.Committed, artist.PersistenceState())
	assert.Equal(t, "Artist<ARTIST_ID=7>", artist.ObjectID().String())
}

type customer struct {
	Name string
}

func TestEntityReaderUsesRegisteredAccessors(t *testing.T) {
	seg := gallerySegment(t, "Customer", "PERSON_ID", "NAME", "PERSON_TYPE")
	seg.Entity.Factory = func() any { return &customer{} }
	seg.Entity.SetAccessor("name", meta.FieldAccessor[*customer, string]{
		Getter: func(c *customer) string { return c.Name },
		Setter: func(c *customer, v string) { c.Name = v },
	})

	v, err := result.NewEntityReader(seg, dialect.NewSQLite(nil)).ReadRow(result.Row{
		Columns: []string{"PERSON_ID", "NAME", "PERSON_TYPE"},
		Values:  []any{int64(1), "Ada", "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", v.(*customer).Name)
}

func TestInheritanceReaderDispatchesOnDiscriminator(t *testing.T) {
	seg := gallerySegment(t, "AbstractPerson", "PERSON_ID", "NAME", "PERSON_TYPE", "SALARY")
	rd, err := result.SelectReader(result.Shape{Segments: []result.Segment{seg}}, dialect.NewSQLite(nil))
	require.NoError(t, err)
	require.IsType(t, &result.InheritanceReader{}, rd)

	cols := []string{"PERSON_ID", "NAME", "PERSON_TYPE", "SALARY"}
	cur := newFakeCursor(cols,
		[]any{int64(1), "Ann", "E", 50000.0},
		[]any{int64(2), "Bob", "M", 90000.0},
		[]any{int64(3), "Cyd", "C", nil},
		[]any{int64(4), "Dee", "X", nil},
	)
	it := result.Materialize(result.NewCursorIterator(cur, result.CursorOptions{}), rd)

	objs, err := it.AllRows()
	require.Len(t, objs, 3)
	assert.Equal(t, "Employee", objs[0].(*meta.DataObject).EntityName())
	assert.Equal(t, 50000.0, objs[0].(*meta.DataObject).Get("salary"))
	assert.Equal(t, "Manager", objs[1].(*meta.DataObject).EntityName())
	assert.Equal(t, 90000.0, objs[1].(*meta.DataObject).Get("salary"))
	cust := objs[2].(*meta.DataObject)
	assert.Equal(t, "Customer", cust.EntityName())
	assert.Nil(t, cust.Get("salary"), "sibling attributes are not set")

	var mapErr *result.MappingError
	require.ErrorAs(t, err, &mapErr)
	assert.Equal(t, "AbstractPerson", mapErr.Entity)
	assert.Equal(t, "X", mapErr.Value)
	var readErr *result.ReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestInheritanceReaderRequiresDiscriminatorColumn(t *testing.T) {
	seg := gallerySegment(t, "AbstractPerson", "PERSON_ID", "NAME")
	_, err := result.NewInheritanceReader(seg, nil)
	var mapErr *result.MappingError
	assert.ErrorAs(t, err, &mapErr)
}

func TestScalarAndCompoundReaders(t *testing.T) {
	artist := gallerySegment(t, "Artist", "ARTIST_ID", "ARTIST_NAME")
	count := result.Segment{Kind: result.SegmentScalar, Offset: 2, Columns: []result.Column{{Label: "C"}}}
	shape := result.Shape{Segments: []result.Segment{artist, count}}
	assert.Equal(t, 3, shape.Width())

	rd, err := result.SelectReader(shape, dialect.NewSQLite(nil))
	require.NoError(t, err)
	v, err := rd.ReadRow(result.Row{Columns: []string{"ARTIST_ID", "ARTIST_NAME", "C"}, Values: []any{int64(1), "Dali", int64(4)}})
	require.NoError(t, err)

	parts := v.([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "Dali", parts[0].(*meta.DataObject).Get("artistName"))
	assert.Equal(t, int64(4), parts[1])

	single, err := result.SelectReader(result.Shape{Segments: []result.Segment{{Kind: result.SegmentScalar}}}, nil)
	require.NoError(t, err)
	v, err = single.ReadRow(result.Row{Values: []any{[]byte("text")}})
	require.NoError(t, err)
	assert.Equal(t, "text", v)

	_, err = result.SelectReader(result.Shape{}, nil)
	assert.Error(t, err)
}
