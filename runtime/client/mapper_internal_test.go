package client

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/dialect"
)

const familyYAML = `
name: family
dbEntities:
  - name: CHILD
    attributes:
      - {name: ID, type: BIGINT, primaryKey: true, generated: true}
      - {name: PARENT_ID, type: BIGINT}
    relationships:
      - {name: toParent, target: PARENT, joins: [{source: PARENT_ID, target: ID}]}
  - name: PARENT
    attributes:
      - {name: ID, type: BIGINT, primaryKey: true, generated: true}
objEntities:
  - name: Child
    dbEntity: CHILD
    relationships:
      - {name: toParent, target: Parent, dbPath: toParent}
  - name: Parent
    dbEntity: PARENT
`

type sample struct {
	Record
	Title   string `db:"paintingTitle"`
	Price   float64
	Count   int
	Note    *string
	private string
}

func TestFindFieldByName(t *testing.T) {
	typ := reflect.TypeOf(sample{})

	f, ok := findFieldByName(typ, "paintingTitle")
	require.True(t, ok)
	assert.Equal(t, "Title", f.Name)

	f, ok = findFieldByName(typ, "price")
	require.True(t, ok)
	assert.Equal(t, "Price", f.Name)

	_, ok = findFieldByName(typ, "title")
	assert.False(t, ok, "tagged fields match by tag only")
	_, ok = findFieldByName(typ, "private")
	assert.False(t, ok)
}

func TestFieldAccessorSet(t *testing.T) {
	s := &sample{}
	field := func(name string) fieldAccessor {
		f, ok := findFieldByName(reflect.TypeOf(sample{}), name)
		require.True(t, ok, name)
		return fieldAccessor{index: f.Index, name: f.Name}
	}

	require.NoError(t, field("count").Set(s, int64(7)))
	assert.Equal(t, 7, s.Count)

	require.NoError(t, field("note").Set(s, "hello"))
	require.NotNil(t, s.Note)
	assert.Equal(t, "hello", *s.Note)

	require.NoError(t, field("note").Set(s, nil))
	assert.Nil(t, s.Note)

	err := field("paintingTitle").Set(s, int64(65))
	assert.ErrorIs(t, err, meta.ErrAccessor, "integers never convert to strings")

	_, err = field("price").Get(sample{})
	assert.ErrorIs(t, err, meta.ErrAccessor)

	v, err := field("paintingTitle").Get(&sample{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestSavepointSQL(t *testing.T) {
	create, rollback, release := savepointSQL(dialect.NewPostgres(nil), "sp_1")
	assert.Equal(t, "SAVEPOINT sp_1", create)
	assert.Equal(t, "ROLLBACK TO SAVEPOINT sp_1", rollback)
	assert.Equal(t, "RELEASE SAVEPOINT sp_1", release)

	create, rollback, release = savepointSQL(dialect.NewSQLServer(nil), "sp_2")
	assert.Equal(t, "SAVE TRANSACTION sp_2", create)
	assert.Equal(t, "ROLLBACK TRANSACTION sp_2", rollback)
	assert.Empty(t, release)
}

func TestPlanOrdersByForeignKeys(t *testing.T) {
	m, err := meta.Load(strings.NewReader(familyYAML))
	require.NoError(t, err)
	r, err := meta.NewEntityResolver(m)
	require.NoError(t, err)
	c := New(nil, dialect.NewSQLite(nil), r)

	child := meta.NewDataObject("Child")
	child.SetPersistenceState(meta.New)
	parent := meta.NewDataObject("Parent")
	parent.SetPersistenceState(meta.New)
	goneChild := meta.NewDataObject("Child")
	goneChild.SetObjectID(meta.ObjectID{Entity: "Child", Columns: []string{"ID"}, Values: []any{int64(1)}})
	goneChild.SetPersistenceState(meta.Deleted)
	goneParent := meta.NewDataObject("Parent")
	goneParent.SetObjectID(meta.ObjectID{Entity: "Parent", Columns: []string{"ID"}, Values: []any{int64(1)}})
	goneParent.SetPersistenceState(meta.Deleted)
	committed := meta.NewDataObject("Parent")
	committed.SetPersistenceState(meta.Committed)

	ops, pending, err := c.plan([]meta.Persistent{goneParent, child, committed, goneChild, parent, child})
	require.NoError(t, err)
	require.Len(t, ops, 4)
	assert.Len(t, pending, 4)

	var got []string
	for _, op := range ops {
		got = append(got, string(op.kind.operation())+" "+op.entity.Name)
	}
	assert.Equal(t, []string{"insert Parent", "insert Child", "delete Child", "delete Parent"}, got)
}
