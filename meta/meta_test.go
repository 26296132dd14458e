package meta_test

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/meta/metatest"
)

func TestResolverLinksRelationships(t *testing.T) {
	r := metatest.Gallery(t)

	painting := r.ObjEntity("Painting")
	require.NotNil(t, painting)
	assert.Equal(t, "PAINTING", painting.DbEntity().Name)

	toArtist := painting.Relationship("toArtist")
	require.NotNil(t, toArtist)
	assert.False(t, toArtist.IsToMany())
	assert.False(t, toArtist.IsFlattened())
	assert.Same(t, r.ObjEntity("Artist"), toArtist.Target())

	exhibits := r.ObjEntity("Artist").Relationship("exhibitArray")
	require.NotNil(t, exhibits)
	assert.True(t, exhibits.IsFlattened())
	assert.True(t, exhibits.IsToMany())
	require.Len(t, exhibits.DbRelationships(), 2)
	assert.Equal(t, "artistExhibitArray", exhibits.DbRelationships()[0].Name)
	assert.Equal(t, "toExhibit", exhibits.DbRelationships()[1].Name)
}

func TestDbRelationshipJoinSemantics(t *testing.T) {
	r := metatest.Gallery(t)
	painting := r.DbEntity("PAINTING")

	// nullable FK
	toArtist := painting.Relationship("toArtist")
	assert.True(t, toArtist.IsToPK())
	assert.True(t, toArtist.IsOptional())
	assert.True(t, toArtist.NeedsOuterJoin())

	// mandatory FK
	toGallery := painting.Relationship("toGallery")
	assert.True(t, toGallery.IsToPK())
	assert.False(t, toGallery.NeedsOuterJoin())

	assert.True(t, painting.Relationship("toPaintingInfo").NeedsOuterJoin())
	assert.True(t, r.DbEntity("ARTIST").Relationship("paintingArray").NeedsOuterJoin())
}

func TestFlattenedAttribute(t *testing.T) {
	r := metatest.Gallery(t)
	attr := r.ObjEntity("Painting").Attribute("artistName")
	require.NotNil(t, attr)
	assert.True(t, attr.IsFlattened())
	assert.Equal(t, "ARTIST_NAME", attr.DbAttribute().Name)
	assert.Equal(t, "ARTIST", attr.DbAttribute().Entity().Name)
	require.Len(t, attr.DbRelationships(), 1)
}

func TestInheritance(t *testing.T) {
	r := metatest.Gallery(t)
	root := r.ObjEntity("AbstractPerson")
	manager := r.ObjEntity("Manager")

	assert.True(t, root.IsInheritanceRoot())
	assert.Len(t, root.SubEntities(), 2)
	assert.Equal(t, "PERSON_TYPE", manager.DiscriminatorColumn())
	assert.NotNil(t, manager.Attribute("salary"))
	assert.NotNil(t, manager.Attribute("name"))

	names := []string{}
	for _, a := range manager.AllAttributes() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"name", "salary"}, names)
}

func TestResolverRejectsBrokenMappings(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{
			name: "unknown table",
			yaml: `
name: broken
objEntities:
  - {name: A, dbEntity: MISSING}
`,
			err: meta.ErrUnknownEntity,
		},
		{
			name: "unknown relationship hop",
			yaml: `
name: broken
dbEntities:
  - name: A
    attributes: [{name: ID, type: INT, primaryKey: true}]
objEntities:
  - name: A
    dbEntity: A
    relationships: [{name: r, target: A, dbPath: nope}]
`,
			err: meta.ErrUnknownRelationship,
		},
		{
			name: "unknown column",
			yaml: `
name: broken
dbEntities:
  - name: A
    attributes: [{name: ID, type: INT, primaryKey: true}]
objEntities:
  - name: A
    dbEntity: A
    attributes: [{name: x, dbPath: NOPE}]
`,
			err: meta.ErrUnknownAttribute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := meta.Load(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			_, err = meta.NewEntityResolver(m)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLoadParsesTypeAliases(t *testing.T) {
	m, err := meta.Load(strings.NewReader(`
name: types
dbEntities:
  - name: T
    attributes:
      - {name: A, type: int}
      - {name: B, type: text}
      - {name: C, type: datetime}
`))
	require.NoError(t, err)
	attrs := m.DbEntities[0].Attributes
	assert.Equal(t, meta.TypeInteger, attrs[0].Type)
	assert.Equal(t, meta.TypeClob, attrs[1].Type)
	assert.Equal(t, meta.TypeTimestamp, attrs[2].Type)
}

func TestLoadResolverFromFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/maps/gallery.yaml", []byte(metatest.GalleryYAML), 0o644))

	r, err := meta.LoadResolver(fs, "/maps/gallery.yaml")
	require.NoError(t, err)
	assert.Len(t, r.ObjEntities(), 10)

	_, err = meta.LoadResolver(fs, "/maps/missing.yaml")
	require.Error(t, err)
}

type artist struct {
	name string
}

func TestAccessors(t *testing.T) {
	r := metatest.Gallery(t)
	entity := r.ObjEntity("Artist")

	obj := entity.NewObject()
	require.IsType(t, &meta.DataObject{}, obj)
	require.NoError(t, entity.Accessor("artistName").Set(obj, "Monet"))
	v, err := entity.Accessor("artistName").Get(obj)
	require.NoError(t, err)
	assert.Equal(t, "Monet", v)

	entity.Factory = func() any { return &artist{} }
	entity.SetAccessor("artistName", meta.FieldAccessor[*artist, string]{
		Getter: func(a *artist) string { return a.name },
		Setter: func(a *artist, v string) { a.name = v },
	})
	typed := entity.NewObject()
	require.NoError(t, entity.Accessor("artistName").Set(typed, "Dali"))
	assert.Equal(t, "Dali", typed.(*artist).name)

	err = entity.Accessor("artistName").Set(typed, 42)
	require.ErrorIs(t, err, meta.ErrAccessor)
	_, err = entity.Accessor("artistName").Get(&meta.DataObject{})
	require.ErrorIs(t, err, meta.ErrAccessor)
}

func TestDataObjectStateTracking(t *testing.T) {
	obj := meta.NewDataObject("Artist")
	obj.Set("artistName", "A")
	assert.Equal(t, meta.Transient, obj.PersistenceState())
	assert.Empty(t, obj.Changes())

	obj.SetPersistenceState(meta.Committed)
	obj.Set("artistName", "B")
	assert.Equal(t, meta.Modified, obj.PersistenceState())
	assert.Equal(t, map[string]any{"artistName": "B"}, obj.Changes())

	obj.SetPersistenceState(meta.Committed)
	assert.Empty(t, obj.Changes())
}

func TestObjectIDString(t *testing.T) {
	id := meta.ObjectID{Entity: "ArtistExhibit", Columns: []string{"ARTIST_ID", "EXHIBIT_ID"}, Values: []any{int64(1), int64(2)}}
	assert.Equal(t, "ArtistExhibit<ARTIST_ID=1,EXHIBIT_ID=2>", id.String())
	v, ok := id.Value("EXHIBIT_ID")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
	assert.True(t, meta.ObjectID{Entity: "A"}.IsTemporary())
}
