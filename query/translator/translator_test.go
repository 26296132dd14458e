package translator_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/meta/metatest"
	"github.com/satishbabariya/objgraph/query/dialect"
	"github.com/satishbabariya/objgraph/query/exp"
	"github.com/satishbabariya/objgraph/query/result"
	"github.com/satishbabariya/objgraph/query/translator"
)

func qualifier(t *testing.T, a dialect.Adapter, entity *meta.ObjEntity) (*translator.Context, *translator.QualifierTranslator) {
	t.Helper()
	ctx := translator.NewContext(a)
	require.Equal(t, "t0", ctx.AddRoot("a", entity))
	return ctx, translator.NewQualifierTranslator(ctx, "a")
}

func committed(entity, column string, v any) *meta.DataObject {
	o := meta.NewDataObject(entity)
	o.SetObjectID(meta.ObjectID{Entity: entity, Columns: []string{column}, Values: []any{v}})
	o.SetPersistenceState(meta.Committed)
	return o
}

func TestJoinReuse(t *testing.T) {
	r := metatest.Gallery(t)
	ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Artist"))

	sql, err := q.Translate(exp.And(
		exp.Eq(exp.Path("paintingArray.paintingTitle"), exp.Val("Sunflowers")),
		exp.Binary(exp.KindGreater, exp.Path("paintingArray.estimatedPrice"), exp.Val(100)),
	))
	require.NoError(t, err)

	assert.Equal(t, `t1."PAINTING_TITLE" = $1 AND t1."ESTIMATED_PRICE" > $2`, sql)
	assert.Equal(t, []any{"Sunflowers", 100}, ctx.Args())
	require.Len(t, ctx.Joins(), 1)
	assert.Equal(t, "t1", ctx.Joins()[0].Alias)
	assert.True(t, ctx.JoinsToMany())

	from, err := ctx.From()
	require.NoError(t, err)
	assert.Equal(t, `"ARTIST" t0 LEFT JOIN "PAINTING" t1 ON t0."ARTIST_ID" = t1."ARTIST_ID"`, from)
}

func TestJoinTypes(t *testing.T) {
	r := metatest.Gallery(t)
	painting := r.ObjEntity("Painting")

	tests := []struct {
		name string
		path string
		want translator.JoinType
	}{
		{"mandatory to-one", "toGallery.galleryName", translator.JoinInner},
		{"optional to-one", "toArtist.artistName", translator.JoinLeftOuter},
		{"forced outer", "toGallery+.galleryName", translator.JoinLeftOuter},
		{"dependent key", "toPaintingInfo.textReview", translator.JoinLeftOuter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, q := qualifier(t, dialect.NewPostgres(nil), painting)
			_, err := q.Translate(exp.Eq(exp.Path(tt.path), exp.Val("x")))
			require.NoError(t, err)
			require.Len(t, ctx.Joins(), 1)
			assert.Equal(t, tt.want, ctx.Joins()[0].Type)
		})
	}
}

func TestJoinWidenedToOuter(t *testing.T) {
	r := metatest.Gallery(t)
	ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Painting"))

	sql, err := q.Translate(exp.Or(
		exp.Eq(exp.Path("toGallery.galleryName"), exp.Val("Tate")),
		exp.Eq(exp.Path("toGallery+.galleryName"), exp.Val(nil)),
	))
	require.NoError(t, err)

	assert.Equal(t, `t1."GALLERY_NAME" = $1 OR t1."GALLERY_NAME" IS NULL`, sql)
	require.Len(t, ctx.Joins(), 1)
	assert.Equal(t, translator.JoinLeftOuter, ctx.Joins()[0].Type)
}

func TestObjectAndDbPathsShareJoins(t *testing.T) {
	r := metatest.Gallery(t)
	ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Painting"))

	sql, err := q.Translate(exp.And(
		exp.Eq(exp.Path("toArtist.artistName"), exp.Val("Monet")),
		exp.Binary(exp.KindNotEqual, exp.DbPath("toArtist.ARTIST_NAME"), exp.Val("Manet")),
	))
	require.NoError(t, err)
	assert.Equal(t, `t1."ARTIST_NAME" = $1 AND t1."ARTIST_NAME" <> $2`, sql)
	assert.Len(t, ctx.Joins(), 1)
}

func TestRelationshipMatching(t *testing.T) {
	r := metatest.Gallery(t)

	t.Run("foreign key on source", func(t *testing.T) {
		ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Painting"))
		sql, err := q.Translate(exp.Eq(exp.Path("toArtist"), exp.Val(committed("Artist", "ARTIST_ID", int64(5)))))
		require.NoError(t, err)
		assert.Equal(t, `t0."ARTIST_ID" = $1`, sql)
		assert.Equal(t, []any{int64(5)}, ctx.Args())
		assert.Empty(t, ctx.Joins())
	})

	t.Run("null relationship", func(t *testing.T) {
		ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Painting"))
		sql, err := q.Translate(exp.Eq(exp.Path("toArtist"), exp.Val(nil)))
		require.NoError(t, err)
		assert.Equal(t, `t0."ARTIST_ID" IS NULL`, sql)
		assert.Empty(t, ctx.Args())
	})

	t.Run("to-many matches target key", func(t *testing.T) {
		ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Artist"))
		sql, err := q.Translate(exp.Eq(exp.Path("paintingArray"), exp.Val(committed("Painting", "PAINTING_ID", int64(9)))))
		require.NoError(t, err)
		assert.Equal(t, `t1."PAINTING_ID" = $1`, sql)
		assert.Equal(t, []any{int64(9)}, ctx.Args())
	})

	t.Run("object id value", func(t *testing.T) {
		_, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Painting"))
		_, err := q.Translate(exp.Eq(exp.Path("toArtist"), exp.Val(meta.ObjectID{Entity: "Artist"})))
		assert.ErrorContains(t, err, "unsaved object Artist")
	})

	t.Run("identification variable", func(t *testing.T) {
		ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Artist"))
		sql, err := q.Translate(exp.In(exp.Path(""), exp.Val(int64(1)), exp.Val(int64(2))))
		require.NoError(t, err)
		assert.Equal(t, `t0."ARTIST_ID" IN ($1, $2)`, sql)
		assert.Equal(t, []any{int64(1), int64(2)}, ctx.Args())
	})
}

func TestFlattenedRelationship(t *testing.T) {
	r := metatest.Gallery(t)
	ctx, q := qualifier(t, dialect.NewPostgres(nil), r.ObjEntity("Artist"))

	sql, err := q.Translate(exp.And(
		exp.Eq(exp.Path("exhibitArray"), exp.Val(committed("Exhibit", "EXHIBIT_ID", int64(3)))),
		exp.Binary(exp.KindGreater, exp.Path("exhibitArray.openingDate"), exp.Val("2020-01-01")),
	))
	require.NoError(t, err)

	assert.Equal(t, `t1."EXHIBIT_ID" = $1 AND t2."OPENING_DATE" > $2`, sql)
	from, err := ctx.From()
	require.NoError(t, err)
	assert.Equal(t, `"ARTIST" t0 LEFT JOIN "ARTIST_EXHIBIT" t1 ON t0."ARTIST_ID" = t1."ARTIST_ID"`+
		` JOIN "EXHIBIT" t2 ON t1."EXHIBIT_ID" = t2."EXHIBIT_ID"`, from)
}

func TestCompositeKeys(t *testing.T) {
	r := metatest.Gallery(t)

	t.Run("identification variable", func(t *testing.T) {
		ctx := translator.NewContext(dialect.NewPostgres(nil))
		ctx.AddRoot("ae", r.ObjEntity("ArtistExhibit"))
		_, err := translator.NewPathTranslator(ctx).Translate("ae")

		var terr *translator.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "multi-column PK to-many matches are not yet supported", terr.Msg)
		assert.Equal(t, "ArtistExhibit", terr.Entity)
	})

	t.Run("to-many", func(t *testing.T) {
		ctx := translator.NewContext(dialect.NewPostgres(nil))
		ctx.AddRoot("e", r.ObjEntity("Exhibit"))
		_, err := translator.NewPathTranslator(ctx).Translate("e.artistExhibitArray")
		assert.ErrorContains(t, err, "multi-column PK to-many matches are not yet supported")
	})

	t.Run("to-one expands per column", func(t *testing.T) {
		orders := loadOrders(t)
		ctx, q := qualifier(t, dialect.NewPostgres(nil), orders.ObjEntity("Shipment"))

		sql, err := q.Translate(exp.Eq(exp.Path("toLine"), exp.Val(map[string]any{"ORDER_ID": int64(1), "LINE_NO": 2})))
		require.NoError(t, err)
		assert.Equal(t, `(t0."ORDER_ID" = $1 AND t0."LINE_NO" = $2)`, sql)
		assert.Equal(t, []any{int64(1), 2}, ctx.Args())

		sql, err = q.Translate(exp.Binary(exp.KindNotEqual, exp.Path("toLine"), exp.Val(nil)))
		require.NoError(t, err)
		assert.Equal(t, `(t0."ORDER_ID" IS NOT NULL OR t0."LINE_NO" IS NOT NULL)`, sql)

		_, err = q.Translate(exp.Binary(exp.KindLess, exp.Path("toLine"), exp.Val(1)))
		assert.ErrorContains(t, err, "supports only = and <>")
	})

	t.Run("to-one rejects a plain scalar", func(t *testing.T) {
		orders := loadOrders(t)
		_, q := qualifier(t, dialect.NewPostgres(nil), orders.ObjEntity("Shipment"))

		_, err := q.Translate(exp.Eq(exp.Path("toLine"), exp.Val(5)))
		var terr *translator.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "a compound key must be matched by an object, ObjectID or key map", terr.Msg)

		_, err = q.Translate(exp.In(exp.Path("toLine"), exp.Val(5), exp.Val(6)))
		assert.ErrorContains(t, err, "compound key")
	})
}

const ordersYAML = `
name: orders
dbEntities:
  - name: ORDER_LINE
    attributes:
      - {name: ORDER_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: LINE_NO, type: INTEGER, primaryKey: true, mandatory: true}
  - name: SHIPMENT
    attributes:
      - {name: SHIPMENT_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: ORDER_ID, type: BIGINT, mandatory: true}
      - {name: LINE_NO, type: INTEGER, mandatory: true}
    relationships:
      - name: toLine
        target: ORDER_LINE
        joins: [{source: ORDER_ID, target: ORDER_ID}, {source: LINE_NO, target: LINE_NO}]
objEntities:
  - name: OrderLine
    dbEntity: ORDER_LINE
  - name: Shipment
    dbEntity: SHIPMENT
    relationships:
      - {name: toLine, target: OrderLine, dbPath: toLine}
`

func loadOrders(t *testing.T) *meta.EntityResolver {
	t.Helper()
	m, err := meta.Load(strings.NewReader(ordersYAML))
	require.NoError(t, err)
	r, err := meta.NewEntityResolver(m)
	require.NoError(t, err)
	return r
}

func TestPathErrors(t *testing.T) {
	r := metatest.Gallery(t)
	ctx := translator.NewContext(dialect.NewPostgres(nil))
	ctx.AddRoot("a", r.ObjEntity("Artist"))
	paths := translator.NewPathTranslator(ctx)

	tests := []struct {
		path   string
		msg    string
		entity string
	}{
		{"x.artistName", "invalid identification variable: x", ""},
		{"a.bogus.title", "unknown relationship 'bogus' on entity 'Artist'", "Artist"},
		{"a.nosuch", "unknown property 'nosuch' on entity 'Artist'", "Artist"},
		{"a.paintingArray.nosuch", "unknown property 'nosuch' on entity 'Painting'", "Painting"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := paths.Translate(tt.path)
			var terr *translator.Error
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.msg, terr.Msg)
			assert.Equal(t, tt.entity, terr.Entity)
			assert.Equal(t, tt.path, terr.Path)
		})
	}

	_, err := paths.TranslateDb("a", "toNowhere.X")
	assert.EqualError(t, err, "unknown relationship 'toNowhere' on entity 'ARTIST' (path 'toNowhere.X')")
}

func TestQualifierRendering(t *testing.T) {
	r := metatest.Gallery(t)
	artist := r.ObjEntity("Artist")
	name := exp.Prop[string]("artistName")

	tests := []struct {
		name    string
		adapter dialect.Adapter
		node    *exp.Node
		sql     string
		args    []any
	}{
		{
			name:    "nested or",
			adapter: dialect.NewPostgres(nil),
			node:    exp.And(name.Eq("A"), exp.Or(name.Eq("B"), name.IsNull())),
			sql:     `t0."ARTIST_NAME" = $1 AND (t0."ARTIST_NAME" = $2 OR t0."ARTIST_NAME" IS NULL)`,
			args:    []any{"A", "B"},
		},
		{
			name:    "not",
			adapter: dialect.NewPostgres(nil),
			node:    exp.Not(name.Eq("A")),
			sql:     `NOT (t0."ARTIST_NAME" = $1)`,
			args:    []any{"A"},
		},
		{
			name:    "empty in",
			adapter: dialect.NewPostgres(nil),
			node:    name.In(),
			sql:     "1 = 0",
		},
		{
			name:    "case-insensitive like on postgres",
			adapter: dialect.NewPostgres(nil),
			node:    name.LikeIgnoreCase("pic%"),
			sql:     `t0."ARTIST_NAME" ILIKE $1`,
			args:    []any{"pic%"},
		},
		{
			name:    "case-insensitive like elsewhere",
			adapter: dialect.NewSQLite(nil),
			node:    name.LikeIgnoreCase("pic%"),
			sql:     `UPPER(t0."ARTIST_NAME") LIKE UPPER(?)`,
			args:    []any{"pic%"},
		},
		{
			name:    "function",
			adapter: dialect.NewSQLServer(nil),
			node:    exp.Binary(exp.KindGreater, exp.Fn("length", exp.Path("artistName")), exp.Val(3)),
			sql:     `LEN(t0.[ARTIST_NAME]) > @p1`,
			args:    []any{3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, q := qualifier(t, tt.adapter, artist)
			sql, err := q.Translate(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			if tt.args == nil {
				assert.Empty(t, ctx.Args())
			} else {
				assert.Equal(t, tt.args, ctx.Args())
			}
		})
	}

	t.Run("between", func(t *testing.T) {
		ctx, q := qualifier(t, dialect.NewMySQL(nil, false), artist)
		sql, err := q.Translate(exp.Between(exp.Path("dateOfBirth"), exp.Val("1800-01-01"), exp.Val("1900-01-01")))
		require.NoError(t, err)
		assert.Equal(t, "t0.`DATE_OF_BIRTH` BETWEEN ? AND ?", sql)
		assert.Len(t, ctx.Args(), 2)
	})

	t.Run("unbound parameter", func(t *testing.T) {
		_, q := qualifier(t, dialect.NewPostgres(nil), artist)
		_, err := q.Translate(exp.Eq(exp.Path("artistName"), exp.Param("name")))
		assert.True(t, errors.Is(err, exp.ErrUnboundParam))
	})
}

func TestSelect(t *testing.T) {
	r := metatest.Gallery(t)
	pg := dialect.NewPostgres(nil)

	t.Run("entity with pagination", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{
			Root:      r.ObjEntity("Artist"),
			Qualifier: exp.Eq(exp.Path("artistName"), exp.Val("Picasso")),
			Orderings: []exp.Ordering{{Path: "artistName"}},
			Limit:     10,
			Offset:    5,
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT t0."ARTIST_ID", t0."ARTIST_NAME", t0."DATE_OF_BIRTH" FROM "ARTIST" t0`+
			` WHERE t0."ARTIST_NAME" = $1 ORDER BY t0."ARTIST_NAME" ASC LIMIT 10 OFFSET 5`, stmt.SQL)
		assert.Equal(t, []any{"Picasso"}, stmt.Args)
		require.Len(t, stmt.Shape.Segments, 1)
		seg := stmt.Shape.Segments[0]
		assert.Equal(t, result.SegmentEntity, seg.Kind)
		assert.Equal(t, 3, stmt.Shape.Width())
		assert.Nil(t, seg.Columns[0].ObjAttr)
		assert.Equal(t, "artistName", seg.Columns[1].ObjAttr.Name)
		assert.Zero(t, stmt.Offset)
		assert.Zero(t, stmt.Limit)
	})

	t.Run("to-many qualifier makes rows distinct", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{
			Root:      r.ObjEntity("Artist"),
			Qualifier: exp.Binary(exp.KindLike, exp.Path("paintingArray.paintingTitle"), exp.Val("S%")),
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT DISTINCT t0."ARTIST_ID", t0."ARTIST_NAME", t0."DATE_OF_BIRTH" FROM "ARTIST" t0`+
			` LEFT JOIN "PAINTING" t1 ON t0."ARTIST_ID" = t1."ARTIST_ID" WHERE t1."PAINTING_TITLE" LIKE $1`, stmt.SQL)
		assert.Empty(t, stmt.DistinctKey)
	})

	t.Run("distinct selects ordering columns", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{
			Root:      r.ObjEntity("Artist"),
			Orderings: []exp.Ordering{{Path: "paintingArray.paintingTitle", Descending: true, IgnoreCase: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT DISTINCT t0."ARTIST_ID", t0."ARTIST_NAME", t0."DATE_OF_BIRTH", UPPER(t1."PAINTING_TITLE")`+
			` FROM "ARTIST" t0 LEFT JOIN "PAINTING" t1 ON t0."ARTIST_ID" = t1."ARTIST_ID"`+
			` ORDER BY UPPER(t1."PAINTING_TITLE") DESC`, stmt.SQL)
		assert.Equal(t, 3, stmt.Shape.Width())
	})

	t.Run("flattened attribute", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{
			Root:      r.ObjEntity("Painting"),
			Qualifier: exp.Eq(exp.Path("toArtist.artistName"), exp.Val("Monet")),
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT t0."PAINTING_ID", t0."PAINTING_TITLE", t0."ESTIMATED_PRICE", t1."ARTIST_NAME" AS "toArtist.ARTIST_NAME"`+
			` FROM "PAINTING" t0 LEFT JOIN "ARTIST" t1 ON t0."ARTIST_ID" = t1."ARTIST_ID" WHERE t1."ARTIST_NAME" = $1`, stmt.SQL)
		cols := stmt.Shape.Segments[0].Columns
		assert.Equal(t, "toArtist.ARTIST_NAME", cols[3].Label)
		assert.Equal(t, "artistName", cols[3].ObjAttr.Name)
	})

	t.Run("subentity restricted by discriminator", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{Root: r.ObjEntity("Employee")})
		require.NoError(t, err)
		assert.Equal(t, `SELECT t0."PERSON_ID", t0."PERSON_TYPE", t0."NAME", t0."SALARY" FROM "PERSON" t0`+
			` WHERE t0."PERSON_TYPE" IN ($1, $2)`, stmt.SQL)
		assert.Equal(t, []any{"E", "M"}, stmt.Args)
	})

	t.Run("hierarchy root reads every subentity column", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{Root: r.ObjEntity("AbstractPerson")})
		require.NoError(t, err)
		assert.Equal(t, `SELECT t0."PERSON_ID", t0."PERSON_TYPE", t0."NAME", t0."SALARY" FROM "PERSON" t0`, stmt.SQL)
		assert.Empty(t, stmt.Args)
	})

	t.Run("aggregate columns", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{
			Root:    r.ObjEntity("Artist"),
			Columns: []*exp.Node{exp.Path("artistName"), exp.Fn("count", exp.Path("paintingArray"))},
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT t0."ARTIST_NAME" AS "c0", COUNT(t1."PAINTING_ID") AS "c1" FROM "ARTIST" t0`+
			` LEFT JOIN "PAINTING" t1 ON t0."ARTIST_ID" = t1."ARTIST_ID" GROUP BY t0."ARTIST_NAME"`, stmt.SQL)
		require.Len(t, stmt.Shape.Segments, 2)
		assert.Equal(t, result.SegmentScalar, stmt.Shape.Segments[1].Kind)
		assert.Equal(t, 1, stmt.Shape.Segments[1].Offset)
	})

	t.Run("entity with count", func(t *testing.T) {
		stmt, err := translator.Translate(pg, translator.Select{
			Root:       r.ObjEntity("Gallery"),
			Columns:    []*exp.Node{exp.Fn("count")},
			WithEntity: true,
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT t0."GALLERY_ID", t0."GALLERY_NAME", COUNT(*) AS "c0" FROM "GALLERY" t0`+
			` GROUP BY t0."GALLERY_ID", t0."GALLERY_NAME"`, stmt.SQL)
		require.Len(t, stmt.Shape.Segments, 2)
		assert.Equal(t, 2, stmt.Shape.Segments[1].Offset)
	})

	t.Run("offset skipped in memory on old servers", func(t *testing.T) {
		legacy := dialect.NewSQLServer(version.Must(version.NewVersion("10.50.1600")))
		stmt, err := translator.Translate(legacy, translator.Select{Root: r.ObjEntity("Gallery"), Limit: 10, Offset: 5})
		require.NoError(t, err)
		assert.Equal(t, `SELECT TOP 15 t0.[GALLERY_ID], t0.[GALLERY_NAME] FROM [GALLERY] t0`, stmt.SQL)
		assert.Equal(t, 5, stmt.Offset)
		assert.Equal(t, 10, stmt.Limit)
	})

	t.Run("no root", func(t *testing.T) {
		_, err := translator.Translate(pg, translator.Select{})
		assert.Error(t, err)
	})
}

func TestDistinctKeyForLargeObjects(t *testing.T) {
	r := metatest.Gallery(t)
	stmt, err := translator.Translate(dialect.NewPostgres(nil), translator.Select{
		Root:      r.ObjEntity("PaintingInfo"),
		Qualifier: exp.Eq(exp.Path("painting.toArtist.paintingArray.paintingTitle"), exp.Val("x")),
		Limit:     3,
	})
	require.NoError(t, err)

	assert.False(t, strings.HasPrefix(stmt.SQL, "SELECT DISTINCT"))
	assert.NotContains(t, stmt.SQL, "LIMIT")
	assert.Equal(t, []string{"PAINTING_ID"}, stmt.DistinctKey)
	assert.Equal(t, 3, stmt.Limit)
}

func TestContextWithoutAliases(t *testing.T) {
	r := metatest.Gallery(t)
	ctx := translator.NewContext(dialect.NewPostgres(nil))
	ctx.SetAliasing(false)
	ctx.AddRoot("a", r.ObjEntity("Artist"))
	q := translator.NewQualifierTranslator(ctx, "a")

	sql, err := q.Translate(exp.Eq(exp.Path("artistName"), exp.Val("x")))
	require.NoError(t, err)
	assert.Equal(t, `"ARTIST_NAME" = $1`, sql)
	from, err := ctx.From()
	require.NoError(t, err)
	assert.Equal(t, `"ARTIST"`, from)

	_, err = q.Translate(exp.Eq(exp.Path("paintingArray.paintingTitle"), exp.Val("x")))
	require.NoError(t, err)
	_, err = ctx.From()
	assert.Error(t, err)
}
