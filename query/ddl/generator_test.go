package ddl_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/meta/metatest"
	"github.com/satishbabariya/objgraph/query/ddl"
	"github.com/satishbabariya/objgraph/query/dialect"
)

func names(tables []*meta.DbEntity) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

func TestSortTablesByForeignKeys(t *testing.T) {
	r := metatest.Gallery(t)
	sorted := ddl.SortTables(r.DbEntities())

	assert.Equal(t, []string{
		"ARTIST", "GALLERY", "PERSON", "EXHIBIT", "PAINTING", "ARTIST_EXHIBIT", "PAINTING_INFO",
	}, names(sorted))
}

func TestSortTablesWithCycle(t *testing.T) {
	a := meta.NewDbEntity("A", []*meta.DbAttribute{{Name: "ID", Type: meta.TypeBigInt, PrimaryKey: true}})
	b := meta.NewDbEntity("B", []*meta.DbAttribute{{Name: "ID", Type: meta.TypeBigInt, PrimaryKey: true}})
	m := &meta.DataMap{Name: "cycle", DbEntities: []*meta.DbEntity{b, a}}
	a.AddRelationship(&meta.DbRelationship{Name: "toB", TargetName: "B", Joins: []meta.DbJoin{{Source: "ID", Target: "ID"}}})
	b.AddRelationship(&meta.DbRelationship{Name: "toA", TargetName: "A", Joins: []meta.DbJoin{{Source: "ID", Target: "ID"}}})
	c := meta.NewDbEntity("C", []*meta.DbAttribute{{Name: "ID", Type: meta.TypeBigInt, PrimaryKey: true}})
	m.DbEntities = append(m.DbEntities, c)

	r, err := meta.NewEntityResolver(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, names(ddl.SortTables(r.DbEntities())))
}

func TestStatementsPostgres(t *testing.T) {
	r := metatest.Gallery(t)
	opts := ddl.Options{DropTables: true, CreateTables: true, CreateForeignKeys: true}
	stmts, err := ddl.New(dialect.NewPostgres(nil), r.DbEntities(), opts).Statements()
	require.NoError(t, err)

	var drops, creates, fks []string
	for _, s := range stmts {
		switch {
		case s.Drop:
			drops = append(drops, s.SQL)
		case len(s.SQL) > 12 && s.SQL[:12] == "CREATE TABLE":
			creates = append(creates, s.SQL)
		default:
			fks = append(fks, s.SQL)
		}
	}
	require.Len(t, drops, 7)
	assert.Equal(t, `DROP TABLE "PAINTING_INFO"`, drops[0])
	assert.Equal(t, `DROP TABLE "ARTIST"`, drops[6])
	require.Len(t, creates, 7)
	assert.Contains(t, creates[0], `CREATE TABLE "ARTIST"`)
	assert.Equal(t, []string{
		`ALTER TABLE "EXHIBIT" ADD FOREIGN KEY ("GALLERY_ID") REFERENCES "GALLERY" ("GALLERY_ID")`,
		`ALTER TABLE "PAINTING" ADD FOREIGN KEY ("ARTIST_ID") REFERENCES "ARTIST" ("ARTIST_ID")`,
		`ALTER TABLE "PAINTING" ADD FOREIGN KEY ("GALLERY_ID") REFERENCES "GALLERY" ("GALLERY_ID")`,
		`ALTER TABLE "ARTIST_EXHIBIT" ADD FOREIGN KEY ("ARTIST_ID") REFERENCES "ARTIST" ("ARTIST_ID")`,
		`ALTER TABLE "ARTIST_EXHIBIT" ADD FOREIGN KEY ("EXHIBIT_ID") REFERENCES "EXHIBIT" ("EXHIBIT_ID")`,
		`ALTER TABLE "PAINTING_INFO" ADD FOREIGN KEY ("PAINTING_ID") REFERENCES "PAINTING" ("PAINTING_ID")`,
	}, fks)
}

func TestExecuteOnSQLite(t *testing.T) {
	r := metatest.Gallery(t)
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	opts := ddl.Options{DropTables: true, CreateTables: true, CreateForeignKeys: true}
	gen := ddl.New(dialect.NewSQLite(nil), r.DbEntities(), opts)

	stmts, err := gen.Statements()
	require.NoError(t, err)
	for _, s := range stmts {
		assert.NotContains(t, s.SQL, "FOREIGN KEY", "sqlite cannot alter constraints")
	}

	ctx := context.Background()
	require.NoError(t, gen.Execute(ctx, db))
	// A second run drops and recreates.
	require.NoError(t, gen.Execute(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table'`).Scan(&count))
	assert.Equal(t, 7, count)

	_, err = db.ExecContext(ctx, `INSERT INTO "ARTIST" ("ARTIST_NAME") VALUES ('Monet')`)
	require.NoError(t, err)
	var id int64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT "ARTIST_ID" FROM "ARTIST"`).Scan(&id))
	assert.Equal(t, int64(1), id)
}

func TestExecuteCollectsFailures(t *testing.T) {
	r := metatest.Gallery(t)
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	gen := ddl.New(dialect.NewSQLite(nil), r.DbEntities(), ddl.DefaultOptions())
	require.NoError(t, gen.Execute(context.Background(), db))

	err = gen.Execute(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
