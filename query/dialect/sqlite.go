package dialect

import (
	"errors"

	"github.com/hashicorp/go-version"
	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/objgraph/meta"
)

var sqliteReturning = version.Must(version.NewVersion("3.35.0"))

// SQLite is the SQLite adapter.
type SQLite struct {
	base
}

// NewSQLite creates a SQLite adapter. v may be nil. Versions from 3.35 read
// generated keys through RETURNING.
func NewSQLite(v *version.Version) *SQLite {
	s := &SQLite{base: base{
		name:       "sqlite",
		driver:     "sqlite3",
		ver:        v,
		openQuote:  `"`,
		closeQuote: `"`,
		types: withTypes(map[meta.Type]string{
			meta.TypeDouble: "DOUBLE",
		}),
		sized: standardSized,
		// INTEGER primary keys alias the rowid and are assigned automatically.
		generatedTypes: map[meta.Type]string{
			meta.TypeBigInt:  "INTEGER",
			meta.TypeInteger: "INTEGER",
		},
		keys:       KeyLastInsertID,
		validation: "SELECT 1",
	}}
	if v != nil && v.GreaterThanOrEqual(sqliteReturning) {
		s.keys = KeyReturning
	}
	return s
}

func (s *SQLite) IsConnectionError(err error) bool {
	if isNetworkError(err) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrIoErr, sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return true
		}
	}
	return false
}

// SupportsForeignKeyConstraints is false: SQLite cannot add a constraint to
// an existing table.
func (s *SQLite) SupportsForeignKeyConstraints() bool { return false }
