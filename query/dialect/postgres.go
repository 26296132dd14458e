package dialect

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/lib/pq"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/exp"
)

// Postgres is the PostgreSQL adapter.
type Postgres struct {
	base
}

// NewPostgres creates a PostgreSQL adapter. v may be nil.
func NewPostgres(v *version.Version) *Postgres {
	return &Postgres{base: base{
		name:       "postgres",
		driver:     "postgres",
		ver:        v,
		openQuote:  `"`,
		closeQuote: `"`,
		types: withTypes(map[meta.Type]string{
			meta.TypeBlob: "BYTEA",
		}),
		sized: standardSized,
		generatedTypes: map[meta.Type]string{
			meta.TypeBigInt:  "BIGSERIAL",
			meta.TypeInteger: "SERIAL",
		},
		keys:       KeyReturning,
		validation: "SELECT 1",
	}}
}

func (p *Postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (p *Postgres) ApplyPagination(sql string, limit, offset int) string {
	if limit > 0 {
		sql = fmt.Sprintf("%s LIMIT %d", sql, limit)
	}
	if offset > 0 {
		sql = fmt.Sprintf("%s OFFSET %d", sql, offset)
	}
	return sql
}

func (p *Postgres) Operator(kind exp.Kind) string {
	if kind == exp.KindLikeIgnoreCase {
		return "ILIKE"
	}
	return p.base.Operator(kind)
}

// RewriteNode keeps case-insensitive LIKE, rendered as ILIKE.
func (p *Postgres) RewriteNode(node *exp.Node) *exp.Node {
	return node
}

// IsConnectionError adds SQLSTATE class 08 and the 57P0x shutdown codes.
func (p *Postgres) IsConnectionError(err error) bool {
	if isNetworkError(err) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08":
			return true
		case pqErr.Code == "57P01", pqErr.Code == "57P02", pqErr.Code == "57P03":
			return true
		}
	}
	return false
}
