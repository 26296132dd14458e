// Package dialect provides per-database strategies for everything vendor
// specific: identifier quoting, placeholders, pagination, DDL types, key
// ordering, expression rewriting, value coercion and dead-connection
// detection.
package dialect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/exp"
)

// KeyStrategy is how generated primary keys are read back after INSERT.
type KeyStrategy int

const (
	// KeyNone means generated keys are not supported.
	KeyNone KeyStrategy = iota
	// KeyLastInsertID reads sql.Result.LastInsertId.
	KeyLastInsertID
	// KeyReturning appends RETURNING and scans the row.
	KeyReturning
)

// Adapter is the strategy a translator or DDL generator consults wherever
// syntax is vendor specific.
type Adapter interface {
	// Name is the canonical adapter name.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// Version is the server version the adapter was configured for, if known.
	Version() *version.Version

	QuoteIdentifier(name string) string
	QuoteQualified(entity *meta.DbEntity) string
	// Placeholder renders the 1-based bind parameter at index.
	Placeholder(index int) string
	// ApplyPagination wraps or suffixes a SELECT. limit <= 0 is unlimited.
	ApplyPagination(sql string, limit, offset int) string
	// SupportsOffset is false when ApplyPagination cannot skip rows; the
	// caller then skips offset rows in memory.
	SupportsOffset() bool
	// Operator renders a comparison operator.
	Operator(kind exp.Kind) string
	// RewriteNode replaces vendor-unsupported nodes before translation.
	RewriteNode(node *exp.Node) *exp.Node
	// FunctionName maps a portable function name to the vendor's.
	FunctionName(name string) string

	ColumnType(attr *meta.DbAttribute) (string, error)
	CreateTable(entity *meta.DbEntity) (string, error)
	DropTable(entity *meta.DbEntity) []string
	CreateForeignKey(rel *meta.DbRelationship) (string, error)
	CreateUniqueConstraint(entity *meta.DbEntity, columns []*meta.DbAttribute) string
	// OrderPrimaryKeys returns composite key columns in the order DDL must list them.
	OrderPrimaryKeys(pks []*meta.DbAttribute) []*meta.DbAttribute

	// CoerceValue converts a driver value to the Go type expected for attr.
	CoerceValue(attr *meta.DbAttribute, v any) (any, error)
	KeyStrategy() KeyStrategy

	// IsConnectionError reports whether err means the connection is unusable.
	IsConnectionError(err error) bool
	// ValidationQuery is a cheap liveness query.
	ValidationQuery() string
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// base carries the behavior shared by every adapter. DDL rendering is data
// driven through these fields so it never needs to call back into the
// embedding type.
type base struct {
	name       string
	driver     string
	ver        *version.Version
	openQuote  string
	closeQuote string
	types      map[meta.Type]string
	sized      map[meta.Type]bool
	// generatedTypes replaces the column type of generated keys.
	generatedTypes map[meta.Type]string
	// autoIncrement is appended to generated key columns.
	autoIncrement string
	// generatedFirst lists generated columns first in composite keys.
	generatedFirst bool
	keys           KeyStrategy
	validation     string
	functions      map[string]string
}

func (b *base) Name() string                 { return b.name }
func (b *base) DriverName() string           { return b.driver }
func (b *base) Version() *version.Version    { return b.ver }
func (b *base) KeyStrategy() KeyStrategy     { return b.keys }
func (b *base) ValidationQuery() string      { return b.validation }
func (b *base) Placeholder(index int) string { return "?" }
func (b *base) SupportsOffset() bool         { return true }

func (b *base) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, b.closeQuote, b.closeQuote+b.closeQuote)
	return b.openQuote + escaped + b.closeQuote
}

func (b *base) QuoteQualified(entity *meta.DbEntity) string {
	if entity.Schema == "" {
		return b.QuoteIdentifier(entity.Name)
	}
	return b.QuoteIdentifier(entity.Schema) + "." + b.QuoteIdentifier(entity.Name)
}

func (b *base) ApplyPagination(sql string, limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, limit, offset)
	case limit > 0:
		return fmt.Sprintf("%s LIMIT %d", sql, limit)
	case offset > 0:
		return fmt.Sprintf("%s LIMIT -1 OFFSET %d", sql, offset)
	}
	return sql
}

var operators = map[exp.Kind]string{
	exp.KindEqual:          "=",
	exp.KindNotEqual:       "<>",
	exp.KindLess:           "<",
	exp.KindLessOrEqual:    "<=",
	exp.KindGreater:        ">",
	exp.KindGreaterOrEqual: ">=",
	exp.KindLike:           "LIKE",
	exp.KindNotLike:        "NOT LIKE",
	exp.KindIn:             "IN",
	exp.KindNotIn:          "NOT IN",
	exp.KindBetween:        "BETWEEN",
	exp.KindNotBetween:     "NOT BETWEEN",
}

func (b *base) Operator(kind exp.Kind) string {
	return operators[kind]
}

// RewriteNode turns case-insensitive LIKE into UPPER(x) LIKE UPPER(y).
func (b *base) RewriteNode(node *exp.Node) *exp.Node {
	return node.Transform(func(n *exp.Node) *exp.Node {
		if n.Kind != exp.KindLikeIgnoreCase {
			return n
		}
		return exp.Binary(exp.KindLike, exp.Fn("upper", n.Operands[0]), exp.Fn("upper", n.Operands[1]))
	})
}

func (b *base) FunctionName(name string) string {
	if f, ok := b.functions[strings.ToLower(name)]; ok {
		return f
	}
	return strings.ToUpper(name)
}

// IsConnectionError recognizes driver-neutral signs of a dead connection.
func (b *base) IsConnectionError(err error) bool {
	return isNetworkError(err)
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
