package dialect

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/objgraph/meta"
)

// SQL Server 2012 (v11) added OFFSET ... FETCH.
var sqlServerOffsetFetch = version.Must(version.NewVersion("11.0"))

// SQLServer is the Microsoft SQL Server adapter. No driver for it is linked
// into this module; register one (for example microsoft/go-mssqldb) under the
// "sqlserver" name to use it.
type SQLServer struct {
	base
	offsetFetch bool
}

// NewSQLServer creates a SQL Server adapter. A nil version assumes 2012 or later.
func NewSQLServer(v *version.Version) *SQLServer {
	return &SQLServer{
		offsetFetch: v == nil || v.GreaterThanOrEqual(sqlServerOffsetFetch),
		base: base{
			name:       "sqlserver",
			driver:     "sqlserver",
			ver:        v,
			openQuote:  "[",
			closeQuote: "]",
			types: withTypes(map[meta.Type]string{
				meta.TypeBoolean:   "BIT",
				meta.TypeVarchar:   "NVARCHAR",
				meta.TypeChar:      "NCHAR",
				meta.TypeDouble:    "FLOAT",
				meta.TypeClob:      "NVARCHAR(MAX)",
				meta.TypeBlob:      "VARBINARY(MAX)",
				meta.TypeTimestamp: "DATETIME2",
			}),
			sized:         standardSized,
			autoIncrement: "IDENTITY(1,1)",
			keys:          KeyNone,
			validation:    "SELECT 1",
			functions: map[string]string{
				"length": "LEN",
				"now":    "GETDATE",
			},
		},
	}
}

func (s *SQLServer) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

func (s *SQLServer) SupportsOffset() bool { return s.offsetFetch }

// ApplyPagination renders OFFSET/FETCH, adding a neutral ORDER BY when the
// statement has none. Servers before 2012 get TOP covering limit+offset and
// skip the offset in memory.
func (s *SQLServer) ApplyPagination(sql string, limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return sql
	}
	if !s.offsetFetch {
		if limit <= 0 {
			return sql
		}
		return topN(sql, limit+offset)
	}
	if !strings.Contains(strings.ToUpper(sql), " ORDER BY ") {
		sql += " ORDER BY (SELECT NULL)"
	}
	sql = fmt.Sprintf("%s OFFSET %d ROWS", sql, offset)
	if limit > 0 {
		sql = fmt.Sprintf("%s FETCH NEXT %d ROWS ONLY", sql, limit)
	}
	return sql
}

func topN(sql string, n int) string {
	if strings.HasPrefix(sql, "SELECT DISTINCT ") {
		return fmt.Sprintf("SELECT DISTINCT TOP %d %s", n, strings.TrimPrefix(sql, "SELECT DISTINCT "))
	}
	return fmt.Sprintf("SELECT TOP %d %s", n, strings.TrimPrefix(sql, "SELECT "))
}
