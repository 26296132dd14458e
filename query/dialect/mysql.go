package dialect

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/objgraph/meta"
)

var mariaDBReturning = version.Must(version.NewVersion("10.5"))

// MySQL is the MySQL and MariaDB adapter.
type MySQL struct {
	base
	mariaDB bool
}

// NewMySQL creates a MySQL adapter. v may be nil. MariaDB 10.5 and later read
// generated keys through RETURNING.
func NewMySQL(v *version.Version, mariaDB bool) *MySQL {
	m := &MySQL{mariaDB: mariaDB, base: base{
		name:       "mysql",
		driver:     "mysql",
		ver:        v,
		openQuote:  "`",
		closeQuote: "`",
		types: withTypes(map[meta.Type]string{
			meta.TypeBoolean:   "TINYINT(1)",
			meta.TypeDouble:    "DOUBLE",
			meta.TypeFloat:     "FLOAT",
			meta.TypeClob:      "LONGTEXT",
			meta.TypeBlob:      "LONGBLOB",
			meta.TypeTimestamp: "DATETIME",
		}),
		sized:          standardSized,
		autoIncrement:  "AUTO_INCREMENT",
		generatedFirst: true,
		keys:           KeyLastInsertID,
		validation:     "SELECT 1",
		functions: map[string]string{
			"length": "CHAR_LENGTH",
		},
	}}
	if mariaDB && v != nil && v.GreaterThanOrEqual(mariaDBReturning) {
		m.keys = KeyReturning
	}
	return m
}

// IsMariaDB reports whether the server is MariaDB.
func (m *MySQL) IsMariaDB() bool { return m.mariaDB }

// ApplyPagination uses the documented maximum row count when only an offset is set.
func (m *MySQL) ApplyPagination(sql string, limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, limit, offset)
	case limit > 0:
		return fmt.Sprintf("%s LIMIT %d", sql, limit)
	case offset > 0:
		return fmt.Sprintf("%s LIMIT 18446744073709551615 OFFSET %d", sql, offset)
	}
	return sql
}

// MySQL server errors that mean the session is gone.
var mysqlConnectionErrors = map[uint16]bool{
	1053: true, // ER_SERVER_SHUTDOWN
	1152: true, // ER_ABORTING_CONNECTION
	1927: true, // ER_CONNECTION_KILLED
	2006: true, // CR_SERVER_GONE_ERROR
	2013: true, // CR_SERVER_LOST
}

func (m *MySQL) IsConnectionError(err error) bool {
	if isNetworkError(err) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlConnectionErrors[myErr.Number]
	}
	return false
}
