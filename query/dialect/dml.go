package dialect

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
)

// Statement is SQL text with its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Insert renders an INSERT of columns into table. When returning is non-empty
// and the adapter reads keys through RETURNING, those columns are returned.
func Insert(a Adapter, table *meta.DbEntity, columns []string, values []any, returning ...string) Statement {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = a.QuoteIdentifier(c)
		placeholders[i] = a.Placeholder(i + 1)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(a.QuoteQualified(table))
	if len(columns) == 0 {
		sb.WriteString(" DEFAULT VALUES")
	} else {
		fmt.Fprintf(&sb, " (%s) VALUES (%s)", strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	}

	if len(returning) > 0 && a.KeyStrategy() == KeyReturning {
		ret := make([]string, len(returning))
		for i, c := range returning {
			ret[i] = a.QuoteIdentifier(c)
		}
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(ret, ", "))
	}
	return Statement{SQL: sb.String(), Args: append([]any(nil), values...)}
}

// Update renders an UPDATE setting columns, matched on the key columns.
func Update(a Adapter, table *meta.DbEntity, columns []string, values []any, keyColumns []string, keyValues []any) Statement {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = %s", a.QuoteIdentifier(c), a.Placeholder(i+1))
	}
	where := keyMatch(a, keyColumns, len(columns)+1)

	args := make([]any, 0, len(values)+len(keyValues))
	args = append(args, values...)
	args = append(args, keyValues...)
	return Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET %s WHERE %s", a.QuoteQualified(table), strings.Join(sets, ", "), where),
		Args: args,
	}
}

// Delete renders a DELETE matched on the key columns.
func Delete(a Adapter, table *meta.DbEntity, keyColumns []string, keyValues []any) Statement {
	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s", a.QuoteQualified(table), keyMatch(a, keyColumns, 1)),
		Args: append([]any(nil), keyValues...),
	}
}

func keyMatch(a Adapter, columns []string, firstIndex int) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s = %s", a.QuoteIdentifier(c), a.Placeholder(firstIndex+i))
	}
	return strings.Join(parts, " AND ")
}
