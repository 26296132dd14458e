package dialect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
)

func (b *base) ColumnType(attr *meta.DbAttribute) (string, error) {
	if attr.Generated && attr.PrimaryKey {
		if t, ok := b.generatedTypes[attr.Type]; ok {
			return t, nil
		}
	}
	t, ok := b.types[attr.Type]
	if !ok {
		return "", fmt.Errorf("%w: %s has type %q", ErrUnsupportedType, attr, attr.Type)
	}
	if b.sized[attr.Type] && attr.MaxLength > 0 {
		if attr.Scale > 0 {
			return fmt.Sprintf("%s(%d, %d)", t, attr.MaxLength, attr.Scale), nil
		}
		return fmt.Sprintf("%s(%d)", t, attr.MaxLength), nil
	}
	return t, nil
}

// OrderPrimaryKeys keeps declaration order, optionally moving generated
// columns to the front.
func (b *base) OrderPrimaryKeys(pks []*meta.DbAttribute) []*meta.DbAttribute {
	out := append([]*meta.DbAttribute(nil), pks...)
	if b.generatedFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Generated && !out[j].Generated
		})
	}
	return out
}

func (b *base) CreateTable(entity *meta.DbEntity) (string, error) {
	if len(entity.Attributes) == 0 {
		return "", fmt.Errorf("%w: table %s has no columns", ErrInvalidDDL, entity.Name)
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(b.QuoteQualified(entity))
	sb.WriteString(" (")

	for i, attr := range entity.Attributes {
		if i > 0 {
			sb.WriteString(", ")
		}
		colType, err := b.ColumnType(attr)
		if err != nil {
			return "", err
		}
		sb.WriteString(b.QuoteIdentifier(attr.Name))
		sb.WriteByte(' ')
		sb.WriteString(colType)
		if attr.Mandatory || attr.PrimaryKey {
			sb.WriteString(" NOT NULL")
		} else {
			sb.WriteString(" NULL")
		}
		if attr.Generated && attr.PrimaryKey && b.autoIncrement != "" {
			sb.WriteByte(' ')
			sb.WriteString(b.autoIncrement)
		}
	}

	if pks := b.OrderPrimaryKeys(entity.PrimaryKeys()); len(pks) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(b.quoteColumns(pks))
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

func (b *base) DropTable(entity *meta.DbEntity) []string {
	return []string{"DROP TABLE " + b.QuoteQualified(entity)}
}

func (b *base) CreateForeignKey(rel *meta.DbRelationship) (string, error) {
	if rel.ToMany || rel.Target() == nil || len(rel.Joins) == 0 {
		return "", fmt.Errorf("%w: %s.%s does not own a foreign key", ErrInvalidDDL, rel.Source().Name, rel.Name)
	}
	src := make([]string, len(rel.Joins))
	dst := make([]string, len(rel.Joins))
	for i, j := range rel.Joins {
		src[i] = b.QuoteIdentifier(j.Source)
		dst[i] = b.QuoteIdentifier(j.Target)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD FOREIGN KEY (%s) REFERENCES %s (%s)",
		b.QuoteQualified(rel.Source()), strings.Join(src, ", "),
		b.QuoteQualified(rel.Target()), strings.Join(dst, ", ")), nil
}

func (b *base) CreateUniqueConstraint(entity *meta.DbEntity, columns []*meta.DbAttribute) string {
	return fmt.Sprintf("ALTER TABLE %s ADD UNIQUE (%s)", b.QuoteQualified(entity), b.quoteColumns(columns))
}

func (b *base) quoteColumns(attrs []*meta.DbAttribute) string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = b.QuoteIdentifier(a.Name)
	}
	return strings.Join(names, ", ")
}

var standardTypes = map[meta.Type]string{
	meta.TypeBigInt:    "BIGINT",
	meta.TypeInteger:   "INTEGER",
	meta.TypeSmallInt:  "SMALLINT",
	meta.TypeBoolean:   "BOOLEAN",
	meta.TypeDecimal:   "DECIMAL",
	meta.TypeDouble:    "DOUBLE PRECISION",
	meta.TypeFloat:     "REAL",
	meta.TypeChar:      "CHAR",
	meta.TypeVarchar:   "VARCHAR",
	meta.TypeClob:      "TEXT",
	meta.TypeBlob:      "BLOB",
	meta.TypeDate:      "DATE",
	meta.TypeTime:      "TIME",
	meta.TypeTimestamp: "TIMESTAMP",
}

var standardSized = map[meta.Type]bool{
	meta.TypeDecimal: true,
	meta.TypeChar:    true,
	meta.TypeVarchar: true,
}

func withTypes(overrides map[meta.Type]string) map[meta.Type]string {
	out := make(map[meta.Type]string, len(standardTypes))
	for k, v := range standardTypes {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
