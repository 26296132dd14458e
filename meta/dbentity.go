// Package meta provides the mapping metadata consumed by query translation,
// result materialization and DDL generation: tables, columns, table-level
// relationships and the object entities layered over them.
package meta

import (
	"fmt"
	"strings"
)

// Type is a portable column type.
type Type string

const (
	TypeBigInt    Type = "BIGINT"
	TypeInteger   Type = "INTEGER"
	TypeSmallInt  Type = "SMALLINT"
	TypeBoolean   Type = "BOOLEAN"
	TypeDecimal   Type = "DECIMAL"
	TypeDouble    Type = "DOUBLE"
	TypeFloat     Type = "FLOAT"
	TypeChar      Type = "CHAR"
	TypeVarchar   Type = "VARCHAR"
	TypeClob      Type = "CLOB"
	TypeBlob      Type = "BLOB"
	TypeDate      Type = "DATE"
	TypeTime      Type = "TIME"
	TypeTimestamp Type = "TIMESTAMP"
)

// ParseType normalizes a type name. Unknown names are returned as-is so a
// dialect can still reject them with context.
func ParseType(name string) Type {
	t := Type(strings.ToUpper(strings.TrimSpace(name)))
	switch t {
	case "INT":
		return TypeInteger
	case "BOOL", "BIT":
		return TypeBoolean
	case "TEXT", "LONGVARCHAR":
		return TypeClob
	case "NUMERIC":
		return TypeDecimal
	case "REAL":
		return TypeFloat
	case "DATETIME":
		return TypeTimestamp
	case "VARBINARY", "LONGVARBINARY", "BINARY":
		return TypeBlob
	}
	return t
}

// DbAttribute is a table column.
type DbAttribute struct {
	Name       string `yaml:"name"`
	Type       Type   `yaml:"type"`
	MaxLength  int    `yaml:"length,omitempty"`
	Scale      int    `yaml:"scale,omitempty"`
	Mandatory  bool   `yaml:"mandatory,omitempty"`
	PrimaryKey bool   `yaml:"primaryKey,omitempty"`
	Generated  bool   `yaml:"generated,omitempty"`

	entity *DbEntity
}

// Entity returns the owning table.
func (a *DbAttribute) Entity() *DbEntity {
	return a.entity
}

func (a *DbAttribute) String() string {
	if a.entity == nil {
		return a.Name
	}
	return a.entity.Name + "." + a.Name
}

// DbJoin is one column pair of a table-level relationship.
type DbJoin struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// DbRelationship is a foreign key relationship between two tables, seen from
// its source side.
type DbRelationship struct {
	Name          string   `yaml:"name"`
	TargetName    string   `yaml:"target"`
	Joins         []DbJoin `yaml:"joins"`
	ToMany        bool     `yaml:"toMany,omitempty"`
	ToDependentPK bool     `yaml:"toDependentPK,omitempty"`

	source *DbEntity
	target *DbEntity
}

// Source returns the table the relationship starts from.
func (r *DbRelationship) Source() *DbEntity { return r.source }

// Target returns the resolved target table.
func (r *DbRelationship) Target() *DbEntity { return r.target }

// IsToPK reports whether every join column on the target side is part of the
// target primary key, i.e. the source owns the foreign key.
func (r *DbRelationship) IsToPK() bool {
	if r.target == nil || len(r.Joins) == 0 {
		return false
	}
	for _, j := range r.Joins {
		attr := r.target.Attribute(j.Target)
		if attr == nil || !attr.PrimaryKey {
			return false
		}
	}
	return true
}

// IsOptional reports whether any source-side join column is nullable.
func (r *DbRelationship) IsOptional() bool {
	if r.source == nil {
		return true
	}
	for _, j := range r.Joins {
		attr := r.source.Attribute(j.Source)
		if attr == nil || !attr.Mandatory {
			return true
		}
	}
	return false
}

// NeedsOuterJoin reports whether joining over this relationship may lose
// source rows with an inner join.
func (r *DbRelationship) NeedsOuterJoin() bool {
	return r.ToMany || r.ToDependentPK || !r.IsToPK() || r.IsOptional()
}

// SourceAttributes returns the source-side join columns in join order.
func (r *DbRelationship) SourceAttributes() []*DbAttribute {
	attrs := make([]*DbAttribute, 0, len(r.Joins))
	for _, j := range r.Joins {
		if a := r.source.Attribute(j.Source); a != nil {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// DbEntity is a table.
type DbEntity struct {
	Name          string            `yaml:"name"`
	Schema        string            `yaml:"schema,omitempty"`
	Attributes    []*DbAttribute    `yaml:"attributes"`
	Relationships []*DbRelationship `yaml:"relationships,omitempty"`

	attrIndex map[string]*DbAttribute
	relIndex  map[string]*DbRelationship
}

// NewDbEntity builds a table and links its attributes and relationships.
func NewDbEntity(name string, attrs []*DbAttribute, rels ...*DbRelationship) *DbEntity {
	e := &DbEntity{Name: name, Attributes: attrs, Relationships: rels}
	e.index()
	return e
}

func (e *DbEntity) index() {
	e.attrIndex = make(map[string]*DbAttribute, len(e.Attributes))
	for _, a := range e.Attributes {
		a.entity = e
		e.attrIndex[a.Name] = a
	}
	e.relIndex = make(map[string]*DbRelationship, len(e.Relationships))
	for _, r := range e.Relationships {
		r.source = e
		e.relIndex[r.Name] = r
	}
}

// QualifiedName returns schema.name, or name when no schema is set.
func (e *DbEntity) QualifiedName() string {
	if e.Schema == "" {
		return e.Name
	}
	return e.Schema + "." + e.Name
}

// Attribute looks up a column by name.
func (e *DbEntity) Attribute(name string) *DbAttribute {
	return e.attrIndex[name]
}

// Relationship looks up a relationship by name.
func (e *DbEntity) Relationship(name string) *DbRelationship {
	return e.relIndex[name]
}

// PrimaryKeys returns the primary key columns in declaration order.
func (e *DbEntity) PrimaryKeys() []*DbAttribute {
	var pks []*DbAttribute
	for _, a := range e.Attributes {
		if a.PrimaryKey {
			pks = append(pks, a)
		}
	}
	return pks
}

// PrimaryKeyNames returns the primary key column names.
func (e *DbEntity) PrimaryKeyNames() []string {
	pks := e.PrimaryKeys()
	names := make([]string, len(pks))
	for i, a := range pks {
		names[i] = a.Name
	}
	return names
}

// AddAttribute appends a column.
func (e *DbEntity) AddAttribute(a *DbAttribute) {
	e.Attributes = append(e.Attributes, a)
	e.index()
}

// AddRelationship appends a relationship. The target is linked on the next
// EntityResolver build.
func (e *DbEntity) AddRelationship(r *DbRelationship) {
	e.Relationships = append(e.Relationships, r)
	e.index()
}

func (e *DbEntity) resolve(tables map[string]*DbEntity) error {
	for _, r := range e.Relationships {
		target, ok := tables[r.TargetName]
		if !ok {
			return fmt.Errorf("%w: relationship %s.%s targets %q", ErrUnknownEntity, e.Name, r.Name, r.TargetName)
		}
		r.target = target
		for _, j := range r.Joins {
			if e.Attribute(j.Source) == nil {
				return fmt.Errorf("%w: %s.%s join source %q", ErrUnknownAttribute, e.Name, r.Name, j.Source)
			}
			if target.Attribute(j.Target) == nil {
				return fmt.Errorf("%w: %s.%s join target %q", ErrUnknownAttribute, e.Name, r.Name, j.Target)
			}
		}
	}
	return nil
}
