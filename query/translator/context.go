// Package translator turns object queries into SQL: dotted relationship
// paths become aliased joins, qualifier trees become WHERE clauses and
// select queries become a statement plus the shape of its result rows.
package translator

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/dialect"
)

// JoinType is the SQL join flavor.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
)

func (t JoinType) String() string {
	if t == JoinLeftOuter {
		return "LEFT JOIN"
	}
	return "JOIN"
}

// Join is one registered table join.
type Join struct {
	Type         JoinType
	Relationship *meta.DbRelationship
	SourceAlias  string
	Alias        string
}

type joinKey struct {
	basePath     string
	relationship string
}

type root struct {
	entity *meta.ObjEntity
	alias  string
}

// Context accumulates the state of one translation: the SQL text, table
// aliases, registered joins and bound arguments. Discard it after use.
type Context struct {
	adapter  dialect.Adapter
	aliasing bool

	buf       strings.Builder
	nextAlias int
	roots     map[string]*root
	rootOrder []string
	joins     map[joinKey]*Join
	joinList  []*Join
	args      []any
	toMany    bool
}

// NewContext creates an empty context. Columns are qualified with table
// aliases unless aliasing is switched off with SetAliasing.
func NewContext(adapter dialect.Adapter) *Context {
	return &Context{
		adapter:  adapter,
		aliasing: true,
		roots:    make(map[string]*root),
		joins:    make(map[joinKey]*Join),
	}
}

// Adapter returns the dialect the context renders for.
func (c *Context) Adapter() dialect.Adapter { return c.adapter }

// SetAliasing controls whether column references carry table aliases. Joins
// need aliases.
func (c *Context) SetAliasing(on bool) { c.aliasing = on }

// AddRoot registers an identification variable for entity and returns its
// table alias. Registering the same variable again returns the same alias.
func (c *Context) AddRoot(variable string, entity *meta.ObjEntity) string {
	if r, ok := c.roots[variable]; ok {
		return r.alias
	}
	r := &root{entity: entity, alias: c.newAlias()}
	c.roots[variable] = r
	c.rootOrder = append(c.rootOrder, variable)
	return r.alias
}

// Root resolves an identification variable.
func (c *Context) Root(variable string) (*meta.ObjEntity, string, bool) {
	r, ok := c.roots[variable]
	if !ok {
		return nil, "", false
	}
	return r.entity, r.alias, true
}

func (c *Context) newAlias() string {
	a := fmt.Sprintf("t%d", c.nextAlias)
	c.nextAlias++
	return a
}

// join returns the alias of the join of rel from sourceAlias, registering it
// under (basePath, rel.Name) unless an equivalent join already exists. An
// existing inner join is widened to an outer join on request.
func (c *Context) join(basePath, sourceAlias string, rel *meta.DbRelationship, typ JoinType) string {
	key := joinKey{basePath: basePath, relationship: rel.Name}
	if j, ok := c.joins[key]; ok {
		if typ == JoinLeftOuter {
			j.Type = JoinLeftOuter
		}
		return j.Alias
	}
	j := &Join{Type: typ, Relationship: rel, SourceAlias: sourceAlias, Alias: c.newAlias()}
	c.joins[key] = j
	c.joinList = append(c.joinList, j)
	if rel.ToMany {
		c.toMany = true
	}
	return j.Alias
}

// Joins returns registered joins in registration order.
func (c *Context) Joins() []*Join { return c.joinList }

// JoinsToMany reports whether a to-many join may repeat root rows.
func (c *Context) JoinsToMany() bool { return c.toMany }

// Bind records a statement argument and returns its placeholder.
func (c *Context) Bind(v any) string {
	c.args = append(c.args, v)
	return c.adapter.Placeholder(len(c.args))
}

// Args returns the bound arguments in placeholder order.
func (c *Context) Args() []any { return c.args }

// Append adds text to the SQL buffer.
func (c *Context) Append(s string) *Context {
	c.buf.WriteString(s)
	return c
}

// String returns the SQL buffer.
func (c *Context) String() string { return c.buf.String() }

// Column renders a column reference.
func (c *Context) Column(ref ColumnRef) string {
	col := c.adapter.QuoteIdentifier(ref.Attr.Name)
	if !c.aliasing || ref.Alias == "" {
		return col
	}
	return ref.Alias + "." + col
}

// From renders the FROM clause body: every root followed by its joins.
func (c *Context) From() (string, error) {
	if len(c.joinList) > 0 && !c.aliasing {
		return "", fmt.Errorf("joins require table aliases")
	}
	var sb strings.Builder
	for i, v := range c.rootOrder {
		r := c.roots[v]
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.adapter.QuoteQualified(r.entity.DbEntity()))
		if c.aliasing {
			sb.WriteByte(' ')
			sb.WriteString(r.alias)
		}
	}
	for _, j := range c.joinList {
		rel := j.Relationship
		fmt.Fprintf(&sb, " %s %s %s ON ", j.Type, c.adapter.QuoteQualified(rel.Target()), j.Alias)
		for i, dj := range rel.Joins {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			fmt.Fprintf(&sb, "%s.%s = %s.%s",
				j.SourceAlias, c.adapter.QuoteIdentifier(dj.Source),
				j.Alias, c.adapter.QuoteIdentifier(dj.Target))
		}
	}
	return sb.String(), nil
}
