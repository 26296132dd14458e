package translator

import (
	"strings"

	"github.com/satishbabariya/objgraph/meta"
)

// ColumnRef is one column an operand resolves to.
type ColumnRef struct {
	Alias string
	Attr  *meta.DbAttribute
	// Target is the primary key column of the related entity that this
	// column matches. For an entity's own key columns it is Attr.Name.
	Target string
}

// Operand is the result of translating a path.
type Operand struct {
	Path    string
	Columns []ColumnRef
	// ObjAttr is set when the path ends in an object attribute.
	ObjAttr *meta.ObjAttribute
	// Relationship is set when the path ends in a relationship or an
	// identification variable and is matched by object or key values.
	Relationship bool
}

// IsMultiColumn reports whether the operand spans a compound key.
func (o *Operand) IsMultiColumn() bool { return len(o.Columns) > 1 }

// PathTranslator resolves dotted paths to column operands, registering the
// joins they need in its Context. A path starts with an identification
// variable registered through Context.AddRoot, continues through
// relationships and ends at an attribute or relationship. A "+" suffix on a
// relationship segment forces an outer join.
type PathTranslator struct {
	ctx *Context
}

func NewPathTranslator(ctx *Context) *PathTranslator {
	return &PathTranslator{ctx: ctx}
}

type pathState int

const (
	stateIdentifier pathState = iota
	stateIntermediate
	stateTerminal
)

// cursor is the walk position shared by object and db paths.
type cursor struct {
	path     string
	basePath string
	alias    string
}

func splitSegment(seg string) (string, bool) {
	if strings.HasSuffix(seg, "+") {
		return strings.TrimSuffix(seg, "+"), true
	}
	return seg, false
}

// Translate resolves an object path such as "this.toArtist.artistName".
func (p *PathTranslator) Translate(path string) (*Operand, error) {
	segs := strings.Split(path, ".")
	var (
		entity *meta.ObjEntity
		cur    = cursor{path: path}
		state  = stateIdentifier
	)

	for i, seg := range segs {
		if i == len(segs)-1 && state != stateIdentifier {
			state = stateTerminal
		}
		switch state {
		case stateIdentifier:
			e, alias, ok := p.ctx.Root(seg)
			if !ok {
				return nil, errorf(path, "", "invalid identification variable: %s", seg)
			}
			entity, cur.alias, cur.basePath = e, alias, seg
			if len(segs) == 1 {
				return p.identifier(entity, cur)
			}
			state = stateIntermediate

		case stateIntermediate:
			name, outer := splitSegment(seg)
			rel := entity.Relationship(name)
			if rel == nil {
				return nil, errorf(path, entity.Name, "unknown relationship '%s' on entity '%s'", name, entity.Name)
			}
			for _, dbRel := range rel.DbRelationships() {
				p.hop(&cur, dbRel, outer)
			}
			entity = rel.Target()

		case stateTerminal:
			name, outer := splitSegment(seg)
			if attr := entity.Attribute(name); attr != nil {
				return p.attribute(attr, cur, outer)
			}
			if rel := entity.Relationship(name); rel != nil {
				return p.relationship(rel, cur, outer)
			}
			return nil, errorf(path, entity.Name, "unknown property '%s' on entity '%s'", name, entity.Name)
		}
	}
	return nil, errorf(path, "", "empty path")
}

// TranslateDb resolves a table-level path such as "toArtist.ARTIST_NAME"
// starting at the table of the entity bound to variable.
func (p *PathTranslator) TranslateDb(variable, path string) (*Operand, error) {
	entity, alias, ok := p.ctx.Root(variable)
	if !ok {
		return nil, errorf(path, "", "invalid identification variable: %s", variable)
	}
	cur := cursor{path: path, basePath: variable, alias: alias}
	table := entity.DbEntity()
	segs := strings.Split(path, ".")

	for i, seg := range segs {
		name, outer := splitSegment(seg)
		if i < len(segs)-1 {
			rel := table.Relationship(name)
			if rel == nil {
				return nil, errorf(path, table.Name, "unknown relationship '%s' on entity '%s'", name, table.Name)
			}
			p.hop(&cur, rel, outer)
			table = rel.Target()
			continue
		}
		if attr := table.Attribute(name); attr != nil {
			return &Operand{Path: path, Columns: []ColumnRef{{Alias: cur.alias, Attr: attr, Target: attr.Name}}}, nil
		}
		if rel := table.Relationship(name); rel != nil {
			return p.terminalHop(rel, cur, outer, table.Name)
		}
		return nil, errorf(path, table.Name, "unknown property '%s' on entity '%s'", name, table.Name)
	}
	return nil, errorf(path, table.Name, "empty path")
}

// hop joins one table relationship and advances the cursor past it.
func (p *PathTranslator) hop(cur *cursor, rel *meta.DbRelationship, outer bool) {
	typ := JoinInner
	if outer || rel.NeedsOuterJoin() {
		typ = JoinLeftOuter
	}
	cur.alias = p.ctx.join(cur.basePath, cur.alias, rel, typ)
	cur.basePath += "." + rel.Name
}

func (p *PathTranslator) identifier(entity *meta.ObjEntity, cur cursor) (*Operand, error) {
	pks := entity.DbEntity().PrimaryKeys()
	if len(pks) != 1 {
		return nil, errorf(cur.path, entity.Name, "multi-column PK to-many matches are not yet supported")
	}
	return &Operand{
		Path:         cur.path,
		Columns:      []ColumnRef{{Alias: cur.alias, Attr: pks[0], Target: pks[0].Name}},
		Relationship: true,
	}, nil
}

func (p *PathTranslator) attribute(attr *meta.ObjAttribute, cur cursor, outer bool) (*Operand, error) {
	for _, rel := range attr.DbRelationships() {
		p.hop(&cur, rel, outer)
	}
	col := attr.DbAttribute()
	if col == nil {
		return nil, errorf(cur.path, attr.Entity().Name, "attribute '%s' maps to no column", attr.Name)
	}
	return &Operand{
		Path:    cur.path,
		Columns: []ColumnRef{{Alias: cur.alias, Attr: col, Target: col.Name}},
		ObjAttr: attr,
	}, nil
}

// relationship resolves a terminal object relationship. A flattened one is
// resolved through a single underlying relationship, joining the hops in
// front of it.
func (p *PathTranslator) relationship(rel *meta.ObjRelationship, cur cursor, outer bool) (*Operand, error) {
	hops := rel.DbRelationships()
	if len(hops) == 0 {
		return nil, errorf(cur.path, rel.Source().Name, "relationship '%s' is not mapped", rel.Name)
	}
	chosen := underlyingJoin(rel, rel.DbPath)
	for _, h := range hops {
		if h == chosen {
			break
		}
		p.hop(&cur, h, outer)
	}
	return p.terminalHop(chosen, cur, outer, rel.Source().Name)
}

// underlyingJoin picks the table relationship of rel whose name ends path,
// falling back to the first one.
func underlyingJoin(rel *meta.ObjRelationship, path string) *meta.DbRelationship {
	hops := rel.DbRelationships()
	for i := len(hops) - 1; i >= 0; i-- {
		if path == hops[i].Name || strings.HasSuffix(path, "."+hops[i].Name) {
			return hops[i]
		}
	}
	return hops[0]
}

// terminalHop resolves a relationship at the end of a path to key columns.
// When the source owns the foreign key no join is needed; otherwise the
// target is joined and matched by its primary key.
func (p *PathTranslator) terminalHop(rel *meta.DbRelationship, cur cursor, outer bool, entity string) (*Operand, error) {
	op := &Operand{Path: cur.path, Relationship: true}

	if !rel.ToMany && !rel.ToDependentPK && rel.IsToPK() {
		for _, j := range rel.Joins {
			attr := rel.Source().Attribute(j.Source)
			if attr == nil {
				return nil, errorf(cur.path, entity, "join column '%s' is missing on '%s'", j.Source, rel.Source().Name)
			}
			op.Columns = append(op.Columns, ColumnRef{Alias: cur.alias, Attr: attr, Target: j.Target})
		}
		return op, nil
	}

	pks := rel.Target().PrimaryKeys()
	if len(pks) == 0 {
		return nil, errorf(cur.path, entity, "entity '%s' has no primary key", rel.Target().Name)
	}
	if rel.ToMany && len(pks) > 1 {
		return nil, errorf(cur.path, entity, "multi-column PK to-many matches are not yet supported")
	}
	p.hop(&cur, rel, outer)
	for _, pk := range pks {
		op.Columns = append(op.Columns, ColumnRef{Alias: cur.alias, Attr: pk, Target: pk.Name})
	}
	return op, nil
}
