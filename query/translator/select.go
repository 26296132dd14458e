package translator

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/dialect"
	"github.com/satishbabariya/objgraph/query/exp"
	"github.com/satishbabariya/objgraph/query/result"
)

// RootVariable is the identification variable bound to the queried entity.
const RootVariable = "this"

var aggregates = map[string]bool{"count": true, "sum": true, "avg": true, "min": true, "max": true}

// Select describes a query against one root entity.
type Select struct {
	Root      *meta.ObjEntity
	Qualifier *exp.Node
	Orderings []exp.Ordering
	Distinct  bool
	Limit     int
	Offset    int
	// Columns selects expressions instead of the root entity.
	Columns []*exp.Node
	// WithEntity keeps the root entity ahead of Columns in each row.
	WithEntity bool
}

// Statement is a translated select.
type Statement struct {
	SQL   string
	Args  []any
	Shape result.Shape
	// DistinctKey lists the key column labels to de-duplicate on in memory
	// when to-many joins repeat rows and SQL DISTINCT is not usable.
	DistinctKey []string
	// Offset and Limit are the pagination the caller applies in memory
	// because the SQL does not carry it.
	Offset int
	Limit  int
}

type selectTranslator struct {
	ctx     *Context
	qual    *QualifierTranslator
	sel     Select
	columns []string
	shape   result.Shape
	lobs    bool
}

// Translate builds the SELECT statement for sel.
func Translate(adapter dialect.Adapter, sel Select) (*Statement, error) {
	if sel.Root == nil {
		return nil, fmt.Errorf("select has no root entity")
	}
	ctx := NewContext(adapter)
	ctx.AddRoot(RootVariable, sel.Root)
	t := &selectTranslator{ctx: ctx, qual: NewQualifierTranslator(ctx, RootVariable), sel: sel}
	return t.translate()
}

func (t *selectTranslator) translate() (*Statement, error) {
	sel := t.sel
	entityResult := len(sel.Columns) == 0 || sel.WithEntity
	if entityResult {
		if err := t.entityColumns(); err != nil {
			return nil, err
		}
	}
	grouped, err := t.resultColumns()
	if err != nil {
		return nil, err
	}

	where, err := t.qual.Translate(t.qualifier())
	if err != nil {
		return nil, err
	}

	var orderBy []string
	for _, o := range sel.Orderings {
		clauses, err := t.ordering(o)
		if err != nil {
			return nil, err
		}
		orderBy = append(orderBy, clauses...)
	}

	stmt := &Statement{Shape: t.shape}
	distinct := sel.Distinct
	if entityResult && !grouped && t.ctx.JoinsToMany() {
		if t.lobs {
			for _, seg := range t.shape.Segments {
				if seg.Kind != result.SegmentEntity {
					continue
				}
				for _, c := range seg.Columns {
					if c.DbAttr != nil && c.DbAttr.PrimaryKey && c.DbAttr.Entity() == sel.Root.DbEntity() {
						stmt.DistinctKey = append(stmt.DistinctKey, c.Label)
					}
				}
			}
		} else {
			distinct = true
		}
	}

	if distinct && !grouped {
		t.selectOrderings(orderBy)
	}

	from, err := t.ctx.From()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(t.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if grouped {
		if groupBy := t.groupBy(); len(groupBy) > 0 {
			sb.WriteString(" GROUP BY ")
			sb.WriteString(strings.Join(groupBy, ", "))
		}
	}
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderBy, ", "))
	}

	sql := sb.String()
	switch {
	case len(stmt.DistinctKey) > 0:
		stmt.Offset, stmt.Limit = sel.Offset, sel.Limit
	case sel.Offset > 0 && !t.ctx.adapter.SupportsOffset():
		sql = t.ctx.adapter.ApplyPagination(sql, sel.Limit, sel.Offset)
		stmt.Offset, stmt.Limit = sel.Offset, sel.Limit
	default:
		sql = t.ctx.adapter.ApplyPagination(sql, sel.Limit, sel.Offset)
	}

	stmt.SQL = sql
	stmt.Args = t.ctx.Args()
	return stmt, nil
}

// qualifier adds the discriminator restriction of a subentity.
func (t *selectTranslator) qualifier() *exp.Node {
	root := t.sel.Root
	column := root.DiscriminatorColumn()
	if column == "" || root.SuperEntity() == nil {
		return t.sel.Qualifier
	}
	var values []*exp.Node
	var collect func(e *meta.ObjEntity)
	collect = func(e *meta.ObjEntity) {
		if e.DiscriminatorValue != "" {
			values = append(values, exp.Val(e.DiscriminatorValue))
		}
		for _, s := range e.SubEntities() {
			collect(s)
		}
	}
	collect(root)
	return exp.And(exp.In(exp.DbPath(column), values...), t.sel.Qualifier)
}

// entityColumns selects the key, the attributes of the root and every
// subentity below it and the discriminator.
func (t *selectTranslator) entityColumns() error {
	root := t.sel.Root
	_, alias, _ := t.ctx.Root(RootVariable)
	table := root.DbEntity()
	seg := result.Segment{Kind: result.SegmentEntity, Entity: root, Offset: len(t.columns)}
	seen := map[string]bool{}

	addColumn := func(ref ColumnRef, attr *meta.ObjAttribute, label string) {
		key := ref.Alias + "." + ref.Attr.Name
		if seen[key] {
			return
		}
		seen[key] = true
		sql := t.ctx.Column(ref)
		if ref.Alias != alias {
			sql += " AS " + t.ctx.adapter.QuoteIdentifier(label)
		}
		t.columns = append(t.columns, sql)
		seg.Columns = append(seg.Columns, result.Column{Label: label, DbAttr: ref.Attr, ObjAttr: attr})
		if ref.Attr.Type == meta.TypeBlob || ref.Attr.Type == meta.TypeClob {
			t.lobs = true
		}
	}

	for _, pk := range table.PrimaryKeys() {
		addColumn(ColumnRef{Alias: alias, Attr: pk}, nil, pk.Name)
	}
	if d := root.DiscriminatorColumn(); d != "" {
		attr := table.Attribute(d)
		if attr == nil {
			return errorf("", root.Name, "discriminator column '%s' is not in table '%s'", d, table.Name)
		}
		addColumn(ColumnRef{Alias: alias, Attr: attr}, nil, attr.Name)
	}

	var visit func(e *meta.ObjEntity) error
	visit = func(e *meta.ObjEntity) error {
		for _, attr := range e.AllAttributes() {
			if !attr.IsFlattened() {
				col := attr.DbAttribute()
				if col == nil {
					return errorf(attr.Name, e.Name, "attribute '%s' maps to no column", attr.Name)
				}
				addColumn(ColumnRef{Alias: alias, Attr: col}, attr, col.Name)
				continue
			}
			// Flattened attributes never restrict the root rows.
			op, err := t.qual.paths.attribute(attr, cursor{path: attr.Name, basePath: RootVariable, alias: alias}, true)
			if err != nil {
				return err
			}
			addColumn(op.Columns[0], attr, attr.DbPath)
		}
		for _, sub := range e.SubEntities() {
			if err := visit(sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(root); err != nil {
		return err
	}

	t.shape.Segments = append(t.shape.Segments, seg)
	return nil
}

// resultColumns selects the requested expressions and reports whether they
// aggregate.
func (t *selectTranslator) resultColumns() (bool, error) {
	grouped := false
	for i, col := range t.sel.Columns {
		label := fmt.Sprintf("c%d", i)
		seg := result.Segment{Kind: result.SegmentScalar, Offset: len(t.columns)}
		var sql string
		switch {
		case col.IsPath():
			op, err := t.qual.Path(col)
			if err != nil {
				return false, err
			}
			if op.IsMultiColumn() {
				return false, errorf(op.Path, t.sel.Root.Name, "a compound key cannot be a result column")
			}
			sql = t.ctx.Column(op.Columns[0])
			seg.Columns = []result.Column{{Label: label, DbAttr: op.Columns[0].Attr, ObjAttr: op.ObjAttr}}
		case col.Kind == exp.KindFunction:
			s, err := t.qual.function(col)
			if err != nil {
				return false, err
			}
			if aggregates[strings.ToLower(col.Name)] {
				grouped = true
			}
			sql = s
			seg.Columns = []result.Column{{Label: label}}
		default:
			return false, fmt.Errorf("%s cannot be a result column", col.Kind)
		}
		t.columns = append(t.columns, sql+" AS "+t.ctx.adapter.QuoteIdentifier(label))
		t.shape.Segments = append(t.shape.Segments, seg)
	}
	return grouped, nil
}

// selectOrderings appends ordering expressions missing from a DISTINCT
// select list after the result columns, outside the shape.
func (t *selectTranslator) selectOrderings(orderBy []string) {
	selected := map[string]bool{}
	for _, c := range t.columns {
		selected[stripLabel(c)] = true
	}
	for _, o := range orderBy {
		expr := strings.TrimSuffix(strings.TrimSuffix(o, " ASC"), " DESC")
		if !selected[expr] {
			selected[expr] = true
			t.columns = append(t.columns, expr)
		}
	}
}

// groupBy lists the selected columns that are not aggregates.
func (t *selectTranslator) groupBy() []string {
	var out []string
	for i, seg := range t.shape.Segments {
		if seg.Kind == result.SegmentScalar {
			col := t.sel.Columns[i-t.entitySegments()]
			if col.Kind == exp.KindFunction && aggregates[strings.ToLower(col.Name)] {
				continue
			}
		}
		for j := range seg.Columns {
			out = append(out, stripLabel(t.columns[seg.Offset+j]))
		}
	}
	return out
}

func (t *selectTranslator) entitySegments() int {
	if len(t.sel.Columns) == 0 || t.sel.WithEntity {
		return 1
	}
	return 0
}

func stripLabel(sql string) string {
	if i := strings.LastIndex(sql, " AS "); i >= 0 {
		return sql[:i]
	}
	return sql
}

func (t *selectTranslator) ordering(o exp.Ordering) ([]string, error) {
	path := strings.TrimPrefix(o.Path, "db:")
	node := exp.Path(path)
	if path != o.Path {
		node = exp.DbPath(path)
	}
	op, err := t.qual.Path(node)
	if err != nil {
		return nil, err
	}
	dir := " ASC"
	if o.Descending {
		dir = " DESC"
	}
	out := make([]string, len(op.Columns))
	for i, c := range op.Columns {
		col := t.ctx.Column(c)
		if o.IgnoreCase {
			col = t.ctx.adapter.FunctionName("upper") + "(" + col + ")"
		}
		out[i] = col + dir
	}
	return out, nil
}
