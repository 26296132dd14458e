package result

import (
	"fmt"

	"github.com/satishbabariya/objgraph/meta"
)

// SegmentKind distinguishes the parts of a result shape.
type SegmentKind int

const (
	// SegmentScalar is a single column value.
	SegmentScalar SegmentKind = iota
	// SegmentEntity is the column set of one object entity.
	SegmentEntity
)

// Column describes one selected column.
type Column struct {
	// Label is the column name as the cursor reports it.
	Label string
	// DbAttr is the source column, nil for computed expressions.
	DbAttr *meta.DbAttribute
	// ObjAttr is the object property fed by the column. Nil for key and
	// discriminator columns that have no property.
	ObjAttr *meta.ObjAttribute
}

// Segment is a contiguous run of row columns read by one reader.
type Segment struct {
	Kind    SegmentKind
	Entity  *meta.ObjEntity
	Offset  int
	Columns []Column
}

// Shape describes how a result row splits into segments.
type Shape struct {
	Segments []Segment
}

// Width is the total number of columns.
func (s Shape) Width() int {
	n := 0
	for _, seg := range s.Segments {
		n += len(seg.Columns)
	}
	return n
}

// Coercer converts driver values to the Go type of a column.
// Every dialect.Adapter satisfies it.
type Coercer interface {
	CoerceValue(attr *meta.DbAttribute, v any) (any, error)
}

func coerce(c Coercer, attr *meta.DbAttribute, v any) (any, error) {
	if c == nil || attr == nil {
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return v, nil
	}
	return c.CoerceValue(attr, v)
}

// ScalarReader reads the single column of a scalar segment.
type ScalarReader struct {
	seg     Segment
	coercer Coercer
}

func NewScalarReader(seg Segment, c Coercer) *ScalarReader {
	return &ScalarReader{seg: seg, coercer: c}
}

func (r *ScalarReader) ReadRow(row Row) (any, error) {
	if r.seg.Offset >= row.Len() {
		return nil, fmt.Errorf("scalar column %d missing from a row of %d columns", r.seg.Offset, row.Len())
	}
	var attr *meta.DbAttribute
	if len(r.seg.Columns) > 0 {
		attr = r.seg.Columns[0].DbAttr
	}
	return coerce(r.coercer, attr, row.Values[r.seg.Offset])
}

// EntityReader builds one object of a fixed entity per row and marks it
// committed with an ObjectID from the primary key columns.
type EntityReader struct {
	entity  *meta.ObjEntity
	seg     Segment
	coercer Coercer
}

func NewEntityReader(seg Segment, c Coercer) *EntityReader {
	return &EntityReader{entity: seg.Entity, seg: seg, coercer: c}
}

func (r *EntityReader) ReadRow(row Row) (any, error) {
	return readEntity(r.entity, r.seg, row, r.coercer)
}

func readEntity(entity *meta.ObjEntity, seg Segment, row Row, c Coercer) (any, error) {
	if seg.Offset+len(seg.Columns) > row.Len() {
		return nil, &MappingError{Entity: entity.Name, Msg: fmt.Sprintf("row has %d columns, segment needs %d", row.Len(), seg.Offset+len(seg.Columns))}
	}

	obj := entity.NewObject()
	table := entity.DbEntity()
	id := meta.ObjectID{Entity: entity.Name}

	for i, col := range seg.Columns {
		raw := row.Values[seg.Offset+i]
		v, err := coerce(c, col.DbAttr, raw)
		if err != nil {
			return nil, &MappingError{Entity: entity.Name, Column: col.Label, Value: raw, Msg: err.Error()}
		}

		if col.DbAttr != nil && col.DbAttr.PrimaryKey && col.DbAttr.Entity() == table {
			id.Columns = append(id.Columns, col.DbAttr.Name)
			id.Values = append(id.Values, v)
		}
		if col.ObjAttr == nil {
			continue
		}
		// Attributes of sibling entities in a shared table are not ours.
		if entity.Attribute(col.ObjAttr.Name) == nil {
			continue
		}
		if err := entity.Accessor(col.ObjAttr.Name).Set(obj, v); err != nil {
			return nil, &MappingError{Entity: entity.Name, Column: col.Label, Value: v, Msg: err.Error()}
		}
	}

	if p, ok := obj.(meta.Persistent); ok {
		p.SetObjectID(id)
		p.SetPersistenceState(meta.Committed)
	}
	return obj, nil
}

// InheritanceReader reads the discriminator column first and builds the
// concrete entity it names.
type InheritanceReader struct {
	root    *meta.ObjEntity
	seg     Segment
	coercer Coercer
	discIdx int
	byValue map[string]*meta.ObjEntity
}

// NewInheritanceReader indexes every concrete entity below seg.Entity by its
// discriminator value. The segment must include the discriminator column.
func NewInheritanceReader(seg Segment, c Coercer) (*InheritanceReader, error) {
	root := seg.Entity
	column := root.DiscriminatorColumn()
	r := &InheritanceReader{root: root, seg: seg, coercer: c, discIdx: -1, byValue: map[string]*meta.ObjEntity{}}

	for i, col := range seg.Columns {
		if col.DbAttr != nil && col.DbAttr.Name == column {
			r.discIdx = i
			break
		}
	}
	if r.discIdx < 0 {
		return nil, &MappingError{Entity: root.Name, Column: column, Msg: "discriminator column is not selected"}
	}

	var index func(e *meta.ObjEntity)
	index = func(e *meta.ObjEntity) {
		if e.DiscriminatorValue != "" {
			r.byValue[e.DiscriminatorValue] = e
		}
		for _, sub := range e.SubEntities() {
			index(sub)
		}
	}
	index(root)
	return r, nil
}

func (r *InheritanceReader) ReadRow(row Row) (any, error) {
	pos := r.seg.Offset + r.discIdx
	if pos >= row.Len() {
		return nil, &MappingError{Entity: r.root.Name, Msg: "discriminator column missing from row"}
	}
	raw := row.Values[pos]
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	label := r.seg.Columns[r.discIdx].Label
	if raw == nil {
		return nil, &MappingError{Entity: r.root.Name, Column: label, Value: raw, Msg: "null discriminator"}
	}
	entity, ok := r.byValue[fmt.Sprint(raw)]
	if !ok {
		return nil, &MappingError{Entity: r.root.Name, Column: label, Value: raw, Msg: "no entity is mapped to this discriminator value"}
	}
	return readEntity(entity, r.seg, row, r.coercer)
}

// CompoundReader reads several segments into one []any per row.
type CompoundReader struct {
	readers []RowReader[any]
}

func NewCompoundReader(readers ...RowReader[any]) *CompoundReader {
	return &CompoundReader{readers: readers}
}

func (r *CompoundReader) ReadRow(row Row) (any, error) {
	out := make([]any, len(r.readers))
	for i, rd := range r.readers {
		v, err := rd.ReadRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SelectReader picks the reader for a shape: scalar for a single column,
// entity or inheritance-aware for a single entity, compound otherwise.
func SelectReader(shape Shape, c Coercer) (RowReader[any], error) {
	if len(shape.Segments) == 0 {
		return nil, fmt.Errorf("result shape has no segments")
	}
	readers := make([]RowReader[any], len(shape.Segments))
	for i, seg := range shape.Segments {
		rd, err := segmentReader(seg, c)
		if err != nil {
			return nil, err
		}
		readers[i] = rd
	}
	if len(readers) == 1 {
		return readers[0], nil
	}
	return NewCompoundReader(readers...), nil
}

func segmentReader(seg Segment, c Coercer) (RowReader[any], error) {
	switch seg.Kind {
	case SegmentScalar:
		return NewScalarReader(seg, c), nil
	case SegmentEntity:
		if seg.Entity == nil {
			return nil, fmt.Errorf("entity segment at column %d has no entity", seg.Offset)
		}
		if seg.Entity.HasInheritance() && len(seg.Entity.SubEntities()) > 0 {
			return NewInheritanceReader(seg, c)
		}
		return NewEntityReader(seg, c), nil
	}
	return nil, fmt.Errorf("unknown segment kind %d", seg.Kind)
}
