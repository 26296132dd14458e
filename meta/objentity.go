package meta

import (
	"fmt"
	"strings"
)

// ObjAttribute maps an object property to a column, possibly through
// relationships ("toArtist.ARTIST_NAME").
type ObjAttribute struct {
	Name   string `yaml:"name"`
	DbPath string `yaml:"dbPath"`
	// Type is a hint for value coercion: string, int, int64, float64, bool, time, bytes.
	Type string `yaml:"type,omitempty"`

	entity *ObjEntity
}

// Entity returns the declaring object entity.
func (a *ObjAttribute) Entity() *ObjEntity { return a.entity }

// IsFlattened reports whether the attribute is reached through relationships.
func (a *ObjAttribute) IsFlattened() bool {
	return strings.Contains(a.DbPath, ".")
}

// DbAttribute resolves the terminal column, following any relationships.
func (a *ObjAttribute) DbAttribute() *DbAttribute {
	table := a.entity.DbEntity()
	if table == nil {
		return nil
	}
	parts := strings.Split(a.DbPath, ".")
	for _, rel := range parts[:len(parts)-1] {
		r := table.Relationship(rel)
		if r == nil {
			return nil
		}
		table = r.Target()
	}
	return table.Attribute(parts[len(parts)-1])
}

// DbRelationships returns the relationships a flattened attribute passes
// through, in path order.
func (a *ObjAttribute) DbRelationships() []*DbRelationship {
	table := a.entity.DbEntity()
	parts := strings.Split(a.DbPath, ".")
	rels := make([]*DbRelationship, 0, len(parts)-1)
	for _, name := range parts[:len(parts)-1] {
		r := table.Relationship(name)
		if r == nil {
			return nil
		}
		rels = append(rels, r)
		table = r.Target()
	}
	return rels
}

// ObjRelationship is an object-level relationship backed by one or more
// table relationships. More than one makes it flattened.
type ObjRelationship struct {
	Name       string `yaml:"name"`
	TargetName string `yaml:"target"`
	DbPath     string `yaml:"dbPath"`

	source *ObjEntity
	target *ObjEntity
	dbRels []*DbRelationship
}

// Source returns the declaring entity.
func (r *ObjRelationship) Source() *ObjEntity { return r.source }

// Target returns the target entity.
func (r *ObjRelationship) Target() *ObjEntity { return r.target }

// DbRelationships returns the underlying table relationships in path order.
func (r *ObjRelationship) DbRelationships() []*DbRelationship { return r.dbRels }

// IsFlattened reports whether more than one table relationship is involved.
func (r *ObjRelationship) IsFlattened() bool { return len(r.dbRels) > 1 }

// IsToMany reports whether any hop is to-many.
func (r *ObjRelationship) IsToMany() bool {
	for _, d := range r.dbRels {
		if d.ToMany {
			return true
		}
	}
	return false
}

// ObjEntity maps a persistent object type to a table.
type ObjEntity struct {
	Name          string             `yaml:"name"`
	DbEntityName  string             `yaml:"dbEntity"`
	SuperName     string             `yaml:"superEntity,omitempty"`
	Attributes    []*ObjAttribute    `yaml:"attributes,omitempty"`
	Relationships []*ObjRelationship `yaml:"relationships,omitempty"`

	// Discriminator is the column whose value selects the concrete entity of
	// an inheritance hierarchy. Declared on the root, inherited by subentities.
	Discriminator string `yaml:"discriminator,omitempty"`
	// DiscriminatorValue identifies rows of this entity. Empty marks an
	// abstract entity.
	DiscriminatorValue string `yaml:"discriminatorValue,omitempty"`

	// Factory creates a new instance. Nil means a *DataObject.
	Factory func() any `yaml:"-"`

	dbEntity  *DbEntity
	super     *ObjEntity
	subs      []*ObjEntity
	accessors map[string]Accessor
}

// DbEntity returns the mapped table.
func (e *ObjEntity) DbEntity() *DbEntity { return e.dbEntity }

// SuperEntity returns the parent entity or nil.
func (e *ObjEntity) SuperEntity() *ObjEntity { return e.super }

// SubEntities returns the direct subentities.
func (e *ObjEntity) SubEntities() []*ObjEntity { return e.subs }

// IsInheritanceRoot reports whether e has subentities and no parent.
func (e *ObjEntity) IsInheritanceRoot() bool {
	return e.super == nil && len(e.subs) > 0
}

// HasInheritance reports whether e takes part in a hierarchy.
func (e *ObjEntity) HasInheritance() bool {
	return e.super != nil || len(e.subs) > 0
}

// DiscriminatorColumn returns the discriminator declared on e or its ancestors.
func (e *ObjEntity) DiscriminatorColumn() string {
	for cur := e; cur != nil; cur = cur.super {
		if cur.Discriminator != "" {
			return cur.Discriminator
		}
	}
	return ""
}

// Attribute looks up an attribute on e and then its ancestors.
func (e *ObjEntity) Attribute(name string) *ObjAttribute {
	for cur := e; cur != nil; cur = cur.super {
		for _, a := range cur.Attributes {
			if a.Name == name {
				return a
			}
		}
	}
	return nil
}

// Relationship looks up a relationship on e and then its ancestors.
func (e *ObjEntity) Relationship(name string) *ObjRelationship {
	for cur := e; cur != nil; cur = cur.super {
		for _, r := range cur.Relationships {
			if r.Name == name {
				return r
			}
		}
	}
	return nil
}

// AllAttributes returns inherited attributes first, then e's own.
func (e *ObjEntity) AllAttributes() []*ObjAttribute {
	if e.super == nil {
		return e.Attributes
	}
	out := append([]*ObjAttribute(nil), e.super.AllAttributes()...)
	return append(out, e.Attributes...)
}

// AllRelationships returns inherited relationships first, then e's own.
func (e *ObjEntity) AllRelationships() []*ObjRelationship {
	if e.super == nil {
		return e.Relationships
	}
	out := append([]*ObjRelationship(nil), e.super.AllRelationships()...)
	return append(out, e.Relationships...)
}

// SetAccessor registers the accessor used for property name.
func (e *ObjEntity) SetAccessor(name string, a Accessor) {
	if e.accessors == nil {
		e.accessors = make(map[string]Accessor)
	}
	e.accessors[name] = a
}

// Accessor returns the registered accessor for a property, walking up the
// hierarchy, or a DataObject accessor when none is registered.
func (e *ObjEntity) Accessor(name string) Accessor {
	for cur := e; cur != nil; cur = cur.super {
		if a, ok := cur.accessors[name]; ok {
			return a
		}
	}
	return DataObjectAccessor(name)
}

// NewObject instantiates the entity.
func (e *ObjEntity) NewObject() any {
	for cur := e; cur != nil; cur = cur.super {
		if cur.Factory != nil {
			return cur.Factory()
		}
	}
	return NewDataObject(e.Name)
}

func (e *ObjEntity) resolve(r *EntityResolver) error {
	table := r.DbEntity(e.DbEntityName)
	if table == nil {
		return fmt.Errorf("%w: object entity %s maps to %q", ErrUnknownEntity, e.Name, e.DbEntityName)
	}
	e.dbEntity = table

	if e.SuperName != "" {
		super := r.ObjEntity(e.SuperName)
		if super == nil {
			return fmt.Errorf("%w: %s extends %q", ErrUnknownEntity, e.Name, e.SuperName)
		}
		e.super = super
		super.subs = append(super.subs, e)
	}

	for _, a := range e.Attributes {
		a.entity = e
	}
	for _, rel := range e.Relationships {
		rel.source = e
		rel.target = r.ObjEntity(rel.TargetName)
		if rel.target == nil {
			return fmt.Errorf("%w: relationship %s.%s targets %q", ErrUnknownEntity, e.Name, rel.Name, rel.TargetName)
		}
		rel.dbRels = rel.dbRels[:0]
		cur := table
		for _, hop := range strings.Split(rel.DbPath, ".") {
			d := cur.Relationship(hop)
			if d == nil {
				return fmt.Errorf("%w: %s.%s path %q at %q", ErrUnknownRelationship, e.Name, rel.Name, rel.DbPath, hop)
			}
			rel.dbRels = append(rel.dbRels, d)
			cur = d.Target()
		}
	}
	return nil
}

func (e *ObjEntity) validate() error {
	for _, a := range e.Attributes {
		if a.DbAttribute() == nil {
			return fmt.Errorf("%w: %s.%s maps to %q", ErrUnknownAttribute, e.Name, a.Name, a.DbPath)
		}
	}
	if e.HasInheritance() && e.DiscriminatorColumn() == "" {
		return fmt.Errorf("%w: %s takes part in inheritance without a discriminator", ErrInvalidMapping, e.Name)
	}
	return nil
}
