package meta

import (
	"fmt"
	"sort"
)

// DataMap is a named group of tables and object entities.
type DataMap struct {
	Name        string       `yaml:"name"`
	DbEntities  []*DbEntity  `yaml:"dbEntities"`
	ObjEntities []*ObjEntity `yaml:"objEntities"`
}

// EntityResolver is the lookup index over one or more DataMaps. It is
// read-only once built and safe for concurrent use.
type EntityResolver struct {
	maps   []*DataMap
	tables map[string]*DbEntity
	objs   map[string]*ObjEntity
}

// NewEntityResolver links every relationship, inheritance edge and attribute
// path across maps and validates the result.
func NewEntityResolver(maps ...*DataMap) (*EntityResolver, error) {
	r := &EntityResolver{
		maps:   maps,
		tables: make(map[string]*DbEntity),
		objs:   make(map[string]*ObjEntity),
	}

	for _, m := range maps {
		for _, t := range m.DbEntities {
			if _, dup := r.tables[t.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate db entity %q", ErrInvalidMapping, t.Name)
			}
			t.index()
			r.tables[t.Name] = t
		}
		for _, o := range m.ObjEntities {
			if _, dup := r.objs[o.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate object entity %q", ErrInvalidMapping, o.Name)
			}
			o.subs = nil
			r.objs[o.Name] = o
		}
	}

	for _, t := range r.tables {
		if err := t.resolve(r.tables); err != nil {
			return nil, err
		}
	}
	for _, name := range r.objNames() {
		if err := r.objs[name].resolve(r); err != nil {
			return nil, err
		}
	}
	for _, name := range r.objNames() {
		if err := r.objs[name].validate(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// objNames returns entity names sorted so linking is deterministic.
func (r *EntityResolver) objNames() []string {
	names := make([]string, 0, len(r.objs))
	for n := range r.objs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DataMaps returns the maps the resolver was built from.
func (r *EntityResolver) DataMaps() []*DataMap { return r.maps }

// DbEntity looks up a table by name.
func (r *EntityResolver) DbEntity(name string) *DbEntity { return r.tables[name] }

// ObjEntity looks up an object entity by name.
func (r *EntityResolver) ObjEntity(name string) *ObjEntity { return r.objs[name] }

// DbEntities returns every table sorted by name.
func (r *EntityResolver) DbEntities() []*DbEntity {
	out := make([]*DbEntity, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ObjEntities returns every object entity sorted by name.
func (r *EntityResolver) ObjEntities() []*ObjEntity {
	names := r.objNames()
	out := make([]*ObjEntity, len(names))
	for i, n := range names {
		out[i] = r.objs[n]
	}
	return out
}

// LookupObjEntity is ObjEntity with an error for unknown names.
func (r *EntityResolver) LookupObjEntity(name string) (*ObjEntity, error) {
	if e := r.objs[name]; e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
}
