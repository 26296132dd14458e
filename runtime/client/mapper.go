package client

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
)

// Record is embedded in mapped structs to make them persistent:
//
//	type Artist struct {
//		client.Record
//		Name string `db:"artistName"`
//	}
type Record struct {
	id    meta.ObjectID
	state meta.PersistenceState
}

func (r *Record) ObjectID() meta.ObjectID                 { return r.id }
func (r *Record) SetObjectID(id meta.ObjectID)            { r.id = id }
func (r *Record) PersistenceState() meta.PersistenceState { return r.state }

func (r *Record) SetPersistenceState(s meta.PersistenceState) { r.state = s }

var persistentType = reflect.TypeOf((*meta.Persistent)(nil)).Elem()

// Bind maps struct T to an entity: results of the entity are created as *T
// and committed *T values resolve to it. Properties match exported fields by
// db tag, then by name ignoring case; unmatched properties are not read or
// written. Bind every concrete entity of a hierarchy separately, before the
// client is used.
func Bind[T any](c *Client, entity string) error {
	e, err := c.resolver.LookupObjEntity(entity)
	if err != nil {
		return err
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("binding %s: %s is not a struct", entity, typ)
	}
	if !reflect.PointerTo(typ).Implements(persistentType) {
		return fmt.Errorf("binding %s: *%s does not implement meta.Persistent, embed client.Record", entity, typ)
	}

	var names []string
	for _, a := range e.AllAttributes() {
		names = append(names, a.Name)
	}
	for _, r := range e.AllRelationships() {
		names = append(names, r.Name)
	}
	for _, name := range names {
		field, ok := findFieldByName(typ, name)
		if !ok {
			c.log.Debug("property has no field", "entity", entity, "property", name, "type", typ.String())
			continue
		}
		e.SetAccessor(name, fieldAccessor{index: field.Index, name: field.Name})
	}
	e.Factory = func() any { return reflect.New(typ).Interface() }

	c.mu.Lock()
	c.types[reflect.PointerTo(typ)] = e
	c.mu.Unlock()
	return nil
}

// findFieldByName finds an exported field by db tag or case-insensitive name.
func findFieldByName(typ reflect.Type, name string) (reflect.StructField, bool) {
	var byName *reflect.StructField
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		if tag, _, _ := strings.Cut(field.Tag.Get("db"), ","); tag != "" {
			if tag == name {
				return field, true
			}
			continue
		}
		if byName == nil && strings.EqualFold(field.Name, name) {
			byName = &field
		}
	}
	if byName != nil {
		return *byName, true
	}
	return reflect.StructField{}, false
}

// fieldAccessor reads and writes a struct field through a pointer.
type fieldAccessor struct {
	index []int
	name  string
}

func (f fieldAccessor) field(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: field %s needs a struct pointer, got %T", meta.ErrAccessor, f.name, obj)
	}
	return v.Elem().FieldByIndex(f.index), nil
}

func (f fieldAccessor) Get(obj any) (any, error) {
	fv, err := f.field(obj)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

func (f fieldAccessor) Set(obj any, value any) error {
	fv, err := f.field(obj)
	if err != nil {
		return err
	}
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)
	ft := fv.Type()
	switch {
	case rv.Type().AssignableTo(ft):
		fv.Set(rv)
	case ft.Kind() == reflect.Pointer && rv.Type().AssignableTo(ft.Elem()):
		p := reflect.New(ft.Elem())
		p.Elem().Set(rv)
		fv.Set(p)
	case convertible(rv.Type(), ft):
		fv.Set(rv.Convert(ft))
	default:
		return fmt.Errorf("%w: cannot assign %T to field %s (%s)", meta.ErrAccessor, value, f.name, ft)
	}
	return nil
}

// convertible allows numeric conversions and same-kind conversions, never
// integer to string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	return isNumeric(from.Kind()) && isNumeric(to.Kind()) || from.Kind() == to.Kind()
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
