package meta

import "fmt"

// Accessor reads and writes one property of a persistent object.
type Accessor interface {
	Get(obj any) (any, error)
	Set(obj any, value any) error
}

// FieldAccessor adapts a typed getter and setter pair into an Accessor.
// Register one per property at setup time:
//
//	artist.SetAccessor("name", meta.FieldAccessor[*Artist, string]{
//		Getter: func(a *Artist) string { return a.Name },
//		Setter: func(a *Artist, v string) { a.Name = v },
//	})
type FieldAccessor[T any, V any] struct {
	Getter func(T) V
	Setter func(T, V)
}

// Get implements Accessor.
func (f FieldAccessor[T, V]) Get(obj any) (any, error) {
	t, ok := obj.(T)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrAccessor, obj)
	}
	if f.Getter == nil {
		return nil, fmt.Errorf("%w: property is write-only", ErrAccessor)
	}
	return f.Getter(t), nil
}

// Set implements Accessor. A nil value sets the zero value of V.
func (f FieldAccessor[T, V]) Set(obj any, value any) error {
	t, ok := obj.(T)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrAccessor, obj)
	}
	if f.Setter == nil {
		return fmt.Errorf("%w: property is read-only", ErrAccessor)
	}
	var v V
	if value != nil {
		v, ok = value.(V)
		if !ok {
			return fmt.Errorf("%w: cannot assign %T to %T", ErrAccessor, value, v)
		}
	}
	f.Setter(t, v)
	return nil
}

// DataObjectAccessor accesses a named property of a *DataObject.
type DataObjectAccessor string

// Get implements Accessor.
func (p DataObjectAccessor) Get(obj any) (any, error) {
	d, ok := obj.(*DataObject)
	if !ok {
		return nil, fmt.Errorf("%w: %q expects *meta.DataObject, got %T", ErrAccessor, string(p), obj)
	}
	return d.Get(string(p)), nil
}

// Set implements Accessor.
func (p DataObjectAccessor) Set(obj any, value any) error {
	d, ok := obj.(*DataObject)
	if !ok {
		return fmt.Errorf("%w: %q expects *meta.DataObject, got %T", ErrAccessor, string(p), obj)
	}
	d.Set(string(p), value)
	return nil
}
