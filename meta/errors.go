package meta

import "errors"

var (
	// ErrUnknownEntity is returned when a mapping references a missing entity.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrUnknownAttribute is returned when a mapping references a missing column or property.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrUnknownRelationship is returned when a path references a missing relationship.
	ErrUnknownRelationship = errors.New("unknown relationship")
	// ErrInvalidMapping is returned for structurally invalid mappings.
	ErrInvalidMapping = errors.New("invalid mapping")
	// ErrAccessor is returned when an accessor is applied to the wrong type.
	ErrAccessor = errors.New("property accessor mismatch")
)
