package dialect

import "errors"

var (
	// ErrUnknownAdapter is returned by ByName and Detect.
	ErrUnknownAdapter = errors.New("unknown database adapter")
	// ErrUnsupportedType is returned for column types a dialect cannot render.
	ErrUnsupportedType = errors.New("unsupported column type")
	// ErrInvalidDDL is returned for entities that cannot be rendered as DDL.
	ErrInvalidDDL = errors.New("invalid DDL request")
	// ErrCoercion is returned when a driver value cannot be converted.
	ErrCoercion = errors.New("value coercion failed")
)
