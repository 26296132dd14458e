package exp

import "errors"

var (
	// ErrSyntax is returned for unparseable qualifier text.
	ErrSyntax = errors.New("invalid qualifier syntax")
	// ErrUnboundParam is returned when Bind is missing a parameter value.
	ErrUnboundParam = errors.New("unbound parameter")
)
