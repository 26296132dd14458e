package translator

import "fmt"

// Error is a translation failure with the path and entity it concerns.
type Error struct {
	Path   string
	Entity string
	Msg    string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (path '%s')", e.Msg, e.Path)
}

func errorf(path, entity, format string, args ...any) *Error {
	return &Error{Path: path, Entity: entity, Msg: fmt.Sprintf(format, args...)}
}
