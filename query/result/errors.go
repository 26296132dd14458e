package result

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMoreRows is returned by NextRow and SkipRow at the end of a result.
var ErrNoMoreRows = errors.New("no more rows")

// ReadError wraps every failure reading or materializing a row.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "reading result row: " + e.Err.Error() }

func (e *ReadError) Unwrap() error { return e.Err }

func wrapRead(err error) error {
	var re *ReadError
	if errors.As(err, &re) {
		return err
	}
	return &ReadError{Err: err}
}

// CloseError collects every failure releasing a result's resources.
type CloseError struct {
	Errs []error
}

func (e *CloseError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "closing result: " + strings.Join(msgs, "; ")
}

func (e *CloseError) Unwrap() []error { return e.Errs }

// MappingError reports a row that cannot be turned into an object.
type MappingError struct {
	Entity string
	Column string
	Value  any
	Msg    string
}

func (e *MappingError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("mapping %s: %s", e.Entity, e.Msg)
	}
	return fmt.Sprintf("mapping %s: column %s value %v: %s", e.Entity, e.Column, e.Value, e.Msg)
}
