package client

import "errors"

var (
	// ErrNotFound is returned by SelectOne when nothing matches.
	ErrNotFound = errors.New("no matching object")
	// ErrTooManyResults is returned by SelectOne when more than one object matches.
	ErrTooManyResults = errors.New("more than one object matches")
	// ErrUnmapped means an object's entity cannot be determined.
	ErrUnmapped = errors.New("object is not mapped to an entity")
	// ErrMissingKey means a row cannot be written or matched without a
	// primary key value.
	ErrMissingKey = errors.New("missing primary key value")
	// ErrKeyGeneration means the adapter cannot read back generated keys.
	ErrKeyGeneration = errors.New("cannot read generated key")
	// ErrUnsavedTarget means a relationship points to an object that has no
	// key yet and is not part of the same commit.
	ErrUnsavedTarget = errors.New("relationship target is not saved")
	// ErrAbstractEntity means an object of an abstract entity was inserted.
	ErrAbstractEntity = errors.New("cannot insert abstract entity")
	// ErrResultType means SelectAs found an object of another type.
	ErrResultType = errors.New("unexpected result type")
)
