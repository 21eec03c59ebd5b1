package store

import "errors"

var (
	// ErrNotFound is returned when an operation names a task id the store
	// does not hold.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidParent is returned when a task is created under a parent id
	// the store does not hold.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrValidation is returned when a field value is rejected, such as a
	// blank name.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrDuplicateID is returned by Restore when two records share an id.
	ErrDuplicateID = errors.New("duplicate task id")

	errIDExhausted = errors.New("id generator keeps returning used ids")
)
