package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateKey     = errors.New("duplicate project key")
	ErrPermissionDenied = errors.New("permission denied")
	ErrSprintsDisabled  = errors.New("project does not use sprints")
)
