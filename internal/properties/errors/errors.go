package errors

import "errors"

var (
	ErrNotFound = errors.New("property not found")

	ErrInvalidID = errors.New("invalid property ID format")

	ErrDuplicateEmail = errors.New("email already on the roster")

	ErrNotAdmin = errors.New("user is not a property admin")
)
