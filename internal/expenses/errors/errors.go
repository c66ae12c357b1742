package errors

import "errors"

var (
	ErrExpenseNotFound = errors.New("shared expense not found")
	ErrTagNotFound     = errors.New("member tag not found")
	ErrShareNotFound   = errors.New("member share not found")
	ErrInvalidID       = errors.New("invalid id format")
)
