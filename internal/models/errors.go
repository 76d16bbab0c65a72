package models

import "errors"

var (
	// ErrNotFound is returned when no document matches an id
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned when an id is not well-formed for the store
	ErrInvalidID = errors.New("invalid id")

	// ErrDuplicateSlug is returned when a category slug is already taken
	ErrDuplicateSlug = errors.New("slug already exists")
)
