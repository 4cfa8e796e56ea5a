package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrStaleStatus is returned when a conditional update matched zero
	// rows: the row no longer carries the expected status (or, for
	// delivery accepts, already has a courier).
	ErrStaleStatus = errors.New("row status changed")

	// ErrInsufficientStock is returned when a conditional decrement
	// would push a stock quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicate is returned on unique-constraint violations
	ErrDuplicate = errors.New("duplicate row")
)
