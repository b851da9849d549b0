package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert or update would violate a
	// uniqueness constraint (driverId, cabNumber, bookingId).
	ErrDuplicate = errors.New("duplicate entity")

	// ErrStale is returned when a conditional update found the row in a
	// different state than expected and applied nothing.
	ErrStale = errors.New("entity changed concurrently")
)
