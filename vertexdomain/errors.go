package vertexdomain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrCapacityExceeded is wrapped by CapacityError when growth would pass
	// the configured maximum capacity.
	ErrCapacityExceeded = errors.New("vertexdomain: capacity exceeded")

	// ErrInvalidHandle is wrapped by InvalidRangeError for unknown, freed or
	// foreign handles.
	ErrInvalidHandle = errors.New("vertexdomain: invalid handle")

	// ErrStaleReference is returned when a buffer reference or attribute view
	// predates a growth event or a move of its list.
	ErrStaleReference = errors.New("vertexdomain: stale reference")

	// ErrIndexOutOfRange is returned for indices not addressing a vertex of
	// their own list.
	ErrIndexOutOfRange = errors.New("vertexdomain: index out of range")

	// ErrNotIndexed is returned for index operations on a non-indexed domain.
	ErrNotIndexed = errors.New("vertexdomain: domain is not indexed")

	// ErrIncompatibleDomain is returned when migrating between domains with
	// different schemas, topologies or indexing.
	ErrIncompatibleDomain = errors.New("vertexdomain: incompatible domain")

	// ErrClosed is returned by operations on a closed domain.
	ErrClosed = errors.New("vertexdomain: domain closed")
)

// CapacityError reports that the backing store could not grow. No partial
// allocation is committed when it is returned.
type CapacityError struct {
	// Domain is the domain label.
	Domain string

	// Capacity is the capacity before the failed growth.
	Capacity int

	// Requested is the capacity the growth attempted to reach.
	Requested int

	// Err is ErrCapacityExceeded or the backend error.
	Err error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("vertexdomain: %s: cannot grow from %d to %d: %v", e.Domain, e.Capacity, e.Requested, e.Err)
}

func (e *CapacityError) Unwrap() error { return e.Err }

// InvalidRangeError reports an operation on a handle the domain does not
// consider live.
type InvalidRangeError struct {
	Op     string
	Handle Handle
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("vertexdomain: %s: invalid handle %v", e.Op, e.Handle)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidHandle }
