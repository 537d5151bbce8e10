package graphics

import "errors"

var (
	// ErrBatchClosed is returned by operations on a closed batch.
	ErrBatchClosed = errors.New("graphics: batch is closed")

	// ErrListNotInBatch is returned when a list is not registered with the batch.
	ErrListNotInBatch = errors.New("graphics: vertex list is not in this batch")

	// ErrInvalidList is returned when a list was already deleted.
	ErrInvalidList = errors.New("graphics: vertex list is not allocated")

	// ErrNilGroup is returned when a nil group is passed where one is required.
	ErrNilGroup = errors.New("graphics: nil group")

	// ErrUnshareable is returned by Interner.Shareable for non-comparable state keys.
	ErrUnshareable = errors.New("graphics: state key is not comparable")
)
