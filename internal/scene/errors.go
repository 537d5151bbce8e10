package scene

import "errors"

var (
	// ErrInvalidScene is returned for malformed scene files.
	ErrInvalidScene = errors.New("scene: invalid scene")

	// ErrUnknownReference is returned when a group or drawable names a
	// program or group the scene does not declare.
	ErrUnknownReference = errors.New("scene: unknown reference")
)
