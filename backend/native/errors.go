package native

import "errors"

// Package errors for the HAL backend.
var (
	// ErrNilDevice is returned when the device or queue is nil.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// HAL types.
	ErrProviderNotHAL = errors.New("native: provider does not expose HAL device and queue")

	// ErrNoActivePass is returned by Draw outside BeginPass/EndPass.
	ErrNoActivePass = errors.New("native: no active render pass")

	// ErrPassActive is returned by BeginPass while a pass is open.
	ErrPassActive = errors.New("native: render pass already active")

	// ErrInvalidTarget is returned for a nil view or zero-sized target.
	ErrInvalidTarget = errors.New("native: invalid render target")

	// ErrDestroyed is returned after Destroy.
	ErrDestroyed = errors.New("native: adapter destroyed")
)
