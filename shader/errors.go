package shader

import (
	"errors"
	"fmt"
)

// Schema and program errors.
var (
	// ErrUnknownAttribute is returned when data names an attribute the
	// program does not declare.
	ErrUnknownAttribute = errors.New("shader: unknown attribute")

	// ErrTypeMismatch is returned when attribute data does not match the
	// declared element type or component count.
	ErrTypeMismatch = errors.New("shader: attribute type mismatch")

	// ErrDuplicateAttribute is returned when a schema declares a name or a
	// location twice.
	ErrDuplicateAttribute = errors.New("shader: duplicate attribute")

	// ErrUnsupportedFormat is returned for vertex formats that cannot be
	// written through typed attribute data.
	ErrUnsupportedFormat = errors.New("shader: unsupported vertex format")

	// ErrUnsupportedType is returned by Reflect for vertex inputs whose WGSL
	// type has no vertex format.
	ErrUnsupportedType = errors.New("shader: unsupported vertex input type")

	// ErrNoVertexEntryPoint is returned by Reflect when the module has no
	// matching vertex entry point.
	ErrNoVertexEntryPoint = errors.New("shader: no vertex entry point")

	// ErrInvalidDeclaration is returned by ParseAttribute for malformed
	// declarations.
	ErrInvalidDeclaration = errors.New("shader: invalid attribute declaration")

	// ErrDuplicateProgram is returned when registering a label twice.
	ErrDuplicateProgram = errors.New("shader: duplicate program")

	// ErrUnknownProgram is returned when looking up an unregistered label.
	ErrUnknownProgram = errors.New("shader: unknown program")
)

// IncompatibleFormatError reports a request whose attributes do not match a
// program's schema. It is raised at call time and never coerced.
type IncompatibleFormatError struct {
	// Program is the program label.
	Program string

	// Attribute is the offending attribute name.
	Attribute string

	// Detail is a human-readable explanation.
	Detail string

	// Err is ErrUnknownAttribute or ErrTypeMismatch.
	Err error
}

func (e *IncompatibleFormatError) Error() string {
	msg := fmt.Sprintf("shader: program %q attribute %q: %v", e.Program, e.Attribute, e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *IncompatibleFormatError) Unwrap() error { return e.Err }
