package gpucore

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// ProgramID is an opaque handle to a linked shader program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Adapter errors.
var (
	// ErrUnknownBuffer is returned for IDs that name no live buffer.
	ErrUnknownBuffer = errors.New("gpucore: unknown buffer")

	// ErrUnknownProgram is returned for IDs that name no live program.
	ErrUnknownProgram = errors.New("gpucore: unknown program")

	// ErrProgramNotBound is returned by Draw when the command's program is
	// not the bound one.
	ErrProgramNotBound = errors.New("gpucore: program not bound")

	// ErrBufferTooLarge is returned when a buffer exceeds MaxBufferSize.
	ErrBufferTooLarge = errors.New("gpucore: buffer too large")

	// ErrOutOfBounds is returned for writes or draws past a buffer's end.
	ErrOutOfBounds = errors.New("gpucore: out of bounds")
)

// ProgramDesc describes a shader program.
type ProgramDesc struct {
	// Label is an optional debug label.
	Label string

	// WGSL is the shader source. Adapters compile it with naga.
	WGSL string

	// VertexEntry and FragmentEntry name the entry points.
	VertexEntry   string
	FragmentEntry string

	// Layouts holds one vertex buffer layout per attribute, in slot order.
	Layouts []gputypes.VertexBufferLayout
}

// VertexBuffer binds one attribute buffer to a vertex slot.
type VertexBuffer struct {
	Buffer BufferID
	Layout gputypes.VertexBufferLayout
}

// DrawRange is one contiguous range of a multi-draw. For indexed commands
// First and Count address indices; otherwise they address vertices.
type DrawRange struct {
	First uint32
	Count uint32
}

// End returns the first element past the range.
func (r DrawRange) End() uint32 { return r.First + r.Count }

// DrawCommand is one draw submission against one vertex domain.
type DrawCommand struct {
	// Label is an optional debug label.
	Label string

	// Program is the program the command is drawn with. It must be bound.
	Program ProgramID

	// Topology is the primitive topology.
	Topology gputypes.PrimitiveTopology

	// VertexBuffers holds one buffer per program attribute, in slot order.
	VertexBuffers []VertexBuffer

	// Indexed selects DrawIndexed with IndexBuffer and IndexFormat.
	Indexed     bool
	IndexBuffer BufferID
	IndexFormat gputypes.IndexFormat

	// Ranges are drawn in order.
	Ranges []DrawRange
}

// Elements returns the total number of vertices or indices drawn.
func (c *DrawCommand) Elements() int {
	n := 0
	for _, r := range c.Ranges {
		n += int(r.Count)
	}
	return n
}

// Validate checks the structural consistency of the command.
func (c *DrawCommand) Validate() error {
	if c.Program == InvalidID {
		return fmt.Errorf("%w: draw %q has no program", ErrUnknownProgram, c.Label)
	}
	if len(c.VertexBuffers) == 0 {
		return fmt.Errorf("%w: draw %q has no vertex buffers", ErrUnknownBuffer, c.Label)
	}
	if c.Indexed && c.IndexBuffer == InvalidID {
		return fmt.Errorf("%w: indexed draw %q has no index buffer", ErrUnknownBuffer, c.Label)
	}
	return nil
}

// Clone returns a deep copy of the command.
func (c *DrawCommand) Clone() *DrawCommand {
	out := *c
	out.VertexBuffers = append([]VertexBuffer(nil), c.VertexBuffers...)
	out.Ranges = append([]DrawRange(nil), c.Ranges...)
	return &out
}
