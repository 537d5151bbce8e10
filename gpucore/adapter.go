package gpucore

import (
	"image"

	"github.com/gogpu/gputypes"
)

// GPUAdapter abstracts over GPU backend implementations.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and are never reused
//
// State calls (BindProgram, SetBlendState, SetScissor) affect subsequent
// Draw calls until changed. Implementations need not be safe for
// concurrent use; a batch drives its adapter from one goroutine.
type GPUAdapter interface {
	// MaxBufferSize returns the maximum buffer size in bytes, or 0 when
	// unlimited.
	MaxBufferSize() uint64

	// === Buffer Management ===

	// CreateBuffer creates a zero-filled GPU buffer of size bytes.
	CreateBuffer(size uint64, usage gputypes.BufferUsage, label string) (BufferID, error)

	// DestroyBuffer releases a GPU buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// WriteBuffer copies data into the buffer at offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// === Programs ===

	// CreateProgram compiles and links a program.
	CreateProgram(desc *ProgramDesc) (ProgramID, error)

	// DestroyProgram releases a program. Unknown IDs are ignored.
	DestroyProgram(id ProgramID)

	// BindProgram makes the program current for subsequent draws.
	BindProgram(id ProgramID) error

	// UnbindProgram clears the current program.
	UnbindProgram(id ProgramID)

	// === Render State ===

	// SetBlendState sets the blend state. Nil disables blending.
	SetBlendState(state *gputypes.BlendState)

	// SetScissor sets the scissor rectangle. Nil disables scissoring.
	SetScissor(rect *image.Rectangle)

	// === Drawing ===

	// Draw issues the command's ranges with the current state.
	Draw(cmd *DrawCommand) error
}
