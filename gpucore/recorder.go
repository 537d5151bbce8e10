package gpucore

import (
	"encoding/binary"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
)

// OpKind identifies a recorded adapter call.
type OpKind uint8

// Recorded operations.
const (
	OpCreateBuffer OpKind = iota + 1
	OpDestroyBuffer
	OpWriteBuffer
	OpCreateProgram
	OpDestroyProgram
	OpBindProgram
	OpUnbindProgram
	OpSetBlend
	OpSetScissor
	OpDraw
)

// String returns the operation name.
func (k OpKind) String() string {
	switch k {
	case OpCreateBuffer:
		return "CreateBuffer"
	case OpDestroyBuffer:
		return "DestroyBuffer"
	case OpWriteBuffer:
		return "WriteBuffer"
	case OpCreateProgram:
		return "CreateProgram"
	case OpDestroyProgram:
		return "DestroyProgram"
	case OpBindProgram:
		return "BindProgram"
	case OpUnbindProgram:
		return "UnbindProgram"
	case OpSetBlend:
		return "SetBlend"
	case OpSetScissor:
		return "SetScissor"
	case OpDraw:
		return "Draw"
	default:
		return fmt.Sprintf("OpKind(%d)", k)
	}
}

// Op is one recorded adapter call. Only the fields relevant to Kind are set.
type Op struct {
	Kind    OpKind
	Buffer  BufferID
	Program ProgramID
	Offset  uint64
	Size    uint64
	Label   string
	Blend   *gputypes.BlendState
	Scissor *image.Rectangle
	Draw    *DrawCommand
}

type recordedBuffer struct {
	data  []byte
	usage gputypes.BufferUsage
	label string
}

// Recorder is an in-memory GPUAdapter that validates and logs every call.
// It is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	maxBufferSize uint64
	nextID        uint64

	buffers  map[BufferID]*recordedBuffer
	programs map[ProgramID]*ProgramDesc

	bound   ProgramID
	blend   *gputypes.BlendState
	scissor *image.Rectangle

	ops []Op
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMaxBufferSize makes CreateBuffer fail for buffers larger than n bytes.
func WithMaxBufferSize(n uint64) RecorderOption {
	return func(r *Recorder) {
		r.maxBufferSize = n
	}
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		buffers:  make(map[BufferID]*recordedBuffer),
		programs: make(map[ProgramID]*ProgramDesc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetMaxBufferSize changes the buffer size limit. Zero means unlimited.
func (r *Recorder) SetMaxBufferSize(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxBufferSize = n
}

// MaxBufferSize implements GPUAdapter.
func (r *Recorder) MaxBufferSize() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxBufferSize
}

// CreateBuffer implements GPUAdapter.
func (r *Recorder) CreateBuffer(size uint64, usage gputypes.BufferUsage, label string) (BufferID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxBufferSize > 0 && size > r.maxBufferSize {
		return InvalidID, fmt.Errorf("%w: %q needs %d bytes, limit %d", ErrBufferTooLarge, label, size, r.maxBufferSize)
	}
	r.nextID++
	id := BufferID(r.nextID)
	r.buffers[id] = &recordedBuffer{data: make([]byte, size), usage: usage, label: label}
	r.ops = append(r.ops, Op{Kind: OpCreateBuffer, Buffer: id, Size: size, Label: label})
	return id, nil
}

// DestroyBuffer implements GPUAdapter.
func (r *Recorder) DestroyBuffer(id BufferID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buffers[id]; !ok {
		return
	}
	delete(r.buffers, id)
	r.ops = append(r.ops, Op{Kind: OpDestroyBuffer, Buffer: id})
}

// WriteBuffer implements GPUAdapter.
func (r *Recorder) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[id]
	if !ok {
		return fmt.Errorf("%w: write to %d", ErrUnknownBuffer, id)
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("%w: write [%d,+%d) to %q of %d bytes", ErrOutOfBounds, offset, len(data), buf.label, len(buf.data))
	}
	copy(buf.data[offset:], data)
	r.ops = append(r.ops, Op{Kind: OpWriteBuffer, Buffer: id, Offset: offset, Size: uint64(len(data))})
	return nil
}

// CreateProgram implements GPUAdapter.
func (r *Recorder) CreateProgram(desc *ProgramDesc) (ProgramID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := ProgramID(r.nextID)
	d := *desc
	d.Layouts = append([]gputypes.VertexBufferLayout(nil), desc.Layouts...)
	r.programs[id] = &d
	r.ops = append(r.ops, Op{Kind: OpCreateProgram, Program: id, Label: desc.Label})
	return id, nil
}

// DestroyProgram implements GPUAdapter.
func (r *Recorder) DestroyProgram(id ProgramID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.programs[id]; !ok {
		return
	}
	delete(r.programs, id)
	if r.bound == id {
		r.bound = InvalidID
	}
	r.ops = append(r.ops, Op{Kind: OpDestroyProgram, Program: id})
}

// BindProgram implements GPUAdapter.
func (r *Recorder) BindProgram(id ProgramID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.programs[id]; !ok {
		return fmt.Errorf("%w: bind %d", ErrUnknownProgram, id)
	}
	r.bound = id
	r.ops = append(r.ops, Op{Kind: OpBindProgram, Program: id})
	return nil
}

// UnbindProgram implements GPUAdapter.
func (r *Recorder) UnbindProgram(id ProgramID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bound == id {
		r.bound = InvalidID
	}
	r.ops = append(r.ops, Op{Kind: OpUnbindProgram, Program: id})
}

// SetBlendState implements GPUAdapter.
func (r *Recorder) SetBlendState(state *gputypes.BlendState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cp *gputypes.BlendState
	if state != nil {
		s := *state
		cp = &s
	}
	r.blend = cp
	r.ops = append(r.ops, Op{Kind: OpSetBlend, Blend: cp})
}

// SetScissor implements GPUAdapter.
func (r *Recorder) SetScissor(rect *image.Rectangle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cp *image.Rectangle
	if rect != nil {
		s := *rect
		cp = &s
	}
	r.scissor = cp
	r.ops = append(r.ops, Op{Kind: OpSetScissor, Scissor: cp})
}

// Draw implements GPUAdapter. It checks that the program is bound, that all
// buffers exist and that every range and index stays inside the buffers.
func (r *Recorder) Draw(cmd *DrawCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cmd.Program != r.bound {
		return fmt.Errorf("%w: draw %q with program %d, bound %d", ErrProgramNotBound, cmd.Label, cmd.Program, r.bound)
	}

	vertices := -1
	for _, vb := range cmd.VertexBuffers {
		buf, ok := r.buffers[vb.Buffer]
		if !ok {
			return fmt.Errorf("%w: vertex buffer %d in draw %q", ErrUnknownBuffer, vb.Buffer, cmd.Label)
		}
		if vb.Layout.ArrayStride == 0 {
			continue
		}
		n := len(buf.data) / int(vb.Layout.ArrayStride) //nolint:gosec // strides are small
		if vertices < 0 || n < vertices {
			vertices = n
		}
	}

	if !cmd.Indexed {
		for _, rg := range cmd.Ranges {
			if vertices >= 0 && int(rg.End()) > vertices {
				return fmt.Errorf("%w: vertex range [%d,+%d) of %d in draw %q", ErrOutOfBounds, rg.First, rg.Count, vertices, cmd.Label)
			}
		}
	} else if err := r.checkIndices(cmd, vertices); err != nil {
		return err
	}

	r.ops = append(r.ops, Op{Kind: OpDraw, Program: cmd.Program, Draw: cmd.Clone()})
	return nil
}

func (r *Recorder) checkIndices(cmd *DrawCommand, vertices int) error {
	buf, ok := r.buffers[cmd.IndexBuffer]
	if !ok {
		return fmt.Errorf("%w: index buffer %d in draw %q", ErrUnknownBuffer, cmd.IndexBuffer, cmd.Label)
	}
	size := int(cmd.IndexFormat.Size())
	if size == 0 {
		return fmt.Errorf("%w: index format %s in draw %q", ErrOutOfBounds, cmd.IndexFormat, cmd.Label)
	}
	for _, rg := range cmd.Ranges {
		end := int(rg.End()) * size
		if end > len(buf.data) {
			return fmt.Errorf("%w: index range [%d,+%d) in draw %q", ErrOutOfBounds, rg.First, rg.Count, cmd.Label)
		}
		for off := int(rg.First) * size; off < end; off += size {
			var idx int
			if cmd.IndexFormat == gputypes.IndexFormatUint16 {
				idx = int(binary.LittleEndian.Uint16(buf.data[off:]))
			} else {
				idx = int(binary.LittleEndian.Uint32(buf.data[off:]))
			}
			if vertices >= 0 && idx >= vertices {
				return fmt.Errorf("%w: index %d >= %d vertices in draw %q", ErrOutOfBounds, idx, vertices, cmd.Label)
			}
		}
	}
	return nil
}

// Ops returns a copy of the operation log.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Count returns the number of logged operations of the given kind.
func (r *Recorder) Count(kind OpKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Draws returns the logged draw commands in order.
func (r *Recorder) Draws() []*DrawCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*DrawCommand
	for _, op := range r.ops {
		if op.Kind == OpDraw {
			out = append(out, op.Draw)
		}
	}
	return out
}

// ResetOps clears the operation log. Resources and state are kept.
func (r *Recorder) ResetOps() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = r.ops[:0]
}

// BufferData returns a copy of a buffer's contents.
func (r *Recorder) BufferData(id BufferID) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.buffers[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), buf.data...), true
}

// BufferUsage returns the usage a buffer was created with.
func (r *Recorder) BufferUsage(id BufferID) (gputypes.BufferUsage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.buffers[id]
	if !ok {
		return 0, false
	}
	return buf.usage, true
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (r *Recorder) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// LivePrograms returns the number of programs not yet destroyed.
func (r *Recorder) LivePrograms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.programs)
}

// BoundProgram returns the current program.
func (r *Recorder) BoundProgram() ProgramID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bound
}

// Blend returns the current blend state, or nil.
func (r *Recorder) Blend() *gputypes.BlendState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blend
}

// Scissor returns the current scissor rectangle, or nil.
func (r *Recorder) Scissor() *image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scissor
}

var _ GPUAdapter = (*Recorder)(nil)
