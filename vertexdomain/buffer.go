package vertexdomain

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/gpucore"
)

// backedBuffer is a GPU buffer with a CPU shadow copy. Writes go to the
// shadow and are tracked as one dirty byte interval, uploaded by commit.
type backedBuffer struct {
	id     gpucore.BufferID
	usage  gputypes.BufferUsage
	label  string
	stride int
	data   []byte

	// dirty interval [dirtyLo, dirtyHi); empty when dirtyLo >= dirtyHi.
	dirtyLo int
	dirtyHi int
}

// newBackedBuffer creates a buffer holding capacity elements of stride bytes.
func newBackedBuffer(adapter gpucore.GPUAdapter, label string, stride, capacity int, usage gputypes.BufferUsage) (*backedBuffer, error) {
	size := uint64(stride * capacity) //nolint:gosec // both non-negative
	id, err := adapter.CreateBuffer(size, usage|gputypes.BufferUsageCopyDst, label)
	if err != nil {
		return nil, fmt.Errorf("create %s (%d bytes): %w", label, size, err)
	}
	return &backedBuffer{
		id:     id,
		usage:  usage,
		label:  label,
		stride: stride,
		data:   make([]byte, stride*capacity),
	}, nil
}

// elements returns the shadow bytes of [start, start+count) elements.
func (b *backedBuffer) elements(start, count int) []byte {
	return b.data[start*b.stride : (start+count)*b.stride]
}

// markDirty extends the dirty interval to cover [start, start+count).
func (b *backedBuffer) markDirty(start, count int) {
	if count <= 0 {
		return
	}
	lo, hi := start*b.stride, (start+count)*b.stride
	if b.dirtyLo >= b.dirtyHi {
		b.dirtyLo, b.dirtyHi = lo, hi
		return
	}
	b.dirtyLo = min(b.dirtyLo, lo)
	b.dirtyHi = max(b.dirtyHi, hi)
}

// dirty reports whether the shadow has unsynced writes.
func (b *backedBuffer) dirty() bool { return b.dirtyLo < b.dirtyHi }

// commit uploads the dirty interval. It returns the number of bytes written.
func (b *backedBuffer) commit(adapter gpucore.GPUAdapter) (int, error) {
	if !b.dirty() {
		return 0, nil
	}
	lo, hi := b.dirtyLo, b.dirtyHi
	if err := adapter.WriteBuffer(b.id, uint64(lo), b.data[lo:hi]); err != nil { //nolint:gosec // lo >= 0
		return 0, fmt.Errorf("upload %s: %w", b.label, err)
	}
	b.dirtyLo, b.dirtyHi = 0, 0
	return hi - lo, nil
}

// capacity returns the number of elements the buffer holds.
func (b *backedBuffer) capacity() int { return len(b.data) / b.stride }

// adopt moves the shadow contents of old into b and marks them dirty, so the
// next commit re-uploads everything that was live.
func (b *backedBuffer) adopt(old *backedBuffer, used int) {
	copy(b.data, old.data)
	b.markDirty(0, used)
}

func (b *backedBuffer) destroy(adapter gpucore.GPUAdapter) {
	if b.id != gpucore.InvalidID {
		adapter.DestroyBuffer(b.id)
		b.id = gpucore.InvalidID
	}
}
