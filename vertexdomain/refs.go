package vertexdomain

import (
	"fmt"

	"github.com/gogpu/graphics/gpucore"
)

// indexAttribute is the attribute name of index buffer references.
const indexAttribute = "indices"

// BufferRef is an external reference to one of a domain's GPU buffers. It
// records the domain generation so that use after a growth event is
// detected by Resolve.
type BufferRef struct {
	Domain     uint64
	Attribute  string
	Generation uint64

	slot int // -1 for the index buffer
}

// BufferRef returns a reference to the buffer of attribute name.
func (d *VertexDomain) BufferRef(name string) (BufferRef, error) {
	if d.closed {
		return BufferRef{}, ErrClosed
	}
	i, _, ok := d.schema.Lookup(name)
	if !ok {
		return BufferRef{}, d.schema.Check(d.program.Label(), name, 0, 0, 0)
	}
	return BufferRef{Domain: d.id, Attribute: name, Generation: d.generation, slot: i}, nil
}

// IndexBufferRef returns a reference to the index buffer.
func (d *VertexDomain) IndexBufferRef() (BufferRef, error) {
	if d.closed {
		return BufferRef{}, ErrClosed
	}
	if !d.indexed {
		return BufferRef{}, ErrNotIndexed
	}
	return BufferRef{Domain: d.id, Attribute: indexAttribute, Generation: d.generation, slot: -1}, nil
}

// Resolve returns the buffer a reference names. References taken before
// the most recent growth return ErrStaleReference.
func (d *VertexDomain) Resolve(ref BufferRef) (gpucore.BufferID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if ref.Domain != d.id {
		return gpucore.InvalidID, fmt.Errorf("%w: reference to domain %d resolved in %d", ErrInvalidHandle, ref.Domain, d.id)
	}
	if ref.Generation != d.generation {
		return gpucore.InvalidID, fmt.Errorf("%w: %s buffer of %s at generation %d, now %d",
			ErrStaleReference, ref.Attribute, d.label, ref.Generation, d.generation)
	}
	if ref.slot < 0 {
		return d.indexBuf.id, nil
	}
	return d.buffers[ref.slot].id, nil
}
