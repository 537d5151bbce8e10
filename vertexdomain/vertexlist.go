package vertexdomain

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/shader"
)

// Owner is notified when a list leaves its domain, so that whoever drew the
// list (usually a batch) can drop its registration.
type Owner interface {
	// ListDeleted is called after l was deleted.
	ListDeleted(l *VertexList)

	// ListMigrated is called after l moved from one domain to another.
	ListMigrated(l *VertexList, from *VertexDomain)
}

// VertexList is a caller-owned range of vertices in a domain. Attribute
// writes go to the domain's shadow buffers and are uploaded on the next
// commit.
type VertexList struct {
	domain *VertexDomain
	handle Handle
	owner  Owner
}

// Base returns l. It lets *IndexedVertexList be used wherever the plain
// list is needed.
func (l *VertexList) Base() *VertexList { return l }

// Domain returns the domain currently holding the list.
func (l *VertexList) Domain() *VertexDomain { return l.domain }

// Handle returns the allocation handle. It changes on Migrate.
func (l *VertexList) Handle() Handle { return l.handle }

// Owner returns the owner, or nil.
func (l *VertexList) Owner() Owner { return l.owner }

// SetOwner sets the owner notified on Delete and Migrate.
func (l *VertexList) SetOwner(o Owner) { l.owner = o }

// Valid reports whether the list is still allocated.
func (l *VertexList) Valid() bool { return l.domain.Live(l.handle) }

// Topology returns the primitive topology of the list's domain.
func (l *VertexList) Topology() gputypes.PrimitiveTopology { return l.domain.topology }

// Start returns the first vertex slot, or -1 for an invalid list.
func (l *VertexList) Start() int {
	start, _, err := l.domain.Range(l.handle)
	if err != nil {
		return -1
	}
	return start
}

// Count returns the number of vertices, or 0 for an invalid list.
func (l *VertexList) Count() int {
	_, count, err := l.domain.Range(l.handle)
	if err != nil {
		return 0
	}
	return count
}

// attribute returns the schema slot, attribute and live shadow bytes of name.
func (l *VertexList) attribute(op, name string) (int, shader.Attribute, []byte, error) {
	d := l.domain
	s, err := d.lookup(op, l.handle)
	if err != nil {
		return 0, shader.Attribute{}, nil, err
	}
	i, a, ok := d.schema.Lookup(name)
	if !ok {
		return 0, shader.Attribute{}, nil, d.schema.Check(d.program.Label(), name, shader.ElementInvalid, 0, 0)
	}
	return i, a, d.buffers[i].elements(s.start, s.count), nil
}

// SetAttribute replaces the values of attribute name for every vertex.
// data must be a slice whose element type matches the attribute format
// ([]float32, []uint8, []int8, []uint16, []int16, []uint32 or []int32;
// float16 formats take raw []uint16) holding Count()*components values.
func (l *VertexList) SetAttribute(name string, data any) error {
	elem, n, err := elementsOf(data)
	if err != nil {
		return &shader.IncompatibleFormatError{
			Program:   l.domain.program.Label(),
			Attribute: name,
			Detail:    fmt.Sprintf("%T", data),
			Err:       shader.ErrTypeMismatch,
		}
	}
	i, a, dst, err := l.attribute("set attribute", name)
	if err != nil {
		return err
	}
	if elem == shader.ElementUint16 && a.Element() == shader.ElementFloat16 {
		elem = shader.ElementFloat16
	}
	if err := l.domain.schema.Check(l.domain.program.Label(), name, elem, n, l.Count()); err != nil {
		return err
	}
	putElements(dst, data)
	s := &l.domain.slots[l.handle.Index]
	l.domain.buffers[i].markDirty(s.start, s.count)
	return nil
}

// Bytes returns a copy of the raw bytes of attribute name.
func (l *VertexList) Bytes(name string) ([]byte, error) {
	_, _, b, err := l.attribute("read attribute", name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(b), nil
}

// typed returns the bytes of name after checking its element type.
func (l *VertexList) typed(name string, elems ...shader.ElementType) ([]byte, error) {
	_, a, b, err := l.attribute("read attribute", name)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(elems, a.Element()) {
		return nil, &shader.IncompatibleFormatError{
			Program:   l.domain.program.Label(),
			Attribute: name,
			Detail:    fmt.Sprintf("%s attribute read as %s", a.Format, elems[0]),
			Err:       shader.ErrTypeMismatch,
		}
	}
	return b, nil
}

// Float32s returns a copy of a float32 attribute.
func (l *VertexList) Float32s(name string) ([]float32, error) {
	b, err := l.typed(name, shader.ElementFloat32)
	if err != nil {
		return nil, err
	}
	return decodeFloat32s(b), nil
}

// Uint8s returns a copy of an 8-bit unsigned attribute.
func (l *VertexList) Uint8s(name string) ([]uint8, error) {
	b, err := l.typed(name, shader.ElementUint8)
	if err != nil {
		return nil, err
	}
	return slices.Clone(b), nil
}

// Uint16s returns a copy of a 16-bit unsigned or float16 attribute.
func (l *VertexList) Uint16s(name string) ([]uint16, error) {
	b, err := l.typed(name, shader.ElementUint16, shader.ElementFloat16)
	if err != nil {
		return nil, err
	}
	return decodeUint16s(b), nil
}

// Uint32s returns a copy of a 32-bit unsigned attribute.
func (l *VertexList) Uint32s(name string) ([]uint32, error) {
	b, err := l.typed(name, shader.ElementUint32)
	if err != nil {
		return nil, err
	}
	return decodeUint32s(b), nil
}

// Int32s returns a copy of a 32-bit signed attribute.
func (l *VertexList) Int32s(name string) ([]int32, error) {
	b, err := l.typed(name, shader.ElementInt32)
	if err != nil {
		return nil, err
	}
	return decodeInt32s(b), nil
}

// Attribute returns a writable view of attribute name. The view is valid
// until the domain grows or the list moves, is resized or deleted.
func (l *VertexList) Attribute(name string) (*AttributeView, error) {
	i, a, _, err := l.attribute("view attribute", name)
	if err != nil {
		return nil, err
	}
	s := &l.domain.slots[l.handle.Index]
	return &AttributeView{
		list:       l,
		buffer:     i,
		attr:       a,
		handle:     l.handle,
		generation: l.domain.generation,
		start:      s.start,
		count:      s.count,
	}, nil
}

// Resize changes the vertex count. Existing values are kept up to the new
// count. On indexed lists stored indices are not checked against the new
// count; call SetIndices after shrinking.
func (l *VertexList) Resize(count int) error {
	return l.domain.Resize(l.handle, count)
}

// Migrate moves the list into dst, which must have the same schema,
// topology and indexing. Vertex and index data are copied. The owner is
// notified with the previous domain.
func (l *VertexList) Migrate(dst *VertexDomain) error {
	src := l.domain
	if dst == src {
		return nil
	}
	h, err := src.migrate(l.handle, dst)
	if err != nil {
		return err
	}
	l.domain, l.handle = dst, h
	if l.owner != nil {
		l.owner.ListMigrated(l, src)
	}
	return nil
}

// Delete frees the list's ranges and notifies the owner. Deleting twice
// returns an *InvalidRangeError.
func (l *VertexList) Delete() error {
	if err := l.domain.Deallocate(l.handle); err != nil {
		return err
	}
	if l.owner != nil {
		l.owner.ListDeleted(l)
	}
	return nil
}

// String returns a short description.
func (l *VertexList) String() string {
	return fmt.Sprintf("VertexList(%s %v start=%d count=%d)", l.domain.label, l.handle, l.Start(), l.Count())
}

// IndexedVertexList is a vertex list with its own range of indices.
// Indices are exposed relative to the list's first vertex and stored
// re-based to absolute vertex positions.
type IndexedVertexList struct {
	VertexList
}

// IndexCount returns the number of indices, or 0 for an invalid list.
func (l *IndexedVertexList) IndexCount() int {
	_, n, err := l.domain.IndexRange(l.handle)
	if err != nil {
		return 0
	}
	return n
}

// IndexStart returns the first index slot, or -1 for an invalid list.
func (l *IndexedVertexList) IndexStart() int {
	start, _, err := l.domain.IndexRange(l.handle)
	if err != nil {
		return -1
	}
	return start
}

// Indices returns the list-relative indices.
func (l *IndexedVertexList) Indices() ([]uint32, error) {
	d := l.domain
	istart, icount, err := d.IndexRange(l.handle)
	if err != nil {
		return nil, err
	}
	base := uint32(l.Start()) //nolint:gosec // live list
	out := make([]uint32, icount)
	for k := range out {
		out[k] = d.index(istart+k) - base
	}
	return out, nil
}

// SetIndices replaces the indices, resizing the index range to
// len(indices). Every index must be below Count().
func (l *IndexedVertexList) SetIndices(indices []uint32) error {
	d := l.domain
	s, err := d.lookup("set indices", l.handle)
	if err != nil {
		return err
	}
	if !d.indexed {
		return ErrNotIndexed
	}
	if err := checkIndices(indices, s.count); err != nil {
		return err
	}
	if len(indices) != s.icount {
		if err := d.ResizeIndices(l.handle, len(indices)); err != nil {
			return err
		}
	}
	d.writeIndices(s.istart, s.start, indices)
	return nil
}

// ResizeIndexed resizes both the vertex and the index range. On error
// neither range changes.
func (l *IndexedVertexList) ResizeIndexed(vertices, indices int) error {
	return l.domain.ResizeIndexed(l.handle, vertices, indices)
}

// AttributeView is a direct, writable view into one attribute of a list.
type AttributeView struct {
	list       *VertexList
	buffer     int
	attr       shader.Attribute
	handle     Handle
	generation uint64
	start      int
	count      int
}

// Attribute returns the viewed attribute.
func (v *AttributeView) Attribute() shader.Attribute { return v.attr }

// Len returns the number of vertices in the view.
func (v *AttributeView) Len() int { return v.count }

// Stale reports whether the view no longer addresses the list's storage.
func (v *AttributeView) Stale() bool { return v.check() != nil }

func (v *AttributeView) check() error {
	d := v.list.domain
	if v.list.handle != v.handle || !d.Live(v.handle) {
		return fmt.Errorf("%w: list %v moved or freed", ErrStaleReference, v.handle)
	}
	if d.generation != v.generation {
		return fmt.Errorf("%w: domain %s grew (generation %d, view %d)", ErrStaleReference, d.label, d.generation, v.generation)
	}
	s := &d.slots[v.handle.Index]
	if s.start != v.start || s.count != v.count {
		return fmt.Errorf("%w: list %v was resized", ErrStaleReference, v.handle)
	}
	return nil
}

// Bytes returns the live shadow bytes of the attribute. Writes through the
// slice are uploaded on the next commit; the range is marked dirty by this
// call.
func (v *AttributeView) Bytes() ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	b := v.list.domain.buffers[v.buffer]
	b.markDirty(v.start, v.count)
	return b.elements(v.start, v.count), nil
}

// Set writes data like VertexList.SetAttribute, after checking the view is
// still current.
func (v *AttributeView) Set(data any) error {
	if err := v.check(); err != nil {
		return err
	}
	return v.list.SetAttribute(v.attr.Name, data)
}
