// Package vertexdomain implements vertex domains: pools of shared GPU
// buffers holding the vertices of many lists that share one program,
// attribute schema and primitive topology.
//
// A VertexDomain owns one buffer per attribute (non-interleaved) and
// optionally an index buffer. Lists are contiguous ranges handed out by an
// alloc.Allocator; when a request does not fit, every buffer of the domain
// grows geometrically in one atomic step. Growth replaces the GPU buffers,
// so it bumps the domain generation: BufferRef values and AttributeViews
// taken before the growth report ErrStaleReference instead of addressing a
// destroyed buffer.
//
// Writes go to CPU shadow copies and are uploaded by Commit, which callers
// run before drawing so uploads never interleave with draws.
//
// A domain is not safe for concurrent use.
package vertexdomain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/alloc"
	"github.com/gogpu/graphics/gpucore"
	"github.com/gogpu/graphics/shader"
)

// Defaults applied by Config.
const (
	DefaultInitialCapacity = 16
	DefaultGrowthFactor    = 2.0
)

// maxUint16Vertices is the vertex limit of domains with 16-bit indices.
const maxUint16Vertices = 1 << 16

// Config controls buffer sizing.
type Config struct {
	// InitialCapacity is the initial number of vertex slots.
	// Default: 16.
	InitialCapacity int

	// InitialIndexCapacity is the initial number of index slots of indexed
	// domains. Default: InitialCapacity.
	InitialIndexCapacity int

	// GrowthFactor scales the capacity on growth. Values below 1.5 are
	// raised to the default of 2.
	GrowthFactor float64

	// MaxCapacity caps the number of vertex (and index) slots. 0 means
	// unlimited.
	MaxCapacity int

	// IndexFormat is the index element format of indexed domains.
	// Default: gputypes.IndexFormatUint32.
	IndexFormat gputypes.IndexFormat
}

// withDefaults returns c with zero fields replaced by defaults.
func (c Config) withDefaults() Config {
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}
	if c.InitialIndexCapacity <= 0 {
		c.InitialIndexCapacity = c.InitialCapacity
	}
	if c.GrowthFactor < 1.5 {
		c.GrowthFactor = DefaultGrowthFactor
	}
	if c.IndexFormat == gputypes.IndexFormatUndefined {
		c.IndexFormat = gputypes.IndexFormatUint32
	}
	if c.MaxCapacity > 0 {
		c.InitialCapacity = min(c.InitialCapacity, c.MaxCapacity)
		c.InitialIndexCapacity = min(c.InitialIndexCapacity, c.MaxCapacity)
	}
	return c
}

// Key identifies the domain a list belongs in.
type Key struct {
	Program  uint64
	Topology gputypes.PrimitiveTopology
	Indexed  bool
}

// Handle addresses one allocation of a domain. Handles of freed
// allocations are detected: every free bumps the slot generation.
type Handle struct {
	Domain uint64
	Index  uint32
	Gen    uint32
}

// String returns a compact representation.
func (h Handle) String() string {
	return fmt.Sprintf("%d:%d@%d", h.Domain, h.Index, h.Gen)
}

type slot struct {
	gen  uint32
	live bool

	start, count   int
	istart, icount int
}

var domainIDs atomic.Uint64

// VertexDomain is a pool of attribute buffers shared by many vertex lists.
type VertexDomain struct {
	id        uint64
	label     string
	adapter   gpucore.GPUAdapter
	program   *shader.Program
	programID gpucore.ProgramID
	schema    *shader.Schema
	layouts   []gputypes.VertexBufferLayout
	topology  gputypes.PrimitiveTopology
	cfg       Config

	vertices *alloc.Allocator
	buffers  []*backedBuffer

	indexed  bool
	indices  *alloc.Allocator
	indexBuf *backedBuffer

	slots     []slot
	freeSlots []uint32
	lists     int

	generation uint64
	growths    int
	closed     bool
}

// New creates a non-indexed domain for program and topology. The program is
// realized on adapter and one buffer per attribute is created.
func New(adapter gpucore.GPUAdapter, program *shader.Program, topology gputypes.PrimitiveTopology, cfg Config) (*VertexDomain, error) {
	return newDomain(adapter, program, topology, false, cfg)
}

// NewIndexed creates an indexed domain with an additional index buffer.
func NewIndexed(adapter gpucore.GPUAdapter, program *shader.Program, topology gputypes.PrimitiveTopology, cfg Config) (*VertexDomain, error) {
	return newDomain(adapter, program, topology, true, cfg)
}

func newDomain(adapter gpucore.GPUAdapter, program *shader.Program, topology gputypes.PrimitiveTopology, indexed bool, cfg Config) (*VertexDomain, error) {
	cfg = cfg.withDefaults()
	if indexed && cfg.IndexFormat == gputypes.IndexFormatUint16 {
		cfg.InitialCapacity = min(cfg.InitialCapacity, maxUint16Vertices)
	}

	programID, err := program.Realize(adapter)
	if err != nil {
		return nil, err
	}

	d := &VertexDomain{
		id:        domainIDs.Add(1),
		adapter:   adapter,
		program:   program,
		programID: programID,
		schema:    program.Schema(),
		layouts:   program.Schema().Layouts(),
		topology:  topology,
		cfg:       cfg,
		vertices:  alloc.New(cfg.InitialCapacity),
		indexed:   indexed,
	}
	d.label = fmt.Sprintf("%s/%s#%d", program.Label(), topology, d.id)

	for i := range d.schema.Len() {
		a := d.schema.At(i)
		b, err := newBackedBuffer(adapter, d.label+"/"+a.Name, a.Stride(), cfg.InitialCapacity, gputypes.BufferUsageVertex)
		if err != nil {
			d.destroyBuffers()
			return nil, &CapacityError{Domain: d.label, Requested: cfg.InitialCapacity, Err: err}
		}
		d.buffers = append(d.buffers, b)
	}

	if indexed {
		d.indices = alloc.New(cfg.InitialIndexCapacity)
		stride := int(cfg.IndexFormat.Size())
		b, err := newBackedBuffer(adapter, d.label+"/indices", stride, cfg.InitialIndexCapacity, gputypes.BufferUsageIndex)
		if err != nil {
			d.destroyBuffers()
			return nil, &CapacityError{Domain: d.label, Requested: cfg.InitialIndexCapacity, Err: err}
		}
		d.indexBuf = b
	}

	slogger().Debug("vertexdomain: created",
		"domain", d.label,
		"attributes", d.schema.Len(),
		"indexed", indexed,
		"capacity", cfg.InitialCapacity)
	return d, nil
}

// ID returns the process-unique domain identity.
func (d *VertexDomain) ID() uint64 { return d.id }

// Label returns a debug label.
func (d *VertexDomain) Label() string { return d.label }

// Key returns the key the domain is registered under.
func (d *VertexDomain) Key() Key {
	return Key{Program: d.program.ID(), Topology: d.topology, Indexed: d.indexed}
}

// Program returns the program the domain was created for.
func (d *VertexDomain) Program() *shader.Program { return d.program }

// ProgramID returns the program's ID on the domain's adapter.
func (d *VertexDomain) ProgramID() gpucore.ProgramID { return d.programID }

// Schema returns the attribute schema.
func (d *VertexDomain) Schema() *shader.Schema { return d.schema }

// Topology returns the primitive topology.
func (d *VertexDomain) Topology() gputypes.PrimitiveTopology { return d.topology }

// Indexed reports whether the domain has an index buffer.
func (d *VertexDomain) Indexed() bool { return d.indexed }

// Capacity returns the number of vertex slots.
func (d *VertexDomain) Capacity() int { return d.vertices.Capacity() }

// IndexCapacity returns the number of index slots, or 0.
func (d *VertexDomain) IndexCapacity() int {
	if !d.indexed {
		return 0
	}
	return d.indices.Capacity()
}

// Generation returns a counter bumped by every growth event.
func (d *VertexDomain) Generation() uint64 { return d.generation }

// Len returns the number of live allocations.
func (d *VertexDomain) Len() int { return d.lists }

// Closed reports whether Close has been called.
func (d *VertexDomain) Closed() bool { return d.closed }

// Allocate reserves count contiguous vertex slots in every attribute buffer,
// growing the buffers if needed. The new vertices are zeroed.
func (d *VertexDomain) Allocate(count int) (*VertexList, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if count < 0 {
		return nil, fmt.Errorf("vertexdomain: allocate %d: %w", count, alloc.ErrNegativeSize)
	}
	start, err := d.allocVertices(count)
	if err != nil {
		return nil, err
	}
	d.clearVertices(start, count)
	h := d.newSlot(slot{start: start, count: count})
	return &VertexList{domain: d, handle: h}, nil
}

// AllocateIndexed reserves count vertices and len(indices) index slots.
// Indices are relative to the list: each must be below count.
func (d *VertexDomain) AllocateIndexed(count int, indices []uint32) (*IndexedVertexList, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if !d.indexed {
		return nil, ErrNotIndexed
	}
	if count < 0 {
		return nil, fmt.Errorf("vertexdomain: allocate %d: %w", count, alloc.ErrNegativeSize)
	}
	if err := checkIndices(indices, count); err != nil {
		return nil, err
	}

	start, err := d.allocVertices(count)
	if err != nil {
		return nil, err
	}
	istart, err := d.allocIndices(len(indices))
	if err != nil {
		_ = d.vertices.Release(start, count)
		return nil, err
	}

	d.clearVertices(start, count)
	d.writeIndices(istart, start, indices)
	h := d.newSlot(slot{start: start, count: count, istart: istart, icount: len(indices)})
	return &IndexedVertexList{VertexList: VertexList{domain: d, handle: h}}, nil
}

// Deallocate returns the allocation's ranges to the free lists.
func (d *VertexDomain) Deallocate(h Handle) error {
	s, err := d.lookup("deallocate", h)
	if err != nil {
		return err
	}
	if err := d.vertices.Release(s.start, s.count); err != nil {
		return err
	}
	if d.indexed {
		if err := d.indices.Release(s.istart, s.icount); err != nil {
			return err
		}
	}
	d.freeSlot(h.Index)
	return nil
}

// Resize changes the vertex count of an allocation. The range is extended in
// place when the following slots are free; otherwise it moves, keeping the
// first min(old, new) vertices. Indices of a moved list are re-based.
func (d *VertexDomain) Resize(h Handle, count int) error {
	s, err := d.lookup("resize", h)
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("vertexdomain: resize to %d: %w", count, alloc.ErrNegativeSize)
	}

	start, err := d.vertices.Realloc(s.start, s.count, count)
	var nse *alloc.NoSpaceError
	if errors.As(err, &nse) {
		if err := d.growVertices(nse.RequestedCapacity); err != nil {
			return err
		}
		start, err = d.vertices.Realloc(s.start, s.count, count)
	}
	if err != nil {
		return err
	}

	kept := min(s.count, count)
	if start != s.start {
		for _, b := range d.buffers {
			copy(b.elements(start, kept), b.elements(s.start, kept))
			b.markDirty(start, kept)
		}
		if d.indexed {
			d.rebaseIndices(s.istart, s.icount, s.start, start)
		}
	}
	if count > kept {
		d.clearVertices(start+kept, count-kept)
	}
	s.start, s.count = start, count
	return nil
}

// ResizeIndices changes the index count of an allocation, keeping the first
// min(old, new) indices.
func (d *VertexDomain) ResizeIndices(h Handle, icount int) error {
	if !d.indexed {
		return ErrNotIndexed
	}
	s, err := d.lookup("resize indices", h)
	if err != nil {
		return err
	}
	if icount < 0 {
		return fmt.Errorf("vertexdomain: resize indices to %d: %w", icount, alloc.ErrNegativeSize)
	}

	istart, err := d.indices.Realloc(s.istart, s.icount, icount)
	var nse *alloc.NoSpaceError
	if errors.As(err, &nse) {
		if err := d.growIndices(nse.RequestedCapacity); err != nil {
			return err
		}
		istart, err = d.indices.Realloc(s.istart, s.icount, icount)
	}
	if err != nil {
		return err
	}

	kept := min(s.icount, icount)
	if istart != s.istart {
		copy(d.indexBuf.elements(istart, kept), d.indexBuf.elements(s.istart, kept))
		d.indexBuf.markDirty(istart, kept)
	}
	s.istart, s.icount = istart, icount
	return nil
}

// ResizeIndexed changes both the vertex and the index count of an
// allocation. Room for both ranges is made before either moves, so on error
// the allocation is unchanged.
func (d *VertexDomain) ResizeIndexed(h Handle, count, icount int) error {
	if !d.indexed {
		return ErrNotIndexed
	}
	s, err := d.lookup("resize indexed", h)
	if err != nil {
		return err
	}
	if count < 0 || icount < 0 {
		return fmt.Errorf("vertexdomain: resize to %d/%d: %w", count, icount, alloc.ErrNegativeSize)
	}

	need, err := d.vertices.ReallocCapacity(s.start, s.count, count)
	if err != nil {
		return err
	}
	ineed, err := d.indices.ReallocCapacity(s.istart, s.icount, icount)
	if err != nil {
		return err
	}
	if ineed > d.indices.Capacity() {
		if err := d.growIndices(ineed); err != nil {
			return err
		}
	}
	if need > d.vertices.Capacity() {
		if err := d.growVertices(need); err != nil {
			return err
		}
	}
	if err := d.Resize(h, count); err != nil {
		return err
	}
	return d.ResizeIndices(h, icount)
}

// Range returns the vertex range of an allocation.
func (d *VertexDomain) Range(h Handle) (start, count int, err error) {
	s, err := d.lookup("range", h)
	if err != nil {
		return 0, 0, err
	}
	return s.start, s.count, nil
}

// IndexRange returns the index range of an allocation.
func (d *VertexDomain) IndexRange(h Handle) (start, count int, err error) {
	if !d.indexed {
		return 0, 0, ErrNotIndexed
	}
	s, err := d.lookup("index range", h)
	if err != nil {
		return 0, 0, err
	}
	return s.istart, s.icount, nil
}

// Live reports whether h addresses a live allocation of this domain.
func (d *VertexDomain) Live(h Handle) bool {
	_, err := d.lookup("", h)
	return err == nil
}

// Dirty reports whether any shadow buffer has uncommitted writes.
func (d *VertexDomain) Dirty() bool {
	for _, b := range d.buffers {
		if b.dirty() {
			return true
		}
	}
	return d.indexed && d.indexBuf.dirty()
}

// Commit uploads all dirty shadow ranges and returns the bytes written.
func (d *VertexDomain) Commit() (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	total := 0
	for _, b := range d.buffers {
		n, err := b.commit(d.adapter)
		total += n
		if err != nil {
			return total, err
		}
	}
	if d.indexed {
		n, err := d.indexBuf.commit(d.adapter)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Ranges returns the draw ranges of the given allocations, sorted by start
// with adjacent ranges merged. For indexed domains ranges address indices.
// Empty allocations are skipped.
func (d *VertexDomain) Ranges(handles []Handle) ([]gpucore.DrawRange, error) {
	ranges := make([]gpucore.DrawRange, 0, len(handles))
	for _, h := range handles {
		s, err := d.lookup("draw", h)
		if err != nil {
			return nil, err
		}
		first, count := s.start, s.count
		if d.indexed {
			first, count = s.istart, s.icount
		}
		if count == 0 {
			continue
		}
		ranges = append(ranges, gpucore.DrawRange{First: uint32(first), Count: uint32(count)}) //nolint:gosec // bounded by capacity
	}
	return mergeRanges(ranges), nil
}

// mergeRanges sorts ranges in place and merges touching neighbours.
func mergeRanges(ranges []gpucore.DrawRange) []gpucore.DrawRange {
	if len(ranges) < 2 {
		return ranges
	}
	slices.SortFunc(ranges, func(a, b gpucore.DrawRange) int {
		return int(a.First) - int(b.First)
	})
	out := ranges[:1]
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if last.End() == r.First {
			last.Count += r.Count
			continue
		}
		out = append(out, r)
	}
	return out
}

// DrawCommand builds one multi-draw command covering the given allocations.
// The returned command has no ranges when every allocation is empty.
func (d *VertexDomain) DrawCommand(handles []Handle) (*gpucore.DrawCommand, error) {
	if d.closed {
		return nil, ErrClosed
	}
	ranges, err := d.Ranges(handles)
	if err != nil {
		return nil, err
	}
	cmd := &gpucore.DrawCommand{
		Label:         d.label,
		Program:       d.programID,
		Topology:      d.topology,
		VertexBuffers: make([]gpucore.VertexBuffer, len(d.buffers)),
		Ranges:        ranges,
	}
	for i, b := range d.buffers {
		cmd.VertexBuffers[i] = gpucore.VertexBuffer{Buffer: b.id, Layout: d.layouts[i]}
	}
	if d.indexed {
		cmd.Indexed = true
		cmd.IndexBuffer = d.indexBuf.id
		cmd.IndexFormat = d.cfg.IndexFormat
	}
	return cmd, nil
}

// Draw commits pending writes and draws the given allocations with one
// command. The domain's program must be bound. It returns the number of
// commands issued (0 or 1).
func (d *VertexDomain) Draw(handles []Handle) (int, error) {
	if _, err := d.Commit(); err != nil {
		return 0, err
	}
	cmd, err := d.DrawCommand(handles)
	if err != nil {
		return 0, err
	}
	if len(cmd.Ranges) == 0 {
		return 0, nil
	}
	if err := d.adapter.Draw(cmd); err != nil {
		return 0, fmt.Errorf("vertexdomain: %s: %w", d.label, err)
	}
	return 1, nil
}

// DrawAll draws every live allocation of the domain.
func (d *VertexDomain) DrawAll() (int, error) {
	return d.Draw(d.Handles())
}

// Handles returns the handles of all live allocations in slot order.
func (d *VertexDomain) Handles() []Handle {
	out := make([]Handle, 0, d.lists)
	for i, s := range d.slots {
		if s.live {
			out = append(out, Handle{Domain: d.id, Index: uint32(i), Gen: s.gen}) //nolint:gosec // slot count fits
		}
	}
	return out
}

// Close destroys the domain's buffers. Outstanding lists become invalid.
func (d *VertexDomain) Close() {
	if d.closed {
		return
	}
	d.destroyBuffers()
	d.closed = true
	slogger().Debug("vertexdomain: closed", "domain", d.label, "lists", d.lists)
}

func (d *VertexDomain) destroyBuffers() {
	for _, b := range d.buffers {
		b.destroy(d.adapter)
	}
	if d.indexBuf != nil {
		d.indexBuf.destroy(d.adapter)
	}
}

// allocVertices reserves count vertex slots, growing once if needed.
func (d *VertexDomain) allocVertices(count int) (int, error) {
	start, err := d.vertices.Alloc(count)
	var nse *alloc.NoSpaceError
	if errors.As(err, &nse) {
		if err := d.growVertices(nse.RequestedCapacity); err != nil {
			return 0, err
		}
		start, err = d.vertices.Alloc(count)
	}
	return start, err
}

// allocIndices reserves count index slots, growing once if needed.
func (d *VertexDomain) allocIndices(count int) (int, error) {
	start, err := d.indices.Alloc(count)
	var nse *alloc.NoSpaceError
	if errors.As(err, &nse) {
		if err := d.growIndices(nse.RequestedCapacity); err != nil {
			return 0, err
		}
		start, err = d.indices.Alloc(count)
	}
	return start, err
}

// vertexLimit returns the maximum vertex capacity, or 0 when unlimited.
func (d *VertexDomain) vertexLimit() int {
	limit := d.cfg.MaxCapacity
	if d.indexed && d.cfg.IndexFormat == gputypes.IndexFormatUint16 {
		if limit == 0 || limit > maxUint16Vertices {
			limit = maxUint16Vertices
		}
	}
	return limit
}

// nextCapacity returns the capacity to grow to so that needed slots fit:
// the next power of two of max(needed, ceil(old*GrowthFactor)), clamped to
// limit.
func (d *VertexDomain) nextCapacity(old, needed, limit int) (int, error) {
	target := max(needed, int(math.Ceil(float64(old)*d.cfg.GrowthFactor)))
	target = nextPow2(target)
	if limit > 0 && target > limit {
		if needed > limit {
			return 0, &CapacityError{Domain: d.label, Capacity: old, Requested: needed, Err: ErrCapacityExceeded}
		}
		target = limit
	}
	return target, nil
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// growVertices replaces every attribute buffer with a larger one. All new
// buffers are created before any old one is touched, so a failure leaves
// the domain unchanged.
func (d *VertexDomain) growVertices(needed int) error {
	old := d.vertices.Capacity()
	newCap, err := d.nextCapacity(old, needed, d.vertexLimit())
	if err != nil {
		return err
	}

	fresh := make([]*backedBuffer, len(d.buffers))
	for i, b := range d.buffers {
		nb, err := newBackedBuffer(d.adapter, b.label, b.stride, newCap, b.usage)
		if err != nil {
			for _, c := range fresh[:i] {
				c.destroy(d.adapter)
			}
			slogger().Warn("vertexdomain: growth failed", "domain", d.label, "from", old, "to", newCap, "err", err)
			return &CapacityError{Domain: d.label, Capacity: old, Requested: newCap, Err: err}
		}
		fresh[i] = nb
	}
	for i, b := range d.buffers {
		fresh[i].adopt(b, old)
		b.destroy(d.adapter)
	}
	d.buffers = fresh
	if err := d.vertices.SetCapacity(newCap); err != nil {
		return err
	}

	d.generation++
	d.growths++
	slogger().Debug("vertexdomain: grew vertex buffers",
		"domain", d.label, "from", old, "to", newCap, "generation", d.generation)
	return nil
}

// growIndices replaces the index buffer with a larger one.
func (d *VertexDomain) growIndices(needed int) error {
	old := d.indices.Capacity()
	newCap, err := d.nextCapacity(old, needed, d.cfg.MaxCapacity)
	if err != nil {
		return err
	}
	nb, err := newBackedBuffer(d.adapter, d.indexBuf.label, d.indexBuf.stride, newCap, d.indexBuf.usage)
	if err != nil {
		slogger().Warn("vertexdomain: index growth failed", "domain", d.label, "from", old, "to", newCap, "err", err)
		return &CapacityError{Domain: d.label, Capacity: old, Requested: newCap, Err: err}
	}
	nb.adopt(d.indexBuf, old)
	d.indexBuf.destroy(d.adapter)
	d.indexBuf = nb
	if err := d.indices.SetCapacity(newCap); err != nil {
		return err
	}

	d.generation++
	d.growths++
	slogger().Debug("vertexdomain: grew index buffer",
		"domain", d.label, "from", old, "to", newCap, "generation", d.generation)
	return nil
}

// clearVertices zeroes [start, start+count) in every attribute buffer.
func (d *VertexDomain) clearVertices(start, count int) {
	if count == 0 {
		return
	}
	for _, b := range d.buffers {
		clear(b.elements(start, count))
		b.markDirty(start, count)
	}
}

func (d *VertexDomain) index(k int) uint32 {
	if d.cfg.IndexFormat == gputypes.IndexFormatUint16 {
		return uint32(binary.LittleEndian.Uint16(d.indexBuf.data[k*2:]))
	}
	return binary.LittleEndian.Uint32(d.indexBuf.data[k*4:])
}

func (d *VertexDomain) setIndex(k int, v uint32) {
	if d.cfg.IndexFormat == gputypes.IndexFormatUint16 {
		binary.LittleEndian.PutUint16(d.indexBuf.data[k*2:], uint16(v)) //nolint:gosec // vertex capacity capped at 1<<16
		return
	}
	binary.LittleEndian.PutUint32(d.indexBuf.data[k*4:], v)
}

// writeIndices stores list-relative indices at istart, offset by base.
func (d *VertexDomain) writeIndices(istart, base int, indices []uint32) {
	for k, ix := range indices {
		d.setIndex(istart+k, ix+uint32(base)) //nolint:gosec // base < capacity
	}
	d.indexBuf.markDirty(istart, len(indices))
}

// rebaseIndices shifts stored indices after their vertex range moved.
func (d *VertexDomain) rebaseIndices(istart, icount, from, to int) {
	for k := istart; k < istart+icount; k++ {
		d.setIndex(k, uint32(int(d.index(k))-from+to)) //nolint:gosec // result is a live vertex
	}
	d.indexBuf.markDirty(istart, icount)
}

func checkIndices(indices []uint32, count int) error {
	for i, ix := range indices {
		if int(ix) >= count {
			return fmt.Errorf("%w: index %d at %d, list has %d vertices", ErrIndexOutOfRange, ix, i, count)
		}
	}
	return nil
}

func (d *VertexDomain) newSlot(s slot) Handle {
	s.live = true
	var idx uint32
	if n := len(d.freeSlots); n > 0 {
		idx = d.freeSlots[n-1]
		d.freeSlots = d.freeSlots[:n-1]
		s.gen = d.slots[idx].gen
		d.slots[idx] = s
	} else {
		idx = uint32(len(d.slots)) //nolint:gosec // slot count fits
		s.gen = 1
		d.slots = append(d.slots, s)
	}
	d.lists++
	return Handle{Domain: d.id, Index: idx, Gen: s.gen}
}

func (d *VertexDomain) freeSlot(idx uint32) {
	s := &d.slots[idx]
	s.live = false
	s.gen++
	s.start, s.count, s.istart, s.icount = 0, 0, 0, 0
	d.freeSlots = append(d.freeSlots, idx)
	d.lists--
}

func (d *VertexDomain) lookup(op string, h Handle) (*slot, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if h.Domain != d.id || int(h.Index) >= len(d.slots) {
		return nil, &InvalidRangeError{Op: op, Handle: h}
	}
	s := &d.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return nil, &InvalidRangeError{Op: op, Handle: h}
	}
	return s, nil
}

// compatible reports whether lists can move between d and o.
func (d *VertexDomain) compatible(o *VertexDomain) error {
	switch {
	case !d.schema.Equal(o.schema):
		return fmt.Errorf("%w: schema %s vs %s", ErrIncompatibleDomain, d.schema, o.schema)
	case d.topology != o.topology:
		return fmt.Errorf("%w: topology %s vs %s", ErrIncompatibleDomain, d.topology, o.topology)
	case d.indexed != o.indexed:
		return fmt.Errorf("%w: indexed %v vs %v", ErrIncompatibleDomain, d.indexed, o.indexed)
	}
	return nil
}

// migrate copies the allocation h into dst and frees it here. On error both
// domains are unchanged apart from possible growth of dst.
func (d *VertexDomain) migrate(h Handle, dst *VertexDomain) (Handle, error) {
	s, err := d.lookup("migrate", h)
	if err != nil {
		return Handle{}, err
	}
	if dst.closed {
		return Handle{}, ErrClosed
	}
	if err := d.compatible(dst); err != nil {
		return Handle{}, err
	}
	src := *s

	start, err := dst.allocVertices(src.count)
	if err != nil {
		return Handle{}, err
	}
	istart := 0
	if d.indexed {
		istart, err = dst.allocIndices(src.icount)
		if err != nil {
			_ = dst.vertices.Release(start, src.count)
			return Handle{}, err
		}
	}

	for i, b := range d.buffers {
		nb := dst.buffers[i]
		copy(nb.elements(start, src.count), b.elements(src.start, src.count))
		nb.markDirty(start, src.count)
	}
	if d.indexed {
		for k := range src.icount {
			dst.setIndex(istart+k, d.index(src.istart+k)-uint32(src.start)+uint32(start)) //nolint:gosec // live ranges
		}
		dst.indexBuf.markDirty(istart, src.icount)
	}

	nh := dst.newSlot(slot{start: start, count: src.count, istart: istart, icount: src.icount})
	if err := d.Deallocate(h); err != nil {
		return Handle{}, err
	}
	slogger().Debug("vertexdomain: migrated list", "from", d.label, "to", dst.label, "vertices", src.count)
	return nh, nil
}
