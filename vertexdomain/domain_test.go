package vertexdomain

import (
	"encoding/binary"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/alloc"
	"github.com/gogpu/graphics/gpucore"
	"github.com/gogpu/graphics/shader"
)

func testProgram(t *testing.T, decls ...string) *shader.Program {
	t.Helper()
	if len(decls) == 0 {
		decls = []string{"position:float32x2", "colors:unorm8x4"}
	}
	p, err := shader.NewProgram("test", "", shader.MustParseSchema(decls...))
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	return p
}

func newTestDomain(t *testing.T, rec *gpucore.Recorder, cfg Config, indexed bool) *VertexDomain {
	t.Helper()
	var (
		d   *VertexDomain
		err error
	)
	if indexed {
		d, err = NewIndexed(rec, testProgram(t), gputypes.PrimitiveTopologyTriangleList, cfg)
	} else {
		d, err = New(rec, testProgram(t), gputypes.PrimitiveTopologyTriangleList, cfg)
	}
	if err != nil {
		t.Fatalf("new domain: %v", err)
	}
	return d
}

func mustAllocate(t *testing.T, d *VertexDomain, count int) *VertexList {
	t.Helper()
	l, err := d.Allocate(count)
	if err != nil {
		t.Fatalf("Allocate(%d): %v", count, err)
	}
	return l
}

func positions(n int, base float32) []float32 {
	out := make([]float32, n*2)
	for i := range out {
		out[i] = base + float32(i)
	}
	return out
}

func TestAllocateGrowsGeometrically(t *testing.T) {
	d := newTestDomain(t, gpucore.NewRecorder(), Config{InitialCapacity: 16}, false)

	mustAllocate(t, d, 10)
	if d.Capacity() != 16 || d.Generation() != 0 {
		t.Fatalf("capacity %d gen %d, want 16 gen 0", d.Capacity(), d.Generation())
	}
	mustAllocate(t, d, 10)
	if d.Capacity() != 32 || d.Generation() != 1 {
		t.Errorf("capacity %d gen %d, want 32 gen 1", d.Capacity(), d.Generation())
	}
	mustAllocate(t, d, 100)
	if d.Capacity() != 128 {
		t.Errorf("capacity %d, want 128", d.Capacity())
	}
	if got := d.Stats().Growths; got != 2 {
		t.Errorf("growths = %d, want 2", got)
	}
}

func TestNextCapacity(t *testing.T) {
	tests := []struct {
		name        string
		factor      float64
		old, needed int
		limit       int
		want        int
		wantErr     bool
	}{
		{"double", 2, 16, 17, 0, 32, false},
		{"needed dominates", 2, 16, 100, 0, 128, false},
		{"from empty", 2, 0, 5, 0, 8, false},
		{"factor 1.5", 1.5, 16, 17, 0, 32, false},
		{"clamped to limit", 2, 16, 20, 24, 24, false},
		{"over limit", 2, 16, 30, 24, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &VertexDomain{cfg: Config{GrowthFactor: tt.factor}}
			got, err := d.nextCapacity(tt.old, tt.needed, tt.limit)
			if tt.wantErr {
				if !errors.Is(err, ErrCapacityExceeded) {
					t.Fatalf("err = %v, want ErrCapacityExceeded", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("nextCapacity = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestGrowthPreservesContent(t *testing.T) {
	rec := gpucore.NewRecorder()
	d := newTestDomain(t, rec, Config{InitialCapacity: 4}, false)

	a := mustAllocate(t, d, 3)
	marker := []float32{1, 2, 3, 4, 5, 6}
	if err := a.SetAttribute("position", marker); err != nil {
		t.Fatalf("SetAttribute: %v", err)
	}
	if _, err := d.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	ref, _ := d.BufferRef("position")

	b := mustAllocate(t, d, 10)
	if d.Generation() != 1 {
		t.Fatalf("generation = %d, want 1", d.Generation())
	}
	if b.Start() < 3 {
		t.Errorf("new list overlaps: start %d", b.Start())
	}

	got, err := a.Float32s("position")
	if err != nil {
		t.Fatalf("Float32s: %v", err)
	}
	if !slices.Equal(got, marker) {
		t.Errorf("shadow after growth = %v, want %v", got, marker)
	}

	if _, err := d.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := d.Resolve(ref); !errors.Is(err, ErrStaleReference) {
		t.Errorf("Resolve(old ref) err = %v, want ErrStaleReference", err)
	}
	ref, _ = d.BufferRef("position")
	id, err := d.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data, _ := rec.BufferData(id)
	for i, want := range marker {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[(a.Start()*2+i)*4:]))
		if v != want {
			t.Errorf("GPU value %d = %v, want %v", i, v, want)
		}
	}
	if rec.LiveBuffers() != 2 {
		t.Errorf("LiveBuffers = %d, want 2 (old buffers destroyed)", rec.LiveBuffers())
	}
}

func TestGrowthFailureIsAtomic(t *testing.T) {
	rec := gpucore.NewRecorder()
	p := testProgram(t, "colors:unorm8x4@0", "position:float32x4@1")
	d, err := New(rec, p, gputypes.PrimitiveTopologyTriangleList, Config{InitialCapacity: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := mustAllocate(t, d, 4)
	_ = a.SetAttribute("colors", []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	// colors grows to 32 bytes, position would need 128
	rec.SetMaxBufferSize(64)
	before := rec.LiveBuffers()

	_, err = d.Allocate(1)
	var ce *CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("Allocate err = %v, want *CapacityError", err)
	}
	if !errors.Is(err, gpucore.ErrBufferTooLarge) {
		t.Errorf("err = %v, want wrapped ErrBufferTooLarge", err)
	}
	if ce.Capacity != 4 || ce.Requested != 8 {
		t.Errorf("CapacityError = %+v", ce)
	}
	if rec.LiveBuffers() != before {
		t.Errorf("LiveBuffers = %d, want %d", rec.LiveBuffers(), before)
	}
	if d.Capacity() != 4 || d.Generation() != 0 || d.Len() != 1 {
		t.Errorf("domain changed: cap %d gen %d len %d", d.Capacity(), d.Generation(), d.Len())
	}
	if got, _ := a.Uint8s("colors"); got[15] != 16 {
		t.Errorf("data lost: %v", got)
	}

	rec.SetMaxBufferSize(0)
	if _, err := d.Allocate(1); err != nil {
		t.Errorf("Allocate after lifting limit: %v", err)
	}
}

func TestMaxCapacity(t *testing.T) {
	d := newTestDomain(t, gpucore.NewRecorder(), Config{InitialCapacity: 4, MaxCapacity: 8}, false)
	mustAllocate(t, d, 8)
	if d.Capacity() != 8 {
		t.Fatalf("capacity = %d, want 8", d.Capacity())
	}
	_, err := d.Allocate(1)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestInvalidHandles(t *testing.T) {
	rec := gpucore.NewRecorder()
	d := newTestDomain(t, rec, Config{}, false)
	other := newTestDomain(t, rec, Config{}, false)

	l := mustAllocate(t, d, 3)
	if err := l.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var ire *InvalidRangeError
	if err := l.Delete(); !errors.As(err, &ire) || !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("double Delete err = %v", err)
	}
	if err := d.Resize(l.Handle(), 5); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Resize freed err = %v", err)
	}
	if l.Valid() || l.Count() != 0 || l.Start() != -1 {
		t.Error("deleted list still reports a range")
	}

	// the slot is reused with a new generation
	l2 := mustAllocate(t, d, 3)
	if l2.Handle().Index != l.Handle().Index || l2.Handle().Gen == l.Handle().Gen {
		t.Errorf("slot reuse: old %v new %v", l.Handle(), l2.Handle())
	}
	if err := d.Deallocate(l.Handle()); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("stale handle err = %v", err)
	}
	if err := other.Deallocate(l2.Handle()); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("foreign handle err = %v", err)
	}
}

func TestResize(t *testing.T) {
	d := newTestDomain(t, gpucore.NewRecorder(), Config{InitialCapacity: 16}, false)
	a := mustAllocate(t, d, 2)
	b := mustAllocate(t, d, 2)
	_ = a.SetAttribute("position", positions(2, 10))

	// a is followed by b, so it must move
	if err := a.Resize(3); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if a.Start() == 0 || a.Count() != 3 {
		t.Errorf("a at %d count %d, want moved with count 3", a.Start(), a.Count())
	}
	got, _ := a.Float32s("position")
	if !slices.Equal(got[:4], positions(2, 10)) || !slices.Equal(got[4:], []float32{0, 0}) {
		t.Errorf("moved data = %v", got)
	}

	// b is followed by the slots a moved out of
	start := b.Start()
	if err := b.Resize(2); err != nil {
		t.Fatalf("Resize same: %v", err)
	}
	if err := b.Resize(1); err != nil || b.Start() != start || b.Count() != 1 {
		t.Errorf("shrink: start %d count %d err %v", b.Start(), b.Count(), err)
	}
	if err := b.Resize(2); err != nil || b.Start() != start || b.Count() != 2 {
		t.Errorf("grow in place: start %d count %d err %v", b.Start(), b.Count(), err)
	}
	if err := b.Resize(-1); !errors.Is(err, alloc.ErrNegativeSize) {
		t.Errorf("negative resize err = %v", err)
	}
}

func TestAttributeErrors(t *testing.T) {
	d := newTestDomain(t, gpucore.NewRecorder(), Config{}, false)
	l := mustAllocate(t, d, 2)

	tests := []struct {
		name     string
		attr     string
		data     any
		sentinel error
	}{
		{"unknown attribute", "normal", []float32{1, 2, 3, 4, 5, 6}, shader.ErrUnknownAttribute},
		{"wrong element type", "colors", []float32{1, 2, 3, 4, 5, 6, 7, 8}, shader.ErrTypeMismatch},
		{"wrong length", "position", []float32{1, 2, 3}, shader.ErrTypeMismatch},
		{"unsupported type", "position", []float64{1, 2, 3, 4}, shader.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.SetAttribute(tt.attr, tt.data)
			var fe *shader.IncompatibleFormatError
			if !errors.As(err, &fe) || !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want IncompatibleFormatError(%v)", err, tt.sentinel)
			}
		})
	}

	if _, err := l.Float32s("colors"); !errors.Is(err, shader.ErrTypeMismatch) {
		t.Errorf("Float32s(colors) err = %v", err)
	}
	if err := l.SetAttribute("colors", []uint8{255, 0, 0, 255, 0, 255, 0, 255}); err != nil {
		t.Errorf("valid colors: %v", err)
	}
	if got, _ := l.Uint8s("colors"); got[4] != 0 || got[5] != 255 {
		t.Errorf("Uint8s = %v", got)
	}
}

func TestAttributeView(t *testing.T) {
	rec := gpucore.NewRecorder()
	d := newTestDomain(t, rec, Config{InitialCapacity: 4}, false)
	l := mustAllocate(t, d, 2)

	v, err := l.Attribute("colors")
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	b, err := v.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(b) != 8 || v.Len() != 2 {
		t.Fatalf("view len %d bytes %d", v.Len(), len(b))
	}
	b[0] = 0xAB
	if _, err := d.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	ref, _ := d.BufferRef("colors")
	id, _ := d.Resolve(ref)
	data, _ := rec.BufferData(id)
	if data[l.Start()*4] != 0xAB {
		t.Errorf("view write not uploaded: %v", data[:8])
	}

	mustAllocate(t, d, 8) // forces growth
	if !v.Stale() {
		t.Error("view not stale after growth")
	}
	if _, err := v.Bytes(); !errors.Is(err, ErrStaleReference) {
		t.Errorf("Bytes after growth err = %v", err)
	}
	if got, _ := l.Uint8s("colors"); got[0] != 0xAB {
		t.Errorf("value lost across growth: %v", got)
	}

	v2, _ := l.Attribute("colors")
	_ = l.Resize(1)
	if err := v2.Set([]uint8{1, 2, 3, 4, 5, 6, 7, 8}); !errors.Is(err, ErrStaleReference) {
		t.Errorf("Set after resize err = %v", err)
	}
}

func TestCommitUploadsDirtyInterval(t *testing.T) {
	rec := gpucore.NewRecorder()
	d := newTestDomain(t, rec, Config{InitialCapacity: 64}, false)
	mustAllocate(t, d, 4)
	b := mustAllocate(t, d, 4)
	if _, err := d.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	rec.ResetOps()

	_ = b.SetAttribute("position", positions(4, 1))
	n, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if n != 4*8 {
		t.Errorf("uploaded %d bytes, want 32", n)
	}
	ops := rec.Ops()
	if len(ops) != 1 || ops[0].Kind != gpucore.OpWriteBuffer || ops[0].Offset != 32 {
		t.Errorf("ops = %+v", ops)
	}
	if d.Dirty() {
		t.Error("domain dirty after commit")
	}
}

func TestDrawMergesRanges(t *testing.T) {
	rec := gpucore.NewRecorder()
	d := newTestDomain(t, rec, Config{InitialCapacity: 64}, false)
	a := mustAllocate(t, d, 3)
	b := mustAllocate(t, d, 3)
	c := mustAllocate(t, d, 3)
	mustAllocate(t, d, 0)

	ranges, err := d.Ranges([]Handle{c.Handle(), a.Handle(), b.Handle()})
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(ranges) != 1 || ranges[0].First != 0 || ranges[0].Count != 9 {
		t.Errorf("merged ranges = %+v", ranges)
	}

	_ = b.Delete()
	if err := rec.BindProgram(d.ProgramID()); err != nil {
		t.Fatalf("BindProgram: %v", err)
	}
	n, err := d.DrawAll()
	if err != nil || n != 1 {
		t.Fatalf("DrawAll = %d, %v", n, err)
	}
	draws := rec.Draws()
	if len(draws) != 1 || len(draws[0].Ranges) != 2 || len(draws[0].VertexBuffers) != 2 {
		t.Errorf("draws = %+v", draws)
	}

	if _, err := d.Ranges([]Handle{b.Handle()}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Ranges(deleted) err = %v", err)
	}
}

func TestIndexedRebase(t *testing.T) {
	rec := gpucore.NewRecorder()
	d := newTestDomain(t, rec, Config{InitialCapacity: 16}, true)

	a, err := d.AllocateIndexed(3, []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("AllocateIndexed: %v", err)
	}
	b, err := d.AllocateIndexed(4, []uint32{0, 1, 2, 2, 3, 0})
	if err != nil {
		t.Fatalf("AllocateIndexed: %v", err)
	}
	if b.Start() != 3 || b.IndexStart() != 3 {
		t.Fatalf("b at %d/%d", b.Start(), b.IndexStart())
	}
	if got := d.index(b.IndexStart() + 4); got != 6 {
		t.Errorf("stored index = %d, want absolute 6", got)
	}

	if err := a.Resize(5); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if a.Start() == 0 {
		t.Fatal("a did not move")
	}
	ix, _ := a.Indices()
	if !slices.Equal(ix, []uint32{0, 1, 2}) {
		t.Errorf("relative indices = %v", ix)
	}
	if got := d.index(a.IndexStart()); got != uint32(a.Start()) {
		t.Errorf("stored index %d, want rebased %d", got, a.Start())
	}

	if err := a.SetIndices([]uint32{4, 3, 2, 1}); err != nil {
		t.Fatalf("SetIndices: %v", err)
	}
	if a.IndexCount() != 4 {
		t.Errorf("IndexCount = %d, want 4", a.IndexCount())
	}
	if err := a.SetIndices([]uint32{5}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
	if _, err := d.AllocateIndexed(2, []uint32{2}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("AllocateIndexed out of range err = %v", err)
	}

	_ = rec.BindProgram(d.ProgramID())
	if _, err := d.DrawAll(); err != nil {
		t.Errorf("DrawAll: %v", err)
	}
	if draws := rec.Draws(); len(draws) != 1 || !draws[0].Indexed || draws[0].Elements() != 10 {
		t.Errorf("draws = %+v", draws)
	}
}

func TestIndexedGrowth(t *testing.T) {
	d := newTestDomain(t, gpucore.NewRecorder(), Config{InitialCapacity: 4, IndexFormat: gputypes.IndexFormatUint16}, true)
	lists := make([]*IndexedVertexList, 0, 10)
	for range 10 {
		l, err := d.AllocateIndexed(3, []uint32{2, 1, 0})
		if err != nil {
			t.Fatalf("AllocateIndexed: %v", err)
		}
		lists = append(lists, l)
	}
	for _, l := range lists {
		ix, _ := l.Indices()
		if !slices.Equal(ix, []uint32{2, 1, 0}) {
			t.Errorf("indices of %v = %v", l, ix)
		}
	}
	if d.IndexCapacity() < 30 || d.Capacity() < 30 {
		t.Errorf("capacities %d/%d", d.Capacity(), d.IndexCapacity())
	}
	if _, err := d.IndexBufferRef(); err != nil {
		t.Errorf("IndexBufferRef: %v", err)
	}
}

func TestResizeIndexed(t *testing.T) {
	d := newTestDomain(t, gpucore.NewRecorder(), Config{InitialCapacity: 4, MaxCapacity: 8}, true)
	indices := []uint32{0, 1, 2, 2, 1, 3}
	l, err := d.AllocateIndexed(4, indices)
	if err != nil {
		t.Fatalf("AllocateIndexed: %v", err)
	}
	if err := l.SetAttribute("position", positions(4, 1)); err != nil {
		t.Fatal(err)
	}
	ref, err := d.IndexBufferRef()
	if err != nil {
		t.Fatalf("IndexBufferRef: %v", err)
	}
	if _, err := d.Resolve(ref); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	gen := d.Generation()

	// 12 indices exceed MaxCapacity; the vertex range alone would fit.
	err = l.ResizeIndexed(8, 12)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("ResizeIndexed err = %v, want ErrCapacityExceeded", err)
	}
	if l.Count() != 4 || l.IndexCount() != 6 || d.Generation() != gen || d.Capacity() != 4 {
		t.Errorf("failed resize changed the list: count %d indices %d gen %d cap %d",
			l.Count(), l.IndexCount(), d.Generation(), d.Capacity())
	}
	if _, err := d.Resolve(ref); err != nil {
		t.Errorf("reference stale after failed resize: %v", err)
	}

	if err := l.ResizeIndexed(6, 8); err != nil {
		t.Fatalf("ResizeIndexed(6, 8): %v", err)
	}
	if l.Count() != 6 || l.IndexCount() != 8 {
		t.Errorf("count %d indices %d, want 6 and 8", l.Count(), l.IndexCount())
	}
	ix, _ := l.Indices()
	if !slices.Equal(ix[:6], indices) {
		t.Errorf("indices = %v, want prefix %v", ix, indices)
	}
	if got, _ := l.Float32s("position"); !slices.Equal(got[:8], positions(4, 1)) {
		t.Errorf("position = %v", got)
	}
	if _, err := d.Resolve(ref); !errors.Is(err, ErrStaleReference) {
		t.Errorf("Resolve after growth = %v, want ErrStaleReference", err)
	}

	plain := newTestDomain(t, gpucore.NewRecorder(), Config{}, false)
	if err := plain.ResizeIndexed(mustAllocate(t, plain, 3).Handle(), 3, 3); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("ResizeIndexed on plain domain = %v, want ErrNotIndexed", err)
	}
	if _, err := plain.IndexBufferRef(); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("IndexBufferRef on plain domain = %v, want ErrNotIndexed", err)
	}
}

type recordingOwner struct {
	deleted  []*VertexList
	migrated []*VertexDomain
}

func (o *recordingOwner) ListDeleted(l *VertexList) { o.deleted = append(o.deleted, l) }
func (o *recordingOwner) ListMigrated(_ *VertexList, from *VertexDomain) {
	o.migrated = append(o.migrated, from)
}

func TestMigrate(t *testing.T) {
	rec := gpucore.NewRecorder()
	p := testProgram(t)
	src, _ := NewIndexed(rec, p, gputypes.PrimitiveTopologyTriangleList, Config{})
	dst, _ := NewIndexed(rec, p, gputypes.PrimitiveTopologyTriangleList, Config{})
	lines, _ := NewIndexed(rec, p, gputypes.PrimitiveTopologyLineList, Config{})

	mustAllocate(t, dst, 5)
	l, err := src.AllocateIndexed(3, []uint32{0, 2, 1})
	if err != nil {
		t.Fatalf("AllocateIndexed: %v", err)
	}
	_ = l.SetAttribute("position", positions(3, 7))
	owner := &recordingOwner{}
	l.SetOwner(owner)

	if err := l.Migrate(lines); !errors.Is(err, ErrIncompatibleDomain) {
		t.Errorf("migrate to other topology err = %v", err)
	}

	old := l.Handle()
	if err := l.Migrate(dst); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if l.Domain() != dst || src.Len() != 0 || src.Live(old) {
		t.Error("list not moved out of src")
	}
	if len(owner.migrated) != 1 || owner.migrated[0] != src {
		t.Errorf("owner notifications = %v", owner.migrated)
	}
	got, _ := l.Float32s("position")
	if !slices.Equal(got, positions(3, 7)) {
		t.Errorf("migrated data = %v", got)
	}
	ix, _ := l.Indices()
	if !slices.Equal(ix, []uint32{0, 2, 1}) || dst.index(l.IndexStart()) != uint32(l.Start()) {
		t.Errorf("migrated indices = %v (start %d)", ix, l.Start())
	}

	if err := l.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(owner.deleted) != 1 || owner.deleted[0] != &l.VertexList {
		t.Error("owner not told about delete")
	}
}

func TestSet(t *testing.T) {
	rec := gpucore.NewRecorder()
	s := NewSet(rec, Config{InitialCapacity: 8})
	p := testProgram(t)

	a, _ := s.Get(p, gputypes.PrimitiveTopologyTriangleList, false)
	b, _ := s.Get(p, gputypes.PrimitiveTopologyTriangleList, false)
	c, _ := s.Get(p, gputypes.PrimitiveTopologyLineList, false)
	i, _ := s.Get(p, gputypes.PrimitiveTopologyTriangleList, true)
	if a != b || a == c || a == i || s.Len() != 3 {
		t.Errorf("Get dedup failed: len %d", s.Len())
	}
	if got, ok := s.Lookup(c.Key()); !ok || got != c {
		t.Error("Lookup by key failed")
	}
	if rec.LivePrograms() != 1 {
		t.Errorf("LivePrograms = %d, want 1", rec.LivePrograms())
	}

	s.Close()
	if !a.Closed() || rec.LiveBuffers() != 0 || s.Len() != 0 {
		t.Errorf("Close left %d buffers", rec.LiveBuffers())
	}
	if _, err := a.Allocate(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Allocate on closed err = %v", err)
	}
}

// checkDomain verifies that live ranges never overlap and that the
// allocator accounts for exactly the live vertices.
func checkDomain(t *testing.T, d *VertexDomain, lists map[*VertexList]bool) {
	t.Helper()
	type span struct{ start, end int }
	var spans []span
	total := 0
	for l := range lists {
		if l.Count() > 0 {
			spans = append(spans, span{l.Start(), l.Start() + l.Count()})
		}
		total += l.Count()
	}
	slices.SortFunc(spans, func(a, b span) int { return a.start - b.start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			t.Fatalf("overlap: %v and %v", spans[i-1], spans[i])
		}
	}
	st := d.Stats()
	if st.Vertices.Used != total {
		t.Fatalf("used %d, live vertices %d", st.Vertices.Used, total)
	}
	if st.Vertices.Free != d.Capacity()-total {
		t.Fatalf("free %d, want %d", st.Vertices.Free, d.Capacity()-total)
	}
	if st.Lists != len(lists) {
		t.Fatalf("lists %d, want %d", st.Lists, len(lists))
	}
}

func TestRandomizedLists(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	d := newTestDomain(t, gpucore.NewRecorder(), Config{InitialCapacity: 8}, false)
	lists := make(map[*VertexList]bool)
	values := make(map[*VertexList]float32)

	for step := range 2000 {
		switch op := rng.IntN(3); {
		case op == 0 || len(lists) == 0:
			l := mustAllocate(t, d, rng.IntN(12))
			v := float32(step)
			_ = l.SetAttribute("position", slices.Repeat([]float32{v}, l.Count()*2))
			lists[l] = true
			values[l] = v
		case op == 1:
			for l := range lists {
				if err := l.Delete(); err != nil {
					t.Fatalf("Delete: %v", err)
				}
				delete(lists, l)
				break
			}
		default:
			for l := range lists {
				if err := l.Resize(rng.IntN(12)); err != nil {
					t.Fatalf("Resize: %v", err)
				}
				_ = l.SetAttribute("position", slices.Repeat([]float32{values[l]}, l.Count()*2))
				break
			}
		}
		checkDomain(t, d, lists)
	}

	for l := range lists {
		got, _ := l.Float32s("position")
		for _, v := range got {
			if v != values[l] {
				t.Fatalf("list %v holds %v, want %v", l, v, values[l])
			}
		}
	}
}
