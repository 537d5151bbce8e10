package vertexdomain

import (
	"fmt"

	"github.com/gogpu/graphics/alloc"
)

// Stats describes domain occupancy.
type Stats struct {
	// Vertices is the vertex allocator snapshot.
	Vertices alloc.Stats

	// Indices is the index allocator snapshot; zero for non-indexed domains.
	Indices alloc.Stats

	// Lists is the number of live allocations.
	Lists int

	// Generation is the current domain generation.
	Generation uint64

	// Growths is the number of growth events so far.
	Growths int

	// BufferBytes is the total size of the domain's GPU buffers.
	BufferBytes int
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Domain[%d lists, gen %d, %d growths, %d bytes] %s",
		s.Lists, s.Generation, s.Growths, s.BufferBytes, s.Vertices)
}

// Stats returns a snapshot of the domain occupancy.
func (d *VertexDomain) Stats() Stats {
	s := Stats{
		Vertices:   d.vertices.Stats(),
		Lists:      d.lists,
		Generation: d.generation,
		Growths:    d.growths,
	}
	for _, b := range d.buffers {
		s.BufferBytes += len(b.data)
	}
	if d.indexed {
		s.Indices = d.indices.Stats()
		s.BufferBytes += len(d.indexBuf.data)
	}
	return s
}
