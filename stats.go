package graphics

import (
	"fmt"

	"github.com/gogpu/graphics/vertexdomain"
)

// FrameStats counts the work of the last Draw or DrawSubset.
type FrameStats struct {
	// DrawCalls is the number of draw commands issued.
	DrawCalls int

	// Ranges is the number of merged ranges across all commands.
	Ranges int

	// Elements is the number of vertices or indices drawn.
	Elements int

	// StateChanges is the number of group states set.
	StateChanges int

	// ProgramBinds counts program binds, including the ones the batch
	// issues for groups without a shader state.
	ProgramBinds int

	// BytesUploaded is the amount of shadow data committed before drawing.
	BytesUploaded int
}

// Add accumulates o into s.
func (s *FrameStats) Add(o FrameStats) {
	s.DrawCalls += o.DrawCalls
	s.Ranges += o.Ranges
	s.Elements += o.Elements
	s.StateChanges += o.StateChanges
	s.ProgramBinds += o.ProgramBinds
	s.BytesUploaded += o.BytesUploaded
}

// Stats describes a batch.
type Stats struct {
	Groups   int
	Domains  int
	Lists    int
	Rebuilds int
	Last     FrameStats
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Batch[%d lists, %d groups, %d domains, %d rebuilds] last frame: %d draws, %d states, %d binds, %d bytes",
		s.Lists, s.Groups, s.Domains, s.Rebuilds,
		s.Last.DrawCalls, s.Last.StateChanges, s.Last.ProgramBinds, s.Last.BytesUploaded)
}

// Stats returns a snapshot of the batch.
func (b *Batch) Stats() Stats {
	domains := make(map[*vertexdomain.VertexDomain]struct{})
	for _, byDomain := range b.buckets {
		for d := range byDomain {
			domains[d] = struct{}{}
		}
	}
	return Stats{
		Groups:   len(b.inTree),
		Domains:  len(domains),
		Lists:    len(b.lists),
		Rebuilds: b.rebuilds,
		Last:     b.last,
	}
}
