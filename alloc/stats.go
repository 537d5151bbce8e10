package alloc

import "fmt"

// Stats describes allocator occupancy.
type Stats struct {
	// Capacity is the total number of slots.
	Capacity int

	// Used is the number of allocated slots.
	Used int

	// Free is the number of free slots.
	Free int

	// FreeRegions is the number of disjoint free ranges.
	FreeRegions int

	// LargestFree is the size of the largest free range.
	LargestFree int

	// FragmentedFree is the free space not at the end of the store, i.e.
	// the space only reusable by requests that fit into holes.
	FragmentedFree int
}

// Usage returns the fraction of capacity in use (0.0 to 1.0).
func (s Stats) Usage() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Capacity)
}

// Fragmentation returns the fraction of free space that sits in holes
// (0.0 to 1.0).
func (s Stats) Fragmentation() float64 {
	if s.Free == 0 {
		return 0
	}
	return float64(s.FragmentedFree) / float64(s.Free)
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Alloc[%d/%d used, %d free in %d regions, %.1f%% fragmented]",
		s.Used, s.Capacity, s.Free, s.FreeRegions, s.Fragmentation()*100)
}

// Stats returns a snapshot of the allocator occupancy.
func (a *Allocator) Stats() Stats {
	s := Stats{
		Capacity:    a.capacity,
		Used:        a.used,
		Free:        a.capacity - a.used,
		FreeRegions: len(a.free),
	}
	for _, r := range a.free {
		s.LargestFree = max(s.LargestFree, r.Size)
	}
	s.FragmentedFree = s.Free - a.tailFree()
	return s
}
