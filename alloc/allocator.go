// Package alloc implements the region allocator behind vertex domains.
//
// An Allocator hands out contiguous [Start, Start+Size) ranges of an
// abstract linear store of a fixed capacity. It never touches memory itself:
// callers own the backing buffers and use the returned offsets to address
// them. Free space is kept in a sorted free list in which adjacent ranges
// are always coalesced, so the free list for a given set of live ranges is
// unique regardless of the order in which ranges were released.
//
// The allocator never grows on its own. When a request cannot be served,
// Alloc and Realloc return a *NoSpaceError carrying the smallest capacity
// that would satisfy it; the owner grows its buffers and calls SetCapacity
// before retrying.
//
// Allocator is not safe for concurrent use.
package alloc

import (
	"errors"
	"fmt"
	"sort"
)

// Allocator errors.
var (
	// ErrInvalidRange is returned when a range lies outside the capacity or
	// is not fully allocated (for example a double free).
	ErrInvalidRange = errors.New("alloc: invalid range")

	// ErrShrinkCapacity is returned by SetCapacity when asked to shrink.
	ErrShrinkCapacity = errors.New("alloc: capacity cannot shrink")

	// ErrNegativeSize is returned for negative sizes.
	ErrNegativeSize = errors.New("alloc: negative size")
)

// NoSpaceError reports that a request does not fit in the current capacity.
type NoSpaceError struct {
	// Capacity is the capacity at the time of the request.
	Capacity int

	// RequestedCapacity is the smallest capacity that would satisfy the
	// request, counting free space at the end of the store.
	RequestedCapacity int
}

func (e *NoSpaceError) Error() string {
	return fmt.Sprintf("alloc: out of space (capacity %d, need %d)", e.Capacity, e.RequestedCapacity)
}

// Region is a contiguous range of slots.
type Region struct {
	Start int
	Size  int
}

// End returns the first slot past the region.
func (r Region) End() int { return r.Start + r.Size }

// Overlaps reports whether two non-empty regions share a slot.
func (r Region) Overlaps(o Region) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}
	return r.Start < o.End() && o.Start < r.End()
}

// Allocator is a first-fit region allocator with a coalescing free list.
type Allocator struct {
	capacity int
	used     int

	// free is sorted by Start; no two entries overlap or touch.
	free []Region
}

// New creates an allocator managing capacity slots, all initially free.
func New(capacity int) *Allocator {
	if capacity < 0 {
		capacity = 0
	}
	a := &Allocator{capacity: capacity}
	if capacity > 0 {
		a.free = []Region{{Start: 0, Size: capacity}}
	}
	return a
}

// Capacity returns the total number of slots managed.
func (a *Allocator) Capacity() int { return a.capacity }

// Used returns the number of allocated slots.
func (a *Allocator) Used() int { return a.used }

// Free returns the number of free slots.
func (a *Allocator) Free() int { return a.capacity - a.used }

// FreeRegions returns a copy of the free list, sorted by start.
func (a *Allocator) FreeRegions() []Region {
	out := make([]Region, len(a.free))
	copy(out, a.free)
	return out
}

// AllocatedRegions returns the maximal allocated runs between free ranges.
// Adjacent allocations are reported as one region.
func (a *Allocator) AllocatedRegions() []Region {
	var out []Region
	pos := 0
	for _, f := range a.free {
		if f.Start > pos {
			out = append(out, Region{Start: pos, Size: f.Start - pos})
		}
		pos = f.End()
	}
	if pos < a.capacity {
		out = append(out, Region{Start: pos, Size: a.capacity - pos})
	}
	return out
}

// Alloc reserves size contiguous slots using first fit and returns the start.
// A zero size reserves nothing and returns (0, nil).
func (a *Allocator) Alloc(size int) (int, error) {
	if size < 0 {
		return 0, ErrNegativeSize
	}
	if size == 0 {
		return 0, nil
	}
	for i, r := range a.free {
		if r.Size < size {
			continue
		}
		start := r.Start
		if r.Size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = Region{Start: r.Start + size, Size: r.Size - size}
		}
		a.used += size
		return start, nil
	}
	return 0, &NoSpaceError{Capacity: a.capacity, RequestedCapacity: a.capacity + size - a.tailFree()}
}

// Realloc changes the size of the allocated range [start, start+size).
//
// Shrinking happens in place. Growing happens in place when the range is
// followed by enough free space; otherwise a new range is allocated and the
// old one released, and the caller must copy the contents. On error the
// allocator is unchanged.
func (a *Allocator) Realloc(start, size, newSize int) (int, error) {
	if size < 0 || newSize < 0 {
		return 0, ErrNegativeSize
	}
	if !a.IsAllocated(start, size) {
		return 0, fmt.Errorf("%w: realloc [%d,+%d)", ErrInvalidRange, start, size)
	}
	switch {
	case newSize == size:
		return start, nil
	case newSize < size:
		if err := a.Release(start+newSize, size-newSize); err != nil {
			return 0, err
		}
		return start, nil
	}

	delta := newSize - size
	end := start + size
	i := a.searchStart(end)
	if i < len(a.free) && a.free[i].Start == end && a.free[i].Size >= delta {
		if a.free[i].Size == delta {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = Region{Start: end + delta, Size: a.free[i].Size - delta}
		}
		a.used += delta
		return start, nil
	}

	if size == 0 {
		return a.Alloc(newSize)
	}

	newStart, err := a.Alloc(newSize)
	if err != nil {
		var nse *NoSpaceError
		if errors.As(err, &nse) && a.extendsToTail(end) {
			// Growing in place after the tail is extended needs less space
			// than a fresh range.
			nse.RequestedCapacity = min(nse.RequestedCapacity, start+newSize)
		}
		return 0, err
	}
	if err := a.Release(start, size); err != nil {
		return 0, err
	}
	return newStart, nil
}

// ReallocCapacity returns the smallest capacity at which Realloc(start,
// size, newSize) succeeds, or the current capacity when it already fits.
// The allocator is not changed.
func (a *Allocator) ReallocCapacity(start, size, newSize int) (int, error) {
	if size < 0 || newSize < 0 {
		return 0, ErrNegativeSize
	}
	if !a.IsAllocated(start, size) {
		return 0, fmt.Errorf("%w: realloc [%d,+%d)", ErrInvalidRange, start, size)
	}
	if newSize <= size {
		return a.capacity, nil
	}

	delta := newSize - size
	end := start + size
	i := a.searchStart(end)
	if i < len(a.free) && a.free[i].Start == end && a.free[i].Size >= delta {
		return a.capacity, nil
	}
	for _, r := range a.free {
		if r.Size >= newSize {
			return a.capacity, nil
		}
	}
	need := a.capacity + newSize - a.tailFree()
	if size > 0 && a.extendsToTail(end) {
		need = min(need, start+newSize)
	}
	return need, nil
}

// Release returns [start, start+size) to the free list, coalescing it with
// any adjacent free range.
func (a *Allocator) Release(start, size int) error {
	if size < 0 {
		return ErrNegativeSize
	}
	if size == 0 {
		return nil
	}
	if start < 0 || start+size > a.capacity {
		return fmt.Errorf("%w: [%d,+%d) outside capacity %d", ErrInvalidRange, start, size, a.capacity)
	}

	i := a.searchStart(start)
	if i > 0 && a.free[i-1].End() > start {
		return fmt.Errorf("%w: [%d,+%d) already free", ErrInvalidRange, start, size)
	}
	if i < len(a.free) && a.free[i].Start < start+size {
		return fmt.Errorf("%w: [%d,+%d) already free", ErrInvalidRange, start, size)
	}

	mergePrev := i > 0 && a.free[i-1].End() == start
	mergeNext := i < len(a.free) && a.free[i].Start == start+size
	switch {
	case mergePrev && mergeNext:
		a.free[i-1].Size += size + a.free[i].Size
		a.free = append(a.free[:i], a.free[i+1:]...)
	case mergePrev:
		a.free[i-1].Size += size
	case mergeNext:
		a.free[i] = Region{Start: start, Size: size + a.free[i].Size}
	default:
		a.free = append(a.free, Region{})
		copy(a.free[i+1:], a.free[i:])
		a.free[i] = Region{Start: start, Size: size}
	}
	a.used -= size
	return nil
}

// SetCapacity grows the managed store to n slots. The new slots are free
// and merge with any free range at the old end.
func (a *Allocator) SetCapacity(n int) error {
	if n < a.capacity {
		return fmt.Errorf("%w: %d < %d", ErrShrinkCapacity, n, a.capacity)
	}
	if n == a.capacity {
		return nil
	}
	grow := n - a.capacity
	if last := len(a.free) - 1; last >= 0 && a.free[last].End() == a.capacity {
		a.free[last].Size += grow
	} else {
		a.free = append(a.free, Region{Start: a.capacity, Size: grow})
	}
	a.capacity = n
	return nil
}

// IsAllocated reports whether every slot of [start, start+size) lies inside
// the capacity and is currently allocated.
func (a *Allocator) IsAllocated(start, size int) bool {
	if start < 0 || size < 0 || start+size > a.capacity {
		return false
	}
	if size == 0 {
		return true
	}
	// First free range that ends after start.
	i := sort.Search(len(a.free), func(k int) bool { return a.free[k].End() > start })
	return i == len(a.free) || a.free[i].Start >= start+size
}

// searchStart returns the index of the first free range starting at or
// after pos.
func (a *Allocator) searchStart(pos int) int {
	return sort.Search(len(a.free), func(k int) bool { return a.free[k].Start >= pos })
}

// tailFree returns the size of the free range touching the end of the
// store, or 0.
func (a *Allocator) tailFree() int {
	if n := len(a.free); n > 0 && a.free[n-1].End() == a.capacity {
		return a.free[n-1].Size
	}
	return 0
}

// extendsToTail reports whether everything from end to the capacity is free.
func (a *Allocator) extendsToTail(end int) bool {
	if end == a.capacity {
		return true
	}
	n := len(a.free)
	return n > 0 && a.free[n-1].Start == end && a.free[n-1].End() == a.capacity
}
