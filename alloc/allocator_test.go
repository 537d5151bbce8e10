package alloc

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"
)

func mustAlloc(t *testing.T, a *Allocator, size int) int {
	t.Helper()
	start, err := a.Alloc(size)
	if err != nil {
		t.Fatalf("Alloc(%d) failed: %v", size, err)
	}
	return start
}

func TestAllocFirstFit(t *testing.T) {
	a := New(10)

	for _, tc := range []struct {
		size, want int
	}{
		{3, 0},
		{4, 3},
		{3, 7},
	} {
		if got := mustAlloc(t, a, tc.size); got != tc.want {
			t.Errorf("Alloc(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}

	_, err := a.Alloc(1)
	var nse *NoSpaceError
	if !errors.As(err, &nse) {
		t.Fatalf("Alloc on full allocator: got %v, want *NoSpaceError", err)
	}
	if nse.Capacity != 10 || nse.RequestedCapacity != 11 {
		t.Errorf("NoSpaceError = %+v, want capacity 10, requested 11", nse)
	}
}

func TestAllocZeroAndNegative(t *testing.T) {
	a := New(4)
	start, err := a.Alloc(0)
	if err != nil || start != 0 {
		t.Errorf("Alloc(0) = (%d, %v), want (0, nil)", start, err)
	}
	if a.Used() != 0 {
		t.Errorf("Used after Alloc(0) = %d, want 0", a.Used())
	}
	if _, err := a.Alloc(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("Alloc(-1) error = %v, want ErrNegativeSize", err)
	}
}

func TestRequestedCapacityCountsTail(t *testing.T) {
	a := New(8)
	mustAlloc(t, a, 6)

	_, err := a.Alloc(5)
	var nse *NoSpaceError
	if !errors.As(err, &nse) {
		t.Fatalf("expected *NoSpaceError, got %v", err)
	}
	// Two free slots at the tail can be reused: 8 + 5 - 2.
	if nse.RequestedCapacity != 11 {
		t.Errorf("RequestedCapacity = %d, want 11", nse.RequestedCapacity)
	}
}

func TestReleaseCoalesces(t *testing.T) {
	a := New(10)
	mustAlloc(t, a, 2) // [0,2)
	mustAlloc(t, a, 3) // [2,5)
	mustAlloc(t, a, 2) // [5,7)

	steps := []struct {
		start, size int
		want        []Region
	}{
		{2, 3, []Region{{2, 3}, {7, 3}}},
		{0, 2, []Region{{0, 5}, {7, 3}}},
		{5, 2, []Region{{0, 10}}},
	}
	for _, s := range steps {
		if err := a.Release(s.start, s.size); err != nil {
			t.Fatalf("Release(%d, %d): %v", s.start, s.size, err)
		}
		if got := a.FreeRegions(); !reflect.DeepEqual(got, s.want) {
			t.Errorf("after Release(%d, %d) free = %v, want %v", s.start, s.size, got, s.want)
		}
	}
	if a.Used() != 0 {
		t.Errorf("Used = %d, want 0", a.Used())
	}
}

func TestReleaseConfluent(t *testing.T) {
	// Six 2-slot regions; releasing 1, 3 and 4 in any order must give the
	// same free list.
	orders := [][]int{
		{1, 3, 4}, {1, 4, 3}, {3, 1, 4},
		{3, 4, 1}, {4, 1, 3}, {4, 3, 1},
	}
	want := []Region{{2, 2}, {6, 4}}

	for _, order := range orders {
		a := New(12)
		for range 6 {
			mustAlloc(t, a, 2)
		}
		for _, idx := range order {
			if err := a.Release(idx*2, 2); err != nil {
				t.Fatalf("order %v: Release region %d: %v", order, idx, err)
			}
		}
		if got := a.FreeRegions(); !reflect.DeepEqual(got, want) {
			t.Errorf("order %v: free = %v, want %v", order, got, want)
		}
	}
}

func TestReleaseInvalid(t *testing.T) {
	a := New(10)
	mustAlloc(t, a, 4)

	tests := []struct {
		name        string
		start, size int
	}{
		{"outside capacity", 8, 4},
		{"negative start", -1, 2},
		{"already free", 5, 2},
		{"straddles free", 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.Release(tt.start, tt.size); !errors.Is(err, ErrInvalidRange) {
				t.Errorf("Release(%d, %d) = %v, want ErrInvalidRange", tt.start, tt.size, err)
			}
		})
	}

	if err := a.Release(0, 4); err != nil {
		t.Fatalf("Release(0, 4): %v", err)
	}
	if err := a.Release(0, 4); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("double Release = %v, want ErrInvalidRange", err)
	}
}

func TestRealloc(t *testing.T) {
	t.Run("grow in place", func(t *testing.T) {
		a := New(10)
		mustAlloc(t, a, 4)
		got, err := a.Realloc(0, 4, 6)
		if err != nil || got != 0 {
			t.Fatalf("Realloc = (%d, %v), want (0, nil)", got, err)
		}
		if want := []Region{{6, 4}}; !reflect.DeepEqual(a.FreeRegions(), want) {
			t.Errorf("free = %v, want %v", a.FreeRegions(), want)
		}
	})

	t.Run("grow by moving", func(t *testing.T) {
		a := New(10)
		mustAlloc(t, a, 2)
		mustAlloc(t, a, 2)
		got, err := a.Realloc(0, 2, 4)
		if err != nil || got != 4 {
			t.Fatalf("Realloc = (%d, %v), want (4, nil)", got, err)
		}
		if want := []Region{{0, 2}, {8, 2}}; !reflect.DeepEqual(a.FreeRegions(), want) {
			t.Errorf("free = %v, want %v", a.FreeRegions(), want)
		}
		if a.Used() != 6 {
			t.Errorf("Used = %d, want 6", a.Used())
		}
	})

	t.Run("shrink", func(t *testing.T) {
		a := New(10)
		mustAlloc(t, a, 5)
		got, err := a.Realloc(0, 5, 2)
		if err != nil || got != 0 {
			t.Fatalf("Realloc = (%d, %v), want (0, nil)", got, err)
		}
		if want := []Region{{2, 8}}; !reflect.DeepEqual(a.FreeRegions(), want) {
			t.Errorf("free = %v, want %v", a.FreeRegions(), want)
		}
	})

	t.Run("no space leaves allocator unchanged", func(t *testing.T) {
		a := New(4)
		mustAlloc(t, a, 2)
		mustAlloc(t, a, 2)
		_, err := a.Realloc(2, 2, 5)
		var nse *NoSpaceError
		if !errors.As(err, &nse) {
			t.Fatalf("expected *NoSpaceError, got %v", err)
		}
		if nse.RequestedCapacity != 7 {
			t.Errorf("RequestedCapacity = %d, want 7", nse.RequestedCapacity)
		}
		if a.Used() != 4 || len(a.FreeRegions()) != 0 {
			t.Errorf("allocator changed: used %d free %v", a.Used(), a.FreeRegions())
		}
		if err := a.SetCapacity(nse.RequestedCapacity); err != nil {
			t.Fatal(err)
		}
		got, err := a.Realloc(2, 2, 5)
		if err != nil || got != 2 {
			t.Errorf("Realloc after growth = (%d, %v), want (2, nil)", got, err)
		}
	})

	t.Run("invalid range", func(t *testing.T) {
		a := New(4)
		if _, err := a.Realloc(0, 2, 3); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Realloc of free range = %v, want ErrInvalidRange", err)
		}
	})
}

func TestReallocCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		allocs   []int
		start    int
		size     int
		newSize  int
		want     int
	}{
		{"fits in place", 10, []int{4}, 0, 4, 6, 10},
		{"fits by moving", 10, []int{2, 2}, 0, 2, 4, 10},
		{"shrink", 4, []int{4}, 0, 4, 1, 4},
		{"tail range extends", 4, []int{2, 2}, 2, 2, 5, 7},
		{"inner range moves", 4, []int{2, 2}, 0, 2, 3, 7},
		{"empty range", 4, []int{4}, 0, 0, 3, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.capacity)
			for _, n := range tt.allocs {
				mustAlloc(t, a, n)
			}
			free := a.FreeRegions()
			got, err := a.ReallocCapacity(tt.start, tt.size, tt.newSize)
			if err != nil || got != tt.want {
				t.Fatalf("ReallocCapacity = (%d, %v), want (%d, nil)", got, err, tt.want)
			}
			if !reflect.DeepEqual(a.FreeRegions(), free) {
				t.Fatalf("allocator changed: free %v, was %v", a.FreeRegions(), free)
			}
			if err := a.SetCapacity(got); err != nil {
				t.Fatal(err)
			}
			if _, err := a.Realloc(tt.start, tt.size, tt.newSize); err != nil {
				t.Errorf("Realloc at capacity %d: %v", got, err)
			}
		})
	}

	a := New(4)
	if _, err := a.ReallocCapacity(0, 2, 3); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("ReallocCapacity of free range = %v, want ErrInvalidRange", err)
	}
}

func TestSetCapacity(t *testing.T) {
	a := New(4)
	mustAlloc(t, a, 4)
	if err := a.SetCapacity(8); err != nil {
		t.Fatal(err)
	}
	if want := []Region{{4, 4}}; !reflect.DeepEqual(a.FreeRegions(), want) {
		t.Errorf("free = %v, want %v", a.FreeRegions(), want)
	}
	if err := a.SetCapacity(2); !errors.Is(err, ErrShrinkCapacity) {
		t.Errorf("SetCapacity(2) = %v, want ErrShrinkCapacity", err)
	}

	b := New(4)
	mustAlloc(t, b, 2)
	if err := b.SetCapacity(6); err != nil {
		t.Fatal(err)
	}
	if want := []Region{{2, 4}}; !reflect.DeepEqual(b.FreeRegions(), want) {
		t.Errorf("tail not merged: free = %v, want %v", b.FreeRegions(), want)
	}
}

func TestAllocatedRegions(t *testing.T) {
	a := New(10)
	mustAlloc(t, a, 3)
	mustAlloc(t, a, 3)
	mustAlloc(t, a, 1)
	if err := a.Release(0, 3); err != nil {
		t.Fatal(err)
	}
	want := []Region{{3, 4}}
	if got := a.AllocatedRegions(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllocatedRegions = %v, want %v", got, want)
	}
}

func TestStats(t *testing.T) {
	a := New(10)
	mustAlloc(t, a, 3)
	mustAlloc(t, a, 3)
	if err := a.Release(0, 3); err != nil {
		t.Fatal(err)
	}

	s := a.Stats()
	want := Stats{Capacity: 10, Used: 3, Free: 7, FreeRegions: 2, LargestFree: 4, FragmentedFree: 3}
	if s != want {
		t.Errorf("Stats = %+v, want %+v", s, want)
	}
	if got, want := s.Fragmentation(), 3.0/7.0; got != want {
		t.Errorf("Fragmentation = %v, want %v", got, want)
	}
	if got := s.Usage(); got != 0.3 {
		t.Errorf("Usage = %v, want 0.3", got)
	}
	if (Stats{}).Fragmentation() != 0 || (Stats{}).Usage() != 0 {
		t.Error("empty stats should report zero ratios")
	}
}

// checkInvariants verifies the allocator against the caller's view of live
// regions.
func checkInvariants(t *testing.T, a *Allocator, live map[int]int) {
	t.Helper()

	regions := make([]Region, 0, len(live))
	total := 0
	for start, size := range live {
		regions = append(regions, Region{Start: start, Size: size})
		total += size
		if !a.IsAllocated(start, size) {
			t.Fatalf("live region [%d,+%d) not allocated", start, size)
		}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	for i := 1; i < len(regions); i++ {
		if regions[i-1].Overlaps(regions[i]) {
			t.Fatalf("overlapping live regions %v and %v", regions[i-1], regions[i])
		}
	}

	if a.Used() != total {
		t.Fatalf("Used = %d, live total = %d", a.Used(), total)
	}
	if a.Used()+a.Free() != a.Capacity() {
		t.Fatalf("Used %d + Free %d != Capacity %d", a.Used(), a.Free(), a.Capacity())
	}

	free := a.FreeRegions()
	sum := 0
	for i, r := range free {
		sum += r.Size
		if r.Size <= 0 {
			t.Fatalf("empty free region %v", r)
		}
		if i > 0 && free[i-1].End() >= r.Start {
			t.Fatalf("free regions %v and %v touch or overlap", free[i-1], r)
		}
	}
	if sum != a.Capacity()-total {
		t.Fatalf("free space %d exceeds capacity - live (%d)", sum, a.Capacity()-total)
	}
}

func TestRandomizedOperations(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	a := New(16)
	live := make(map[int]int)

	starts := func() []int {
		keys := make([]int, 0, len(live))
		for k := range live {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		return keys
	}

	for i := 0; i < 3000; i++ {
		switch op := rng.IntN(3); {
		case op == 0 || len(live) == 0:
			size := 1 + rng.IntN(16)
			start, err := a.Alloc(size)
			var nse *NoSpaceError
			if errors.As(err, &nse) {
				if err := a.SetCapacity(nse.RequestedCapacity); err != nil {
					t.Fatal(err)
				}
				start, err = a.Alloc(size)
			}
			if err != nil {
				t.Fatalf("op %d: Alloc(%d) after growth: %v", i, size, err)
			}
			live[start] = size
		case op == 1:
			keys := starts()
			start := keys[rng.IntN(len(keys))]
			if err := a.Release(start, live[start]); err != nil {
				t.Fatalf("op %d: Release: %v", i, err)
			}
			delete(live, start)
		default:
			keys := starts()
			start := keys[rng.IntN(len(keys))]
			size := live[start]
			newSize := 1 + rng.IntN(24)
			got, err := a.Realloc(start, size, newSize)
			var nse *NoSpaceError
			if errors.As(err, &nse) {
				if err := a.SetCapacity(nse.RequestedCapacity); err != nil {
					t.Fatal(err)
				}
				got, err = a.Realloc(start, size, newSize)
			}
			if err != nil {
				t.Fatalf("op %d: Realloc(%d, %d, %d): %v", i, start, size, newSize, err)
			}
			delete(live, start)
			live[got] = newSize
		}
		checkInvariants(t, a, live)
	}
}
