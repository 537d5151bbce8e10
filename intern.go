package graphics

import (
	"fmt"
	"reflect"
	"sync"
)

type internKey struct {
	key    any
	order  int
	parent uint64
}

type internEntry struct {
	group *Group
	refs  int
}

// Interner shares groups with equal state key, order and parent. Shared
// groups are reference counted and forgotten when the last reference is
// released. An Interner is safe for concurrent use.
type Interner struct {
	mu      sync.Mutex
	entries map[internKey]*internEntry
	byGroup map[*Group]internKey
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{
		entries: make(map[internKey]*internEntry),
		byGroup: make(map[*Group]internKey),
	}
}

// Shareable returns the group for (state key, order, parent), creating it
// on first use. Each call takes a reference. Options apply only when the
// group is created.
func (in *Interner) Shareable(state State, order int, parent *Group, opts ...GroupOption) (*Group, error) {
	key := stateKey(state)
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return nil, fmt.Errorf("%w: %T", ErrUnshareable, key)
	}
	k := internKey{key: key, order: order}
	if parent != nil {
		k.parent = parent.id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if e, ok := in.entries[k]; ok {
		e.refs++
		return e.group, nil
	}
	g := NewStateGroup(state, order, parent, opts...)
	g.key = key
	in.entries[k] = &internEntry{group: g, refs: 1}
	in.byGroup[g] = k
	return g, nil
}

// Release drops one reference to g and returns the references left.
// Groups not created by this interner return -1.
func (in *Interner) Release(g *Group) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	k, ok := in.byGroup[g]
	if !ok {
		return -1
	}
	e := in.entries[k]
	e.refs--
	if e.refs > 0 {
		return e.refs
	}
	delete(in.entries, k)
	delete(in.byGroup, g)
	return 0
}

// Refs returns the reference count of g, or 0.
func (in *Interner) Refs(g *Group) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if k, ok := in.byGroup[g]; ok {
		return in.entries[k].refs
	}
	return 0
}

// Len returns the number of shared groups.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries)
}
