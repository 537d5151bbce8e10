package graphics

import (
	"fmt"
	"sync/atomic"
)

// nextGroupID hands out group identities in creation order.
var nextGroupID atomic.Uint64

// State is the GPU state a group sets before its subtree is drawn and
// unsets afterwards.
type State interface {
	SetState(p *Pass) error
	UnsetState(p *Pass)
}

// StateKeyer is implemented by states whose sharing key is not the state
// value itself.
type StateKeyer interface {
	StateKey() any
}

// Group is a node of the draw tree. Siblings are ordered by the batch
// comparator; a parent's state brackets all of its descendants.
//
// Groups compare by identity. Use an [Interner] to share groups with equal
// state, order and parent.
type Group struct {
	id      uint64
	order   int
	parent  *Group
	depth   int
	state   State
	key     any
	label   string
	visible bool

	batches map[*Batch]struct{}
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithLabel sets the group label used in logs and by CompareByOrderThenLabel.
func WithLabel(label string) GroupOption {
	return func(g *Group) { g.label = label }
}

// WithKey overrides the state key.
func WithKey(key any) GroupOption {
	return func(g *Group) { g.key = key }
}

// Hidden creates the group invisible.
func Hidden() GroupOption {
	return func(g *Group) { g.visible = false }
}

// NewGroup creates a group without GPU state. parent may be nil.
func NewGroup(order int, parent *Group, opts ...GroupOption) *Group {
	return NewStateGroup(nil, order, parent, opts...)
}

// NewStateGroup creates a group that brackets its subtree with state.
func NewStateGroup(state State, order int, parent *Group, opts ...GroupOption) *Group {
	g := &Group{
		id:      nextGroupID.Add(1),
		order:   order,
		parent:  parent,
		state:   state,
		key:     stateKey(state),
		visible: true,
	}
	if parent != nil {
		g.depth = parent.depth + 1
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func stateKey(s State) any {
	if s == nil {
		return nil
	}
	if k, ok := s.(StateKeyer); ok {
		return k.StateKey()
	}
	return s
}

// ID returns the unique group identity.
func (g *Group) ID() uint64 { return g.id }

// Order returns the sibling priority. Lower draws first.
func (g *Group) Order() int { return g.order }

// Parent returns the parent group, or nil for a root.
func (g *Group) Parent() *Group { return g.parent }

// Depth returns the number of ancestors.
func (g *Group) Depth() int { return g.depth }

// State returns the group state, or nil.
func (g *Group) State() State { return g.state }

// Key returns the state key computed at construction.
func (g *Group) Key() any { return g.key }

// Visible reports whether the group's subtree is drawn.
func (g *Group) Visible() bool { return g.visible }

// Label returns the label, or a generated one.
func (g *Group) Label() string {
	if g.label != "" {
		return g.label
	}
	if g.key != nil {
		return fmt.Sprintf("%v", g.key)
	}
	return fmt.Sprintf("group#%d", g.id)
}

// SetVisible shows or hides the group's subtree.
func (g *Group) SetVisible(v bool) {
	if g.visible == v {
		return
	}
	g.visible = v
	g.invalidate()
}

// SetOrder changes the sibling priority.
func (g *Group) SetOrder(order int) {
	if g.order == order {
		return
	}
	g.order = order
	g.invalidate()
}

// IsAncestorOf reports whether g is a proper ancestor of o.
func (g *Group) IsAncestorOf(o *Group) bool {
	for p := o.parent; p != nil; p = p.parent {
		if p == g {
			return true
		}
	}
	return false
}

// String returns a short description.
func (g *Group) String() string {
	return fmt.Sprintf("Group(%s order=%d depth=%d)", g.Label(), g.order, g.depth)
}

func (g *Group) invalidate() {
	for b := range g.batches {
		b.Invalidate()
	}
}

func (g *Group) attach(b *Batch) {
	if g.batches == nil {
		g.batches = make(map[*Batch]struct{})
	}
	g.batches[b] = struct{}{}
}

func (g *Group) detach(b *Batch) { delete(g.batches, b) }
