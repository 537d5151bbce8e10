package graphics

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/gpucore"
	"github.com/gogpu/graphics/shader"
	"github.com/gogpu/graphics/vertexdomain"
)

// Drawable is a vertex list that can be registered with a batch:
// *vertexdomain.VertexList or *vertexdomain.IndexedVertexList.
type Drawable interface {
	Base() *vertexdomain.VertexList
}

type listSet map[*vertexdomain.VertexList]struct{}

type opKind uint8

const (
	opPush opKind = iota
	opDraw
	opPop
)

type drawOp struct {
	kind   opKind
	group  *Group
	domain *vertexdomain.VertexDomain
}

// Batch draws registered vertex lists grouped by Group and domain. A frame
// issues one state bracket per visible group and one draw command per
// (group, domain) pair.
//
// A Batch is not safe for concurrent use.
type Batch struct {
	adapter gpucore.GPUAdapter
	compare Comparator
	label   string
	domains *vertexdomain.Set
	shared  bool

	lists    map[*vertexdomain.VertexList]*Group
	buckets  map[*Group]map[*vertexdomain.VertexDomain]listSet
	children map[*Group][]*Group
	inTree   map[*Group]bool

	drawList []drawOp
	dirty    bool
	rebuilds int
	last     FrameStats
	closed   bool
}

var _ vertexdomain.Owner = (*Batch)(nil)

// NewBatch creates an empty batch drawing on adapter. A set passed with
// WithDomains must have been created on the same adapter.
func NewBatch(adapter gpucore.GPUAdapter, opts ...BatchOption) *Batch {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Batch{
		adapter:  adapter,
		compare:  o.compare,
		label:    o.label,
		domains:  o.domains,
		shared:   o.domains != nil,
		lists:    make(map[*vertexdomain.VertexList]*Group),
		buckets:  make(map[*Group]map[*vertexdomain.VertexDomain]listSet),
		children: make(map[*Group][]*Group),
		inTree:   make(map[*Group]bool),
	}
	if b.domains == nil {
		b.domains = vertexdomain.NewSet(adapter, o.config)
	}
	if b.label == "" {
		b.label = fmt.Sprintf("batch@%p", b)
	}
	attachLogger(adapter)
	return b
}

// Adapter returns the adapter the batch draws on.
func (b *Batch) Adapter() gpucore.GPUAdapter { return b.adapter }

// Domains returns the domain set the batch allocates from.
func (b *Batch) Domains() *vertexdomain.Set { return b.domains }

// Domain returns the domain for program, topology and indexing, creating
// it on first use.
func (b *Batch) Domain(program *shader.Program, topology gputypes.PrimitiveTopology, indexed bool) (*vertexdomain.VertexDomain, error) {
	if b.closed {
		return nil, ErrBatchClosed
	}
	return b.domains.Get(program, topology, indexed)
}

// Add registers a live list under group. A list belongs to at most one
// batch: adding it again moves it to the new group, and adding a list of
// another batch removes it there first. A list stored outside the batch's
// domains is moved into the matching one, so the batch owns what it draws.
func (b *Batch) Add(group *Group, d Drawable) error {
	if b.closed {
		return ErrBatchClosed
	}
	if group == nil {
		return ErrNilGroup
	}
	l := d.Base()
	if !l.Valid() {
		return ErrInvalidList
	}
	src := l.Domain()
	if err := b.adopt(l); err != nil {
		return err
	}
	if other, ok := l.Owner().(*Batch); ok && other != b {
		other.unregister(l, src)
	}
	if _, ok := b.lists[l]; ok {
		b.unregister(l, src)
	}
	b.register(group, l)
	return nil
}

// adopt moves the data of l into the batch's domain for its program,
// topology and indexing when l lives elsewhere. The owner is not notified;
// on error l is unchanged.
func (b *Batch) adopt(l *vertexdomain.VertexList) error {
	src := l.Domain()
	target, err := b.domains.Get(src.Program(), src.Topology(), src.Indexed())
	if err != nil {
		return err
	}
	if target == src {
		return nil
	}
	owner := l.Owner()
	l.SetOwner(nil)
	err = l.Migrate(target)
	l.SetOwner(owner)
	if err != nil {
		return fmt.Errorf("graphics: move %v into %s: %w", l, target.Label(), err)
	}
	return nil
}

// NewVertexList allocates count vertices in the domain for program and
// topology, fills the named attributes and registers the list under
// group. data is validated before anything is allocated.
func (b *Batch) NewVertexList(program *shader.Program, topology gputypes.PrimitiveTopology, group *Group, count int, data map[string]any) (*vertexdomain.VertexList, error) {
	if err := b.checkNew(program, group, count, data); err != nil {
		return nil, err
	}
	d, err := b.domains.Get(program, topology, false)
	if err != nil {
		return nil, err
	}
	l, err := d.Allocate(count)
	if err != nil {
		return nil, err
	}
	if err := fill(l, data); err != nil {
		_ = l.Delete()
		return nil, err
	}
	b.register(group, l)
	return l, nil
}

// NewIndexedVertexList is NewVertexList for indexed domains. indices are
// relative to the list and must be below count.
func (b *Batch) NewIndexedVertexList(program *shader.Program, topology gputypes.PrimitiveTopology, group *Group, count int, indices []uint32, data map[string]any) (*vertexdomain.IndexedVertexList, error) {
	if err := b.checkNew(program, group, count, data); err != nil {
		return nil, err
	}
	d, err := b.domains.Get(program, topology, true)
	if err != nil {
		return nil, err
	}
	l, err := d.AllocateIndexed(count, indices)
	if err != nil {
		return nil, err
	}
	if err := fill(&l.VertexList, data); err != nil {
		_ = l.Delete()
		return nil, err
	}
	b.register(group, &l.VertexList)
	return l, nil
}

func (b *Batch) checkNew(program *shader.Program, group *Group, count int, data map[string]any) error {
	if b.closed {
		return ErrBatchClosed
	}
	if group == nil {
		return ErrNilGroup
	}
	return vertexdomain.CheckData(program, count, data)
}

func fill(l *vertexdomain.VertexList, data map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(data)) {
		if err := l.SetAttribute(name, data[name]); err != nil {
			return err
		}
	}
	return nil
}

// Remove unregisters a list without freeing its storage.
func (b *Batch) Remove(d Drawable) error {
	l := d.Base()
	if _, ok := b.lists[l]; !ok {
		return ErrListNotInBatch
	}
	b.unregister(l, l.Domain())
	l.SetOwner(nil)
	return nil
}

// Contains reports whether the list is registered with the batch.
func (b *Batch) Contains(d Drawable) bool {
	_, ok := b.lists[d.Base()]
	return ok
}

// GroupOf returns the group a list is registered under.
func (b *Batch) GroupOf(d Drawable) (*Group, bool) {
	g, ok := b.lists[d.Base()]
	return g, ok
}

// Migrate moves a list to group in dst. A nil group keeps the current
// group and a nil dst keeps the batch. When dst allocates from other
// domains the list's data moves into dst's matching domain.
func (b *Batch) Migrate(d Drawable, group *Group, dst *Batch) error {
	l := d.Base()
	g, ok := b.lists[l]
	if !ok {
		return ErrListNotInBatch
	}
	if dst == nil {
		dst = b
	}
	if dst.closed {
		return ErrBatchClosed
	}
	if group == nil {
		group = g
	}

	src := l.Domain()
	if err := dst.adopt(l); err != nil {
		return err
	}
	b.unregister(l, src)
	dst.register(group, l)
	return nil
}

// ListDeleted drops a deleted list. It implements vertexdomain.Owner.
func (b *Batch) ListDeleted(l *vertexdomain.VertexList) {
	if _, ok := b.lists[l]; !ok {
		return
	}
	b.unregister(l, l.Domain())
	l.SetOwner(nil)
}

// ListMigrated re-files a list that moved domains. It implements
// vertexdomain.Owner.
func (b *Batch) ListMigrated(l *vertexdomain.VertexList, from *vertexdomain.VertexDomain) {
	g, ok := b.lists[l]
	if !ok {
		return
	}
	b.unregister(l, from)
	b.register(g, l)
}

func (b *Batch) register(g *Group, l *vertexdomain.VertexList) {
	b.lists[l] = g
	byDomain := b.buckets[g]
	if byDomain == nil {
		byDomain = make(map[*vertexdomain.VertexDomain]listSet)
		b.buckets[g] = byDomain
	}
	set := byDomain[l.Domain()]
	if set == nil {
		set = make(listSet)
		byDomain[l.Domain()] = set
	}
	set[l] = struct{}{}
	b.addGroup(g)
	l.SetOwner(b)
	b.dirty = true
}

// unregister removes l, filed under domain d, and prunes groups left
// without lists or children.
func (b *Batch) unregister(l *vertexdomain.VertexList, d *vertexdomain.VertexDomain) {
	g := b.lists[l]
	delete(b.lists, l)
	if byDomain := b.buckets[g]; byDomain != nil {
		delete(byDomain[d], l)
		if len(byDomain[d]) == 0 {
			delete(byDomain, d)
		}
		if len(byDomain) == 0 {
			delete(b.buckets, g)
		}
	}
	b.pruneGroup(g)
	b.dirty = true
}

func (b *Batch) addGroup(g *Group) {
	for ; g != nil && !b.inTree[g]; g = g.parent {
		b.inTree[g] = true
		g.attach(b)
		b.children[g.parent] = append(b.children[g.parent], g)
	}
}

func (b *Batch) pruneGroup(g *Group) {
	for ; g != nil && b.inTree[g]; g = g.parent {
		if len(b.buckets[g]) > 0 || len(b.children[g]) > 0 {
			return
		}
		delete(b.inTree, g)
		delete(b.children, g)
		g.detach(b)
		siblings := b.children[g.parent]
		if i := slices.Index(siblings, g); i >= 0 {
			siblings = slices.Delete(siblings, i, i+1)
		}
		if len(siblings) == 0 {
			delete(b.children, g.parent)
		} else {
			b.children[g.parent] = siblings
		}
	}
}

// Invalidate forces the draw list to be rebuilt on the next Draw.
func (b *Batch) Invalidate() { b.dirty = true }

// sortedChildren returns the children of parent (roots for nil) in
// comparator order.
func (b *Batch) sortedChildren(parent *Group) []*Group {
	out := slices.Clone(b.children[parent])
	slices.SortStableFunc(out, b.compare)
	return out
}

// sortedDomains returns the domains holding lists of g in creation order.
func (b *Batch) sortedDomains(g *Group) []*vertexdomain.VertexDomain {
	out := slices.Collect(maps.Keys(b.buckets[g]))
	slices.SortFunc(out, func(x, y *vertexdomain.VertexDomain) int {
		return cmp.Compare(x.ID(), y.ID())
	})
	return out
}

// buildOps walks the visible tree depth-first. keep limits the walk to
// groups it accepts; nil keeps every group.
func (b *Batch) buildOps(keep map[*Group]bool) []drawOp {
	var ops []drawOp
	var visit func(g *Group)
	visit = func(g *Group) {
		if !g.visible || (keep != nil && !keep[g]) {
			return
		}
		ops = append(ops, drawOp{kind: opPush, group: g})
		for _, d := range b.sortedDomains(g) {
			ops = append(ops, drawOp{kind: opDraw, group: g, domain: d})
		}
		for _, c := range b.sortedChildren(g) {
			visit(c)
		}
		ops = append(ops, drawOp{kind: opPop, group: g})
	}
	for _, root := range b.sortedChildren(nil) {
		visit(root)
	}
	return ops
}

func (b *Batch) rebuild() {
	b.drawList = b.buildOps(nil)
	b.dirty = false
	b.rebuilds++
	Logger().Debug("graphics: draw list rebuilt",
		"batch", b.label, "groups", len(b.inTree), "ops", len(b.drawList))
}

// Groups returns the groups in traversal order, hidden ones included.
func (b *Batch) Groups() []*Group {
	out := make([]*Group, 0, len(b.inTree))
	var visit func(g *Group)
	visit = func(g *Group) {
		out = append(out, g)
		for _, c := range b.sortedChildren(g) {
			visit(c)
		}
	}
	for _, root := range b.sortedChildren(nil) {
		visit(root)
	}
	return out
}

// commit uploads pending writes of every domain the batch draws from.
func (b *Batch) commit() (int, error) {
	seen := make(map[*vertexdomain.VertexDomain]bool)
	var domains []*vertexdomain.VertexDomain
	for _, byDomain := range b.buckets {
		for d := range byDomain {
			if !seen[d] {
				seen[d] = true
				domains = append(domains, d)
			}
		}
	}
	slices.SortFunc(domains, func(x, y *vertexdomain.VertexDomain) int {
		return cmp.Compare(x.ID(), y.ID())
	})
	total := 0
	for _, d := range domains {
		n, err := d.Commit()
		total += n
		if err != nil {
			return total, fmt.Errorf("graphics: commit %s: %w", d.Label(), err)
		}
	}
	return total, nil
}

// Draw commits pending vertex writes and draws every visible group.
// Drawing an empty batch is a no-op.
func (b *Batch) Draw() error {
	if b.closed {
		return ErrBatchClosed
	}
	if len(b.lists) == 0 {
		b.last = FrameStats{}
		return nil
	}
	uploaded, err := b.commit()
	if err != nil {
		return err
	}
	if b.dirty {
		b.rebuild()
	}
	return b.run(b.drawList, nil, uploaded)
}

// DrawSubset draws only the given lists, bracketed by the state of their
// groups and all ancestors.
func (b *Batch) DrawSubset(lists ...Drawable) error {
	if b.closed {
		return ErrBatchClosed
	}
	filter := make(listSet, len(lists))
	keep := make(map[*Group]bool)
	for _, d := range lists {
		l := d.Base()
		g, ok := b.lists[l]
		if !ok {
			return ErrListNotInBatch
		}
		filter[l] = struct{}{}
		for ; g != nil && !keep[g]; g = g.parent {
			keep[g] = true
		}
	}
	if len(filter) == 0 {
		return nil
	}
	uploaded, err := b.commit()
	if err != nil {
		return err
	}
	return b.run(b.buildOps(keep), filter, uploaded)
}

func (b *Batch) run(ops []drawOp, filter listSet, uploaded int) error {
	p := newPass(b.adapter)
	p.stats.BytesUploaded = uploaded
	err := b.exec(p, ops, filter)
	p.finish()
	b.last = p.stats
	return err
}

func (b *Batch) exec(p *Pass, ops []drawOp, filter listSet) error {
	for _, op := range ops {
		switch op.kind {
		case opPush:
			if err := p.push(op.group); err != nil {
				return fmt.Errorf("graphics: set state of %s: %w", op.group, err)
			}
		case opPop:
			p.pop()
		case opDraw:
			if err := b.drawPair(p, op.group, op.domain, filter); err != nil {
				return err
			}
		}
	}
	return nil
}

// drawPair issues one command for the lists of g in d.
func (b *Batch) drawPair(p *Pass, g *Group, d *vertexdomain.VertexDomain, filter listSet) error {
	set := b.buckets[g][d]
	handles := make([]vertexdomain.Handle, 0, len(set))
	for l := range set {
		if filter != nil {
			if _, ok := filter[l]; !ok {
				continue
			}
		}
		handles = append(handles, l.Handle())
	}
	if len(handles) == 0 {
		return nil
	}
	cmd, err := d.DrawCommand(handles)
	if err != nil {
		return fmt.Errorf("graphics: %s in %s: %w", d.Label(), g, err)
	}
	if len(cmd.Ranges) == 0 {
		return nil
	}
	if err := p.ensure(d.ProgramID()); err != nil {
		return fmt.Errorf("graphics: bind %s: %w", d.Program(), err)
	}
	if err := b.adapter.Draw(cmd); err != nil {
		return fmt.Errorf("graphics: draw %s in %s: %w", d.Label(), g, err)
	}
	p.stats.DrawCalls++
	p.stats.Ranges += len(cmd.Ranges)
	p.stats.Elements += cmd.Elements()
	return nil
}

// Close removes every list and, unless the domains are shared, destroys
// the domains and invalidates their lists.
func (b *Batch) Close() {
	if b.closed {
		return
	}
	for l := range b.lists {
		l.SetOwner(nil)
	}
	for g := range b.inTree {
		g.detach(b)
	}
	clear(b.lists)
	clear(b.buckets)
	clear(b.children)
	clear(b.inTree)
	b.drawList = nil
	if !b.shared {
		b.domains.Close()
	}
	detachLogger(b.adapter)
	b.closed = true
}
