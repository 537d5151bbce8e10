package scene

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics"
	"github.com/gogpu/graphics/shader"
	"github.com/gogpu/graphics/vertexdomain"
)

// Result holds what Build created.
type Result struct {
	Programs *shader.Registry
	Groups   map[string]*graphics.Group
	// Lists are the created lists in drawable order, repeats adjacent.
	Lists []*vertexdomain.VertexList
	// Interner holds the shared groups.
	Interner *graphics.Interner
	// Root holds drawables that name no group. It is created on first use.
	Root *graphics.Group
}

// Group returns the named group, or Root for the empty name.
func (r *Result) Group(name string) (*graphics.Group, bool) {
	if name == "" {
		if r.Root == nil {
			r.Root = graphics.NewGroup(0, nil, graphics.WithLabel("root"))
		}
		return r.Root, true
	}
	g, ok := r.Groups[name]
	return g, ok
}

// Build creates the scene's programs, groups and lists in batch. On error
// the lists created so far are deleted.
func (s *Scene) Build(batch *graphics.Batch) (*Result, error) {
	res := &Result{
		Programs: shader.NewRegistry(),
		Groups:   make(map[string]*graphics.Group, len(s.Groups)),
		Interner: graphics.NewInterner(),
	}

	for _, p := range s.Programs {
		prog, err := newProgram(p)
		if err != nil {
			return nil, err
		}
		if err := res.Programs.Register(prog); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
	}

	b := &builder{res: res, decls: make(map[string]*Group, len(s.Groups))}
	for i := range s.Groups {
		b.decls[s.Groups[i].Name] = &s.Groups[i]
	}
	for _, g := range s.Groups {
		if _, err := b.group(g.Name, nil); err != nil {
			return nil, err
		}
	}

	for i, d := range s.Drawables {
		if err := b.drawable(batch, i, &d); err != nil {
			res.Delete()
			return nil, err
		}
	}
	return res, nil
}

// Delete deletes every list of the result.
func (r *Result) Delete() {
	for _, l := range r.Lists {
		if l.Valid() {
			_ = l.Delete()
		}
	}
	r.Lists = nil
}

func newProgram(p Program) (*shader.Program, error) {
	if p.WGSL != "" {
		return shader.NewReflectedProgram(p.Name, p.WGSL)
	}
	schema, err := shader.ParseSchema(p.Attributes...)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", p.Name, err)
	}
	return shader.NewProgram(p.Name, "", schema)
}

type builder struct {
	res   *Result
	decls map[string]*Group
}

// group resolves a group by name, creating its ancestors first.
func (b *builder) group(name string, path []string) (*graphics.Group, error) {
	if g, ok := b.res.Groups[name]; ok {
		return g, nil
	}
	decl, ok := b.decls[name]
	if !ok {
		return nil, fmt.Errorf("%w: group %q", ErrUnknownReference, name)
	}
	for _, p := range path {
		if p == name {
			return nil, fmt.Errorf("%w: group cycle %s -> %s", ErrInvalidScene, strings.Join(path, " -> "), name)
		}
	}

	var parent *graphics.Group
	if decl.Parent != "" {
		var err error
		if parent, err = b.group(decl.Parent, append(path, name)); err != nil {
			return nil, err
		}
	}

	state, err := b.state(decl)
	if err != nil {
		return nil, err
	}
	opts := []graphics.GroupOption{graphics.WithLabel(decl.Name)}
	if decl.Hidden {
		opts = append(opts, graphics.Hidden())
	}

	var g *graphics.Group
	switch {
	case decl.Shared:
		if g, err = b.res.Interner.Shareable(state, decl.Order, parent, opts...); err != nil {
			return nil, fmt.Errorf("group %q: %w", decl.Name, err)
		}
	case state != nil:
		g = graphics.NewStateGroup(state, decl.Order, parent, opts...)
	default:
		g = graphics.NewGroup(decl.Order, parent, opts...)
	}
	b.res.Groups[name] = g
	return g, nil
}

func (b *builder) state(decl *Group) (graphics.State, error) {
	switch {
	case decl.Program != "":
		prog, err := b.res.Programs.Lookup(decl.Program)
		if err != nil {
			return nil, fmt.Errorf("%w: group %q: %w", ErrUnknownReference, decl.Name, err)
		}
		return graphics.ShaderState{Program: prog}, nil
	case decl.Blend != "":
		mode, ok := blendModes[decl.Blend]
		if !ok {
			return nil, fmt.Errorf("%w: group %q: unknown blend %q", ErrInvalidScene, decl.Name, decl.Blend)
		}
		return graphics.BlendState{Blend: mode()}, nil
	case decl.Scissor != nil:
		r := image.Rect(decl.Scissor[0], decl.Scissor[1], decl.Scissor[2], decl.Scissor[3])
		return graphics.ScissorState{Rect: r}, nil
	}
	return nil, nil
}

func (b *builder) drawable(batch *graphics.Batch, i int, d *Drawable) error {
	prog, err := b.res.Programs.Lookup(d.Program)
	if err != nil {
		return fmt.Errorf("%w: drawable %d: %w", ErrUnknownReference, i, err)
	}
	group, ok := b.res.Group(d.Group)
	if !ok {
		return fmt.Errorf("%w: group %q in drawable %d", ErrUnknownReference, d.Group, i)
	}

	count := d.Count()
	data, err := values(prog.Schema(), d.Values, count)
	if err != nil {
		return fmt.Errorf("drawable %d: %w", i, err)
	}
	topo := gputypes.PrimitiveTopology(d.Topology)

	for range d.Repeat {
		var l *vertexdomain.VertexList
		if d.Quads > 0 {
			il, err := batch.NewIndexedVertexList(prog, topo, group, count, QuadIndices(d.Quads), data)
			if err != nil {
				return fmt.Errorf("drawable %d: %w", i, err)
			}
			l = il.Base()
		} else {
			if l, err = batch.NewVertexList(prog, topo, group, count, data); err != nil {
				return fmt.Errorf("drawable %d: %w", i, err)
			}
		}
		b.res.Lists = append(b.res.Lists, l)
	}
	return nil
}

// QuadIndices returns the list-relative indices of n quads, two triangles
// each.
func QuadIndices(n int) []uint32 {
	out := make([]uint32, 0, n*6)
	for q := range n {
		base := uint32(q * 4) //nolint:gosec // quad counts are small
		out = append(out, base, base+1, base+2, base+2, base+1, base+3)
	}
	return out
}

// values converts YAML numbers to typed attribute data. A value with one
// vertex worth of components is repeated for every vertex; anything else is
// passed through for the batch to check.
func values(schema *shader.Schema, in map[string][]float64, count int) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for name, v := range in {
		_, a, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q", ErrUnknownReference, name)
		}
		if len(v) == a.Components() && count > 1 {
			v = repeat(v, count)
		}
		data, err := convert(a.Element(), v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

func repeat(v []float64, n int) []float64 {
	out := make([]float64, 0, len(v)*n)
	for range n {
		out = append(out, v...)
	}
	return out
}

// convert returns v as a slice of the element type. float16 attributes take
// raw half bits. Values outside the element range are rejected.
func convert(elem shader.ElementType, v []float64) (any, error) {
	switch elem {
	case shader.ElementUint8:
		return convertTo[uint8](v, 0, math.MaxUint8)
	case shader.ElementInt8:
		return convertTo[int8](v, math.MinInt8, math.MaxInt8)
	case shader.ElementUint16, shader.ElementFloat16:
		return convertTo[uint16](v, 0, math.MaxUint16)
	case shader.ElementInt16:
		return convertTo[int16](v, math.MinInt16, math.MaxInt16)
	case shader.ElementUint32:
		return convertTo[uint32](v, 0, math.MaxUint32)
	case shader.ElementInt32:
		return convertTo[int32](v, math.MinInt32, math.MaxInt32)
	default:
		return convertTo[float32](v, -math.MaxFloat32, math.MaxFloat32)
	}
}

// convertTo rounds integer targets and checks every value against [lo, hi].
// NaN never passes the check.
func convertTo[T uint8 | int8 | uint16 | int16 | uint32 | int32 | float32](v []float64, lo, hi float64) ([]T, error) {
	out := make([]T, len(v))
	_, isFloat := any(out).([]float32)
	for i, x := range v {
		if !isFloat {
			x = math.Round(x)
		}
		if !(x >= lo && x <= hi) {
			return nil, fmt.Errorf("%w: value %v out of range for %T", ErrInvalidScene, v[i], out[i])
		}
		out[i] = T(x)
	}
	return out, nil
}
