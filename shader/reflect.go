package shader

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Reflect derives the vertex schema of a WGSL vertex entry point.
//
// Every @location input becomes an attribute named after the argument or
// struct member. Builtin inputs are skipped. An empty entryPoint selects the
// first vertex entry point of the module.
func Reflect(source, entryPoint string) (*Schema, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader: parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader: lower: %w", err)
	}

	var ep *ir.EntryPoint
	for i := range module.EntryPoints {
		e := &module.EntryPoints[i]
		if e.Stage == ir.StageVertex && (entryPoint == "" || e.Name == entryPoint) {
			ep = e
			break
		}
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoVertexEntryPoint, entryPoint)
	}

	var attrs []Attribute
	for _, arg := range ep.Function.Arguments {
		attrs, err = collectInputs(module, attrs, arg.Name, arg.Type, arg.Binding)
		if err != nil {
			return nil, err
		}
	}
	return NewSchema(attrs...)
}

// collectInputs appends the located inputs reachable from one argument.
func collectInputs(m *ir.Module, attrs []Attribute, name string, th ir.TypeHandle, b *ir.Binding) ([]Attribute, error) {
	if int(th) >= len(m.Types) {
		return nil, fmt.Errorf("%w: bad type handle for %q", ErrUnsupportedType, name)
	}
	inner := m.Types[th].Inner

	if b == nil {
		st, ok := inner.(ir.StructType)
		if !ok {
			return nil, fmt.Errorf("%w: input %q has no binding", ErrUnsupportedType, name)
		}
		var err error
		for _, member := range st.Members {
			attrs, err = collectInputs(m, attrs, member.Name, member.Type, member.Binding)
			if err != nil {
				return nil, err
			}
		}
		return attrs, nil
	}

	loc, ok := (*b).(ir.LocationBinding)
	if !ok {
		return attrs, nil
	}
	format, err := vertexFormatOf(inner)
	if err != nil {
		return nil, fmt.Errorf("%w (input %q)", err, name)
	}
	return append(attrs, Attribute{Name: name, Location: loc.Location, Format: format}), nil
}

// vertexFormatOf maps a WGSL scalar or vector type to a vertex format.
func vertexFormatOf(inner ir.TypeInner) (gputypes.VertexFormat, error) {
	var (
		scalar ir.ScalarType
		size   int
	)
	switch t := inner.(type) {
	case ir.ScalarType:
		scalar, size = t, 1
	case ir.VectorType:
		scalar, size = t.Scalar, int(t.Size)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, inner)
	}

	type key struct {
		kind  ir.ScalarKind
		width uint8
		size  int
	}
	formats := map[key]gputypes.VertexFormat{
		{ir.ScalarFloat, 4, 1}: gputypes.VertexFormatFloat32,
		{ir.ScalarFloat, 4, 2}: gputypes.VertexFormatFloat32x2,
		{ir.ScalarFloat, 4, 3}: gputypes.VertexFormatFloat32x3,
		{ir.ScalarFloat, 4, 4}: gputypes.VertexFormatFloat32x4,
		{ir.ScalarFloat, 2, 2}: gputypes.VertexFormatFloat16x2,
		{ir.ScalarFloat, 2, 4}: gputypes.VertexFormatFloat16x4,
		{ir.ScalarUint, 4, 1}:  gputypes.VertexFormatUint32,
		{ir.ScalarUint, 4, 2}:  gputypes.VertexFormatUint32x2,
		{ir.ScalarUint, 4, 3}:  gputypes.VertexFormatUint32x3,
		{ir.ScalarUint, 4, 4}:  gputypes.VertexFormatUint32x4,
		{ir.ScalarSint, 4, 1}:  gputypes.VertexFormatSint32,
		{ir.ScalarSint, 4, 2}:  gputypes.VertexFormatSint32x2,
		{ir.ScalarSint, 4, 3}:  gputypes.VertexFormatSint32x3,
		{ir.ScalarSint, 4, 4}:  gputypes.VertexFormatSint32x4,
	}
	f, ok := formats[key{scalar.Kind, scalar.Width, size}]
	if !ok {
		return 0, fmt.Errorf("%w: kind %d width %d x%d", ErrUnsupportedType, scalar.Kind, scalar.Width, size)
	}
	return f, nil
}
