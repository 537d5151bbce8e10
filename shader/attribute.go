package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// ElementType is the CPU-side scalar type used to write an attribute.
type ElementType uint8

// Element types.
const (
	ElementInvalid ElementType = iota
	ElementFloat32
	ElementFloat16 // raw IEEE half bits, written as uint16
	ElementUint8
	ElementInt8
	ElementUint16
	ElementInt16
	ElementUint32
	ElementInt32
)

// String returns the element type name.
func (e ElementType) String() string {
	switch e {
	case ElementFloat32:
		return "float32"
	case ElementFloat16:
		return "float16"
	case ElementUint8:
		return "uint8"
	case ElementInt8:
		return "int8"
	case ElementUint16:
		return "uint16"
	case ElementInt16:
		return "int16"
	case ElementUint32:
		return "uint32"
	case ElementInt32:
		return "int32"
	default:
		return "invalid"
	}
}

// Size returns the element size in bytes.
func (e ElementType) Size() int {
	switch e {
	case ElementUint8, ElementInt8:
		return 1
	case ElementFloat16, ElementUint16, ElementInt16:
		return 2
	case ElementFloat32, ElementUint32, ElementInt32:
		return 4
	default:
		return 0
	}
}

// formatInfo is the decomposition of a vertex format into element type and
// component count.
type formatInfo struct {
	elem       ElementType
	components int
	normalized bool
}

var formatTable = map[gputypes.VertexFormat]formatInfo{
	gputypes.VertexFormatUint8x2:   {ElementUint8, 2, false},
	gputypes.VertexFormatUint8x4:   {ElementUint8, 4, false},
	gputypes.VertexFormatSint8x2:   {ElementInt8, 2, false},
	gputypes.VertexFormatSint8x4:   {ElementInt8, 4, false},
	gputypes.VertexFormatUnorm8x2:  {ElementUint8, 2, true},
	gputypes.VertexFormatUnorm8x4:  {ElementUint8, 4, true},
	gputypes.VertexFormatSnorm8x2:  {ElementInt8, 2, true},
	gputypes.VertexFormatSnorm8x4:  {ElementInt8, 4, true},
	gputypes.VertexFormatUint16x2:  {ElementUint16, 2, false},
	gputypes.VertexFormatUint16x4:  {ElementUint16, 4, false},
	gputypes.VertexFormatSint16x2:  {ElementInt16, 2, false},
	gputypes.VertexFormatSint16x4:  {ElementInt16, 4, false},
	gputypes.VertexFormatUnorm16x2: {ElementUint16, 2, true},
	gputypes.VertexFormatUnorm16x4: {ElementUint16, 4, true},
	gputypes.VertexFormatSnorm16x2: {ElementInt16, 2, true},
	gputypes.VertexFormatSnorm16x4: {ElementInt16, 4, true},
	gputypes.VertexFormatFloat16x2: {ElementFloat16, 2, false},
	gputypes.VertexFormatFloat16x4: {ElementFloat16, 4, false},
	gputypes.VertexFormatFloat32:   {ElementFloat32, 1, false},
	gputypes.VertexFormatFloat32x2: {ElementFloat32, 2, false},
	gputypes.VertexFormatFloat32x3: {ElementFloat32, 3, false},
	gputypes.VertexFormatFloat32x4: {ElementFloat32, 4, false},
	gputypes.VertexFormatUint32:    {ElementUint32, 1, false},
	gputypes.VertexFormatUint32x2:  {ElementUint32, 2, false},
	gputypes.VertexFormatUint32x3:  {ElementUint32, 3, false},
	gputypes.VertexFormatUint32x4:  {ElementUint32, 4, false},
	gputypes.VertexFormatSint32:    {ElementInt32, 1, false},
	gputypes.VertexFormatSint32x2:  {ElementInt32, 2, false},
	gputypes.VertexFormatSint32x3:  {ElementInt32, 3, false},
	gputypes.VertexFormatSint32x4:  {ElementInt32, 4, false},
}

// formatsByName maps lower-case gputypes format names to formats.
var formatsByName = func() map[string]gputypes.VertexFormat {
	m := make(map[string]gputypes.VertexFormat, len(formatTable))
	for f := range formatTable {
		m[strings.ToLower(f.String())] = f
	}
	return m
}()

// Attribute describes one per-vertex input of a program.
type Attribute struct {
	// Name is the attribute name used to address vertex data.
	Name string

	// Location is the shader @location.
	Location uint32

	// Format is the GPU vertex format.
	Format gputypes.VertexFormat
}

// Components returns the number of components per vertex.
func (a Attribute) Components() int { return formatTable[a.Format].components }

// Element returns the CPU element type used to write the attribute.
func (a Attribute) Element() ElementType { return formatTable[a.Format].elem }

// Normalized reports whether integer data is normalized by the GPU.
func (a Attribute) Normalized() bool { return formatTable[a.Format].normalized }

// Stride returns the byte size of one vertex of this attribute.
func (a Attribute) Stride() int { return int(a.Format.Size()) } //nolint:gosec // format sizes are at most 16

// String returns the declaration form accepted by ParseAttribute.
func (a Attribute) String() string {
	return fmt.Sprintf("%s:%s@%d", a.Name, strings.ToLower(a.Format.String()), a.Location)
}

// validate checks that the attribute can live in a vertex domain.
func (a Attribute) validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDeclaration)
	}
	if _, ok := formatTable[a.Format]; !ok {
		return fmt.Errorf("%w: %s for %q", ErrUnsupportedFormat, a.Format, a.Name)
	}
	return nil
}

// ParseAttribute parses a declaration of the form "name:format[@location]",
// for example "position:float32x2@0" or "colors:unorm8x4". Format names are
// the gputypes names, case-insensitive. The boolean result reports whether
// a location was given; ParseSchema assigns the rest in declaration order.
func ParseAttribute(decl string) (Attribute, bool, error) {
	name, rest, ok := strings.Cut(strings.TrimSpace(decl), ":")
	if !ok || name == "" || rest == "" {
		return Attribute{}, false, fmt.Errorf("%w: %q", ErrInvalidDeclaration, decl)
	}

	fmtName, locStr, hasLoc := strings.Cut(rest, "@")
	format, ok := formatsByName[strings.ToLower(fmtName)]
	if !ok {
		return Attribute{}, false, fmt.Errorf("%w: unknown format %q in %q", ErrInvalidDeclaration, fmtName, decl)
	}

	attr := Attribute{Name: name, Format: format}
	if hasLoc {
		loc, err := strconv.ParseUint(locStr, 10, 32)
		if err != nil {
			return Attribute{}, false, fmt.Errorf("%w: bad location in %q", ErrInvalidDeclaration, decl)
		}
		attr.Location = uint32(loc)
	}
	return attr, hasLoc, nil
}
