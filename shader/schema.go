package shader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
)

// Schema is the ordered, immutable set of vertex attributes a program reads.
// Attributes are ordered by location; attribute i is fed from vertex buffer
// slot i.
type Schema struct {
	attrs     []Attribute
	index     map[string]int
	signature string
}

// NewSchema validates attrs and builds a schema. Names and locations must be
// unique and every format must be supported.
func NewSchema(attrs ...Attribute) (*Schema, error) {
	s := &Schema{
		attrs: slices.Clone(attrs),
		index: make(map[string]int, len(attrs)),
	}
	slices.SortStableFunc(s.attrs, func(a, b Attribute) int {
		return int(a.Location) - int(b.Location)
	})

	locations := make(map[uint32]string, len(attrs))
	parts := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.index[a.Name]; dup {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateAttribute, a.Name)
		}
		if other, dup := locations[a.Location]; dup {
			return nil, fmt.Errorf("%w: location %d used by %q and %q", ErrDuplicateAttribute, a.Location, other, a.Name)
		}
		s.index[a.Name] = i
		locations[a.Location] = a.Name
		parts[i] = a.String()
	}
	s.signature = strings.Join(parts, ",")
	return s, nil
}

// ParseSchema builds a schema from declarations accepted by ParseAttribute.
// Declarations without a location get the lowest unused location, in order.
func ParseSchema(decls ...string) (*Schema, error) {
	attrs := make([]Attribute, 0, len(decls))
	explicit := make([]bool, 0, len(decls))
	used := make(map[uint32]bool)
	for _, d := range decls {
		a, hasLoc, err := ParseAttribute(d)
		if err != nil {
			return nil, err
		}
		if hasLoc {
			used[a.Location] = true
		}
		attrs = append(attrs, a)
		explicit = append(explicit, hasLoc)
	}

	next := uint32(0)
	for i := range attrs {
		if explicit[i] {
			continue
		}
		for used[next] {
			next++
		}
		attrs[i].Location = next
		used[next] = true
	}
	return NewSchema(attrs...)
}

// MustParseSchema is like ParseSchema but panics on error. It is intended
// for package-level schema declarations.
func MustParseSchema(decls ...string) *Schema {
	s, err := ParseSchema(decls...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of attributes.
func (s *Schema) Len() int { return len(s.attrs) }

// At returns attribute i in slot order.
func (s *Schema) At(i int) Attribute { return s.attrs[i] }

// Attributes returns a copy of the attributes in slot order.
func (s *Schema) Attributes() []Attribute { return slices.Clone(s.attrs) }

// Names returns the attribute names in slot order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		names[i] = a.Name
	}
	return names
}

// Lookup returns the slot and attribute for name.
func (s *Schema) Lookup(name string) (int, Attribute, bool) {
	i, ok := s.index[name]
	if !ok {
		return -1, Attribute{}, false
	}
	return i, s.attrs[i], true
}

// Signature returns a canonical string identifying the schema. Two schemas
// with the same signature have identical buffer layouts.
func (s *Schema) Signature() string { return s.signature }

// Equal reports whether two schemas declare the same attributes.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.signature == o.signature
}

// Layouts returns one non-interleaved vertex buffer layout per attribute.
func (s *Schema) Layouts() []gputypes.VertexBufferLayout {
	out := make([]gputypes.VertexBufferLayout, len(s.attrs))
	for i, a := range s.attrs {
		out[i] = gputypes.VertexBufferLayout{
			ArrayStride: a.Format.Size(),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: a.Format, Offset: 0, ShaderLocation: a.Location},
			},
		}
	}
	return out
}

// Check verifies that data of element type elem and length elements can
// initialise attribute name for the given number of vertices. The program
// label is used for error reporting.
func (s *Schema) Check(program, name string, elem ElementType, length, vertices int) error {
	_, a, ok := s.Lookup(name)
	if !ok {
		return &IncompatibleFormatError{
			Program:   program,
			Attribute: name,
			Detail:    "declared: " + strings.Join(s.Names(), ", "),
			Err:       ErrUnknownAttribute,
		}
	}
	if elem != a.Element() {
		return &IncompatibleFormatError{
			Program:   program,
			Attribute: name,
			Detail:    fmt.Sprintf("got %s data for %s", elem, a.Format),
			Err:       ErrTypeMismatch,
		}
	}
	if want := vertices * a.Components(); length != want {
		return &IncompatibleFormatError{
			Program:   program,
			Attribute: name,
			Detail:    fmt.Sprintf("got %d values, want %d (%d vertices x %d)", length, want, vertices, a.Components()),
			Err:       ErrTypeMismatch,
		}
	}
	return nil
}

// String returns the schema signature.
func (s *Schema) String() string { return s.signature }
