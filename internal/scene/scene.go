// Package scene loads YAML scene descriptions and builds them into a
// graphics.Batch.
//
// A scene names programs, a group tree and drawables:
//
//	programs:
//	  - name: flat
//	    attributes: [position:float32x2, color:float32x4]
//	groups:
//	  - name: ui
//	    order: 1
//	    program: flat
//	  - name: overlay
//	    parent: ui
//	    blend: alpha
//	drawables:
//	  - program: flat
//	    group: overlay
//	    quads: 4
//	    values:
//	      color: [1, 0, 0, 1]
//
// Programs give either inline WGSL (the schema is reflected) or attribute
// declarations. A group carries at most one state: a program, a blend mode
// or a scissor rectangle.
package scene

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Scene is a parsed scene file.
type Scene struct {
	Name      string     `yaml:"name"`
	Programs  []Program  `yaml:"programs"`
	Groups    []Group    `yaml:"groups"`
	Drawables []Drawable `yaml:"drawables"`
}

// Program declares a shader program.
type Program struct {
	Name       string   `yaml:"name"`
	WGSL       string   `yaml:"wgsl"`
	Attributes []string `yaml:"attributes"`
}

// Group declares a node of the group tree.
type Group struct {
	Name    string `yaml:"name"`
	Parent  string `yaml:"parent"`
	Order   int    `yaml:"order"`
	Hidden  bool   `yaml:"hidden"`
	Program string `yaml:"program"`
	Blend   string `yaml:"blend"`
	Scissor []int  `yaml:"scissor"` // x0, y0, x1, y1
	// Shared groups are interned: equal state, order and parent give one group.
	Shared bool `yaml:"shared"`
}

// Drawable declares one or more vertex lists.
type Drawable struct {
	Program  string   `yaml:"program"`
	Group    string   `yaml:"group"`
	Topology Topology `yaml:"topology"`
	Vertices int      `yaml:"vertices"`
	// Quads makes an indexed list of Quads*4 vertices with two triangles
	// per quad.
	Quads  int                  `yaml:"quads"`
	Repeat int                  `yaml:"repeat"`
	Values map[string][]float64 `yaml:"values"`
}

// Count returns the vertex count of one list.
func (d *Drawable) Count() int {
	if d.Quads > 0 {
		return d.Quads * 4
	}
	return d.Vertices
}

// Topology wraps gputypes.PrimitiveTopology for YAML unmarshaling. Names are
// matched case-insensitively with dashes and underscores ignored, so
// "triangle-list" and "TriangleList" are the same.
type Topology gputypes.PrimitiveTopology

var topologies = []gputypes.PrimitiveTopology{
	gputypes.PrimitiveTopologyTriangleList,
	gputypes.PrimitiveTopologyPointList,
	gputypes.PrimitiveTopologyLineList,
	gputypes.PrimitiveTopologyLineStrip,
	gputypes.PrimitiveTopologyTriangleStrip,
}

// UnmarshalYAML implements yaml.Unmarshaler for Topology.
func (t *Topology) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	norm := func(s string) string {
		return strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s))
	}
	for _, topo := range topologies {
		if norm(topo.String()) == norm(s) {
			*t = Topology(topo)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown topology %q", ErrInvalidScene, s)
}

// Load parses a scene and checks that it is well formed. References between
// sections are resolved by Build.
func Load(r io.Reader) (*Scene, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scene
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScene)
		}
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	// Apply defaults
	for i := range s.Drawables {
		if s.Drawables[i].Repeat == 0 {
			s.Drawables[i].Repeat = 1
		}
	}
	return &s, nil
}

func (s *Scene) validate() error {
	seen := make(map[string]bool)
	for i, p := range s.Programs {
		if p.Name == "" {
			return fmt.Errorf("%w: program %d has no name", ErrInvalidScene, i)
		}
		if seen["program/"+p.Name] {
			return fmt.Errorf("%w: duplicate program %q", ErrInvalidScene, p.Name)
		}
		seen["program/"+p.Name] = true
		if (p.WGSL == "") == (len(p.Attributes) == 0) {
			return fmt.Errorf("%w: program %q needs exactly one of wgsl or attributes", ErrInvalidScene, p.Name)
		}
	}

	for i, g := range s.Groups {
		if g.Name == "" {
			return fmt.Errorf("%w: group %d has no name", ErrInvalidScene, i)
		}
		if seen["group/"+g.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrInvalidScene, g.Name)
		}
		seen["group/"+g.Name] = true

		states := 0
		for _, set := range []bool{g.Program != "", g.Blend != "", g.Scissor != nil} {
			if set {
				states++
			}
		}
		if states > 1 {
			return fmt.Errorf("%w: group %q sets more than one state", ErrInvalidScene, g.Name)
		}
		if g.Scissor != nil && len(g.Scissor) != 4 {
			return fmt.Errorf("%w: group %q scissor needs 4 values, got %d", ErrInvalidScene, g.Name, len(g.Scissor))
		}
		if g.Blend != "" {
			if _, ok := blendModes[g.Blend]; !ok {
				return fmt.Errorf("%w: group %q has unknown blend mode %q", ErrInvalidScene, g.Name, g.Blend)
			}
		}
	}

	for i, d := range s.Drawables {
		if d.Program == "" {
			return fmt.Errorf("%w: drawable %d has no program", ErrInvalidScene, i)
		}
		if d.Vertices < 0 || d.Quads < 0 || d.Repeat < 0 {
			return fmt.Errorf("%w: drawable %d has a negative count", ErrInvalidScene, i)
		}
		if (d.Vertices > 0) == (d.Quads > 0) {
			return fmt.Errorf("%w: drawable %d needs exactly one of vertices or quads", ErrInvalidScene, i)
		}
	}
	return nil
}

// blendModes maps scene blend names to blend states.
var blendModes = map[string]func() gputypes.BlendState{
	"replace":       gputypes.BlendStateReplace,
	"alpha":         gputypes.BlendStateAlpha,
	"premultiplied": gputypes.BlendStatePremultiplied,
}
