package graphics

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/shader"
)

// ShaderState binds a program for the subtree.
type ShaderState struct {
	Program *shader.Program
}

type programKey struct{ id uint64 }

func (k programKey) String() string { return fmt.Sprintf("program#%d", k.id) }

// StateKey returns the program identity.
func (s ShaderState) StateKey() any { return programKey{s.Program.ID()} }

// SetState binds the program.
func (s ShaderState) SetState(p *Pass) error { return p.BindProgram(s.Program) }

// UnsetState unbinds the program.
func (s ShaderState) UnsetState(p *Pass) { p.UnbindProgram(s.Program) }

// NewShaderGroup creates a group binding prog.
func NewShaderGroup(prog *shader.Program, order int, parent *Group, opts ...GroupOption) *Group {
	opts = append([]GroupOption{WithLabel(prog.Label())}, opts...)
	return NewStateGroup(ShaderState{Program: prog}, order, parent, opts...)
}

// BlendState enables a blend mode for the subtree. Leaving a nested blend
// group restores the blend mode of the enclosing one.
type BlendState struct {
	Blend gputypes.BlendState
}

// SetState enables blending.
func (s BlendState) SetState(p *Pass) error {
	b := s.Blend
	p.adapter.SetBlendState(&b)
	return nil
}

// UnsetState restores the enclosing blend mode, or disables blending.
func (s BlendState) UnsetState(p *Pass) {
	if outer, ok := enclosing[BlendState](p); ok {
		b := outer.Blend
		p.adapter.SetBlendState(&b)
		return
	}
	p.adapter.SetBlendState(nil)
}

// NewBlendGroup creates a group enabling blend.
func NewBlendGroup(blend gputypes.BlendState, order int, parent *Group, opts ...GroupOption) *Group {
	return NewStateGroup(BlendState{Blend: blend}, order, parent, opts...)
}

// ScissorState clips the subtree to a rectangle in framebuffer pixels.
// Rectangles do not intersect: a nested group clips to its own rectangle,
// and leaving it restores the enclosing one.
type ScissorState struct {
	Rect image.Rectangle
}

// SetState enables the scissor test.
func (s ScissorState) SetState(p *Pass) error {
	r := s.Rect.Canon()
	if r.Empty() {
		return fmt.Errorf("graphics: empty scissor rectangle %v", s.Rect)
	}
	p.adapter.SetScissor(&r)
	return nil
}

// UnsetState restores the enclosing rectangle, or disables the scissor test.
func (s ScissorState) UnsetState(p *Pass) {
	if outer, ok := enclosing[ScissorState](p); ok {
		r := outer.Rect.Canon()
		p.adapter.SetScissor(&r)
		return
	}
	p.adapter.SetScissor(nil)
}

// NewScissorGroup creates a group clipping to rect.
func NewScissorGroup(rect image.Rectangle, order int, parent *Group, opts ...GroupOption) *Group {
	return NewStateGroup(ScissorState{Rect: rect}, order, parent, opts...)
}
