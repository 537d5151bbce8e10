package graphics

import (
	"github.com/gogpu/graphics/gpucore"
	"github.com/gogpu/graphics/shader"
)

// Pass is the state of one traversal. States use it to reach the adapter
// and to bind programs so the batch knows which program is current.
type Pass struct {
	adapter  gpucore.GPUAdapter
	bound    gpucore.ProgramID
	implicit bool
	stack    []*Group
	stats    FrameStats
}

func newPass(adapter gpucore.GPUAdapter) *Pass {
	return &Pass{adapter: adapter, bound: gpucore.InvalidID}
}

// Adapter returns the adapter being drawn on.
func (p *Pass) Adapter() gpucore.GPUAdapter { return p.adapter }

// Program returns the bound program, or gpucore.InvalidID.
func (p *Pass) Program() gpucore.ProgramID { return p.bound }

// BindProgram realizes prog on the adapter and binds it.
func (p *Pass) BindProgram(prog *shader.Program) error {
	id, err := prog.Realize(p.adapter)
	if err != nil {
		return err
	}
	return p.bind(id, false)
}

// UnbindProgram unbinds prog if it is bound.
func (p *Pass) UnbindProgram(prog *shader.Program) {
	id, err := prog.Realize(p.adapter)
	if err != nil || id != p.bound {
		return
	}
	p.adapter.UnbindProgram(id)
	p.bound = gpucore.InvalidID
}

func (p *Pass) bind(id gpucore.ProgramID, implicit bool) error {
	if err := p.adapter.BindProgram(id); err != nil {
		return err
	}
	p.bound, p.implicit = id, implicit
	p.stats.ProgramBinds++
	return nil
}

// ensure binds id unless it is already current.
func (p *Pass) ensure(id gpucore.ProgramID) error {
	if p.bound == id {
		return nil
	}
	return p.bind(id, true)
}

func (p *Pass) push(g *Group) error {
	if g.state != nil {
		if err := g.state.SetState(p); err != nil {
			return err
		}
		p.stats.StateChanges++
	}
	p.stack = append(p.stack, g)
	return nil
}

func (p *Pass) pop() {
	g := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if g.state != nil {
		g.state.UnsetState(p)
	}
}

// enclosing returns the innermost state of type T still set on the pass.
func enclosing[T State](p *Pass) (T, bool) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if s, ok := p.stack[i].state.(T); ok {
			return s, true
		}
	}
	var zero T
	return zero, false
}

// finish unwinds states left set by an aborted traversal and unbinds a
// program the batch bound on its own.
func (p *Pass) finish() {
	for len(p.stack) > 0 {
		p.pop()
	}
	if p.implicit && p.bound != gpucore.InvalidID {
		p.adapter.UnbindProgram(p.bound)
		p.bound = gpucore.InvalidID
	}
}
