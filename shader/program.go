package shader

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/graphics/gpucore"
)

// Default entry point names.
const (
	DefaultVertexEntry   = "vs_main"
	DefaultFragmentEntry = "fs_main"
)

var programIDs atomic.Uint64

// Program is a shader program together with the vertex schema it consumes.
//
// A Program is backend independent. Realize links it on a particular
// adapter on first use and caches the resulting ID. Program identity (ID)
// is what vertex domains and shader groups key on.
type Program struct {
	id            uint64
	label         string
	source        string
	vertexEntry   string
	fragmentEntry string
	schema        *Schema

	mu       sync.Mutex
	realized map[gpucore.GPUAdapter]gpucore.ProgramID
}

// ProgramOption configures a Program.
type ProgramOption func(*Program)

// WithEntryPoints overrides the vertex and fragment entry point names.
func WithEntryPoints(vertex, fragment string) ProgramOption {
	return func(p *Program) {
		if vertex != "" {
			p.vertexEntry = vertex
		}
		if fragment != "" {
			p.fragmentEntry = fragment
		}
	}
}

// NewProgram creates a program from WGSL source and an explicit schema.
func NewProgram(label, source string, schema *Schema, opts ...ProgramOption) (*Program, error) {
	if schema == nil || schema.Len() == 0 {
		return nil, fmt.Errorf("%w: program %q has no vertex attributes", ErrInvalidDeclaration, label)
	}
	p := &Program{
		id:            programIDs.Add(1),
		label:         label,
		source:        source,
		vertexEntry:   DefaultVertexEntry,
		fragmentEntry: DefaultFragmentEntry,
		schema:        schema,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewReflectedProgram creates a program whose schema is reflected from the
// vertex entry point of source.
func NewReflectedProgram(label, source string, opts ...ProgramOption) (*Program, error) {
	probe := &Program{vertexEntry: DefaultVertexEntry}
	for _, opt := range opts {
		opt(probe)
	}
	schema, err := Reflect(source, probe.vertexEntry)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", label, err)
	}
	return NewProgram(label, source, schema, opts...)
}

// ID returns the process-unique program identity.
func (p *Program) ID() uint64 { return p.id }

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// Source returns the WGSL source.
func (p *Program) Source() string { return p.source }

// Schema returns the vertex schema.
func (p *Program) Schema() *Schema { return p.schema }

// VertexEntry returns the vertex entry point name.
func (p *Program) VertexEntry() string { return p.vertexEntry }

// FragmentEntry returns the fragment entry point name.
func (p *Program) FragmentEntry() string { return p.fragmentEntry }

// Desc returns the adapter-level description of the program.
func (p *Program) Desc() *gpucore.ProgramDesc {
	return &gpucore.ProgramDesc{
		Label:         p.label,
		WGSL:          p.source,
		VertexEntry:   p.vertexEntry,
		FragmentEntry: p.fragmentEntry,
		Layouts:       p.schema.Layouts(),
	}
}

// Realize returns the program's ID on adapter, creating it on first use.
func (p *Program) Realize(adapter gpucore.GPUAdapter) (gpucore.ProgramID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.realized[adapter]; ok {
		return id, nil
	}
	id, err := adapter.CreateProgram(p.Desc())
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("program %q: %w", p.label, err)
	}
	if p.realized == nil {
		p.realized = make(map[gpucore.GPUAdapter]gpucore.ProgramID)
	}
	p.realized[adapter] = id
	return id, nil
}

// Release destroys the program on adapter if it was realized there.
func (p *Program) Release(adapter gpucore.GPUAdapter) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.realized[adapter]; ok {
		adapter.DestroyProgram(id)
		delete(p.realized, adapter)
	}
}

// String returns a short description.
func (p *Program) String() string {
	return fmt.Sprintf("Program(%s #%d [%s])", p.label, p.id, p.schema)
}
