package vertexdomain

import (
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/graphics/gpucore"
	"github.com/gogpu/graphics/shader"
)

// Set creates and owns domains keyed by program, topology and indexing.
// Batches sharing a Set share its domains.
type Set struct {
	adapter gpucore.GPUAdapter
	cfg     Config
	domains map[Key]*VertexDomain
	order   []*VertexDomain
}

// NewSet creates an empty set whose domains use cfg.
func NewSet(adapter gpucore.GPUAdapter, cfg Config) *Set {
	return &Set{
		adapter: adapter,
		cfg:     cfg,
		domains: make(map[Key]*VertexDomain),
	}
}

// Adapter returns the adapter domains are created on.
func (s *Set) Adapter() gpucore.GPUAdapter { return s.adapter }

// Get returns the domain for the key, creating it on first use.
func (s *Set) Get(program *shader.Program, topology gputypes.PrimitiveTopology, indexed bool) (*VertexDomain, error) {
	key := Key{Program: program.ID(), Topology: topology, Indexed: indexed}
	if d, ok := s.domains[key]; ok {
		return d, nil
	}

	var (
		d   *VertexDomain
		err error
	)
	if indexed {
		d, err = NewIndexed(s.adapter, program, topology, s.cfg)
	} else {
		d, err = New(s.adapter, program, topology, s.cfg)
	}
	if err != nil {
		return nil, err
	}
	s.domains[key] = d
	s.order = append(s.order, d)
	return d, nil
}

// Lookup returns an existing domain.
func (s *Set) Lookup(key Key) (*VertexDomain, bool) {
	d, ok := s.domains[key]
	return d, ok
}

// Domains returns the domains in creation order.
func (s *Set) Domains() []*VertexDomain { return slices.Clone(s.order) }

// Len returns the number of domains.
func (s *Set) Len() int { return len(s.order) }

// Commit uploads pending writes of every domain.
func (s *Set) Commit() (int, error) {
	total := 0
	for _, d := range s.order {
		n, err := d.Commit()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close closes every domain and empties the set.
func (s *Set) Close() {
	for _, d := range s.order {
		d.Close()
	}
	clear(s.domains)
	s.order = nil
}
