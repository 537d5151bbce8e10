// Package native implements gpucore.GPUAdapter on a gogpu/wgpu HAL device.
package native

import (
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/graphics/gpucore"
	"github.com/gogpu/graphics/internal/cache"
)

type buffer struct {
	raw   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage

	// mirror holds the written contents, padded to 4 bytes, so that
	// unaligned writes can be widened without clobbering neighbours.
	mirror []byte
}

type program struct {
	desc   *gpucore.ProgramDesc
	module hal.ShaderModule
	layout hal.PipelineLayout
}

// Stats counts adapter work since creation.
type Stats struct {
	Buffers      int
	Programs     int
	Pipelines    int
	Passes       int
	Draws        int
	BytesWritten uint64
}

// Adapter drives a HAL device. Render pipelines are created on demand per
// (program, topology, blend) and kept in an LRU cache.
//
// Adapter is safe for concurrent use.
type Adapter struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	cfg    Config

	nextID    uint64
	buffers   map[gpucore.BufferID]*buffer
	programs  map[gpucore.ProgramID]*program
	pipelines *cache.Cache[pipelineKey, hal.RenderPipeline]

	bound   gpucore.ProgramID
	blend   *gputypes.BlendState
	scissor *image.Rectangle

	pass      *frame
	stats     Stats
	destroyed bool
}

var _ gpucore.GPUAdapter = (*Adapter)(nil)

// New creates an adapter on device and queue.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Adapter, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	a := &Adapter{
		device:   device,
		queue:    queue,
		cfg:      cfg.withDefaults(),
		buffers:  make(map[gpucore.BufferID]*buffer),
		programs: make(map[gpucore.ProgramID]*program),
		bound:    gpucore.InvalidID,
	}
	a.pipelines = cache.NewWithEvict(a.cfg.PipelineCacheSize, func(k pipelineKey, p hal.RenderPipeline) {
		a.device.DestroyRenderPipeline(p)
		slogger().Debug("native: pipeline released", "program", k.program, "topology", k.topology)
	})
	return a, nil
}

// FromProvider creates an adapter sharing the device of a gpucontext
// provider. The provider must also expose HalDevice() and HalQueue().
// The provider's surface format overrides cfg.TargetFormat when set.
func FromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Adapter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrProviderNotHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrProviderNotHAL, hp.HalQueue())
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		cfg.TargetFormat = f
	}
	info := provider.AdapterInfo()
	slogger().Info("native: using provider device", "adapter", info.Name, "type", info.Type, "format", cfg.TargetFormat)
	return New(device, queue, cfg)
}

// SetLogger sets the package logger. It lets graphics.SetLogger reach the
// backend.
func (a *Adapter) SetLogger(l *slog.Logger) { SetLogger(l) }

// Config returns the effective configuration.
func (a *Adapter) Config() Config { return a.cfg }

// Stats returns a snapshot of the adapter counters.
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Buffers = len(a.buffers)
	s.Programs = len(a.programs)
	s.Pipelines = a.pipelines.Len()
	return s
}

// MaxBufferSize implements gpucore.GPUAdapter.
func (a *Adapter) MaxBufferSize() uint64 { return a.cfg.MaxBufferSize }

func (a *Adapter) newID() uint64 {
	a.nextID++
	return a.nextID
}

func (a *Adapter) label(kind string, id uint64, name string) string {
	if name == "" {
		return fmt.Sprintf("%s/%s#%d", a.cfg.Label, kind, id)
	}
	return fmt.Sprintf("%s/%s", a.cfg.Label, name)
}

// === Buffers ===

// CreateBuffer implements gpucore.GPUAdapter.
func (a *Adapter) CreateBuffer(size uint64, usage gputypes.BufferUsage, label string) (gpucore.BufferID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.destroyed {
		return gpucore.InvalidID, ErrDestroyed
	}
	if a.cfg.MaxBufferSize > 0 && size > a.cfg.MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("%w: %d > %d bytes", gpucore.ErrBufferTooLarge, size, a.cfg.MaxBufferSize)
	}
	id := a.newID()
	raw, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: a.label("buffer", id, label),
		Size:  align4(size),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", label, err)
	}
	a.buffers[gpucore.BufferID(id)] = &buffer{raw: raw, size: size, usage: usage, mirror: make([]byte, align4(size))}
	return gpucore.BufferID(id), nil
}

// DestroyBuffer implements gpucore.GPUAdapter.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if b, ok := a.buffers[id]; ok {
		a.device.DestroyBuffer(b.raw)
		delete(a.buffers, id)
	}
}

// WriteBuffer implements gpucore.GPUAdapter. Writes are widened to the
// 4-byte alignment the queue requires.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buffers[id]
	if !ok {
		return fmt.Errorf("%w: write %d", gpucore.ErrUnknownBuffer, id)
	}
	end := offset + uint64(len(data))
	if end > b.size {
		return fmt.Errorf("%w: write [%d,%d) of %d bytes", gpucore.ErrOutOfBounds, offset, end, b.size)
	}
	copy(b.mirror[offset:], data)
	start := offset &^ 3
	data = b.mirror[start:align4(end)]
	if err := a.queue.WriteBuffer(b.raw, start, data); err != nil {
		return fmt.Errorf("native: write buffer %d: %w", id, err)
	}
	a.stats.BytesWritten += uint64(len(data))
	return nil
}

func align4(n uint64) uint64 { return (n + 3) &^ 3 }

// === Programs ===

// CreateProgram implements gpucore.GPUAdapter. The WGSL source is compiled
// to SPIR-V with naga when Config.CompileSPIRV is set.
func (a *Adapter) CreateProgram(desc *gpucore.ProgramDesc) (gpucore.ProgramID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.destroyed {
		return gpucore.InvalidID, ErrDestroyed
	}
	src := hal.ShaderSource{WGSL: desc.WGSL}
	if a.cfg.CompileSPIRV {
		spirv, err := naga.Compile(desc.WGSL)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("native: compile %s: %w", desc.Label, err)
		}
		src = hal.ShaderSource{SPIRV: words(spirv)}
	}

	id := a.newID()
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  a.label("shader", id, desc.Label),
		Source: src,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: shader module %s: %w", desc.Label, err)
	}
	layout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: a.label("layout", id, desc.Label),
	})
	if err != nil {
		a.device.DestroyShaderModule(module)
		return gpucore.InvalidID, fmt.Errorf("native: pipeline layout %s: %w", desc.Label, err)
	}

	cp := *desc
	a.programs[gpucore.ProgramID(id)] = &program{desc: &cp, module: module, layout: layout}
	slogger().Debug("native: program created", "program", desc.Label, "id", id, "spirv", a.cfg.CompileSPIRV)
	return gpucore.ProgramID(id), nil
}

// words packs little-endian SPIR-V bytes into words.
func words(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

// DestroyProgram implements gpucore.GPUAdapter. Pipelines built from the
// program are released.
func (a *Adapter) DestroyProgram(id gpucore.ProgramID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.programs[id]
	if !ok {
		return
	}
	for _, k := range a.pipelines.Keys() {
		if k.program == id {
			a.pipelines.Delete(k)
		}
	}
	a.device.DestroyPipelineLayout(p.layout)
	a.device.DestroyShaderModule(p.module)
	delete(a.programs, id)
	if a.bound == id {
		a.bound = gpucore.InvalidID
	}
}

// BindProgram implements gpucore.GPUAdapter.
func (a *Adapter) BindProgram(id gpucore.ProgramID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.programs[id]; !ok {
		return fmt.Errorf("%w: bind %d", gpucore.ErrUnknownProgram, id)
	}
	a.bound = id
	return nil
}

// UnbindProgram implements gpucore.GPUAdapter.
func (a *Adapter) UnbindProgram(id gpucore.ProgramID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bound == id {
		a.bound = gpucore.InvalidID
	}
}

// === State ===

// SetBlendState implements gpucore.GPUAdapter.
func (a *Adapter) SetBlendState(state *gputypes.BlendState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.blend = nil
	if state != nil {
		s := *state
		a.blend = &s
	}
}

// SetScissor implements gpucore.GPUAdapter.
func (a *Adapter) SetScissor(rect *image.Rectangle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scissor = nil
	if rect != nil {
		r := *rect
		a.scissor = &r
	}
}

// Destroy ends an open pass and releases every resource. The device is
// not destroyed.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.destroyed {
		return
	}
	if a.pass != nil {
		a.pass.discard()
		a.pass = nil
	}
	a.pipelines.Clear()
	for id, p := range a.programs {
		a.device.DestroyPipelineLayout(p.layout)
		a.device.DestroyShaderModule(p.module)
		delete(a.programs, id)
	}
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.raw)
		delete(a.buffers, id)
	}
	a.destroyed = true
	slogger().Debug("native: adapter destroyed", "draws", a.stats.Draws, "passes", a.stats.Passes)
}
