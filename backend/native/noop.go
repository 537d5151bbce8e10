package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/graphics/backend"
	"github.com/gogpu/graphics/gpucore"
)

// init registers the noop device backend on package import.
func init() {
	backend.Register(backend.BackendNoop, func(opts backend.Options) (backend.RenderBackend, error) {
		return OpenNoop(opts)
	})
}

// NoopBackend runs an Adapter on the wgpu noop HAL device with an
// offscreen color target. Everything goes through the HAL but nothing is
// rendered.
type NoopBackend struct {
	adapter  *Adapter
	instance hal.Instance
	device   hal.Device
	texture  hal.Texture
	view     hal.TextureView
	width    uint32
	height   uint32
}

// OpenNoop opens the noop device and creates a target of opts.Width by
// opts.Height.
func OpenNoop(opts backend.Options) (*NoopBackend, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidTarget, opts.Width, opts.Height)
	}
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("noop: no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("noop open: %w", err)
	}

	b := &NoopBackend{
		instance: instance,
		device:   open.Device,
		width:    uint32(opts.Width),  //nolint:gosec // checked positive
		height:   uint32(opts.Height), //nolint:gosec // checked positive
	}
	if b.adapter, err = New(open.Device, open.Queue, Config{Label: opts.Label}); err != nil {
		b.Close()
		return nil, err
	}
	b.texture, err = open.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         opts.Label + " target",
		Size:          hal.Extent3D{Width: b.width, Height: b.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.adapter.Config().TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("target texture: %w", err)
	}
	if b.view, err = open.Device.CreateTextureView(b.texture, nil); err != nil {
		b.Close()
		return nil, fmt.Errorf("target view: %w", err)
	}
	return b, nil
}

// Name returns the backend identifier.
func (b *NoopBackend) Name() string { return backend.BackendNoop }

// Adapter returns the HAL adapter.
func (b *NoopBackend) Adapter() gpucore.GPUAdapter { return b.adapter }

// Native returns the adapter with its concrete type.
func (b *NoopBackend) Native() *Adapter { return b.adapter }

// BeginFrame opens a render pass on the target.
func (b *NoopBackend) BeginFrame() error {
	if b.adapter.InPass() {
		return backend.ErrFrameActive
	}
	return b.adapter.BeginPass(b.view, b.width, b.height)
}

// EndFrame submits the pass.
func (b *NoopBackend) EndFrame() error {
	if !b.adapter.InPass() {
		return backend.ErrNoFrame
	}
	return b.adapter.EndPass()
}

// Close destroys the adapter, the target and the device.
func (b *NoopBackend) Close() {
	if b.adapter != nil {
		b.adapter.Destroy()
	}
	if b.view != nil {
		b.device.DestroyTextureView(b.view)
		b.view = nil
	}
	if b.texture != nil {
		b.device.DestroyTexture(b.texture)
		b.texture = nil
	}
	if b.device != nil {
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}
