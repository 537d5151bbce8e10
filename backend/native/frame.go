package native

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/graphics/gpucore"
)

// frame is an open render pass.
type frame struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	bounds  image.Rectangle
	draws   int
}

func (f *frame) discard() {
	f.pass.End()
	f.encoder.DiscardEncoding()
	f.encoder.Destroy()
}

// BeginPass opens a render pass drawing into view, a width x height target.
func (a *Adapter) BeginPass(view hal.TextureView, width, height uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.destroyed:
		return ErrDestroyed
	case a.pass != nil:
		return ErrPassActive
	case view == nil || width == 0 || height == 0:
		return fmt.Errorf("%w: %dx%d", ErrInvalidTarget, width, height)
	}

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: a.cfg.Label + "/frame"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(a.cfg.Label + "/frame"); err != nil {
		encoder.Destroy()
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	att := hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if c := a.cfg.ClearColor; c != nil {
		att.LoadOp, att.ClearValue = gputypes.LoadOpClear, *c
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            a.cfg.Label + "/pass",
		ColorAttachments: []hal.RenderPassColorAttachment{att},
	})
	a.pass = &frame{
		encoder: encoder,
		pass:    pass,
		bounds:  image.Rect(0, 0, int(width), int(height)),
	}
	return nil
}

// InPass reports whether a render pass is open.
func (a *Adapter) InPass() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pass != nil
}

// EndPass ends the render pass, submits it and waits for the device.
func (a *Adapter) EndPass() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.pass
	if f == nil {
		return ErrNoActivePass
	}
	a.pass = nil
	defer f.encoder.Destroy()

	f.pass.End()
	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	if _, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	if err := a.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait idle: %w", err)
	}
	f.encoder.ResetAll([]hal.CommandBuffer{cmdBuf})
	a.stats.Passes++
	slogger().Debug("native: pass submitted", "draws", f.draws)
	return nil
}

// Draw implements gpucore.GPUAdapter. It must be called between BeginPass
// and EndPass.
func (a *Adapter) Draw(cmd *gpucore.DrawCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.pass
	if f == nil {
		return ErrNoActivePass
	}
	if cmd.Program != a.bound {
		return fmt.Errorf("%w: draw %q with program %d, bound %d", gpucore.ErrProgramNotBound, cmd.Label, cmd.Program, a.bound)
	}

	vbufs := make([]hal.Buffer, len(cmd.VertexBuffers))
	for i, vb := range cmd.VertexBuffers {
		b, ok := a.buffers[vb.Buffer]
		if !ok {
			return fmt.Errorf("%w: vertex buffer %d in draw %q", gpucore.ErrUnknownBuffer, vb.Buffer, cmd.Label)
		}
		vbufs[i] = b.raw
	}
	var ibuf hal.Buffer
	if cmd.Indexed {
		b, ok := a.buffers[cmd.IndexBuffer]
		if !ok {
			return fmt.Errorf("%w: index buffer %d in draw %q", gpucore.ErrUnknownBuffer, cmd.IndexBuffer, cmd.Label)
		}
		ibuf = b.raw
	}

	pipeline, err := a.pipeline(a.pipelineKey(cmd))
	if err != nil {
		return err
	}

	rp := f.pass
	rp.SetPipeline(pipeline)
	for i, b := range vbufs {
		rp.SetVertexBuffer(uint32(i), b, 0) //nolint:gosec // slot count is small
	}
	if cmd.Indexed {
		rp.SetIndexBuffer(ibuf, cmd.IndexFormat, 0)
	}
	clip := f.bounds
	if a.scissor != nil {
		clip = a.scissor.Intersect(f.bounds)
	}
	if clip.Empty() {
		return nil
	}
	rp.SetScissorRect(uint32(clip.Min.X), uint32(clip.Min.Y), uint32(clip.Dx()), uint32(clip.Dy())) //nolint:gosec // clipped to bounds

	for _, r := range cmd.Ranges {
		if cmd.Indexed {
			rp.DrawIndexed(r.Count, 1, r.First, 0, 0)
		} else {
			rp.Draw(r.Count, 1, r.First, 0)
		}
	}
	f.draws++
	a.stats.Draws++
	return nil
}
