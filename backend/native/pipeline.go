package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/graphics/gpucore"
)

// pipelineKey identifies a render pipeline. Vertex layouts are part of the
// program, so the program ID covers them.
type pipelineKey struct {
	program  gpucore.ProgramID
	topology gputypes.PrimitiveTopology
	blended  bool
	blend    gputypes.BlendState
}

func (a *Adapter) pipelineKey(cmd *gpucore.DrawCommand) pipelineKey {
	k := pipelineKey{program: cmd.Program, topology: cmd.Topology}
	if a.blend != nil {
		k.blended, k.blend = true, *a.blend
	}
	return k
}

// pipeline returns the cached pipeline for k. Caller must hold a.mu.
func (a *Adapter) pipeline(k pipelineKey) (hal.RenderPipeline, error) {
	p, ok := a.programs[k.program]
	if !ok {
		return nil, fmt.Errorf("%w: pipeline for %d", gpucore.ErrUnknownProgram, k.program)
	}
	return a.pipelines.GetOrCreate(k, func() (hal.RenderPipeline, error) {
		var blend *gputypes.BlendState
		if k.blended {
			b := k.blend
			blend = &b
		}
		rp, err := a.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  a.label("pipeline", uint64(k.program), fmt.Sprintf("%s/%s", p.desc.Label, k.topology)),
			Layout: p.layout,
			Vertex: hal.VertexState{
				Module:     p.module,
				EntryPoint: p.desc.VertexEntry,
				Buffers:    p.desc.Layouts,
			},
			Primitive: gputypes.PrimitiveState{
				Topology: k.topology,
				CullMode: gputypes.CullModeNone,
			},
			Multisample: gputypes.DefaultMultisampleState(),
			Fragment: &hal.FragmentState{
				Module:     p.module,
				EntryPoint: p.desc.FragmentEntry,
				Targets: []gputypes.ColorTargetState{{
					Format:    a.cfg.TargetFormat,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("native: render pipeline %s: %w", p.desc.Label, err)
		}
		slogger().Debug("native: pipeline created", "program", p.desc.Label, "topology", k.topology, "blended", k.blended)
		return rp, nil
	})
}
