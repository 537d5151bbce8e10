// Package graphics batches vertex data for GPU drawing.
//
// # Overview
//
// Drawables store their vertices in shared GPU buffers owned by vertex
// domains (package vertexdomain). A [Batch] records which allocations
// belong to which [Group] and draws everything in one pass: groups are
// visited depth-first in a stable order, each group's state is set once,
// and one draw command is issued per (group, domain) pair covering every
// range registered under that pair.
//
// # Quick Start
//
//	rec := gpucore.NewRecorder()
//	batch := graphics.NewBatch(rec)
//	defer batch.Close()
//
//	prog, _ := shader.NewProgram("flat", src, shader.MustParseSchema(
//	    "position:float32x2", "colors:unorm8x4"))
//	g := graphics.NewShaderGroup(prog, 0, nil)
//
//	list, _ := batch.NewVertexList(prog, gputypes.PrimitiveTopologyTriangleList, g, 3,
//	    map[string]any{"position": []float32{0, 0, 1, 0, 0, 1}})
//	_ = batch.Draw()
//	_ = list.Delete()
//
// # Groups
//
// Groups form a tree through their parent pointers. Siblings are ordered
// by a [Comparator]; the default compares Order and then creation order.
// Groups are distinct by identity. An [Interner] hands out shared groups
// for equal (state key, order, parent) triples.
//
// # Backends
//
// Batches talk to a [gpucore.GPUAdapter]. gpucore.Recorder records calls
// in memory; backend/native drives a wgpu HAL device. Package backend keeps
// a registry of named adapters with render targets ("record", "noop").
package graphics

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
