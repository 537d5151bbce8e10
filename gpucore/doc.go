// Package gpucore defines the contract between the batching core and a GPU
// backend.
//
// The batching packages never talk to a graphics API directly. They allocate
// vertex and index storage, create programs, bind render state and issue
// draws through the [GPUAdapter] interface, addressing resources by opaque
// IDs ([BufferID], [ProgramID]). A thin adapter translates these calls to a
// concrete API:
//
//	+-----------------------+
//	|  graphics.Batch       |
//	|  vertexdomain.Domain  |
//	+-----------+-----------+
//	            | GPUAdapter
//	+-----------v-----------+     +-------------------+
//	|    backend/native     |     |  gpucore.Recorder |
//	|  (wgpu hal.Device)    |     |  (in memory)      |
//	+-----------------------+     +-------------------+
//
// # Draw commands
//
// A [DrawCommand] describes one submission against one vertex domain: the
// program, the primitive topology, one vertex buffer per attribute, an
// optional index buffer and a list of [DrawRange] values. Ranges are drawn
// in order as a multi-draw; adapters without native multi-draw issue one
// draw per range.
//
// # Recorder
//
// [Recorder] is a complete in-memory adapter. It keeps buffer contents,
// validates every draw against the bound program and the buffer bounds, and
// logs each call as an [Op]. Tests use it to observe state-change counts;
// the batchdemo tool uses it as a headless backend.
package gpucore
