// Package backend provides a pluggable registry of GPU adapters with
// render targets.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The recording backend is registered on import of this package; the wgpu
// HAL adapter on the noop device registers with backend/native:
//
//	import _ "github.com/gogpu/graphics/backend/native"
//
// # Backend Selection
//
// Use Default() to open the best available backend, or Open() to request
// a specific backend by name:
//
//	b, err := backend.Open("record", backend.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	batch := graphics.NewBatch(b.Adapter())
//	if err := b.BeginFrame(); err != nil {
//		log.Fatal(err)
//	}
//	err = batch.Draw()
//	...
//	err = b.EndFrame()
//
// # Available Backends
//
// - "record": in-memory gpucore.Recorder (always available)
// - "noop": backend/native over the wgpu noop HAL device
package backend
