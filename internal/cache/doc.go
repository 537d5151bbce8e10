// Package cache provides a generic LRU cache for GPU objects that must be
// released when they leave the cache.
//
//	pipelines := cache.NewWithEvict[pipelineKey, hal.RenderPipeline](64,
//	    func(_ pipelineKey, p hal.RenderPipeline) { device.DestroyRenderPipeline(p) })
//	p, err := pipelines.GetOrCreate(key, func() (hal.RenderPipeline, error) {
//	    return device.CreateRenderPipeline(desc)
//	})
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
