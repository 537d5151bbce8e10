package native

import "github.com/gogpu/gputypes"

// Default configuration values.
const (
	// DefaultPipelineCacheSize is the number of render pipelines kept.
	DefaultPipelineCacheSize = 64

	// DefaultTargetFormat is the color target format.
	DefaultTargetFormat = gputypes.TextureFormatBGRA8Unorm
)

// Config configures an Adapter.
type Config struct {
	// Label prefixes the labels of created GPU objects.
	// Default: "graphics".
	Label string

	// TargetFormat is the format of the color attachment pipelines render to.
	// Default: DefaultTargetFormat.
	TargetFormat gputypes.TextureFormat

	// CompileSPIRV compiles WGSL to SPIR-V with naga before creating shader
	// modules. When false the WGSL source is passed to the device.
	CompileSPIRV bool

	// PipelineCacheSize limits the cached render pipelines.
	// Default: DefaultPipelineCacheSize.
	PipelineCacheSize int

	// MaxBufferSize limits buffer sizes. 0 means no limit.
	MaxBufferSize uint64

	// ClearColor clears the target at BeginPass. Nil keeps its contents.
	ClearColor *gputypes.Color
}

func (c Config) withDefaults() Config {
	if c.Label == "" {
		c.Label = "graphics"
	}
	if c.TargetFormat == gputypes.TextureFormatUndefined {
		c.TargetFormat = DefaultTargetFormat
	}
	if c.PipelineCacheSize <= 0 {
		c.PipelineCacheSize = DefaultPipelineCacheSize
	}
	return c
}
