package backend

import (
	"errors"

	"github.com/gogpu/graphics/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrFrameActive is returned by BeginFrame while a frame is open.
	ErrFrameActive = errors.New("backend: frame already active")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("backend: no active frame")
)

// Backend name constants.
const (
	// BackendRecord is the in-memory recording backend.
	BackendRecord = "record"
	// BackendNoop is the wgpu HAL adapter on the noop device.
	BackendNoop = "noop"
)

// Default target size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Options configure a backend when it is opened.
type Options struct {
	// Label names GPU resources. Default: "graphics".
	Label string

	// Width and Height size the render target. Default: 640x480.
	Width, Height int
}

func (o Options) withDefaults() Options {
	if o.Label == "" {
		o.Label = "graphics"
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// RenderBackend is a GPU adapter together with the target it draws into.
// Batches draw between BeginFrame and EndFrame.
//
// Backends must be registered via Register() and are selected via
// Open() or Default().
type RenderBackend interface {
	// Name returns the backend identifier (e.g., "record", "noop").
	Name() string

	// Adapter returns the adapter batches draw with.
	Adapter() gpucore.GPUAdapter

	// BeginFrame starts a frame on the target.
	BeginFrame() error

	// EndFrame submits the frame.
	EndFrame() error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}
