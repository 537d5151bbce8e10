package backend

import (
	"github.com/gogpu/graphics/gpucore"
)

// RecordBackend draws into a gpucore.Recorder. Frames only count.
type RecordBackend struct {
	rec    *gpucore.Recorder
	opts   Options
	frames int
	open   bool
}

// init registers the recording backend on package import.
func init() {
	Register(BackendRecord, func(opts Options) (RenderBackend, error) {
		return NewRecordBackend(opts), nil
	})
}

// NewRecordBackend creates a recording backend.
func NewRecordBackend(opts Options) *RecordBackend {
	return &RecordBackend{rec: gpucore.NewRecorder(), opts: opts.withDefaults()}
}

// Name returns the backend identifier.
func (b *RecordBackend) Name() string { return BackendRecord }

// Adapter returns the recorder.
func (b *RecordBackend) Adapter() gpucore.GPUAdapter { return b.rec }

// Recorder returns the recorder for inspection.
func (b *RecordBackend) Recorder() *gpucore.Recorder { return b.rec }

// Frames returns the number of completed frames.
func (b *RecordBackend) Frames() int { return b.frames }

// BeginFrame starts a frame.
func (b *RecordBackend) BeginFrame() error {
	if b.open {
		return ErrFrameActive
	}
	b.open = true
	return nil
}

// EndFrame ends the frame.
func (b *RecordBackend) EndFrame() error {
	if !b.open {
		return ErrNoFrame
	}
	b.open = false
	b.frames++
	return nil
}

// Close is a no-op; recorded state stays readable.
func (b *RecordBackend) Close() { b.open = false }
