package graphics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/graphics/vertexdomain"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// sinks are adapters of open batches that accept a logger.
var (
	sinksMu sync.Mutex
	sinks   = make(map[loggerSetter]int)
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for graphics and its sub-packages.
// By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used:
//   - [slog.LevelDebug]: domain growth, draw-list rebuilds, frame summaries
//   - [slog.LevelInfo]: adapter and device selection
//   - [slog.LevelWarn]: resources that failed to release
//
// Example:
//
//	graphics.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	vertexdomain.SetLogger(l)

	sinksMu.Lock()
	defer sinksMu.Unlock()
	for s := range sinks {
		s.SetLogger(l)
	}
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by adapters that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// attachLogger passes the current logger to a if it accepts one and keeps
// it updated until detachLogger.
func attachLogger(a any) {
	ls, ok := a.(loggerSetter)
	if !ok {
		return
	}
	ls.SetLogger(Logger())
	sinksMu.Lock()
	sinks[ls]++
	sinksMu.Unlock()
}

func detachLogger(a any) {
	ls, ok := a.(loggerSetter)
	if !ok {
		return
	}
	sinksMu.Lock()
	defer sinksMu.Unlock()
	if sinks[ls]--; sinks[ls] <= 0 {
		delete(sinks, ls)
	}
}
