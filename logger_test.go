package graphics

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/graphics/gpucore"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("key", "val")}).(nopHandler); !ok {
		t.Error("WithAttrs did not return nopHandler")
	}
	if _, ok := h.WithGroup("group").(nopHandler); !ok {
		t.Error("WithGroup did not return nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(custom)

	if Logger() != custom {
		t.Fatal("Logger() did not return the custom logger")
	}

	// Draw-list rebuilds are logged at debug level.
	rec := gpucore.NewRecorder()
	b := NewBatch(rec, WithBatchLabel("logged"))
	defer b.Close()
	prog := testProgram(t)
	if _, err := b.NewVertexList(prog, triangles, NewGroup(0, nil), 3, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Draw(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "draw list rebuilt") || !strings.Contains(buf.String(), "batch=logged") {
		t.Errorf("missing rebuild log, got: %s", buf.String())
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)

	l := Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) should set nop logger, not nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should produce a disabled logger")
	}
}

// loggingAdapter is a Recorder that accepts a logger.
type loggingAdapter struct {
	*gpucore.Recorder
	logger *slog.Logger
}

func (a *loggingAdapter) SetLogger(l *slog.Logger) { a.logger = l }

func TestSetLoggerPropagatesToAdapter(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	a := &loggingAdapter{Recorder: gpucore.NewRecorder()}
	b := NewBatch(a)
	if a.logger != Logger() {
		t.Error("NewBatch did not pass the current logger to the adapter")
	}

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)
	if a.logger != custom {
		t.Error("SetLogger did not propagate to the adapter")
	}

	b.Close()
	SetLogger(slog.Default())
	if a.logger != custom {
		t.Error("closed batch adapter still receives loggers")
	}
}
