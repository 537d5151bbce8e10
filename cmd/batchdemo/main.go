// Command batchdemo loads a scene into a batch and draws it for a number of
// frames on a headless adapter, then reports batch and adapter statistics.
package main

import (
	"bytes"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/graphics"
	"github.com/gogpu/graphics/backend"
	"github.com/gogpu/graphics/backend/native"
	"github.com/gogpu/graphics/internal/scene"
	"github.com/gogpu/graphics/vertexdomain"
)

//go:embed scenes/demo.yaml
var demoScene []byte

type options struct {
	scene    string
	frames   int
	backend  string
	verbose  bool
	churn    int
	progress bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("batchdemo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.scene, "scene", "", "scene file (default: built-in demo)")
	fs.IntVar(&o.frames, "frames", 120, "frames to draw")
	fs.StringVar(&o.backend, "backend", backend.BackendRecord, "adapter: "+strings.Join(backend.Available(), ", "))
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.IntVar(&o.churn, "churn", 0, "lists allocated and freed per frame")
	fs.BoolVar(&o.progress, "progress", true, "show a progress bar")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.frames < 0 || o.churn < 0 {
		return o, errors.New("-frames and -churn must not be negative")
	}
	return o, nil
}

func loadScene(path string) (*scene.Scene, error) {
	if path == "" {
		return scene.Load(bytes.NewReader(demoScene))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scene.Load(f)
}

// churner allocates and frees short-lived lists to exercise the allocator.
type churner struct {
	batch     *graphics.Batch
	res       *scene.Result
	drawables []scene.Drawable
	rng       *rand.Rand
	live      []*vertexdomain.VertexList
}

func (c *churner) step(n int) error {
	for _, l := range c.live {
		if err := l.Delete(); err != nil {
			return err
		}
	}
	c.live = c.live[:0]
	for range n {
		d := c.drawables[c.rng.IntN(len(c.drawables))]
		prog := c.res.Programs.MustLookup(d.Program)
		count := 1 + c.rng.IntN(d.Count())
		group, _ := c.res.Group(d.Group)
		l, err := c.batch.NewVertexList(prog, gputypes.PrimitiveTopology(d.Topology), group, count, nil)
		if err != nil {
			return err
		}
		c.live = append(c.live, l)
	}
	return nil
}

func run(args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	graphics.SetLogger(logger)
	defer graphics.SetLogger(nil)

	sc, err := loadScene(o.scene)
	if err != nil {
		return err
	}
	dev, err := backend.Open(o.backend, backend.Options{Label: "batchdemo"})
	if err != nil {
		return err
	}
	defer dev.Close()

	batch := graphics.NewBatch(dev.Adapter(), graphics.WithBatchLabel(sc.Name))
	defer batch.Close()

	res, err := sc.Build(batch)
	if err != nil {
		return fmt.Errorf("building scene %q: %w", sc.Name, err)
	}
	logger.Info("scene built", "scene", sc.Name, "programs", res.Programs.Len(),
		"groups", len(res.Groups), "lists", len(res.Lists), "backend", o.backend)

	ch := &churner{batch: batch, res: res, drawables: sc.Drawables, rng: rand.New(rand.NewPCG(1, 2))} //nolint:gosec // demo workload

	bar := progressbar.NewOptions64(int64(o.frames),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetDescription("frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(o.progress),
	)
	defer bar.Close()

	var total graphics.FrameStats
	for frame := range o.frames {
		if o.churn > 0 && len(sc.Drawables) > 0 {
			if err := ch.step(o.churn); err != nil {
				return fmt.Errorf("frame %d churn: %w", frame, err)
			}
		}
		if err := dev.BeginFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if err := batch.Draw(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if err := dev.EndFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		total.Add(batch.Stats().Last)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	st := batch.Stats()
	logger.Info("done", "frames", o.frames, "stats", st.String())
	logger.Info("totals", "draw_calls", total.DrawCalls, "ranges", total.Ranges,
		"elements", total.Elements, "state_changes", total.StateChanges,
		"program_binds", total.ProgramBinds, "bytes_uploaded", total.BytesUploaded)
	for _, d := range batch.Domains().Domains() {
		logger.Debug("domain", "label", d.Label(), "stats", d.Stats().String())
	}
	if a, ok := dev.Adapter().(*native.Adapter); ok {
		as := a.Stats()
		logger.Info("adapter", "buffers", as.Buffers, "pipelines", as.Pipelines,
			"passes", as.Passes, "draws", as.Draws, "bytes_written", as.BytesWritten)
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "batchdemo: %v\n", err)
		os.Exit(1)
	}
}
