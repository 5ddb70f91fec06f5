package export

import (
	"bytes"
	"context"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rinkworks/rinkmotion/internal/board"
	"github.com/rinkworks/rinkmotion/internal/play"
)

// fakeRenderer counts render calls and can be gated to hold an export open.
type fakeRenderer struct {
	mu      sync.Mutex
	renders int

	gate      chan struct{} // when set, Render blocks until closed
	startOnce sync.Once
	started   chan struct{} // closed on first Render
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{started: make(chan struct{})}
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(dst *image.RGBA, s board.Scene) {
	f.startOnce.Do(func() { close(f.started) })
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.renders++
	f.mu.Unlock()
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

func exportPlay(duration int64) *play.Play {
	return &play.Play{
		Name:     "Wheel Breakout",
		Duration: duration,
		Keyframes: []play.Keyframe{
			{Timestamp: 0, Players: map[string]play.PlayerState{"d1": {X: 20, Y: 40}}},
			{Timestamp: duration, Players: map[string]play.PlayerState{"d1": {X: 120, Y: 40}}},
		},
	}
}

func smallConfig(f Format) Config {
	return Config{Format: f, Width: 32, Height: 16, FrameRate: 30}
}

func TestExportGIFEndToEnd(t *testing.T) {
	r := newFakeRenderer()
	pl := New(r, nil)

	res, err := pl.Export(context.Background(), exportPlay(2000), smallConfig(FormatGIF))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !res.Success {
		t.Fatalf("export failed: %s", res.Error)
	}
	// 2000ms at 30fps samples exactly 60 frames.
	if res.Metadata.TotalFrames != 60 {
		t.Fatalf("total frames = %d, want 60", res.Metadata.TotalFrames)
	}
	if r.count() != 60 {
		t.Fatalf("renderer invoked %d times, want 60", r.count())
	}
	if !bytes.HasPrefix(res.Blob, []byte("GIF8")) {
		t.Fatal("blob is not a GIF")
	}
	if res.FileSize != int64(len(res.Blob)) {
		t.Fatalf("file size %d != blob length %d", res.FileSize, len(res.Blob))
	}
	if !strings.HasPrefix(res.FileName, "wheel-breakout-") || !strings.HasSuffix(res.FileName, ".gif") {
		t.Fatalf("file name = %q", res.FileName)
	}
	if res.Metadata.CompressionRatio <= 0 {
		t.Fatalf("compression ratio = %v", res.Metadata.CompressionRatio)
	}
}

func TestExportFractionalFrameCount(t *testing.T) {
	r := newFakeRenderer()
	pl := New(r, nil)

	// 1100ms at 30fps is 33 frames, rounded up.
	res, err := pl.Export(context.Background(), exportPlay(1100), smallConfig(FormatGIF))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Metadata.TotalFrames != 33 {
		t.Fatalf("total frames = %d, want 33", res.Metadata.TotalFrames)
	}
}

func TestExportSingleFlight(t *testing.T) {
	r := newFakeRenderer()
	r.gate = make(chan struct{})
	pl := New(r, nil)

	done := make(chan error, 1)
	go func() {
		_, err := pl.Export(context.Background(), exportPlay(1000), smallConfig(FormatGIF))
		done <- err
	}()

	<-r.started
	if !pl.Exporting() {
		t.Fatal("pipeline not marked busy")
	}
	if _, err := pl.Export(context.Background(), exportPlay(1000), smallConfig(FormatGIF)); err != ErrExportInProgress {
		t.Fatalf("concurrent export error = %v, want ErrExportInProgress", err)
	}

	close(r.gate)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if pl.Exporting() {
		t.Fatal("pipeline still busy after completion")
	}
}

func TestExportPreconditions(t *testing.T) {
	pl := New(newFakeRenderer(), nil)
	ctx := context.Background()

	if _, err := pl.Export(ctx, nil, smallConfig(FormatGIF)); err == nil {
		t.Fatal("nil play accepted")
	}
	if _, err := pl.Export(ctx, exportPlay(0), smallConfig(FormatGIF)); err == nil {
		t.Fatal("zero-duration play accepted")
	}
	if _, err := pl.Export(ctx, exportPlay(1000), Config{Format: FormatGIF}); err == nil {
		t.Fatal("zero resolution accepted")
	}
	if _, err := pl.Export(ctx, exportPlay(1000), Config{Preset: "myspace"}); err == nil {
		t.Fatal("unknown preset accepted")
	}

	bare := New(nil, nil)
	if _, err := bare.Export(ctx, exportPlay(1000), smallConfig(FormatGIF)); err == nil {
		t.Fatal("missing renderer accepted")
	}
}

func TestExportCancellationResolvesResult(t *testing.T) {
	pl := New(newFakeRenderer(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation hits mid-capture, past the precondition line: it must
	// resolve into the Result, not surface as a returned error.
	res, err := pl.Export(ctx, exportPlay(2000), smallConfig(FormatGIF))
	if err != nil {
		t.Fatalf("cancellation surfaced as an error: %v", err)
	}
	if res.Success {
		t.Fatal("cancelled export reported success")
	}
	if res.Error == "" {
		t.Fatal("cancelled export carries no error message")
	}
}

func TestExportUnknownFormatResolvesResult(t *testing.T) {
	pl := New(newFakeRenderer(), nil)
	res, err := pl.Export(context.Background(), exportPlay(1000), smallConfig(Format("laserdisc")))
	if err != nil {
		t.Fatalf("unknown format surfaced as an error: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestExportProgressStages(t *testing.T) {
	var mu sync.Mutex
	var seen []Progress
	pl := New(newFakeRenderer(), func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	if _, err := pl.Export(context.Background(), exportPlay(1000), smallConfig(FormatGIF)); err != nil {
		t.Fatalf("export: %v", err)
	}

	stages := map[Stage]bool{}
	for _, p := range seen {
		stages[p.Stage] = true
		switch p.Stage {
		case StageCapturing:
			if p.Percent < pctCaptureStart || p.Percent > pctCaptureEnd {
				t.Fatalf("capture percent %v outside [%v, %v]", p.Percent, pctCaptureStart, pctCaptureEnd)
			}
		case StageEncoding:
			if p.Percent < pctEncodeStart || p.Percent > pctEncodeEnd {
				t.Fatalf("encode percent %v outside [%v, %v]", p.Percent, pctEncodeStart, pctEncodeEnd)
			}
		}
	}
	for _, want := range []Stage{StageInitializing, StageCapturing, StageEncoding, StageFinalizing, StageComplete} {
		if !stages[want] {
			t.Fatalf("stage %s never reported", want)
		}
	}
	last := seen[len(seen)-1]
	if last.Stage != StageComplete || last.Percent != pctComplete {
		t.Fatalf("final progress = %+v", last)
	}
}

func TestConfigPresetOverridesWholesale(t *testing.T) {
	cfg := Config{Preset: "instagram", Width: 10, Height: 10, FrameRate: 5, Quality: 1}
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := Presets["instagram"]
	if cfg.Width != want.Width || cfg.Height != want.Height || cfg.FrameRate != want.FrameRate || cfg.Quality != want.Quality {
		t.Fatalf("preset not applied wholesale: %+v", cfg)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Width: 100, Height: 50}
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Format != FormatGIF || cfg.FrameRate != 30 || cfg.Quality != 80 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.MaxMemoryBytes != DefaultMemoryBudget {
		t.Fatalf("memory budget = %d", cfg.MaxMemoryBytes)
	}
}

func TestFileNameSlug(t *testing.T) {
	name := fileName(&play.Play{Name: "  2-1-2 Forecheck! "}, "gif")
	if !strings.HasPrefix(name, "2-1-2-forecheck-") || !strings.HasSuffix(name, ".gif") {
		t.Fatalf("name = %q", name)
	}
	if n := fileName(&play.Play{Name: "!!!"}, "png"); !strings.HasPrefix(n, "play-") {
		t.Fatalf("empty slug fallback = %q", n)
	}
}

func TestExportDurationRecorded(t *testing.T) {
	pl := New(newFakeRenderer(), nil)
	res, err := pl.Export(context.Background(), exportPlay(500), smallConfig(FormatPNGSequence))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.ExportDuration <= 0 {
		t.Fatalf("export duration = %v", res.ExportDuration)
	}
	if res.ExportDuration > time.Minute {
		t.Fatalf("implausible export duration %v", res.ExportDuration)
	}
}
