// Package export samples a play at a fixed frame rate through a private
// timeline engine, renders each sample onto a capture surface, applies
// overlays and hands the frame list to a format encoder.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/rinkmotion/internal/board"
	"github.com/rinkworks/rinkmotion/internal/play"
	"github.com/rinkworks/rinkmotion/internal/timeline"
	"github.com/rinkworks/rinkmotion/internal/trail"
)

// Format selects the output encoder.
type Format string

const (
	FormatGIF         Format = "gif"
	FormatMP4         Format = "mp4"
	FormatWebM        Format = "webm"
	FormatPNGSequence Format = "png-sequence"
)

// Stage is the linear export state machine.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageCapturing    Stage = "capturing"
	StageEncoding     Stage = "encoding"
	StageFinalizing   Stage = "finalizing"
	StageComplete     Stage = "complete"
	StageError        Stage = "error"
)

// Stage weightings for the overall percentage: capture spans 5–50, encode
// 60–95, the rest book-ends.
const (
	pctInitDone     = 5.0
	pctCaptureStart = 5.0
	pctCaptureEnd   = 50.0
	pctEncodeStart  = 60.0
	pctEncodeEnd    = 95.0
	pctFinalizing   = 95.0
	pctComplete     = 100.0
)

// DefaultMemoryBudget caps the advisory raw-frame estimate (bytes).
const DefaultMemoryBudget = 512 << 20

// Progress reports staged export progress.
type Progress struct {
	Stage       Stage
	Percent     float64
	Frame       int
	TotalFrames int
	Message     string
}

// Overlays configures the optional per-frame decorations.
type Overlays struct {
	Title     *TitleOverlay
	Branding  *BrandingOverlay
	Timestamp bool
	Watermark *WatermarkOverlay
}

// Config is the validated export request.
type Config struct {
	Format    Format `yaml:"format"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	FrameRate int    `yaml:"frame_rate"`
	// Quality is the JPEG quality for video output and the palette size for
	// GIF output.
	Quality     int    `yaml:"quality"`
	LoopForever bool   `yaml:"loop_forever"`
	Preset      string `yaml:"preset"`

	Overlays Overlays `yaml:"-"`

	MaxMemoryBytes int64 `yaml:"max_memory_bytes"`
	CacheFrames    bool  `yaml:"cache_frames"`
}

// Preset overrides resolution and encoding fields wholesale when selected.
type Preset struct {
	Width     int
	Height    int
	FrameRate int
	Quality   int
}

// Presets are the built-in social targets.
var Presets = map[string]Preset{
	"instagram": {Width: 1080, Height: 1080, FrameRate: 30, Quality: 85},
	"twitter":   {Width: 1280, Height: 720, FrameRate: 30, Quality: 80},
	"tiktok":    {Width: 1080, Height: 1920, FrameRate: 30, Quality: 85},
}

func (c *Config) normalize() error {
	if c.Preset != "" {
		p, ok := Presets[c.Preset]
		if !ok {
			return fmt.Errorf("export: unknown preset %q", c.Preset)
		}
		c.Width, c.Height = p.Width, p.Height
		c.FrameRate, c.Quality = p.FrameRate, p.Quality
	}
	if c.Format == "" {
		c.Format = FormatGIF
	}
	if c.FrameRate <= 0 {
		c.FrameRate = 30
	}
	if c.Quality <= 0 {
		c.Quality = 80
	}
	if c.MaxMemoryBytes <= 0 {
		c.MaxMemoryBytes = DefaultMemoryBudget
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("export: resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	return nil
}

// Metadata describes the finished artifact.
type Metadata struct {
	TotalFrames      int
	ActualFrameRate  float64
	CompressionRatio float64 // raw RGBA estimate / encoded size
}

// Result is what every export resolves to. Mid-export failures land here as
// Success=false with Error set; they never surface as returned errors.
type Result struct {
	Success        bool
	Blob           []byte
	FileName       string
	FileSize       int64
	ExportDuration time.Duration
	Error          string
	Metadata       Metadata
}

// ErrExportInProgress is returned when a second export is started while one
// is still running. Exports are single-flight by design.
var ErrExportInProgress = errors.New("export: already in progress")

// Pipeline drives exports. One Pipeline may be shared; it runs at most one
// export at a time.
type Pipeline struct {
	renderer   board.Renderer
	onProgress func(Progress)
	exporting  atomic.Bool
}

// New wires a pipeline to a capture renderer and an optional progress sink.
func New(renderer board.Renderer, onProgress func(Progress)) *Pipeline {
	return &Pipeline{renderer: renderer, onProgress: onProgress}
}

// Exporting reports whether an export is currently running.
func (pl *Pipeline) Exporting() bool { return pl.exporting.Load() }

func (pl *Pipeline) report(p Progress) {
	if pl.onProgress != nil {
		pl.onProgress(p)
	}
}

// Export runs the full pipeline. Precondition violations (busy pipeline,
// nil play, zero duration, bad resolution, missing renderer) return an error
// before any frame is captured; everything after that point resolves into
// the Result instead.
func (pl *Pipeline) Export(ctx context.Context, p *play.Play, cfg Config) (Result, error) {
	if !pl.exporting.CompareAndSwap(false, true) {
		return Result{}, ErrExportInProgress
	}
	defer pl.exporting.Store(false)

	pl.report(Progress{Stage: StageInitializing, Percent: 0})

	if pl.renderer == nil {
		return Result{}, errors.New("export: no capture renderer")
	}
	if p == nil {
		return Result{}, errors.New("export: no play")
	}
	if err := cfg.normalize(); err != nil {
		return Result{}, err
	}
	if p.Duration <= 0 {
		return Result{}, fmt.Errorf("export: play %q has zero duration", p.Name)
	}

	// The sampler gets its own engine over the shared (immutable after load)
	// keyframe data, so a live board playing the same play is never paused,
	// sought or otherwise disturbed by an export.
	eng := timeline.New(timeline.Options{
		FPS:         cfg.FrameRate,
		CacheFrames: cfg.CacheFrames,
	})
	if err := eng.Load(p); err != nil {
		return Result{}, err
	}

	// Ceiling of duration/1000*fps, in integer arithmetic so fractional
	// durations round up exactly.
	totalFrames := int((p.Duration*int64(cfg.FrameRate) + 999) / 1000)

	rawEstimate := int64(cfg.Width) * int64(cfg.Height) * 4 * int64(totalFrames)
	if rawEstimate > cfg.MaxMemoryBytes {
		log.Warn().
			Int64("estimate_bytes", rawEstimate).
			Int64("budget_bytes", cfg.MaxMemoryBytes).
			Int("frames", totalFrames).
			Msg("export frame buffer estimate exceeds memory budget")
		pl.report(Progress{Stage: StageInitializing, Percent: pctInitDone, Message: "memory budget exceeded (advisory)"})
	}
	pl.report(Progress{Stage: StageInitializing, Percent: pctInitDone, TotalFrames: totalFrames})

	started := time.Now()
	result, err := pl.run(ctx, eng, p, cfg, totalFrames)
	if err != nil {
		// Mid-export failures are converted, never rethrown.
		pl.report(Progress{Stage: StageError, Percent: 0, Message: err.Error()})
		return Result{
			Success:        false,
			Error:          err.Error(),
			ExportDuration: time.Since(started),
			Metadata:       Metadata{TotalFrames: totalFrames, ActualFrameRate: float64(cfg.FrameRate)},
		}, nil
	}
	result.ExportDuration = time.Since(started)
	pl.report(Progress{Stage: StageComplete, Percent: pctComplete, TotalFrames: totalFrames})
	return result, nil
}

func (pl *Pipeline) run(ctx context.Context, eng *timeline.Engine, p *play.Play, cfg Config, totalFrames int) (Result, error) {
	frames, err := pl.capture(ctx, eng, p, cfg, totalFrames)
	if err != nil {
		return Result{}, err
	}

	pl.report(Progress{Stage: StageEncoding, Percent: pctEncodeStart, TotalFrames: totalFrames})
	encProgress := func(frac float64) {
		pl.report(Progress{
			Stage:       StageEncoding,
			Percent:     pctEncodeStart + (pctEncodeEnd-pctEncodeStart)*clamp01(frac),
			TotalFrames: totalFrames,
		})
	}

	var blob []byte
	var ext string
	switch cfg.Format {
	case FormatGIF:
		blob, err = encodeGIF(ctx, frames, cfg, encProgress)
		ext = "gif"
	case FormatMP4, FormatWebM:
		// Built-in video output is an MJPEG-in-AVI container; swap in a real
		// mp4/webm encoder behind the same frame-in/blob-out contract when
		// one is available.
		blob, err = encodeAVI(ctx, frames, cfg, encProgress)
		ext = "avi"
	case FormatPNGSequence:
		blob, err = encodeStill(frames, encProgress)
		ext = "png"
	default:
		return Result{}, fmt.Errorf("export: unknown format %q", cfg.Format)
	}
	if err != nil {
		return Result{}, err
	}

	pl.report(Progress{Stage: StageFinalizing, Percent: pctFinalizing, TotalFrames: totalFrames})

	raw := float64(cfg.Width) * float64(cfg.Height) * 4 * float64(totalFrames)
	ratio := 0.0
	if len(blob) > 0 {
		ratio = raw / float64(len(blob))
	}
	return Result{
		Success:  true,
		Blob:     blob,
		FileName: fileName(p, ext),
		FileSize: int64(len(blob)),
		Metadata: Metadata{
			TotalFrames:      totalFrames,
			ActualFrameRate:  float64(cfg.FrameRate),
			CompressionRatio: ratio,
		},
	}, nil
}

// capture seeks the private engine frame by frame and renders each sample.
// Cancellation is cooperative: checked once per frame, never mid-frame.
func (pl *Pipeline) capture(ctx context.Context, eng *timeline.Engine, p *play.Play, cfg Config, totalFrames int) ([]*image.RGBA, error) {
	tracker := trail.New(p, trail.Options{})
	frameStep := 1000.0 / float64(cfg.FrameRate)
	duration := float64(p.Duration)

	frames := make([]*image.RGBA, 0, totalFrames)
	for i := 0; i < totalFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export: cancelled at frame %d: %w", i, err)
		}
		t := float64(i) * frameStep
		if t > duration {
			t = duration
		}
		eng.SeekTo(t)
		frame := eng.CurrentFrame()

		img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
		pl.renderer.Render(img, board.Scene{
			Frame:   frame,
			TimeMs:  t,
			Playing: true,
			Trail:   tracker,
		})
		applyOverlays(img, cfg.Overlays, t, duration)
		frames = append(frames, img)

		pl.report(Progress{
			Stage:       StageCapturing,
			Percent:     pctCaptureStart + (pctCaptureEnd-pctCaptureStart)*float64(i+1)/float64(totalFrames),
			Frame:       i + 1,
			TotalFrames: totalFrames,
		})
	}
	return frames, nil
}

func fileName(p *play.Play, ext string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, name)
	if name == "" {
		name = "play"
	}
	return fmt.Sprintf("%s-%s.%s", name, uuid.NewString()[:8], ext)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
