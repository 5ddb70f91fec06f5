package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/rinkmotion/internal/board"
	"github.com/rinkworks/rinkmotion/internal/export"
	"github.com/rinkworks/rinkmotion/internal/play"
)

func main() {
	var (
		playPath  = flag.String("play", "", "Path to play JSON")
		outDir    = flag.String("out", ".", "Output directory")
		format    = flag.String("format", "gif", "gif | mp4 | webm | png-sequence")
		width     = flag.Int("width", 800, "Frame width")
		height    = flag.Int("height", 340, "Frame height")
		fps       = flag.Int("fps", 30, "Capture frame rate")
		preset    = flag.String("preset", "", "Social preset: instagram | twitter | tiktok")
		title     = flag.String("title", "", "Title overlay text")
		watermark = flag.String("watermark", "", "Watermark overlay text")
		timestamp = flag.Bool("timestamp", false, "Draw elapsed-time overlay")
		timeout   = flag.Duration("timeout", 2*time.Minute, "Export timeout")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	if *playPath == "" {
		log.Fatal().Msg("provide -play path to a play JSON")
	}
	data, err := os.ReadFile(*playPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read play")
	}
	p, err := play.Decode(data)
	if err != nil {
		log.Fatal().Err(err).Msg("decode play")
	}

	cfg := export.Config{
		Format:    export.Format(*format),
		Width:     *width,
		Height:    *height,
		FrameRate: *fps,
		Preset:    *preset,
	}
	if *title != "" {
		cfg.Overlays.Title = &export.TitleOverlay{Text: *title, Anchor: export.AnchorTopLeft, Shadow: true}
	}
	if *watermark != "" {
		cfg.Overlays.Watermark = &export.WatermarkOverlay{Text: *watermark, Angle: -0.5}
	}
	cfg.Overlays.Timestamp = *timestamp

	pipeline := export.New(board.NewClassic(), func(pr export.Progress) {
		fmt.Printf("\r[%s] %5.1f%%  frame %d/%d   ", pr.Stage, pr.Percent, pr.Frame, pr.TotalFrames)
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := pipeline.Export(ctx, p, cfg)
	fmt.Println()
	if err != nil {
		log.Fatal().Err(err).Msg("export rejected")
	}
	if !result.Success {
		log.Fatal().Str("error", result.Error).Msg("export failed")
	}

	outPath := *outDir + string(os.PathSeparator) + result.FileName
	if err := os.WriteFile(outPath, result.Blob, 0644); err != nil {
		log.Fatal().Err(err).Msg("write output")
	}
	log.Info().
		Str("file", outPath).
		Int64("bytes", result.FileSize).
		Int("frames", result.Metadata.TotalFrames).
		Float64("compression", result.Metadata.CompressionRatio).
		Dur("took", result.ExportDuration).
		Msg("export complete")
}
