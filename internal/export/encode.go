package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
)

// encodeGIF palettizes every frame with Floyd-Steinberg dithering and
// assembles a looping animated GIF.
func encodeGIF(ctx context.Context, frames []*image.RGBA, cfg Config, progress func(float64)) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("gif: no frames captured")
	}
	// Centiseconds per frame, floored at 2: many viewers treat a delay of
	// 0 or 1 as "as fast as possible" rather than honoring it.
	delay := 100 / cfg.FrameRate
	if delay < 2 {
		delay = 2
	}
	anim := &gif.GIF{
		Image:    make([]*image.Paletted, 0, len(frames)),
		Delay:    make([]int, 0, len(frames)),
		Disposal: make([]byte, 0, len(frames)),
	}
	if cfg.LoopForever {
		anim.LoopCount = 0
	} else {
		anim.LoopCount = -1
	}
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("gif: cancelled at frame %d: %w", i, err)
		}
		pal := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(pal, frame.Bounds(), frame, frame.Bounds().Min)
		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, delay)
		anim.Disposal = append(anim.Disposal, gif.DisposalNone)
		progress(float64(i+1) / float64(len(frames)))
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("gif: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeStill emits a single representative frame (the midpoint) as PNG,
// standing in for a multi-file image sequence in the single-blob contract.
func encodeStill(frames []*image.RGBA, progress func(float64)) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("still: no frames captured")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frames[len(frames)/2]); err != nil {
		return nil, fmt.Errorf("still: encode: %w", err)
	}
	progress(1)
	return buf.Bytes(), nil
}

// encodeAVI writes an MJPEG stream into a minimal RIFF/AVI container: each
// frame is JPEG-compressed and appended as a movi chunk, with an idx1 index
// for seekability.
func encodeAVI(ctx context.Context, frames []*image.RGBA, cfg Config, progress func(float64)) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("avi: no frames captured")
	}

	chunks := make([][]byte, 0, len(frames))
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("avi: cancelled at frame %d: %w", i, err)
		}
		var jb bytes.Buffer
		if err := jpeg.Encode(&jb, frame, &jpeg.Options{Quality: cfg.Quality}); err != nil {
			return nil, fmt.Errorf("avi: frame %d: %w", i, err)
		}
		chunks = append(chunks, jb.Bytes())
		progress(float64(i+1) / float64(len(frames)))
	}
	return buildAVI(chunks, cfg), nil
}

// buildAVI assembles the RIFF structure around pre-encoded JPEG chunks.
func buildAVI(chunks [][]byte, cfg Config) []byte {
	var movi bytes.Buffer
	var idx bytes.Buffer
	movi.WriteString("movi")
	for _, c := range chunks {
		offset := uint32(movi.Len())
		movi.WriteString("00dc")
		putU32(&movi, uint32(len(c)))
		movi.Write(c)
		if len(c)%2 == 1 {
			movi.WriteByte(0)
		}
		idx.WriteString("00dc")
		putU32(&idx, 0x10) // keyframe
		putU32(&idx, offset)
		putU32(&idx, uint32(len(c)))
	}

	maxChunk := 0
	for _, c := range chunks {
		if len(c) > maxChunk {
			maxChunk = len(c)
		}
	}

	var hdrl bytes.Buffer
	// avih: MainAVIHeader
	writeChunk(&hdrl, "avih", func(b *bytes.Buffer) {
		putU32(b, uint32(1000000/cfg.FrameRate)) // usec per frame
		putU32(b, uint32(maxChunk*cfg.FrameRate))
		putU32(b, 0)
		putU32(b, 0x10) // AVIF_HASINDEX
		putU32(b, uint32(len(chunks)))
		putU32(b, 0)
		putU32(b, 1) // one stream
		putU32(b, uint32(maxChunk))
		putU32(b, uint32(cfg.Width))
		putU32(b, uint32(cfg.Height))
		putU32(b, 0)
		putU32(b, 0)
		putU32(b, 0)
		putU32(b, 0)
	})

	var strl bytes.Buffer
	writeChunk(&strl, "strh", func(b *bytes.Buffer) {
		b.WriteString("vids")
		b.WriteString("MJPG")
		putU32(b, 0)
		putU32(b, 0)
		putU32(b, 0)
		putU32(b, 1)                      // scale
		putU32(b, uint32(cfg.FrameRate))  // rate
		putU32(b, 0)                      // start
		putU32(b, uint32(len(chunks)))    // length
		putU32(b, uint32(maxChunk))       // suggested buffer
		putU32(b, 0xFFFFFFFF)             // quality
		putU32(b, 0)                      // sample size
		putU16(b, 0)                      // rcFrame
		putU16(b, 0)
		putU16(b, uint16(cfg.Width))
		putU16(b, uint16(cfg.Height))
	})
	writeChunk(&strl, "strf", func(b *bytes.Buffer) {
		putU32(b, 40) // BITMAPINFOHEADER size
		putU32(b, uint32(cfg.Width))
		putU32(b, uint32(cfg.Height))
		putU16(b, 1)
		putU16(b, 24)
		b.WriteString("MJPG")
		putU32(b, uint32(cfg.Width*cfg.Height*3))
		putU32(b, 0)
		putU32(b, 0)
		putU32(b, 0)
		putU32(b, 0)
	})
	writeList(&hdrl, "strl", strl.Bytes())

	var body bytes.Buffer
	body.WriteString("AVI ")
	writeList(&body, "hdrl", hdrl.Bytes())
	writeListRaw(&body, movi.Bytes())
	writeChunkRaw(&body, "idx1", idx.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	putU32(&out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func putU32(b *bytes.Buffer, v uint32) { _ = binary.Write(b, binary.LittleEndian, v) }
func putU16(b *bytes.Buffer, v uint16) { _ = binary.Write(b, binary.LittleEndian, v) }

func writeChunk(dst *bytes.Buffer, fourCC string, fill func(*bytes.Buffer)) {
	var b bytes.Buffer
	fill(&b)
	writeChunkRaw(dst, fourCC, b.Bytes())
}

func writeChunkRaw(dst *bytes.Buffer, fourCC string, payload []byte) {
	dst.WriteString(fourCC)
	putU32(dst, uint32(len(payload)))
	dst.Write(payload)
	if len(payload)%2 == 1 {
		dst.WriteByte(0)
	}
}

func writeList(dst *bytes.Buffer, fourCC string, payload []byte) {
	dst.WriteString("LIST")
	putU32(dst, uint32(len(payload)+4))
	dst.WriteString(fourCC)
	dst.Write(payload)
}

func writeListRaw(dst *bytes.Buffer, payloadWithFourCC []byte) {
	dst.WriteString("LIST")
	putU32(dst, uint32(len(payloadWithFourCC)))
	dst.Write(payloadWithFourCC)
}
