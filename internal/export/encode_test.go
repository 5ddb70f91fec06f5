package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/gif"
	"testing"
)

func solidFrames(n, w, h int) []*image.RGBA {
	out := make([]*image.RGBA, n)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p] = uint8(40 * i)
			img.Pix[p+3] = 0xFF
		}
		out[i] = img
	}
	return out
}

func noProgress(float64) {}

func TestEncodeGIF(t *testing.T) {
	cfg := Config{FrameRate: 25, LoopForever: true}
	blob, err := encodeGIF(context.Background(), solidFrames(3, 16, 8), cfg, noProgress)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	anim, err := gif.DecodeAll(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("round-trip decode: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Fatalf("decoded frames = %d, want 3", len(anim.Image))
	}
	if anim.LoopCount != 0 {
		t.Fatalf("loop count = %d, want 0 (forever)", anim.LoopCount)
	}
	// 25fps → 4 centiseconds per frame.
	if anim.Delay[0] != 4 {
		t.Fatalf("frame delay = %d, want 4", anim.Delay[0])
	}

	if _, err := encodeGIF(context.Background(), nil, cfg, noProgress); err == nil {
		t.Fatal("empty frame list accepted")
	}
}

func TestEncodeGIFMinimumDelay(t *testing.T) {
	// At 60fps the integer centisecond delay would be 1; the floor is 2
	// because many viewers treat 1 as "as fast as possible".
	cfg := Config{FrameRate: 60}
	blob, err := encodeGIF(context.Background(), solidFrames(1, 8, 8), cfg, noProgress)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	anim, err := gif.DecodeAll(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if anim.Delay[0] != 2 {
		t.Fatalf("frame delay = %d, want 2", anim.Delay[0])
	}
}

func TestEncodeStill(t *testing.T) {
	blob, err := encodeStill(solidFrames(5, 8, 8), noProgress)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(blob, []byte("\x89PNG")) {
		t.Fatal("blob is not a PNG")
	}
}

func TestEncodeAVIStructure(t *testing.T) {
	cfg := Config{Width: 16, Height: 8, FrameRate: 30, Quality: 80}
	blob, err := encodeAVI(context.Background(), solidFrames(4, 16, 8), cfg, noProgress)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !bytes.HasPrefix(blob, []byte("RIFF")) {
		t.Fatal("missing RIFF magic")
	}
	if string(blob[8:12]) != "AVI " {
		t.Fatalf("form type = %q, want AVI ", blob[8:12])
	}
	// The declared RIFF size covers everything after the 8-byte header.
	declared := binary.LittleEndian.Uint32(blob[4:8])
	if int(declared) != len(blob)-8 {
		t.Fatalf("declared size %d, actual payload %d", declared, len(blob)-8)
	}

	// One video chunk and one index entry per frame.
	if n := bytes.Count(blob, []byte("00dc")); n < 8 {
		t.Fatalf("00dc occurrences = %d, want at least 8 (4 chunks + 4 index entries)", n)
	}
	for _, marker := range []string{"hdrl", "avih", "strl", "strh", "vids", "MJPG", "movi", "idx1"} {
		if !bytes.Contains(blob, []byte(marker)) {
			t.Fatalf("container missing %q", marker)
		}
	}
}

func TestEncodeAVICancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := Config{Width: 8, Height: 8, FrameRate: 30, Quality: 80}
	if _, err := encodeAVI(ctx, solidFrames(2, 8, 8), cfg, noProgress); err == nil {
		t.Fatal("cancelled encode succeeded")
	}
}
