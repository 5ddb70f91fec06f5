package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Anchor positions an overlay within the frame.
type Anchor string

const (
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorCenter      Anchor = "center"
)

// TitleOverlay draws the play title.
type TitleOverlay struct {
	Text   string
	Anchor Anchor
	Shadow bool
}

// BrandingOverlay draws a team/club name and optional logo image file.
type BrandingOverlay struct {
	Name     string
	LogoPath string
	Anchor   Anchor
}

// WatermarkOverlay draws rotated translucent text across the frame.
type WatermarkOverlay struct {
	Text  string
	Angle float64 // radians, counter-clockwise
	Alpha float64 // 0..1, default 0.15
}

// applyOverlays decorates one captured frame in place. A single overlay
// failing to draw is warned about and skipped; it never aborts the export.
func applyOverlays(img *image.RGBA, ov Overlays, tMs, durationMs float64) {
	if ov.Title != nil && ov.Title.Text != "" {
		drawTitle(img, ov.Title)
	}
	if ov.Branding != nil {
		if err := drawBranding(img, ov.Branding); err != nil {
			log.Warn().Err(err).Msg("branding overlay skipped")
		}
	}
	if ov.Timestamp {
		drawTimestamp(img, tMs, durationMs)
	}
	if ov.Watermark != nil && ov.Watermark.Text != "" {
		drawWatermark(img, ov.Watermark)
	}
}

func drawTitle(img *image.RGBA, t *TitleOverlay) {
	x, y := anchorPoint(img.Bounds(), t.Anchor, len(t.Text)*basicfont.Face7x13.Advance, 16)
	if t.Shadow {
		drawString(img, t.Text, x+1, y+1, color.RGBA{0, 0, 0, 200})
	}
	drawString(img, t.Text, x, y, color.RGBA{255, 255, 255, 255})
}

func drawBranding(img *image.RGBA, b *BrandingOverlay) error {
	text := b.Name
	x, y := anchorPoint(img.Bounds(), orDefault(b.Anchor, AnchorBottomRight), len(text)*basicfont.Face7x13.Advance, 16)
	if b.LogoPath != "" {
		f, err := os.Open(b.LogoPath)
		if err != nil {
			return fmt.Errorf("open logo: %w", err)
		}
		defer f.Close()
		logo, _, err := image.Decode(f)
		if err != nil {
			return fmt.Errorf("decode logo: %w", err)
		}
		lb := logo.Bounds()
		dst := image.Rect(x-lb.Dx()-4, y-13, x-4, y-13+lb.Dy())
		draw.Draw(img, dst, logo, lb.Min, draw.Over)
	}
	if text != "" {
		drawString(img, text, x, y, color.RGBA{255, 255, 255, 230})
	}
	return nil
}

func drawTimestamp(img *image.RGBA, tMs, durationMs float64) {
	cur := time.Duration(tMs) * time.Millisecond
	total := time.Duration(durationMs) * time.Millisecond
	text := fmt.Sprintf("%02d:%04.1f / %02d:%04.1f",
		int(cur.Minutes()), math.Mod(cur.Seconds(), 60),
		int(total.Minutes()), math.Mod(total.Seconds(), 60))
	x, y := anchorPoint(img.Bounds(), AnchorBottomLeft, len(text)*basicfont.Face7x13.Advance, 16)
	drawString(img, text, x, y, color.RGBA{30, 30, 30, 255})
}

// drawWatermark renders the text into a scratch image and rotate-blits it
// across the center with low alpha.
func drawWatermark(img *image.RGBA, w *WatermarkOverlay) {
	alpha := w.Alpha
	if alpha <= 0 {
		alpha = 0.15
	}
	if alpha > 1 {
		alpha = 1
	}
	textW := len(w.Text) * basicfont.Face7x13.Advance
	scratch := image.NewRGBA(image.Rect(0, 0, textW+2, 16))
	drawString(scratch, w.Text, 1, 13, color.RGBA{128, 128, 128, uint8(alpha * 255)})

	b := img.Bounds()
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2
	sin, cos := math.Sincos(w.Angle)
	sb := scratch.Bounds()
	scx := float64(sb.Dx()) / 2
	scy := float64(sb.Dy()) / 2
	for sy := sb.Min.Y; sy < sb.Max.Y; sy++ {
		for sx := sb.Min.X; sx < sb.Max.X; sx++ {
			c := scratch.RGBAAt(sx, sy)
			if c.A == 0 {
				continue
			}
			dx := float64(sx) - scx
			dy := float64(sy) - scy
			tx := int(cx + dx*cos - dy*sin)
			ty := int(cy + dx*sin + dy*cos)
			if tx >= b.Min.X && tx < b.Max.X && ty >= b.Min.Y && ty < b.Max.Y {
				blend(img, tx, ty, c)
			}
		}
	}
}

func blend(img *image.RGBA, x, y int, c color.RGBA) {
	dst := img.RGBAAt(x, y)
	a := float64(c.A) / 255
	img.SetRGBA(x, y, color.RGBA{
		R: uint8(float64(c.R)*a + float64(dst.R)*(1-a)),
		G: uint8(float64(c.G)*a + float64(dst.G)*(1-a)),
		B: uint8(float64(c.B)*a + float64(dst.B)*(1-a)),
		A: 255,
	})
}

func drawString(img *image.RGBA, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// anchorPoint returns the baseline origin for a w×h overlay at the anchor,
// with an 8px margin.
func anchorPoint(b image.Rectangle, a Anchor, w, h int) (int, int) {
	const margin = 8
	switch a {
	case AnchorTopRight:
		return b.Max.X - w - margin, b.Min.Y + h + margin
	case AnchorBottomLeft:
		return b.Min.X + margin, b.Max.Y - margin
	case AnchorBottomRight:
		return b.Max.X - w - margin, b.Max.Y - margin
	case AnchorCenter:
		return (b.Min.X + b.Max.X - w) / 2, (b.Min.Y + b.Max.Y) / 2
	default: // top-left
		return b.Min.X + margin, b.Min.Y + h + margin
	}
}

func orDefault(a, def Anchor) Anchor {
	if a == "" {
		return def
	}
	return a
}
