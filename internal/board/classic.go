package board

import (
	"image"
	"image/color"
	"math"

	"github.com/rinkworks/rinkmotion/internal/play"
	"github.com/rinkworks/rinkmotion/internal/trail"
)

// Classic is the default software renderer: ice, zone lines, players as
// team-colored discs with a heading tick, puck, pass lines and trail.
type Classic struct {
	Ice       color.RGBA
	HomeColor color.RGBA
	AwayColor color.RGBA
}

// NewClassic returns a Classic with the stock palette.
func NewClassic() *Classic {
	return &Classic{
		Ice:       color.RGBA{235, 244, 250, 255},
		HomeColor: color.RGBA{20, 60, 160, 255},
		AwayColor: color.RGBA{180, 30, 40, 255},
	}
}

func (c *Classic) Name() string { return "classic" }

func (c *Classic) Render(dst *image.RGBA, s Scene) {
	b := dst.Bounds()
	fill(dst, c.Ice)

	sx := float64(b.Dx()) / play.RinkWidth
	sy := float64(b.Dy()) / play.RinkHeight
	toPx := func(p trail.Point) (int, int) {
		return b.Min.X + int(p.X*sx), b.Min.Y + int(p.Y*sy)
	}

	// Zone lines: center red, blue lines at 75/125, goal lines.
	red := color.RGBA{200, 40, 40, 255}
	blue := color.RGBA{40, 70, 190, 255}
	vline(dst, b.Min.X+int(play.RinkWidth/2*sx), red, 2)
	vline(dst, b.Min.X+int(75*sx), blue, 2)
	vline(dst, b.Min.X+int(125*sx), blue, 2)
	vline(dst, b.Min.X+int(play.HomeGoalLineX*sx), red, 1)
	vline(dst, b.Min.X+int(play.AwayGoalLineX*sx), red, 1)

	if s.Frame == nil {
		return
	}

	// Trail under everything else.
	if s.Trail != nil {
		for _, seg := range s.Trail.Trail(s.TimeMs, s.Playing) {
			col := color.RGBA{90, 90, 90, 200}
			if seg.Shot {
				col = color.RGBA{220, 60, 30, 255}
			}
			x0, y0 := toPx(seg.From)
			x1, y1 := toPx(seg.To)
			line(dst, x0, y0, x1, y1, col)
		}
	}

	radius := int(math.Max(3, 2.2*sx))
	for _, ps := range s.Frame.Players {
		col := c.HomeColor
		if ps.Team == "away" {
			col = c.AwayColor
		}
		x, y := toPx(trail.Point{X: ps.X, Y: ps.Y})
		disc(dst, x, y, radius, col)
		// Heading tick from the disc edge.
		tx := x + int(float64(radius+3)*math.Cos(ps.Rotation))
		ty := y + int(float64(radius+3)*math.Sin(ps.Rotation))
		line(dst, x, y, tx, ty, color.RGBA{0, 0, 0, 255})
		if ps.HasPuck {
			ring(dst, x, y, radius+2, color.RGBA{250, 200, 40, 255})
		}
	}

	// Puck rides the active pass line when one exists so it visually follows
	// the players' current positions; otherwise the interpolated position.
	puck := trail.Point{X: s.Frame.Puck.X, Y: s.Frame.Puck.Y}
	if s.Trail != nil {
		if p, _, ok := s.Trail.PuckAt(s.TimeMs, Positions(s.Frame)); ok {
			puck = p
		}
	}
	px, py := toPx(puck)
	disc(dst, px, py, int(math.Max(2, 0.8*sx)), color.RGBA{10, 10, 10, 255})
}

func fill(dst *image.RGBA, c color.RGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
}

func vline(dst *image.RGBA, x int, c color.RGBA, width int) {
	b := dst.Bounds()
	for dx := 0; dx < width; dx++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if x+dx >= b.Min.X && x+dx < b.Max.X {
				dst.SetRGBA(x+dx, y, c)
			}
		}
	}
}

func disc(dst *image.RGBA, cx, cy, r int, c color.RGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				setIn(dst, cx+dx, cy+dy, c)
			}
		}
	}
}

func ring(dst *image.RGBA, cx, cy, r int, c color.RGBA) {
	for a := 0.0; a < 2*math.Pi; a += 0.02 {
		setIn(dst, cx+int(float64(r)*math.Cos(a)), cy+int(float64(r)*math.Sin(a)), c)
	}
}

// line draws with integer Bresenham.
func line(dst *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		setIn(dst, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setIn(dst *image.RGBA, x, y int, c color.RGBA) {
	b := dst.Bounds()
	if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
		dst.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
