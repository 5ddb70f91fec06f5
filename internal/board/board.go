// Package board renders interpolated frames onto a raster surface. It fills
// the capture-surface role for the export pipeline and the preview stream;
// interactive clients bring their own scene graph and only consume frames.
package board

import (
	"image"

	"github.com/rinkworks/rinkmotion/internal/play"
	"github.com/rinkworks/rinkmotion/internal/trail"
)

// Scene is everything a renderer needs for one frame.
type Scene struct {
	Frame   *play.Keyframe
	TimeMs  float64
	Playing bool           // gates trail drawing
	Trail   *trail.Tracker // optional
}

// Renderer draws a scene into dst. Implementations must tolerate a nil
// Frame (empty board) and a nil Trail.
type Renderer interface {
	Name() string
	Render(dst *image.RGBA, s Scene)
}

// Registry maps renderer names to implementations.
type Registry struct{ m map[string]Renderer }

func NewRegistry() *Registry { return &Registry{m: map[string]Renderer{}} }

func (r *Registry) Register(rr Renderer) {
	if rr == nil {
		return
	}
	r.m[rr.Name()] = rr
}

func (r *Registry) Get(name string) (Renderer, bool) { rr, ok := r.m[name]; return rr, ok }

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	return out
}

// Positions extracts the rendered player positions from a frame, the shape
// the trail adapter consumes.
func Positions(f *play.Keyframe) map[string]trail.Point {
	if f == nil {
		return nil
	}
	out := make(map[string]trail.Point, len(f.Players))
	for id, ps := range f.Players {
		out[id] = trail.Point{X: ps.X, Y: ps.Y}
	}
	return out
}
