// Package trail derives pass-line and puck-trail geometry from keyframe data
// and live interpolated positions. It does no physics; everything here is a
// derived view recomputed from scratch each tick.
package trail

import (
	"fmt"
	"math"

	"github.com/rinkworks/rinkmotion/internal/play"
)

// LineKind classifies a puck movement segment.
type LineKind string

const (
	KindPass  LineKind = "pass"
	KindShot  LineKind = "shot"
	KindDump  LineKind = "dump"
	KindClear LineKind = "clear"
)

// PassLine is one discrete puck movement between two keyframes.
type PassLine struct {
	ID           string
	FromPlayerID string
	ToPlayerID   string
	StartTime    float64 // ms
	EndTime      float64 // ms
	Kind         LineKind
}

// Point is a rink-space position.
type Point struct {
	X float64
	Y float64
}

// Segment is one drawn trail piece.
type Segment struct {
	From Point
	To   Point
	Shot bool // terminal segment that qualifies as a shot
}

// Options tunes segment detection.
type Options struct {
	// NoiseThreshold is the minimum puck displacement (feet) between two
	// consecutive keyframes to count as a pass rather than possession jitter.
	NoiseThreshold float64
	// GoalMouthRadius is how close (feet) to a goal line a segment endpoint
	// must land to classify as a shot.
	GoalMouthRadius float64
	// ShotMinTime suppresses the shot heuristic during the opening of a play
	// (ms); early puck placement near a goal line is setup, not a shot.
	ShotMinTime float64
}

func (o *Options) defaults() {
	if o.NoiseThreshold <= 0 {
		o.NoiseThreshold = 3.0
	}
	if o.GoalMouthRadius <= 0 {
		o.GoalMouthRadius = 15.0
	}
	if o.ShotMinTime <= 0 {
		o.ShotMinTime = 500
	}
}

// Tracker holds the precomputed pass lines and keyframe puck samples for one
// play. Build once per loaded play; query every tick.
type Tracker struct {
	opts    Options
	lines   []PassLine
	samples []sample // puck position at each keyframe, sorted by time
}

type sample struct {
	t float64
	p Point
}

// New scans the play's keyframes and precomputes pass lines and samples.
func New(p *play.Play, opts Options) *Tracker {
	opts.defaults()
	t := &Tracker{opts: opts}
	if p == nil {
		return t
	}
	for i := range p.Keyframes {
		kf := &p.Keyframes[i]
		t.samples = append(t.samples, sample{
			t: float64(kf.Timestamp),
			p: Point{X: kf.Puck.X, Y: kf.Puck.Y},
		})
	}
	t.lines = buildLines(p, opts)
	return t
}

// Lines returns the precomputed pass lines in start-time order.
func (t *Tracker) Lines() []PassLine { return t.lines }

// buildLines walks consecutive keyframe puck positions; a displacement above
// the noise threshold becomes a segment, anything below it is the puck
// staying with its owner.
func buildLines(p *play.Play, opts Options) []PassLine {
	var out []PassLine
	for i := 0; i+1 < len(p.Keyframes); i++ {
		a, b := &p.Keyframes[i], &p.Keyframes[i+1]
		dx := b.Puck.X - a.Puck.X
		dy := b.Puck.Y - a.Puck.Y
		if math.Hypot(dx, dy) < opts.NoiseThreshold {
			continue
		}
		line := PassLine{
			ID:           fmt.Sprintf("line-%d", len(out)),
			FromPlayerID: a.Puck.Possessor,
			ToPlayerID:   b.Puck.Possessor,
			StartTime:    float64(a.Timestamp),
			EndTime:      float64(b.Timestamp),
			Kind:         classify(a, b, opts),
		}
		out = append(out, line)
	}
	return out
}

func classify(a, b *play.Keyframe, opts Options) LineKind {
	if nearGoalLine(b.Puck.X, opts.GoalMouthRadius) && float64(b.Timestamp) >= opts.ShotMinTime {
		return KindShot
	}
	if b.Puck.Possessor == "" {
		// Puck released to open ice: a clear out of the defensive zone,
		// otherwise a dump-in.
		if a.Puck.X < play.RinkWidth/2 && b.Puck.X > a.Puck.X {
			return KindClear
		}
		return KindDump
	}
	return KindPass
}

func nearGoalLine(x, radius float64) bool {
	return math.Abs(x-play.HomeGoalLineX) <= radius || math.Abs(x-play.AwayGoalLineX) <= radius
}

// Active returns the pass line whose [StartTime, EndTime] window contains
// now, or nil.
func (t *Tracker) Active(now float64) *PassLine {
	for i := range t.lines {
		l := &t.lines[i]
		if now >= l.StartTime && now <= l.EndTime {
			return l
		}
	}
	return nil
}

// PuckAt computes the puck display position for the active segment by linear
// progress between the endpoint players' *current* rendered positions, so the
// puck tracks players that have moved since the pass was recorded. The second
// return is a cosmetic pulse alpha in [0.5, 1]. Returns ok=false when no
// segment is active or an endpoint player has no known position.
func (t *Tracker) PuckAt(now float64, positions map[string]Point) (Point, float64, bool) {
	l := t.Active(now)
	if l == nil {
		return Point{}, 0, false
	}
	from, okF := positions[l.FromPlayerID]
	to, okT := positions[l.ToPlayerID]
	if !okF || !okT {
		return Point{}, 0, false
	}
	span := l.EndTime - l.StartTime
	progress := 0.0
	if span > 0 {
		progress = (now - l.StartTime) / span
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	pos := Point{
		X: from.X + (to.X-from.X)*progress,
		Y: from.Y + (to.Y-from.Y)*progress,
	}
	pulse := 0.75 + 0.25*math.Sin(progress*2*math.Pi)
	if pulse < 0.5 {
		pulse = 0.5
	}
	return pos, pulse, true
}

// Trail returns the connected historical puck path up to now. Suppressed
// (nil) unless playback is live; static template previews draw no trails.
// The terminal segment is flagged when it qualifies as a shot.
func (t *Tracker) Trail(now float64, playing bool) []Segment {
	if !playing {
		return nil
	}
	var pts []sample
	for _, s := range t.samples {
		if s.t > now {
			break
		}
		pts = append(pts, s)
	}
	if len(pts) < 2 {
		return nil
	}
	segs := make([]Segment, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		segs = append(segs, Segment{From: pts[i].p, To: pts[i+1].p})
	}
	lastSeg := &segs[len(segs)-1]
	if nearGoalLine(lastSeg.To.X, t.opts.GoalMouthRadius) && pts[len(pts)-1].t >= t.opts.ShotMinTime {
		lastSeg.Shot = true
	}
	return segs
}
