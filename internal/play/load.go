package play

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// MinKeyframes is the smallest keyframe count a playable Play can have.
const MinKeyframes = 2

// Decode parses a Play JSON document and normalizes it.
func Decode(data []byte) (*Play, error) {
	var p Play
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("play: decode: %w", err)
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Normalize sorts keyframes by timestamp, converts rotations to radians and
// validates the play. Called defensively on every load; idempotent.
func (p *Play) Normalize() error {
	if len(p.Keyframes) < MinKeyframes {
		return fmt.Errorf("play %q: need at least %d keyframes, got %d", p.Name, MinKeyframes, len(p.Keyframes))
	}
	sort.SliceStable(p.Keyframes, func(i, j int) bool {
		return p.Keyframes[i].Timestamp < p.Keyframes[j].Timestamp
	})
	for i := range p.Keyframes {
		kf := &p.Keyframes[i]
		if kf.Timestamp < 0 {
			return fmt.Errorf("play %q: keyframe %d: negative timestamp %d", p.Name, i, kf.Timestamp)
		}
		for id, ps := range kf.Players {
			if ps.RotationUnit == UnitDegrees {
				ps.Rotation = ps.Rotation * math.Pi / 180
				ps.RotationUnit = UnitRadians
				kf.Players[id] = ps
			}
		}
	}
	if p.Duration <= 0 {
		p.Duration = p.Keyframes[len(p.Keyframes)-1].Timestamp
	}
	return nil
}

// Clone returns a deep copy of a keyframe. Interpolated frames are built on
// copies so cached frames never alias the stored keyframes.
func (kf *Keyframe) Clone() *Keyframe {
	out := &Keyframe{
		Timestamp: kf.Timestamp,
		Puck:      kf.Puck,
	}
	if kf.Players != nil {
		out.Players = make(map[string]PlayerState, len(kf.Players))
		for id, ps := range kf.Players {
			out.Players[id] = ps
		}
	}
	if kf.Annotations != nil {
		out.Annotations = append([]Annotation(nil), kf.Annotations...)
	}
	return out
}
