package interp

import "math"

// Method selects the easing applied to the blend fraction.
type Method string

const (
	Linear  Method = "linear"
	Cubic   Method = "cubic" // smoothstep; the default everywhere
	Hermite Method = "hermite"
)

const twoPi = 2 * math.Pi

// Lerp blends start→end at fraction t in [0,1] using the given method.
// An unknown method falls back to linear rather than failing; the kernel is
// on the hot path of every tick and a bad method tag is not worth a panic.
func Lerp(start, end, t float64, m Method) float64 {
	t = clamp01(t)
	switch m {
	case Cubic:
		t = t * t * (3 - 2*t)
	case Hermite:
		// Two-term Hermite basis; tangent-free, so it reduces to a cubic
		// blend with zero slope at both ends.
		h1 := 2*t*t*t - 3*t*t + 1
		h2 := -2*t*t*t + 3*t*t
		return start*h1 + end*h2
	}
	return start + (end-start)*t
}

// LerpAngle blends two angles (radians) along the shortest arc, so a sweep
// across the 0/2π boundary never unwinds the long way around.
func LerpAngle(start, end, t float64) float64 {
	start = normalizeAngle(start)
	end = normalizeAngle(end)
	delta := end - start
	if delta > math.Pi {
		delta -= twoPi
	} else if delta < -math.Pi {
		delta += twoPi
	}
	return normalizeAngle(start + delta*clamp01(t))
}

// normalizeAngle maps any angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
