package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var boundsCases = []struct {
	Start float64
	End   float64
}{
	{0, 100},
	{100, 0},
	{-50, 50},
	{-3.2, -80.5},
	{42, 42},
}

func TestLerpBounds(t *testing.T) {
	methods := []Method{Linear, Cubic, Hermite, Method("bogus")}
	for _, tc := range boundsCases {
		lo := math.Min(tc.Start, tc.End)
		hi := math.Max(tc.Start, tc.End)
		for _, m := range methods {
			for frac := 0.0; frac <= 1.0; frac += 0.05 {
				v := Lerp(tc.Start, tc.End, frac, m)
				assert.GreaterOrEqual(t, v, lo-1e-9, "method=%s t=%.2f", m, frac)
				assert.LessOrEqual(t, v, hi+1e-9, "method=%s t=%.2f", m, frac)
			}
		}
	}
}

func TestLerpEndpointsExact(t *testing.T) {
	for _, m := range []Method{Linear, Cubic, Hermite} {
		assert.Equal(t, 3.5, Lerp(3.5, 99.25, 0, m), "method=%s at t=0", m)
		assert.Equal(t, 99.25, Lerp(3.5, 99.25, 1, m), "method=%s at t=1", m)
	}
}

func TestLerpLinearMidpoint(t *testing.T) {
	assert.InDelta(t, 25.0, Lerp(0, 100, 0.25, Linear), 1e-9)
	assert.InDelta(t, 50.0, Lerp(0, 100, 0.5, Cubic), 1e-9)
}

func TestLerpClampsFraction(t *testing.T) {
	assert.Equal(t, 0.0, Lerp(0, 100, -0.5, Linear))
	assert.Equal(t, 100.0, Lerp(0, 100, 1.5, Linear))
}

func TestLerpUnknownMethodFallsBackToLinear(t *testing.T) {
	assert.Equal(t, Lerp(0, 10, 0.3, Linear), Lerp(0, 10, 0.3, Method("spline9000")))
}

func TestLerpAngleShortestPath(t *testing.T) {
	deg := func(d float64) float64 { return d * math.Pi / 180 }

	// 350° → 10° must pass through 0°, not 180°.
	mid := LerpAngle(deg(350), deg(10), 0.5)
	if mid > deg(20) && mid < deg(340) {
		t.Fatalf("expected wrap through 0, got %.1f°", mid*180/math.Pi)
	}

	// The traversed arc never exceeds π.
	pairs := [][2]float64{{deg(350), deg(10)}, {deg(10), deg(350)}, {0, deg(180)}, {deg(90), deg(271)}, {-deg(30), deg(30)}}
	for _, p := range pairs {
		start := LerpAngle(p[0], p[1], 0)
		end := LerpAngle(p[0], p[1], 1)
		delta := math.Mod(end-start, 2*math.Pi)
		if delta > math.Pi {
			delta -= 2 * math.Pi
		}
		if delta < -math.Pi {
			delta += 2 * math.Pi
		}
		if math.Abs(delta) > math.Pi+1e-9 {
			t.Fatalf("arc %0.3f exceeds π for pair %v", delta, p)
		}
	}
}

func TestLerpAngleNormalizes(t *testing.T) {
	v := LerpAngle(-math.Pi/2, 5*math.Pi, 0.0)
	if v < 0 || v >= 2*math.Pi {
		t.Fatalf("expected result in [0, 2π), got %v", v)
	}
}
