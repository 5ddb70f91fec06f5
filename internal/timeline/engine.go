package timeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rinkworks/rinkmotion/internal/interp"
	"github.com/rinkworks/rinkmotion/internal/play"
)

// State enumerates engine states.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateLoading State = "loading"
	StateError   State = "error"
)

// Speed multiplier bounds for SetSpeed.
const (
	MinSpeed = 0.1
	MaxSpeed = 4.0
)

// Options tunes an Engine. Zero values pick sensible defaults.
type Options struct {
	FPS         int           // update rate of the playback loop (default 60)
	Method      interp.Method // easing for positional interpolation (default cubic)
	CacheFrames bool          // memoize interpolated frames
	CacheSize   int           // max cached frames (default 1000)
}

// Engine owns a loaded play, the playback clock and transport state. All
// methods are safe for concurrent use; playback runs on a single internal
// goroutine, so ticks never overlap.
type Engine struct {
	mu       sync.Mutex
	opts     Options
	handlers []Handler

	play        *play.Play
	state       State
	currentTime float64 // ms, in [0, duration]
	speed       float64
	loop        bool

	cache    *frameCache
	lastTick time.Time
	cancel   context.CancelFunc

	// lerpFn overrides the interpolation kernel in tests.
	lerpFn func(a, b, t float64, m interp.Method) float64
}

// New returns a stopped engine with no play loaded.
func New(opts Options) *Engine {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Method == "" {
		opts.Method = interp.Cubic
	}
	e := &Engine{
		opts:  opts,
		state: StateStopped,
		speed: 1.0,
	}
	if opts.CacheFrames {
		e.cache = newFrameCache(opts.CacheSize)
	}
	return e
}

// Load validates, sorts and installs a play, resetting clock and cache.
// On validation failure the engine enters StateError, publishes an error
// event and keeps the previously loaded play (and its clock) intact.
func (e *Engine) Load(p *play.Play) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.setState(StateLoading)

	if p == nil {
		err := fmt.Errorf("timeline: load: nil play")
		e.setState(StateError)
		e.publish(Event{Kind: EventError, Err: err})
		return err
	}
	if err := p.Normalize(); err != nil {
		e.setState(StateError)
		e.publish(Event{Kind: EventError, Err: err})
		return err
	}

	e.stopLoopLocked()
	e.play = p
	e.currentTime = 0
	e.speed = 1.0
	if e.cache != nil {
		e.cache.clear()
	}
	e.setState(StateStopped)
	return nil
}

// Play starts playback. No-op while already playing or with no play loaded.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.play == nil || e.state == StatePlaying {
		return
	}
	e.setState(StatePlaying)
	e.startLoopLocked()
	e.publish(Event{Kind: EventPlayStart})
}

// Pause halts the clock in place. Only valid while playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return
	}
	e.stopLoopLocked()
	e.setState(StatePaused)
}

// Stop rewinds to 0 and stops playback.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.play == nil {
		return
	}
	e.stopLoopLocked()
	e.currentTime = 0
	e.setState(StateStopped)
	e.publish(Event{Kind: EventPlayEnd})
}

// Reset seeks to 0 and, if playback was active, restarts it in place.
func (e *Engine) Reset() {
	e.mu.Lock()
	wasPlaying := e.state == StatePlaying
	e.mu.Unlock()

	e.SeekTo(0)
	if wasPlaying {
		e.mu.Lock()
		if e.state != StatePlaying {
			e.setState(StatePlaying)
			e.startLoopLocked()
		}
		e.mu.Unlock()
	}
}

// SeekTo moves the clock to the given time (ms), clamped to [0, duration].
// Valid in any state.
func (e *Engine) SeekTo(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.play == nil {
		return
	}
	if t < 0 {
		t = 0
	}
	if d := float64(e.play.Duration); t > d {
		t = d
	}
	e.currentTime = t
	e.publish(Event{Kind: EventSeek, Time: t})
	e.publish(Event{Kind: EventTimeUpdate, Time: t})
}

// SetSpeed clamps the multiplier into [MinSpeed, MaxSpeed].
func (e *Engine) SetSpeed(mult float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mult < MinSpeed {
		mult = MinSpeed
	}
	if mult > MaxSpeed {
		mult = MaxSpeed
	}
	e.speed = mult
	e.publish(Event{Kind: EventSpeedChange, Speed: mult})
}

// SetLoop toggles wrap-around at the end of the play.
func (e *Engine) SetLoop(enabled bool) {
	e.mu.Lock()
	e.loop = enabled
	e.mu.Unlock()
}

// ClearCache drops all memoized frames.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	if e.cache != nil {
		e.cache.clear()
	}
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime
}

func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.play == nil {
		return 0
	}
	return float64(e.play.Duration)
}

func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

func (e *Engine) Loop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop
}

// Loaded returns the installed play, or nil.
func (e *Engine) Loaded() *play.Play {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.play
}

// setState requires e.mu held.
func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.publish(Event{Kind: EventStateChange, State: s})
}

// startLoopLocked spawns the playback goroutine. One ticker drives the
// clock; the target-frame-time gate in step keeps updates at the configured
// rate even if the ticker fires early.
func (e *Engine) startLoopLocked() {
	if e.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.lastTick = time.Now()

	interval := time.Second / time.Duration(e.opts.FPS)
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				e.mu.Lock()
				if e.state != StatePlaying {
					e.mu.Unlock()
					return
				}
				e.step(now)
				e.mu.Unlock()
			}
		}
	}()
}

// stopLoopLocked requires e.mu held.
func (e *Engine) stopLoopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// step advances the clock by the wall-clock delta scaled by speed. Requires
// e.mu held; only meaningful while playing.
func (e *Engine) step(now time.Time) {
	target := float64(time.Second/time.Duration(e.opts.FPS)) / float64(time.Millisecond)
	delta := float64(now.Sub(e.lastTick)) / float64(time.Millisecond)
	if delta < target {
		return
	}
	e.lastTick = now
	e.advance(delta)
}

// advance moves the clock forward by delta ms (pre-speed), emitting keyframe
// hits for every keyframe timestamp crossed and handling end-of-play.
// Requires e.mu held.
func (e *Engine) advance(delta float64) {
	prev := e.currentTime
	next := prev + delta*e.speed
	duration := float64(e.play.Duration)

	ended := next >= duration
	if ended {
		if e.loop {
			next = next - duration
			if next >= duration {
				next = 0
			}
		} else {
			next = duration
		}
	}
	e.currentTime = next
	e.publish(Event{Kind: EventTimeUpdate, Time: next})

	// Discrete triggers: one hit per keyframe whose timestamp fell inside
	// (prev, next]. On a loop wrap both the tail and the wrapped head count.
	if e.loop && ended {
		e.emitHits(prev, duration)
		e.emitHits(-1, next)
	} else {
		e.emitHits(prev, next)
	}

	if ended && !e.loop {
		e.stopLoopLocked()
		e.setState(StateStopped)
		e.publish(Event{Kind: EventPlayEnd})
	}
}

// emitHits publishes a keyframe hit for every keyframe in (from, to].
// Requires e.mu held.
func (e *Engine) emitHits(from, to float64) {
	for i := range e.play.Keyframes {
		ts := float64(e.play.Keyframes[i].Timestamp)
		if ts > from && ts <= to {
			e.publish(Event{Kind: EventKeyframeHit, Keyframe: &e.play.Keyframes[i]})
		}
	}
}
