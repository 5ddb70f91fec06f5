package timeline

import "github.com/rinkworks/rinkmotion/internal/play"

// EventKind is the closed set of engine notifications.
type EventKind int

const (
	EventStateChange EventKind = iota + 1
	EventTimeUpdate
	EventPlayStart
	EventPlayEnd
	EventKeyframeHit
	EventSpeedChange
	EventSeek
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStateChange:
		return "stateChange"
	case EventTimeUpdate:
		return "timeUpdate"
	case EventPlayStart:
		return "playStart"
	case EventPlayEnd:
		return "playEnd"
	case EventKeyframeHit:
		return "keyframeHit"
	case EventSpeedChange:
		return "speedChange"
	case EventSeek:
		return "seek"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is published to subscribers. Only the fields relevant to Kind are
// set: State for state changes, Time for time updates and seeks, Speed for
// speed changes, Keyframe for keyframe hits, Err for errors.
type Event struct {
	Kind     EventKind
	State    State
	Time     float64 // ms
	Speed    float64
	Keyframe *play.Keyframe
	Err      error
}

// Handler receives events synchronously on the goroutine that caused them.
type Handler func(Event)

// Subscribe registers a handler for all engine events. Delivery is
// at-least-once, in registration order. Handlers must not call back into
// the engine's transport methods.
func (e *Engine) Subscribe(h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	e.mu.Unlock()
}

// publish is called with e.mu held; handlers run outside the lock.
func (e *Engine) publish(ev Event) {
	hs := e.handlers
	e.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
	e.mu.Lock()
}
