package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/rinkmotion/internal/board"
	"github.com/rinkworks/rinkmotion/internal/play"
	"github.com/rinkworks/rinkmotion/internal/timeline"
	"github.com/rinkworks/rinkmotion/internal/trail"
)

const (
	// sendBuffer is the per-client outbound queue depth. A full queue drops
	// messages for that client instead of stalling the engine tick.
	sendBuffer = 64

	writeWait = time.Second
)

// client is one connected frame-stream consumer. All writes go through send,
// drained by a single writer goroutine: the websocket connection allows at
// most one concurrent writer, and both the broadcast loop and engine-event
// handlers produce messages.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// State owns the live engine, the loaded catalog and the connected clients.
type State struct {
	mu      sync.RWMutex
	Engine  *timeline.Engine
	FPS     int
	catalog map[string]*play.Play
	tracker *trail.Tracker

	frameID   uint64
	startTime time.Time
	clients   map[*client]bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewState wires a server state around an engine and forwards engine events
// to all connected clients.
func NewState(eng *timeline.Engine, fps int) *State {
	s := &State{
		Engine:    eng,
		FPS:       fps,
		catalog:   map[string]*play.Play{},
		startTime: time.Now(),
		clients:   map[*client]bool{},
		done:      make(chan struct{}),
	}
	eng.Subscribe(func(ev timeline.Event) {
		s.broadcast(eventMessage(ev))
	})
	return s
}

// Close stops the broadcast loop and disconnects all clients.
func (s *State) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	cs := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		cs = append(cs, c)
	}
	s.mu.Unlock()
	for _, c := range cs {
		s.removeClient(c)
	}
}

// AddPlay registers a play as loadable via the control channel.
func (s *State) AddPlay(p *play.Play) {
	s.mu.Lock()
	s.catalog[p.ID] = p
	s.mu.Unlock()
}

// Plays lists the registered play IDs and names.
func (s *State) Plays() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.catalog))
	for id, p := range s.catalog {
		out[id] = p.Name
	}
	return out
}

type playerRow struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Team      string  `json:"team,omitempty"`
	Action    string  `json:"action,omitempty"`
	HasPuck   bool    `json:"hasPuck,omitempty"`
	IsShooter bool    `json:"isShooter,omitempty"`
}

type puckRow struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Possessor string  `json:"possessor,omitempty"`
}

type segmentRow struct {
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	Shot bool    `json:"shot,omitempty"`
}

type frameMessage struct {
	Type    string       `json:"type"` // "frame"
	FrameID uint64       `json:"frame_id"`
	T       float64      `json:"t"` // ms
	State   string       `json:"state"`
	Players []playerRow  `json:"players"`
	Puck    puckRow      `json:"puck"`
	Trail   []segmentRow `json:"trail,omitempty"`
}

func eventMessage(ev timeline.Event) []byte {
	msg := map[string]any{
		"type": "event",
		"kind": ev.Kind.String(),
	}
	switch ev.Kind {
	case timeline.EventStateChange:
		msg["state"] = string(ev.State)
	case timeline.EventTimeUpdate, timeline.EventSeek:
		msg["t"] = ev.Time
	case timeline.EventSpeedChange:
		msg["speed"] = ev.Speed
	case timeline.EventKeyframeHit:
		msg["timestamp"] = ev.Keyframe.Timestamp
	case timeline.EventError:
		msg["error"] = ev.Err.Error()
	}
	b, _ := json.Marshal(msg)
	return b
}

// RunBroadcastLoop streams interpolated frames to all clients at the
// configured rate until Close. Blocks; run it on its own goroutine.
func (s *State) RunBroadcastLoop() {
	fps := s.FPS
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		frame := s.Engine.CurrentFrame()
		if frame == nil {
			continue
		}
		t := s.Engine.CurrentTime()
		playing := s.Engine.State() == timeline.StatePlaying

		s.mu.Lock()
		s.frameID++
		msg := frameMessage{
			Type:    "frame",
			FrameID: s.frameID,
			T:       t,
			State:   string(s.Engine.State()),
			Puck:    puckRow{X: frame.Puck.X, Y: frame.Puck.Y, Possessor: frame.Puck.Possessor},
		}
		for id, ps := range frame.Players {
			msg.Players = append(msg.Players, playerRow{
				ID: id, X: ps.X, Y: ps.Y, Rotation: ps.Rotation,
				Team: ps.Team, Action: string(ps.Action),
				HasPuck: ps.HasPuck, IsShooter: ps.IsShooter,
			})
		}
		if s.tracker != nil {
			if p, _, ok := s.tracker.PuckAt(t, board.Positions(frame)); ok {
				msg.Puck.X, msg.Puck.Y = p.X, p.Y
			}
			for _, seg := range s.tracker.Trail(t, playing) {
				msg.Trail = append(msg.Trail, segmentRow{
					X0: seg.From.X, Y0: seg.From.Y, X1: seg.To.X, Y1: seg.To.Y, Shot: seg.Shot,
				})
			}
		}
		s.mu.Unlock()

		b, _ := json.Marshal(msg)
		s.broadcast(b)
	}
}

// HandleFramesWS upgrades a client onto the frame stream.
func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	go s.writeLoop(c)
	go func() {
		defer s.removeClient(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writeLoop is the sole writer for one connection; it drains the client's
// send queue until the queue is closed or a write fails.
func (s *State) writeLoop(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Err(err).Msg("client write failed")
			s.removeClient(c)
			return
		}
	}
}

// removeClient unregisters and disconnects a client. Safe to call more than
// once; c.send is closed under the write lock, which excludes broadcast's
// read-locked enqueues, so an enqueue never races the close.
func (s *State) removeClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

type controlMessage struct {
	Cmd    string  `json:"cmd"` // load|play|pause|stop|reset|seek|speed|loop
	PlayID string  `json:"play_id,omitempty"`
	T      float64 `json:"t,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Loop   bool    `json:"loop,omitempty"`
}

// HandleControlWS accepts transport commands from a client.
func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.applyControl(msg)
	}
}

func (s *State) applyControl(msg controlMessage) {
	switch msg.Cmd {
	case "load":
		s.mu.RLock()
		p := s.catalog[msg.PlayID]
		s.mu.RUnlock()
		if p == nil {
			log.Warn().Str("play_id", msg.PlayID).Msg("load: unknown play")
			return
		}
		if err := s.Engine.Load(p); err != nil {
			log.Warn().Err(err).Str("play_id", msg.PlayID).Msg("load failed")
			return
		}
		s.mu.Lock()
		s.tracker = trail.New(p, trail.Options{})
		s.mu.Unlock()
	case "play":
		s.Engine.Play()
	case "pause":
		s.Engine.Pause()
	case "stop":
		s.Engine.Stop()
	case "reset":
		s.Engine.Reset()
	case "seek":
		s.Engine.SeekTo(msg.T)
	case "speed":
		s.Engine.SetSpeed(msg.Speed)
	case "loop":
		s.Engine.SetLoop(msg.Loop)
	default:
		log.Debug().Str("cmd", msg.Cmd).Msg("unknown control command")
	}
}

// HandleHealth reports server and engine status as JSON.
func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clients := len(s.clients)
	plays := len(s.catalog)
	frameID := s.frameID
	s.mu.RUnlock()
	resp := map[string]any{
		"frame_id": frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"state":    string(s.Engine.State()),
		"t":        s.Engine.CurrentTime(),
		"duration": s.Engine.Duration(),
		"speed":    s.Engine.Speed(),
		"clients":  clients,
		"plays":    plays,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// HandlePlays lists the catalog as JSON.
func (s *State) HandlePlays(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.Plays())
}

// broadcast enqueues a message for every client. Non-blocking: a client with
// a full queue misses this message rather than back-pressuring the caller,
// which may be the engine's tick goroutine.
func (s *State) broadcast(b []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			log.Debug().Msg("client queue full, dropping message")
		}
	}
}
