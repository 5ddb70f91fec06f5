package play

// Rink coordinate space: a standard 200x85 sheet with the origin at the
// top-left corner, x growing toward the away goal, units in feet.
const (
	RinkWidth  = 200.0
	RinkHeight = 85.0

	// Goal lines sit 11 ft from each end board.
	HomeGoalLineX = 11.0
	AwayGoalLineX = RinkWidth - 11.0
)

// Action tags a player's semantic state at a keyframe.
type Action string

const (
	ActionSkating     Action = "skating"
	ActionShooting    Action = "shooting"
	ActionPassing     Action = "passing"
	ActionChecking    Action = "checking"
	ActionGoalkeeping Action = "goalkeeping"
)

// RotationUnit declares the unit of a keyframe rotation value. A bare number
// is radians; data sources exporting degrees must say so.
type RotationUnit string

const (
	UnitRadians RotationUnit = "rad"
	UnitDegrees RotationUnit = "deg"
)

// PlayerState is the per-player snapshot stored on a keyframe.
// X/Y/Rotation interpolate continuously between keyframes; Speed, Action and
// Team carry from the earlier keyframe; HasPuck and IsShooter are discrete
// and switch at the segment midpoint.
type PlayerState struct {
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	Rotation     float64      `json:"rotation"`
	RotationUnit RotationUnit `json:"rotationUnit,omitempty"`
	Speed        float64      `json:"speed,omitempty"`
	Action       Action       `json:"action,omitempty"`
	Team         string       `json:"team,omitempty"`
	HasPuck      bool         `json:"hasPuck,omitempty"`
	IsShooter    bool         `json:"isShooter,omitempty"`
}

// PuckState is the puck snapshot stored on a keyframe. Position interpolates;
// Velocity and Possessor hand off discretely to the later keyframe.
type PuckState struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Velocity  float64 `json:"velocity,omitempty"`
	Possessor string  `json:"possessor,omitempty"`
}

// Annotation is a display-only marker. The engine never inspects these beyond
// copying them through; the board renderer decides how to draw them.
type Annotation struct {
	Kind   string  `json:"kind"` // "arrow" | "circle" | "text" | "highlight"
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Text   string  `json:"text,omitempty"`
	Color  string  `json:"color,omitempty"`
}

// Keyframe is a timestamped snapshot of the whole board.
type Keyframe struct {
	Timestamp   int64                  `json:"timestamp"` // ms from play start
	Players     map[string]PlayerState `json:"players"`
	Puck        PuckState              `json:"puck"`
	Annotations []Annotation           `json:"annotations,omitempty"`
}

// Play is an ordered sequence of keyframes plus an authoritative duration.
// Duration is independent of the last keyframe timestamp; frames requested
// beyond the last keyframe clamp to it.
type Play struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Duration    int64             `json:"duration"` // ms
	Keyframes   []Keyframe        `json:"keyframes"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
