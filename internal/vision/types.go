package vision

import (
	"slices"
	"time"
)

// Team identifies which side an entity belongs to.
type Team int

const (
	TeamBlue    Team = iota // bottom-left base
	TeamRed                 // top-right base
	TeamNeutral             // never allied with any view
)

func (t Team) String() string {
	switch t {
	case TeamBlue:
		return "blue"
	case TeamRed:
		return "red"
	case TeamNeutral:
		return "neutral"
	default:
		return "unknown"
	}
}

// ParseTeam is the inverse of Team.String. Unknown names map to TeamNeutral.
func ParseTeam(s string) Team {
	switch s {
	case "blue":
		return TeamBlue
	case "red":
		return TeamRed
	default:
		return TeamNeutral
	}
}

// ViewMode is the viewing-team selection the fog is computed for.
type ViewMode int

const (
	ViewOff  ViewMode = iota // fog disabled
	ViewBlue                 // blue team's vision only
	ViewRed                  // red team's vision only
	ViewBoth                 // shared vision of both teams
)

func (v ViewMode) String() string {
	switch v {
	case ViewOff:
		return "off"
	case ViewBlue:
		return "blue"
	case ViewRed:
		return "red"
	case ViewBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseViewMode is the inverse of ViewMode.String. Unknown names map to ViewOff.
func ParseViewMode(s string) ViewMode {
	switch s {
	case "blue":
		return ViewBlue
	case "red":
		return ViewRed
	case "both":
		return ViewBoth
	default:
		return ViewOff
	}
}

// Includes reports whether entities of team t are allies under this view.
// Neutral entities are never allies.
func (v ViewMode) Includes(t Team) bool {
	switch v {
	case ViewBoth:
		return t == TeamBlue || t == TeamRed
	case ViewBlue:
		return t == TeamBlue
	case ViewRed:
		return t == TeamRed
	default:
		return false
	}
}

// Unit is a player-controlled token. Range 0 means Params.UnitRange.
type Unit struct {
	ID    string  `json:"id"`
	Team  Team    `json:"team"`
	Role  string  `json:"role,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Range float64 `json:"range,omitempty"`
}

// StructureTier selects a structure's default vision range.
type StructureTier int

const (
	TierOuter StructureTier = iota
	TierInner
	TierInhibitor
	TierNexus
)

func (t StructureTier) String() string {
	switch t {
	case TierOuter:
		return "outer"
	case TierInner:
		return "inner"
	case TierInhibitor:
		return "inhibitor"
	case TierNexus:
		return "nexus"
	default:
		return "unknown"
	}
}

// Structure is a fixed light source (a tower). It emits vision only while Active.
// Range 0 means Params.TierRange(Tier).
type Structure struct {
	ID     string        `json:"id"`
	Team   Team          `json:"team"`
	Tier   StructureTier `json:"tier"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Active bool          `json:"active"`
	Range  float64       `json:"range,omitempty"`
}

// SensorKind distinguishes the three ward types.
type SensorKind int

const (
	SensorStandard   SensorKind = iota // plain vision ward
	SensorSuppressor                   // control ward: disables enemy wards, emits no vision
	SensorLongRange                    // farsight ward: range decays after placement
)

func (k SensorKind) String() string {
	switch k {
	case SensorStandard:
		return "standard"
	case SensorSuppressor:
		return "suppressor"
	case SensorLongRange:
		return "long-range"
	default:
		return "unknown"
	}
}

// emitsVision reports whether sensors of this kind are light sources.
func (k SensorKind) emitsVision() bool {
	return k == SensorStandard || k == SensorLongRange
}

// DecayState is the range state of a long-range sensor.
type DecayState int

const (
	DecayInitial DecayState = iota
	DecayReduced            // terminal
)

func (d DecayState) String() string {
	if d == DecayReduced {
		return "reduced"
	}
	return "initial"
}

// Sensor is a placed ward. Disabled is derived by the engine on every pass and
// any value supplied by the host is ignored.
type Sensor struct {
	ID       string     `json:"id"`
	Team     Team       `json:"team"`
	Kind     SensorKind `json:"kind"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Range    float64    `json:"range"`
	Active   bool       `json:"active"`
	Disabled bool       `json:"disabled,omitempty"`
	PlacedAt time.Time  `json:"placedAt"`
	Decay    DecayState `json:"decay,omitempty"`
}

// ZoneReveal is a pre-authored region revealed wholesale once a team triggers it.
type ZoneReveal struct {
	ID              string  `json:"id"`
	Name            string  `json:"name,omitempty"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	DetectionRadius float64 `json:"detectionRadius"`
	MaskPath        string  `json:"maskPath"`
	Category        string  `json:"category,omitempty"`
}

// ZoneActivation states that Team currently triggers ZoneID.
type ZoneActivation struct {
	ZoneID   string `json:"zoneId"`
	Team     Team   `json:"team"`
	SensorID string `json:"sensorId,omitempty"`
}

// Source is one light source of a recomputation.
type Source struct {
	EntityID  string
	X, Y      float64
	Range     float64
	InFoliage bool
}

// Snapshot is the complete host state handed to the engine for one pass.
// A nil Activations slice asks the engine to derive activations from sensors.
type Snapshot struct {
	View        ViewMode
	Units       []Unit
	Structures  []Structure
	Sensors     []Sensor
	Zones       []ZoneReveal
	Activations []ZoneActivation
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		View:        s.View,
		Units:       slices.Clone(s.Units),
		Structures:  slices.Clone(s.Structures),
		Sensors:     slices.Clone(s.Sensors),
		Zones:       slices.Clone(s.Zones),
		Activations: slices.Clone(s.Activations),
	}
}
