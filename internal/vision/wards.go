package vision

import (
	"slices"
	"time"
)

// NewSensor places a sensor of kind k with its initial range.
func NewSensor(id string, team Team, k SensorKind, x, y float64, placedAt time.Time, p Params) Sensor {
	return Sensor{
		ID:       id,
		Team:     team,
		Kind:     k,
		X:        x,
		Y:        y,
		Range:    p.SensorRange(k),
		Active:   true,
		PlacedAt: placedAt,
	}
}

// DisableRadius is how far a suppressor reaches.
func DisableRadius(sup Sensor, p Params) float64 {
	if p.DisableRadius > 0 {
		return p.DisableRadius
	}
	return sup.Range
}

// suppresses reports whether sup currently disables target.
func suppresses(sup, target Sensor, p Params) bool {
	if sup.Kind != SensorSuppressor || !sup.Active {
		return false
	}
	if !target.Kind.emitsVision() || sup.Team == target.Team {
		return false
	}
	return distance(sup.X, sup.Y, target.X, target.Y) <= DisableRadius(sup, p)
}

// RecomputeDisablement returns a copy of sensors with Disabled derived from
// the current enemy suppressors. Suppressors themselves are never disabled.
func RecomputeDisablement(sensors []Sensor, p Params) []Sensor {
	out := slices.Clone(sensors)
	for i := range out {
		out[i].Disabled = false
		if !out[i].Kind.emitsVision() {
			continue
		}
		for _, sup := range sensors {
			if suppresses(sup, out[i], p) {
				out[i].Disabled = true
				break
			}
		}
	}
	return out
}

// DecayAt evaluates the long-range decay state machine at time now and
// returns the resulting state and range. Other kinds pass through unchanged.
// The transition is one-way: a Reduced sensor stays Reduced.
//
// A sensor with a zero PlacedAt has no placement time to measure from and
// stays Initial until the host stamps one; NewSensor always sets it.
func (s Sensor) DecayAt(now time.Time, p Params) (DecayState, float64) {
	if s.Kind != SensorLongRange || s.Decay == DecayReduced {
		return s.Decay, s.Range
	}
	if s.PlacedAt.IsZero() || now.Sub(s.PlacedAt) < p.DecayDelay {
		return DecayInitial, s.Range
	}
	return DecayReduced, p.LongRangeReduced
}

// ApplyDecay advances every long-range sensor to its state at now. It returns
// a new slice and the IDs of sensors that transitioned on this call; the
// input is returned unchanged when nothing transitioned.
func ApplyDecay(sensors []Sensor, now time.Time, p Params) ([]Sensor, []string) {
	var out []Sensor
	var changed []string
	for i, s := range sensors {
		state, rng := s.DecayAt(now, p)
		if state == s.Decay {
			continue
		}
		if out == nil {
			out = slices.Clone(sensors)
		}
		out[i].Decay = state
		out[i].Range = rng
		changed = append(changed, s.ID)
	}
	if out == nil {
		return sensors, nil
	}
	return out, changed
}
