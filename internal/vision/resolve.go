package vision

import "image"

// Resolver decides whether each entity is shown to the current view.
// It reads the final visibility raster and the foliage patches; it never
// mutates anything.
type Resolver struct {
	view    ViewMode
	sampler *Sampler
	vis     *image.Alpha
	units   []Unit
	sensors []Sensor // with Disabled already recomputed
	params  Params
}

// NewResolver binds a resolver to one recomputation's outputs.
func NewResolver(view ViewMode, s *Sampler, vis *image.Alpha, units []Unit, sensors []Sensor, p Params) *Resolver {
	return &Resolver{
		view:    view,
		sampler: s,
		vis:     vis,
		units:   units,
		sensors: sensors,
		params:  p,
	}
}

// Unit reports whether u is visible. Allies always are; enemies need to be
// lit or to share a foliage patch with an ally unit or allied suppressor.
func (r *Resolver) Unit(u Unit) bool {
	if r.view.Includes(u.Team) {
		return true
	}
	return r.observable(u.X, u.Y)
}

// Sensor reports whether s is visible. Enemy vision-emitting sensors are
// stealthed and only show when an allied suppressor covers them. Enemy
// suppressors follow the unit rules and additionally show while they are
// disabling one of the viewer's own sensors.
func (r *Resolver) Sensor(s Sensor) bool {
	if r.view.Includes(s.Team) {
		return true
	}
	if s.Kind == SensorSuppressor {
		return r.observable(s.X, s.Y) || r.blindsAlly(s)
	}
	return r.coveredBySuppressor(s)
}

// Structure reports whether st is visible. Structures are map fixtures.
func (r *Resolver) Structure(Structure) bool {
	return true
}

// observable is the raster-or-shared-foliage test shared by units and suppressors.
func (r *Resolver) observable(x, y float64) bool {
	if litAt(r.vis, x, y) {
		return true
	}
	return r.sharesFoliage(x, y)
}

// sharesFoliage reports whether (x, y) sits in a foliage patch that also
// holds an allied unit or an active allied suppressor.
func (r *Resolver) sharesFoliage(x, y float64) bool {
	patch := r.sampler.FoliagePatch(x, y)
	if patch < 0 {
		return false
	}
	for _, s := range r.sensors {
		if s.Kind != SensorSuppressor || !s.Active || s.Disabled || !r.view.Includes(s.Team) {
			continue
		}
		if r.inPatch(patch, x, y, s.X, s.Y) {
			return true
		}
	}
	for _, u := range r.units {
		if !r.view.Includes(u.Team) {
			continue
		}
		if r.inPatch(patch, x, y, u.X, u.Y) {
			return true
		}
	}
	return false
}

func (r *Resolver) inPatch(patch int, x, y, ox, oy float64) bool {
	if r.sampler.FoliagePatch(ox, oy) != patch {
		return false
	}
	if r.params.SameFoliageRadius > 0 && distance(x, y, ox, oy) >= r.params.SameFoliageRadius {
		return false
	}
	return true
}

// coveredBySuppressor reports whether an active allied suppressor reaches s.
func (r *Resolver) coveredBySuppressor(s Sensor) bool {
	for _, sup := range r.sensors {
		if sup.Kind != SensorSuppressor || !sup.Active || sup.Disabled || !r.view.Includes(sup.Team) {
			continue
		}
		if distance(s.X, s.Y, sup.X, sup.Y) <= DisableRadius(sup, r.params) {
			return true
		}
	}
	return false
}

// blindsAlly reports whether enemy suppressor sup is disabling an allied sensor.
func (r *Resolver) blindsAlly(sup Sensor) bool {
	for _, s := range r.sensors {
		if !s.Disabled || !r.view.Includes(s.Team) {
			continue
		}
		if suppresses(sup, s, r.params) {
			return true
		}
	}
	return false
}
