package vision

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"
)

// DefaultBoardSize is the working raster edge when the host does not set one.
const DefaultBoardSize = 512

// Engine recomputes fog of war from snapshots. It keeps no state between
// passes other than the immutable masks, so one Engine may serve concurrent
// Compute calls.
type Engine struct {
	masks     *Masks
	sampler   *Sampler
	params    Params
	boardSize int
	log       zerolog.Logger
	events    *EventLog
	metrics   *instruments
	seq       atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventLog records ward and zone transitions into l.
func WithEventLog(l *EventLog) Option {
	return func(e *Engine) { e.events = l }
}

// WithBoardSize sets the edge length of the output rasters.
func WithBoardSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.boardSize = n
		}
	}
}

// NewEngine builds an engine over masks. Nil or partial masks are valid and
// produce fully fogged results until the host supplies them.
func NewEngine(masks *Masks, p Params, opts ...Option) *Engine {
	if masks == nil {
		masks = &Masks{}
	}
	e := &Engine{
		masks:     masks,
		sampler:   NewSampler(masks.Walls, masks.Foliage),
		params:    p,
		boardSize: DefaultBoardSize,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	inst, err := newInstruments(meter())
	if err != nil {
		e.log.Warn().Err(err).Msg("falling back to no-op vision metrics")
		inst, _ = newInstruments(noop.Meter{})
	}
	e.metrics = inst
	return e
}

// Params returns the engine tuning.
func (e *Engine) Params() Params { return e.params }

// Sampler exposes the wall/foliage predicates.
func (e *Engine) Sampler() *Sampler { return e.sampler }

// BoardSize returns the output raster edge length.
func (e *Engine) BoardSize() int { return e.boardSize }

// Result is everything one recomputation produces.
type Result struct {
	Seq       uint64
	View      ViewMode
	BoardSize int
	// Ready is false when the wall or foliage mask was missing and no vision
	// could be computed.
	Ready bool

	Visibility *image.Alpha // 255 = lit, 0 = unlit
	Fog        *image.NRGBA // transparent where lit, dark where unlit
	Foliage    *Mask        // threaded through for consumers that sample foliage

	Visible     map[string]bool // unit, sensor and structure ids
	Sensors     []Sensor        // with Disabled recomputed
	Activations []ZoneActivation
	Sources     []Source
	Polygons    []LightPolygon
	Elapsed     time.Duration
}

// Lit reports whether the normalized point (x, y) is lit.
func (r *Result) Lit(x, y float64) bool {
	return litAt(r.Visibility, x, y)
}

// LitFraction returns the share of lit pixels in [0, 1].
func (r *Result) LitFraction() float64 {
	if r.Visibility == nil || len(r.Visibility.Pix) == 0 {
		return 0
	}
	lit := 0
	for _, v := range r.Visibility.Pix {
		if v > 0 {
			lit++
		}
	}
	return float64(lit) / float64(len(r.Visibility.Pix))
}

// IsVisible reports the resolved flag for an entity id. Unknown ids are hidden.
func (r *Result) IsVisible(id string) bool {
	return r.Visible[id]
}

// Compute runs the whole pipeline over snap: disablement, zone activations,
// sources, raycasts, compositing, zone overlay, fog and entity resolution.
// The only error is ctx's, when the pass is superseded before it finishes.
// A cancelled pass records no events, logs and metrics.
func (e *Engine) Compute(ctx context.Context, snap Snapshot) (*Result, error) {
	start := time.Now()
	seq := e.seq.Add(1)

	sensors := RecomputeDisablement(snap.Sensors, e.params)
	flipped := wardChanges(snap.Sensors, sensors)

	acts := snap.Activations
	if acts == nil {
		acts = DeriveActivations(snap.Zones, sensors)
	}

	res := &Result{
		Seq:         seq,
		View:        snap.View,
		BoardSize:   e.boardSize,
		Ready:       e.sampler.Ready(),
		Foliage:     e.masks.Foliage,
		Visible:     make(map[string]bool, len(snap.Units)+len(snap.Sensors)+len(snap.Structures)),
		Sensors:     sensors,
		Activations: acts,
	}

	switch {
	case snap.View == ViewOff:
		res.Visibility = fullyLit(e.boardSize)

	case !res.Ready:
		res.Visibility = image.NewAlpha(image.Rect(0, 0, e.boardSize, e.boardSize))

	default:
		res.Sources = BuildSources(snap, sensors, e.sampler, e.params)
		polys, err := e.castAll(ctx, res.Sources)
		if err != nil {
			return nil, fmt.Errorf("vision pass %d: %w", seq, err)
		}
		res.Polygons = polys
		res.Visibility = Composite(polys, e.boardSize)

		zone := ZoneOverlay(acts, snap.View, e.masks.Zones, e.masks.Walls, e.boardSize)
		MergeInto(res.Visibility, zone)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vision pass %d: %w", seq, err)
	}

	res.Fog = FogFrom(res.Visibility)
	if snap.View == ViewOff {
		for _, u := range snap.Units {
			res.Visible[u.ID] = true
		}
		for _, s := range sensors {
			res.Visible[s.ID] = true
		}
		for _, st := range snap.Structures {
			res.Visible[st.ID] = true
		}
	} else {
		r := NewResolver(snap.View, e.sampler, res.Visibility, snap.Units, sensors, e.params)
		for _, u := range snap.Units {
			res.Visible[u.ID] = r.Unit(u)
		}
		for _, s := range sensors {
			res.Visible[s.ID] = r.Sensor(s)
		}
		for _, st := range snap.Structures {
			res.Visible[st.ID] = r.Structure(st)
		}
	}

	e.finish(ctx, res, start, flipped)
	return res, nil
}

// finish runs once a pass has completed: it stamps timing, emits metrics,
// and records the pass's ward and zone events.
func (e *Engine) finish(ctx context.Context, res *Result, start time.Time, flipped []Sensor) {
	res.Elapsed = time.Since(start)
	e.metrics.recordPass(ctx, res.View, res.Ready, len(res.Sources), res.Elapsed)

	e.logWardChanges(res.Seq, flipped)
	if !res.Ready && res.View != ViewOff {
		e.log.Debug().Uint64("seq", res.Seq).Msg("masks not loaded, returning full fog")
	}
	if res.Ready && res.View != ViewOff {
		for _, a := range res.Activations {
			if res.View.Includes(a.Team) {
				e.events.AddVerbose(res.Seq, a.ZoneID, a.Team.String(), "zone", "active", "via "+a.SensorID, 0)
			}
		}
	}

	lit := res.LitFraction()
	e.events.AddVerbose(res.Seq, "--", "--", "pass", "computed",
		fmt.Sprintf("view=%s sources=%d", res.View, len(res.Sources)), lit)
	e.log.Debug().
		Uint64("seq", res.Seq).
		Str("view", res.View.String()).
		Bool("ready", res.Ready).
		Int("sources", len(res.Sources)).
		Float64("lit", lit).
		Dur("elapsed", res.Elapsed).
		Msg("vision pass computed")
}

// castAll raycasts every source, in parallel up to Params.Workers. Each
// source writes only its own slot, so the output order is deterministic.
func (e *Engine) castAll(ctx context.Context, sources []Source) ([]LightPolygon, error) {
	polys := make([]LightPolygon, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.params.Workers))
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dists := Cast(e.sampler, src, e.params.RayCount, e.params.StepCount)
			polys[i] = NewLightPolygon(src, dists)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return polys, nil
}

// wardChanges returns the sensors whose Disabled flag flipped relative to
// the value the host carried over from the previous pass.
func wardChanges(before, after []Sensor) []Sensor {
	var out []Sensor
	for i := range after {
		if before[i].Disabled != after[i].Disabled {
			out = append(out, after[i])
		}
	}
	return out
}

func (e *Engine) logWardChanges(seq uint64, flipped []Sensor) {
	for _, s := range flipped {
		key := "restored"
		if s.Disabled {
			key = "disabled"
		}
		e.events.Add(seq, s.ID, s.Team.String(), "ward", key, s.Kind.String(), 0)
		e.log.Info().
			Uint64("seq", seq).
			Str("sensor", s.ID).
			Str("team", s.Team.String()).
			Str("state", key).
			Msg("sensor disablement changed")
	}
}

// BuildSources lists every light source allied to snap.View. Inactive
// structures, disabled or inactive sensors, and suppressors emit nothing.
func BuildSources(snap Snapshot, sensors []Sensor, s *Sampler, p Params) []Source {
	var out []Source
	add := func(id string, x, y, rng float64) {
		out = append(out, Source{
			EntityID:  id,
			X:         x,
			Y:         y,
			Range:     rng,
			InFoliage: s.IsFoliage(x, y),
		})
	}
	for _, u := range snap.Units {
		if !snap.View.Includes(u.Team) {
			continue
		}
		rng := u.Range
		if rng <= 0 {
			rng = p.UnitRange
		}
		add(u.ID, u.X, u.Y, rng)
	}
	for _, st := range snap.Structures {
		if !st.Active || !snap.View.Includes(st.Team) {
			continue
		}
		rng := st.Range
		if rng <= 0 {
			rng = p.TierRange(st.Tier)
		}
		add(st.ID, st.X, st.Y, rng)
	}
	for _, sn := range sensors {
		if !sn.Active || sn.Disabled || !sn.Kind.emitsVision() || !snap.View.Includes(sn.Team) {
			continue
		}
		add(sn.ID, sn.X, sn.Y, sn.Range)
	}
	return out
}
