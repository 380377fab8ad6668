package vision

import (
	"context"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"
)

// Board is a headless map fixture for tests and the report tool. It paints
// rectangular wall, foliage and zone masks at reference resolution and holds
// a snapshot to run against them. Rectangles are in normalized coordinates.
type Board struct {
	Walls   *image.Gray
	Foliage *image.Gray
	Zones   map[string]*image.Gray
	Snap    Snapshot
	Params  Params
	Events  *EventLog

	boardSize int
	noMasks   bool
	engine    *Engine
}

// boardOptionKind controls the pass in which an option is applied.
type boardOptionKind int

const (
	boardOptInfra  boardOptionKind = iota // applied first: params, board size, masks
	boardOptEntity                        // units, structures, sensors, view
)

// BoardOption is a builder function applied to a Board during construction.
type BoardOption struct {
	kind boardOptionKind
	fn   func(*Board)
}

// WithParams replaces the default tuning.
func WithParams(p Params) BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) { b.Params = p }}
}

// WithBoardPixels sets the output raster size.
func WithBoardPixels(n int) BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) { b.boardSize = n }}
}

// WithoutMasks builds the engine with no wall or foliage mask loaded.
func WithoutMasks() BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) { b.noMasks = true }}
}

// WithVerboseEvents records per-pass and per-zone events.
func WithVerboseEvents() BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) { b.Events = NewEventLog(true) }}
}

// WithWallRect paints a wall block.
func WithWallRect(x0, y0, x1, y1 float64) BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) { paintRect(b.Walls, x0, y0, x1, y1) }}
}

// WithFoliageRect paints a foliage patch.
func WithFoliageRect(x0, y0, x1, y1 float64) BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) { paintRect(b.Foliage, x0, y0, x1, y1) }}
}

// WithZone registers a zone reveal triggered around (x, y) whose mask is the
// given rectangle.
func WithZone(id string, x, y, radius, x0, y0, x1, y1 float64) BoardOption {
	return BoardOption{boardOptInfra, func(b *Board) {
		m := newGray()
		paintRect(m, x0, y0, x1, y1)
		b.Zones[id] = m
		b.Snap.Zones = append(b.Snap.Zones, ZoneReveal{
			ID:              id,
			X:               x,
			Y:               y,
			DetectionRadius: radius,
			MaskPath:        id + ".png",
		})
	}}
}

// WithView sets the viewing team.
func WithView(v ViewMode) BoardOption {
	return BoardOption{boardOptEntity, func(b *Board) { b.Snap.View = v }}
}

// WithUnit adds a unit with the default range.
func WithUnit(id string, team Team, x, y float64) BoardOption {
	return BoardOption{boardOptEntity, func(b *Board) {
		b.Snap.Units = append(b.Snap.Units, Unit{ID: id, Team: team, X: x, Y: y})
	}}
}

// WithUnitRange adds a unit with an explicit range.
func WithUnitRange(id string, team Team, x, y, rng float64) BoardOption {
	return BoardOption{boardOptEntity, func(b *Board) {
		b.Snap.Units = append(b.Snap.Units, Unit{ID: id, Team: team, X: x, Y: y, Range: rng})
	}}
}

// WithStructure adds an active structure of the given tier.
func WithStructure(id string, team Team, tier StructureTier, x, y float64) BoardOption {
	return BoardOption{boardOptEntity, func(b *Board) {
		b.Snap.Structures = append(b.Snap.Structures, Structure{
			ID: id, Team: team, Tier: tier, X: x, Y: y, Active: true,
		})
	}}
}

// WithSensor places a sensor at placedAt.
func WithSensor(id string, team Team, k SensorKind, x, y float64, placedAt time.Time) BoardOption {
	return BoardOption{boardOptEntity, func(b *Board) {
		b.Snap.Sensors = append(b.Snap.Sensors, NewSensor(id, team, k, x, y, placedAt, b.Params))
	}}
}

// NewBoard constructs a Board from the given options in two ordered passes:
//  1. Infrastructure (params, size, masks)
//  2. Entities and view
//
// The default view is ViewBlue.
func NewBoard(opts ...BoardOption) *Board {
	b := &Board{
		Walls:     newGray(),
		Foliage:   newGray(),
		Zones:     make(map[string]*image.Gray),
		Params:    DefaultParams(),
		boardSize: ReferenceSize,
		Snap:      Snapshot{View: ViewBlue},
	}
	for _, o := range opts {
		if o.kind == boardOptInfra {
			o.fn(b)
		}
	}
	for _, o := range opts {
		if o.kind == boardOptEntity {
			o.fn(b)
		}
	}
	return b
}

// Masks thresholds the painted images into engine masks.
func (b *Board) Masks() *Masks {
	if b.noMasks {
		return &Masks{}
	}
	m := &Masks{
		Walls:   NewMask(b.Walls, ReferenceSize, LuminanceThreshold),
		Foliage: NewMask(b.Foliage, ReferenceSize, LuminanceThreshold),
		Zones:   make(map[string]*Mask, len(b.Zones)),
	}
	for id, img := range b.Zones {
		m.Zones[id] = NewMask(img, ReferenceSize, ZoneThreshold)
	}
	return m
}

// Engine returns the board's engine, building it on first use.
func (b *Board) Engine() *Engine {
	if b.engine == nil {
		b.engine = NewEngine(b.Masks(), b.Params,
			WithBoardSize(b.boardSize),
			WithEventLog(b.Events),
		)
	}
	return b.engine
}

// Compute runs one pass over the board's current snapshot.
func (b *Board) Compute() (*Result, error) {
	return b.Engine().Compute(context.Background(), b.Snap)
}

func newGray() *image.Gray {
	return image.NewGray(image.Rect(0, 0, ReferenceSize, ReferenceSize))
}

// paintRect fills the normalized rectangle [x0,x1)×[y0,y1) white.
func paintRect(img *image.Gray, x0, y0, x1, y1 float64) {
	n := float64(ReferenceSize)
	r := image.Rect(int(x0*n), int(y0*n), int(x1*n), int(y1*n))
	draw.Draw(img, r, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
}
