// Package viewer is an interactive fog-of-war board: place and remove
// sensors, drag units, switch the viewing team, and watch the fog update.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog"

	"github.com/Garsondee/tactical-vision/internal/vision"
)

const (
	logPanelWidth = 420
	pickRadius    = 0.015 // normalized distance for click hit-tests
	logLines      = 40
)

var (
	teamColors = map[vision.Team]color.RGBA{
		vision.TeamBlue:    {R: 60, G: 140, B: 255, A: 255},
		vision.TeamRed:     {R: 235, G: 70, B: 60, A: 255},
		vision.TeamNeutral: {R: 200, G: 200, B: 200, A: 255},
	}
	wallColor    = color.RGBA{R: 70, G: 66, B: 58, A: 255}
	foliageColor = color.RGBA{R: 34, G: 92, B: 40, A: 255}
	groundColor  = color.RGBA{R: 28, G: 42, B: 28, A: 255}
)

// Config is everything the viewer needs to start.
type Config struct {
	Engine *vision.Engine
	Masks  *vision.Masks
	Snap   vision.Snapshot
	Events *vision.EventLog
	Log    zerolog.Logger
}

// Game implements ebiten.Game over a vision.Session.
type Game struct {
	size    int
	session *vision.Session
	events  *vision.EventLog
	log     zerolog.Logger
	params  vision.Params

	ctx    context.Context
	cancel context.CancelFunc

	// Static map layer, built once from the masks.
	terrain *ebiten.Image
	// Fog layer, rewritten whenever a newer result is published.
	fog     *ebiten.Image
	fogSeq  uint64
	showLog bool

	placeKind vision.SensorKind
	placeTeam vision.Team
	nextID    int

	dragging       string // unit id being dragged, "" when idle
	prevKeys       map[ebiten.Key]bool
	prevMouseLeft  bool
	prevMouseRight bool
}

// New builds the viewer, kicks off the first pass and starts the decay
// scheduler. Call Close when the window exits.
func New(cfg Config) *Game {
	ctx, cancel := context.WithCancel(context.Background())
	size := cfg.Engine.BoardSize()
	g := &Game{
		size:      size,
		session:   vision.NewSession(cfg.Engine, cfg.Snap, cfg.Log),
		events:    cfg.Events,
		log:       cfg.Log,
		params:    cfg.Engine.Params(),
		ctx:       ctx,
		cancel:    cancel,
		fog:       ebiten.NewImage(size, size),
		terrain:   ebiten.NewImage(size, size),
		showLog:   true,
		placeTeam: vision.TeamBlue,
		prevKeys:  make(map[ebiten.Key]bool),
	}
	g.drawTerrain(cfg.Masks)
	g.recompute(nil)
	go func() {
		if err := g.session.RunDecay(ctx, g.params.DecayPollInterval, nil); err != nil {
			g.log.Error().Err(err).Msg("decay scheduler stopped")
		}
	}()
	return g
}

// Close stops background work.
func (g *Game) Close() {
	g.cancel()
}

// Size returns the window size the viewer wants.
func (g *Game) Size() (int, int) {
	return g.size + logPanelWidth, g.size
}

// recompute applies fn and recomputes off the UI goroutine. Draw always
// shows the newest published result.
func (g *Game) recompute(fn func(*vision.Snapshot)) {
	go func() {
		if _, err := g.session.Update(g.ctx, fn); err != nil && !errors.Is(err, context.Canceled) {
			g.log.Error().Err(err).Msg("recompute failed")
		}
	}()
}

func (g *Game) Update() error {
	g.handleInput()
	return nil
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.Size()
}

func (g *Game) handleInput() {
	currentKeys := map[ebiten.Key]bool{}
	pressed := func(k ebiten.Key) bool {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		return currentKeys[k] && !g.prevKeys[k]
	}

	viewKeys := [...]ebiten.Key{ebiten.Key0, ebiten.Key1, ebiten.Key2, ebiten.Key3}
	for i, k := range viewKeys {
		if pressed(k) {
			v := vision.ViewMode(i)
			g.recompute(func(s *vision.Snapshot) { s.View = v })
		}
	}
	if pressed(ebiten.KeyW) {
		g.placeKind = vision.SensorStandard
	}
	if pressed(ebiten.KeyC) {
		g.placeKind = vision.SensorSuppressor
	}
	if pressed(ebiten.KeyF) {
		g.placeKind = vision.SensorLongRange
	}
	if pressed(ebiten.KeyT) {
		g.placeTeam = otherTeam(g.placeTeam)
	}
	if pressed(ebiten.KeyL) {
		g.showLog = !g.showLog
	}
	if pressed(ebiten.KeyD) {
		x, y := g.cursor()
		g.recompute(func(s *vision.Snapshot) { toggleStructure(s, x, y) })
	}

	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	x, y := g.cursor()
	switch {
	case left && !g.prevMouseLeft && inBoard(x, y):
		snap := g.session.Snapshot()
		if id := nearestUnit(snap.Units, x, y, pickRadius); id != "" {
			g.dragging = id
		} else {
			g.placeSensor(x, y)
		}
	case !left && g.prevMouseLeft && g.dragging != "":
		id := g.dragging
		g.dragging = ""
		if inBoard(x, y) {
			g.recompute(func(s *vision.Snapshot) { moveUnit(s, id, x, y) })
		}
	}
	if right && !g.prevMouseRight && inBoard(x, y) {
		g.recompute(func(s *vision.Snapshot) { removeSensor(s, x, y) })
	}
	g.prevMouseLeft = left
	g.prevMouseRight = right
	g.prevKeys = currentKeys
}

func (g *Game) placeSensor(x, y float64) {
	g.nextID++
	id := fmt.Sprintf("%s-%s-%d", g.placeTeam, g.placeKind, g.nextID)
	s := vision.NewSensor(id, g.placeTeam, g.placeKind, x, y, time.Now(), g.params)
	g.log.Debug().Str("sensor", id).Float64("x", x).Float64("y", y).Msg("sensor placed")
	g.recompute(func(snap *vision.Snapshot) { snap.Sensors = append(snap.Sensors, s) })
}

// cursor returns the mouse position in normalized board coordinates.
func (g *Game) cursor() (float64, float64) {
	mx, my := ebiten.CursorPosition()
	return float64(mx) / float64(g.size), float64(my) / float64(g.size)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 12, G: 14, B: 12, A: 255})
	screen.DrawImage(g.terrain, nil)

	res := g.session.Result()
	if res == nil {
		ebitenutil.DebugPrintAt(screen, "computing...", 6, 6)
		return
	}
	g.syncFog(res)

	snap := g.session.Snapshot()
	g.drawEntities(screen, snap, res)
	screen.DrawImage(g.fog, nil)
	g.drawHUD(screen, snap, res)
	if g.showLog {
		g.drawLog(screen)
	}
}

// syncFog uploads the fog raster when a newer result has been published.
// The fog is pure black, so its straight-alpha pixels are also valid
// premultiplied pixels.
func (g *Game) syncFog(res *vision.Result) {
	if res.Seq == g.fogSeq || res.Fog == nil {
		return
	}
	g.fog.WritePixels(res.Fog.Pix)
	g.fogSeq = res.Seq
}

func (g *Game) drawTerrain(m *vision.Masks) {
	g.terrain.Fill(groundColor)
	if m == nil {
		return
	}
	n := vision.ReferenceSize
	img := image.NewRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			switch {
			case m.Walls.At(x, y):
				img.SetRGBA(x, y, wallColor)
			case m.Foliage.At(x, y):
				img.SetRGBA(x, y, foliageColor)
			}
		}
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(float64(g.size)/float64(n), float64(g.size)/float64(n))
	g.terrain.DrawImage(ebiten.NewImageFromImage(img), &op)
}

func (g *Game) drawEntities(screen *ebiten.Image, snap vision.Snapshot, res *vision.Result) {
	sz := float32(g.size)
	for _, st := range snap.Structures {
		if !res.IsVisible(st.ID) {
			continue
		}
		var c color.Color = teamColors[st.Team]
		if !st.Active {
			c = dim(teamColors[st.Team])
		}
		x, y := float32(st.X)*sz, float32(st.Y)*sz
		vector.FillRect(screen, x-5, y-5, 10, 10, c, false)
		vector.StrokeRect(screen, x-5, y-5, 10, 10, 1, color.Black, false)
	}
	for _, sn := range res.Sensors {
		if !res.IsVisible(sn.ID) {
			continue
		}
		x, y := float32(sn.X)*sz, float32(sn.Y)*sz
		var c color.Color = teamColors[sn.Team]
		if sn.Disabled {
			c = dim(teamColors[sn.Team])
		}
		vector.FillCircle(screen, x, y, 4, c, true)
		if sn.Kind == vision.SensorSuppressor {
			vector.StrokeCircle(screen, x, y, float32(vision.DisableRadius(sn, g.params))*sz, 1, c, true)
		}
		if sn.Kind == vision.SensorLongRange {
			vector.StrokeCircle(screen, x, y, 6, 1, color.White, true)
		}
	}
	for _, u := range snap.Units {
		if !res.IsVisible(u.ID) {
			continue
		}
		x, y := float32(u.X)*sz, float32(u.Y)*sz
		vector.FillCircle(screen, x, y, 7, teamColors[u.Team], true)
		if u.ID == g.dragging {
			vector.StrokeCircle(screen, x, y, 9, 2, color.White, true)
		}
	}
}

func (g *Game) drawHUD(screen *ebiten.Image, snap vision.Snapshot, res *vision.Result) {
	lines := []string{
		fmt.Sprintf("view: %s  [0-3]", snap.View),
		fmt.Sprintf("place: %s %s  [W/C/F, T]", g.placeTeam, g.placeKind),
		fmt.Sprintf("lit: %.1f%%  pass #%d  %s", res.LitFraction()*100, res.Seq, res.Elapsed.Round(time.Microsecond)),
	}
	if !res.Ready {
		lines = append(lines, "masks missing: fog closed")
	}
	for i, l := range lines {
		ebitenutil.DebugPrintAt(screen, l, 6, 6+i*14)
	}
}

func (g *Game) drawLog(screen *ebiten.Image) {
	x := g.size + 8
	vector.FillRect(screen, float32(g.size), 0, logPanelWidth, float32(g.size), color.RGBA{R: 18, G: 20, B: 18, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, "events  [L]", x, 6)
	entries := g.events.Entries()
	if len(entries) > logLines {
		entries = entries[len(entries)-logLines:]
	}
	for i, e := range entries {
		ebitenutil.DebugPrintAt(screen, e.String(), x, 24+i*14)
	}
}

// dim fades a team colour for destroyed or disabled entities.
func dim(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 90}
}

func inBoard(x, y float64) bool {
	return x >= 0 && y >= 0 && x < 1 && y < 1
}

func otherTeam(t vision.Team) vision.Team {
	if t == vision.TeamBlue {
		return vision.TeamRed
	}
	return vision.TeamBlue
}

// nearestUnit returns the id of the closest unit within radius of (x, y).
func nearestUnit(units []vision.Unit, x, y, radius float64) string {
	best, bestD := "", radius
	for _, u := range units {
		if d := math.Hypot(u.X-x, u.Y-y); d <= bestD {
			best, bestD = u.ID, d
		}
	}
	return best
}

func moveUnit(s *vision.Snapshot, id string, x, y float64) {
	for i := range s.Units {
		if s.Units[i].ID == id {
			s.Units[i].X, s.Units[i].Y = x, y
			return
		}
	}
}

// removeSensor deletes the sensor closest to (x, y) within pickRadius.
func removeSensor(s *vision.Snapshot, x, y float64) {
	idx, bestD := -1, pickRadius
	for i, sn := range s.Sensors {
		if d := math.Hypot(sn.X-x, sn.Y-y); d <= bestD {
			idx, bestD = i, d
		}
	}
	if idx >= 0 {
		s.Sensors = append(s.Sensors[:idx:idx], s.Sensors[idx+1:]...)
	}
}

// toggleStructure flips Active on the structure closest to (x, y).
func toggleStructure(s *vision.Snapshot, x, y float64) {
	idx, bestD := -1, pickRadius
	for i, st := range s.Structures {
		if d := math.Hypot(st.X-x, st.Y-y); d <= bestD {
			idx, bestD = i, d
		}
	}
	if idx >= 0 {
		s.Structures[idx].Active = !s.Structures[idx].Active
	}
}
