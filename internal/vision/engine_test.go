package vision

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"testing"
	"time"
)

func mustCompute(t *testing.T, b *Board) *Result {
	t.Helper()
	res, err := b.Compute()
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	return res
}

func TestEngine_OpenMapScenario(t *testing.T) {
	b := NewBoard(
		WithUnitRange("blue-1", TeamBlue, 0.5, 0.5, 0.1),
		WithUnit("red-1", TeamRed, 0.9, 0.9),
	)
	res := mustCompute(t, b)

	if !res.Ready {
		t.Fatal("painted board should be ready")
	}
	if !res.Lit(0.5, 0.5) || !res.Lit(0.55, 0.5) {
		t.Fatal("area around the blue unit should be lit")
	}
	if res.Lit(0.9, 0.9) {
		t.Fatal("far corner should be dark")
	}
	if !res.IsVisible("blue-1") {
		t.Fatal("ally should be visible")
	}
	if res.IsVisible("red-1") {
		t.Fatal("distant enemy should be hidden")
	}
	if len(res.Sources) != 1 || len(res.Polygons) != 1 {
		t.Fatalf("expected one source, got %d sources and %d polygons", len(res.Sources), len(res.Polygons))
	}
}

func TestEngine_AddingSourceNeverDarkens(t *testing.T) {
	walls := WithWallRect(0.3, 0.3, 0.35, 0.7)
	one := mustCompute(t, NewBoard(walls, WithUnit("a", TeamBlue, 0.4, 0.5)))
	two := mustCompute(t, NewBoard(walls,
		WithUnit("a", TeamBlue, 0.4, 0.5),
		WithUnit("b", TeamBlue, 0.25, 0.5),
	))
	for i, v := range one.Visibility.Pix {
		if v > 0 && two.Visibility.Pix[i] == 0 {
			t.Fatalf("pixel %d went dark after adding a source", i)
		}
	}
	if two.LitFraction() <= one.LitFraction() {
		t.Fatal("second source should add light")
	}
}

func TestEngine_WallBlocksVision(t *testing.T) {
	b := NewBoard(
		WithWallRect(0.55, 0.3, 0.6, 0.7),
		WithUnitRange("blue-1", TeamBlue, 0.5, 0.5, 0.2),
		WithUnit("red-1", TeamRed, 0.65, 0.5),
		WithUnit("red-2", TeamRed, 0.4, 0.5),
	)
	res := mustCompute(t, b)
	if res.Lit(0.65, 0.5) {
		t.Fatal("pixel behind the wall should be dark")
	}
	if res.IsVisible("red-1") {
		t.Fatal("enemy behind wall should be hidden")
	}
	if !res.IsVisible("red-2") {
		t.Fatal("enemy in the open within range should be visible")
	}
}

func TestEngine_FoliageAsymmetry(t *testing.T) {
	bush := WithFoliageRect(0.6, 0.4, 0.8, 0.6)

	// Outside looking in: blocked.
	res := mustCompute(t, NewBoard(bush,
		WithUnitRange("blue-1", TeamBlue, 0.5, 0.5, 0.3),
		WithUnit("red-1", TeamRed, 0.7, 0.5),
	))
	if res.IsVisible("red-1") {
		t.Fatal("observer outside foliage should not see into it")
	}

	// Inside looking out: clear.
	res = mustCompute(t, NewBoard(bush,
		WithView(ViewRed),
		WithUnitRange("red-1", TeamRed, 0.62, 0.5, 0.3),
		WithUnit("blue-1", TeamBlue, 0.45, 0.5),
	))
	if !res.IsVisible("blue-1") {
		t.Fatal("observer inside foliage should see out of it")
	}
	if !res.Sources[0].InFoliage {
		t.Fatal("source inside foliage should be flagged")
	}
}

func TestEngine_SharedFoliageReveal(t *testing.T) {
	// A wall splits the bush so only co-location can reveal.
	opts := []BoardOption{
		WithFoliageRect(0.6, 0.4, 0.8, 0.6),
		WithWallRect(0.645, 0.4, 0.655, 0.6),
		WithUnit("blue-1", TeamBlue, 0.62, 0.5),
	}
	res := mustCompute(t, NewBoard(append(opts, WithUnit("red-1", TeamRed, 0.66, 0.5))...))
	if res.Lit(0.66, 0.5) {
		t.Fatal("wall should keep the far half of the bush dark")
	}
	if !res.IsVisible("red-1") {
		t.Fatal("enemy in the same bush within radius should be revealed")
	}

	res = mustCompute(t, NewBoard(append(opts, WithUnit("red-1", TeamRed, 0.68, 0.5))...))
	if res.IsVisible("red-1") {
		t.Fatal("same bush but beyond the co-location radius should stay hidden")
	}
}

func TestEngine_SharedFoliageNeedsSamePatch(t *testing.T) {
	res := mustCompute(t, NewBoard(
		WithFoliageRect(0.6, 0.4, 0.64, 0.6),
		WithWallRect(0.64, 0.4, 0.65, 0.6),
		WithFoliageRect(0.65, 0.4, 0.7, 0.6),
		WithUnit("blue-1", TeamBlue, 0.63, 0.5),
		WithUnit("red-1", TeamRed, 0.66, 0.5),
	))
	if res.IsVisible("red-1") {
		t.Fatal("adjacent but separate bushes should not share vision")
	}
}

func TestEngine_AllyAlwaysVisible(t *testing.T) {
	res := mustCompute(t, NewBoard(
		WithView(ViewBoth),
		WithWallRect(0.0, 0.0, 1.0, 1.0), // every ray dies on its first step
		WithUnit("blue-1", TeamBlue, 0.2, 0.2),
		WithUnit("red-1", TeamRed, 0.8, 0.8),
		WithUnit("neutral-1", TeamNeutral, 0.5, 0.5),
	))
	if !res.IsVisible("blue-1") || !res.IsVisible("red-1") {
		t.Fatal("both teams are allies under the shared view")
	}
	if res.IsVisible("neutral-1") {
		t.Fatal("neutral units are never allies")
	}
}

func TestEngine_MasksMissing(t *testing.T) {
	res := mustCompute(t, NewBoard(
		WithoutMasks(),
		WithUnit("blue-1", TeamBlue, 0.5, 0.5),
		WithUnit("red-1", TeamRed, 0.51, 0.5),
	))
	if res.Ready {
		t.Fatal("result without masks must not be ready")
	}
	if res.LitFraction() != 0 {
		t.Fatalf("expected fully fogged raster, lit=%.3f", res.LitFraction())
	}
	if !res.IsVisible("blue-1") || res.IsVisible("red-1") {
		t.Fatal("allies shown, enemies hidden while masks are missing")
	}
	if len(res.Sources) != 0 {
		t.Fatal("no sources should be cast without masks")
	}
}

func TestEngine_ViewOffShowsEverything(t *testing.T) {
	t0 := time.Unix(0, 0)
	res := mustCompute(t, NewBoard(
		WithView(ViewOff),
		WithWallRect(0.4, 0.4, 0.6, 0.6),
		WithUnit("red-1", TeamRed, 0.5, 0.5),
		WithSensor("w", TeamRed, SensorStandard, 0.1, 0.1, t0),
		WithStructure("t", TeamRed, TierOuter, 0.9, 0.1),
	))
	if res.LitFraction() != 1 {
		t.Fatalf("fog off should light everything, lit=%.3f", res.LitFraction())
	}
	for _, id := range []string{"red-1", "w", "t"} {
		if !res.IsVisible(id) {
			t.Fatalf("%s should be visible with fog off", id)
		}
	}
	for i := 3; i < len(res.Fog.Pix); i += 4 {
		if res.Fog.Pix[i] != 0 {
			t.Fatal("fog overlay should be fully transparent")
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	b := NewBoard(
		WithWallRect(0.3, 0.3, 0.35, 0.7),
		WithFoliageRect(0.6, 0.2, 0.7, 0.4),
		WithUnit("a", TeamBlue, 0.4, 0.5),
		WithUnit("b", TeamBlue, 0.65, 0.3),
		WithStructure("t", TeamBlue, TierInner, 0.2, 0.8),
		WithUnit("r", TeamRed, 0.62, 0.35),
	)
	first := mustCompute(t, b)
	second := mustCompute(t, b)
	if !bytes.Equal(first.Visibility.Pix, second.Visibility.Pix) {
		t.Fatal("identical snapshots produced different rasters")
	}
	if !maps.Equal(first.Visible, second.Visible) {
		t.Fatal("identical snapshots produced different visibility flags")
	}
	if second.Seq <= first.Seq {
		t.Fatal("sequence numbers must increase")
	}
}

func TestEngine_InactiveStructureEmitsNothing(t *testing.T) {
	b := NewBoard(WithStructure("t", TeamBlue, TierOuter, 0.5, 0.5))
	b.Snap.Structures[0].Active = false
	res := mustCompute(t, b)
	if len(res.Sources) != 0 || res.LitFraction() != 0 {
		t.Fatal("destroyed structure should not emit vision")
	}
	if !res.IsVisible("t") {
		t.Fatal("structures stay visible")
	}
}

func TestEngine_SensorStealthAndSuppression(t *testing.T) {
	t0 := time.Unix(0, 0)
	base := []BoardOption{
		WithUnitRange("blue-1", TeamBlue, 0.5, 0.5, 0.2),
		WithSensor("r-ward", TeamRed, SensorStandard, 0.55, 0.5, t0),
	}

	res := mustCompute(t, NewBoard(base...))
	if res.IsVisible("r-ward") {
		t.Fatal("enemy ward should be stealthed even when lit")
	}

	res = mustCompute(t, NewBoard(append(base,
		WithSensor("b-sup", TeamBlue, SensorSuppressor, 0.56, 0.5, t0))...))
	if !res.IsVisible("r-ward") {
		t.Fatal("allied suppressor should reveal the enemy ward")
	}
	if !res.Sensors[0].Disabled {
		t.Fatal("enemy ward should be disabled by the suppressor")
	}
}

func TestEngine_EnemySuppressorRevealedWhileBlinding(t *testing.T) {
	t0 := time.Unix(0, 0)
	res := mustCompute(t, NewBoard(
		WithSensor("b-ward", TeamBlue, SensorStandard, 0.2, 0.2, t0),
		WithSensor("r-sup", TeamRed, SensorSuppressor, 0.25, 0.2, t0),
		WithSensor("r-sup-far", TeamRed, SensorSuppressor, 0.8, 0.8, t0),
	))
	if len(res.Sources) != 0 {
		t.Fatal("disabled ward should emit nothing")
	}
	if !res.IsVisible("r-sup") {
		t.Fatal("suppressor disabling an allied ward should be revealed")
	}
	if res.IsVisible("r-sup-far") {
		t.Fatal("unrelated enemy suppressor in the dark should be hidden")
	}
}

func TestEngine_ZoneRevealFollowsWard(t *testing.T) {
	t0 := time.Unix(0, 0)
	zone := WithZone("z", 0.2, 0.2, 0.02, 0.3, 0.3, 0.5, 0.5)
	ward := WithSensor("b-ward", TeamBlue, SensorStandard, 0.2, 0.2, t0)
	enemy := WithUnit("red-1", TeamRed, 0.45, 0.45)

	res := mustCompute(t, NewBoard(zone, ward, enemy))
	if !res.Lit(0.45, 0.45) || !res.IsVisible("red-1") {
		t.Fatal("zone should reveal its mask area for the triggering team")
	}
	if len(res.Activations) != 1 {
		t.Fatalf("expected 1 derived activation, got %d", len(res.Activations))
	}

	res = mustCompute(t, NewBoard(zone, ward, enemy, WithView(ViewRed)))
	if res.Lit(0.32, 0.32) {
		t.Fatal("blue zone must not light the red view")
	}

	res = mustCompute(t, NewBoard(zone, ward, enemy,
		WithSensor("r-sup", TeamRed, SensorSuppressor, 0.21, 0.2, t0)))
	if res.Lit(0.45, 0.45) || len(res.Activations) != 1 || res.Activations[0].Team != TeamRed {
		t.Fatal("disabled ward should stop triggering the zone")
	}
}

func TestEngine_ExplicitActivationsOverride(t *testing.T) {
	b := NewBoard(
		WithZone("z", 0.2, 0.2, 0.02, 0.3, 0.3, 0.5, 0.5),
		WithSensor("b-ward", TeamBlue, SensorStandard, 0.2, 0.2, time.Unix(0, 0)),
	)
	b.Snap.Activations = []ZoneActivation{}
	res := mustCompute(t, b)
	if res.Lit(0.45, 0.45) {
		t.Fatal("empty explicit activations should suppress derivation")
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	b := NewBoard(WithUnit("blue-1", TeamBlue, 0.5, 0.5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Engine().Compute(ctx, b.Snap)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_LogsWardTransitions(t *testing.T) {
	t0 := time.Unix(0, 0)
	b := NewBoard(
		WithSensor("b-ward", TeamBlue, SensorStandard, 0.5, 0.5, t0),
		WithSensor("r-sup", TeamRed, SensorSuppressor, 0.52, 0.5, t0),
	)
	b.Events = NewEventLog(false)
	res := mustCompute(t, b)

	got := b.Events.Filter("ward", "disabled")
	if len(got) != 1 || got[0].Subject != "b-ward" {
		t.Fatalf("expected one disabled event for b-ward, got %v", got)
	}

	// Feeding the result back reports no further transition.
	b.Snap.Sensors = res.Sensors
	mustCompute(t, b)
	if n := len(b.Events.Filter("ward", "")); n != 1 {
		t.Fatalf("stable state should not log again, have %d ward events", n)
	}
}

func TestBuildSources(t *testing.T) {
	t0 := time.Unix(0, 0)
	b := NewBoard(
		WithUnit("u", TeamBlue, 0.1, 0.1),
		WithUnit("enemy", TeamRed, 0.2, 0.2),
		WithStructure("t", TeamBlue, TierNexus, 0.3, 0.3),
		WithSensor("w", TeamBlue, SensorStandard, 0.4, 0.4, t0),
		WithSensor("sup", TeamBlue, SensorSuppressor, 0.6, 0.6, t0),
		WithSensor("far", TeamBlue, SensorLongRange, 0.8, 0.8, t0),
	)
	p := b.Params
	sensors := RecomputeDisablement(b.Snap.Sensors, p)
	srcs := BuildSources(b.Snap, sensors, samplerFor(b), p)

	want := map[string]float64{
		"u":   p.UnitRange,
		"t":   p.TierRanges[TierNexus],
		"w":   p.StandardRange,
		"far": p.LongRangeInitial,
	}
	if len(srcs) != len(want) {
		t.Fatalf("expected %d sources, got %d: %+v", len(want), len(srcs), srcs)
	}
	for _, s := range srcs {
		r, ok := want[s.EntityID]
		if !ok {
			t.Fatalf("unexpected source %s", s.EntityID)
		}
		if s.Range != r {
			t.Fatalf("%s: expected range %.4f got %.4f", s.EntityID, r, s.Range)
		}
	}
}

func TestEngine_LongerRangeNeverDarkens(t *testing.T) {
	b := NewBoard(
		WithWallRect(0.58, 0.3, 0.62, 0.7),
		WithWallRect(0.3, 0.38, 0.7, 0.41),
		WithFoliageRect(0.4, 0.55, 0.45, 0.6),
		WithUnit("blue-1", TeamBlue, 0.5, 0.5),
	)
	e := b.Engine()
	var prev *Result
	for r := 0.05; r <= 0.15; r += 0.01 {
		snap := b.Snap.Clone()
		snap.Units[0].Range = r
		res, err := e.Compute(context.Background(), snap)
		if err != nil {
			t.Fatalf("range %.2f: %v", r, err)
		}
		if prev != nil {
			lost := 0
			for i, v := range prev.Visibility.Pix {
				if v > 0 && res.Visibility.Pix[i] == 0 {
					lost++
				}
			}
			if lost > 0 {
				t.Fatalf("range %.2f: %d pixels went dark", r, lost)
			}
			if res.LitFraction() < prev.LitFraction() {
				t.Fatalf("range %.2f: lit fraction fell", r)
			}
		}
		prev = res
	}
}

func TestEngine_CancelledViewOffPassIsSilent(t *testing.T) {
	b := NewBoard(WithVerboseEvents(), WithView(ViewOff), WithUnit("blue-1", TeamBlue, 0.5, 0.5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Engine().Compute(ctx, b.Snap); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := b.Events.Len(); n != 0 {
		t.Fatalf("cancelled pass should record nothing, have %d events", n)
	}
}
