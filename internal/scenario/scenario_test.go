package scenario

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/tactical-vision/internal/vision"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "scenarios.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefault_Layout(t *testing.T) {
	sc := Default()
	assert.Len(t, sc.Units, 10)
	assert.Len(t, sc.Structures, 22)
	assert.Len(t, sc.Zones, 12)

	blue, red := 0, 0
	for _, st := range sc.Structures {
		assert.True(t, st.Active)
		switch st.Team {
		case vision.TeamBlue:
			blue++
		case vision.TeamRed:
			red++
		}
	}
	assert.Equal(t, 11, blue)
	assert.Equal(t, 11, red)

	snap := sc.Snapshot()
	assert.Equal(t, vision.ViewBlue, snap.View)
	assert.Nil(t, snap.Activations)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sc := Default()
	sc.Name = "midgame"
	sc.Sensors = []vision.Sensor{
		vision.NewSensor("w1", vision.TeamBlue, vision.SensorLongRange, 0.4, 0.4,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), vision.DefaultParams()),
	}

	require.NoError(t, s.Save(sc))
	got, err := s.Load("midgame")
	require.NoError(t, err)

	assert.Equal(t, sc.Units, got.Units)
	assert.Equal(t, sc.Structures, got.Structures)
	assert.Equal(t, sc.Zones, got.Zones)
	require.Len(t, got.Sensors, 1)
	assert.Equal(t, vision.SensorLongRange, got.Sensors[0].Kind)
	assert.True(t, sc.Sensors[0].PlacedAt.Equal(got.Sensors[0].PlacedAt))
}

func TestStore_SaveReplacesByName(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Scenario{Name: "a", View: "blue"}))
	require.NoError(t, s.Save(Scenario{Name: "a", View: "red"}))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	got, err := s.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "red", got.View)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("missing"), ErrNotFound)
}

func TestStore_ListAndDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Scenario{Name: "b"}))
	require.NoError(t, s.Save(Scenario{Name: "a"}))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, s.Delete("a"))
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}

func TestStore_RejectsUnnamed(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Save(Scenario{}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "", zerolog.Nop())
	assert.Error(t, err)
}

func writePNG(t *testing.T, path string, fill func(x, y int) bool) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if fill(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadMasks(t *testing.T) {
	dir := t.TempDir()
	files := DefaultMaskFiles()
	writePNG(t, filepath.Join(dir, files.Walls), func(x, _ int) bool { return x < 8 })
	writePNG(t, filepath.Join(dir, files.Foliage), func(x, y int) bool { return x > 40 && y > 40 })
	writePNG(t, filepath.Join(dir, files.ZoneDir, "z1.png"), func(x, _ int) bool { return x > 32 })

	zones := []vision.ZoneReveal{
		{ID: "z1", MaskPath: "z1.png"},
		{ID: "z2", MaskPath: "missing.png"},
	}
	m, err := LoadMasks(dir, files, zones, zerolog.Nop())
	require.NoError(t, err)

	require.NotNil(t, m.Walls)
	require.NotNil(t, m.Foliage)
	assert.Equal(t, vision.ReferenceSize, m.Walls.Size())
	assert.Contains(t, m.Zones, "z1")
	assert.NotContains(t, m.Zones, "z2")

	s := vision.NewSampler(m.Walls, m.Foliage)
	assert.True(t, s.Ready())
	assert.True(t, s.IsWall(0.02, 0.5))
	assert.False(t, s.IsWall(0.5, 0.5))
	assert.True(t, s.IsFoliage(0.9, 0.9))
}

func TestLoadMasks_MissingBaseMasks(t *testing.T) {
	m, err := LoadMasks(t.TempDir(), DefaultMaskFiles(), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, m.Walls)
	assert.Nil(t, m.Foliage)
	assert.False(t, vision.NewSampler(m.Walls, m.Foliage).Ready())
}

func TestLoadMasks_CorruptImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walls.png"), []byte("not a png"), 0o644))
	_, err := LoadMasks(dir, DefaultMaskFiles(), nil, zerolog.Nop())
	assert.Error(t, err)
}
