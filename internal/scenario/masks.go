package scenario

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // register PNG decoder
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Garsondee/tactical-vision/internal/vision"
)

// MaskFiles names the wall and foliage images inside a mask directory.
type MaskFiles struct {
	Walls   string
	Foliage string
	ZoneDir string // relative to the mask directory; "" means the directory itself
}

// DefaultMaskFiles matches the shipped map assets.
func DefaultMaskFiles() MaskFiles {
	return MaskFiles{Walls: "walls.png", Foliage: "brush.png", ZoneDir: "zones"}
}

// LoadMasks decodes and thresholds every mask in dir. A missing wall or
// foliage image leaves that mask nil and the engine reports not-ready; a
// missing zone image is logged and skipped. Any other error aborts.
func LoadMasks(dir string, files MaskFiles, zones []vision.ZoneReveal, log zerolog.Logger) (*vision.Masks, error) {
	m := &vision.Masks{Zones: make(map[string]*vision.Mask, len(zones))}

	var err error
	m.Walls, err = loadMask(filepath.Join(dir, files.Walls), vision.LuminanceThreshold)
	if err != nil {
		return nil, fmt.Errorf("loading wall mask: %w", err)
	}
	if m.Walls == nil {
		log.Warn().Str("file", files.Walls).Msg("wall mask not found, fog will stay closed")
	}

	m.Foliage, err = loadMask(filepath.Join(dir, files.Foliage), vision.LuminanceThreshold)
	if err != nil {
		return nil, fmt.Errorf("loading foliage mask: %w", err)
	}
	if m.Foliage == nil {
		log.Warn().Str("file", files.Foliage).Msg("foliage mask not found, fog will stay closed")
	}

	zoneDir := filepath.Join(dir, files.ZoneDir)
	for _, z := range zones {
		zm, err := loadMask(filepath.Join(zoneDir, z.MaskPath), vision.ZoneThreshold)
		if err != nil {
			return nil, fmt.Errorf("loading zone mask %s: %w", z.ID, err)
		}
		if zm == nil {
			log.Warn().Str("zone", z.ID).Str("file", z.MaskPath).Msg("zone mask not found, skipping")
			continue
		}
		m.Zones[z.ID] = zm
	}

	log.Debug().
		Bool("walls", m.Walls != nil).
		Bool("foliage", m.Foliage != nil).
		Int("zones", len(m.Zones)).
		Msg("masks loaded")
	return m, nil
}

// loadMask returns (nil, nil) when path does not exist.
func loadMask(path string, threshold int) (*vision.Mask, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return vision.NewMask(img, vision.ReferenceSize, threshold), nil
}
