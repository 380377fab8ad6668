package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// DeriveActivations lists which team triggers which zone. Only active,
// non-disabled sensors count, and each (zone, team) pair appears once,
// credited to the first sensor found in range.
func DeriveActivations(zones []ZoneReveal, sensors []Sensor) []ZoneActivation {
	acts := []ZoneActivation{}
	seen := make(map[ZoneActivation]bool)
	for _, z := range zones {
		for _, s := range sensors {
			if !s.Active || s.Disabled {
				continue
			}
			if distance(s.X, s.Y, z.X, z.Y) > z.DetectionRadius {
				continue
			}
			key := ZoneActivation{ZoneID: z.ID, Team: s.Team}
			if seen[key] {
				continue
			}
			seen[key] = true
			acts = append(acts, ZoneActivation{ZoneID: z.ID, Team: s.Team, SensorID: s.ID})
		}
	}
	return acts
}

// ZoneOverlay unions the masks of every zone activated for the current view,
// forces wall pixels unlit, and scales the result to board size. Activations
// whose mask is missing are skipped. Returns nil when nothing is revealed.
func ZoneOverlay(acts []ZoneActivation, view ViewMode, zones map[string]*Mask, walls *Mask, boardSize int) *image.Alpha {
	var ref *image.Alpha
	for _, a := range acts {
		if !view.Includes(a.Team) {
			continue
		}
		m := zones[a.ZoneID]
		if m == nil {
			continue
		}
		if ref == nil {
			ref = image.NewAlpha(image.Rect(0, 0, m.size, m.size))
		}
		unionMask(ref, m)
	}
	if ref == nil {
		return nil
	}
	clipWalls(ref, walls)

	out := image.NewAlpha(image.Rect(0, 0, boardSize, boardSize))
	draw.NearestNeighbor.Scale(out, out.Bounds(), ref, ref.Bounds(), draw.Src, nil)
	return out
}

// unionMask ORs m into dst, resampling by nearest pixel when sizes differ.
func unionMask(dst *image.Alpha, m *Mask) {
	n := dst.Bounds().Dx()
	for py := 0; py < n; py++ {
		for px := 0; px < n; px++ {
			sx := px * m.size / n
			sy := py * m.size / n
			if m.bits[sy*m.size+sx] {
				dst.Pix[py*dst.Stride+px] = 0xff
			}
		}
	}
}

// clipWalls clears every zone pixel that sits on a wall.
func clipWalls(dst *image.Alpha, walls *Mask) {
	if walls == nil {
		return
	}
	n := dst.Bounds().Dx()
	for py := 0; py < n; py++ {
		for px := 0; px < n; px++ {
			wx := px * walls.size / n
			wy := py * walls.size / n
			if walls.bits[wy*walls.size+wx] {
				dst.Pix[py*dst.Stride+px] = 0
			}
		}
	}
}

// MergeInto ORs zone coverage into vis in place. vis and zone must share bounds.
func MergeInto(vis, zone *image.Alpha) {
	if vis == nil || zone == nil {
		return
	}
	for i, v := range zone.Pix {
		if v > 0 {
			vis.Pix[i] = 0xff
		}
	}
}
