package vision

import (
	"math"
	"slices"
)

// Cast marches rayCount rays, evenly spaced over [0, 2π), outward from src in
// stepCount fixed steps of src.Range/stepCount. Each step tests every mask
// pixel it crosses, and a ray stops where it enters the first wall pixel, or
// the first foliage pixel when the source itself is not in foliage.
// Unblocked rays return src.Range.
//
// The stop distance is the pixel entry point, not the step that found it, so
// it does not move with the step grid and a longer range never shortens a ray.
func Cast(s *Sampler, src Source, rayCount, stepCount int) []float64 {
	if rayCount <= 0 {
		return nil
	}
	dists := make([]float64, rayCount)
	grids := s.gridSizes()
	cuts := make([]float64, 0, 8)
	for i := range dists {
		angle := 2 * math.Pi * float64(i) / float64(rayCount)
		dists[i] = castRay(s, src, angle, stepCount, grids, cuts)
	}
	return dists
}

// castRay returns the blocking distance along one ray.
func castRay(s *Sampler, src Source, angle float64, stepCount int, grids []int, cuts []float64) float64 {
	if stepCount <= 0 || src.Range <= 0 {
		return src.Range
	}
	dx := math.Cos(angle)
	dy := math.Sin(angle)
	stepSize := src.Range / float64(stepCount)

	blocked := func(t float64) bool {
		px := src.X + dx*t
		py := src.Y + dy*t
		// Walls always block.
		if s.IsWall(px, py) {
			return true
		}
		// Foliage blocks only observers standing outside foliage.
		return !src.InFoliage && s.IsFoliage(px, py)
	}

	prev := 0.0
	for i := 1; i <= stepCount; i++ {
		dist := src.Range
		if i < stepCount {
			dist = float64(i) * stepSize
		}
		if hit, ok := firstHit(src, dx, dy, prev, dist, grids, cuts, blocked); ok {
			return hit
		}
		prev = dist
	}
	return src.Range
}

// firstHit splits the segment [lo, hi] of a ray at every pixel boundary it
// crosses and returns the entry distance of the first blocked piece.
func firstHit(src Source, dx, dy, lo, hi float64, grids []int, cuts []float64, blocked func(float64) bool) (float64, bool) {
	cuts = append(cuts[:0], lo)
	for _, n := range grids {
		cuts = appendCrossings(cuts, src.X, dx, lo, hi, n)
		cuts = appendCrossings(cuts, src.Y, dy, lo, hi, n)
	}
	cuts = append(cuts, hi)
	slices.Sort(cuts[1 : len(cuts)-1])

	for i := 0; i+1 < len(cuts); i++ {
		a, b := cuts[i], cuts[i+1]
		if b <= a {
			continue
		}
		if blocked((a + b) / 2) {
			return a, true
		}
	}
	return 0, false
}

// appendCrossings adds the distances in (lo, hi) at which a ray starting at
// origin with direction component dir crosses a pixel boundary of an n-pixel
// grid along one axis.
func appendCrossings(cuts []float64, origin, dir, lo, hi float64, n int) []float64 {
	if dir == 0 || n <= 0 {
		return cuts
	}
	size := float64(n)
	a := (origin + dir*lo) * size
	b := (origin + dir*hi) * size
	if a > b {
		a, b = b, a
	}
	for k := math.Floor(a) + 1; k < b; k++ {
		t := (k/size - origin) / dir
		if t > lo && t < hi {
			cuts = append(cuts, t)
		}
	}
	return cuts
}
