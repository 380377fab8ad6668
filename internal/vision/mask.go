package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Mask is a square boolean raster at reference resolution. A nil *Mask means
// "not loaded yet" and every query on it answers as an absent pixel.
type Mask struct {
	size int
	bits []bool
}

// NewMask resamples img to size×size and marks every pixel whose mean R,G,B
// brightness exceeds threshold. Returns nil when img is nil.
func NewMask(img image.Image, size, threshold int) *Mask {
	if img == nil || size <= 0 {
		return nil
	}
	buf := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(buf, buf.Bounds(), img, img.Bounds(), draw.Src, nil)

	m := &Mask{size: size, bits: make([]bool, size*size)}
	for i := range m.bits {
		p := buf.Pix[i*4 : i*4+3 : i*4+3]
		sum := int(p[0]) + int(p[1]) + int(p[2])
		m.bits[i] = sum > 3*threshold
	}
	return m
}

// Size returns the edge length in pixels.
func (m *Mask) Size() int {
	if m == nil {
		return 0
	}
	return m.size
}

// At reports whether reference pixel (px, py) is set. Out of range is false.
func (m *Mask) At(px, py int) bool {
	if m == nil || px < 0 || py < 0 || px >= m.size || py >= m.size {
		return false
	}
	return m.bits[py*m.size+px]
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// pixel maps a normalized coordinate to its reference pixel.
func (m *Mask) pixel(x, y float64) (int, int, bool) {
	px := int(math.Floor(x * float64(m.size)))
	py := int(math.Floor(y * float64(m.size)))
	if px < 0 || py < 0 || px >= m.size || py >= m.size {
		return 0, 0, false
	}
	return px, py, true
}

// Masks bundles the immutable rasters of one map session.
type Masks struct {
	Walls   *Mask
	Foliage *Mask
	Zones   map[string]*Mask // keyed by ZoneReveal.ID
}

// Sampler answers wall and foliage queries in normalized map coordinates.
type Sampler struct {
	walls   *Mask
	foliage *Mask

	// patches labels each foliage pixel with its 4-connected component id, -1 elsewhere.
	patches []int32
}

// NewSampler builds a sampler and labels the foliage patches once.
func NewSampler(walls, foliage *Mask) *Sampler {
	s := &Sampler{walls: walls, foliage: foliage}
	if foliage != nil {
		s.patches = labelPatches(foliage)
	}
	return s
}

// Ready reports whether both masks are available.
func (s *Sampler) Ready() bool {
	return s != nil && s.walls != nil && s.foliage != nil
}

// gridSizes returns the distinct pixel grids of the loaded masks.
func (s *Sampler) gridSizes() []int {
	if s == nil {
		return nil
	}
	w, f := s.walls.Size(), s.foliage.Size()
	switch {
	case w == 0 && f == 0:
		return nil
	case w == 0 || w == f:
		return []int{f}
	case f == 0:
		return []int{w}
	default:
		return []int{w, f}
	}
}

// IsWall reports whether (x, y) blocks vision. Unknown space is a wall.
func (s *Sampler) IsWall(x, y float64) bool {
	if s == nil || s.walls == nil {
		return true
	}
	px, py, ok := s.walls.pixel(x, y)
	if !ok {
		return true
	}
	return s.walls.bits[py*s.walls.size+px]
}

// IsFoliage reports whether (x, y) lies in foliage. Unknown space is not foliage.
func (s *Sampler) IsFoliage(x, y float64) bool {
	if s == nil || s.foliage == nil {
		return false
	}
	px, py, ok := s.foliage.pixel(x, y)
	if !ok {
		return false
	}
	return s.foliage.bits[py*s.foliage.size+px]
}

// FoliagePatch returns the id of the foliage patch containing (x, y), or -1.
func (s *Sampler) FoliagePatch(x, y float64) int {
	if s == nil || s.foliage == nil {
		return -1
	}
	px, py, ok := s.foliage.pixel(x, y)
	if !ok {
		return -1
	}
	return int(s.patches[py*s.foliage.size+px])
}

// labelPatches flood-fills 4-connected foliage components.
func labelPatches(m *Mask) []int32 {
	n := m.size
	labels := make([]int32, n*n)
	for i := range labels {
		labels[i] = -1
	}
	var stack []int
	var next int32
	for start, set := range m.bits {
		if !set || labels[start] != -1 {
			continue
		}
		labels[start] = next
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%n, idx/n
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d[0], y+d[1]
				if !m.At(nx, ny) {
					continue
				}
				nIdx := ny*n + nx
				if labels[nIdx] != -1 {
					continue
				}
				labels[nIdx] = next
				stack = append(stack, nIdx)
			}
		}
		next++
	}
	return labels
}
