package vision

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// LightPolygon is the visibility fan of one source: one vertex per ray, in
// normalized map coordinates, ordered by increasing angle.
type LightPolygon struct {
	Source   Source
	Vertices [][2]float64
}

// NewLightPolygon turns per-ray blocking distances into polygon vertices.
func NewLightPolygon(src Source, dists []float64) LightPolygon {
	verts := make([][2]float64, len(dists))
	n := float64(len(dists))
	for i, d := range dists {
		angle := 2 * math.Pi * float64(i) / n
		verts[i] = [2]float64{
			src.X + math.Cos(angle)*d,
			src.Y + math.Sin(angle)*d,
		}
	}
	return LightPolygon{Source: src, Vertices: verts}
}

// Area returns the shoelace area in normalized units². Degenerate fans return 0.
func (lp LightPolygon) Area() float64 {
	n := len(lp.Vertices)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		a := lp.Vertices[i]
		b := lp.Vertices[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return math.Abs(sum) / 2
}

// Geometry exports the fan as a closed simplefeatures polygon. Rings that
// simplefeatures rejects, such as a fan collapsed onto its source, are
// returned as errors.
func (lp LightPolygon) Geometry() (geom.Polygon, error) {
	if len(lp.Vertices) < 3 {
		return geom.Polygon{}, fmt.Errorf("light polygon for %q has %d vertices, need at least 3",
			lp.Source.EntityID, len(lp.Vertices))
	}
	flat := make([]float64, 0, 2*len(lp.Vertices)+2)
	for _, v := range lp.Vertices {
		flat = append(flat, v[0], v[1])
	}
	flat = append(flat, lp.Vertices[0][0], lp.Vertices[0][1])

	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("light polygon ring for %q: %w", lp.Source.EntityID, err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("light polygon for %q: %w", lp.Source.EntityID, err)
	}
	return poly, nil
}
