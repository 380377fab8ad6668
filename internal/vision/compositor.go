package vision

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Composite fills every light polygon onto a boardSize×boardSize raster and
// merges them by logical OR: a pixel touched by any polygon is lit (255),
// everything else is 0. Overlapping sources never stack.
func Composite(polys []LightPolygon, boardSize int) *image.Alpha {
	vis := image.NewAlpha(image.Rect(0, 0, boardSize, boardSize))
	if boardSize <= 0 || len(polys) == 0 {
		return vis
	}
	scale := float32(boardSize)
	r := vector.NewRasterizer(boardSize, boardSize)
	for _, p := range polys {
		if len(p.Vertices) < 3 {
			continue
		}
		r.Reset(boardSize, boardSize)
		r.DrawOp = draw.Over
		r.MoveTo(float32(p.Vertices[0][0])*scale, float32(p.Vertices[0][1])*scale)
		for _, v := range p.Vertices[1:] {
			r.LineTo(float32(v[0])*scale, float32(v[1])*scale)
		}
		r.ClosePath()
		r.Draw(vis, vis.Bounds(), image.Opaque, image.Point{})
	}
	binarize(vis)
	return vis
}

// binarize snaps any partial coverage to fully lit.
func binarize(a *image.Alpha) {
	for i, v := range a.Pix {
		if v > 0 {
			a.Pix[i] = 0xff
		}
	}
}

// FogFrom derives the fog overlay: lit pixels are fully transparent, unlit
// pixels are black at FogAlpha.
func FogFrom(vis *image.Alpha) *image.NRGBA {
	b := vis.Bounds()
	fog := image.NewNRGBA(b)
	for i, v := range vis.Pix {
		if v > 0 {
			continue
		}
		fog.Pix[i*4+3] = FogAlpha
	}
	return fog
}

// fullyLit returns a raster with every pixel lit.
func fullyLit(boardSize int) *image.Alpha {
	vis := image.NewAlpha(image.Rect(0, 0, boardSize, boardSize))
	draw.Draw(vis, vis.Bounds(), &image.Uniform{C: color.Alpha{A: 0xff}}, image.Point{}, draw.Src)
	return vis
}

// litAt reports whether the board pixel under normalized (x, y) is lit.
func litAt(vis *image.Alpha, x, y float64) bool {
	if vis == nil {
		return false
	}
	w, h := vis.Bounds().Dx(), vis.Bounds().Dy()
	px := int(math.Floor(x * float64(w)))
	py := int(math.Floor(y * float64(h)))
	if px < 0 || py < 0 || px >= w || py >= h {
		return false
	}
	return vis.Pix[py*vis.Stride+px] > 0
}
