package segmask

import (
	"image"
	"image/color"

	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
)

// Point is one polygon vertex in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// PointsFromFlat converts a flat alternating x,y sequence into vertices. A
// trailing unpaired value is dropped.
func PointsFromFlat(flat []float64) []Point {
	pts := make([]Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, Point{X: flat[i], Y: flat[i+1]})
	}
	return pts
}

// FillPolygon returns a copy of canvas with the polygon interior painted with
// value. The input canvas is never modified. The polygon is implicitly closed;
// coordinates outside the canvas are clipped by the fill primitive. Polygons
// with fewer than three vertices or zero area paint nothing. Malformed input
// never produces an error: annotation data is best effort.
func FillPolygon(canvas *Mask, points []Point, value int32) *Mask {
	out := canvas.Clone()
	if len(points) < 3 {
		return out
	}

	// Paint on an offscreen coverage layer and threshold it into the canvas,
	// so fill-rule and clipping semantics come from the 2-D primitive.
	layer := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	gc := draw2dimg.NewGraphicContext(layer)
	gc.SetFillRule(draw2d.FillRuleWinding)
	gc.SetFillColor(color.RGBA{R: 255, G: 255, B: 255, A: 255})

	gc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		gc.LineTo(p.X, p.Y)
	}
	gc.Close()
	gc.Fill()

	for i := 0; i < canvas.Width*canvas.Height; i++ {
		// Alpha >= 128 keeps pixels whose center lies inside the polygon.
		if layer.Pix[i*4+3] >= 128 {
			out.Pix[i] = value
		}
	}
	return out
}
