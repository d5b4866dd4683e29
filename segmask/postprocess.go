package segmask

import "fmt"

// ProbMap holds per-class confidence scores for one image, shape
// (Classes, Height, Width), stored as contiguous class planes.
type ProbMap struct {
	Classes int
	Height  int
	Width   int
	Data    []float32 // len Classes*Height*Width
}

// NewProbMap allocates a zeroed score map.
func NewProbMap(classes, height, width int) *ProbMap {
	return &ProbMap{
		Classes: classes,
		Height:  height,
		Width:   width,
		Data:    make([]float32, classes*height*width),
	}
}

// At returns the score of class c at (x, y).
func (p *ProbMap) At(c, y, x int) float32 {
	return p.Data[(c*p.Height+y)*p.Width+x]
}

// Set writes the score of class c at (x, y).
func (p *ProbMap) Set(c, y, x int, v float32) {
	p.Data[(c*p.Height+y)*p.Width+x] = v
}

// GateMask reduces a per-class score map to a single categorical mask. Per
// pixel, scores below threshold are zeroed, the arg-max class over the
// remaining scores is taken (ties resolve to the lowest class index) and the
// label is that class index plus one. Pixels where no class reaches the
// threshold are background: a score exactly equal to the threshold counts as
// confident. With threshold 0 every pixel gets its arg-max class plus one;
// with a threshold above every score the whole mask is background.
func GateMask(p *ProbMap, threshold float32) (*Mask, error) {
	if p.Classes < 1 {
		return nil, fmt.Errorf("score map has no class planes")
	}
	plane := p.Height * p.Width
	if len(p.Data) != p.Classes*plane {
		return nil, fmt.Errorf("score map data length %d does not match shape (%d, %d, %d)",
			len(p.Data), p.Classes, p.Height, p.Width)
	}

	out := NewMask(p.Width, p.Height)
	for i := 0; i < plane; i++ {
		rawMax := p.Data[i]
		best := 0
		bestScore := gate(p.Data[i], threshold)
		for c := 1; c < p.Classes; c++ {
			v := p.Data[c*plane+i]
			if v > rawMax {
				rawMax = v
			}
			if g := gate(v, threshold); g > bestScore {
				best, bestScore = c, g
			}
		}
		if rawMax < threshold {
			continue // background
		}
		out.Pix[i] = int32(best) + 1
	}
	return out, nil
}

func gate(v, threshold float32) float32 {
	if v < threshold {
		return 0
	}
	return v
}
