// Package segmask compiles polygon annotations into dense label masks and
// turns per-class score maps into confidence-gated categorical masks.
package segmask

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/up-zero/gotool/imageutil"
)

// Mask is a dense per-pixel grid of category IDs. 0 is the background class.
type Mask struct {
	Width  int
	Height int
	Pix    []int32 // row-major, len Width*Height
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]int32, width*height),
	}
}

// At returns the category ID at (x, y). Callers must stay in bounds.
func (m *Mask) At(x, y int) int32 {
	return m.Pix[y*m.Width+x]
}

// Set writes the category ID at (x, y).
func (m *Mask) Set(x, y int, v int32) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

// SameShape reports whether both masks have equal dimensions.
func (m *Mask) SameShape(o *Mask) bool {
	return m.Width == o.Width && m.Height == o.Height
}

// GrayImage renders the mask as an 8-bit grayscale image, one gray level per
// category ID. IDs above 255 are truncated by the bit depth.
func (m *Mask) GrayImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		img.Pix[i] = uint8(v)
	}
	return img
}

// LoadMask reads a previously saved grayscale mask image back into a Mask.
func LoadMask(path string) (*Mask, error) {
	img, err := imageutil.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask file %s: %w", path, err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	m := NewMask(bounds.Dx(), bounds.Dy())
	for i, v := range gray.Pix {
		m.Pix[i] = int32(v)
	}
	return m, nil
}
