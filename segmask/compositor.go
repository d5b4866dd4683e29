package segmask

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ColorTable maps category IDs to display colors. IDs absent from the table
// are rendered as their raw gray level, not substituted; annotation label
// sets are allowed to outgrow the palette.
type ColorTable map[int32]color.RGBA

// defaultPalette cycles through distinguishable colors for class IDs 1..n.
var defaultPalette = []color.RGBA{
	{R: 230, G: 25, B: 75, A: 255},
	{R: 60, G: 180, B: 75, A: 255},
	{R: 255, G: 225, B: 25, A: 255},
	{R: 0, G: 130, B: 200, A: 255},
	{R: 245, G: 130, B: 48, A: 255},
	{R: 145, G: 30, B: 180, A: 255},
	{R: 70, G: 240, B: 240, A: 255},
	{R: 240, G: 50, B: 230, A: 255},
}

// DefaultColorTable assigns a palette color to each non-background ID.
func DefaultColorTable(ids []int32) ColorTable {
	table := make(ColorTable, len(ids))
	i := 0
	for _, id := range ids {
		if id == BackgroundID {
			continue
		}
		table[id] = defaultPalette[i%len(defaultPalette)]
		i++
	}
	return table
}

// Recolor maps a categorical mask to an RGB color mask through the table.
// Background stays black; IDs without a table entry keep their raw scalar
// value as a gray level.
func Recolor(mask *Mask, table ColorTable) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	for i, id := range mask.Pix {
		c, ok := table[id]
		if !ok {
			v := uint8(id)
			c = color.RGBA{R: v, G: v, B: v, A: 255}
		}
		out.Pix[i*4] = c.R
		out.Pix[i*4+1] = c.G
		out.Pix[i*4+2] = c.B
		out.Pix[i*4+3] = 255
	}
	return out
}

// Compose recolors the categorical mask and blends it onto the base image:
// out = image + colored*alpha, saturating at the 8-bit ceiling. It returns
// the blended visualization and the standalone colored mask. The image and
// mask must have matching dimensions.
func Compose(img image.Image, mask *Mask, table ColorTable, alpha float64) (*image.RGBA, *image.RGBA, error) {
	bounds := img.Bounds()
	if bounds.Dx() != mask.Width || bounds.Dy() != mask.Height {
		return nil, nil, fmt.Errorf("image size %dx%d does not match mask size %dx%d",
			bounds.Dx(), bounds.Dy(), mask.Width, mask.Height)
	}

	colored := Recolor(mask, table)

	base := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	draw.Draw(base, base.Bounds(), img, bounds.Min, draw.Src)

	blend := image.NewRGBA(base.Bounds())
	for i := 0; i < len(base.Pix); i += 4 {
		blend.Pix[i] = addClamp(base.Pix[i], colored.Pix[i], alpha)
		blend.Pix[i+1] = addClamp(base.Pix[i+1], colored.Pix[i+1], alpha)
		blend.Pix[i+2] = addClamp(base.Pix[i+2], colored.Pix[i+2], alpha)
		blend.Pix[i+3] = 255
	}
	return blend, colored, nil
}

// ComposeFile is Compose with the categorical mask loaded from a previously
// saved mask image instead of computed in-process.
func ComposeFile(img image.Image, maskPath string, table ColorTable, alpha float64) (*image.RGBA, *image.RGBA, error) {
	mask, err := LoadMask(maskPath)
	if err != nil {
		return nil, nil, err
	}
	return Compose(img, mask, table, alpha)
}

func addClamp(base, overlay uint8, alpha float64) uint8 {
	v := float64(base) + float64(overlay)*alpha
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
