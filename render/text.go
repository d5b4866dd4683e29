// Package render draws human-readable labels onto composed mask
// visualizations.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextDrawer renders text with an OpenType font.
type TextDrawer struct {
	font     *opentype.Font
	face     font.Face
	fontSize float64
}

// NewTextDrawer loads a font file and prepares a drawer with a 12pt face.
func NewTextDrawer(fontPath string) (*TextDrawer, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open font file: %w", err)
	}

	ttFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font file: %w", err)
	}

	d := &TextDrawer{font: ttFont}
	if err := d.SetSize(12); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSize switches the face to the given font size, releasing the old face.
func (d *TextDrawer) SetSize(fontSize float64) error {
	if d.face != nil && d.fontSize == fontSize {
		return nil
	}

	if d.face != nil {
		d.face.Close()
	}

	nf, err := opentype.NewFace(d.font, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}

	d.face = nf
	d.fontSize = fontSize
	return nil
}

// DrawText draws text onto the image with its baseline starting at (x, y).
func (d *TextDrawer) DrawText(img draw.Image, text string, x, y int, c color.Color) {
	point := fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y),
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: d.face,
		Dot:  point,
	}
	drawer.DrawString(text)
}

// Close releases the font face.
func (d *TextDrawer) Close() {
	if d.face != nil {
		d.face.Close()
	}
}
