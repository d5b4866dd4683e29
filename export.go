package main

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/up-zero/gotool/imageutil"

	"defect-segmentation/render"
	"defect-segmentation/segmask"
	"defect-segmentation/utils"
)

// exporter writes the categorical mask, the colored mask and the blended
// visualization for one image, all named after the source file. Existing
// files are overwritten.
type exporter struct {
	outDir    string
	table     segmask.ColorTable
	alpha     float64
	drawer    *render.TextDrawer
	className func(int32) (string, bool)
}

func newExporter(outDir string, table segmask.ColorTable, alpha float64, className func(int32) (string, bool)) (*exporter, error) {
	for _, sub := range []string{"masks", "colored", "blends"} {
		if err := utils.CreateFolder(filepath.Join(outDir, sub)); err != nil {
			return nil, err
		}
	}

	e := &exporter{outDir: outDir, table: table, alpha: alpha, className: className}

	// Class-name labels on the blends are optional; without a font the
	// visualization is exported unlabelled.
	if fontPath := utils.GetEnv("SEG_FONT_PATH", ""); fontPath != "" {
		drawer, err := render.NewTextDrawer(fontPath)
		if err != nil {
			return nil, err
		}
		e.drawer = drawer
	}
	return e, nil
}

func (e *exporter) close() {
	if e.drawer != nil {
		e.drawer.Close()
	}
}

func (e *exporter) export(name string, img image.Image, mask *segmask.Mask) (string, string, error) {
	// The categorical mask is kept lossless as grayscale PNG so it can be
	// reloaded for composition later.
	maskPath := filepath.Join(e.outDir, "masks", pngName(name))
	if err := imageutil.Save(maskPath, mask.GrayImage(), 100); err != nil {
		return "", "", fmt.Errorf("failed to save mask %s: %w", maskPath, err)
	}

	blend, colored, err := segmask.Compose(img, mask, e.table, e.alpha)
	if err != nil {
		return "", "", err
	}
	if e.drawer != nil && e.className != nil {
		render.LabelClasses(blend, mask, e.className, e.drawer, color.White)
	}

	coloredPath := filepath.Join(e.outDir, "colored", pngName(name))
	if err := imageutil.Save(coloredPath, colored, 100); err != nil {
		return "", "", fmt.Errorf("failed to save colored mask %s: %w", coloredPath, err)
	}

	blendPath := filepath.Join(e.outDir, "blends", name)
	if err := imageutil.Save(blendPath, blend, 100); err != nil {
		return "", "", fmt.Errorf("failed to save blend %s: %w", blendPath, err)
	}

	return maskPath, blendPath, nil
}

func pngName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
}

// classPixelCounts tallies labelled pixels per class name. Unresolvable IDs
// are keyed by their raw value.
func classPixelCounts(mask *segmask.Mask, className func(int32) (string, bool)) map[string]int64 {
	counts := make(map[string]int64)
	for _, id := range mask.Pix {
		if id == segmask.BackgroundID {
			continue
		}
		name, ok := className(id)
		if !ok {
			name = fmt.Sprintf("class_%d", id)
		}
		counts[name]++
	}
	return counts
}
