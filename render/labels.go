package render

import (
	"image/color"
	"image/draw"
	"sort"

	"defect-segmentation/segmask"
)

// LabelClasses writes each labelled class's name at the centroid of its
// pixels. IDs the resolver cannot name are skipped; unnamable regions in the
// mask stay unlabelled rather than failing the visualization.
func LabelClasses(img draw.Image, mask *segmask.Mask, name func(int32) (string, bool), d *TextDrawer, c color.Color) {
	type tally struct {
		sumX, sumY int64
		count      int64
	}
	tallies := make(map[int32]*tally)

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			id := mask.At(x, y)
			if id == segmask.BackgroundID {
				continue
			}
			t, ok := tallies[id]
			if !ok {
				t = &tally{}
				tallies[id] = t
			}
			t.sumX += int64(x)
			t.sumY += int64(y)
			t.count++
		}
	}

	ids := make([]int32, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		label, ok := name(id)
		if !ok {
			continue
		}
		t := tallies[id]
		cx := int(t.sumX / t.count)
		cy := int(t.sumY / t.count)
		d.DrawText(img, label, cx, cy, c)
	}
}
