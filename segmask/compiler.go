package segmask

import (
	"fmt"
	"image"
	"image/draw"
	"path/filepath"

	"github.com/up-zero/gotool/imageutil"

	"defect-segmentation/coco"
)

// Sample is one finished (image, mask) pair. Immutable after compilation.
type Sample struct {
	Name  string // source image file name
	Image *image.Gray
	Mask  *Mask
}

// Transform is an optional paired augmentation applied to image and mask
// together at flush time, so both stay spatially consistent.
type Transform func(img *image.Gray, mask *Mask) (*image.Gray, *Mask)

// Compiler folds an ordered annotation stream into one label canvas per image
// record. Annotations for one image are expected to be contiguous; the canvas
// is flushed when the image reference changes or the stream ends. Within one
// image, polygons are painted in stream order and later polygons overwrite
// earlier ones where they overlap (last write wins).
type Compiler struct {
	Images    []coco.ImageRecord
	DataDir   string
	Transform Transform
}

// compiler accumulation state: the cursor image index, its partially painted
// canvas and the number of canvases flushed so far.
type compileState struct {
	cursor  int
	canvas  *Mask
	flushed int
}

// Compile scans the annotation stream and returns one sample per image
// record, in the order images are visited. The cursor advances with
// wraparound over the image-record count, so a stream that is not a clean
// one-to-one cover of the image list can revisit records; contiguous streams
// always produce exactly one sample per image. A missing image file at flush
// time fails the whole build. Category IDs are painted as-is, without range
// checks against the label set.
func (c *Compiler) Compile(annotations []coco.Annotation) ([]Sample, error) {
	if len(c.Images) == 0 {
		return nil, fmt.Errorf("no image records to compile")
	}

	st := &compileState{canvas: c.newCanvas(0)}
	samples := make([]Sample, 0, len(c.Images))

	for _, ann := range annotations {
		if ann.ImageID < 0 || ann.ImageID >= len(c.Images) {
			return nil, fmt.Errorf("annotation %d references image %d, have %d images",
				ann.ID, ann.ImageID, len(c.Images))
		}

		// Flush intermediate images (including ones with no annotations at
		// all) until the canvas belongs to the image this annotation paints.
		for st.cursor != ann.ImageID {
			if err := c.flush(st, &samples); err != nil {
				return nil, err
			}
		}

		for _, ring := range ann.Segmentation {
			st.canvas = FillPolygon(st.canvas, PointsFromFlat(ring), int32(ann.CategoryID))
		}
	}

	// End of stream: commit the pending canvas, then drain the remaining
	// unvisited image records so every record yields a sample.
	if len(annotations) > 0 {
		if err := c.flush(st, &samples); err != nil {
			return nil, err
		}
	}
	for st.flushed < len(c.Images) {
		if err := c.flush(st, &samples); err != nil {
			return nil, err
		}
	}

	return samples, nil
}

// flush commits the current canvas as a sample and resets the state for the
// next image record, wrapping around modulo the image count.
func (c *Compiler) flush(st *compileState, samples *[]Sample) error {
	rec := c.Images[st.cursor]

	img, err := c.loadGray(rec)
	if err != nil {
		return err
	}

	mask := st.canvas
	if c.Transform != nil {
		img, mask = c.Transform(img, mask)
	}

	*samples = append(*samples, Sample{Name: rec.FileName, Image: img, Mask: mask})
	st.flushed++

	st.cursor = (st.cursor + 1) % len(c.Images)
	st.canvas = c.newCanvas(st.cursor)
	return nil
}

func (c *Compiler) newCanvas(imageIndex int) *Mask {
	rec := c.Images[imageIndex]
	return NewMask(rec.Width, rec.Height)
}

// loadGray reads the record's image file and converts it to single-channel
// intensity.
func (c *Compiler) loadGray(rec coco.ImageRecord) (*image.Gray, error) {
	path := filepath.Join(c.DataDir, rec.FileName)
	img, err := imageutil.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray, nil
}
