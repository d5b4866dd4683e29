// Package inference defines the model boundary of the segmentation pipeline
// and ships an ONNX-backed implementation.
package inference

import (
	"image"

	"defect-segmentation/segmask"
)

// Model produces a per-class score map for one image. Any architecture can sit
// behind this boundary; the pipeline only consumes the score map.
type Model interface {
	Infer(img image.Image) (*segmask.ProbMap, error)
}
