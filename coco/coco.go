// Package coco reads polygon-annotated datasets in the COCO segmentation
// layout: three ordered lists of categories, image records and annotations.
package coco

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Category is one entry of the label set. Categories without a supercategory
// (the dataset umbrella entry exporters prepend) are not usable labels.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// ImageRecord declares one image file and its dimensions.
type ImageRecord struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
}

// Annotation is one polygon on one image. ImageID is the index of the image
// record in the document's image list; Segmentation holds flat alternating
// x,y coordinate sequences.
type Annotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area,omitempty"`
	BBox         []float64   `json:"bbox,omitempty"`
	IsCrowd      int         `json:"iscrowd,omitempty"`
}

// Document is a parsed annotation file.
type Document struct {
	Categories  []Category    `json:"categories"`
	Images      []ImageRecord `json:"images"`
	Annotations []Annotation  `json:"annotations"`
}

// Load reads and parses an annotation file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to parse annotation file %s: %w", path, err)
	}

	if len(doc.Images) == 0 {
		return nil, fmt.Errorf("annotation file %s declares no images", path)
	}

	return &doc, nil
}

// Labels returns the usable label set: every category that carries a
// supercategory, keyed by ID. The background entry is not included here; the
// dataset adds it.
func (d *Document) Labels() map[int]string {
	labels := make(map[int]string)
	for _, cat := range d.Categories {
		if cat.Supercategory == "" {
			continue
		}
		labels[cat.ID] = cat.Name
	}
	return labels
}
