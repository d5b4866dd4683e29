package segmask

import (
	"fmt"

	"defect-segmentation/coco"
)

// BackgroundID is the reserved category ID for unlabelled pixels.
const BackgroundID int32 = 0

// BackgroundName is the class name mapped to BackgroundID.
const BackgroundName = "background"

// Dataset is an eagerly built, in-memory collection of (image, mask) samples
// plus the class lookup tables derived from the annotation categories.
type Dataset struct {
	samples  []Sample
	nameByID map[int32]string
	idByName map[string]int32
}

// BuildDataset compiles every sample once and keeps them for the lifetime of
// the dataset. transform may be nil.
func BuildDataset(doc *coco.Document, dataDir string, transform Transform) (*Dataset, error) {
	nameByID := map[int32]string{BackgroundID: BackgroundName}
	idByName := map[string]int32{BackgroundName: BackgroundID}
	for _, cat := range doc.Categories {
		if cat.Supercategory == "" {
			continue
		}
		id := int32(cat.ID)
		if id == BackgroundID {
			return nil, fmt.Errorf("category %q uses reserved background ID %d", cat.Name, BackgroundID)
		}
		if existing, ok := nameByID[id]; ok {
			return nil, fmt.Errorf("duplicate category ID %d (%q and %q)", id, existing, cat.Name)
		}
		nameByID[id] = cat.Name
		idByName[cat.Name] = id
	}

	compiler := &Compiler{Images: doc.Images, DataDir: dataDir, Transform: transform}
	samples, err := compiler.Compile(doc.Annotations)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dataset: %w", err)
	}

	return &Dataset{
		samples:  samples,
		nameByID: nameByID,
		idByName: idByName,
	}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// Get returns the sample at index i.
func (d *Dataset) Get(i int) (Sample, error) {
	if i < 0 || i >= len(d.samples) {
		return Sample{}, fmt.Errorf("sample index %d out of range [0, %d)", i, len(d.samples))
	}
	return d.samples[i], nil
}

// ClassName resolves a category ID to its name.
func (d *Dataset) ClassName(id int32) (string, bool) {
	name, ok := d.nameByID[id]
	return name, ok
}

// ClassID resolves a class name to its category ID.
func (d *Dataset) ClassID(name string) (int32, bool) {
	id, ok := d.idByName[name]
	return id, ok
}

// ClassCount returns the number of classes including background.
func (d *Dataset) ClassCount() int {
	return len(d.nameByID)
}

// ClassIDs returns every known category ID including background.
func (d *Dataset) ClassIDs() []int32 {
	ids := make([]int32, 0, len(d.nameByID))
	for id := range d.nameByID {
		ids = append(ids, id)
	}
	return ids
}
