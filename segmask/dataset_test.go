package segmask

import (
	"testing"

	"defect-segmentation/coco"
)

func testDocument(t *testing.T, dir string) *coco.Document {
	t.Helper()
	return &coco.Document{
		Categories: []coco.Category{
			{ID: 0, Name: "defects"}, // exporter umbrella entry, no supercategory
			{ID: 1, Name: "scratch", Supercategory: "defects"},
			{ID: 2, Name: "dent", Supercategory: "defects"},
		},
		Images: []coco.ImageRecord{
			{ID: 0, FileName: writeTestImage(t, dir, "a.png", 16, 16), Height: 16, Width: 16},
			{ID: 1, FileName: writeTestImage(t, dir, "b.png", 16, 16), Height: 16, Width: 16},
		},
		Annotations: []coco.Annotation{
			{ID: 1, ImageID: 0, CategoryID: 1, Segmentation: squareSegmentation(2, 2, 10, 10)},
			{ID: 2, ImageID: 1, CategoryID: 2, Segmentation: squareSegmentation(4, 4, 12, 12)},
		},
	}
}

func TestBuildDatasetEagerSamplesAndLookups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dataset, err := BuildDataset(testDocument(t, dir), dir, nil)
	if err != nil {
		t.Fatalf("BuildDataset returned error: %v", err)
	}

	if dataset.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", dataset.Len())
	}

	sample, err := dataset.Get(0)
	if err != nil {
		t.Fatalf("Get(0) returned error: %v", err)
	}
	if got := sample.Mask.At(5, 5); got != 1 {
		t.Fatalf("first sample interior = %d, want 1", got)
	}

	if name, ok := dataset.ClassName(0); !ok || name != BackgroundName {
		t.Fatalf("ClassName(0) = %q/%v, want background entry", name, ok)
	}
	if name, ok := dataset.ClassName(2); !ok || name != "dent" {
		t.Fatalf("ClassName(2) = %q/%v, want dent", name, ok)
	}
	if id, ok := dataset.ClassID("scratch"); !ok || id != 1 {
		t.Fatalf("ClassID(scratch) = %d/%v, want 1", id, ok)
	}

	// The umbrella category has no supercategory and must not be a label.
	if _, ok := dataset.ClassID("defects"); ok {
		t.Fatal("category without supercategory leaked into the label set")
	}
	if dataset.ClassCount() != 3 {
		t.Fatalf("ClassCount() = %d, want 3 (background + 2)", dataset.ClassCount())
	}
}

func TestDatasetGetOutOfRange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dataset, err := BuildDataset(testDocument(t, dir), dir, nil)
	if err != nil {
		t.Fatalf("BuildDataset returned error: %v", err)
	}

	if _, err := dataset.Get(-1); err == nil {
		t.Fatal("expected error for negative index")
	}
	if _, err := dataset.Get(dataset.Len()); err == nil {
		t.Fatal("expected error for index past the end")
	}
}

func TestBuildDatasetRejectsBackgroundCollision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := testDocument(t, dir)
	doc.Categories = append(doc.Categories, coco.Category{ID: 0, Name: "pit", Supercategory: "defects"})

	if _, err := BuildDataset(doc, dir, nil); err == nil {
		t.Fatal("expected error for category colliding with the background ID")
	}
}

func TestBuildDatasetRejectsDuplicateCategoryIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := testDocument(t, dir)
	doc.Categories = append(doc.Categories, coco.Category{ID: 1, Name: "pit", Supercategory: "defects"})

	if _, err := BuildDataset(doc, dir, nil); err == nil {
		t.Fatal("expected error for duplicate category ID")
	}
}
