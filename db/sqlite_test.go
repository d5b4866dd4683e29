package db

import (
	"path/filepath"
	"testing"

	"defect-segmentation/models"
)

func newTestClient(t *testing.T) *SQLiteClient {
	t.Helper()
	client, err := NewSQLiteClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCreateAndGetRun(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	runID, err := client.CreateRun("segment", "models/segnet.onnx", 0.8)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run, err := client.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.ID != runID {
		t.Errorf("run ID = %d, want %d", run.ID, runID)
	}
	if run.Kind != "segment" {
		t.Errorf("run kind = %q, want %q", run.Kind, "segment")
	}
	if run.ModelRef != "models/segnet.onnx" {
		t.Errorf("run model ref = %q, want %q", run.ModelRef, "models/segnet.onnx")
	}
	if run.Threshold != 0.8 {
		t.Errorf("run threshold = %v, want 0.8", run.Threshold)
	}
}

func TestGetRunUnknownID(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	if _, err := client.GetRun(12345); err == nil {
		t.Fatal("expected error for unknown run ID")
	}
}

func TestStoreAndGetMaskRecords(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	runID, err := client.CreateRun("annotate", "http://localhost:9001", 0.5)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	records := []models.MaskRecord{
		{
			RunID:       runID,
			Image:       "img_001.jpg",
			MaskPath:    "output/masks/img_001.png",
			BlendPath:   "output/blends/img_001.jpg",
			Threshold:   0.5,
			LatencyMs:   42,
			ClassPixels: map[string]int64{"crack": 120, "patch": 30},
		},
		{
			RunID:       runID,
			Image:       "img_002.jpg",
			MaskPath:    "output/masks/img_002.png",
			Threshold:   0.5,
			LatencyMs:   37,
			ClassPixels: map[string]int64{},
		},
	}
	for i := range records {
		if err := client.StoreMaskRecord(&records[i]); err != nil {
			t.Fatalf("StoreMaskRecord %d: %v", i, err)
		}
		if records[i].ID == 0 {
			t.Errorf("record %d: ID not assigned on store", i)
		}
	}

	got, err := client.GetRunRecords(runID)
	if err != nil {
		t.Fatalf("GetRunRecords: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Image != "img_001.jpg" || got[1].Image != "img_002.jpg" {
		t.Errorf("records out of order: %q, %q", got[0].Image, got[1].Image)
	}
	if got[0].ClassPixels["crack"] != 120 {
		t.Errorf("crack pixels = %d, want 120", got[0].ClassPixels["crack"])
	}
	if got[1].BlendPath != "" {
		t.Errorf("blend path = %q, want empty", got[1].BlendPath)
	}
}

func TestGetRunRecordsScopedToRun(t *testing.T) {
	t.Parallel()
	client := newTestClient(t)

	first, err := client.CreateRun("segment", "m.onnx", 0.8)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	second, err := client.CreateRun("segment", "m.onnx", 0.8)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	record := models.MaskRecord{
		RunID:       first,
		Image:       "img.jpg",
		MaskPath:    "output/masks/img.png",
		ClassPixels: map[string]int64{},
	}
	if err := client.StoreMaskRecord(&record); err != nil {
		t.Fatalf("StoreMaskRecord: %v", err)
	}

	got, err := client.GetRunRecords(second)
	if err != nil {
		t.Fatalf("GetRunRecords: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records for empty run, want 0", len(got))
	}

	total, err := client.TotalMaskRecords()
	if err != nil {
		t.Fatalf("TotalMaskRecords: %v", err)
	}
	if total != 1 {
		t.Errorf("total mask records = %d, want 1", total)
	}
}
