package segmask

import (
	"math"
	"testing"
)

func maskFromValues(w, h int, values ...int32) *Mask {
	m := NewMask(w, h)
	copy(m.Pix, values)
	return m
}

func TestEvalStatsPerfectAgreement(t *testing.T) {
	t.Parallel()

	truth := maskFromValues(2, 2, 0, 1, 1, 2)
	stats := NewEvalStats()
	if err := stats.AddPair(truth.Clone(), truth); err != nil {
		t.Fatalf("AddPair returned error: %v", err)
	}

	if acc := stats.PixelAccuracy(); acc != 1.0 {
		t.Fatalf("pixel accuracy = %f, want 1.0", acc)
	}
	if iou := stats.MeanIoU(); iou != 1.0 {
		t.Fatalf("mean IoU = %f, want 1.0", iou)
	}
}

func TestEvalStatsPartialOverlap(t *testing.T) {
	t.Parallel()

	truth := maskFromValues(4, 1, 1, 1, 0, 0)
	pred := maskFromValues(4, 1, 1, 0, 0, 0)

	stats := NewEvalStats()
	if err := stats.AddPair(pred, truth); err != nil {
		t.Fatalf("AddPair returned error: %v", err)
	}

	if acc := stats.PixelAccuracy(); acc != 0.75 {
		t.Fatalf("pixel accuracy = %f, want 0.75", acc)
	}

	ious := stats.ClassIoU()
	// Class 1: intersection 1, union 2.
	if got := ious[1]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("class 1 IoU = %f, want 0.5", got)
	}
	// Background: intersection 2, union 3.
	if got := ious[0]; math.Abs(got-2.0/3.0) > 1e-9 {
		t.Fatalf("background IoU = %f, want 2/3", got)
	}
}

func TestEvalStatsAccumulatesAcrossPairs(t *testing.T) {
	t.Parallel()

	stats := NewEvalStats()
	a := maskFromValues(2, 1, 1, 1)
	if err := stats.AddPair(a.Clone(), a); err != nil {
		t.Fatalf("AddPair returned error: %v", err)
	}
	b := maskFromValues(2, 1, 0, 0)
	if err := stats.AddPair(maskFromValues(2, 1, 1, 1), b); err != nil {
		t.Fatalf("AddPair returned error: %v", err)
	}

	if stats.Pairs() != 2 {
		t.Fatalf("Pairs() = %d, want 2", stats.Pairs())
	}
	if acc := stats.PixelAccuracy(); acc != 0.5 {
		t.Fatalf("pixel accuracy = %f, want 0.5", acc)
	}
	// Class 1: intersection 2, union 4.
	if got := stats.ClassIoU()[1]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("class 1 IoU = %f, want 0.5", got)
	}
}

func TestEvalStatsRejectsShapeMismatch(t *testing.T) {
	t.Parallel()

	stats := NewEvalStats()
	if err := stats.AddPair(NewMask(2, 2), NewMask(3, 2)); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}
