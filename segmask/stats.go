package segmask

import (
	"fmt"
	"sort"
)

// EvalStats accumulates per-class agreement between predicted and reference
// masks over a sequence of AddPair calls.
type EvalStats struct {
	intersection map[int32]int64
	union        map[int32]int64
	correct      int64
	total        int64
	pairs        int
}

// NewEvalStats returns an empty accumulator.
func NewEvalStats() *EvalStats {
	return &EvalStats{
		intersection: make(map[int32]int64),
		union:        make(map[int32]int64),
	}
}

// AddPair folds one (predicted, reference) mask pair into the tallies. The
// masks must have matching dimensions.
func (s *EvalStats) AddPair(pred, truth *Mask) error {
	if !pred.SameShape(truth) {
		return fmt.Errorf("predicted mask %dx%d does not match reference mask %dx%d",
			pred.Width, pred.Height, truth.Width, truth.Height)
	}

	for i := range truth.Pix {
		p, t := pred.Pix[i], truth.Pix[i]
		if p == t {
			s.correct++
			s.intersection[t]++
			s.union[t]++
		} else {
			s.union[p]++
			s.union[t]++
		}
		s.total++
	}
	s.pairs++
	return nil
}

// Pairs returns the number of accumulated mask pairs.
func (s *EvalStats) Pairs() int {
	return s.pairs
}

// PixelAccuracy returns the fraction of pixels whose predicted label matches
// the reference, over all accumulated pairs.
func (s *EvalStats) PixelAccuracy() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.correct) / float64(s.total)
}

// ClassIoU returns intersection-over-union per class ID, for every class seen
// in either prediction or reference.
func (s *EvalStats) ClassIoU() map[int32]float64 {
	out := make(map[int32]float64, len(s.union))
	for id, u := range s.union {
		if u == 0 {
			continue
		}
		out[id] = float64(s.intersection[id]) / float64(u)
	}
	return out
}

// MeanIoU returns the unweighted mean of the per-class IoU values.
func (s *EvalStats) MeanIoU() float64 {
	ious := s.ClassIoU()
	if len(ious) == 0 {
		return 0
	}
	var sum float64
	for _, v := range ious {
		sum += v
	}
	return sum / float64(len(ious))
}

// ClassIDs returns the observed class IDs in ascending order.
func (s *EvalStats) ClassIDs() []int32 {
	ids := make([]int32, 0, len(s.union))
	for id := range s.union {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
