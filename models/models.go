package models

import "time"

// Run groups the mask records produced by one pipeline invocation.
type Run struct {
	ID        uint32    `json:"id"`
	Kind      string    `json:"kind"` // "segment" or "annotate"
	ModelRef  string    `json:"modelRef"`
	Threshold float64   `json:"threshold"`
	Started   time.Time `json:"started"`
}

// MaskRecord represents one exported segmentation result.
type MaskRecord struct {
	ID          int64            `json:"id"`
	RunID       uint32           `json:"runId"`
	Image       string           `json:"image"`
	MaskPath    string           `json:"maskPath"`
	BlendPath   string           `json:"blendPath,omitempty"`
	Threshold   float64          `json:"threshold"`
	LatencyMs   float64          `json:"latencyMs"`
	ClassPixels map[string]int64 `json:"classPixels"` // class name -> labelled pixel count
	Timestamp   time.Time        `json:"timestamp"`
}
