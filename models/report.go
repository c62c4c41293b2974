package models

import "time"

// Variant selects which frames the feature extractor returns for a recording.
type Variant struct {
	// Oversample emits extra, overlapping frames (roughly twice as many).
	Oversample bool `json:"oversample"`
	// Augment perturbs every frame; frame count and order are unchanged.
	Augment bool `json:"augment"`
	// Background returns frames from the silence between segments.
	Background bool `json:"background"`
}

// RunReport summarises one dataset build.
type RunReport struct {
	ID               int64         `json:"id"`
	StartedAt        time.Time     `json:"startedAt"`
	DatasetFolder    string        `json:"datasetFolder"`
	BackgroundLabel  string        `json:"backgroundLabel"`
	TotalTruncation  int           `json:"totalTruncation"`
	RAMBudget        int64         `json:"ramBudget"`
	EstimatedRAM     int64         `json:"estimatedRam"`
	ReductionPercent int           `json:"reductionPercent"`
	BalanceEntropy   float64       `json:"balanceEntropy"`
	Labels           []LabelReport `json:"labels"`
}

// LabelReport is the finalised strategy and sampled counts of one label.
type LabelReport struct {
	Label          string `json:"label"`
	Strategy       string `json:"strategy"`
	TotalSize      int    `json:"totalSize"`
	TotalLoaded    int    `json:"totalLoaded"`
	TruncateAfter  int    `json:"truncateAfter"`
	SampleFromEach int    `json:"sampleFromEach"`
	Sampled        int    `json:"sampled"`
	Background     int    `json:"background"`
}
