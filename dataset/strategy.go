package dataset

import (
	"errors"
	"fmt"
	"math"
)

// Strategy is how a label's samples are brought to their target count.
type Strategy string

const (
	Oversample  Strategy = "oversample"
	Undersample Strategy = "undersample"
	Passthrough Strategy = "passthrough"
	Background  Strategy = "background"
)

const (
	// MaxOversampleRatio caps oversampling at twice the observed size.
	MaxOversampleRatio = 2
	// balanceMargin is how far below or above the ceiling a label may sit
	// before it is over- or undersampled.
	balanceMargin = 1.25
	// noQuota marks SampleFromEach on records other than the background.
	noQuota = -1
)

var (
	ErrInvalidRecord = errors.New("invalid strategy record")
	ErrFrozen        = errors.New("strategy map is frozen")
)

// StrategyRecord is the sampling plan of one label.
type StrategyRecord struct {
	Label    string   `json:"label"`
	Strategy Strategy `json:"strategy"`
	// TotalSize is the observed frame count (the silence pool for background).
	TotalSize int `json:"totalSize"`
	// TotalLoaded is the target count after balancing.
	TotalLoaded int `json:"totalLoaded"`
	// TruncateAfter is the shared ceiling.
	TruncateAfter int `json:"truncateAfter"`
	// SampleFromEach is the background quota drawn from every other label;
	// -1 on other records.
	SampleFromEach int `json:"sampleFromEach"`
}

// NewStrategyRecord validates the fields against the rules of kind.
func NewStrategyRecord(label string, kind Strategy, totalSize, totalLoaded, truncateAfter, sampleFromEach int) (StrategyRecord, error) {
	r := StrategyRecord{
		Label:          label,
		Strategy:       kind,
		TotalSize:      totalSize,
		TotalLoaded:    totalLoaded,
		TruncateAfter:  truncateAfter,
		SampleFromEach: sampleFromEach,
	}
	if err := r.Validate(); err != nil {
		return StrategyRecord{}, err
	}
	return r, nil
}

// Validate checks the invariants of the record's kind.
func (r StrategyRecord) Validate() error {
	if r.TotalSize < 0 || r.TotalLoaded < 0 || r.TruncateAfter < 0 {
		return fmt.Errorf("%w: %s has negative counts", ErrInvalidRecord, r.Label)
	}
	switch r.Strategy {
	case Oversample:
		if r.TotalLoaded > r.TotalSize*MaxOversampleRatio || r.TotalLoaded > r.TruncateAfter {
			return fmt.Errorf("%w: %s oversampled to %d (size %d, ceiling %d)",
				ErrInvalidRecord, r.Label, r.TotalLoaded, r.TotalSize, r.TruncateAfter)
		}
	case Undersample:
		if r.TotalLoaded != r.TruncateAfter {
			return fmt.Errorf("%w: %s undersampled to %d, ceiling is %d",
				ErrInvalidRecord, r.Label, r.TotalLoaded, r.TruncateAfter)
		}
	case Passthrough:
		if r.TotalLoaded != r.TotalSize {
			return fmt.Errorf("%w: %s passes %d of %d", ErrInvalidRecord, r.Label, r.TotalLoaded, r.TotalSize)
		}
	case Background:
		if r.SampleFromEach < 0 {
			return fmt.Errorf("%w: background %s has a negative quota", ErrInvalidRecord, r.Label)
		}
	default:
		return fmt.Errorf("%w: %s has unknown strategy %q", ErrInvalidRecord, r.Label, r.Strategy)
	}
	if r.Strategy != Background && r.SampleFromEach != noQuota {
		return fmt.Errorf("%w: %s carries a background quota", ErrInvalidRecord, r.Label)
	}
	return nil
}

// ChangePercent is how far TotalLoaded moves from TotalSize, in whole
// percent. Zero when the label has no data.
func (r StrategyRecord) ChangePercent() int {
	if r.TotalSize == 0 {
		return 0
	}
	ratio := float64(r.TotalLoaded) / float64(r.TotalSize) * 100
	return int(math.Abs(math.Round(ratio) - 100))
}

// classify picks the strategy of a regular label against the ceiling.
func classify(label string, size, truncation int, balancing bool) StrategyRecord {
	kind, loaded := Passthrough, size
	if balancing {
		switch {
		case float64(size) < float64(truncation)/balanceMargin:
			kind, loaded = Oversample, min(size*MaxOversampleRatio, truncation)
		case float64(size) > float64(truncation)*balanceMargin:
			kind, loaded = Undersample, truncation
		}
	}
	return StrategyRecord{
		Label:          label,
		Strategy:       kind,
		TotalSize:      size,
		TotalLoaded:    loaded,
		TruncateAfter:  truncation,
		SampleFromEach: noQuota,
	}
}

// backgroundRecord builds the background plan. contributing is the number of
// labels the quota is drawn from.
func backgroundRecord(label string, pool, truncation, contributing int) StrategyRecord {
	return StrategyRecord{
		Label:          label,
		Strategy:       Background,
		TotalSize:      pool,
		TotalLoaded:    truncation,
		TruncateAfter:  truncation,
		SampleFromEach: backgroundQuota(pool, truncation, contributing),
	}
}

// backgroundQuota is round(min(truncation, pool) / contributing), lowered
// when rounding up would push the summed quotas past truncation.
func backgroundQuota(pool, truncation, contributing int) int {
	if contributing <= 0 {
		return 0
	}
	quota := int(math.Round(float64(min(truncation, pool)) / float64(contributing)))
	if quota*contributing > truncation {
		quota = truncation / contributing
	}
	return max(quota, 0)
}
