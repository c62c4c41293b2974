package dataset

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

// AvgSampleBytes estimates one loaded frame: 160 float32 features plus the
// index and file reference kept alongside it.
const AvgSampleBytes = 160*4 + 32

// Reduction describes what a rebalance did to the plan.
type Reduction struct {
	Applied       bool   `json:"applied"`
	Budget        uint64 `json:"budget"`
	Before        uint64 `json:"before"`
	After         uint64 `json:"after"`
	OldTruncation int    `json:"oldTruncation"`
	NewTruncation int    `json:"newTruncation"`
	// Percent is the drop in loaded frames across every record.
	Percent int `json:"percent"`
	// Iterations counts scale steps. One step can leave the plan over budget
	// because undersampled labels shrink with the ceiling while oversampled
	// ones do not, so the ceiling may end below a single budget/used step.
	Iterations int `json:"iterations"`
}

// RebalancerOption configures a Rebalancer.
type RebalancerOption func(*Rebalancer)

// WithAvailableMemory replaces the probe used when no budget is configured.
func WithAvailableMemory(probe func() (uint64, error)) RebalancerOption {
	return func(r *Rebalancer) { r.availableMemory = probe }
}

// Rebalancer lowers the shared ceiling until the planned dataset fits the
// RAM budget.
type Rebalancer struct {
	cfg             config.Config
	availableMemory func() (uint64, error)
	logger          *slog.Logger
}

func NewRebalancer(cfg config.Config, opts ...RebalancerOption) *Rebalancer {
	r := &Rebalancer{
		cfg:             cfg,
		availableMemory: systemAvailableMemory,
		logger:          utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func systemAvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("read virtual memory: %w", err)
	}
	return vm.Available, nil
}

// Budget is the configured RAM budget, or the memory currently available
// when none is set.
func (r *Rebalancer) Budget() (uint64, error) {
	if r.cfg.MaxRAM > 0 {
		return uint64(r.cfg.MaxRAM), nil
	}
	return r.availableMemory()
}

// Rebalance scales the ceiling by budget/used until the estimated RAM fits or
// the ceiling reaches zero, recomputing every record each step. A map that
// already fits is left untouched, so running it twice changes nothing more.
func (r *Rebalancer) Rebalance(m *StrategyMap) (Reduction, error) {
	red := Reduction{OldTruncation: m.Truncation(), NewTruncation: m.Truncation()}
	if !r.cfg.AutomaticBalancing || !r.cfg.FitInsideRAM {
		return red, nil
	}
	if m.Frozen() {
		return red, ErrFrozen
	}

	budget, err := r.Budget()
	if err != nil {
		return red, err
	}
	red.Budget = budget
	loadedBefore := m.TotalLoaded()
	red.Before = estimateRAM(m)
	red.After = red.Before

	for red.After > budget && m.Truncation() > 0 {
		scaled := int(math.Floor(float64(m.Truncation()) * float64(budget) / float64(red.After)))
		if err := m.retarget(scaled); err != nil {
			return red, err
		}
		red.Iterations++
		red.After = estimateRAM(m)
	}

	red.NewTruncation = m.Truncation()
	red.Applied = red.Iterations > 0
	red.Percent = reductionPercent(loadedBefore, m.TotalLoaded())

	if red.Applied {
		r.logger.Info("reduced dataset to fit in memory",
			slog.String("budget", humanize.Bytes(budget)),
			slog.String("before", humanize.Bytes(red.Before)),
			slog.String("after", humanize.Bytes(red.After)),
			slog.Int("oldTruncation", red.OldTruncation),
			slog.Int("newTruncation", red.NewTruncation),
			slog.Int("reductionPercent", red.Percent))
	} else {
		r.logger.Debug("dataset fits in memory",
			slog.String("budget", humanize.Bytes(budget)),
			slog.String("estimate", humanize.Bytes(red.Before)))
	}
	return red, nil
}

func estimateRAM(m *StrategyMap) uint64 {
	return uint64(m.TotalLoaded()) * AvgSampleBytes
}

// reductionPercent is ceil(100 - new/old*100), zero when old is zero.
func reductionPercent(old, updated int) int {
	if old <= 0 {
		return 0
	}
	return int(math.Ceil(100 - float64(updated)/float64(old)*100))
}
