package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

// sizeSentinel seeds the minimum so any real label size is smaller.
const sizeSentinel = math.MaxInt32

// Planner derives a StrategyMap from the frame counts of every label.
type Planner struct {
	cfg     config.Config
	counter FrameCounter
	logger  *slog.Logger
}

func NewPlanner(cfg config.Config, counter FrameCounter) *Planner {
	return &Planner{cfg: cfg, counter: counter, logger: utils.GetLogger()}
}

// Plan counts frames per label, sets the shared ceiling to
// floor(mean + stdev/2) over the non-empty labels and classifies every label
// against it. The background label gets its own record sized by the silence
// found in every other label's directories.
func (p *Planner) Plan(ctx context.Context, group *DirectoryGroup) (*StrategyMap, error) {
	msPerFrame := p.cfg.MsPerFrame()
	background := p.cfg.BackgroundLabel

	counts := make(map[string]int, group.Len())
	var labels []string
	pool := 0
	minSize, maxSize := sizeSentinel, 0

	for _, label := range group.Labels() {
		if label == background {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		count := 0
		for _, dir := range group.Directories(label) {
			frames, err := p.counter.CountFrames(label, dir, msPerFrame)
			if err != nil {
				return nil, fmt.Errorf("count frames of %s in %s: %w", label, dir, err)
			}
			silence, err := p.counter.CountSilenceFrames(dir, msPerFrame)
			if err != nil {
				return nil, fmt.Errorf("count silence in %s: %w", dir, err)
			}
			count += frames
			pool += silence
		}

		counts[label] = count
		labels = append(labels, label)
		maxSize = max(maxSize, count)
		if count > 0 {
			minSize = min(minSize, count)
		}
	}

	truncation := totalTruncation(labels, counts)
	m := newStrategyMap(background, truncation, p.cfg.AutomaticBalancing)
	if minSize == sizeSentinel {
		minSize = 0
	}
	m.minSize, m.maxSize = minSize, maxSize

	for _, label := range labels {
		m.put(classify(label, counts[label], truncation, p.cfg.AutomaticBalancing))
	}
	m.put(backgroundRecord(background, pool, truncation, len(labels)))

	for _, r := range m.Records() {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	p.logger.Info("planned dataset balance",
		slog.Int("labels", len(labels)),
		slog.Int("truncation", truncation),
		slog.Int("minSize", minSize),
		slog.Int("maxSize", maxSize),
		slog.Int("backgroundPool", pool),
		slog.Int("msPerFrame", msPerFrame))
	return m, nil
}

// totalTruncation is floor(mean + stdev/2) of the non-empty label sizes,
// using the population standard deviation. Zero when every label is empty.
func totalTruncation(labels []string, counts map[string]int) int {
	var sizes stats.Float64Data
	for _, label := range labels {
		if counts[label] > 0 {
			sizes = append(sizes, float64(counts[label]))
		}
	}
	if len(sizes) == 0 {
		return 0
	}

	mean, err := stats.Mean(sizes)
	if err != nil {
		return 0
	}
	stdev, err := stats.StandardDeviationPopulation(sizes)
	if err != nil {
		return 0
	}
	return int(math.Floor(mean + stdev/2))
}
