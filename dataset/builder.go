package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/features"
	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
	"github.com/coding-garden-1/parrot-sans-pyaudio/srt"
	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

func WithFrameCounter(counter FrameCounter) BuilderOption {
	return func(b *Builder) { b.counter = counter }
}

func WithExtractor(extractor FeatureExtractor) BuilderOption {
	return func(b *Builder) { b.extractor = extractor }
}

func WithSamplerOptions(opts ...SamplerOption) BuilderOption {
	return func(b *Builder) { b.samplerOpts = append(b.samplerOpts, opts...) }
}

func WithRebalancerOptions(opts ...RebalancerOption) BuilderOption {
	return func(b *Builder) { b.rebalancerOpts = append(b.rebalancerOpts, opts...) }
}

// Builder runs a whole dataset build: group, plan, rebalance, sample.
type Builder struct {
	cfg            config.Config
	fs             afero.Fs
	counter        FrameCounter
	extractor      FeatureExtractor
	samplerOpts    []SamplerOption
	rebalancerOpts []RebalancerOption
	logger         *slog.Logger
}

// NewBuilder reads recordings from fsys. Without options it counts frames
// from the SRT segmentations and extracts features from the WAV sources.
func NewBuilder(cfg config.Config, fsys afero.Fs, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:       cfg,
		fs:        fsys,
		counter:   srt.NewFrameCounter(fsys, cfg.BackgroundLabel),
		extractor: features.NewExtractor(fsys, cfg.MsPerFrame(), cfg.BackgroundLabel),
		logger:    utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DirectoryNames lists the data directories under root, sorted.
func DirectoryNames(fsys afero.Fs, root string) ([]string, error) {
	infos, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() && info.Name()[0] != '.' {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// PlanResult is a balanced plan before any sample is loaded.
type PlanResult struct {
	StartedAt  time.Time
	Group      *DirectoryGroup
	Strategies *StrategyMap
	Reduction  Reduction
	cfg        config.Config
}

// Result is a finished build. Sets follow the group's label order.
type Result struct {
	*PlanResult
	Sets []SampleSet
}

// Plan groups names, plans every label and fits the plan into memory.
func (b *Builder) Plan(ctx context.Context, names []string) (*PlanResult, error) {
	started := time.Now()
	group := GroupDirectories(b.cfg.DatasetFolder, names, b.cfg.MicrophoneSeparator)

	strategies, err := NewPlanner(b.cfg, b.counter).Plan(ctx, group)
	if err != nil {
		return nil, err
	}
	reduction, err := NewRebalancer(b.cfg, b.rebalancerOpts...).Rebalance(strategies)
	if err != nil {
		return nil, err
	}
	return &PlanResult{
		StartedAt:  started,
		Group:      group,
		Strategies: strategies,
		Reduction:  reduction,
		cfg:        b.cfg,
	}, nil
}

// Build plans and then samples every label, in parallel when more than one
// worker is configured.
func (b *Builder) Build(ctx context.Context, names []string) (*Result, error) {
	plan, err := b.Plan(ctx, names)
	if err != nil {
		return nil, err
	}

	sampler := NewSampler(b.cfg, b.fs, plan.Group, plan.Strategies, b.extractor, b.samplerOpts...)
	labels := plan.Group.Labels()
	sets := make([]SampleSet, len(labels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.Workers, 1))
	for i, label := range labels {
		g.Go(func() error {
			set, err := sampler.Sample(gctx, label)
			if err != nil {
				return fmt.Errorf("sample %s: %w", label, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Info("built dataset",
		slog.Int("labels", len(labels)),
		slog.Int("truncation", plan.Strategies.Truncation()),
		slog.Duration("took", time.Since(plan.StartedAt)))
	return &Result{PlanResult: plan, Sets: sets}, nil
}

func (r *Result) Classical() ClassicalDataset {
	return AssembleClassical(r.Group, r.Strategies.BackgroundLabel(), r.Sets)
}

func (r *Result) Neural() NeuralDataset {
	return AssembleNeural(r.Group, r.Strategies.BackgroundLabel(), r.Sets)
}

// Report summarises the plan. Entropy is computed over the planned targets.
func (p *PlanResult) Report() models.RunReport {
	counts := make(map[string]int)
	for _, rec := range p.Strategies.Records() {
		counts[rec.Label] = rec.TotalLoaded
	}
	return p.report(counts, nil, nil)
}

// Report summarises the build. Entropy is computed over the frames actually
// sampled, with background frames counted under the background label.
func (r *Result) Report() models.RunReport {
	background := r.Strategies.BackgroundLabel()
	sampled := make(map[string]int)
	harvested := make(map[string]int)
	counts := make(map[string]int)
	for _, set := range r.Sets {
		sampled[set.Label] += len(set.Raw)
		harvested[set.Label] += len(set.Background)
		counts[set.Label] += len(set.Raw)
		counts[background] += len(set.Background)
	}
	return r.report(counts, sampled, harvested)
}

func (p *PlanResult) report(counts, sampled, harvested map[string]int) models.RunReport {
	background := p.Strategies.BackgroundLabel()
	report := models.RunReport{
		StartedAt:        p.StartedAt,
		DatasetFolder:    p.cfg.DatasetFolder,
		BackgroundLabel:  background,
		TotalTruncation:  p.Strategies.Truncation(),
		RAMBudget:        int64(p.Reduction.Budget),
		EstimatedRAM:     int64(estimateRAM(p.Strategies)),
		ReductionPercent: p.Reduction.Percent,
		BalanceEntropy:   BalanceEntropy(counts),
	}
	for _, rec := range p.Strategies.Records() {
		lr := models.LabelReport{
			Label:          rec.Label,
			Strategy:       string(rec.Strategy),
			TotalSize:      rec.TotalSize,
			TotalLoaded:    rec.TotalLoaded,
			TruncateAfter:  rec.TruncateAfter,
			SampleFromEach: rec.SampleFromEach,
		}
		if sampled != nil {
			lr.Sampled = sampled[rec.Label]
			lr.Background = harvested[rec.Label]
			if rec.Label == background {
				lr.Sampled = counts[background]
			}
		}
		report.Labels = append(report.Labels, lr)
	}
	return report
}
