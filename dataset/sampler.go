package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/manifest"
	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

// Sample is one encoded frame and the recording it came from.
type Sample struct {
	Source   string    `json:"source"`
	Features []float32 `json:"features"`
}

// SampleSet holds everything collected during one label pass. Raw and
// Augmented are index-aligned, as are Background and BackgroundAugmented.
type SampleSet struct {
	Label               string   `json:"label"`
	Raw                 []Sample `json:"raw"`
	Augmented           []Sample `json:"augmented"`
	Background          []Sample `json:"background"`
	BackgroundAugmented []Sample `json:"backgroundAugmented"`
}

// SeedFunc returns the seed of one label pass.
type SeedFunc func() uint64

func timeSeed() uint64 { return uint64(time.Now().UnixMilli()) }

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithSeedFunc replaces the time based seed.
func WithSeedFunc(seed SeedFunc) SamplerOption {
	return func(s *Sampler) { s.seed = seed }
}

// Sampler collects and truncates the samples of one label at a time. The
// strategy map is frozen when the sampler is created.
type Sampler struct {
	cfg        config.Config
	fs         afero.Fs
	group      *DirectoryGroup
	strategies *StrategyMap
	extractor  FeatureExtractor
	seed       SeedFunc
	logger     *slog.Logger
}

func NewSampler(cfg config.Config, fsys afero.Fs, group *DirectoryGroup, strategies *StrategyMap, extractor FeatureExtractor, opts ...SamplerOption) *Sampler {
	strategies.Freeze()
	s := &Sampler{
		cfg:        cfg,
		fs:         fsys,
		group:      group,
		strategies: strategies,
		extractor:  extractor,
		seed:       timeSeed,
		logger:     utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample runs one label pass. The background label and labels without a plan
// return an empty set; background frames are harvested from the recordings
// of every other label instead.
func (s *Sampler) Sample(ctx context.Context, label string) (SampleSet, error) {
	set := SampleSet{Label: label}
	record, ok := s.strategies.Get(label)
	if !ok || record.Strategy == Background {
		return set, nil
	}

	m, err := manifest.Build(s.fs, s.group.Directories(label))
	if err != nil {
		return set, fmt.Errorf("build manifest of %s: %w", label, err)
	}

	oversample := record.Strategy == Oversample
	for _, entry := range m.Entries() {
		if err := ctx.Err(); err != nil {
			return set, err
		}
		if err := s.collect(&set, entry, oversample); err != nil {
			return set, err
		}
	}

	seed := s.seed()
	if bg, ok := s.strategies.Background(); ok && len(set.Background) > bg.SampleFromEach {
		set.Background, set.BackgroundAugmented = truncatePair(set.Background, set.BackgroundAugmented, bg.SampleFromEach, seed)
	}

	switch record.Strategy {
	case Oversample, Undersample:
		if len(set.Raw) > record.TruncateAfter {
			set.Raw, set.Augmented = truncatePair(set.Raw, set.Augmented, record.TruncateAfter, seed)
		}
		if record.TotalSize > 0 {
			s.logger.Info("balanced label",
				slog.String("label", label),
				slog.String("strategy", string(record.Strategy)),
				slog.Int("size", record.TotalSize),
				slog.Int("loaded", len(set.Raw)),
				slog.String("change", fmt.Sprintf("%+d%%", signedChange(record))))
		}
	}

	s.logger.Debug("sampled label",
		slog.String("label", label),
		slog.Int("sources", m.Len()),
		slog.Int("raw", len(set.Raw)),
		slog.Int("background", len(set.Background)))
	return set, nil
}

func (s *Sampler) collect(set *SampleSet, entry manifest.Entry, oversample bool) error {
	variants := []struct {
		v    models.Variant
		dest *[]Sample
	}{
		{models.Variant{Oversample: oversample}, &set.Raw},
		{models.Variant{Oversample: oversample, Augment: true}, &set.Augmented},
		{models.Variant{Background: true}, &set.Background},
		{models.Variant{Augment: true, Background: true}, &set.BackgroundAugmented},
	}

	var frames [4][][]float32
	for i, variant := range variants {
		out, err := s.extractor.Extract(entry.Segments, entry.Source, s.cfg.InputType, variant.v)
		if err != nil {
			return fmt.Errorf("extract %s: %w", entry.Source, err)
		}
		frames[i] = out
	}

	// Pairs must stay index-aligned even if an extractor disagrees on counts.
	for pair := 0; pair < len(frames); pair += 2 {
		n := min(len(frames[pair]), len(frames[pair+1]))
		if len(frames[pair]) != len(frames[pair+1]) {
			s.logger.Warn("extractor returned mismatched variant pair",
				slog.String("source", entry.Source),
				slog.Int("plain", len(frames[pair])),
				slog.Int("augmented", len(frames[pair+1])))
		}
		frames[pair], frames[pair+1] = frames[pair][:n], frames[pair+1][:n]
	}

	for i, variant := range variants {
		for _, f := range frames[i] {
			*variant.dest = append(*variant.dest, Sample{Source: entry.Source, Features: f})
		}
	}
	return nil
}

func signedChange(r StrategyRecord) int {
	if r.TotalLoaded < r.TotalSize {
		return -r.ChangePercent()
	}
	return r.ChangePercent()
}

// sampleIndices draws k distinct indices out of n. The same seed always
// yields the same indices in the same order.
func sampleIndices(n, k int, seed uint64) []int {
	k = max(min(k, n), 0)
	rng := rand.New(rand.NewPCG(seed, seed))
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// truncatePair keeps the same k random positions of both lists.
func truncatePair(a, b []Sample, k int, seed uint64) ([]Sample, []Sample) {
	indices := sampleIndices(min(len(a), len(b)), k, seed)
	outA := make([]Sample, len(indices))
	outB := make([]Sample, len(indices))
	for i, idx := range indices {
		outA[i], outB[i] = a[idx], b[idx]
	}
	return outA, outB
}
