package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/dataset"
	"github.com/coding-garden-1/parrot-sans-pyaudio/features"
)

// Checks that one label pass is reproducible: the same seed must pick the
// same frames, and augmented frames must stay paired with their originals.
func main() {
	_ = godotenv.Load()
	label := flag.String("label", "", "Label to sample twice")
	runs := flag.Int("runs", 3, "Number of passes to compare")
	flag.Parse()

	if *label == "" {
		log.Fatal("Usage: go run ./cmd/check_determinism -label <label> [-runs 3]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	fsys := afero.NewOsFs()
	names, err := dataset.DirectoryNames(fsys, cfg.DatasetFolder)
	if err != nil {
		log.Fatalf("failed to read dataset folder: %v", err)
	}

	ctx := context.Background()
	plan, err := dataset.NewBuilder(cfg, fsys).Plan(ctx, names)
	if err != nil {
		log.Fatalf("planning failed: %v", err)
	}
	record, ok := plan.Strategies.Get(*label)
	if !ok {
		log.Fatalf("label %q is not part of the plan", *label)
	}
	log.Printf("Sampling %s (%s, %d -> %d) %d times\n",
		*label, record.Strategy, record.TotalSize, record.TotalLoaded, *runs)

	seed := uint64(time.Now().UnixMilli())
	extractor := features.NewExtractor(fsys, cfg.MsPerFrame(), cfg.BackgroundLabel)

	var sets []dataset.SampleSet
	for i := 0; i < *runs; i++ {
		sampler := dataset.NewSampler(cfg, fsys, plan.Group, plan.Strategies, extractor,
			dataset.WithSeedFunc(func() uint64 { return seed }))
		set, err := sampler.Sample(ctx, *label)
		if err != nil {
			log.Fatalf("Run %d failed: %v", i+1, err)
		}
		sets = append(sets, set)
		log.Printf("Run %d: %d raw, %d background\n", i+1, len(set.Raw), len(set.Background))
	}

	fmt.Println("\n=== Determinism Check ===")
	allIdentical := true
	maxDiff := 0.0
	for i := 1; i < len(sets); i++ {
		diff, same := compare(sets[0].Raw, sets[i].Raw)
		bgDiff, bgSame := compare(sets[0].Background, sets[i].Background)
		maxDiff = math.Max(maxDiff, math.Max(diff, bgDiff))
		if !same || !bgSame {
			allIdentical = false
			fmt.Printf("❌ Run %d picked different frames than run 1\n", i+1)
		}
	}
	if allIdentical {
		fmt.Println("✅ All runs picked IDENTICAL frames")
		fmt.Printf("   Max feature difference: %e\n", maxDiff)
	}

	fmt.Println("\n=== Pairing Check ===")
	set := sets[0]
	if len(set.Raw) != len(set.Augmented) || len(set.Background) != len(set.BackgroundAugmented) {
		fmt.Printf("❌ Unpaired variants: %d/%d raw, %d/%d background\n",
			len(set.Raw), len(set.Augmented), len(set.Background), len(set.BackgroundAugmented))
		return
	}
	for i := range set.Raw {
		if set.Raw[i].Source != set.Augmented[i].Source {
			fmt.Printf("❌ Frame %d comes from %s but its augmented copy from %s\n",
				i, set.Raw[i].Source, set.Augmented[i].Source)
			return
		}
	}
	fmt.Println("✅ Every augmented frame is paired with its original")
}

// compare reports the largest feature difference and whether both lists
// hold the same frames from the same sources.
func compare(a, b []dataset.Sample) (float64, bool) {
	if len(a) != len(b) {
		return math.Inf(1), false
	}
	maxDiff := 0.0
	same := true
	for i := range a {
		if a[i].Source != b[i].Source || len(a[i].Features) != len(b[i].Features) {
			return math.Inf(1), false
		}
		for j := range a[i].Features {
			diff := math.Abs(float64(a[i].Features[j] - b[i].Features[j]))
			maxDiff = math.Max(maxDiff, diff)
			if diff > 1e-6 {
				same = false
			}
		}
	}
	return maxDiff, same
}
