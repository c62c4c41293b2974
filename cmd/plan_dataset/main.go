package main

import (
	"context"
	"flag"
	"log"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/dataset"
)

func main() {
	_ = godotenv.Load()
	folder := flag.String("dir", "", "Dataset folder (defaults to DATASET_FOLDER)")
	separator := flag.String("separator", "", "Microphone separator (defaults to MICROPHONE_SEPARATOR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ERROR: invalid configuration: %v", err)
	}
	if *folder != "" {
		cfg.DatasetFolder = *folder
	}
	if *separator != "" {
		cfg.MicrophoneSeparator = *separator
	}

	fsys := afero.NewOsFs()
	names, err := dataset.DirectoryNames(fsys, cfg.DatasetFolder)
	if err != nil {
		log.Fatalf("ERROR: failed to read dataset folder: %v", err)
	}
	if len(names) == 0 {
		log.Fatalf("ERROR: no recording directories found in %s", cfg.DatasetFolder)
	}

	plan, err := dataset.NewBuilder(cfg, fsys).Plan(context.Background(), names)
	if err != nil {
		log.Fatalf("ERROR: planning failed: %v", err)
	}

	records := plan.Strategies.Records()
	sort.SliceStable(records, func(i, j int) bool { return records[i].TotalSize > records[j].TotalSize })

	log.Printf("Found %d labels in %d directories (%d ms frames)\n",
		plan.Group.Len(), len(names), cfg.MsPerFrame())
	for _, r := range records {
		log.Printf("  %-20s %-12s %8s -> %-8s", r.Label, r.Strategy,
			humanize.Comma(int64(r.TotalSize)), humanize.Comma(int64(r.TotalLoaded)))
	}

	lo, hi := plan.Strategies.SizeRange()
	log.Printf("Label sizes range from %d to %d, truncating at %d\n", lo, hi, plan.Strategies.Truncation())
	if plan.Reduction.Applied {
		log.Printf("Reduced by %d%% to fit %s (estimate %s)\n", plan.Reduction.Percent,
			humanize.Bytes(plan.Reduction.Budget), humanize.Bytes(plan.Reduction.After))
	}
}
