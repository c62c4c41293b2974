package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/dataset"
	"github.com/coding-garden-1/parrot-sans-pyaudio/db"
)

// Config holds build options not covered by the environment.
type Config struct {
	OutputPath string
	Workers    int
	Record     bool
	Verbose    bool
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ERROR: invalid configuration: %v", err)
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("=== Dataset Build ===\n")
	log.Printf("Dataset folder: %s\n", cfg.DatasetFolder)
	log.Printf("Output: %s\n", opts.OutputPath)

	startTime := time.Now()
	fsys := afero.NewOsFs()
	names, err := dataset.DirectoryNames(fsys, cfg.DatasetFolder)
	if err != nil {
		log.Fatalf("ERROR: failed to read dataset folder: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := dataset.NewBuilder(cfg, fsys).Build(ctx, names)
	if err != nil {
		log.Fatalf("ERROR: build failed: %v", err)
	}

	classical := result.Classical()
	if err := saveDataset(classical, opts.OutputPath); err != nil {
		log.Fatalf("ERROR: failed to save dataset: %v", err)
	}

	if opts.Verbose {
		neural := result.Neural()
		for _, label := range neural.Classes {
			log.Printf("  %-20s %6d tensors, %6d augmented\n",
				label, len(neural.Data[label]), len(neural.Augmented[label]))
		}
	}

	report := result.Report()
	if opts.Record && cfg.ReportDB != "" {
		client, err := db.NewSQLiteClient(cfg.ReportDB)
		if err != nil {
			log.Fatalf("ERROR: failed to open report database: %v", err)
		}
		id, err := client.StoreRun(&report)
		client.Close()
		if err != nil {
			log.Fatalf("ERROR: failed to record run: %v", err)
		}
		log.Printf("Recorded run %d in %s\n", id, cfg.ReportDB)
	}

	log.Printf("Wrote %d samples across %d classes (entropy %.3f) in %.2f seconds\n",
		len(classical.Features), len(classical.Classes), report.BalanceEntropy, time.Since(startTime).Seconds())
}

func parseFlags() Config {
	opts := Config{}
	flag.StringVar(&opts.OutputPath, "output", "tmp/dataset.json", "Output path for the assembled dataset")
	flag.IntVar(&opts.Workers, "workers", 0, "Labels sampled in parallel (defaults to DATASET_WORKERS)")
	flag.BoolVar(&opts.Record, "record", true, "Record the run in DATASET_REPORT_DB")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Print per-class tensor counts")
	flag.Parse()
	return opts
}

func saveDataset(ds dataset.ClassicalDataset, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	// Write atomically using temp file
	tempPath := outputPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
