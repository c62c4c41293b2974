package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/dataset"
	"github.com/coding-garden-1/parrot-sans-pyaudio/db"
	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

// commonFlags are shared by plan and build.
type commonFlags struct {
	folder  string
	labels  string
	workers int
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.folder, "folder", "", "Dataset folder (overrides DATASET_FOLDER)")
	fs.StringVar(&c.labels, "labels", "", "Comma separated directory names (default: every directory in the dataset folder)")
	fs.IntVar(&c.workers, "workers", 0, "Labels sampled in parallel (overrides DATASET_WORKERS)")
}

func (c *commonFlags) apply(cfg *config.Config) error {
	if c.folder != "" {
		cfg.DatasetFolder = c.folder
	}
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
	return cfg.Validate()
}

func (c *commonFlags) names(fsys afero.Fs, cfg config.Config) ([]string, error) {
	if c.labels == "" {
		return dataset.DirectoryNames(fsys, cfg.DatasetFolder)
	}
	var names []string
	for _, name := range strings.Split(c.labels, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func planCmd(args []string) error {
	planFlags := flag.NewFlagSet("plan", flag.ExitOnError)
	var common commonFlags
	common.register(planFlags)
	out := planFlags.String("out", "", "Write the plan report as JSON to this file")
	planFlags.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := common.apply(&cfg); err != nil {
		return err
	}

	fsys := afero.NewOsFs()
	names, err := common.names(fsys, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	plan, err := dataset.NewBuilder(cfg, fsys).Plan(ctx, names)
	if err != nil {
		return err
	}

	report := plan.Report()
	printReport(report)
	if *out != "" {
		return saveJSON(*out, report)
	}
	return nil
}

func buildCmd(args []string) error {
	buildFlags := flag.NewFlagSet("build", flag.ExitOnError)
	var common commonFlags
	common.register(buildFlags)
	out := buildFlags.String("out", "tmp/dataset.json", "Output path for the assembled dataset")
	noReport := buildFlags.Bool("no-report", false, "Do not record the run in the report database")
	buildFlags.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := common.apply(&cfg); err != nil {
		return err
	}

	fsys := afero.NewOsFs()
	names, err := common.names(fsys, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := dataset.NewBuilder(cfg, fsys).Build(ctx, names)
	if err != nil {
		return err
	}

	classical := result.Classical()
	if err := saveJSON(*out, classical); err != nil {
		return err
	}

	report := result.Report()
	printReport(report)
	utils.GetLogger().Info("dataset written",
		slog.String("path", *out),
		slog.Int("samples", len(classical.Features)),
		slog.Int("classes", len(classical.Classes)))

	if *noReport || cfg.ReportDB == "" {
		return nil
	}
	return storeReport(cfg.ReportDB, &report)
}

func historyCmd(args []string) error {
	historyFlags := flag.NewFlagSet("history", flag.ExitOnError)
	limit := historyFlags.Int("n", 10, "Number of runs to list (0 for all)")
	id := historyFlags.Int64("id", 0, "Show one run with its labels")
	historyFlags.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := db.NewSQLiteClient(cfg.ReportDB)
	if err != nil {
		return err
	}
	defer client.Close()

	if *id > 0 {
		run, found, err := client.GetRun(*id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("run %d not found", *id)
		}
		printReport(run)
		return nil
	}

	runs, err := client.ListRuns(*limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tFOLDER\tTRUNCATION\tREDUCTION\tENTROPY")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d%%\t%.3f\n",
			r.ID, humanize.Time(r.StartedAt), r.DatasetFolder, r.TotalTruncation, r.ReductionPercent, r.BalanceEntropy)
	}
	return w.Flush()
}

func storeReport(path string, report *models.RunReport) error {
	client, err := db.NewSQLiteClient(path)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.StoreRun(report)
	if err != nil {
		return err
	}
	utils.GetLogger().Info("run recorded", slog.Int64("id", id), slog.String("db", path))
	return nil
}

func printReport(r models.RunReport) {
	fmt.Printf("Dataset folder:   %s\n", r.DatasetFolder)
	fmt.Printf("Truncation:       %d\n", r.TotalTruncation)
	if r.RAMBudget > 0 {
		fmt.Printf("RAM estimate:     %s of %s (reduced %d%%)\n",
			humanize.Bytes(uint64(r.EstimatedRAM)), humanize.Bytes(uint64(r.RAMBudget)), r.ReductionPercent)
	} else {
		fmt.Printf("RAM estimate:     %s\n", humanize.Bytes(uint64(r.EstimatedRAM)))
	}
	fmt.Printf("Balance entropy:  %.3f\n\n", r.BalanceEntropy)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSTRATEGY\tSIZE\tLOADED\tSAMPLED\tBACKGROUND")
	for _, l := range r.Labels {
		background := humanize.Comma(int64(l.Background))
		if l.Label == r.BackgroundLabel {
			background = fmt.Sprintf("%d each", l.SampleFromEach)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Label, l.Strategy,
			humanize.Comma(int64(l.TotalSize)), humanize.Comma(int64(l.TotalLoaded)),
			humanize.Comma(int64(l.Sampled)), background)
	}
	w.Flush()
}

// saveJSON writes through a temp file so readers never see a partial file.
func saveJSON(outputPath string, v any) error {
	if err := utils.CreateFolder(filepath.Dir(outputPath)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", outputPath, err)
	}

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
