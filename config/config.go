package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

// Config carries every option the dataset builder consumes. It is built once
// per run and passed explicitly to the planner, rebalancer and sampler.
type Config struct {
	// DatasetFolder is the root holding one directory per recording source.
	DatasetFolder string `yaml:"dataset_folder"`
	// MicrophoneSeparator splits directory names into labels ("alice_mic1" -> "alice").
	// Empty disables grouping.
	MicrophoneSeparator string `yaml:"microphone_separator"`
	// BackgroundLabel names the synthetic class harvested from silence.
	BackgroundLabel string `yaml:"background_label"`
	// AutomaticBalancing enables over/undersampling.
	AutomaticBalancing bool `yaml:"automatic_dataset_balancing"`
	// FitInsideRAM shrinks the plan until it fits MaxRAM.
	FitInsideRAM bool `yaml:"should_fit_inside_ram"`
	// MaxRAM is the memory budget in bytes. 0 means use the memory
	// available on the host at planning time.
	MaxRAM int64 `yaml:"max_ram"`
	// RecordSeconds and SlidingWindowAmount derive the frame duration.
	RecordSeconds       float64 `yaml:"record_seconds"`
	SlidingWindowAmount int     `yaml:"sliding_window_amount"`
	// InputType is passed through to the feature extractor.
	InputType string `yaml:"input_type"`
	// Workers bounds per-label sampling parallelism. 1 is sequential.
	Workers int `yaml:"workers"`
	// ReportDB is the SQLite file holding run reports. Empty disables reporting.
	ReportDB string `yaml:"report_db"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		DatasetFolder:       "data/recordings",
		MicrophoneSeparator: "",
		BackgroundLabel:     "silence",
		AutomaticBalancing:  true,
		FitInsideRAM:        true,
		MaxRAM:              0,
		RecordSeconds:       0.03,
		SlidingWindowAmount: 1,
		InputType:           "mfsc",
		Workers:             1,
		ReportDB:            "db/dataset_runs.sqlite3",
	}
}

// Load builds a Config from the defaults, an optional YAML file named by
// DATASET_CONFIG, and environment overrides, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := utils.GetEnv("DATASET_CONFIG", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DatasetFolder = utils.GetEnv("DATASET_FOLDER", c.DatasetFolder)
	c.MicrophoneSeparator = utils.GetEnv("MICROPHONE_SEPARATOR", c.MicrophoneSeparator)
	c.BackgroundLabel = utils.GetEnv("BACKGROUND_LABEL", c.BackgroundLabel)
	c.AutomaticBalancing = utils.GetEnvBool("AUTOMATIC_DATASET_BALANCING", c.AutomaticBalancing)
	c.FitInsideRAM = utils.GetEnvBool("SHOULD_FIT_INSIDE_RAM", c.FitInsideRAM)
	c.MaxRAM = utils.GetEnvInt64("MAX_RAM", c.MaxRAM)
	c.RecordSeconds = utils.GetEnvFloat("RECORD_SECONDS", c.RecordSeconds)
	c.SlidingWindowAmount = int(utils.GetEnvInt64("SLIDING_WINDOW_AMOUNT", int64(c.SlidingWindowAmount)))
	c.InputType = utils.GetEnv("INPUT_TYPE", c.InputType)
	c.Workers = int(utils.GetEnvInt64("DATASET_WORKERS", int64(c.Workers)))
	c.ReportDB = utils.GetEnv("DATASET_REPORT_DB", c.ReportDB)
}

// Validate reports the first inconsistent option.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatasetFolder) == "" {
		return errors.New("dataset folder is required")
	}
	if strings.TrimSpace(c.BackgroundLabel) == "" {
		return errors.New("background label is required")
	}
	if c.MaxRAM < 0 {
		return fmt.Errorf("max ram must not be negative, got %d", c.MaxRAM)
	}
	if c.RecordSeconds <= 0 {
		return fmt.Errorf("record seconds must be positive, got %f", c.RecordSeconds)
	}
	if c.SlidingWindowAmount < 1 {
		return fmt.Errorf("sliding window amount must be at least 1, got %d", c.SlidingWindowAmount)
	}
	if c.MsPerFrame() < 1 {
		return fmt.Errorf("frame duration rounds down to zero (record_seconds=%f, sliding_window_amount=%d)",
			c.RecordSeconds, c.SlidingWindowAmount)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// MsPerFrame is the duration of one feature frame in milliseconds.
func (c Config) MsPerFrame() int {
	if c.SlidingWindowAmount <= 0 {
		return 0
	}
	return int(math.Floor(c.RecordSeconds / float64(c.SlidingWindowAmount) * 1000))
}
