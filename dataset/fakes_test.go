package dataset

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/coding-garden-1/parrot-sans-pyaudio/config"
	"github.com/coding-garden-1/parrot-sans-pyaudio/manifest"
	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DatasetFolder = "data"
	cfg.MaxRAM = 1 << 40
	return cfg
}

// staticCounter answers frame counts per directory.
type staticCounter struct {
	frames  map[string]int
	silence map[string]int
}

func (c staticCounter) CountFrames(_, directory string, _ int) (int, error) {
	return c.frames[directory], nil
}

func (c staticCounter) CountSilenceFrames(directory string, _ int) (int, error) {
	return c.silence[directory], nil
}

// countingExtractor returns frames numbered 0..n-1. The second feature
// marks the variant: +1 augmented, +2 background.
type countingExtractor struct {
	raw        map[string]int
	background map[string]int
	// shortAugment drops the last augmented label frame.
	shortAugment bool

	mu    sync.Mutex
	calls []models.Variant
}

func (e *countingExtractor) Extract(_, audioPath, _ string, v models.Variant) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, v)
	e.mu.Unlock()

	n := e.raw[audioPath]
	switch {
	case v.Background:
		n = e.background[audioPath]
	case v.Oversample:
		n *= 2
	}
	if e.shortAugment && v.Augment && !v.Background && n > 0 {
		n--
	}

	tag := float32(0)
	if v.Augment {
		tag++
	}
	if v.Background {
		tag += 2
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), tag}
	}
	return out, nil
}

// layout creates a recording directory with one segmented take per name.
func layout(t *testing.T, fsys afero.Fs, dir string, takes ...string) {
	t.Helper()
	for _, take := range takes {
		source := filepath.Join(dir, manifest.SourceDir, take+".wav")
		segments := filepath.Join(dir, manifest.SegmentsDir, take+".v1.srt")
		for _, path := range []string{source, segments} {
			require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, afero.WriteFile(fsys, path, []byte(strings.ToUpper(take)), 0o644))
		}
	}
}

func sourcePath(dir, take string) string {
	return filepath.Join(dir, manifest.SourceDir, take+".wav")
}
