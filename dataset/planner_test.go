package dataset

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupDirectories(t *testing.T) {
	t.Parallel()

	g := GroupDirectories("data", []string{"alice_mic1", "Bob", "alice_mic2", "alice_mic1"}, "_mic")
	assert.Equal(t, []string{"alice", "Bob"}, g.Labels())
	assert.Equal(t, []string{"data/alice_mic1", "data/alice_mic2"}, g.Directories("alice"))
	assert.Equal(t, []string{"data/bob"}, g.Directories("Bob"))
	assert.True(t, g.Has("alice"))
	assert.False(t, g.Has("alice_mic1"))

	plain := GroupDirectories("data", []string{"alice_mic1", "alice_mic2"}, "")
	assert.Equal(t, 2, plain.Len())
	assert.Empty(t, plain.Directories("alice"))
}

func TestPlanScenario(t *testing.T) {
	t.Parallel()

	counter := staticCounter{
		frames:  map[string]int{"data/a": 1000, "data/b": 100, "data/c": 1000},
		silence: map[string]int{"data/a": 300, "data/b": 300, "data/c": 300},
	}
	group := GroupDirectories("data", []string{"a", "b", "c"}, "")

	m, err := NewPlanner(testConfig(), counter).Plan(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 912, m.Truncation())

	b, _ := m.Get("b")
	assert.Equal(t, Oversample, b.Strategy)
	assert.Equal(t, 200, b.TotalLoaded)

	for _, label := range []string{"a", "c"} {
		r, _ := m.Get(label)
		assert.Equal(t, Passthrough, r.Strategy, label)
		assert.Equal(t, 1000, r.TotalLoaded, label)
	}

	bg, ok := m.Background()
	require.True(t, ok)
	assert.Equal(t, Background, bg.Strategy)
	assert.Equal(t, 900, bg.TotalSize)
	assert.Equal(t, 912, bg.TotalLoaded)
	assert.Equal(t, 300, bg.SampleFromEach)
	assert.Equal(t, bg.TotalSize, bg.SampleFromEach*3)

	lo, hi := m.SizeRange()
	assert.Equal(t, 100, lo)
	assert.Equal(t, 1000, hi)

	records := m.Records()
	require.Len(t, records, 4)
	assert.Equal(t, "silence", records[3].Label)
}

func TestPlanExcludesEmptyLabelsFromSpread(t *testing.T) {
	t.Parallel()

	counter := staticCounter{frames: map[string]int{"data/a": 100, "data/b": 100}}
	group := GroupDirectories("data", []string{"a", "b", "empty"}, "")

	m, err := NewPlanner(testConfig(), counter).Plan(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 100, m.Truncation())

	empty, ok := m.Get("empty")
	require.True(t, ok)
	assert.Equal(t, 0, empty.TotalLoaded)

	lo, hi := m.SizeRange()
	assert.Equal(t, 100, lo)
	assert.Equal(t, 100, hi)
}

func TestPlanWithoutData(t *testing.T) {
	t.Parallel()

	group := GroupDirectories("data", []string{"a", "b"}, "")
	m, err := NewPlanner(testConfig(), staticCounter{}).Plan(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Truncation())
	assert.Equal(t, 0, m.TotalLoaded())

	lo, hi := m.SizeRange()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestPlanWithoutBalancingPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AutomaticBalancing = false
	counter := staticCounter{frames: map[string]int{"data/a": 5000, "data/b": 10}}
	group := GroupDirectories("data", []string{"a", "b"}, "")

	m, err := NewPlanner(cfg, counter).Plan(context.Background(), group)
	require.NoError(t, err)
	for _, r := range m.Records() {
		if r.Label == "silence" {
			continue
		}
		assert.Equal(t, Passthrough, r.Strategy)
		assert.Equal(t, r.TotalSize, r.TotalLoaded)
	}
}

func TestPlanSkipsBackgroundDirectories(t *testing.T) {
	t.Parallel()

	counter := staticCounter{
		frames:  map[string]int{"data/a": 10, "data/silence": 999},
		silence: map[string]int{"data/a": 4, "data/silence": 999},
	}
	group := GroupDirectories("data", []string{"a", "silence"}, "")

	m, err := NewPlanner(testConfig(), counter).Plan(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Truncation())
	bg, _ := m.Background()
	assert.Equal(t, 4, bg.TotalSize)
	assert.Equal(t, 2, m.Len())
}

func TestPlanHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPlanner(testConfig(), staticCounter{}).Plan(ctx, GroupDirectories("data", []string{"a"}, ""))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBackgroundQuotaNeverExceedsTarget(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		labels := 1 + rng.IntN(12)
		counts := make(map[string]int)
		var names []string
		pool := 0
		for l := 0; l < labels; l++ {
			name := string(rune('a' + l))
			names = append(names, name)
			counts[name] = rng.IntN(5000)
			pool += rng.IntN(3000)
		}

		truncation := totalTruncation(names, counts)
		bg := backgroundRecord("silence", pool, truncation, labels)
		require.NoError(t, bg.Validate())
		assert.LessOrEqual(t, bg.SampleFromEach*labels, bg.TotalLoaded,
			"labels=%d pool=%d truncation=%d", labels, pool, truncation)
	}
}

func TestBackgroundQuotaFillsTarget(t *testing.T) {
	t.Parallel()

	bg := backgroundRecord("silence", 5000, 912, 3)
	assert.Equal(t, 304, bg.SampleFromEach)
	assert.Equal(t, bg.TotalLoaded, bg.SampleFromEach*3)

	small := backgroundRecord("silence", 90, 912, 3)
	assert.Equal(t, 30, small.SampleFromEach, "a small pool is split across the labels")

	assert.Zero(t, backgroundRecord("silence", 90, 912, 0).SampleFromEach)
}

func TestOversampleIsBounded(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 1000; i++ {
		size, truncation := rng.IntN(2000), rng.IntN(4000)
		r := classify("x", size, truncation, true)
		require.NoError(t, r.Validate())
		if r.Strategy == Oversample {
			assert.LessOrEqual(t, r.TotalLoaded, min(size*MaxOversampleRatio, truncation))
		}
	}
}

func TestNewStrategyRecordValidates(t *testing.T) {
	t.Parallel()

	_, err := NewStrategyRecord("a", Oversample, 100, 150, 400, -1)
	require.NoError(t, err)

	cases := map[string]struct {
		kind                                     Strategy
		size, loaded, truncateAfter, sampleQuota int
	}{
		"oversample above ratio":   {Oversample, 100, 201, 400, -1},
		"oversample above ceiling": {Oversample, 100, 150, 120, -1},
		"undersample off ceiling":  {Undersample, 1000, 500, 400, -1},
		"passthrough changes size": {Passthrough, 100, 90, 400, -1},
		"negative load":            {Passthrough, 100, -1, 400, -1},
		"quota outside background": {Passthrough, 100, 100, 400, 3},
		"background without quota": {Background, 100, 400, 400, -1},
		"unknown strategy":         {Strategy("shuffle"), 1, 1, 1, -1},
	}
	for name, tc := range cases {
		_, err := NewStrategyRecord("a", tc.kind, tc.size, tc.loaded, tc.truncateAfter, tc.sampleQuota)
		assert.ErrorIs(t, err, ErrInvalidRecord, name)
	}
}

func TestChangePercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, classify("b", 100, 912, true).ChangePercent())
	assert.Equal(t, 50, classify("a", 1000, 500, true).ChangePercent())
	assert.Equal(t, 0, classify("empty", 0, 500, true).ChangePercent())
}
