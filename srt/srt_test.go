package srt

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "1\r\n00:00:00,300 --> 00:00:00,600\r\nclick\r\n\r\n" +
	"2\n00:00:01,000 --> 00:00:01,090\nclick\n\n" +
	"3\n00:00:01,090 --> 00:00:01,500\nsilence\n\n" +
	"4\n00:00:02,000 --> 00:00:02,120\nclick\nsecond line"

func TestParse(t *testing.T) {
	t.Parallel()

	cues, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, cues, 4)

	assert.Equal(t, Cue{Index: 1, Start: 300 * time.Millisecond, End: 600 * time.Millisecond, Text: "click"}, cues[0])
	assert.Equal(t, "silence", cues[2].Text)
	assert.Equal(t, "click second line", cues[3].Text)
	assert.Equal(t, 120*time.Millisecond, cues[3].Duration())
}

func TestParseRejectsMalformedBlocks(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("x\n00:00:00,000 --> 00:00:01,000\nclick\n"))
	assert.ErrorContains(t, err, "invalid sequence line")

	_, err = Parse(strings.NewReader("1\n00:00 --> 00:01\nclick\n"))
	assert.ErrorContains(t, err, "invalid time line")
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	cues, err := Parse(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, cues)
}

func TestSpans(t *testing.T) {
	t.Parallel()

	cues, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	labels := LabelSpans(cues, "silence")
	require.Len(t, labels, 3)
	// 300ms/30 + 90ms/30 + 120ms/30
	assert.Equal(t, 10+3+4, CountSpanFrames(labels, 30))

	gaps := SilenceSpans(cues, "silence")
	assert.Equal(t, []Span{
		{Start: 0, End: 300 * time.Millisecond},
		{Start: 600 * time.Millisecond, End: time.Second},
		{Start: 1090 * time.Millisecond, End: 2 * time.Second},
	}, gaps)
	// 300/30 + 400/30 + 910/30
	assert.Equal(t, 10+13+30, CountSpanFrames(gaps, 30))
	assert.Equal(t, 0, CountSpanFrames(gaps, 0))
}

func TestFrameCounter(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	dir := "data/click"
	require.NoError(t, fsys.MkdirAll(filepath.Join(dir, "source"), 0o755))
	require.NoError(t, fsys.MkdirAll(filepath.Join(dir, "segments"), 0o755))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "source", "a.wav"), []byte("RIFF"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "segments", "a.v1.srt"),
		[]byte("1\n00:00:00,000 --> 00:00:03,000\nclick\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "segments", "a.v2.srt"), []byte(sample), 0o644))

	counter := NewFrameCounter(fsys, "silence")

	frames, err := counter.CountFrames("click", dir, 30)
	require.NoError(t, err)
	assert.Equal(t, 17, frames, "only the highest version is counted")

	silence, err := counter.CountSilenceFrames(dir, 30)
	require.NoError(t, err)
	assert.Equal(t, 53, silence)

	frames, err = counter.CountFrames("silence", dir, 30)
	require.NoError(t, err)
	assert.Zero(t, frames)

	frames, err = counter.CountFrames("click", "data/missing", 30)
	require.NoError(t, err)
	assert.Zero(t, frames)
}

func TestFrameCounterReportsBrokenSegmentation(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("d/source", 0o755))
	require.NoError(t, fsys.MkdirAll("d/segments", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "d/source/a.wav", []byte("RIFF"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "d/segments/a.v1.srt", []byte("nope\n"), 0o644))

	_, err := NewFrameCounter(fsys, "silence").CountFrames("click", "d", 30)
	assert.Error(t, err)
}
