package srt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/manifest"
)

// Span is a half-open time range [Start, End) inside a recording.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// Frames is the number of whole frames of msPerFrame that fit in the span.
func (s Span) Frames(msPerFrame int) int {
	if msPerFrame <= 0 || s.End <= s.Start {
		return 0
	}
	return int((s.End - s.Start) / (time.Duration(msPerFrame) * time.Millisecond))
}

// LabelSpans returns the cues that carry sound, sorted by start. Cues tagged
// with the background label are left out.
func LabelSpans(cues []Cue, backgroundLabel string) []Span {
	var spans []Span
	for _, cue := range cues {
		if isBackground(cue.Text, backgroundLabel) || cue.Duration() == 0 {
			continue
		}
		spans = append(spans, Span{Start: cue.Start, End: cue.End})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// SilenceSpans returns the gaps between sound cues, from the start of the
// recording up to the end of the last sound cue. Overlapping cues are merged.
func SilenceSpans(cues []Cue, backgroundLabel string) []Span {
	var gaps []Span
	var cursor time.Duration
	for _, span := range LabelSpans(cues, backgroundLabel) {
		if span.Start > cursor {
			gaps = append(gaps, Span{Start: cursor, End: span.Start})
		}
		if span.End > cursor {
			cursor = span.End
		}
	}
	return gaps
}

// CountSpanFrames sums the whole frames of every span.
func CountSpanFrames(spans []Span, msPerFrame int) int {
	total := 0
	for _, span := range spans {
		total += span.Frames(msPerFrame)
	}
	return total
}

func isBackground(text, backgroundLabel string) bool {
	return backgroundLabel != "" && strings.EqualFold(strings.TrimSpace(text), backgroundLabel)
}

// ReadCues parses the segmentation file at path on fsys.
func ReadCues(fsys afero.Fs, path string) ([]Cue, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open segmentation %s: %w", path, err)
	}
	defer f.Close()

	cues, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse segmentation %s: %w", path, err)
	}
	return cues, nil
}

// FrameCounter counts usable frames in a data directory from the
// segmentation files selected by the recording manifest.
type FrameCounter struct {
	fs              afero.Fs
	backgroundLabel string
}

func NewFrameCounter(fsys afero.Fs, backgroundLabel string) *FrameCounter {
	return &FrameCounter{fs: fsys, backgroundLabel: backgroundLabel}
}

// CountFrames returns the number of sound frames in directory. The
// background label never has frames of its own.
func (c *FrameCounter) CountFrames(label, directory string, msPerFrame int) (int, error) {
	if isBackground(label, c.backgroundLabel) {
		return 0, nil
	}
	return c.count(directory, msPerFrame, func(cues []Cue) []Span {
		return LabelSpans(cues, c.backgroundLabel)
	})
}

// CountSilenceFrames returns the number of silence frames in directory.
func (c *FrameCounter) CountSilenceFrames(directory string, msPerFrame int) (int, error) {
	return c.count(directory, msPerFrame, func(cues []Cue) []Span {
		return SilenceSpans(cues, c.backgroundLabel)
	})
}

func (c *FrameCounter) count(directory string, msPerFrame int, spans func([]Cue) []Span) (int, error) {
	if msPerFrame <= 0 {
		return 0, nil
	}
	m, err := manifest.Build(c.fs, []string{directory})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, entry := range m.Entries() {
		cues, err := ReadCues(c.fs, entry.Segments)
		if err != nil {
			return 0, err
		}
		total += CountSpanFrames(spans(cues), msPerFrame)
	}
	return total, nil
}
