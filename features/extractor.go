package features

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/spf13/afero"

	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
	"github.com/coding-garden-1/parrot-sans-pyaudio/srt"
	"github.com/coding-garden-1/parrot-sans-pyaudio/wav"
)

// Extractor cuts the segments of a recording into fixed-duration frames and
// encodes each frame. Frame order is stable for a given recording and
// variant, so the plain and augmented variants line up index by index.
type Extractor struct {
	fs              afero.Fs
	msPerFrame      int
	backgroundLabel string
	encode          func(inputType string, frame []float64, sampleRate int) ([]float32, bool)
}

func NewExtractor(fsys afero.Fs, msPerFrame int, backgroundLabel string) *Extractor {
	return &Extractor{fs: fsys, msPerFrame: msPerFrame, backgroundLabel: backgroundLabel, encode: Encode}
}

// Extract returns one encoded vector per frame of the requested variant.
func (e *Extractor) Extract(segmentPath, audioPath, inputType string, v models.Variant) ([][]float32, error) {
	if !Supported(inputType) {
		return nil, fmt.Errorf("unknown input type %q", inputType)
	}

	cues, err := srt.ReadCues(e.fs, segmentPath)
	if err != nil {
		return nil, err
	}
	spans := srt.LabelSpans(cues, e.backgroundLabel)
	if v.Background {
		spans = srt.SilenceSpans(cues, e.backgroundLabel)
	}
	if len(spans) == 0 {
		return nil, nil
	}

	info, err := wav.ReadWavInfo(e.fs, audioPath)
	if err != nil {
		return nil, err
	}
	samples, err := info.MonoSamples()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", audioPath, err)
	}

	frameLen := info.SampleRate * e.msPerFrame / 1000
	if frameLen <= 0 {
		return nil, nil
	}

	var rng *rand.Rand
	if v.Augment {
		rng = augmentRand(audioPath, v.Background)
	}

	var out [][]float32
	emit := func(offset int) error {
		frame := samples[offset : offset+frameLen]
		if rng != nil {
			frame = augment(frame, rng)
		}
		vec, ok := e.encode(inputType, frame, info.SampleRate)
		if !ok {
			return fmt.Errorf("encode %s frame at sample %d as %q", audioPath, offset, inputType)
		}
		out = append(out, vec)
		return nil
	}

	for _, span := range spans {
		start := sampleIndex(span.Start, info.SampleRate)
		end := sampleIndex(span.End, info.SampleRate)
		if end > len(samples) {
			end = len(samples)
		}
		for offset := start; offset+frameLen <= end; offset += frameLen {
			if err := emit(offset); err != nil {
				return nil, err
			}
		}
		if v.Oversample {
			for offset := start + frameLen/2; offset+frameLen <= end; offset += frameLen {
				if err := emit(offset); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func sampleIndex(at time.Duration, sampleRate int) int {
	return int(int64(at) * int64(sampleRate) / int64(time.Second))
}

// augmentRand is seeded from the recording so repeated runs augment identically.
func augmentRand(audioPath string, background bool) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(audioPath))
	seed := h.Sum64()
	if background {
		seed ^= 0x9e3779b97f4a7c15
	}
	return rand.New(rand.NewPCG(seed, seed>>1))
}

// augment applies a random gain and low-level white noise.
func augment(frame []float64, rng *rand.Rand) []float64 {
	gain := 0.8 + rng.Float64()*0.4
	out := make([]float64, len(frame))
	for i, s := range frame {
		out[i] = s*gain + rng.NormFloat64()*0.005
	}
	return out
}
