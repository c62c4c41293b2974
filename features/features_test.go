package features

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coding-garden-1/parrot-sans-pyaudio/models"
	"github.com/coding-garden-1/parrot-sans-pyaudio/wav"
)

const testRate = 8000

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

func TestFFTFindsTone(t *testing.T) {
	t.Parallel()

	spectrum := FFT(sine(1000, 256))
	require.Len(t, spectrum, 256)

	peak := 0
	for i := 1; i < 128; i++ {
		if cmplx.Abs(spectrum[i]) > cmplx.Abs(spectrum[peak]) {
			peak = i
		}
	}
	// 1000 Hz at 8000 Hz / 256 bins
	assert.Equal(t, 32, peak)
}

func TestEncodeShapes(t *testing.T) {
	t.Parallel()

	frame := sine(440, 240)

	mfsc, ok := Encode(InputMFSC, frame, testRate)
	require.True(t, ok)
	assert.Len(t, mfsc, melBandCount)

	spectral, ok := Encode(InputSpectral, frame, testRate)
	require.True(t, ok)
	require.Len(t, spectral, 9)
	assert.InDelta(t, 0.5/math.Sqrt2, spectral[0], 0.01)
	assert.InDelta(t, 440.0/4000.0, spectral[8], 0.01)

	_, ok = Encode("raw", frame, testRate)
	assert.False(t, ok)
	assert.False(t, Supported("raw"))
}

func writeFixture(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, wav.WriteWavFile(fsys, "take.wav", wav.SamplesToBytes(sine(440, 4800)), testRate, 1, 16))
	segments := "1\n00:00:00,000 --> 00:00:00,300\nclick\n\n" +
		"2\n00:00:00,500 --> 00:00:00,560\nclick\n"
	require.NoError(t, afero.WriteFile(fsys, "take.v1.srt", []byte(segments), 0o644))
	return fsys
}

func TestExtractVariants(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(writeFixture(t), 30, "silence")

	raw, err := ex.Extract("take.v1.srt", "take.wav", InputMFSC, models.Variant{})
	require.NoError(t, err)
	assert.Len(t, raw, 12)

	over, err := ex.Extract("take.v1.srt", "take.wav", InputMFSC, models.Variant{Oversample: true})
	require.NoError(t, err)
	assert.Len(t, over, 22)

	aug, err := ex.Extract("take.v1.srt", "take.wav", InputMFSC, models.Variant{Augment: true})
	require.NoError(t, err)
	require.Len(t, aug, len(raw))
	assert.NotEqual(t, raw[0], aug[0])

	again, err := ex.Extract("take.v1.srt", "take.wav", InputMFSC, models.Variant{Augment: true})
	require.NoError(t, err)
	assert.Equal(t, aug, again, "augmentation is reproducible")

	bg, err := ex.Extract("take.v1.srt", "take.wav", InputSpectral, models.Variant{Background: true})
	require.NoError(t, err)
	assert.Len(t, bg, 6)

	bgAug, err := ex.Extract("take.v1.srt", "take.wav", InputSpectral, models.Variant{Background: true, Augment: true})
	require.NoError(t, err)
	assert.Len(t, bgAug, len(bg))
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(writeFixture(t), 30, "silence")

	_, err := ex.Extract("take.v1.srt", "take.wav", "raw", models.Variant{})
	assert.Error(t, err)

	_, err = ex.Extract("missing.srt", "take.wav", InputMFSC, models.Variant{})
	assert.Error(t, err)

	_, err = ex.Extract("take.v1.srt", "missing.wav", InputMFSC, models.Variant{})
	assert.Error(t, err)
}

func TestExtractFailsWhenEncodingFails(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(writeFixture(t), 30, "silence")
	calls := 0
	ex.encode = func(inputType string, frame []float64, sampleRate int) ([]float32, bool) {
		calls++
		if calls == 3 {
			return nil, false
		}
		return Encode(inputType, frame, sampleRate)
	}

	out, err := ex.Extract("take.v1.srt", "take.wav", InputMFSC, models.Variant{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "take.wav")
	assert.Nil(t, out, "no partial frame list is returned")
	assert.Equal(t, 3, calls)
}
