package wav

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadMono(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	samples := []float64{0, 0.5, -0.5, 0.25}
	require.NoError(t, WriteWavFile(fsys, "take.wav", SamplesToBytes(samples), 16000, 1, 16))

	info, err := ReadWavInfo(fsys, "take.wav")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 16, info.BitsPerSample)
	assert.InDelta(t, 4.0/16000.0, info.Duration(), 1e-12)

	decoded, err := info.MonoSamples()
	require.NoError(t, err)
	require.Len(t, decoded, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], decoded[i], 1e-3)
	}
}

func TestStereoIsDownmixed(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	interleaved := []float64{0.5, -0.5, 0.2, 0.4}
	require.NoError(t, WriteWavFile(fsys, "stereo.wav", SamplesToBytes(interleaved), 8000, 2, 16))

	info, err := ReadWavInfo(fsys, "stereo.wav")
	require.NoError(t, err)
	mono, err := info.MonoSamples()
	require.NoError(t, err)
	require.Len(t, mono, 2)
	assert.InDelta(t, 0.0, mono[0], 1e-3)
	assert.InDelta(t, 0.3, mono[1], 1e-3)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeWavInfo(bytes.NewReader([]byte("definitely not a wav")))
	assert.Error(t, err)

	_, err = WavBytesToSamples([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadWavInfo(afero.NewMemMapFs(), "missing.wav")
	assert.Error(t, err)
}
