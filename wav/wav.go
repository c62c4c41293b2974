package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// WavInfo describes a decoded RIFF/WAVE file. Data holds the raw PCM bytes.
type WavInfo struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	Data          []byte
}

// Duration in seconds of the PCM payload.
func (w *WavInfo) Duration() float64 {
	frameBytes := w.Channels * w.BitsPerSample / 8
	if frameBytes == 0 || w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Data)/frameBytes) / float64(w.SampleRate)
}

// ReadWavInfo loads and decodes the wav file at path.
func ReadWavInfo(fsys afero.Fs, path string) (*WavInfo, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read wav %s: %w", path, err)
	}
	info, err := DecodeWavInfo(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}
	return info, nil
}

// DecodeWavInfo parses the fmt and data chunks of a PCM wav stream.
func DecodeWavInfo(r io.Reader) (*WavInfo, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	info := &WavInfo{}
	sawFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, errors.New("fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return nil, fmt.Errorf("unsupported audio format %d (only PCM)", format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			sawFormat = true
		case "data":
			data := make([]byte, size)
			n, err := io.ReadFull(r, data)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("read data chunk: %w", err)
			}
			info.Data = data[:n]
			if !sawFormat {
				return nil, errors.New("data chunk before fmt chunk")
			}
			return info, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
		if size%2 == 1 && id == "fmt " {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return nil, err
			}
		}
	}
	return nil, errors.New("no data chunk")
}

// WavBytesToSamples converts interleaved 16-bit PCM to floats in [-1, 1).
func WavBytesToSamples(data []byte) ([]float64, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("invalid 16-bit pcm payload length")
	}
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples, nil
}

// MonoSamples decodes the payload and averages channels into one.
func (w *WavInfo) MonoSamples() ([]float64, error) {
	if w.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", w.BitsPerSample)
	}
	samples, err := WavBytesToSamples(w.Data)
	if err != nil {
		return nil, err
	}
	if w.Channels <= 1 {
		return samples, nil
	}
	mono := make([]float64, len(samples)/w.Channels)
	for i := range mono {
		sum := 0.0
		for c := 0; c < w.Channels; c++ {
			sum += samples[i*w.Channels+c]
		}
		mono[i] = sum / float64(w.Channels)
	}
	return mono, nil
}

// WriteWavFile writes a canonical 44-byte header followed by data.
func WriteWavFile(fsys afero.Fs, path string, data []byte, sampleRate, channels, bitsPerSample int) error {
	if sampleRate <= 0 || channels <= 0 || bitsPerSample <= 0 {
		return errors.New("values must be greater than zero")
	}

	var buf bytes.Buffer
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return afero.WriteFile(fsys, path, buf.Bytes(), 0o644)
}

// SamplesToBytes encodes floats in [-1, 1] as 16-bit little-endian PCM.
func SamplesToBytes(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}
