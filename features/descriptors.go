package features

import (
	"math"
)

// Input types understood by Encode.
const (
	// InputMFSC is the log energy of melBandCount mel-spaced bands.
	InputMFSC = "mfsc"
	// InputSpectral is a compact set of temporal and spectral descriptors.
	InputSpectral = "spectral"
)

const melBandCount = 40

// Supported reports whether Encode understands inputType.
func Supported(inputType string) bool {
	return inputType == InputMFSC || inputType == InputSpectral
}

// Encode turns one frame of mono samples into a feature vector.
func Encode(inputType string, frame []float64, sampleRate int) ([]float32, bool) {
	switch inputType {
	case InputMFSC:
		return melSpectrum(frame, sampleRate, melBandCount), true
	case InputSpectral:
		return spectralDescriptor(frame, sampleRate), true
	default:
		return nil, false
	}
}

func hzToMel(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// melSpectrum applies a triangular mel filterbank to the magnitude spectrum
// and returns log band energies.
func melSpectrum(frame []float64, sampleRate int, bands int) []float32 {
	magnitude, freqs := computeSpectrum(frame, sampleRate)
	out := make([]float32, bands)
	if len(magnitude) == 0 {
		return out
	}

	maxMel := hzToMel(float64(sampleRate) / 2)
	edges := make([]float64, bands+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(bands+1))
	}

	for b := 0; b < bands; b++ {
		lo, centre, hi := edges[b], edges[b+1], edges[b+2]
		var energy float64
		for i, f := range freqs {
			var weight float64
			switch {
			case f > lo && f <= centre:
				weight = (f - lo) / (centre - lo)
			case f > centre && f < hi:
				weight = (hi - f) / (hi - centre)
			default:
				continue
			}
			energy += weight * magnitude[i] * magnitude[i]
		}
		out[b] = float32(math.Log(energy + 1e-10))
	}
	return out
}

// spectralDescriptor is energy, zero crossing rate, centroid, bandwidth,
// rolloff, flatness, crest factor, entropy and dominant frequency. Frequency
// features are divided by the Nyquist frequency.
func spectralDescriptor(frame []float64, sampleRate int) []float32 {
	magnitude, freqs := computeSpectrum(frame, sampleRate)
	centroid := spectralCentroid(magnitude, freqs)
	nyquist := float64(sampleRate) / 2

	values := []float64{
		rootMeanSquare(frame),
		zeroCrossingRate(frame),
		centroid / nyquist,
		spectralBandwidth(magnitude, freqs, centroid) / nyquist,
		spectralRolloff(magnitude, freqs, 0.85) / nyquist,
		spectralFlatness(magnitude),
		clamp01(spectralCrestFactor(magnitude) / 100.0),
		spectralEntropy(magnitude),
		dominantFrequency(magnitude, freqs) / nyquist,
	}
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

func rootMeanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) <= 1 {
		return 0
	}
	var count float64
	for i := 1; i < len(samples); i++ {
		if samples[i-1] == 0 || samples[i] == 0 {
			continue
		}
		if (samples[i-1] > 0) != (samples[i] > 0) {
			count++
		}
	}
	return count / float64(len(samples)-1)
}

func spectralCentroid(magnitude, freqs []float64) float64 {
	var weightedSum, total float64
	for i := range magnitude {
		weightedSum += magnitude[i] * freqs[i]
		total += magnitude[i]
	}
	if total == 0 {
		return 0
	}
	return weightedSum / total
}

func spectralBandwidth(magnitude, freqs []float64, centroid float64) float64 {
	var variance, total float64
	for i := range magnitude {
		deviation := freqs[i] - centroid
		variance += magnitude[i] * deviation * deviation
		total += magnitude[i]
	}
	if total == 0 {
		return 0
	}
	return math.Sqrt(variance / total)
}

func spectralRolloff(magnitude, freqs []float64, threshold float64) float64 {
	if len(magnitude) == 0 {
		return 0
	}
	var total float64
	for _, mag := range magnitude {
		total += mag
	}
	if total == 0 {
		return freqs[len(freqs)-1]
	}

	target := threshold * total
	var cumulative float64
	for i, mag := range magnitude {
		cumulative += mag
		if cumulative >= target {
			return freqs[i]
		}
	}
	return freqs[len(freqs)-1]
}

func spectralFlatness(magnitude []float64) float64 {
	if len(magnitude) == 0 {
		return 0
	}
	const eps = 1e-12
	var logSum, arithmetic float64
	for _, mag := range magnitude {
		value := mag + eps
		logSum += math.Log(value)
		arithmetic += value
	}
	n := float64(len(magnitude))
	return math.Exp(logSum/n) / (arithmetic / n)
}

func spectralCrestFactor(magnitude []float64) float64 {
	if len(magnitude) == 0 {
		return 0
	}
	maxVal := magnitude[0]
	var sum float64
	for _, mag := range magnitude {
		if mag > maxVal {
			maxVal = mag
		}
		sum += mag
	}
	mean := sum / float64(len(magnitude))
	if mean == 0 {
		return 0
	}
	return maxVal / mean
}

func spectralEntropy(magnitude []float64) float64 {
	if len(magnitude) <= 1 {
		return 0
	}
	var powerSum float64
	for _, mag := range magnitude {
		powerSum += mag * mag
	}
	if powerSum == 0 {
		return 0
	}

	var entropy float64
	for _, mag := range magnitude {
		if p := (mag * mag) / powerSum; p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy / math.Log2(float64(len(magnitude)))
}

func dominantFrequency(magnitude, freqs []float64) float64 {
	if len(magnitude) == 0 {
		return 0
	}
	idx := 0
	for i, mag := range magnitude {
		if mag > magnitude[idx] {
			idx = i
		}
	}
	return freqs[idx]
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
