package features

// Fast Fourier Transform (FFT)
//
// Recursive radix-2 Cooley-Tukey transform. Input length must be a power of
// two; callers zero-pad with nextPowerOfTwo.

import (
	"math"
	"math/cmplx"
)

// FFT returns the complex spectrum of a real signal.
func FFT(input []float64) []complex128 {
	complexArray := make([]complex128, len(input))
	for i, v := range input {
		complexArray[i] = complex(v, 0)
	}
	return recursiveFFT(complexArray)
}

func recursiveFFT(complexArray []complex128) []complex128 {
	N := len(complexArray)
	if N <= 1 {
		return complexArray
	}

	even := make([]complex128, N/2)
	odd := make([]complex128, N/2)
	for i := 0; i < N/2; i++ {
		even[i] = complexArray[2*i]
		odd[i] = complexArray[2*i+1]
	}

	even = recursiveFFT(even)
	odd = recursiveFFT(odd)

	fftResult := make([]complex128, N)
	for k := 0; k < N/2; k++ {
		t := cmplx.Rect(1, -2*math.Pi*float64(k)/float64(N))
		fftResult[k] = even[k] + t*odd[k]
		fftResult[k+N/2] = even[k] - t*odd[k]
	}

	return fftResult
}

// computeSpectrum windows samples, transforms them and returns the magnitude
// of the positive-frequency bins with each bin's centre frequency.
func computeSpectrum(samples []float64, sampleRate int) ([]float64, []float64) {
	fftSize := nextPowerOfTwo(len(samples))
	buffer := make([]float64, fftSize)
	copy(buffer, samples)
	applyHannWindow(buffer[:len(samples)])

	fft := FFT(buffer)
	binCount := fftSize / 2
	magnitude := make([]float64, binCount)
	freqs := make([]float64, binCount)

	for i := 0; i < binCount; i++ {
		magnitude[i] = cmplx.Abs(fft[i])
		freqs[i] = float64(i) * float64(sampleRate) / float64(fftSize)
	}

	return magnitude, freqs
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

func applyHannWindow(buffer []float64) {
	length := len(buffer)
	if length <= 1 {
		return
	}
	for i := range buffer {
		buffer[i] *= 0.5 * (1 - math.Cos((2*math.Pi*float64(i))/float64(length-1)))
	}
}
