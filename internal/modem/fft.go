package modem

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fftPlan wraps a gonum CmplxFFT plan. Per spec.md §5, FFT plans are
// precomputed, immutable, and shared across frames and threads — planForSize
// memoizes one plan per transform length instead of rebuilding it per call.
var (
	planMu    sync.Mutex
	planCache = map[int]*fourier.CmplxFFT{}
)

func planForSize(n int) *fourier.CmplxFFT {
	planMu.Lock()
	defer planMu.Unlock()
	if p, ok := planCache[n]; ok {
		return p
	}
	p := fourier.NewCmplxFFT(n)
	planCache[n] = p
	return p
}

// FFT computes the forward discrete Fourier transform of x.
func FFT(x []complex128) []complex128 {
	if len(x) <= 1 {
		out := make([]complex128, len(x))
		copy(out, x)
		return out
	}
	return planForSize(len(x)).Coefficients(nil, x)
}

// IFFT computes the inverse discrete Fourier transform of x, normalized
// by 1/N.
func IFFT(x []complex128) []complex128 {
	if len(x) <= 1 {
		out := make([]complex128, len(x))
		copy(out, x)
		return out
	}
	return planForSize(len(x)).Sequence(nil, x)
}

// RealFFT performs a forward FFT on real-valued input.
func RealFFT(x []float64) []complex128 {
	return FFT(toComplex(x))
}

// RealIFFT performs an IFFT and returns only the real part.
func RealIFFT(x []complex128) []float64 {
	result := IFFT(x)
	out := make([]float64, len(result))
	for i, v := range result {
		out[i] = real(v)
	}
	return out
}

func toComplex(samples []float64) []complex128 {
	out := make([]complex128, len(samples))
	for i, s := range samples {
		out[i] = complex(s, 0)
	}
	return out
}

func addCyclicPrefix(samples []float64, cpLen int) []float64 {
	n := len(samples)
	result := make([]float64, cpLen+n)
	copy(result, samples[n-cpLen:])
	copy(result[cpLen:], samples)
	return result
}

func removeCyclicPrefix(samples []float64, cpLen int) []float64 {
	if len(samples) <= cpLen {
		return samples
	}
	return samples[cpLen:]
}

func applyHermitianSymmetry(spectrum []complex128) {
	n := len(spectrum)
	for k := 1; k < n/2; k++ {
		spectrum[n-k] = cmplx.Conj(spectrum[k])
	}
	spectrum[0] = 0
	spectrum[n/2] = complex(real(spectrum[n/2]), 0)
}

// scaleByActiveBins applies the fixed 1/√K IFFT gain (K = the number of
// modulated subcarriers) shared identically by every symbol in a frame,
// preamble or data. Unlike a per-symbol peak normalization, this scale
// does not depend on the particular samples produced, so the channel
// estimate the receiver derives from the preamble stays valid for every
// data symbol that follows it.
func scaleByActiveBins(samples []float64, k int) {
	if k <= 0 {
		return
	}
	scale := ToneAmplitude / math.Sqrt(float64(k))
	for i := range samples {
		samples[i] *= scale
	}
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
