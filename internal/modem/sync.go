package modem

import (
	"math"
	"math/cmplx"
)

// Detection thresholds from spec.md §4.7.
const (
	CoarseDetectThreshold = 0.75
	MaxResidualPhase      = math.Pi / 4
)

// Detector implements the coarse/fine/CFO pipeline of spec.md §4.7 against
// a layout's symbol geometry and preamble tables.
type Detector struct {
	layout   *Layout
	preamble *Preamble
	symLen   int // N + L
}

// NewDetector builds a detector for layout using preamble's known symbols.
func NewDetector(layout *Layout, preamble *Preamble) *Detector {
	return &Detector{
		layout:   layout,
		preamble: preamble,
		symLen:   layout.FFTSize + cpLen(layout),
	}
}

// CoarseDetect implements spec.md §4.7 step 1: a Schmidl-Cox metric
// P(d) = |Σ r[d+k]·conj(r[d+k+N/2])| / Σ|r[d+k+N/2]|² over window N/2,
// declaring a candidate at the rising edge of the first run that stays
// above CoarseDetectThreshold for at least N/4 samples.
func (d *Detector) CoarseDetect(signal []float64) (start int, ok bool) {
	half := d.layout.FFTSize / 2
	persistNeeded := d.layout.FFTSize / 4

	if len(signal) < d.symLen+half {
		return 0, false
	}

	runStart := -1
	runLen := 0

	for n := 0; n+half+half <= len(signal); n++ {
		metric := schmidlCoxMetric(signal, n, half)
		if metric > CoarseDetectThreshold {
			if runStart < 0 {
				runStart = n
			}
			runLen++
			if runLen >= persistNeeded {
				return runStart, true
			}
		} else {
			runStart = -1
			runLen = 0
		}
	}
	return 0, false
}

func schmidlCoxMetric(signal []float64, d, half int) float64 {
	var pSum, rSum float64
	for m := 0; m < half; m++ {
		a := signal[d+m]
		b := signal[d+m+half]
		pSum += a * b
		rSum += b * b
	}
	if rSum <= 0 {
		return 0
	}
	return math.Abs(pSum) / rSum
}

// FineTiming implements spec.md §4.7 step 2: cross-correlate the N+L
// samples following the coarse candidate against the known second preamble
// symbol, returning the argmax offset (the symbol boundary, ±1 sample).
func (d *Detector) FineTiming(signal []float64, coarseStart int) (int, bool) {
	searchSpan := d.symLen // allow the boundary to land anywhere in this span
	known := d.preamble.Symbol2

	bestOffset := -1
	bestCorr := -1.0

	for off := -searchSpan / 2; off <= searchSpan/2; off++ {
		idx := coarseStart + d.symLen + off
		if idx < 0 || idx+len(known) > len(signal) {
			continue
		}
		var corr, normA, normB float64
		for i, k := range known {
			a := signal[idx+i]
			corr += a * k
			normA += a * a
			normB += k * k
		}
		if normA <= 0 || normB <= 0 {
			continue
		}
		norm := corr * corr / (normA * normB)
		if norm > bestCorr {
			bestCorr = norm
			bestOffset = idx
		}
	}
	if bestOffset < 0 {
		return 0, false
	}
	return bestOffset, true
}

// EstimateCFO implements spec.md §4.7 step 3: the angle of the
// autocorrelation at lag N/2 over the symbol starting at start gives the
// fractional carrier-frequency offset, in radians per sample.
func EstimateCFO(signal []float64, start, fftSize int) float64 {
	half := fftSize / 2
	if start+fftSize > len(signal) {
		return 0
	}
	var re, im float64
	for m := 0; m < half; m++ {
		// Treat the signal as analytic via its own delayed copy: the
		// autocorrelation phase at lag N/2 is what the repeated-half
		// Schmidl-Cox structure makes observable from a real signal.
		a := complex(signal[start+m], 0)
		b := complex(signal[start+m+half], 0)
		p := a * cmplx.Conj(b)
		re += real(p)
		im += imag(p)
	}
	angle := math.Atan2(im, re)
	return angle / float64(half)
}

// Derotate removes a cumulative phase of cfoPerSample*n at sample n,
// counting from offset (spec.md §4.7 step 3: "derotate the rest of the
// frame by its cumulative phase").
func Derotate(samples []float64, cfoPerSample float64, offset int) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		phase := cfoPerSample * float64(offset+i)
		out[i] = s * math.Cos(phase)
	}
	return out
}

// ResidualPhase computes the least-squares common phase error across a set
// of received pilot values against their known transmitted values
// (spec.md §4.7 step 5).
func ResidualPhase(received, known map[int]complex128) float64 {
	var sumAngle float64
	count := 0
	for k, rx := range received {
		kn, ok := known[k]
		if !ok || kn == 0 {
			continue
		}
		diff := rx * cmplx.Conj(kn)
		sumAngle += math.Atan2(imag(diff), real(diff))
		count++
	}
	if count == 0 {
		return 0
	}
	return sumAngle / float64(count)
}

// CorrectPhase rotates every symbol in data by -phase.
func CorrectPhase(data []complex128, phase float64) []complex128 {
	rot := cmplx.Exp(complex(0, -phase))
	out := make([]complex128, len(data))
	for i, s := range data {
		out[i] = s * rot
	}
	return out
}
