package modem

import (
	"fmt"

	"github.com/sonic-link/soniclink/internal/errs"
)

// Layout is the fixed assignment of FFT bins to data, pilot, and null
// subcarriers. It is a pure function of (sample rate, FFT size, band,
// pilot spacing) — spec.md §3 invariant (iv) — so sender and receiver
// derive an identical layout from the same Config without exchanging it.
type Layout struct {
	FFTSize      int
	SampleRate   int
	BandLow      int
	BandHigh     int
	PilotSpacing int

	DataBins  []int // ascending frequency order
	PilotBins []int
	FirstBin  int
	LastBin   int
}

// BytesPerSymbol is (K * bitsPerQAMSymbol) / 8. QAM order is fixed at 64
// (6 bits/symbol) per spec.md §6, so this is always K*6/8.
func (l *Layout) BytesPerSymbol() int {
	return (len(l.DataBins) * bitsPer64QAMSymbol) / 8
}

const bitsPer64QAMSymbol = 6

// NewLayout computes the subcarrier layout for the given parameters.
// It scans the contiguous range of bins falling strictly inside
// [bandLow, bandHigh] and marks every (pilotSpacing+1)-th bin a pilot,
// trailing off any partial final group as plain data. If the resulting
// data-bin count isn't a multiple of 4 (so that K*6 isn't a multiple of 8),
// trailing data bins are demoted to null until it is.
func NewLayout(sampleRate, fftSize, bandLow, bandHigh, pilotSpacing int) (*Layout, error) {
	if fftSize <= 0 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: fft_size %d must be a power of two", errs.ErrInvalidConfig, fftSize)
	}
	if bandLow <= 0 || bandHigh <= bandLow {
		return nil, fmt.Errorf("%w: invalid band [%d, %d]", errs.ErrInvalidConfig, bandLow, bandHigh)
	}
	if pilotSpacing <= 0 {
		return nil, fmt.Errorf("%w: pilot_spacing must be positive", errs.ErrInvalidConfig)
	}

	binHz := float64(sampleRate) / float64(fftSize)
	nyquist := fftSize / 2

	var candidates []int
	for k := 1; k < nyquist; k++ {
		freq := float64(k) * binHz
		if freq > float64(bandLow) && freq < float64(bandHigh) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no bins fall inside [%d, %d] Hz at %d Hz / N=%d",
			errs.ErrInvalidConfig, bandLow, bandHigh, sampleRate, fftSize)
	}

	l := &Layout{
		FFTSize:      fftSize,
		SampleRate:   sampleRate,
		BandLow:      bandLow,
		BandHigh:     bandHigh,
		PilotSpacing: pilotSpacing,
		FirstBin:     candidates[0],
		LastBin:      candidates[len(candidates)-1],
	}

	group := pilotSpacing + 1
	for i, bin := range candidates {
		if (i+1)%group == 0 {
			l.PilotBins = append(l.PilotBins, bin)
		} else {
			l.DataBins = append(l.DataBins, bin)
		}
	}

	for len(l.DataBins)%4 != 0 {
		l.DataBins = l.DataBins[:len(l.DataBins)-1]
	}
	if len(l.DataBins) == 0 {
		return nil, fmt.Errorf("%w: band [%d, %d] too narrow for any data subcarriers at N=%d",
			errs.ErrInvalidConfig, bandLow, bandHigh, fftSize)
	}

	return l, nil
}

// IsPilot reports whether bin is one of the layout's pilot bins.
func (l *Layout) IsPilot(bin int) bool {
	for _, p := range l.PilotBins {
		if p == bin {
			return true
		}
	}
	return false
}

// IsData reports whether bin is one of the layout's data bins.
func (l *Layout) IsData(bin int) bool {
	for _, d := range l.DataBins {
		if d == bin {
			return true
		}
	}
	return false
}
