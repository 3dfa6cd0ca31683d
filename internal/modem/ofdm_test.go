package modem

import (
	"math"
	"testing"
)

func testLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout(48000, 256, 18000, 21800, 8)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return l
}

func TestOFDM_ModDemod_Loopback_NoChannel(t *testing.T) {
	layout := testLayout(t)
	preamble := BuildPreamble(layout, DefaultSeed)

	mod := NewModulator(layout, preamble)
	demod := NewDemodulator(layout, preamble)

	// Ideal channel: nothing but the modulator's fixed gain (the IFFT's own
	// scale times scaleByActiveBins) lies between the two ends, so the ideal
	// estimate is the known training spectrum times that gain on every bin.
	unit := make([]complex128, layout.FFTSize)
	unit[0] = 1
	active := len(layout.DataBins) + len(layout.PilotBins)
	gain := FFT(IFFT(unit))[0] * complex(ToneAmplitude/math.Sqrt(float64(active)), 0)
	ideal := make([]complex128, len(preamble.Symbol2Known))
	for k, v := range preamble.Symbol2Known {
		ideal[k] = v * gain
	}
	demod.SetChannelEstimate(ideal)

	perSymbol := len(layout.DataBins) * BitsPerSymbol
	bits := make([]byte, perSymbol*3)
	for i := range bits {
		bits[i] = byte((i * 7) % 2)
	}

	samples, err := mod.Modulate(bits)
	if err != nil {
		t.Fatalf("Modulate: %v", err)
	}

	recovered, phase := demod.Demodulate(samples)
	if len(recovered) != len(bits) {
		t.Fatalf("recovered %d bits, want %d", len(recovered), len(bits))
	}
	for i := range bits {
		if bits[i] != recovered[i] {
			t.Fatalf("bit %d mismatch: got %d want %d", i, recovered[i], bits[i])
		}
	}
	if absFloat(phase) > 1e-6 {
		t.Errorf("residual phase %v on a noiseless channel, want ~0", phase)
	}
}

// TestOFDM_ModDemod_Loopback_RealChannelEstimate exercises the same path
// DecodeStream does: the channel estimate comes from FFTing the actual
// transmitted (and scaled) Symbol2 waveform, not the ideal known spectrum.
// On a noiseless channel this must recover bits exactly, which only holds
// if the preamble and every data symbol share the same fixed IFFT gain.
func TestOFDM_ModDemod_Loopback_RealChannelEstimate(t *testing.T) {
	layout := testLayout(t)
	preamble := BuildPreamble(layout, DefaultSeed)

	mod := NewModulator(layout, preamble)
	demod := NewDemodulator(layout, preamble)

	cp := CPLen(layout)
	sym2Spectrum := RealFFT(preamble.Symbol2[cp:])
	demod.SetChannelEstimate(sym2Spectrum)

	perSymbol := len(layout.DataBins) * BitsPerSymbol
	bits := make([]byte, perSymbol*3)
	for i := range bits {
		bits[i] = byte((i * 5) % 2)
	}

	samples, err := mod.Modulate(bits)
	if err != nil {
		t.Fatalf("Modulate: %v", err)
	}

	recovered, phase := demod.Demodulate(samples)
	if len(recovered) != len(bits) {
		t.Fatalf("recovered %d bits, want %d", len(recovered), len(bits))
	}
	for i := range bits {
		if bits[i] != recovered[i] {
			t.Fatalf("bit %d mismatch: got %d want %d (preamble/data gain mismatch)", i, recovered[i], bits[i])
		}
	}
	if absFloat(phase) > 1e-6 {
		t.Errorf("residual phase %v on a noiseless channel, want ~0", phase)
	}
}

func TestOFDM_BytesPerSymbol_MultipleOf4(t *testing.T) {
	layout := testLayout(t)
	if len(layout.DataBins)%4 != 0 {
		t.Fatalf("K=%d not a multiple of 4", len(layout.DataBins))
	}
	bps := layout.BytesPerSymbol()
	if bps*8 != len(layout.DataBins)*BitsPerSymbol {
		t.Errorf("bytes per symbol %d inconsistent with K=%d", bps, len(layout.DataBins))
	}
}
