package modem

import "fmt"

// Modulator turns 6-bit-grouped data onto one layout's subcarriers
// (spec.md §4.6).
type Modulator struct {
	layout        *Layout
	preamble      *Preamble
	constellation *Constellation
	cp            int
}

// NewModulator creates an OFDM modulator for layout, using preamble's pilot
// table.
func NewModulator(layout *Layout, preamble *Preamble) *Modulator {
	return &Modulator{
		layout:        layout,
		preamble:      preamble,
		constellation: NewConstellation(),
		cp:            cpLen(layout),
	}
}

// ModulateSymbol maps one symbol's worth of bits (len == layout data bins *
// 6) onto the subcarrier spectrum, IFFTs, and adds the cyclic prefix.
func (m *Modulator) ModulateSymbol(bits []byte) ([]float64, error) {
	want := len(m.layout.DataBins) * BitsPerSymbol
	if len(bits) != want {
		return nil, fmt.Errorf("modulate: got %d bits, want %d", len(bits), want)
	}

	dataSymbols := m.constellation.MapBits(bits)
	spectrum := make([]complex128, m.layout.FFTSize)
	for i, bin := range m.layout.DataBins {
		spectrum[bin] = dataSymbols[i]
	}
	for bin, v := range m.preamble.PilotValues {
		spectrum[bin] = v
	}
	applyHermitianSymmetry(spectrum)

	td := RealIFFT(spectrum)
	withCP := addCyclicPrefix(td, m.cp)
	scaleByActiveBins(withCP, len(m.layout.DataBins)+len(m.layout.PilotBins))
	return withCP, nil
}

// Modulate maps a full bit stream (length a multiple of the per-symbol bit
// count) to a concatenated waveform of data symbols.
func (m *Modulator) Modulate(bits []byte) ([]float64, error) {
	perSymbol := len(m.layout.DataBins) * BitsPerSymbol
	if len(bits)%perSymbol != 0 {
		return nil, fmt.Errorf("modulate: %d bits not a multiple of %d", len(bits), perSymbol)
	}
	n := len(bits) / perSymbol
	out := make([]float64, 0, n*(m.layout.FFTSize+m.cp))
	for i := 0; i < n; i++ {
		sym, err := m.ModulateSymbol(bits[i*perSymbol : (i+1)*perSymbol])
		if err != nil {
			return nil, err
		}
		out = append(out, sym...)
	}
	return out, nil
}

// Demodulator recovers bits from OFDM symbols, given an already-estimated
// channel (spec.md §4.7 steps 4-5).
type Demodulator struct {
	layout        *Layout
	preamble      *Preamble
	constellation *Constellation
	equalizer     *Equalizer
	cp            int
	useMMSE       bool
	noisePower    float64
}

// NewDemodulator creates a demodulator for layout.
func NewDemodulator(layout *Layout, preamble *Preamble) *Demodulator {
	return &Demodulator{
		layout:        layout,
		preamble:      preamble,
		constellation: NewConstellation(),
		equalizer:     NewEqualizer(layout),
		cp:            cpLen(layout),
	}
}

// UseMMSE switches the demodulator to MMSE equalization with the given
// estimated noise power, instead of the default zero-forcing path (the
// teacher's EqualizeMMSE kept as a selectable strategy; see SPEC_FULL.md).
func (d *Demodulator) UseMMSE(noisePower float64) {
	d.useMMSE = true
	d.noisePower = noisePower
}

// SetChannelEstimate estimates H[k] from a received training symbol's
// spectrum against the known transmitted spectrum.
func (d *Demodulator) SetChannelEstimate(receivedSpectrum []complex128) {
	d.equalizer.EstimateChannel(receivedSpectrum, d.preamble.Symbol2Known)
}

// DemodulateSymbol strips the cyclic prefix, FFTs, equalizes, removes
// residual phase from the pilots, and demaps one symbol's bits. It returns
// the residual phase it measured, for SyncLost detection.
func (d *Demodulator) DemodulateSymbol(samples []float64) ([]byte, float64) {
	withoutCP := removeCyclicPrefix(samples, d.cp)
	spectrum := FFT(toComplex(withoutCP))

	var equalized []complex128
	if d.useMMSE {
		equalized = d.equalizer.EqualizeMMSE(spectrum, d.noisePower)
	} else {
		equalized = d.equalizer.Equalize(spectrum)
	}

	receivedPilots := make(map[int]complex128, len(d.layout.PilotBins))
	for _, bin := range d.layout.PilotBins {
		receivedPilots[bin] = equalized[bin]
	}
	phase := ResidualPhase(receivedPilots, d.preamble.PilotValues)

	dataSymbols := make([]complex128, len(d.layout.DataBins))
	for i, bin := range d.layout.DataBins {
		dataSymbols[i] = equalized[bin]
	}
	corrected := CorrectPhase(dataSymbols, phase)

	return d.constellation.DemapSymbols(corrected), phase
}

// Demodulate recovers bits from a concatenated run of data symbols and
// reports the worst (largest-magnitude) residual phase it saw across all
// symbols, for the caller to compare against MaxResidualPhase.
func (d *Demodulator) Demodulate(samples []float64) ([]byte, float64) {
	symLen := d.layout.FFTSize + d.cp
	n := len(samples) / symLen

	var allBits []byte
	var worstPhase float64
	for i := 0; i < n; i++ {
		bits, phase := d.DemodulateSymbol(samples[i*symLen : (i+1)*symLen])
		allBits = append(allBits, bits...)
		if absFloat(phase) > absFloat(worstPhase) {
			worstPhase = phase
		}
	}
	return allBits, worstPhase
}
