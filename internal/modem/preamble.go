package modem

// Preamble holds the two fixed OFDM symbols spec.md §3 mandates, plus the
// pilot table, all derived from the same seeded LCG so sender and receiver
// compute byte-identical tables without exchanging them.
type Preamble struct {
	layout *Layout

	Symbol1      []float64    // Schmidl-Cox symbol: second half == first half
	Symbol2      []float64    // training symbol, known on every data+pilot bin
	Symbol2Known []complex128 // the known frequency-domain values of Symbol2
	PilotValues  map[int]complex128
}

// BuildPreamble generates the preamble and pilot tables for layout from
// seed. Both ends of the link must call this with the same (layout, seed)
// to agree on the tables (spec.md §3 invariant (iii), §6).
func BuildPreamble(layout *Layout, seed uint32) *Preamble {
	active := activeBins(layout)

	rng1 := newLCG(seed ^ 0x53310001)
	spec1 := make([]complex128, layout.FFTSize)
	for _, k := range active {
		if k%2 == 0 {
			spec1[k] = rng1.bpsk()
		}
	}
	applyHermitianSymmetry(spec1)
	td1 := RealIFFT(spec1)
	sym1 := addCyclicPrefix(td1, cpLen(layout))
	scaleByActiveBins(sym1, len(active))

	rng2 := newLCG(seed ^ 0x53310002)
	spec2 := make([]complex128, layout.FFTSize)
	known := make([]complex128, layout.FFTSize)
	for _, k := range active {
		v := rng2.bpsk()
		spec2[k] = v
		known[k] = v
	}
	applyHermitianSymmetry(spec2)
	td2 := RealIFFT(spec2)
	sym2 := addCyclicPrefix(td2, cpLen(layout))
	scaleByActiveBins(sym2, len(active))

	rngPilot := newLCG(seed ^ 0x53310003)
	pilots := make(map[int]complex128, len(layout.PilotBins))
	for _, k := range layout.PilotBins {
		// BPSK ±1/√2, constant across every symbol (spec.md §4.6).
		sign := rngPilot.bpsk()
		pilots[k] = sign * complex(1/sqrtTwo, 0)
	}

	return &Preamble{
		layout:       layout,
		Symbol1:      sym1,
		Symbol2:      sym2,
		Symbol2Known: known,
		PilotValues:  pilots,
	}
}

const sqrtTwo = 1.4142135623730951

func cpLen(l *Layout) int {
	return l.FFTSize / 4
}

// CPLen exports the cyclic prefix length for layout, for callers outside
// this package that need to strip it from a raw received symbol (e.g. the
// codec package estimating a channel from a training symbol).
func CPLen(l *Layout) int {
	return cpLen(l)
}

func activeBins(l *Layout) []int {
	active := make([]int, 0, len(l.DataBins)+len(l.PilotBins))
	active = append(active, l.DataBins...)
	active = append(active, l.PilotBins...)
	// ascending order, matches the fixed scan order spec.md §3 requires
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && active[j-1] > active[j]; j-- {
			active[j-1], active[j] = active[j], active[j-1]
		}
	}
	return active
}
