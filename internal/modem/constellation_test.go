package modem

import "testing"

func TestConstellation_MapDemap_AllPoints(t *testing.T) {
	c := NewConstellation()

	for i := 0; i < 64; i++ {
		bits := make([]byte, BitsPerSymbol)
		for j := 0; j < BitsPerSymbol; j++ {
			bits[j] = byte((i >> (BitsPerSymbol - 1 - j)) & 1)
		}

		symbol := c.Map(bits)
		recovered := c.Demap(symbol)

		for j := range bits {
			if bits[j] != recovered[j] {
				t.Errorf("point %06b: bit %d mismatch: %d != %d", i, j, bits[j], recovered[j])
			}
		}
	}
}

func TestConstellation_UnitAveragePower(t *testing.T) {
	c := NewConstellation()

	var sumPower float64
	for i := 0; i < 64; i++ {
		bits := make([]byte, BitsPerSymbol)
		for j := 0; j < BitsPerSymbol; j++ {
			bits[j] = byte((i >> (BitsPerSymbol - 1 - j)) & 1)
		}
		s := c.Map(bits)
		sumPower += real(s)*real(s) + imag(s)*imag(s)
	}
	avg := sumPower / 64

	if avg < 0.99 || avg > 1.01 {
		t.Errorf("average constellation power = %v, want ~1.0", avg)
	}
}

func TestConstellation_MapBits_DemapSymbols(t *testing.T) {
	c := NewConstellation()

	bits := []byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0, 0}
	symbols := c.MapBits(bits)
	recovered := c.DemapSymbols(symbols)

	if len(recovered) != len(bits) {
		t.Fatalf("length mismatch: %d != %d", len(recovered), len(bits))
	}
	for i := range bits {
		if bits[i] != recovered[i] {
			t.Errorf("bit %d: %d != %d", i, bits[i], recovered[i])
		}
	}
}

func TestGrayAdjacency(t *testing.T) {
	// Adjacent physical positions must differ by exactly one bit in label.
	for pos := 0; pos < qamLevels-1; pos++ {
		a := grayLabel(pos)
		b := grayLabel(pos + 1)
		diff := 0
		for i := range a {
			if a[i] != b[i] {
				diff++
			}
		}
		if diff != 1 {
			t.Errorf("positions %d,%d: labels differ in %d bits, want 1", pos, pos+1, diff)
		}
	}
}
