package fec

import (
	"fmt"

	"github.com/sonic-link/soniclink/internal/errs"
)

// RS(255,223) parameters, per spec.md §4.3: 223 data bytes, 32 parity
// bytes, correcting up to 16 byte errors per 255-byte block.
const (
	DataShards   = 223
	ParityShards = 32
	BlockSize    = DataShards + ParityShards
	maxErrors    = ParityShards / 2
)

// Codec is a systematic Reed-Solomon(255,223) encoder/decoder over
// GF(2^8), with a Berlekamp-Massey/Chien/Forney decode path for errors at
// unknown byte positions (spec.md §4.3). The teacher's RSEncoder
// (internal/fec/reed_solomon.go, backed by klauspost/reedsolomon) only
// supports erasure-style reconstruction at known positions, so this codec
// is hand-written against the field algebra spec.md names, keeping the
// teacher's byte-per-shard, data-then-parity block layout.
type Codec struct {
	genPoly []byte // highest-degree-first, degree == ParityShards
}

// NewCodec builds the RS(255,223) generator polynomial
// g(x) = ∏_{i=1}^{ParityShards} (x - α^i).
func NewCodec() *Codec {
	g := []byte{1}
	for i := 1; i <= ParityShards; i++ {
		g = gfPolyMul(g, []byte{1, gfPow(2, i)})
	}
	return &Codec{genPoly: g}
}

// EncodeBlock computes the 32 parity bytes for exactly DataShards data
// bytes and returns the full 255-byte codeword (data ‖ parity).
func (c *Codec) EncodeBlock(data []byte) ([]byte, error) {
	if len(data) != DataShards {
		return nil, fmt.Errorf("fec: block must be exactly %d bytes, got %d", DataShards, len(data))
	}

	// Systematic encoding: parity = (data(x) * x^ParityShards) mod g(x).
	msg := make([]byte, BlockSize)
	copy(msg, data)

	remainder := make([]byte, len(msg))
	copy(remainder, msg)
	for i := 0; i < DataShards; i++ {
		coef := remainder[i]
		if coef == 0 {
			continue
		}
		for j, gc := range c.genPoly {
			remainder[i+j] = gfAdd(remainder[i+j], gfMul(gc, coef))
		}
	}

	codeword := make([]byte, BlockSize)
	copy(codeword, data)
	copy(codeword[DataShards:], remainder[DataShards:])
	return codeword, nil
}

// DecodeBlock corrects up to ParityShards/2 byte errors at unknown
// positions in a 255-byte codeword and returns the 223 data bytes. It
// returns errs.ErrUncorrectableFEC if the block's errors exceed the
// correction budget.
func (c *Codec) DecodeBlock(codeword []byte) ([]byte, error) {
	if len(codeword) != BlockSize {
		return nil, fmt.Errorf("fec: codeword must be exactly %d bytes, got %d", BlockSize, len(codeword))
	}

	syndromes := computeSyndromes(codeword)
	if allZero(syndromes) {
		out := make([]byte, DataShards)
		copy(out, codeword[:DataShards])
		return out, nil
	}

	locator := berlekampMassey(syndromes)
	errDegree := len(locator) - 1
	if errDegree <= 0 || errDegree > maxErrors {
		return nil, fmt.Errorf("%w: error locator degree %d exceeds budget", errs.ErrUncorrectableFEC, errDegree)
	}

	positions := chienSearch(locator, BlockSize)
	if len(positions) != errDegree {
		return nil, fmt.Errorf("%w: found %d error positions, locator degree %d", errs.ErrUncorrectableFEC, len(positions), errDegree)
	}

	corrected := make([]byte, BlockSize)
	copy(corrected, codeword)
	if err := forneyCorrect(corrected, syndromes, locator, positions); err != nil {
		return nil, err
	}

	if check := computeSyndromes(corrected); !allZero(check) {
		return nil, fmt.Errorf("%w: residual syndromes nonzero after correction", errs.ErrUncorrectableFEC)
	}

	out := make([]byte, DataShards)
	copy(out, corrected[:DataShards])
	return out, nil
}

// computeSyndromes evaluates the received codeword at α^1..α^ParityShards.
func computeSyndromes(codeword []byte) []byte {
	s := make([]byte, ParityShards)
	for i := 1; i <= ParityShards; i++ {
		s[i-1] = gfPolyEval(codeword, gfPow(2, i))
	}
	return s
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// berlekampMassey finds the shortest LFSR (error locator polynomial) that
// generates the syndrome sequence, returning its coefficients low-degree
// first (coefficient 0 is always 1).
func berlekampMassey(syndromes []byte) []byte {
	n := len(syndromes)
	c := make([]byte, n+1)
	b := make([]byte, n+1)
	c[0], b[0] = 1, 1
	l, m, bCoef := 0, 1, byte(1)

	for i := 0; i < n; i++ {
		delta := syndromes[i]
		for j := 1; j <= l; j++ {
			delta = gfAdd(delta, gfMul(c[j], syndromes[i-j]))
		}
		if delta == 0 {
			m++
			continue
		}
		t := make([]byte, len(c))
		copy(t, c)

		coef := gfDiv(delta, bCoef)
		for j := 0; j+m < len(c); j++ {
			c[j+m] = gfAdd(c[j+m], gfMul(coef, b[j]))
		}

		if 2*l <= i {
			l = i + 1 - l
			b = t
			bCoef = delta
			m = 1
		} else {
			m++
		}
	}
	return c[:l+1]
}

// chienSearch finds the roots of locator (low-degree-first) among
// {α^-0, ..., α^-(n-1)}, returning the corresponding codeword array
// positions (array position p has degree n-1-p, error locator root α^-(n-1-p)).
func chienSearch(locator []byte, n int) []int {
	var positions []int
	for p := 0; p < n; p++ {
		deg := n - 1 - p
		x := gfInv(gfPow(2, deg))
		if evalLowFirst(locator, x) == 0 {
			positions = append(positions, p)
		}
	}
	return positions
}

// evalLowFirst evaluates a low-degree-first polynomial at x.
func evalLowFirst(p []byte, x byte) byte {
	var y byte
	xPow := byte(1)
	for _, coef := range p {
		y = gfAdd(y, gfMul(coef, xPow))
		xPow = gfMul(xPow, x)
	}
	return y
}

// forneyCorrect computes each error magnitude via Forney's formula and
// XORs it into codeword in place.
func forneyCorrect(codeword, syndromes, locator []byte, positions []int) error {
	// S(x) = S_1 + S_2 x + ... + S_2t x^(2t-1), low-degree-first.
	sPoly := syndromes

	// Error evaluator Ω(x) = [S(x) * Λ(x)] mod x^(2t).
	omega := lowFirstMul(sPoly, locator)
	if len(omega) > len(syndromes) {
		omega = omega[:len(syndromes)]
	}

	// Formal derivative of Λ(x) in GF(2^m): only odd-degree terms survive.
	// Coefficient i of Λ(x) becomes coefficient i-1 of Λ'(x).
	lambdaDeriv := make([]byte, len(locator)-1)
	for i := 1; i < len(locator); i += 2 {
		lambdaDeriv[i-1] = locator[i]
	}

	for _, pos := range positions {
		deg := len(codeword) - 1 - pos
		xInv := gfInv(gfPow(2, deg))

		omegaVal := evalLowFirst(omega, xInv)
		derivVal := evalLowFirst(lambdaDeriv, xInv)
		if derivVal == 0 {
			return fmt.Errorf("%w: zero derivative at position %d", errs.ErrUncorrectableFEC, pos)
		}
		// Error value at position pos; since gfSub==gfAdd over GF(2^m),
		// the magnitude and its negation coincide.
		magnitude := gfDiv(omegaVal, derivVal)
		codeword[pos] = gfAdd(codeword[pos], magnitude)
	}
	return nil
}

// lowFirstMul multiplies two low-degree-first polynomials.
func lowFirstMul(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b)-1)
	for i, ca := range a {
		if ca == 0 {
			continue
		}
		for j, cb := range b {
			out[i+j] = gfAdd(out[i+j], gfMul(ca, cb))
		}
	}
	return out
}
