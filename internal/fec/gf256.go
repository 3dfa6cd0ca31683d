package fec

// GF(2^8) arithmetic over the primitive polynomial x^8+x^4+x^3+x^2+1
// (0x11D) with generator α=2, exactly as spec.md §4.3 specifies. This
// underlies the Reed-Solomon(255,223) codec's syndrome decoder: the
// klauspost/reedsolomon library (used elsewhere in the pack for erasure
// coding) doesn't expose syndrome-based correction at unknown byte
// positions, so this field and the Berlekamp-Massey decoder in rs.go are
// hand-written against the algebra spec.md names.
const gfPrimitivePoly = 0x11D

var (
	gfExpTable [512]byte // exp[i] = α^i, doubled so gfExpTable[i+255]==gfExpTable[i]
	gfLogTable [256]byte // log[α^i] = i
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExpTable[i] = byte(x)
		gfLogTable[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= gfPrimitivePoly
		}
	}
	for i := 255; i < 512; i++ {
		gfExpTable[i] = gfExpTable[i-255]
	}
}

func gfAdd(a, b byte) byte {
	return a ^ b
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExpTable[int(gfLogTable[a])+int(gfLogTable[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	if b == 0 {
		panic("fec: division by zero in GF(2^8)")
	}
	li := int(gfLogTable[a]) - int(gfLogTable[b])
	if li < 0 {
		li += 255
	}
	return gfExpTable[li]
}

func gfPow(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	li := (int(gfLogTable[a]) * n) % 255
	if li < 0 {
		li += 255
	}
	return gfExpTable[li]
}

func gfInv(a byte) byte {
	return gfExpTable[255-int(gfLogTable[a])]
}

// gfPolyEval evaluates polynomial p (coefficients highest-degree first) at x.
func gfPolyEval(p []byte, x byte) byte {
	y := p[0]
	for i := 1; i < len(p); i++ {
		y = gfAdd(gfMul(y, x), p[i])
	}
	return y
}

// gfPolyMul multiplies two polynomials (highest-degree-first coefficients).
func gfPolyMul(a, b []byte) []byte {
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
