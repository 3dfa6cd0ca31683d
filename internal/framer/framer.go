// Package framer packs a fully FEC-encoded byte stream into the fixed
// per-symbol byte chunks the OFDM modulator consumes, and reverses that on
// receive (spec.md §4.4).
package framer

import (
	"encoding/binary"
	"fmt"

	"github.com/sonic-link/soniclink/internal/errs"
)

// PadByte fills the stream beyond the declared frame length.
const PadByte = 0x55

// lengthFieldSize is the 2-byte "frame length in symbols" prefix.
const lengthFieldSize = 2

// Frame prepends a 2-byte symbol-count header to fecBytes and splits the
// result into bytesPerSymbol-sized chunks, 0x55-padding the final chunk.
// Each returned chunk is exactly one OFDM symbol's byte payload.
func Frame(fecBytes []byte, bytesPerSymbol int) ([][]byte, error) {
	if bytesPerSymbol <= 0 {
		return nil, fmt.Errorf("%w: bytesPerSymbol must be positive", errs.ErrInvalidConfig)
	}

	total := lengthFieldSize + len(fecBytes)
	numSymbols := (total + bytesPerSymbol - 1) / bytesPerSymbol
	if numSymbols > 1<<16-1 {
		return nil, fmt.Errorf("frame: %d symbols overflows the 16-bit length field", numSymbols)
	}

	padded := make([]byte, numSymbols*bytesPerSymbol)
	binary.BigEndian.PutUint16(padded[:lengthFieldSize], uint16(numSymbols))
	copy(padded[lengthFieldSize:], fecBytes)
	for i := total; i < len(padded); i++ {
		padded[i] = PadByte
	}

	chunks := make([][]byte, numSymbols)
	for i := 0; i < numSymbols; i++ {
		chunks[i] = padded[i*bytesPerSymbol : (i+1)*bytesPerSymbol]
	}
	return chunks, nil
}

// PeekSymbolCount reads the 2-byte length field out of the first received
// symbol's bytes, telling the receiver how many total symbols to collect.
func PeekSymbolCount(firstSymbolBytes []byte) (int, error) {
	if len(firstSymbolBytes) < lengthFieldSize {
		return 0, fmt.Errorf("framer: first symbol shorter than the length field")
	}
	return int(binary.BigEndian.Uint16(firstSymbolBytes[:lengthFieldSize])), nil
}

// Unframe strips the length-field header from the concatenated bytes of
// exactly numSymbols received symbols and returns the remaining FEC byte
// stream (including any trailing 0x55 padding, which the FEC/header layer
// ignores once it has consumed its own declared lengths).
func Unframe(allSymbolBytes []byte, bytesPerSymbol, numSymbols int) ([]byte, error) {
	want := bytesPerSymbol * numSymbols
	if len(allSymbolBytes) != want {
		return nil, fmt.Errorf("framer: got %d bytes across %d symbols, want %d", len(allSymbolBytes), numSymbols, want)
	}
	declared, err := PeekSymbolCount(allSymbolBytes)
	if err != nil {
		return nil, err
	}
	if declared != numSymbols {
		return nil, fmt.Errorf("framer: declared symbol count %d does not match %d received", declared, numSymbols)
	}
	return allSymbolBytes[lengthFieldSize:], nil
}

// BytesToBits expands a byte slice into one-bit-per-byte form (MSB first),
// the representation the OFDM modulator's bit-group mapper expects.
func BytesToBits(data []byte) []byte {
	bits := make([]byte, len(data)*8)
	for i, b := range data {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (b >> uint(7-j)) & 1
		}
	}
	return bits
}

// BitsToBytes packs one-bit-per-byte values (MSB first, length a multiple
// of 8) back into bytes.
func BitsToBytes(bits []byte) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, fmt.Errorf("framer: %d bits not a multiple of 8", len(bits))
	}
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | bits[i*8+j]
		}
		out[i] = b
	}
	return out, nil
}
