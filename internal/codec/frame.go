// Package codec assembles and disassembles SonicLink frames: compression,
// the crypto envelope, Reed-Solomon FEC, and OFDM framing/modulation, plus
// the inverse decode path. It plays the orchestration role a
// sendFrame/receiveFrame session would over a duplex transport, reshaped
// around a single-frame EncodeFrame/DecodeStream call instead of a
// stateful ARQ session.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a SonicLink frame header.
const Magic uint32 = 0x534E4C4B

// Version is the only wire version this codec speaks.
const Version byte = 1

const (
	flagCompressed byte = 1 << 0
	flagEncrypted  byte = 1 << 1
)

const (
	wrappedKeySize = 256 // 2048-bit RSA-OAEP output
	nonceSize      = 12
	tagSize        = 16
	crcSize        = 4
)

// Header is the frame header described after FEC decoding: magic,
// version, flags, body length, and (iff encrypted) the wrapped session
// key and nonce.
type Header struct {
	Version    byte
	Compressed bool
	Encrypted  bool
	BodyLen    uint32
	WrappedKey []byte // len == wrappedKeySize, present iff Encrypted
	Nonce      []byte // len == nonceSize, present iff Encrypted
}

// Len returns the marshaled header's byte length.
func (h *Header) Len() int {
	n := 4 + 1 + 1 + 4
	if h.Encrypted {
		n += wrappedKeySize + nonceSize
	}
	return n
}

// TrailerLen returns the trailer length for this header's Encrypted flag:
// a 16-byte AEAD tag, or a 4-byte CRC-32.
func (h *Header) TrailerLen() int {
	if h.Encrypted {
		return tagSize
	}
	return crcSize
}

// Marshal encodes the header in its fixed big-endian layout.
func (h *Header) Marshal() []byte {
	out := make([]byte, h.Len())
	binary.BigEndian.PutUint32(out[0:4], Magic)
	out[4] = h.Version
	var flags byte
	if h.Compressed {
		flags |= flagCompressed
	}
	if h.Encrypted {
		flags |= flagEncrypted
	}
	out[5] = flags
	binary.BigEndian.PutUint32(out[6:10], h.BodyLen)
	if h.Encrypted {
		copy(out[10:10+wrappedKeySize], h.WrappedKey)
		copy(out[10+wrappedKeySize:10+wrappedKeySize+nonceSize], h.Nonce)
	}
	return out
}

// UnmarshalHeader parses a header from the front of data, returning the
// header and the number of bytes it consumed.
func UnmarshalHeader(data []byte) (*Header, int, error) {
	if len(data) < 10 {
		return nil, 0, fmt.Errorf("codec: header shorter than the fixed 10-byte prefix")
	}
	if binary.BigEndian.Uint32(data[0:4]) != Magic {
		return nil, 0, fmt.Errorf("codec: bad magic %08x", binary.BigEndian.Uint32(data[0:4]))
	}
	h := &Header{Version: data[4]}
	flags := data[5]
	h.Compressed = flags&flagCompressed != 0
	h.Encrypted = flags&flagEncrypted != 0
	h.BodyLen = binary.BigEndian.Uint32(data[6:10])

	n := 10
	if h.Encrypted {
		if len(data) < n+wrappedKeySize+nonceSize {
			return nil, 0, fmt.Errorf("codec: truncated encrypted header")
		}
		h.WrappedKey = append([]byte{}, data[n:n+wrappedKeySize]...)
		n += wrappedKeySize
		h.Nonce = append([]byte{}, data[n:n+nonceSize]...)
		n += nonceSize
	}
	return h, n, nil
}
