package codec

import (
	"fmt"

	"github.com/sonic-link/soniclink/internal/fec"
)

// encodeBlocks zero-pads data to a multiple of fec.DataShards and
// RS-encodes each 223-byte block.
func encodeBlocks(data []byte) []byte {
	codec := fec.NewCodec()
	padded := padToBlock(data)

	out := make([]byte, 0, len(padded)/fec.DataShards*fec.BlockSize)
	for i := 0; i < len(padded); i += fec.DataShards {
		block, err := codec.EncodeBlock(padded[i : i+fec.DataShards])
		if err != nil {
			// Cannot happen: padded is exactly a multiple of DataShards.
			panic(err)
		}
		out = append(out, block...)
	}
	return out
}

// decodeBlocks reverses encodeBlocks, correcting errors in each codeword
// and returning the concatenated, still-zero-padded data bytes (the
// caller trims to the known unpadded length from the parsed header).
func decodeBlocks(fecBytes []byte) ([]byte, error) {
	if len(fecBytes)%fec.BlockSize != 0 {
		return nil, fmt.Errorf("codec: fec byte stream length %d is not a multiple of the RS block size %d", len(fecBytes), fec.BlockSize)
	}
	codec := fec.NewCodec()
	out := make([]byte, 0, len(fecBytes)/fec.BlockSize*fec.DataShards)
	for i := 0; i < len(fecBytes); i += fec.BlockSize {
		data, err := codec.DecodeBlock(fecBytes[i : i+fec.BlockSize])
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

func padToBlock(data []byte) []byte {
	rem := len(data) % fec.DataShards
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+(fec.DataShards-rem))
	copy(padded, data)
	return padded
}
