package parser

import (
	"errors"
	"fmt"
)

var ErrBitRange = errors.New("bit range exceeds payload")

// ExtractBits reads n bits starting at start, MSB first across the payload:
// bit 0 is the most significant bit of data[0], bit 8 the most significant
// bit of data[1].
func ExtractBits(data []byte, start, n int) (uint64, error) {
	if start < 0 || n < 0 || n > 64 || start+n > len(data)*8 {
		return 0, fmt.Errorf("%w: bits %d:%d of %d", ErrBitRange, start, start+n, len(data)*8)
	}
	var v uint64
	for i := start; i < start+n; i++ {
		bit := (data[i/8] >> (7 - uint(i%8))) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// MustExtractBits is ExtractBits for callers that validated the payload
// length up front.
func MustExtractBits(data []byte, start, n int) uint64 {
	v, err := ExtractBits(data, start, n)
	if err != nil {
		panic(err)
	}
	return v
}

// BitPos converts a byte index and an LSB based bit number inside that byte
// (0 = 0x01, 7 = 0x80) into the payload bit position used by ExtractBits.
func BitPos(byteIndex, lsbBit int) int {
	return byteIndex*8 + 7 - lsbBit
}

// ByteBits is the bit range covering data[i].
func ByteBits(i int) BitRange {
	return BitRange{i * 8, i*8 + 7}
}

func Scale(raw uint64, factor, offset float64) float64 {
	return float64(raw)*factor + offset
}
