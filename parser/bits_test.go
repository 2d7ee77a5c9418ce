package parser

import (
	"errors"
	"testing"
)

func TestExtractBits(t *testing.T) {
	data := []byte{0xA5, 0x3C}
	tests := []struct {
		name  string
		start int
		n     int
		want  uint64
	}{
		{"first bit", 0, 1, 1},
		{"second bit", 1, 1, 0},
		{"high nibble", 0, 4, 0xA},
		{"low nibble", 4, 4, 0x5},
		{"whole byte", 0, 8, 0xA5},
		{"straddle", 4, 8, 0x53},
		{"all", 0, 16, 0xA53C},
		{"last bit", 15, 1, 0},
		{"zero width", 3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBits(data, tt.start, tt.n)
			if err != nil {
				t.Fatalf("ExtractBits() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractBits(%d, %d) = %#x, want %#x", tt.start, tt.n, got, tt.want)
			}
		})
	}
}

func TestExtractBitsOutOfRange(t *testing.T) {
	for _, w := range [][2]int{{9, 8}, {16, 1}, {-1, 2}, {0, 17}} {
		if _, err := ExtractBits([]byte{0, 0}, w[0], w[1]); !errors.Is(err, ErrBitRange) {
			t.Errorf("ExtractBits(%d, %d) error = %v, want ErrBitRange", w[0], w[1], err)
		}
	}
}

func TestBitPos(t *testing.T) {
	// 0x10 in byte 1 is LSB bit 4, MSB-first position 11.
	if got := BitPos(1, 4); got != 11 {
		t.Fatalf("BitPos(1, 4) = %d, want 11", got)
	}
	if v := MustExtractBits([]byte{0x00, 0x10}, BitPos(1, 4), 1); v != 1 {
		t.Fatalf("bit not set at BitPos(1, 4)")
	}
}

func TestCRC8(t *testing.T) {
	// CRC-8 check value over "123456789".
	if got := CRC8([]byte("123456789")); got != 0xF4 {
		t.Fatalf("CRC8(check) = %#02x, want 0xf4", got)
	}
	if got := CRC8(nil); got != 0 {
		t.Fatalf("CRC8(nil) = %#02x, want 0", got)
	}
	if got := CRC8([]byte{0x01}); got != 0x07 {
		t.Fatalf("CRC8(0x01) = %#02x, want 0x07", got)
	}
}
