// Package canid parses and renders CAN identifiers the way the bridge and the
// parser configuration files spell them.
package canid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxExtended is the largest 29 bit identifier.
const MaxExtended = 0x1FFFFFFF

var ErrEmpty = errors.New("empty CAN id")

// Format renders an identifier as 0x followed by uppercase hex, zero padded to
// three digits so standard ids line up.
func Format(id uint32) string {
	return fmt.Sprintf("0x%03X", id)
}

// ParseHex accepts "0x1A0", "0X1a0" and bare hex "1A0". This is the form used
// on the bridge wire.
func ParseHex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}
	s = trimPrefix(s)
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid CAN id %q: %w", s, err)
	}
	if v > MaxExtended {
		return 0, fmt.Errorf("invalid CAN id %q: exceeds 29 bits", s)
	}
	return uint32(v), nil
}

// Parse accepts "0x"-prefixed hex or bare decimal. This is the form used in
// configuration documents.
func Parse(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}
	if hasPrefix(s) {
		return ParseHex(s)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid CAN id %q: %w", s, err)
	}
	if v > MaxExtended {
		return 0, fmt.Errorf("invalid CAN id %q: exceeds 29 bits", s)
	}
	return uint32(v), nil
}

func hasPrefix(s string) bool {
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func trimPrefix(s string) string {
	if hasPrefix(s) {
		return s[2:]
	}
	return s
}
