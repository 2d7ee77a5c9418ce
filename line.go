package canbridge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roffe/canbridge/pkg/canid"
)

const (
	prefixRX     = "CAN_RX;"
	prefixTX     = "CAN_TX;"
	prefixErr    = "CAN_ERR;"
	prefixStatus = "STATUS;"
	prefixStats  = "STATS;"
	prefixOldRX  = "RX:"
	prefixOldTX  = "TX:"
)

// ParseLine turns one bridge line into an envelope. It never fails: lines
// that match a grammar but carry bad fields become ERROR envelopes and
// unrecognised text becomes INFO. STATS lines are suppressed and return nil.
//
//	CAN_RX;<id>;<b0,b1,..>[;<ts>]
//	CAN_TX;<id>;<b0,b1,..>[;<ts>]
//	CAN_ERR;<code>;<description>[;<details>]
//	STATUS;<text>
//	STATS;...
//	RX: ID=0x123 LEN=3 DATA=010203
//	TX: ID=0x123 LEN=3 DATA=010203 - SENT
func ParseLine(line string) *Envelope {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, prefixRX):
		return parseFrame(KindRX, "CAN_RX", line)
	case strings.HasPrefix(line, prefixTX):
		return parseFrame(KindTX, "CAN_TX", line)
	case strings.HasPrefix(line, prefixErr):
		return parseBusError(line)
	case strings.HasPrefix(line, prefixStatus):
		return NewInfo(strings.TrimSpace(line[len(prefixStatus):]), line)
	case IsStats(line):
		return nil
	case strings.HasPrefix(line, prefixOldRX):
		return parseLegacy(KindRX, "RX", line)
	case strings.HasPrefix(line, prefixOldTX):
		return parseLegacy(KindTX, "TX", line)
	case strings.Contains(line, "Error"), strings.Contains(line, "ERROR"), strings.Contains(line, "Failed"):
		return NewError(line, line)
	default:
		return NewInfo(line, line)
	}
}

// IsStats reports whether line is a periodic statistics record.
func IsStats(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), prefixStats)
}

func failed(name, line string, err error) *Envelope {
	return NewError(fmt.Sprintf("Failed to parse %s message: %v", name, err), line)
}

func parseFrame(kind Kind, name, line string) *Envelope {
	parts := strings.Split(line, ";")
	if len(parts) < 3 || len(parts) > 4 {
		return failed(name, line, fmt.Errorf("invalid %s format: expected 3 or 4 fields, got %d", name, len(parts)))
	}
	id, err := canid.ParseHex(parts[1])
	if err != nil {
		return failed(name, line, err)
	}
	data, err := parseCSVBytes(parts[2])
	if err != nil {
		return failed(name, line, err)
	}
	var env *Envelope
	if kind == KindRX {
		env = NewRX(id, data, line)
	} else {
		env = NewTX(id, data, line, true)
	}
	if len(parts) == 4 {
		env.deviceTime = strings.TrimSpace(parts[3])
	}
	return env
}

var errEmptyByte = errors.New("empty byte token")

// parseCSVBytes reads "01,FF,a" style payloads, each byte may carry a "0x"
// prefix. An empty string is an empty
// payload, an empty token between commas is an error.
func parseCSVBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []byte{}, nil
	}
	tokens := strings.Split(s, ",")
	out := make([]byte, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, fmt.Errorf("byte %d: %w", i, errEmptyByte)
		}
		hex := strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		if hex == "" {
			return nil, fmt.Errorf("byte %d: %w", i, errEmptyByte)
		}
		v, err := strconv.ParseUint(hex, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("byte %d: invalid hex %q", i, tok)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func parseBusError(line string) *Envelope {
	parts := strings.Split(line, ";")
	if len(parts) < 3 {
		return failed("CAN_ERR", line, fmt.Errorf("invalid CAN_ERR format: expected at least 3 fields, got %d", len(parts)))
	}
	text := fmt.Sprintf("Error %s: %s", strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))
	if len(parts) > 3 {
		if details := strings.TrimSpace(strings.Join(parts[3:], ";")); details != "" {
			text += " (" + details + ")"
		}
	}
	return NewError(text, line)
}

// parseLegacy handles the whitespace separated key=value format of older
// bridge firmware. TX success comes from the trailing SENT marker.
func parseLegacy(kind Kind, name, line string) *Envelope {
	var (
		id    uint32
		hasID bool
		data  = []byte{}
		err   error
	)
	for _, tok := range strings.Fields(line) {
		switch {
		case strings.HasPrefix(tok, "ID="):
			if id, err = canid.ParseHex(tok[3:]); err != nil {
				return failed(name, line, err)
			}
			hasID = true
		case strings.HasPrefix(tok, "DATA="):
			if data, err = parsePackedBytes(tok[5:]); err != nil {
				return failed(name, line, err)
			}
		case strings.HasPrefix(tok, "LEN="):
			if _, err := strconv.Atoi(tok[4:]); err != nil {
				return failed(name, line, fmt.Errorf("invalid length %q", tok[4:]))
			}
		}
	}
	if !hasID {
		return failed(name, line, errors.New("missing ID"))
	}
	if kind == KindRX {
		return NewRX(id, data, line)
	}
	return NewTX(id, data, line, strings.Contains(line, "SENT"))
}

// parsePackedBytes reads "0102FF" style payloads.
func parsePackedBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd length hex data %q", s)
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		v, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q", s[i:i+2])
		}
		out = append(out, byte(v))
	}
	return out, nil
}
