package parser

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"
)

const (
	SwitchStateName = "Wiring Harness Switch State"
	SwitchStateID   = 0x500

	switchLen       = 8
	switchSignature = 0x5A
	switchEndMarker = 0xFF

	// Time Delta turns into a warning at this gap.
	switchSlowFrameMS = 1000
)

const (
	swBrake   = 0
	swEco     = 1
	swReverse = 2
	swFoot    = 3
	swForward = 4
)

var switchNames = [...]string{
	swBrake:   "Brake Switch",
	swEco:     "Eco Switch",
	swReverse: "Reverse Switch",
	swFoot:    "Foot Switch",
	swForward: "Forward Switch",
}

func init() {
	if err := Register(&Info{
		Name:        SwitchStateName,
		Description: "Parser for wiring harness switch state messages (CAN ID 0x500)",
		New:         func() Parser { return NewSwitchState() },
	}); err != nil {
		panic(err)
	}
}

// SwitchState decodes the switch panel frame:
//
//	byte 0    signature 0x5A
//	byte 1    switch bitmap  bit0 brake, bit1 eco, bit2 reverse, bit3 foot, bit4 forward, bit5-7 reserved
//	byte 2-5  32 bit little endian millisecond timestamp
//	byte 6    reserved 0x00
//	byte 7    end marker 0xFF
type SwitchState struct {
	Base
	lastTimestamp uint32
	haveTimestamp bool
	messages      int
}

func NewSwitchState() *SwitchState {
	return &SwitchState{
		Base: NewBase(SwitchStateName, "1.0", "Parser for wiring harness switch state messages (CAN ID 0x500)", KindFramed, 2),
	}
}

func (*SwitchState) CanDecode(id uint32, data []byte) bool {
	if id != SwitchStateID || len(data) != switchLen {
		return false
	}
	return data[0] == switchSignature && data[7] == switchEndMarker
}

func (*SwitchState) DeclaredIDs() []IDRange {
	return []IDRange{SingleID(SwitchStateID)}
}

func (s *SwitchState) Reset() {
	s.lastTimestamp = 0
	s.haveTimestamp = false
	s.messages = 0
}

func (s *SwitchState) Messages() int {
	return s.messages
}

func (s *SwitchState) Decode(id uint32, data []byte) (*DecodedMessage, error) {
	s.messages++
	msg := NewDecodedMessage(s, "Switch State", "Wiring Harness Switches")
	if len(data) != switchLen {
		msg.AddError(fmt.Sprintf("Invalid packet length: %d bytes, expected %d", len(data), switchLen))
		return msg, nil
	}

	sig := data[0]
	sigOK := sig == switchSignature
	st, note := StatusValid, "Valid signature"
	if !sigOK {
		st, note = StatusError, fmt.Sprintf("Invalid signature: expected 0x%02X, got 0x%02X", switchSignature, sig)
	}
	msg.AddField(NewField("Message Signature", FieldInteger, sig,
		WithRaw(uint64(sig)),
		WithBitRange(ByteBits(0)),
		WithDescription("Message signature (should be 0x5A)"),
		WithStatus(st, note),
	))

	bitmap := data[1]
	msg.AddField(NewField("Switch Bitmap", FieldBitmask, fmt.Sprintf("0b%08b (0x%02X)", bitmap, bitmap),
		WithRaw(uint64(bitmap)),
		WithBitRange(ByteBits(1)),
		WithDescription("Switch state bitmap (8 switches)"),
		WithStatus(StatusValid, ""),
	))

	active := make([]string, 0, len(switchNames))
	on := func(bit int) bool {
		return MustExtractBits(data, BitPos(1, bit), 1) == 1
	}
	for bit, name := range switchNames {
		v := on(bit)
		if v {
			active = append(active, name)
		}
		pos := BitPos(1, bit)
		msg.AddField(NewField(name, FieldBoolean, v,
			WithRaw(b2u(v)),
			WithBits(pos, pos),
			WithDescription("State of "+strings.ToLower(name)),
			WithStatus(StatusValid, ""),
		))
	}
	if reserved := MustExtractBits(data, 8, 3); reserved != 0 {
		msg.AddField(NewField("Switch Reserved", FieldInteger, reserved,
			WithRaw(reserved),
			WithBits(8, 10),
			WithDescription("Unused switch bits (should be 0)"),
			WithStatus(StatusWarning, fmt.Sprintf("Reserved bits not zero: 0x%X", reserved)),
		))
		msg.AddWarning("Reserved switch bits set")
	}

	ts := binary.LittleEndian.Uint32(data[2:6])
	var delta uint32
	haveDelta := s.haveTimestamp
	if haveDelta {
		// uint32 arithmetic covers counter rollover.
		delta = ts - s.lastTimestamp
	}
	s.lastTimestamp = ts
	s.haveTimestamp = true

	deltaDesc := "N/A"
	if haveDelta {
		deltaDesc = fmt.Sprintf("%dms", delta)
	}
	msg.AddField(NewField("Timestamp", FieldInteger, ts,
		WithRaw(uint64(ts)),
		WithBits(16, 47),
		WithDescription(fmt.Sprintf("32-bit timestamp counter (diff: %s)", deltaDesc)),
		WithBounds(0, 0xFFFFFFFF),
	))
	if haveDelta {
		st, note := StatusValid, "Normal timing"
		if delta >= switchSlowFrameMS {
			st, note = StatusWarning, fmt.Sprintf("Long gap: %dms", delta)
		}
		msg.AddField(NewField("Time Delta", FieldInteger, delta,
			WithUnit("ms"),
			WithRaw(uint64(delta)),
			WithBits(16, 47),
			WithDescription("Time since last message"),
			WithStatus(st, note),
		))
	}

	reserved := data[6]
	st, note = StatusValid, "Reserved byte valid"
	if reserved != 0x00 {
		st, note = StatusWarning, fmt.Sprintf("Reserved byte non-zero: 0x%02X", reserved)
	}
	msg.AddField(NewField("Reserved", FieldInteger, reserved,
		WithRaw(uint64(reserved)),
		WithBitRange(ByteBits(6)),
		WithDescription("Reserved byte (should be 0x00)"),
		WithStatus(st, note),
	))

	end := data[7]
	endOK := end == switchEndMarker
	st, note = StatusValid, "Valid end marker"
	if !endOK {
		st, note = StatusError, fmt.Sprintf("Invalid end marker: expected 0x%02X, got 0x%02X", switchEndMarker, end)
	}
	msg.AddField(NewField("End Marker", FieldInteger, end,
		WithRaw(uint64(end)),
		WithBitRange(ByteBits(7)),
		WithDescription("End marker (should be 0xFF)"),
		WithStatus(st, note),
	))

	s.summary(msg, active, bitmap, on(swForward), on(swReverse), on(swBrake))

	if !sigOK {
		msg.AddError("Invalid message signature")
	}
	if !endOK {
		msg.AddError("Invalid end marker")
	}
	if reserved != 0x00 {
		msg.AddWarning("Reserved byte not zero")
	}
	return msg, nil
}

func (s *SwitchState) summary(msg *DecodedMessage, active []string, bitmap byte, fwd, rev, brake bool) {
	count := bits.OnesCount8(bitmap)
	msg.AddField(NewField("Active Switch Count", FieldInteger, count,
		WithRaw(uint64(count)),
		WithBitRange(ByteBits(1)),
		WithDescription("Number of switches currently active"),
		WithBounds(0, 8),
	))

	dir := int64(b2u(fwd) | b2u(rev)<<1)
	st, note := StatusValid, ""
	if dir == 3 {
		st, note = StatusError, "Forward and reverse switches both active"
	}
	msg.AddField(NewField("Direction", FieldEnum, dir,
		WithRaw(uint64(dir)),
		WithBits(BitPos(1, swForward), BitPos(1, swReverse)),
		WithDescription("Selected direction"),
		WithEnum(directions),
		WithStatus(st, note),
	))

	summary := "No switches active"
	var state string
	switch {
	case fwd && rev:
		state = "CONFLICT"
	case brake:
		state = "BRAKING"
	case fwd:
		state = "FORWARD"
	case rev:
		state = "REVERSE"
	case len(active) > 0:
		state = "AUXILIARY"
	default:
		state = "IDLE"
	}
	if len(active) > 0 {
		summary = "Active: " + strings.Join(active, ", ")
	}
	st, note = StatusValid, ""
	if state == "CONFLICT" {
		st, note = StatusError, "Direction conflict detected"
	}
	msg.AddField(NewField("Operational State", FieldString, state,
		WithBitRange(ByteBits(1)),
		WithDescription("Vehicle operational state: "+summary),
		WithStatus(st, note),
	))
	if state == "CONFLICT" {
		msg.AddError("Direction conflict: forward and reverse both active")
	}
}
