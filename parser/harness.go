package parser

import (
	"fmt"
)

const (
	HarnessName = "STM32F103 Wiring Harness"
	HarnessID   = 0x410

	harnessLen       = 8
	harnessEndMarker = 0xAA
)

var directions = map[int64]string{
	0: "NEUTRAL",
	1: "FORWARD",
	2: "REVERSE",
	3: "CONFLICT",
}

func init() {
	if err := Register(&Info{
		Name:        HarnessName,
		Description: "Parser for STM32F103 Vehicle Control Unit wiring harness messages (CAN ID 0x410)",
		New:         func() Parser { return NewHarness() },
	}); err != nil {
		panic(err)
	}
}

// Harness decodes the vehicle control unit frame:
//
//	byte 0  control flags  bit0 FWD, bit1 REV, bit2 ECO, bit3 BRAKE_12V, bit4-7 reserved
//	byte 1  secondary      bit0 FOOT, bit1-7 reserved
//	byte 2  throttle 0-100 %
//	byte 3  brake 0-100 %
//	byte 4  sequence counter, wraps at 256
//	byte 5  status         bit7 CAN error, bit6 system error, bit0-5 reserved
//	byte 6  CRC-8 over bytes 0-5
//	byte 7  end marker 0xAA
//
// The sequence counter is checked against the previous frame seen by the
// same instance.
type Harness struct {
	Base
	lastSeq        uint8
	haveSeq        bool
	sequenceErrors int
}

func NewHarness() *Harness {
	return &Harness{
		Base: NewBase(HarnessName, "1.0", "Parser for STM32F103 Vehicle Control Unit wiring harness messages (CAN ID 0x410)", KindFramed, PriorityHighest),
	}
}

func (*Harness) CanDecode(id uint32, data []byte) bool {
	return id == HarnessID && len(data) == harnessLen
}

func (*Harness) DeclaredIDs() []IDRange {
	return []IDRange{SingleID(HarnessID)}
}

func (h *Harness) Reset() {
	h.haveSeq = false
	h.lastSeq = 0
	h.sequenceErrors = 0
}

func (h *Harness) SequenceErrors() int {
	return h.sequenceErrors
}

func (h *Harness) Decode(id uint32, data []byte) (*DecodedMessage, error) {
	msg := NewDecodedMessage(h, "Vehicle Control Unit", "STM32F103 Wiring Harness")
	if len(data) != harnessLen {
		msg.AddError(fmt.Sprintf("Invalid packet length: %d bytes, expected %d", len(data), harnessLen))
		return msg, nil
	}

	flag := func(byteIndex, bit int) bool {
		return MustExtractBits(data, BitPos(byteIndex, bit), 1) == 1
	}
	boolField := func(name, desc string, byteIndex, bit int, v bool) Field {
		pos := BitPos(byteIndex, bit)
		return NewField(name, FieldBoolean, v,
			WithRaw(b2u(v)),
			WithBits(pos, pos),
			WithDescription(desc),
			WithStatus(StatusValid, ""),
		)
	}

	fwd := flag(0, 0)
	rev := flag(0, 1)
	eco := flag(0, 2)
	brake12v := flag(0, 3)
	msg.AddField(boolField("Forward Switch", "Forward direction switch input", 0, 0, fwd))
	msg.AddField(boolField("Reverse Switch", "Reverse direction switch (under control)", 0, 1, rev))
	msg.AddField(boolField("Eco Switch", "Economy mode switch (under control)", 0, 2, eco))
	msg.AddField(boolField("Brake 12V", "12V brake signal (under control)", 0, 3, brake12v))
	h.reserved(msg, "Control Reserved", data, 0, 4)

	foot := flag(1, 0)
	msg.AddField(boolField("Foot Switch", "Foot switch (under control)", 1, 0, foot))
	h.reserved(msg, "Secondary Reserved", data, 8, 7)

	throttle := h.percent(msg, "Throttle Position", "Throttle pedal position percentage", data, 2)
	brake := h.percent(msg, "Brake Pressure", "Brake system pressure percentage", data, 3)

	seq := data[4]
	seqStatus, seqNote := h.checkSequence(seq)
	msg.AddField(NewField("Sequence Counter", FieldInteger, seq,
		WithRaw(uint64(seq)),
		WithBitRange(ByteBits(4)),
		WithDescription("Packet sequence counter (0-255, wraps)"),
		WithBounds(0, 255),
		WithStatus(seqStatus, seqNote),
	))
	if seqStatus == StatusWarning {
		msg.AddWarning(seqNote)
	}

	canErr := flag(5, 7)
	sysErr := flag(5, 6)
	errField := func(name, desc string, bit int, set bool, note string) Field {
		pos := BitPos(5, bit)
		st, text := StatusValid, ""
		if set {
			st, text = StatusError, note
		}
		return NewField(name, FieldBoolean, set,
			WithRaw(b2u(set)),
			WithBits(pos, pos),
			WithDescription(desc),
			WithStatus(st, text),
		)
	}
	msg.AddField(errField("CAN Error", "CAN bus error flag", 7, canErr, "CAN bus error detected"))
	msg.AddField(errField("System Error", "System error flag", 6, sysErr, "System error detected"))
	h.reserved(msg, "Status Reserved", data, 42, 6)

	received := data[6]
	calculated := CRC8(data[:6])
	crcOK := received == calculated
	crcStatus, crcNote := StatusValid, "CRC8 checksum valid"
	if !crcOK {
		crcStatus, crcNote = StatusError, fmt.Sprintf("CRC8 mismatch: got 0x%02X, expected 0x%02X", received, calculated)
	}
	msg.AddField(NewField("CRC8", FieldInteger, received,
		WithRaw(uint64(received)),
		WithBitRange(ByteBits(6)),
		WithDescription(fmt.Sprintf("CRC8 checksum (calculated: 0x%02X)", calculated)),
		WithStatus(crcStatus, crcNote),
	))

	end := data[7]
	endOK := end == harnessEndMarker
	endStatus, endNote := StatusValid, "End marker valid"
	if !endOK {
		endStatus, endNote = StatusError, fmt.Sprintf("Invalid end marker: 0x%02X, expected 0x%02X", end, harnessEndMarker)
	}
	msg.AddField(NewField("End Marker", FieldInteger, end,
		WithRaw(uint64(end)),
		WithBitRange(ByteBits(7)),
		WithDescription("Packet end marker (should be 0xAA)"),
		WithStatus(endStatus, endNote),
	))

	h.summary(msg, fwd, rev, eco, brake12v, foot, throttle, brake)

	if canErr {
		msg.AddError("CAN bus error detected")
	}
	if sysErr {
		msg.AddError("System error detected")
	}
	if !crcOK {
		msg.AddError("CRC8 checksum validation failed")
	}
	if !endOK {
		msg.AddError("Invalid end marker")
	}
	msg.ProtocolInfo = map[string]any{
		"crc_calculated":  calculated,
		"sequence_errors": h.sequenceErrors,
	}
	return msg, nil
}

// reserved adds a Warning field when any of the n reserved bits at start are set.
func (h *Harness) reserved(msg *DecodedMessage, name string, data []byte, start, n int) {
	v := MustExtractBits(data, start, n)
	if v == 0 {
		return
	}
	msg.AddField(NewField(name, FieldInteger, v,
		WithRaw(v),
		WithBits(start, start+n-1),
		WithDescription("Reserved bits (should be 0)"),
		WithStatus(StatusWarning, fmt.Sprintf("Reserved bits not zero: 0x%X", v)),
	))
}

func (h *Harness) percent(msg *DecodedMessage, name, desc string, data []byte, i int) float64 {
	raw := data[i]
	v := float64(raw)
	st, note := StatusValid, ""
	if raw > 100 {
		v = 100
		st, note = StatusWarning, fmt.Sprintf("%s value %d exceeds 100%%", name, raw)
	}
	msg.AddField(NewField(name, FieldFloat, v,
		WithUnit("%"),
		WithRaw(uint64(raw)),
		WithBitRange(ByteBits(i)),
		WithDescription(desc),
		WithBounds(0, 100),
		WithStatus(st, note),
	))
	return v
}

func (h *Harness) checkSequence(seq uint8) (Status, string) {
	if !h.haveSeq {
		h.haveSeq = true
		h.lastSeq = seq
		return StatusValid, "Initial sequence"
	}
	expected := h.lastSeq + 1
	h.lastSeq = seq
	if seq == expected {
		return StatusValid, "Sequence valid"
	}
	h.sequenceErrors++
	gap := seq - expected
	return StatusWarning, fmt.Sprintf("Sequence gap: expected %d, got %d (gap: %d)", expected, seq, gap)
}

func (h *Harness) summary(msg *DecodedMessage, fwd, rev, eco, brake12v, foot bool, throttle, brake float64) {
	dir := int64(b2u(fwd) | b2u(rev)<<1)
	st, note := StatusValid, ""
	if dir == 3 {
		st, note = StatusError, "Forward and reverse switches both active"
	}
	msg.AddField(NewField("Direction", FieldEnum, dir,
		WithRaw(uint64(dir)),
		WithBits(BitPos(0, 1), BitPos(0, 0)),
		WithDescription(fmt.Sprintf("Vehicle direction setting (%s)", directions[dir])),
		WithEnum(directions),
		WithStatus(st, note),
	))

	mode := "NORMAL"
	if eco {
		mode = "ECO"
	}
	msg.AddField(NewField("Drive Mode", FieldEnum, int64(b2u(eco)),
		WithRaw(b2u(eco)),
		WithBits(BitPos(0, 2), BitPos(0, 2)),
		WithDescription(fmt.Sprintf("Vehicle drive mode (%s)", mode)),
		WithEnum(map[int64]string{0: "NORMAL", 1: "ECO"}),
	))

	var state string
	switch {
	case brake > 10 || brake12v:
		state = "BRAKING"
	case throttle > 5:
		state = "ACCELERATING"
	case foot:
		state = "READY"
	default:
		state = "IDLE"
	}
	msg.AddField(NewField("Vehicle State", FieldString, state,
		WithBits(0, 63),
		WithDescription("Overall vehicle operational state"),
		WithStatus(StatusValid, ""),
	))
}

func b2u(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
