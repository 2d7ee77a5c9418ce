package parser

import (
	"fmt"

	"github.com/roffe/canbridge/pkg/canid"
)

const RawName = "Raw Data"

// MaxStandardLen is the largest classic CAN payload.
const MaxStandardLen = 8

// Raw shows any payload as its id, length and bytes. It is the fallback when
// nothing more specific applies.
type Raw struct {
	Base
}

func init() {
	if err := Register(&Info{
		Name:        RawName,
		Description: "Default parser for displaying raw hex data with byte breakdown",
		New:         func() Parser { return NewRaw() },
	}); err != nil {
		panic(err)
	}
}

func NewRaw() *Raw {
	return &Raw{
		Base: NewBase(RawName, "1.0", "Default parser for displaying raw hex data with byte breakdown", KindFallback, PriorityLowest),
	}
}

func (*Raw) CanDecode(uint32, []byte) bool {
	return true
}

func (*Raw) DeclaredIDs() []IDRange {
	return []IDRange{{0x000, 0x7FF}}
}

func (r *Raw) Decode(id uint32, data []byte) (*DecodedMessage, error) {
	msg := NewDecodedMessage(r, "Raw Data", "CAN ID "+canid.Format(id))

	msg.AddField(NewField("CAN ID", FieldInteger, id,
		WithRaw(uint64(id)),
		WithBitRange(BitsCANID),
		WithDescription("CAN message identifier"),
		WithStatus(StatusValid, ""),
	))

	lenStatus, lenMsg := StatusValid, ""
	if len(data) > MaxStandardLen {
		lenStatus, lenMsg = StatusWarning, "Standard CAN allows max 8 bytes"
	}
	msg.AddField(NewField("Data Length", FieldInteger, len(data),
		WithUnit("bytes"),
		WithRaw(uint64(len(data))),
		WithBitRange(BitsDLC),
		WithDescription("Data Length Code (DLC)"),
		WithStatus(lenStatus, lenMsg),
	))

	for i, b := range data {
		note := ""
		switch b {
		case 0x00:
			note = "Zero value"
		case 0xFF:
			note = "Maximum value"
		case 0xAA, 0x55:
			note = "Test pattern"
		}
		msg.AddField(NewField(fmt.Sprintf("Byte %d", i), FieldInteger, b,
			WithRaw(uint64(b)),
			WithBitRange(ByteBits(i)),
			WithDescription(fmt.Sprintf("Data byte %d (0x%02X)", i, b)),
			WithStatus(StatusValid, note),
		))
	}

	if len(data) > 0 && r.configBool("full_data") {
		msg.AddField(NewField("Full Data", FieldBytes, append([]byte(nil), data...),
			WithRawBytes(data),
			WithBits(0, len(data)*8-1),
			WithDescription("Complete message payload"),
			WithStatus(StatusValid, ""),
		))
	}
	return msg, nil
}
