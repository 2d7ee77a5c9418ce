package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodedMessageConfidence(t *testing.T) {
	msg := NewDecodedMessage(NewRaw(), "t", "n")
	assert.Equal(t, 1.0, msg.Confidence())
	assert.True(t, msg.Valid())

	msg.AddWarning("w")
	assert.InDelta(t, 0.95, msg.Confidence(), 1e-9)
	assert.True(t, msg.Valid())

	msg.AddError("e")
	assert.InDelta(t, 0.85, msg.Confidence(), 1e-9)
	assert.False(t, msg.Valid())

	for i := 0; i < 20; i++ {
		msg.AddError("e")
	}
	assert.Equal(t, 0.0, msg.Confidence())
}

func TestDecodedMessageLowConfidenceInvalid(t *testing.T) {
	msg := NewDecodedMessage(NewRaw(), "t", "n")
	for i := 0; i < 11; i++ {
		msg.AddWarning("w")
	}
	assert.Empty(t, msg.Errors())
	assert.InDelta(t, 0.45, msg.Confidence(), 1e-9)
	assert.False(t, msg.Valid())
}

func TestDecodedMessageFields(t *testing.T) {
	msg := NewDecodedMessage(NewRaw(), "t", "n")
	msg.AddField(NewField("A", FieldInteger, 1, WithBitRange(ByteBits(0))))
	msg.AddField(NewField("B", FieldInteger, 2, WithBitRange(ByteBits(1))))

	f, ok := msg.Field("B")
	assert.True(t, ok)
	assert.Equal(t, 2, f.Value())
	_, ok = msg.Field("C")
	assert.False(t, ok)

	in := msg.FieldsInRange(8, 15)
	if assert.Len(t, in, 1) {
		assert.Equal(t, "B", in[0].Name())
	}

	fields := msg.Fields()
	fields[0] = Field{}
	assert.Equal(t, "A", msg.Fields()[0].Name())
	assert.Equal(t, RawName, msg.ParserName)
	assert.Equal(t, "1.0", msg.ParserVersion)
}
