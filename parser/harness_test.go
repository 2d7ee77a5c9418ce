package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func harnessFrame(control, secondary, throttle, brake, seq, status byte) []byte {
	d := []byte{control, secondary, throttle, brake, seq, status, 0x00, harnessEndMarker}
	d[6] = CRC8(d[:6])
	return d
}

func fieldStatus(t *testing.T, msg *DecodedMessage, name string) Status {
	t.Helper()
	f, ok := msg.Field(name)
	require.True(t, ok, "field %q missing", name)
	return f.Status()
}

func fieldValue(t *testing.T, msg *DecodedMessage, name string) any {
	t.Helper()
	f, ok := msg.Field(name)
	require.True(t, ok, "field %q missing", name)
	return f.Value()
}

func TestHarnessDecode(t *testing.T) {
	h := NewHarness()
	require.True(t, h.CanDecode(HarnessID, harnessFrame(0, 0, 0, 0, 0, 0)))
	require.False(t, h.CanDecode(HarnessID, []byte{0x01}))

	msg, err := h.Decode(HarnessID, harnessFrame(0x05, 0x01, 50, 0, 1, 0))
	require.NoError(t, err)

	assert.Empty(t, msg.Errors())
	assert.Empty(t, msg.Warnings())
	assert.Equal(t, 1.0, msg.Confidence())
	assert.Equal(t, true, fieldValue(t, msg, "Forward Switch"))
	assert.Equal(t, false, fieldValue(t, msg, "Reverse Switch"))
	assert.Equal(t, true, fieldValue(t, msg, "Eco Switch"))
	assert.Equal(t, true, fieldValue(t, msg, "Foot Switch"))
	assert.Equal(t, 50.0, fieldValue(t, msg, "Throttle Position"))
	assert.Equal(t, "ACCELERATING", fieldValue(t, msg, "Vehicle State"))

	dir, _ := msg.Field("Direction")
	assert.Equal(t, "FORWARD", dir.FormatValue())
	mode, _ := msg.Field("Drive Mode")
	assert.Equal(t, "ECO", mode.FormatValue())
	assert.Equal(t, StatusValid, fieldStatus(t, msg, "CRC8"))
	assert.Equal(t, StatusValid, fieldStatus(t, msg, "End Marker"))
}

func TestHarnessCRCMismatch(t *testing.T) {
	d := harnessFrame(0x01, 0, 10, 0, 0, 0)
	d[6] ^= 0xFF
	msg, err := NewHarness().Decode(HarnessID, d)
	require.NoError(t, err)

	assert.Equal(t, StatusError, fieldStatus(t, msg, "CRC8"))
	assert.Less(t, msg.Confidence(), 1.0)
	assert.False(t, msg.Valid())
	assert.Contains(t, msg.Errors(), "CRC8 checksum validation failed")
}

func TestHarnessCRCSelfConsistent(t *testing.T) {
	for _, d := range [][]byte{
		harnessFrame(0, 0, 0, 0, 0, 0),
		harnessFrame(0x0F, 0x01, 100, 100, 0xFF, 0xC0),
		{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xAA},
	} {
		msg, err := NewHarness().Decode(HarnessID, d)
		require.NoError(t, err)
		f, _ := msg.Field("CRC8")
		calc := CRC8(d[:6])
		assert.Equal(t, uint64(d[6]), f.Raw())
		assert.Equal(t, calc == uint8(f.Raw()), f.Status() == StatusValid)
		assert.Equal(t, calc, msg.ProtocolInfo["crc_calculated"])
	}
}

func TestHarnessSequence(t *testing.T) {
	h := NewHarness()
	seqs := []struct {
		seq  byte
		want Status
	}{
		{254, StatusValid},
		{255, StatusValid},
		{0, StatusValid},
		{4, StatusWarning},
		{5, StatusValid},
	}
	for _, s := range seqs {
		msg, err := h.Decode(HarnessID, harnessFrame(0, 0, 0, 0, s.seq, 0))
		require.NoError(t, err)
		assert.Equal(t, s.want, fieldStatus(t, msg, "Sequence Counter"), "seq %d", s.seq)
		if s.want == StatusWarning {
			f, _ := msg.Field("Sequence Counter")
			assert.Contains(t, f.StatusMessage(), "gap: 3")
			assert.Len(t, msg.Warnings(), 1)
			assert.Empty(t, msg.Errors())
		}
	}
	assert.Equal(t, 1, h.SequenceErrors())

	h.Reset()
	assert.Equal(t, 0, h.SequenceErrors())
	msg, err := h.Decode(HarnessID, harnessFrame(0, 0, 0, 0, 99, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, fieldStatus(t, msg, "Sequence Counter"))
}

func TestHarnessSeparateInstances(t *testing.T) {
	a, b := NewHarness(), NewHarness()
	_, _ = a.Decode(HarnessID, harnessFrame(0, 0, 0, 0, 10, 0))
	msg, _ := b.Decode(HarnessID, harnessFrame(0, 0, 0, 0, 200, 0))
	assert.Equal(t, StatusValid, fieldStatus(t, msg, "Sequence Counter"))
}

func TestHarnessFaults(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		field string
		want  Status
	}{
		{"conflict", harnessFrame(0x03, 0, 0, 0, 0, 0), "Direction", StatusError},
		{"can error", harnessFrame(0, 0, 0, 0, 0, 0x80), "CAN Error", StatusError},
		{"system error", harnessFrame(0, 0, 0, 0, 0, 0x40), "System Error", StatusError},
		{"control reserved", harnessFrame(0x10, 0, 0, 0, 0, 0), "Control Reserved", StatusWarning},
		{"secondary reserved", harnessFrame(0, 0x02, 0, 0, 0, 0), "Secondary Reserved", StatusWarning},
		{"status reserved", harnessFrame(0, 0, 0, 0, 0, 0x01), "Status Reserved", StatusWarning},
		{"throttle over range", harnessFrame(0, 0, 150, 0, 0, 0), "Throttle Position", StatusWarning},
		{"bad end marker", func() []byte { d := harnessFrame(0, 0, 0, 0, 0, 0); d[7] = 0x00; return d }(), "End Marker", StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewHarness().Decode(HarnessID, tt.frame)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fieldStatus(t, msg, tt.field))
		})
	}
}

func TestHarnessVehicleState(t *testing.T) {
	tests := []struct {
		frame []byte
		want  string
	}{
		{harnessFrame(0x08, 0, 0, 0, 0, 0), "BRAKING"},
		{harnessFrame(0, 0, 0, 20, 0, 0), "BRAKING"},
		{harnessFrame(0, 0, 6, 0, 0, 0), "ACCELERATING"},
		{harnessFrame(0, 0x01, 0, 0, 0, 0), "READY"},
		{harnessFrame(0, 0, 0, 0, 0, 0), "IDLE"},
	}
	for _, tt := range tests {
		msg, err := NewHarness().Decode(HarnessID, tt.frame)
		require.NoError(t, err)
		assert.Equal(t, tt.want, fieldValue(t, msg, "Vehicle State"))
	}
}

func TestHarnessWrongLength(t *testing.T) {
	msg, err := NewHarness().Decode(HarnessID, []byte{0, 1, 2})
	require.NoError(t, err)
	assert.False(t, msg.Valid())
	assert.Empty(t, msg.Fields())
}
