package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func switchFrame(bitmap byte, ts uint32) []byte {
	return []byte{switchSignature, bitmap, byte(ts), byte(ts >> 8), byte(ts >> 16), byte(ts >> 24), 0x00, switchEndMarker}
}

func TestSwitchStateForward(t *testing.T) {
	s := NewSwitchState()
	data := []byte{0x5A, 0x10, 0x34, 0x12, 0x00, 0x00, 0x00, 0xFF}
	require.True(t, s.CanDecode(SwitchStateID, data))

	msg, err := s.Decode(SwitchStateID, data)
	require.NoError(t, err)

	assert.Empty(t, msg.Errors())
	assert.True(t, msg.Valid())
	for _, name := range switchNames {
		assert.Equal(t, name == "Forward Switch", fieldValue(t, msg, name), name)
	}
	assert.Equal(t, uint32(0x1234), fieldValue(t, msg, "Timestamp"))
	assert.Equal(t, 1, fieldValue(t, msg, "Active Switch Count"))
	assert.Equal(t, "FORWARD", fieldValue(t, msg, "Operational State"))
	_, hasDelta := msg.Field("Time Delta")
	assert.False(t, hasDelta)

	fwd, _ := msg.Field("Forward Switch")
	assert.Equal(t, BitRange{11, 11}, fwd.Bits())
	ts, _ := msg.Field("Timestamp")
	assert.Equal(t, BitRange{16, 47}, ts.Bits())
}

func TestSwitchStateBadEndMarker(t *testing.T) {
	s := NewSwitchState()
	data := []byte{0x5A, 0x10, 0x34, 0x12, 0x00, 0x00, 0x00, 0x00}
	assert.False(t, s.CanDecode(SwitchStateID, data))

	msg, err := s.Decode(SwitchStateID, data)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Errors())
	assert.False(t, msg.Valid())
	assert.Equal(t, StatusError, fieldStatus(t, msg, "End Marker"))
}

func TestSwitchStateBadSignature(t *testing.T) {
	data := switchFrame(0, 0)
	data[0] = 0x00
	msg, err := NewSwitchState().Decode(SwitchStateID, data)
	require.NoError(t, err)
	assert.Equal(t, StatusError, fieldStatus(t, msg, "Message Signature"))
	assert.False(t, msg.Valid())
}

func TestSwitchStateTimeDelta(t *testing.T) {
	tests := []struct {
		name   string
		first  uint32
		second uint32
		delta  uint32
		status Status
	}{
		{"normal", 1000, 1100, 100, StatusValid},
		{"slow", 1000, 2000, 1000, StatusWarning},
		{"wraparound", 0xFFFFFFF0, 0x10, 0x20, StatusValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSwitchState()
			_, err := s.Decode(SwitchStateID, switchFrame(0, tt.first))
			require.NoError(t, err)
			msg, err := s.Decode(SwitchStateID, switchFrame(0, tt.second))
			require.NoError(t, err)
			assert.Equal(t, tt.delta, fieldValue(t, msg, "Time Delta"))
			assert.Equal(t, tt.status, fieldStatus(t, msg, "Time Delta"))
			assert.Equal(t, 2, s.Messages())
		})
	}
}

func TestSwitchStateOperationalState(t *testing.T) {
	tests := []struct {
		bitmap byte
		state  string
		dir    string
	}{
		{0x00, "IDLE", "NEUTRAL"},
		{0x01, "BRAKING", "NEUTRAL"},
		{0x11, "BRAKING", "FORWARD"},
		{0x04, "REVERSE", "REVERSE"},
		{0x02, "AUXILIARY", "NEUTRAL"},
		{0x08, "AUXILIARY", "NEUTRAL"},
		{0x14, "CONFLICT", "CONFLICT"},
		{0x15, "CONFLICT", "CONFLICT"},
	}
	for _, tt := range tests {
		msg, err := NewSwitchState().Decode(SwitchStateID, switchFrame(tt.bitmap, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.state, fieldValue(t, msg, "Operational State"), "bitmap %#x", tt.bitmap)
		dir, _ := msg.Field("Direction")
		assert.Equal(t, tt.dir, dir.FormatValue(), "bitmap %#x", tt.bitmap)
		if tt.state == "CONFLICT" {
			assert.Equal(t, StatusError, fieldStatus(t, msg, "Operational State"))
			assert.Equal(t, StatusError, dir.Status())
			assert.False(t, msg.Valid())
		}
	}
}

func TestSwitchStateReserved(t *testing.T) {
	data := switchFrame(0xE0, 0)
	data[6] = 0x01
	msg, err := NewSwitchState().Decode(SwitchStateID, data)
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, fieldStatus(t, msg, "Switch Reserved"))
	assert.Equal(t, StatusWarning, fieldStatus(t, msg, "Reserved"))
	assert.Len(t, msg.Warnings(), 2)
	assert.Empty(t, msg.Errors())
	assert.Equal(t, "IDLE", fieldValue(t, msg, "Operational State"))
}

func TestSwitchStateReset(t *testing.T) {
	s := NewSwitchState()
	_, _ = s.Decode(SwitchStateID, switchFrame(0, 10))
	s.Reset()
	msg, _ := s.Decode(SwitchStateID, switchFrame(0, 20))
	_, hasDelta := msg.Field("Time Delta")
	assert.False(t, hasDelta)
	assert.Equal(t, 1, s.Messages())
}
