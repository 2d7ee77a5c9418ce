package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrakeSensor(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		pressed   bool
		state     string
		status    Status
		errors    int
		warnings  int
		reservedW bool
	}{
		{"released", []byte{0x22, 0x00, 0x00}, false, "RELEASED", StatusValid, 0, 0, false},
		{"pressed", []byte{0x22, 0x01}, true, "PRESSED", StatusValid, 0, 0, false},
		{"invalid status", []byte{0x22, 0x07}, false, "RELEASED", StatusError, 1, 0, false},
		{"wrong sensor", []byte{0x23, 0x01}, true, "PRESSED", StatusValid, 0, 1, false},
		{"reserved set", []byte{0x22, 0x01, 0x10}, true, "PRESSED", StatusValid, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewBrakeSensor().Decode(BrakeSensorID, tt.data)
			require.NoError(t, err)

			st, _ := msg.Field("Brake Status")
			assert.Equal(t, tt.pressed, st.Value())
			assert.Equal(t, tt.status, st.Status())
			state, _ := msg.Field("Brake State")
			assert.Equal(t, tt.state, state.Value())
			assert.Len(t, msg.Errors(), tt.errors)
			assert.Len(t, msg.Warnings(), tt.warnings)
			if tt.reservedW {
				r, ok := msg.Field("Reserved")
				require.True(t, ok)
				assert.Equal(t, StatusWarning, r.Status())
			}
		})
	}
}

func TestBrakeSensorShortFrame(t *testing.T) {
	p := NewBrakeSensor()
	assert.False(t, p.CanDecode(BrakeSensorID, []byte{0x22}))
	assert.False(t, p.CanDecode(ThrottleSensorID, []byte{0x22, 0x01}))
	msg, err := p.Decode(BrakeSensorID, []byte{0x22})
	require.NoError(t, err)
	assert.False(t, msg.Valid())
}

func TestThrottleSensor(t *testing.T) {
	tests := []struct {
		raw     byte
		percent float64
		state   string
	}{
		{0x00, 0, "IDLE"},
		{0x20, 12.5, "LOW"},
		{0x80, 50.2, "MEDIUM"},
		{0xC0, 75.3, "HIGH"},
		{0xFF, 100, "HIGH"},
	}
	for _, tt := range tests {
		msg, err := NewThrottleSensor().Decode(ThrottleSensorID, []byte{0x23, tt.raw})
		require.NoError(t, err)
		pos, ok := msg.Field("Throttle Position")
		require.True(t, ok)
		assert.InDelta(t, tt.percent, pos.Value(), 1e-9, "raw %#x", tt.raw)
		assert.Equal(t, StatusValid, pos.Status())
		assert.Equal(t, uint64(tt.raw), pos.Raw())
		state, _ := msg.Field("Throttle State")
		assert.Equal(t, tt.state, state.Value(), "raw %#x", tt.raw)
		assert.True(t, msg.Valid())
	}
}

func TestThrottleSensorWrongID(t *testing.T) {
	msg, err := NewThrottleSensor().Decode(ThrottleSensorID, []byte{0x24, 0x10})
	require.NoError(t, err)
	id, _ := msg.Field("Sensor ID")
	assert.Equal(t, StatusWarning, id.Status())
	assert.Equal(t, "Steering Sensor", id.FormatValue())
	assert.Len(t, msg.Warnings(), 1)
}
