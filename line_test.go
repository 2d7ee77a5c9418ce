package canbridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		kind    Kind
		id      uint32
		hasID   bool
		data    []byte
		success bool
		text    string
	}{
		{"rx hex id", "CAN_RX;0x635;01,FF,04,04,05,00,FF,00", KindRX, 0x635, true, []byte{0x01, 0xFF, 0x04, 0x04, 0x05, 0x00, 0xFF, 0x00}, true, ""},
		{"rx bare hex id", "CAN_RX;123;0A,0b", KindRX, 0x123, true, []byte{0x0A, 0x0B}, true, ""},
		{"rx empty payload", "CAN_RX;0x7FF;", KindRX, 0x7FF, true, []byte{}, true, ""},
		{"rx prefixed bytes", "CAN_RX;0x100;0x01,0X02,ff", KindRX, 0x100, true, []byte{1, 2, 0xFF}, true, ""},
		{"rx single digit bytes", "CAN_RX;0x100;1,2", KindRX, 0x100, true, []byte{1, 2}, true, ""},
		{"rx with timestamp", "CAN_RX;0x410;01;123456", KindRX, 0x410, true, []byte{1}, true, ""},
		{"tx", "CAN_TX;0x200;DE,AD", KindTX, 0x200, true, []byte{0xDE, 0xAD}, true, ""},
		{"can error", "CAN_ERR;0x01;Bus off detected", KindError, 0, false, nil, false, "Error 0x01: Bus off detected"},
		{"can error details", "CAN_ERR;0x02;Stuff error;count=5", KindError, 0, false, nil, false, "Error 0x02: Stuff error (count=5)"},
		{"status", "STATUS;CAN initialization successful", KindInfo, 0, false, nil, true, "CAN initialization successful"},
		{"status keeps semicolons", "STATUS;INFO;bitrate=500k", KindInfo, 0, false, nil, true, "INFO;bitrate=500k"},
		{"legacy rx", "RX: ID=0x123 LEN=3 DATA=010203", KindRX, 0x123, true, []byte{1, 2, 3}, true, ""},
		{"legacy tx sent", "TX: ID=0x321 LEN=1 DATA=FF - SENT", KindTX, 0x321, true, []byte{0xFF}, true, ""},
		{"legacy tx not sent", "TX: ID=0x321 LEN=1 DATA=FF", KindTX, 0x321, true, []byte{0xFF}, false, ""},
		{"legacy tx without id", "TX: Failed to send message", KindError, 0, false, nil, false, "Failed to parse TX message: missing ID"},
		{"error keyword", "Init ERROR: timeout", KindError, 0, false, nil, false, "Init ERROR: timeout"},
		{"info", "CAN bridge ready", KindInfo, 0, false, nil, true, "CAN bridge ready"},
		{"trims whitespace", "  CAN_RX;0x10;01 \r\n", KindRX, 0x10, true, []byte{1}, true, ""},
		{"empty", "", KindInfo, 0, false, nil, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := ParseLine(tt.line)
			require.NotNil(t, env)
			assert.Equal(t, tt.kind, env.Kind())
			id, ok := env.ID()
			assert.Equal(t, tt.hasID, ok)
			assert.Equal(t, tt.id, id)
			if tt.hasID {
				assert.Equal(t, tt.data, env.Data())
				assert.Equal(t, len(tt.data), env.Len())
			} else {
				assert.Zero(t, env.Len())
			}
			assert.Equal(t, tt.success, env.Success())
			assert.Equal(t, tt.text, env.Text())
			assert.Equal(t, strings.TrimSpace(tt.line), env.Raw())
		})
	}
}

func TestParseLineDeviceTime(t *testing.T) {
	env := ParseLine("CAN_TX;0x410;01,02;998877")
	require.NotNil(t, env)
	assert.Equal(t, "998877", env.DeviceTime())
}

func TestParseLineMalformed(t *testing.T) {
	tests := []struct {
		line   string
		prefix string
	}{
		{"CAN_RX;0x100", "Failed to parse CAN_RX message"},
		{"CAN_RX;zz;01", "Failed to parse CAN_RX message"},
		{"CAN_RX;0x100;GG", "Failed to parse CAN_RX message"},
		{"CAN_RX;0x100;01,,02", "Failed to parse CAN_RX message"},
		{"CAN_RX;0x100;0x,02", "Failed to parse CAN_RX message"},
		{"CAN_RX;0x100;100", "Failed to parse CAN_RX message"},
		{"CAN_RX;0x100;01;2;3", "Failed to parse CAN_RX message"},
		{"CAN_TX;;01", "Failed to parse CAN_TX message"},
		{"CAN_ERR;0x01", "Failed to parse CAN_ERR message"},
		{"RX: ID=0xZZ LEN=1 DATA=01", "Failed to parse RX message"},
		{"RX: ID=0x100 LEN=1 DATA=0", "Failed to parse RX message"},
		{"TX: ID=0x100 LEN=x DATA=01", "Failed to parse TX message"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			env := ParseLine(tt.line)
			require.NotNil(t, env)
			assert.Equal(t, KindError, env.Kind())
			assert.False(t, env.Success())
			assert.True(t, strings.HasPrefix(env.Text(), tt.prefix), env.Text())
			assert.Equal(t, tt.line, env.Raw())
			_, ok := env.ID()
			assert.False(t, ok)
		})
	}
}

func TestEnvelopeDataEmptyPayload(t *testing.T) {
	env := ParseLine("CAN_RX;0x7FF;")
	require.NotNil(t, env)
	data := env.Data()
	assert.NotNil(t, data)
	assert.Empty(t, data)
	assert.Nil(t, ParseLine("STATUS;ok").Data())
}

func TestParseLineStatsSuppressed(t *testing.T) {
	for _, line := range []string{"STATS;10;2;0;12.5", "STATS;", " STATS;1;2;3;4\r"} {
		assert.Nil(t, ParseLine(line), line)
		assert.True(t, IsStats(line))
	}
}

func TestParseLineRXPayloadCount(t *testing.T) {
	tokens := []string{"00", "11", "22", "33", "44", "55", "66", "77"}
	for n := 0; n <= len(tokens); n++ {
		env := ParseLine("CAN_RX;0x1A0;" + strings.Join(tokens[:n], ","))
		require.NotNil(t, env)
		require.Equal(t, KindRX, env.Kind())
		assert.Equal(t, n, env.Len())
		for i, b := range env.Data() {
			assert.Equal(t, byte(i*0x11), b)
		}
	}
}

func TestEnvelopeString(t *testing.T) {
	env := NewTX(0x7, []byte{0x01, 0xAB}, "", false)
	assert.True(t, strings.HasSuffix(env.String(), "TX ID=0x007 [2] 01 AB ✗"), env.String())
	assert.True(t, strings.HasSuffix(NewInfo("hello", "").String(), "INFO hello"))
	assert.True(t, strings.HasSuffix(NewError("bad", "").String(), "ERR bad"))
	assert.Contains(t, NewRX(0x100, nil, "").ColorString(), "0x100")
}
