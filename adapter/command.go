package adapter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrNotConnected   = errors.New("not connected")
	ErrSendNotSupport = errors.New("source cannot send")
)

const (
	maxStandardID = 0x7FF
	maxSendBytes  = 8
)

// Sender is implemented by sources that can write commands to the bridge.
type Sender interface {
	Send(command string) error
}

// ParseCommand validates a bridge command and returns it trimmed. Accepted
// commands are
//
//	send:<id>:<data>   id 11 bit hex, "0x" optional, data up to 8 bytes as packed hex
//	test
//	status
//	reset
func ParseCommand(command string) (string, error) {
	command = strings.TrimSpace(command)
	switch command {
	case "test", "status", "reset":
		return command, nil
	case "":
		return "", fmt.Errorf("empty command: %w", ErrInvalidCommand)
	}
	if !strings.HasPrefix(command, "send:") {
		return "", fmt.Errorf("%q, use send:ID:DATA, test, status or reset: %w", command, ErrInvalidCommand)
	}
	parts := strings.Split(command, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("format is send:ID:DATA: %w", ErrInvalidCommand)
	}
	idPart := strings.TrimPrefix(strings.TrimPrefix(parts[1], "0x"), "0X")
	if idPart == "" {
		return "", fmt.Errorf("CAN id required: %w", ErrInvalidCommand)
	}
	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return "", fmt.Errorf("CAN id %q: %w", parts[1], ErrInvalidCommand)
	}
	if id > maxStandardID {
		return "", fmt.Errorf("CAN id 0x%X exceeds 0x7FF: %w", id, ErrInvalidCommand)
	}
	data := parts[2]
	if len(data)%2 != 0 {
		return "", fmt.Errorf("data must have an even number of hex digits: %w", ErrInvalidCommand)
	}
	if len(data) > maxSendBytes*2 {
		return "", fmt.Errorf("data exceeds %d bytes: %w", maxSendBytes, ErrInvalidCommand)
	}
	for i := 0; i < len(data); i += 2 {
		if _, err := strconv.ParseUint(data[i:i+2], 16, 8); err != nil {
			return "", fmt.Errorf("data %q is not hex: %w", data, ErrInvalidCommand)
		}
	}
	return command, nil
}

// FormatSend renders a send command, "send:123:DEADBEEF".
func FormatSend(id uint32, data []byte) string {
	return fmt.Sprintf("send:%X:%X", id, data)
}
