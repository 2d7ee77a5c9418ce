package parser

import (
	"fmt"
	"math"
)

const (
	BrakeSensorName    = "Golf Cart Brake Sensor"
	ThrottleSensorName = "Golf Cart Throttle Sensor"

	BrakeSensorID    = 0x100
	ThrottleSensorID = 0x101
)

const (
	sensorBrake    = 0x22
	sensorThrottle = 0x23
	sensorSteering = 0x24
)

var sensorTypes = map[int64]string{
	sensorBrake:    "Brake Sensor",
	sensorThrottle: "Throttle Sensor",
	sensorSteering: "Steering Sensor",
}

func init() {
	for _, info := range []*Info{
		{
			Name:        BrakeSensorName,
			Description: "Parser for golf cart brake sensor messages (CAN ID 0x100)",
			New:         func() Parser { return NewBrakeSensor() },
		},
		{
			Name:        ThrottleSensorName,
			Description: "Parser for golf cart throttle sensor messages (CAN ID 0x101)",
			New:         func() Parser { return NewThrottleSensor() },
		},
	} {
		if err := Register(info); err != nil {
			panic(err)
		}
	}
}

func sensorIDField(id byte, want byte) Field {
	status, note := StatusValid, ""
	if id != want {
		status, note = StatusWarning, fmt.Sprintf("Expected %s (0x%02X)", sensorTypes[int64(want)], want)
	}
	return NewField("Sensor ID", FieldEnum, int64(id),
		WithRaw(uint64(id)),
		WithBitRange(ByteBits(0)),
		WithDescription("Sensor type identifier"),
		WithEnum(sensorTypes),
		WithStatus(status, note),
	)
}

// BrakeSensor decodes the brake pedal switch frame:
//
//	byte 0  sensor id (0x22)
//	byte 1  0x00 released, 0x01 pressed
//	byte 2  reserved, 0x00
type BrakeSensor struct {
	Base
}

func NewBrakeSensor() *BrakeSensor {
	return &BrakeSensor{
		Base: NewBase(BrakeSensorName, "1.0", "Parser for golf cart brake sensor messages (CAN ID 0x100)", KindCustom, 2),
	}
}

func (*BrakeSensor) CanDecode(id uint32, data []byte) bool {
	return id == BrakeSensorID && len(data) >= 2
}

func (*BrakeSensor) DeclaredIDs() []IDRange {
	return []IDRange{SingleID(BrakeSensorID)}
}

func (p *BrakeSensor) Decode(id uint32, data []byte) (*DecodedMessage, error) {
	msg := NewDecodedMessage(p, "Golf Cart Sensor", "Brake Status")
	if len(data) < 2 {
		msg.AddError(fmt.Sprintf("Invalid packet length: %d bytes, expected at least 2", len(data)))
		return msg, nil
	}

	msg.AddField(sensorIDField(data[0], sensorBrake))

	status := data[1]
	pressed := status == 0x01
	st, note := StatusValid, ""
	if status > 0x01 {
		st, note = StatusError, "Invalid brake status value"
	}
	msg.AddField(NewField("Brake Status", FieldBoolean, pressed,
		WithRaw(uint64(status)),
		WithBitRange(ByteBits(1)),
		WithDescription("Brake pedal position"),
		WithStatus(st, note),
	))

	state := "RELEASED"
	if pressed {
		state = "PRESSED"
	}
	msg.AddField(NewField("Brake State", FieldString, state,
		WithRaw(uint64(status)),
		WithBitRange(ByteBits(1)),
		WithDescription("Current brake pedal state"),
		WithStatus(StatusValid, ""),
	))

	if len(data) >= 3 {
		reserved := data[2]
		st, note := StatusValid, ""
		if reserved != 0x00 {
			st, note = StatusWarning, "Reserved byte should be 0x00"
		}
		msg.AddField(NewField("Reserved", FieldInteger, reserved,
			WithRaw(uint64(reserved)),
			WithBitRange(ByteBits(2)),
			WithDescription("Reserved byte (should be 0x00)"),
			WithStatus(st, note),
		))
	}

	if data[0] != sensorBrake {
		msg.AddWarning("Message may not be from brake sensor")
	}
	if status > 0x01 {
		msg.AddError(fmt.Sprintf("Invalid brake status: 0x%02X", status))
	}
	return msg, nil
}

// ThrottleSensor decodes the throttle pedal frame:
//
//	byte 0  sensor id (0x23)
//	byte 1  position, 0x00-0xFF maps to 0-100 %
type ThrottleSensor struct {
	Base
}

func NewThrottleSensor() *ThrottleSensor {
	return &ThrottleSensor{
		Base: NewBase(ThrottleSensorName, "1.0", "Parser for golf cart throttle sensor messages (CAN ID 0x101)", KindCustom, 2),
	}
}

func (*ThrottleSensor) CanDecode(id uint32, data []byte) bool {
	return id == ThrottleSensorID && len(data) >= 2
}

func (*ThrottleSensor) DeclaredIDs() []IDRange {
	return []IDRange{SingleID(ThrottleSensorID)}
}

func (p *ThrottleSensor) Decode(id uint32, data []byte) (*DecodedMessage, error) {
	msg := NewDecodedMessage(p, "Golf Cart Sensor", "Throttle Position")
	if len(data) < 2 {
		msg.AddError(fmt.Sprintf("Invalid packet length: %d bytes, expected at least 2", len(data)))
		return msg, nil
	}

	msg.AddField(sensorIDField(data[0], sensorThrottle))

	const factor = 100.0 / 255.0
	raw := data[1]
	percent := math.Round(Scale(uint64(raw), factor, 0)*10) / 10
	msg.AddField(NewField("Throttle Position", FieldFloat, percent,
		WithUnit("%"),
		WithRaw(uint64(raw)),
		WithBitRange(ByteBits(1)),
		WithDescription("Throttle pedal position"),
		WithBounds(0, 100),
		WithScale(factor, 0),
	))

	var state string
	switch {
	case percent == 0:
		state = "IDLE"
	case percent < 25:
		state = "LOW"
	case percent < 75:
		state = "MEDIUM"
	default:
		state = "HIGH"
	}
	msg.AddField(NewField("Throttle State", FieldString, state,
		WithRaw(uint64(raw)),
		WithBitRange(ByteBits(1)),
		WithDescription("Throttle position category"),
		WithStatus(StatusValid, ""),
	))

	if data[0] != sensorThrottle {
		msg.AddWarning("Message may not be from throttle sensor")
	}
	return msg, nil
}
