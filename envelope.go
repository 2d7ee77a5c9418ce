package canbridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/roffe/canbridge/pkg/canid"
)

// Kind is the kind of line received from the bridge.
type Kind int

const (
	KindRX Kind = iota
	KindTX
	KindError
	KindInfo
)

func (k Kind) String() string {
	switch k {
	case KindRX:
		return "RX"
	case KindTX:
		return "TX"
	case KindError:
		return "ERROR"
	case KindInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Envelope is one parsed bridge line. RX and TX envelopes always carry an
// id, ERROR and INFO envelopes never carry an id or payload.
type Envelope struct {
	kind       Kind
	time       time.Time
	id         uint32
	hasID      bool
	data       []byte
	raw        string
	success    bool
	text       string
	deviceTime string
}

func newFrame(kind Kind, id uint32, data []byte, raw string, success bool) *Envelope {
	return &Envelope{
		kind:    kind,
		time:    time.Now(),
		id:      id,
		hasID:   true,
		data:    append([]byte{}, data...),
		raw:     raw,
		success: success,
	}
}

func NewRX(id uint32, data []byte, raw string) *Envelope {
	return newFrame(KindRX, id, data, raw, true)
}

func NewTX(id uint32, data []byte, raw string, sent bool) *Envelope {
	return newFrame(KindTX, id, data, raw, sent)
}

func NewError(text, raw string) *Envelope {
	return &Envelope{
		kind: KindError,
		time: time.Now(),
		raw:  raw,
		text: text,
	}
}

func NewInfo(text, raw string) *Envelope {
	return &Envelope{
		kind:    KindInfo,
		time:    time.Now(),
		raw:     raw,
		text:    text,
		success: true,
	}
}

func (e *Envelope) Kind() Kind      { return e.kind }
func (e *Envelope) Time() time.Time { return e.time }
func (e *Envelope) Raw() string     { return e.raw }
func (e *Envelope) Success() bool   { return e.success }
func (e *Envelope) Text() string    { return e.text }
func (e *Envelope) Len() int        { return len(e.data) }

// ID returns the CAN id, ok is false for ERROR and INFO envelopes.
func (e *Envelope) ID() (id uint32, ok bool) {
	return e.id, e.hasID
}

// Data returns a copy of the payload. Frames with no payload return an
// empty, non-nil slice.
func (e *Envelope) Data() []byte {
	if e.data == nil {
		return nil
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out
}

// DeviceTime is the optional bridge timestamp trailing CAN_RX/CAN_TX lines.
func (e *Envelope) DeviceTime() string {
	return e.deviceTime
}

// IsFrame reports whether the envelope carries a CAN frame.
func (e *Envelope) IsFrame() bool {
	return e.kind == KindRX || e.kind == KindTX
}

var (
	green = color.New(color.FgGreen).SprintfFunc()
	blue  = color.New(color.FgHiBlue).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
	cyan  = color.New(color.FgCyan).SprintfFunc()
)

func (e *Envelope) hexData() string {
	var out strings.Builder
	for i, b := range e.data {
		if i > 0 {
			out.WriteByte(' ')
		}
		fmt.Fprintf(&out, "%02X", b)
	}
	return out.String()
}

func (e *Envelope) sentMark() string {
	if e.success {
		return "✓"
	}
	return "✗"
}

func (e *Envelope) String() string {
	ts := e.time.Format("15:04:05.000")
	switch e.kind {
	case KindRX:
		return fmt.Sprintf("%s RX ID=%s [%d] %s", ts, canid.Format(e.id), len(e.data), e.hexData())
	case KindTX:
		return fmt.Sprintf("%s TX ID=%s [%d] %s %s", ts, canid.Format(e.id), len(e.data), e.hexData(), e.sentMark())
	case KindError:
		return fmt.Sprintf("%s ERR %s", ts, e.text)
	default:
		return fmt.Sprintf("%s INFO %s", ts, e.text)
	}
}

func (e *Envelope) ColorString() string {
	ts := e.time.Format("15:04:05.000")
	switch e.kind {
	case KindRX:
		return fmt.Sprintf("%s %s %s [%d] %s", ts, green("RX"), green("ID=%s", canid.Format(e.id)), len(e.data), e.hexData())
	case KindTX:
		return fmt.Sprintf("%s %s %s [%d] %s %s", ts, blue("TX"), blue("ID=%s", canid.Format(e.id)), len(e.data), e.hexData(), e.sentMark())
	case KindError:
		return fmt.Sprintf("%s %s %s", ts, red("ERR"), red("%s", e.text))
	default:
		return fmt.Sprintf("%s %s %s", ts, cyan("INFO"), e.text)
	}
}
