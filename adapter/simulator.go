package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/roffe/canbridge/parser"
)

// Simulator produces bridge lines for the harness, switch panel and pedal
// sensors as a real bridge would print them.
type Simulator struct {
	BaseAdapter
	seq  uint8
	tick uint32
	step int
}

func init() {
	if err := Register(&Info{
		Name:        "simulator",
		Description: "Generated harness, switch and sensor traffic",
		New: func(cfg *Config) (Source, error) {
			return NewSimulator(cfg), nil
		},
	}); err != nil {
		panic(err)
	}
}

func NewSimulator(cfg *Config) *Simulator {
	if cfg.Interval == 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	return &Simulator{BaseAdapter: NewBaseAdapter("simulator", cfg)}
}

func (s *Simulator) Open(ctx context.Context) error {
	s.cfg.status(true, s.name)
	s.run(func() {
		defer s.cfg.status(false, s.name)
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		if !s.emit(ctx, "STATUS;CAN initialization successful") {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.close:
				return
			case <-t.C:
				for _, l := range s.Next() {
					if !s.emit(ctx, l) {
						return
					}
				}
			}
		}
	})
	return nil
}

// Next returns the lines for one simulation step.
func (s *Simulator) Next() []string {
	s.step++
	s.seq++
	s.tick += uint32(s.cfg.Interval / time.Millisecond)

	phase := s.step % 40
	fwd := phase < 20
	throttle := byte(0)
	if phase > 2 && phase < 18 {
		throttle = byte(phase * 5)
	}
	brakePressed := phase >= 18 && phase < 22

	var control byte
	if fwd {
		control |= 0x01
	} else {
		control |= 0x02
	}
	if brakePressed {
		control |= 0x08
	}
	brake := byte(0)
	if brakePressed {
		brake = 40
	}
	harness := []byte{control, 0x01, throttle, brake, s.seq, 0x00, 0x00, 0xAA}
	harness[6] = parser.CRC8(harness[:6])

	var switches byte
	if brakePressed {
		switches |= 1 << 0
	}
	if fwd {
		switches |= 1 << 4
	} else {
		switches |= 1 << 2
	}
	sw := []byte{0x5A, switches, 0, 0, 0, 0, 0x00, 0xFF}
	binary.LittleEndian.PutUint32(sw[2:6], s.tick)

	lines := []string{
		FormatRX(parser.HarnessID, harness),
		FormatRX(parser.SwitchStateID, sw),
		FormatRX(parser.ThrottleSensorID, []byte{0x23, byte(uint16(throttle) * 255 / 100)}),
		FormatRX(parser.BrakeSensorID, []byte{0x22, b2b(brakePressed), 0x00}),
	}
	if s.step%20 == 0 {
		lines = append(lines, fmt.Sprintf("STATS;%d;0;0;12.5", s.step*4))
	}
	return lines
}

func b2b(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// FormatRX renders a frame as a CAN_RX bridge line.
func FormatRX(id uint32, data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("CAN_RX;0x%03X;%s", id, strings.Join(parts, ","))
}
