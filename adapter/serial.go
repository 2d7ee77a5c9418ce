package adapter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.bug.st/serial"
)

const (
	DefaultBaudrate = 115200

	defaultRetryDelay    = 2 * time.Second
	defaultRetryMaxDelay = 30 * time.Second
	defaultRetryAttempts = 10
	retryFactor          = 1.5

	readTimeout = 100 * time.Millisecond
)

// port is the part of serial.Port the reader needs.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

type openFunc func(name string, mode *serial.Mode) (port, error)

func openSerial(name string, mode *serial.Mode) (port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Serial reads bridge lines from a serial port. With Reconnect set a lost
// port is reopened with exponential backoff.
type Serial struct {
	BaseAdapter
	open     openFunc
	splitter LineSplitter

	mu  sync.Mutex
	cur port
}

func init() {
	if err := Register(&Info{
		Name:               "serial",
		Description:        "CAN bridge on a serial port",
		RequiresSerialPort: true,
		New: func(cfg *Config) (Source, error) {
			return NewSerial(cfg)
		},
	}); err != nil {
		panic(err)
	}
}

func NewSerial(cfg *Config) (*Serial, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	if cfg.Baudrate == 0 {
		cfg.Baudrate = DefaultBaudrate
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.RetryMaxDelay == 0 {
		cfg.RetryMaxDelay = defaultRetryMaxDelay
	}
	return &Serial{
		BaseAdapter: NewBaseAdapter("serial", cfg),
		open:        openSerial,
	}, nil
}

// Backoff grows the delay by factor per attempt, capped at max.
func Backoff(base time.Duration, factor float64, max time.Duration) retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		d := time.Duration(float64(base) * math.Pow(factor, float64(n)))
		if d > max || d <= 0 {
			return max
		}
		return d
	}
}

func (s *Serial) Open(ctx context.Context) error {
	p, err := s.connect(ctx)
	if err != nil {
		return err
	}
	s.run(func() { s.readLoop(ctx, p) })
	return nil
}

func (s *Serial) connect(ctx context.Context) (port, error) {
	mode := &serial.Mode{
		BaudRate: s.cfg.Baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	var p port
	err := retry.Do(func() error {
		var err error
		p, err = s.open(s.cfg.Port, mode)
		if err != nil {
			var perr *serial.PortError
			if errors.As(err, &perr) && perr.Code() == serial.InvalidSpeed {
				return retry.Unrecoverable(fmt.Errorf("open %s: %w", s.cfg.Port, err))
			}
			return fmt.Errorf("open %s: %w", s.cfg.Port, err)
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(s.cfg.RetryAttempts),
		retry.DelayType(Backoff(s.cfg.RetryDelay, retryFactor, s.cfg.RetryMaxDelay)),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn().Err(err).Uint("attempt", n+1).Msg("serial open failed")
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	s.setPort(p)
	s.log.Info().Str("port", s.cfg.Port).Int("baudrate", s.cfg.Baudrate).Msg("connected")
	s.cfg.status(true, s.cfg.Port)
	return p, nil
}

func (s *Serial) readLoop(ctx context.Context, p port) {
	buf := make([]byte, 256)
	var lines []string
	collect := func(l string) { lines = append(lines, l) }
	defer func() {
		s.setPort(nil)
		if p != nil {
			p.Close()
			s.cfg.status(false, s.cfg.Port)
		}
	}()
	for {
		if ctx.Err() != nil || s.closed() {
			return
		}
		n, err := p.Read(buf)
		if err != nil {
			s.setPort(nil)
			p.Close()
			p = nil
			s.cfg.status(false, s.cfg.Port)
			if ctx.Err() != nil || s.closed() {
				return
			}
			s.SetError(fmt.Errorf("read %s: %w", s.cfg.Port, err))
			if !s.cfg.Reconnect {
				return
			}
			s.splitter.Reset()
			if p, err = s.connect(ctx); err != nil {
				s.SetError(err)
				return
			}
			continue
		}
		if n == 0 {
			continue
		}
		lines = lines[:0]
		s.splitter.Feed(buf[:n], collect)
		for _, l := range lines {
			if !s.emit(ctx, l) {
				return
			}
		}
	}
}

func (s *Serial) setPort(p port) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = p
}

// Send validates command and writes it newline terminated to the bridge.
func (s *Serial) Send(command string) error {
	command, err := ParseCommand(command)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return fmt.Errorf("send %q: %w", command, ErrNotConnected)
	}
	if _, err := s.cur.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("write %s: %w", s.cfg.Port, err)
	}
	s.log.Info().Str("command", command).Msg("sent")
	return nil
}
