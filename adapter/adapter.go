// Package adapter provides the line sources that feed a pipeline: the
// serial bridge, capture file replay, a simulator and an in-memory source
// for tests.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Source delivers newline terminated bridge lines in arrival order. Lines is
// closed when the source stops.
type Source interface {
	Name() string
	Open(context.Context) error
	Lines() <-chan string
	Err() <-chan error
	Close() error
}

var (
	ErrNoPort          = errors.New("no serial port configured")
	ErrNoFile          = errors.New("no capture file configured")
	ErrSourceClosed    = errors.New("source closed")
	ErrErrorChanFull   = errors.New("error channel full")
	ErrUnknownSource   = errors.New("unknown source")
	ErrAlreadyRegister = errors.New("source already registered")
)

// StatusFunc is told when a source connects or loses its device.
type StatusFunc func(connected bool, port string)

type Config struct {
	Log zerolog.Logger

	// Serial.
	Port          string
	Baudrate      int
	Reconnect     bool
	RetryAttempts uint
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration

	// Capture replay.
	Fs   afero.Fs
	File string

	// Interval paces replayed and simulated lines, zero replays as fast as
	// the consumer reads.
	Interval time.Duration

	OnStatus   StatusFunc
	OnProgress func(read, total int64)
}

func (c *Config) status(connected bool, port string) {
	if c.OnStatus != nil {
		c.OnStatus(connected, port)
	}
}

type Info struct {
	Name               string
	Description        string
	RequiresSerialPort bool
	New                func(*Config) (Source, error)
}

func (i *Info) String() string {
	return fmt.Sprintf("%s | %s, requires serial port: %v", i.Name, i.Description, i.RequiresSerialPort)
}

var sourceMap = make(map[string]*Info)

func Register(info *Info) error {
	if _, found := sourceMap[info.Name]; found {
		return fmt.Errorf("%s: %w", info.Name, ErrAlreadyRegister)
	}
	sourceMap[info.Name] = info
	return nil
}

// New builds the named source. Names are case insensitive.
func New(name string, cfg *Config) (Source, error) {
	for n, info := range sourceMap {
		if strings.EqualFold(n, name) {
			return info.New(cfg)
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownSource)
}

func ListNames() []string {
	var out []string
	for name := range sourceMap {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func List() []Info {
	out := make([]Info, 0, len(sourceMap))
	for _, name := range ListNames() {
		out = append(out, *sourceMap[name])
	}
	return out
}
