package adapter

import (
	"context"
	"sync"
)

// Virtual is an in-memory source. Whatever is fed comes out of Lines.
type Virtual struct {
	BaseAdapter
	in       chan []byte
	splitter LineSplitter

	mu       sync.Mutex
	finished bool
	sent     []string
}

func init() {
	if err := Register(&Info{
		Name:        "virtual",
		Description: "In-memory line source",
		New: func(cfg *Config) (Source, error) {
			return NewVirtual(cfg), nil
		},
	}); err != nil {
		panic(err)
	}
}

func NewVirtual(cfg *Config) *Virtual {
	return &Virtual{
		BaseAdapter: NewBaseAdapter("virtual", cfg),
		in:          make(chan []byte, 64),
	}
}

func (v *Virtual) Open(ctx context.Context) error {
	v.cfg.status(true, v.name)
	v.run(func() {
		defer v.cfg.status(false, v.name)
		for {
			select {
			case <-ctx.Done():
				return
			case <-v.close:
				return
			case chunk, ok := <-v.in:
				if !ok {
					return
				}
				var lines []string
				v.splitter.Feed(chunk, func(l string) { lines = append(lines, l) })
				for _, l := range lines {
					if !v.emit(ctx, l) {
						return
					}
				}
			}
		}
	})
	return nil
}

// Feed queues one line, a newline is appended.
func (v *Virtual) Feed(line string) error {
	return v.FeedBytes([]byte(line + "\n"))
}

// FeedBytes queues raw bytes as they would arrive from a device.
func (v *Virtual) FeedBytes(b []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finished || v.closed() {
		return ErrSourceClosed
	}
	select {
	case v.in <- append([]byte(nil), b...):
		return nil
	case <-v.close:
		return ErrSourceClosed
	}
}

// Finish ends the stream once everything fed so far has been delivered.
func (v *Virtual) Finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.finished {
		v.finished = true
		close(v.in)
	}
}

// Send records a validated command, see Sent.
func (v *Virtual) Send(command string) error {
	command, err := ParseCommand(command)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finished || v.closed() {
		return ErrSourceClosed
	}
	v.sent = append(v.sent, command)
	return nil
}

func (v *Virtual) Sent() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.sent...)
}
