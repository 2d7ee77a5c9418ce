package adapter

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// BaseAdapter holds the channels and shutdown plumbing shared by sources.
type BaseAdapter struct {
	name  string
	cfg   *Config
	log   zerolog.Logger
	lines chan string
	err   chan error
	close chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func NewBaseAdapter(name string, cfg *Config) BaseAdapter {
	return BaseAdapter{
		name:  name,
		cfg:   cfg,
		log:   cfg.Log.With().Str("source", name).Logger(),
		lines: make(chan string, 256),
		err:   make(chan error, 10),
		close: make(chan struct{}),
	}
}

func (base *BaseAdapter) Name() string {
	return base.name
}

func (base *BaseAdapter) Lines() <-chan string {
	return base.lines
}

func (base *BaseAdapter) Err() <-chan error {
	return base.err
}

// Close stops the reader goroutine and waits for it to exit.
func (base *BaseAdapter) Close() error {
	base.once.Do(func() {
		close(base.close)
	})
	base.wg.Wait()
	return nil
}

func (base *BaseAdapter) closed() bool {
	select {
	case <-base.close:
		return true
	default:
		return false
	}
}

func (base *BaseAdapter) SetError(err error) {
	select {
	case base.err <- err:
	default:
		base.log.Warn().Err(err).Msg(ErrErrorChanFull.Error())
	}
}

// emit hands a line to the consumer, blocking so lines are never dropped.
func (base *BaseAdapter) emit(ctx context.Context, line string) bool {
	select {
	case base.lines <- line:
		return true
	case <-ctx.Done():
		return false
	case <-base.close:
		return false
	}
}

// run starts fn on its own goroutine and closes Lines when it returns.
func (base *BaseAdapter) run(fn func()) {
	base.wg.Add(1)
	go func() {
		defer base.wg.Done()
		defer close(base.lines)
		fn()
	}()
}
