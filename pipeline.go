package canbridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/roffe/canbridge/parser"
	"github.com/rs/zerolog"
)

// Pipeline runs parse, decode and route for one line at a time. HandleLine
// and Run must not be called concurrently, decoders keep per-stream state.
type Pipeline struct {
	log      zerolog.Logger
	session  ulid.ULID
	registry *parser.Registry
	router   *Router
	filter   *Filter
	stats    *Stats
	paused   atomic.Bool

	mu       sync.RWMutex
	handlers []EventHandler
}

type PipelineOpt func(p *Pipeline)

// WithFilter drops envelopes the filter rejects before they are decoded.
func WithFilter(f *Filter) PipelineOpt {
	return func(p *Pipeline) { p.filter = f }
}

func WithStats(st *Stats) PipelineOpt {
	return func(p *Pipeline) { p.stats = st }
}

func WithEventHandler(h EventHandler) PipelineOpt {
	return func(p *Pipeline) { p.handlers = append(p.handlers, h) }
}

func NewPipeline(log zerolog.Logger, registry *parser.Registry, router *Router, opts ...PipelineOpt) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if router == nil {
		return nil, ErrNilRouter
	}
	session := ulid.Make()
	p := &Pipeline{
		log:      log.With().Str("session", session.String()).Logger(),
		session:  session,
		registry: registry,
		router:   router,
	}
	for _, o := range opts {
		o(p)
	}
	if p.stats == nil {
		p.stats = NewStats()
	}
	return p, nil
}

func (p *Pipeline) Session() ulid.ULID {
	return p.session
}

func (p *Pipeline) Registry() *parser.Registry {
	return p.registry
}

func (p *Pipeline) Router() *Router {
	return p.router
}

func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// SetPaused makes HandleLine drop lines until unpaused.
func (p *Pipeline) SetPaused(paused bool) {
	p.paused.Store(paused)
	p.log.Info().Bool("paused", paused).Msg("pipeline")
}

func (p *Pipeline) Paused() bool {
	return p.paused.Load()
}

// HandleLine processes one bridge line and returns its envelope, or nil when
// the line was suppressed, filtered or dropped while paused.
func (p *Pipeline) HandleLine(line string) *Envelope {
	if p.paused.Load() {
		p.stats.update(func(s *StatsSnapshot) { s.Paused++ })
		return nil
	}
	env := ParseLine(line)
	if env == nil {
		p.stats.update(func(s *StatsSnapshot) { s.Suppressed++ })
		return nil
	}
	p.stats.envelope(env.Kind())
	if env.Kind() == KindError {
		p.log.Debug().Str("line", env.Raw()).Msg(env.Text())
	}
	if p.filter != nil && !p.filter.Matches(env) {
		p.stats.update(func(s *StatsSnapshot) { s.Filtered++ })
		return nil
	}

	var msg *parser.DecodedMessage
	if id, ok := env.ID(); ok && env.Len() > 0 {
		if m, decoded := p.registry.Decode(id, env.data); decoded {
			msg = m
			p.stats.update(func(s *StatsSnapshot) { s.Decoded++ })
		} else {
			p.stats.update(func(s *StatsSnapshot) { s.Undecoded++ })
		}
	}
	p.router.Dispatch(env, msg)
	return env
}

// Run feeds lines through HandleLine until lines is closed or ctx is done.
func (p *Pipeline) Run(ctx context.Context, lines <-chan string) error {
	p.log.Info().Msg("pipeline started")
	defer func() {
		p.log.Info().Str("stats", p.stats.Snapshot().String()).Msg("pipeline stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			p.HandleLine(line)
		}
	}
}

// OnEvent registers h for events at least as severe as h.Type.
func (p *Pipeline) OnEvent(h EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *Pipeline) Emit(e Event) {
	p.mu.RLock()
	handlers := append([]EventHandler(nil), p.handlers...)
	p.mu.RUnlock()
	for _, h := range handlers {
		if e.Type <= h.Type {
			h.Handler(e)
		}
	}
}

// ConnectionChanged is the status callback for line sources.
func (p *Pipeline) ConnectionChanged(connected bool, port string) {
	p.log.Info().Bool("connected", connected).Str("port", port).Msg("connection changed")
	p.Emit(connectionEvent(connected, port))
}
