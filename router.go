package canbridge

import (
	"sort"
	"sync"

	"github.com/roffe/canbridge/parser"
	"github.com/roffe/canbridge/pkg/canid"
	"github.com/rs/zerolog"
)

// Consumer receives routed envelopes. msg is nil when nothing decoded the
// payload.
type Consumer interface {
	OnMessage(env *Envelope, msg *parser.DecodedMessage)
}

type ConsumerFunc func(env *Envelope, msg *parser.DecodedMessage)

func (f ConsumerFunc) OnMessage(env *Envelope, msg *parser.DecodedMessage) {
	f(env, msg)
}

// Router delivers envelopes to the consumer bound to their CAN id. At most
// one consumer owns an id, the last Bind wins. Envelopes without a bound id
// go to the default sink, or are dropped when there is none.
type Router struct {
	log zerolog.Logger

	mu       sync.RWMutex
	bindings map[uint32]Consumer
	sink     Consumer

	delivered uint64
	dropped   uint64
}

func NewRouter(log zerolog.Logger) *Router {
	return &Router{
		log:      log.With().Str("component", "router").Logger(),
		bindings: make(map[uint32]Consumer),
	}
}

func (r *Router) Bind(id uint32, c Consumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = c
}

func (r *Router) Unbind(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, id)
}

// SetActiveSet replaces every binding with c bound to ids.
func (r *Router) SetActiveSet(c Consumer, ids ...uint32) {
	bindings := make(map[uint32]Consumer, len(ids))
	for _, id := range ids {
		bindings[id] = c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = bindings
}

func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = make(map[uint32]Consumer)
}

// SetDefault sets the sink for unbound envelopes, nil removes it.
func (r *Router) SetDefault(c Consumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = c
}

func (r *Router) Bound(id uint32) (Consumer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, found := r.bindings[id]
	return c, found
}

// IDs lists the bound ids in ascending order.
func (r *Router) IDs() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint32, 0, len(r.bindings))
	for id := range r.bindings {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch delivers env and reports whether a consumer received it.
func (r *Router) Dispatch(env *Envelope, msg *parser.DecodedMessage) bool {
	r.mu.RLock()
	var target Consumer
	if id, ok := env.ID(); ok {
		target = r.bindings[id]
	}
	if target == nil {
		target = r.sink
	}
	r.mu.RUnlock()

	if target == nil {
		r.count(false)
		ev := r.log.Debug().Str("kind", env.Kind().String())
		if id, ok := env.ID(); ok {
			ev = ev.Str("id", canid.Format(id))
		}
		ev.Msg("no consumer, dropped")
		return false
	}
	delivered := r.deliver(target, env, msg)
	r.count(delivered)
	return delivered
}

func (r *Router) deliver(c Consumer, env *Envelope, msg *parser.DecodedMessage) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("line", env.Raw()).Msg("consumer panicked")
			ok = false
		}
	}()
	c.OnMessage(env, msg)
	return true
}

func (r *Router) count(delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delivered {
		r.delivered++
	} else {
		r.dropped++
	}
}

// Counts returns how many envelopes were delivered and dropped.
func (r *Router) Counts() (delivered, dropped uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delivered, r.dropped
}
