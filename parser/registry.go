package parser

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roffe/canbridge/pkg/canid"
	"github.com/rs/zerolog"
)

var (
	ErrParserNotRegistered = errors.New("parser not registered")
	ErrInvalidRange        = errors.New("invalid id range")
)

type rangeMapping struct {
	ids    IDRange
	parser string
}

// Registry picks a decoder per frame. Selection order is direct id mapping,
// range mappings in the order they were added, the enabled decoder with the
// lowest priority value that accepts the frame and finally the default.
// Only enabled decoders are considered in the first three steps.
type Registry struct {
	log zerolog.Logger

	mu            sync.RWMutex
	parsers       map[string]Parser
	order         []string
	direct        map[uint32]string
	ranges        []rangeMapping
	defaultParser string
	configPath    string

	decoded uint64
	failed  uint64
}

// RegistryStats is a point in time view of the registry.
type RegistryStats struct {
	Parsers        int
	Enabled        int
	DirectMappings int
	RangeMappings  int
	Default        string
	Decoded        uint64
	Failed         uint64
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:     log.With().Str("component", "registry").Logger(),
		parsers: make(map[string]Parser),
		direct:  make(map[uint32]string),
	}
}

// Register adds p under p.Name(). Registering the same name again replaces
// the instance and keeps its original position in the priority tie-break.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, found := r.parsers[name]; !found {
		r.order = append(r.order, name)
	}
	r.parsers[name] = p
	r.log.Debug().Str("parser", p.FullName()).Int("priority", p.Priority()).Msg("registered")
}

// Unregister removes a parser together with every mapping and default that
// names it.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.parsers[name]; !found {
		return false
	}
	delete(r.parsers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for id, n := range r.direct {
		if n == name {
			delete(r.direct, id)
		}
	}
	kept := r.ranges[:0]
	for _, m := range r.ranges {
		if m.parser != name {
			kept = append(kept, m)
		}
	}
	r.ranges = kept
	if r.defaultParser == name {
		r.defaultParser = ""
	}
	r.log.Debug().Str("parser", name).Msg("unregistered")
	return true
}

func (r *Registry) Parser(name string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, found := r.parsers[name]
	return p, found
}

// Parsers returns every registered parser in registration order.
func (r *Registry) Parsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Parser, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.parsers[name])
	}
	return out
}

func (r *Registry) EnabledParsers() []Parser {
	var out []Parser
	for _, p := range r.Parsers() {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) AddIDMapping(id uint32, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.parsers[name]; !found {
		return fmt.Errorf("map %s to %q: %w", canid.Format(id), name, ErrParserNotRegistered)
	}
	r.direct[id] = name
	return nil
}

func (r *Registry) RemoveIDMapping(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.direct[id]; !found {
		return false
	}
	delete(r.direct, id)
	return true
}

func (r *Registry) AddRangeMapping(lo, hi uint32, name string) error {
	if lo > hi {
		return fmt.Errorf("%s-%s: %w", canid.Format(lo), canid.Format(hi), ErrInvalidRange)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.parsers[name]; !found {
		return fmt.Errorf("map %s-%s to %q: %w", canid.Format(lo), canid.Format(hi), name, ErrParserNotRegistered)
	}
	r.ranges = append(r.ranges, rangeMapping{ids: IDRange{lo, hi}, parser: name})
	return nil
}

// DirectMappings returns the id to parser name table sorted by id.
func (r *Registry) DirectMappings() []IDMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]IDMapping, 0, len(r.direct))
	for id, name := range r.direct {
		out = append(out, IDMapping{IDs: SingleID(id), Parser: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IDs.Lo < out[j].IDs.Lo })
	return out
}

// RangeMappings returns the range table in selection order.
func (r *Registry) RangeMappings() []IDMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]IDMapping, 0, len(r.ranges))
	for _, m := range r.ranges {
		out = append(out, IDMapping{IDs: m.ids, Parser: m.parser})
	}
	return out
}

// IDMapping binds an id range to a parser name.
type IDMapping struct {
	IDs    IDRange
	Parser string
}

func (r *Registry) ClearMappings() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = make(map[uint32]string)
	r.ranges = nil
}

// SetDefault names the parser used when nothing else matches. An empty name
// clears it.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != "" {
		if _, found := r.parsers[name]; !found {
			return fmt.Errorf("default %q: %w", name, ErrParserNotRegistered)
		}
	}
	r.defaultParser = name
	return nil
}

func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultParser
}

// Select returns the parser for a frame, or nil when nothing applies. The
// default parser is returned even when disabled.
func (r *Registry) Select(id uint32, data []byte) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, found := r.direct[id]; found {
		if p := r.parsers[name]; p != nil && p.Enabled() {
			return p
		}
	}

	for _, m := range r.ranges {
		if !m.ids.Contains(id) {
			continue
		}
		if p := r.parsers[m.parser]; p != nil && p.Enabled() {
			return p
		}
	}

	var best Parser
	for _, name := range r.order {
		p := r.parsers[name]
		if !p.Enabled() || !r.canDecode(p, id, data) {
			continue
		}
		if best == nil || p.Priority() < best.Priority() {
			best = p
		}
	}
	if best != nil {
		return best
	}

	if r.defaultParser != "" {
		return r.parsers[r.defaultParser]
	}
	return nil
}

// canDecode asks p whether it accepts the frame. A panicking CanDecode counts
// as a refusal so the remaining parsers still get the frame.
func (r *Registry) canDecode(p Parser, id uint32, data []byte) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("parser", p.Name()).
				Str("id", canid.Format(id)).
				Hex("data", data).
				Interface("panic", rec).
				Msg("parser panicked in CanDecode")
			ok = false
		}
	}()
	return p.CanDecode(id, data)
}

// Decode runs the selected parser. A parser that panics or returns an error
// is logged and yields no result.
func (r *Registry) Decode(id uint32, data []byte) (msg *DecodedMessage, ok bool) {
	p := r.Select(id, data)
	if p == nil {
		r.log.Debug().Str("id", canid.Format(id)).Msg("no parser")
		return nil, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("parser", p.Name()).
				Str("id", canid.Format(id)).
				Hex("data", data).
				Interface("panic", rec).
				Msg("parser panicked")
			msg, ok = nil, false
			r.count(false)
		}
	}()

	m, err := p.Decode(id, data)
	if err != nil || m == nil {
		r.log.Error().Err(err).Str("parser", p.Name()).Str("id", canid.Format(id)).Hex("data", data).Msg("decode failed")
		r.count(false)
		return nil, false
	}
	r.count(true)
	return m, true
}

func (r *Registry) count(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.decoded++
	} else {
		r.failed++
	}
}

// ResetParsers drops the per-stream state of every registered parser.
func (r *Registry) ResetParsers() {
	for _, p := range r.Parsers() {
		p.Reset()
	}
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := RegistryStats{
		Parsers:        len(r.parsers),
		DirectMappings: len(r.direct),
		RangeMappings:  len(r.ranges),
		Default:        r.defaultParser,
		Decoded:        r.decoded,
		Failed:         r.failed,
	}
	for _, p := range r.parsers {
		if p.Enabled() {
			st.Enabled++
		}
	}
	return st
}
