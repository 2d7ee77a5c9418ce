// Package parser decodes CAN payloads into named, validated fields.
//
// Decoders implement Parser and register themselves in the catalog from an
// init function. A Registry picks the decoder for each frame from explicit id
// mappings, id ranges, decoder priority and a default.
//
// Decoders that track stream continuity (sequence counters, timestamps) keep
// that state per instance. One instance must only ever see one stream and be
// called from one goroutine at a time, use Reset or a fresh instance per stream.
package parser

import (
	"fmt"

	"github.com/roffe/canbridge/pkg/canid"
)

const (
	PriorityHighest = 1
	PriorityDefault = 5
	PriorityLowest  = 10
)

// Kind is the closed set of decoder capabilities.
type Kind int

const (
	// KindFallback decodes anything, typically as raw bytes.
	KindFallback Kind = iota
	// KindFramed decodes a fixed bit-field layout guarded by checksums,
	// sequence counters or marker bytes.
	KindFramed
	// KindCustom is any other application specific decoder.
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindFallback:
		return "fallback"
	case KindFramed:
		return "framed"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

type Parser interface {
	Name() string
	Version() string
	FullName() string
	Description() string
	Kind() Kind

	Priority() int
	SetPriority(int)
	Enabled() bool
	SetEnabled(bool)
	Configure(map[string]any)
	Config() map[string]any

	CanDecode(id uint32, data []byte) bool
	Decode(id uint32, data []byte) (*DecodedMessage, error)
	DeclaredIDs() []IDRange
	// Reset drops any per-stream state.
	Reset()
}

// IDRange is an inclusive identifier range, a single id has Lo == Hi.
type IDRange struct {
	Lo uint32
	Hi uint32
}

func SingleID(id uint32) IDRange {
	return IDRange{id, id}
}

func (r IDRange) Contains(id uint32) bool {
	return id >= r.Lo && id <= r.Hi
}

func (r IDRange) Single() bool {
	return r.Lo == r.Hi
}

func (r IDRange) String() string {
	if r.Single() {
		return canid.Format(r.Lo)
	}
	return canid.Format(r.Lo) + "-" + canid.Format(r.Hi)
}

// Base carries the bookkeeping every decoder shares.
type Base struct {
	name        string
	version     string
	description string
	kind        Kind
	priority    int
	enabled     bool
	config      map[string]any
}

func NewBase(name, version, description string, kind Kind, priority int) Base {
	b := Base{
		name:        name,
		version:     version,
		description: description,
		kind:        kind,
		enabled:     true,
		config:      make(map[string]any),
	}
	b.SetPriority(priority)
	return b
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Version() string     { return b.version }
func (b *Base) Description() string { return b.description }
func (b *Base) Kind() Kind          { return b.kind }
func (b *Base) Priority() int       { return b.priority }
func (b *Base) Enabled() bool       { return b.enabled }
func (b *Base) SetEnabled(v bool)   { b.enabled = v }
func (b *Base) Reset()              {}

func (b *Base) FullName() string {
	return fmt.Sprintf("%s v%s", b.name, b.version)
}

// SetPriority clamps to [PriorityHighest, PriorityLowest].
func (b *Base) SetPriority(p int) {
	switch {
	case p < PriorityHighest:
		p = PriorityHighest
	case p > PriorityLowest:
		p = PriorityLowest
	}
	b.priority = p
}

func (b *Base) Configure(cfg map[string]any) {
	if b.config == nil {
		b.config = make(map[string]any)
	}
	for k, v := range cfg {
		b.config[k] = v
	}
}

func (b *Base) Config() map[string]any {
	out := make(map[string]any, len(b.config))
	for k, v := range b.config {
		out[k] = v
	}
	return out
}

func (b *Base) configBool(key string) bool {
	switch v := b.config[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes" || v == "1"
	}
	return false
}
