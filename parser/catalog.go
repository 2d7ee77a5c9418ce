package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Info describes a decoder known at build time.
type Info struct {
	Name        string
	Description string
	New         func() Parser
}

func (i *Info) String() string {
	return fmt.Sprintf("%s | %s", i.Name, i.Description)
}

var catalog = make(map[string]*Info)

// Register adds a decoder constructor to the catalog. It is meant to be called
// from init.
func Register(info *Info) error {
	if info.New == nil {
		return fmt.Errorf("parser %s has no constructor", info.Name)
	}
	if _, found := catalog[info.Name]; found {
		return fmt.Errorf("parser %s already registered", info.Name)
	}
	catalog[info.Name] = info
	return nil
}

// Catalog lists every known decoder sorted by name.
func Catalog() []Info {
	out := make([]Info, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

func New(name string) (Parser, error) {
	if info, found := catalog[name]; found {
		return info.New(), nil
	}
	return nil, fmt.Errorf("unknown parser %q", name)
}

// NewDefaultRegistry returns a registry holding a fresh instance of every
// catalog decoder, "Raw Data" as default and a direct mapping for every single
// id a decoder declares.
func NewDefaultRegistry(log zerolog.Logger) *Registry {
	r := NewRegistry(log)
	for _, info := range Catalog() {
		r.Register(info.New())
	}
	for _, p := range r.Parsers() {
		if p.Kind() == KindFallback {
			continue
		}
		for _, ids := range p.DeclaredIDs() {
			if ids.Single() {
				if err := r.AddIDMapping(ids.Lo, p.Name()); err != nil {
					log.Error().Err(err).Msg("default mapping")
				}
			}
		}
	}
	if err := r.SetDefault(RawName); err != nil {
		log.Warn().Err(err).Msg("no default parser")
	}
	return r
}
