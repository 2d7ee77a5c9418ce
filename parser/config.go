package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/roffe/canbridge/pkg/canid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoConfigPath      = errors.New("no config path")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Config is the on-disk registry document. The same layout is used for
// YAML, JSON and TOML, picked by file extension.
type Config struct {
	DefaultParser string         `yaml:"default_parser,omitempty" json:"default_parser,omitempty" toml:"default_parser,omitempty"`
	Parsers       []ParserConfig `yaml:"parsers,omitempty" json:"parsers,omitempty" toml:"parsers,omitempty"`
	Mappings      MappingConfig  `yaml:"can_id_mappings" json:"can_id_mappings" toml:"can_id_mappings"`
}

type ParserConfig struct {
	Name string `yaml:"name" json:"name" toml:"name"`
	// Enabled and Priority leave the parser untouched when omitted.
	Enabled  *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty" toml:"enabled,omitempty"`
	Priority int            `yaml:"priority,omitempty" json:"priority,omitempty" toml:"priority,omitempty"`
	Config   map[string]any `yaml:"config,omitempty" json:"config,omitempty" toml:"config,omitempty"`
}

type MappingConfig struct {
	// Direct is keyed by id, "0x" hex or decimal.
	Direct map[string]string `yaml:"direct,omitempty" json:"direct,omitempty" toml:"direct,omitempty"`
	Ranges []RangeConfig     `yaml:"ranges,omitempty" json:"ranges,omitempty" toml:"ranges,omitempty"`
}

type RangeConfig struct {
	Start  ID     `yaml:"start" json:"start" toml:"start"`
	End    ID     `yaml:"end" json:"end" toml:"end"`
	Parser string `yaml:"parser" json:"parser" toml:"parser"`
}

// ID is a CAN id in a config document. It reads "0x" hex strings, decimal
// strings and plain numbers and always writes "0x" hex.
type ID uint32

func (id ID) MarshalText() ([]byte, error) {
	return []byte(canid.Format(uint32(id))), nil
}

func (id *ID) set(s string) error {
	v, err := canid.Parse(s)
	if err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

func (id *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: CAN id must be a scalar", value.Line)
	}
	return id.set(value.Value)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	return id.set(s)
}

func (id *ID) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		if t < 0 || t > canid.MaxExtended {
			return fmt.Errorf("invalid CAN id %d", t)
		}
		*id = ID(t)
		return nil
	case string:
		return id.set(t)
	default:
		return fmt.Errorf("invalid CAN id type %T", v)
	}
}

type format int

const (
	formatYAML format = iota
	formatJSON
	formatTOML
)

func formatFor(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	case ".toml":
		return formatTOML, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// DecodeConfig parses a document in the format given by the path extension.
func DecodeConfig(path string, b []byte) (Config, error) {
	var cfg Config
	f, err := formatFor(path)
	if err != nil {
		return cfg, err
	}
	switch f {
	case formatYAML:
		err = yaml.Unmarshal(b, &cfg)
	case formatJSON:
		err = json.Unmarshal(b, &cfg)
	case formatTOML:
		_, err = toml.Decode(string(b), &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// EncodeConfig renders cfg in the format given by the path extension.
func EncodeConfig(path string, cfg Config) ([]byte, error) {
	f, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case formatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case formatJSON:
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// LoadConfig applies the document at path. A missing file is not an error. A
// document that fails to parse is logged and leaves the registry untouched.
func (r *Registry) LoadConfig(fs afero.Fs, path string) error {
	if path == "" {
		return ErrNoConfigPath
	}
	r.mu.Lock()
	r.configPath = path
	r.mu.Unlock()

	log := r.log.With().Str("path", path).Logger()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		log.Error().Err(err).Msg("stat config")
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		log.Warn().Msg("config file not found, using defaults")
		return nil
	}

	b, err := afero.ReadFile(fs, path)
	if err != nil {
		log.Error().Err(err).Msg("read config")
		return fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := DecodeConfig(path, b)
	if err != nil {
		log.Error().Err(err).Msg("invalid config, keeping current parsers")
		return err
	}
	r.ApplyConfig(cfg)
	log.Info().Int("parsers", len(cfg.Parsers)).Int("direct", len(cfg.Mappings.Direct)).Int("ranges", len(cfg.Mappings.Ranges)).Msg("config loaded")
	return nil
}

// ApplyConfig applies cfg on top of the current state. Entries naming
// unknown parsers or holding bad ids are logged and skipped.
func (r *Registry) ApplyConfig(cfg Config) {
	for _, pc := range cfg.Parsers {
		p, found := r.Parser(pc.Name)
		if !found {
			r.log.Warn().Str("parser", pc.Name).Msg("config names unknown parser")
			continue
		}
		if pc.Enabled != nil {
			p.SetEnabled(*pc.Enabled)
		}
		if pc.Priority != 0 {
			p.SetPriority(pc.Priority)
		}
		if len(pc.Config) > 0 {
			p.Configure(pc.Config)
		}
	}

	for key, name := range cfg.Mappings.Direct {
		id, err := canid.Parse(key)
		if err != nil {
			r.log.Warn().Err(err).Str("id", key).Msg("skipping direct mapping")
			continue
		}
		if err := r.AddIDMapping(id, name); err != nil {
			r.log.Warn().Err(err).Msg("skipping direct mapping")
		}
	}

	for _, rc := range cfg.Mappings.Ranges {
		if r.hasRange(uint32(rc.Start), uint32(rc.End), rc.Parser) {
			continue
		}
		if err := r.AddRangeMapping(uint32(rc.Start), uint32(rc.End), rc.Parser); err != nil {
			r.log.Warn().Err(err).Msg("skipping range mapping")
		}
	}

	if cfg.DefaultParser != "" {
		if err := r.SetDefault(cfg.DefaultParser); err != nil {
			r.log.Warn().Err(err).Msg("keeping current default parser")
		}
	}
}

func (r *Registry) hasRange(lo, hi uint32, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.ranges {
		if m.ids.Lo == lo && m.ids.Hi == hi && m.parser == name {
			return true
		}
	}
	return false
}

// Snapshot captures the registry state as a config document.
func (r *Registry) Snapshot() Config {
	cfg := Config{DefaultParser: r.Default()}
	for _, p := range r.Parsers() {
		enabled := p.Enabled()
		pc := ParserConfig{
			Name:     p.Name(),
			Enabled:  &enabled,
			Priority: p.Priority(),
		}
		if c := p.Config(); len(c) > 0 {
			pc.Config = c
		}
		cfg.Parsers = append(cfg.Parsers, pc)
	}
	if direct := r.DirectMappings(); len(direct) > 0 {
		cfg.Mappings.Direct = make(map[string]string, len(direct))
		for _, m := range direct {
			cfg.Mappings.Direct[canid.Format(m.IDs.Lo)] = m.Parser
		}
	}
	for _, m := range r.RangeMappings() {
		cfg.Mappings.Ranges = append(cfg.Mappings.Ranges, RangeConfig{
			Start:  ID(m.IDs.Lo),
			End:    ID(m.IDs.Hi),
			Parser: m.Parser,
		})
	}
	return cfg
}

// SaveConfig writes Snapshot to path, or to the path last loaded when path is
// empty.
func (r *Registry) SaveConfig(fs afero.Fs, path string) error {
	r.mu.Lock()
	if path == "" {
		path = r.configPath
	}
	r.configPath = path
	r.mu.Unlock()
	if path == "" {
		return ErrNoConfigPath
	}

	b, err := EncodeConfig(path, r.Snapshot())
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := writeFileAtomic(fs, path, b); err != nil {
		r.log.Error().Err(err).Str("path", path).Msg("save config")
		return err
	}
	r.log.Info().Str("path", path).Msg("config saved")
	return nil
}

// ConfigPath is the path last loaded or saved.
func (r *Registry) ConfigPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configPath
}

// writeFileAtomic writes to a temp file next to path and renames it into
// place, so readers never see a partial document.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(fs, dir, ".canbridge-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
