// Package config loads bucket declarations, logging and store settings from
// YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/andreyvit/attrbucket"
	"github.com/andreyvit/attrbucket/codec"
)

// Config is the root configuration structure.
type Config struct {
	Records []RecordConfig `yaml:"records"`
	Logging LoggingConfig  `yaml:"logging"`
	Store   StoreConfig    `yaml:"store"`
}

// RecordConfig declares the buckets of one record type.
type RecordConfig struct {
	Name    string         `yaml:"name"`
	Buckets []BucketConfig `yaml:"buckets"`
}

// BucketConfig declares one bucket column.
type BucketConfig struct {
	Column string       `yaml:"column"`
	Expose bool         `yaml:"expose,omitempty"`
	Scope  any          `yaml:"scope,omitempty"` // forwarded to the allow list
	Attrs  []AttrConfig `yaml:"attrs"`
}

// AttrConfig is either a mapping with name and type, or a "name" or
// "name:type" scalar. The type defaults to string.
type AttrConfig struct {
	Name string              `yaml:"name"`
	Type attrbucket.AttrType `yaml:"type,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // zerolog level name, default "info"
	Format string `yaml:"format"` // "json" or "console"
}

// StoreConfig configures the persistence collaborators.
type StoreConfig struct {
	Encoding codec.Encoding `yaml:"encoding"`
}

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded, and ATTRBUCKET_* variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Parse decodes and validates configuration data.
func Parse(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	setDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ATTRBUCKET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ATTRBUCKET_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ATTRBUCKET_STORE_ENCODING"); v != "" {
		enc, err := codec.ParseEncoding(v)
		if err != nil {
			return fmt.Errorf("ATTRBUCKET_STORE_ENCODING: %w", err)
		}
		cfg.Store.Encoding = enc
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	for i := range cfg.Records {
		for j := range cfg.Records[i].Buckets {
			attrs := cfg.Records[i].Buckets[j].Attrs
			for k := range attrs {
				if attrs[k].Type == attrbucket.InvalidType {
					attrs[k].Type = attrbucket.String
				}
			}
		}
	}
}

// Validate checks the parts of the configuration that can be checked
// without a schema. Bucket columns are validated by Apply.
func (cfg *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, rc := range cfg.Records {
		if rc.Name == "" {
			errs = append(errs, fmt.Errorf("records[%d]: name is required", i))
			continue
		}
		if seen[rc.Name] {
			errs = append(errs, fmt.Errorf("records[%d]: duplicate record %q", i, rc.Name))
		}
		seen[rc.Name] = true
		if len(rc.Buckets) == 0 {
			errs = append(errs, fmt.Errorf("%s: no buckets", rc.Name))
		}
		for j, bc := range rc.Buckets {
			if bc.Column == "" {
				errs = append(errs, fmt.Errorf("%s.buckets[%d]: column is required", rc.Name, j))
			}
			if bc.Scope != nil && !bc.Expose {
				errs = append(errs, fmt.Errorf("%s.%s: scope without expose", rc.Name, bc.Column))
			}
			for k, ac := range bc.Attrs {
				if ac.Name == "" {
					errs = append(errs, fmt.Errorf("%s.%s.attrs[%d]: name is required", rc.Name, bc.Column, k))
				}
			}
		}
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", cfg.Logging.Format))
	}
	return errors.Join(errs...)
}

// Record returns the configuration of the named record type, or nil.
func (cfg *Config) Record(name string) *RecordConfig {
	for i := range cfg.Records {
		if cfg.Records[i].Name == name {
			return &cfg.Records[i]
		}
	}
	return nil
}

// BucketDefs converts the configuration into declarations.
func (rc *RecordConfig) BucketDefs() []attrbucket.BucketDef {
	defs := make([]attrbucket.BucketDef, len(rc.Buckets))
	for i, bc := range rc.Buckets {
		attrs := make([]attrbucket.AttrDef, len(bc.Attrs))
		for j, ac := range bc.Attrs {
			attrs[j] = attrbucket.Typed(ac.Name, ac.Type)
		}
		defs[i] = attrbucket.BucketDef{Column: bc.Column, Attrs: attrs}
		if bc.Expose {
			defs[i].Exposure = &attrbucket.Exposure{Scope: bc.Scope}
		}
	}
	return defs
}

// Apply declares the configured buckets on rt.
func (rc *RecordConfig) Apply(rt *attrbucket.RecordType) error {
	if rt.Name() != rc.Name {
		return fmt.Errorf("config for %s applied to record type %s", rc.Name, rt.Name())
	}
	return rt.DeclareBuckets(rc.BucketDefs()...)
}

func (ac *AttrConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		name, typ, found := strings.Cut(node.Value, ":")
		ac.Name = strings.TrimSpace(name)
		if !found {
			return nil
		}
		return ac.Type.UnmarshalText([]byte(strings.TrimSpace(typ)))
	}
	type plain AttrConfig
	return node.Decode((*plain)(ac))
}

// Logger builds a logger writing to w.
func (lc LoggingConfig) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if lc.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
