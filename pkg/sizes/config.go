package sizes

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk description of the sizes to generate.
//
// TOML:
//
//	big_image_threshold = 2560
//
//	[[size]]
//	name = "card"
//	width = 600
//	height = 400
//	crop = "center,top"
//
// YAML uses the same keys with a "sizes" list.
type Config struct {
	// BigImageThreshold caps the longest side of stored originals. Nil keeps
	// the caller's default; zero disables the cap.
	BigImageThreshold *int `toml:"big_image_threshold" yaml:"big_image_threshold"`

	// ForceIdentical generates sizes whose dimensions match the source.
	ForceIdentical bool `toml:"force_identical" yaml:"force_identical"`

	// ReplaceDefaults drops the built-in sizes instead of extending them.
	ReplaceDefaults bool `toml:"replace_defaults" yaml:"replace_defaults"`

	Sizes []Size `toml:"size" yaml:"sizes"`
}

// LoadFile reads a config file. The format is chosen by extension: .toml,
// or .yaml/.yml.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return ParseTOML(b)
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
}

// ParseTOML decodes a TOML config.
func ParseTOML(b []byte) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(bytes.NewReader(b)).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding toml config: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undec)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseYAML decodes a YAML config.
func ParseYAML(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding yaml config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BigImageThreshold != nil && *c.BigImageThreshold < 0 {
		return fmt.Errorf("big_image_threshold must not be negative")
	}
	seen := map[string]bool{}
	for _, s := range c.Sizes {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("size %s defined twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Registry builds the registry described by the config: the built-in sizes
// (unless replaced) overlaid with the configured ones.
func (c *Config) Registry() (*Registry, error) {
	r := New()
	if !c.ReplaceDefaults {
		r = Default()
	}
	for _, s := range c.Sizes {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
