// Package config loads monitor settings from a TOML or YAML file with
// ERRTAP_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/strongdm/errtap/pkg/errtap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ERRTAP_"

// File is the on-disk configuration.
type File struct {
	Endpoint    string  `toml:"endpoint" yaml:"endpoint"`
	Release     string  `toml:"release" yaml:"release"`
	Environment string  `toml:"environment" yaml:"environment"`
	ForceEnable bool    `toml:"force_enable" yaml:"force_enable"`
	Debug       bool    `toml:"debug" yaml:"debug"`
	SampleRate  float64 `toml:"sample_rate" yaml:"sample_rate"`

	// Ignore is kept in file order.
	Ignore []IgnoreEntry `toml:"ignore" yaml:"ignore"`
	Host   HostConfig    `toml:"host" yaml:"host"`
}

// IgnoreEntry is one ignore rule. Exactly one field is set.
type IgnoreEntry struct {
	Substring string `toml:"substring" yaml:"substring"`
	Prefix    string `toml:"prefix" yaml:"prefix"`
	Pattern   string `toml:"pattern" yaml:"pattern"`
}

func (e IgnoreEntry) rule() (errtap.IgnoreRule, error) {
	set := 0
	for _, v := range []string{e.Substring, e.Prefix, e.Pattern} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errtap.IgnoreRule{}, errors.New("exactly one of substring, prefix or pattern must be set")
	}

	switch {
	case e.Substring != "":
		return errtap.Substring(e.Substring), nil
	case e.Prefix != "":
		return errtap.Prefix(e.Prefix), nil
	}
	re, err := regexp.Compile(e.Pattern)
	if err != nil {
		return errtap.IgnoreRule{}, err
	}
	return errtap.Pattern(re), nil
}

// HostConfig describes the host application when there is no richer Host.
type HostConfig struct {
	Production  bool   `toml:"production" yaml:"production"`
	Development bool   `toml:"development" yaml:"development"`
	Version     string `toml:"version" yaml:"version"`
}

// Load reads path, decoding by extension (.toml, .yaml, .yml), then applies
// environment overrides. endpoint, release, environment and host.version may
// reference the environment as $VAR; ignore rules are taken literally.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	data := string(raw)

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(data), &f); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	f.expandEnv()
	if err := f.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) expandEnv() {
	for _, s := range []*string{&f.Endpoint, &f.Release, &f.Environment, &f.Host.Version} {
		*s = os.ExpandEnv(*s)
	}
}

// FromEnv builds a File from environment overrides alone.
func FromEnv() (*File, error) {
	var f File
	if err := f.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}

	str("ENDPOINT", &f.Endpoint)
	str("RELEASE", &f.Release)
	str("ENVIRONMENT", &f.Environment)
	if err := boolean("FORCE_ENABLE", &f.ForceEnable); err != nil {
		return err
	}
	if err := boolean("DEBUG", &f.Debug); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "SAMPLE_RATE"); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSAMPLE_RATE: %w", EnvPrefix, err)
		}
		f.SampleRate = rate
	}
	return nil
}

// Validate checks the values Load cannot check while decoding.
func (f *File) Validate() error {
	switch errtap.Variant(f.Environment) {
	case "", errtap.VariantServer, errtap.VariantClient:
	default:
		return fmt.Errorf("unknown environment %q", f.Environment)
	}
	if f.SampleRate < 0 || f.SampleRate > 1 {
		return fmt.Errorf("sample_rate %v out of range [0, 1]", f.SampleRate)
	}
	for i, entry := range f.Ignore {
		if _, err := entry.rule(); err != nil {
			return fmt.Errorf("ignore rule %d: %w", i, err)
		}
	}
	return nil
}

// Options converts the file to monitor options. Invalid ignore entries are
// skipped; Load has already rejected them.
func (f *File) Options() errtap.Options {
	var rules []errtap.IgnoreRule
	for _, entry := range f.Ignore {
		if rule, err := entry.rule(); err == nil {
			rules = append(rules, rule)
		}
	}

	return errtap.Options{
		Endpoint:    f.Endpoint,
		Release:     f.Release,
		Environment: errtap.Variant(f.Environment),
		IgnoreRules: rules,
		ForceEnable: f.ForceEnable,
		Debug:       f.Debug,
		SampleRate:  f.SampleRate,
	}
}

// StaticHost returns a host built from the [host] section.
func (f *File) StaticHost() errtap.StaticHost {
	return errtap.StaticHost{
		Production:  f.Host.Production,
		Development: f.Host.Development,
		AppVersion:  f.Host.Version,
	}
}
