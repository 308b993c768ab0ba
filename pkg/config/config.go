// Package config loads the host configuration from TOML.
//
// A missing file is not an error: Load returns the defaults so the CLI works
// without any setup. `plughost config init` writes the defaults out for
// editing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/justyntemme/plughost/pkg/plugin"
)

// Config is the full host configuration.
type Config struct {
	Host      Host      `toml:"host"`
	Logging   Logging   `toml:"logging"`
	Engine    Engine    `toml:"engine"`
	Discovery Discovery `toml:"discovery"`
}

// Host is what plugins are told about the host.
type Host struct {
	Name    string `toml:"name"`
	Vendor  string `toml:"vendor"`
	Version string `toml:"version"`
	URL     string `toml:"url"`
	// KnobPreference is "", "circular" or "linear".
	KnobPreference string `toml:"knob_preference"`
	// Language is "", "english", "spanish", "french", "german" or "italian".
	Language string `toml:"language"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Engine configures processing.
type Engine struct {
	SampleRate int `toml:"sample_rate"`
	BlockSize  int `toml:"block_size"`
	// EventCapacity is the slot count of each instance's notification ring.
	EventCapacity int `toml:"event_capacity"`
	// ThreadChecks marks the CLI's main goroutine as the main thread so
	// misuse of the instance API is reported.
	ThreadChecks bool `toml:"thread_checks"`
}

// Discovery lists where plugins are searched.
type Discovery struct {
	SearchPaths []string `toml:"search_paths"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/plughost/config.toml")
}

// Load parses and validates the configuration at path, or at the default
// location when path is empty. It also reports whether the file existed.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, false, err
		}
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(resolved)
	exists := err == nil
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, false, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// HostRecord returns the host description handed to plugins.
func (c *Config) HostRecord() *plugin.Host {
	h := plugin.NewHost(c.Host.Name, c.Host.Version, c.Host.Vendor)
	h.URL = c.Host.URL
	h.KnobPreference = knobPreferences[c.Host.KnobPreference]
	h.Language = languages[c.Host.Language]
	return h
}

// ProcessDetails returns the default details for the configured engine.
func (c *Config) ProcessDetails() plugin.ProcessDetails {
	d := plugin.DefaultProcessDetails()
	d.SampleRate = c.Engine.SampleRate
	d.BlockSize = c.Engine.BlockSize
	return d
}

// LoadOptions returns the instance options for the configured engine.
func (c *Config) LoadOptions() plugin.LoadOptions {
	return plugin.LoadOptions{EventCapacity: c.Engine.EventCapacity}
}

var knobPreferences = map[string]plugin.KnobPreference{
	"":         plugin.KnobUnspecified,
	"circular": plugin.KnobCircular,
	"linear":   plugin.KnobLinear,
}

var languages = map[string]plugin.Language{
	"":        plugin.LanguageUnspecified,
	"english": plugin.LanguageEnglish,
	"spanish": plugin.LanguageSpanish,
	"french":  plugin.LanguageFrench,
	"german":  plugin.LanguageGerman,
	"italian": plugin.LanguageItalian,
}

func (c *Config) normalize() error {
	c.Host.KnobPreference = strings.ToLower(strings.TrimSpace(c.Host.KnobPreference))
	c.Host.Language = strings.ToLower(strings.TrimSpace(c.Host.Language))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	paths := c.Discovery.SearchPaths[:0]
	for _, p := range c.Discovery.SearchPaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		expanded, err := expandPath(p)
		if err != nil {
			return err
		}
		paths = append(paths, expanded)
	}
	c.Discovery.SearchPaths = paths
	return nil
}

// ExpandPath resolves "~" and makes pathValue absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
