package config

import (
	"errors"
	"fmt"

	"github.com/justyntemme/plughost/pkg/framework/debug"
)

// maxBlockSize bounds engine.block_size.
const maxBlockSize = 1 << 16

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHost(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateEngine()
}

func (c *Config) validateHost() error {
	if c.Host.Name == "" {
		return errors.New("host.name must be set")
	}
	if _, ok := knobPreferences[c.Host.KnobPreference]; !ok {
		return fmt.Errorf("host.knob_preference must be circular or linear, got %q", c.Host.KnobPreference)
	}
	if _, ok := languages[c.Host.Language]; !ok {
		return fmt.Errorf("host.language %q is not supported", c.Host.Language)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := debug.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case debug.FormatConsole, debug.FormatJSON, debug.FormatAuto:
		return nil
	default:
		return fmt.Errorf("logging.format must be console, json or auto, got %q", c.Logging.Format)
	}
}

func (c *Config) validateEngine() error {
	if c.Engine.SampleRate <= 0 {
		return errors.New("engine.sample_rate must be positive")
	}
	if c.Engine.BlockSize <= 0 || c.Engine.BlockSize > maxBlockSize {
		return fmt.Errorf("engine.block_size must be between 1 and %d", maxBlockSize)
	}
	if c.Engine.EventCapacity <= 0 {
		return errors.New("engine.event_capacity must be positive")
	}
	return nil
}
