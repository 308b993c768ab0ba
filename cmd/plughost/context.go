package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/plughost/pkg/config"
	"github.com/justyntemme/plughost/pkg/discovery"
	"github.com/justyntemme/plughost/pkg/formats/native"
	"github.com/justyntemme/plughost/pkg/framework/debug"
	"github.com/justyntemme/plughost/pkg/plugin"
	"github.com/justyntemme/plughost/pkg/threadcheck"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *zap.Logger
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.levelFlag != nil && *c.levelFlag != "" {
			cfg.Logging.Level = *c.levelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// setup loads the configuration and installs the logger in every package
// that logs.
func (c *commandContext) setup() error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := debug.NewLogger(debug.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	c.logger = logger
	plugin.SetLogger(logger.Named("plugin"))
	discovery.SetLogger(logger.Named("discovery"))
	native.SetLogger(logger.Named("native"))
	threadcheck.SetLogger(logger.Named("threadcheck"))

	if cfg.Engine.ThreadChecks {
		threadcheck.MarkCurrentAsMain()
	}
	return nil
}

func (c *commandContext) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// load opens a plugin with the configured host record and engine options.
func (c *commandContext) load(path, id string) (*plugin.Instance, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	in, err := plugin.LoadWith(path, id, cfg.HostRecord(), cfg.LoadOptions())
	if err != nil {
		return nil, err
	}
	in.SetSampleRate(cfg.Engine.SampleRate)
	in.SetBlockSize(cfg.Engine.BlockSize)
	return in, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
