package config

import (
	"github.com/justyntemme/plughost/pkg/discovery"
	"github.com/justyntemme/plughost/pkg/ringbuf"
)

const (
	defaultHostName   = "plughost"
	defaultHostVendor = "plughost"
	defaultHostVer    = "0.1.0"
	defaultLogLevel   = "info"
	defaultLogFormat  = "auto"
	defaultSampleRate = 44100
	defaultBlockSize  = 512
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Host: Host{
			Name:    defaultHostName,
			Vendor:  defaultHostVendor,
			Version: defaultHostVer,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Engine: Engine{
			SampleRate:    defaultSampleRate,
			BlockSize:     defaultBlockSize,
			EventCapacity: ringbuf.DefaultCapacity,
			ThreadChecks:  true,
		},
		Discovery: Discovery{
			SearchPaths: discovery.DefaultSearchPaths(),
		},
	}
}
