// Package native is the in-process plugin format. Plugins written in Go
// register under a short name and load from "native:<name>" paths through
// the same Instance API as binary plugins.
package native

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/justyntemme/plughost/pkg/discovery"
	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/plugin"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

var (
	// Global map of registered plugins indexed by short name
	plugins   = make(map[string]Plugin)
	pluginsMu sync.RWMutex
)

func init() {
	plugin.RegisterLoader(plugin.FormatNative, Load)
	discovery.RegisterProber(plugin.FormatNative, Probe)
}

// Register makes p loadable as "native:<name>". It fails when the name is
// taken or the metadata is incomplete.
func Register(name string, p Plugin) error {
	if err := p.Info().Validate(); err != nil {
		return err
	}

	pluginsMu.Lock()
	defer pluginsMu.Unlock()
	if _, exists := plugins[name]; exists {
		return errors.New(errors.KindLoadFailure, "native.Register", "plugin name %q already registered", name)
	}
	plugins[name] = p
	return nil
}

// MustRegister is Register for package init functions.
func MustRegister(name string, p Plugin) {
	if err := Register(name, p); err != nil {
		panic(err)
	}
}

// Lookup returns the plugin registered under name, or nil.
func Lookup(name string) Plugin {
	pluginsMu.RLock()
	defer pluginsMu.RUnlock()
	return plugins[name]
}

// Names lists the registered plugin names in order.
func Names() []string {
	pluginsMu.RLock()
	defer pluginsMu.RUnlock()
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Path returns the load path for a registered name.
func Path(name string) string {
	return plugin.NativePrefix + name
}

// Probe lists the descriptor of the plugin at path. A bare "native:" lists
// every registered plugin.
func Probe(path string) ([]plugin.Descriptor, error) {
	name := strings.TrimPrefix(path, plugin.NativePrefix)
	if name == "" {
		var descs []plugin.Descriptor
		for _, n := range Names() {
			descs = append(descs, Lookup(n).Info().descriptor(Path(n), 0))
		}
		return descs, nil
	}

	p := Lookup(name)
	if p == nil {
		return nil, errors.NotFound("native.Probe", "plugin", name)
	}
	return []plugin.Descriptor{p.Info().descriptor(path, 0)}, nil
}

// Load is the plugin.Loader for the native format.
func Load(req plugin.LoadRequest) (plugin.Backend, plugin.Descriptor, error) {
	const op = "native.Load"

	name := strings.TrimPrefix(req.Path, plugin.NativePrefix)
	p := Lookup(name)
	if p == nil {
		return nil, plugin.Descriptor{}, errors.NotFound(op, "plugin", name)
	}
	info := p.Info()
	if req.ID != "" && req.ID != info.ID {
		return nil, plugin.Descriptor{}, errors.NotFound(op, "plugin id", req.ID)
	}

	b, err := newBackend(info, p.CreateProcessor(), req)
	if err != nil {
		return nil, plugin.Descriptor{}, err
	}
	return b, info.descriptor(req.Path, b.proc.LatencySamples()), nil
}
