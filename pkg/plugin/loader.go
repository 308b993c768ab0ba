package plugin

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/ringbuf"
	"github.com/justyntemme/plughost/pkg/threadcheck"
)

// NativePrefix marks paths that name an in-process plugin.
const NativePrefix = "native:"

// LoadRequest is everything a loader gets to construct a backend.
type LoadRequest struct {
	Path string
	// ID picks one plugin when a file defines several. Empty means the first.
	ID   string
	Host *Host
	// Events is the producer half of the instance's notification channel.
	Events *ringbuf.Producer[event.PluginEvent]
}

// Loader constructs a backend for one format.
type Loader func(req LoadRequest) (Backend, Descriptor, error)

// LoadOptions tune LoadWith.
type LoadOptions struct {
	// Format overrides detection from the path.
	Format Format
	// EventCapacity is the notification channel size. Zero means
	// ringbuf.DefaultCapacity.
	EventCapacity int
	// QueueCapacity is the size of the host event queue fed by QueueEvent.
	// Zero means ringbuf.DefaultCapacity.
	QueueCapacity int
}

var (
	loaders   = make(map[Format]Loader)
	loadersMu sync.RWMutex
)

// RegisterLoader installs the loader for format, replacing any previous one.
func RegisterLoader(format Format, loader Loader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	if loader == nil {
		delete(loaders, format)
		return
	}
	loaders[format] = loader
}

// Formats lists the formats with a registered loader.
func Formats() []Format {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	formats := make([]Format, 0, len(loaders))
	for f := range loaders {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

func getLoader(format Format) Loader {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	return loaders[format]
}

// DetectFormat guesses the format from the path alone. It does not touch the
// filesystem.
func DetectFormat(path string) Format {
	if strings.HasPrefix(path, NativePrefix) {
		return FormatNative
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vst3":
		return FormatVST3
	case ".clap":
		return FormatCLAP
	case ".dll", ".so", ".vst", ".dylib":
		return FormatVST2
	default:
		return FormatUnknown
	}
}

// Load loads the plugin id from path with default options.
func Load(path, id string, host *Host) (*Instance, error) {
	return LoadWith(path, id, host, LoadOptions{})
}

// LoadWith loads the plugin id from path. The instance starts suspended with
// the editor closed.
func LoadWith(path, id string, host *Host, opts LoadOptions) (*Instance, error) {
	const op = "plugin.Load"
	threadcheck.EnsureMain("plugin.Load")

	format := opts.Format
	if format == FormatUnknown {
		format = DetectFormat(path)
	}
	if format == FormatUnknown {
		return nil, errors.LoadFailure(op, errors.Unsupported(op, "unrecognised plugin file"), "%s", path)
	}

	loader := getLoader(format)
	if loader == nil {
		return nil, errors.LoadFailure(op, errors.Unsupported(op, "no loader registered for "+format.String()), "%s", path)
	}

	if host == nil {
		host = &Host{}
	}

	capacity := opts.EventCapacity
	if capacity <= 0 {
		capacity = ringbuf.DefaultCapacity
	}
	producer, consumer := ringbuf.New[event.PluginEvent](capacity)

	backend, desc, err := loader(LoadRequest{Path: path, ID: id, Host: host, Events: producer})
	if err != nil {
		if errors.IsKind(err, errors.KindLoadFailure) {
			return nil, err
		}
		return nil, errors.LoadFailure(op, err, "%s", path)
	}
	if desc.Format == FormatUnknown {
		desc.Format = format
	}
	if desc.Path == "" {
		desc.Path = path
	}

	in := newInstance(backend, desc, consumer, opts.QueueCapacity)
	in.log.Debug("plugin loaded", desc.fields()...)
	return in, nil
}
