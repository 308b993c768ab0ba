// Package discovery finds plugins on disk and reads their descriptors
// without activating them.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

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

// Prober reads the descriptors of every plugin defined at path.
type Prober func(path string) ([]plugin.Descriptor, error)

var (
	probers = map[plugin.Format]Prober{
		plugin.FormatVST2: probeVST2,
		plugin.FormatVST3: probeVST3,
		plugin.FormatCLAP: probeCLAP,
	}
	probersMu sync.RWMutex
)

// RegisterProber replaces the prober for format. A nil prober removes it.
func RegisterProber(format plugin.Format, p Prober) {
	probersMu.Lock()
	defer probersMu.Unlock()
	if p == nil {
		delete(probers, format)
		return
	}
	probers[format] = p
}

func getProber(format plugin.Format) Prober {
	probersMu.RLock()
	defer probersMu.RUnlock()
	return probers[format]
}

// IsVST2 reports whether path looks like a legacy-format plugin. With
// checkContents set the library must also export VSTPluginMain.
func IsVST2(path string, checkContents bool) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if plugin.DetectFormat(path) != plugin.FormatVST2 {
		return false
	}
	if !checkContents {
		return true
	}
	ok, err := HasExport(path, LegacyEntryPoint)
	return err == nil && ok
}

// IsVST3 reports whether path has the VST3 bundle extension.
func IsVST3(path string) bool {
	return plugin.DetectFormat(path) == plugin.FormatVST3
}

// IsCLAP reports whether path has the CLAP extension.
func IsCLAP(path string) bool {
	return plugin.DetectFormat(path) == plugin.FormatCLAP
}

// Probe returns the descriptors of the plugins defined at path. Formats such
// as VST3 may define several plugins in one file.
func Probe(path string) ([]plugin.Descriptor, error) {
	const op = "discovery.Probe"

	format := plugin.DetectFormat(path)
	if format == plugin.FormatUnknown {
		return nil, errors.Unsupported(op, "unrecognised plugin file "+path)
	}
	p := getProber(format)
	if p == nil {
		return nil, errors.Unsupported(op, "no prober for "+format.String())
	}

	descs, err := p(path)
	if err != nil {
		return nil, err
	}
	for i := range descs {
		descs[i].Format = format
		if descs[i].Path == "" {
			descs[i].Path = path
		}
	}
	return descs, nil
}

// Scan walks dirs and probes every plugin found. Files that fail to probe
// are logged and skipped. Missing directories are ignored.
func Scan(dirs ...string) []plugin.Descriptor {
	var found []plugin.Descriptor
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return fs.SkipDir
				}
				return nil
			}
			format := plugin.DetectFormat(path)
			if format == plugin.FormatUnknown {
				return nil
			}

			descs, perr := Probe(path)
			if perr != nil {
				Logger().Debug("skipping plugin", zap.String("path", path), zap.Error(perr))
			} else {
				found = append(found, descs...)
			}

			// bundles are directories; never descend into them
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		})
		if err != nil {
			Logger().Warn("scan failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	return found
}

// DefaultSearchPaths returns the conventional plugin directories for the
// running OS.
func DefaultSearchPaths() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		common := os.Getenv("CommonProgramFiles")
		programs := os.Getenv("ProgramFiles")
		return []string{
			filepath.Join(common, "VST3"),
			filepath.Join(common, "CLAP"),
			filepath.Join(programs, "Steinberg", "VSTPlugins"),
		}
	case "darwin":
		return []string{
			"/Library/Audio/Plug-Ins/VST3",
			"/Library/Audio/Plug-Ins/CLAP",
			"/Library/Audio/Plug-Ins/VST",
			filepath.Join(home, "Library", "Audio", "Plug-Ins", "VST3"),
			filepath.Join(home, "Library", "Audio", "Plug-Ins", "CLAP"),
		}
	default:
		return []string{
			"/usr/lib/vst3",
			"/usr/lib/clap",
			"/usr/lib/vst",
			filepath.Join(home, ".vst3"),
			filepath.Join(home, ".clap"),
			filepath.Join(home, ".vst"),
		}
	}
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func probeVST2(path string) ([]plugin.Descriptor, error) {
	ok, err := HasExport(path, LegacyEntryPoint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NotFound("discovery.Probe", "export", LegacyEntryPoint)
	}
	name := baseName(path)
	return []plugin.Descriptor{{Name: name, ID: name}}, nil
}

func probeCLAP(path string) ([]plugin.Descriptor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.KindNotFound, "discovery.Probe", err, path)
	}
	name := baseName(path)
	return []plugin.Descriptor{{Name: name, ID: name}}, nil
}
