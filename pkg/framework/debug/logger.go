// Package debug provides logging and timing helpers for hosts.
package debug

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by NewLogger.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatAuto    = "auto"
)

// Options configures NewLogger.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Format is console, json or auto. Auto picks console when Output is a
	// terminal and JSON otherwise.
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// NewLogger builds a zap logger from opts.
func NewLogger(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	format, err := ResolveFormat(opts.Format, out)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if format == FormatConsole {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if level == zapcore.DebugLevel {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...), nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// ResolveFormat turns auto into a concrete format for out.
func ResolveFormat(format string, out io.Writer) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	case "", FormatAuto:
		if f, ok := out.(*os.File); ok && isTerminal(f.Fd()) {
			return FormatConsole, nil
		}
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format %q", format)
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
