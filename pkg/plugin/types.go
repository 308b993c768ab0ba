package plugin

import (
	"fmt"
	"runtime"

	"github.com/justyntemme/plughost/pkg/heapless"
)

// Format identifies the binary interface a plugin is distributed under.
type Format uint8

const (
	// FormatUnknown asks Load to detect the format from the path.
	FormatUnknown Format = iota
	// FormatNative is an in-process Go plugin addressed as "native:<name>".
	FormatNative
	FormatVST2
	FormatVST3
	FormatCLAP
)

var formatNames = [...]string{
	FormatUnknown: "unknown",
	FormatNative:  "native",
	FormatVST2:    "vst2",
	FormatVST3:    "vst3",
	FormatCLAP:    "clap",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormat maps a name such as "vst3" to its Format.
func ParseFormat(name string) (Format, bool) {
	for i, n := range formatNames {
		if n == name {
			return Format(i), true
		}
	}
	return FormatUnknown, false
}

// Descriptor identifies a loadable plugin. It is immutable once returned by
// discovery or a loader.
type Descriptor struct {
	Name    string
	ID      string
	Vendor  string
	Version string
	Path    string
	Format  Format
	// InitialLatency in samples, as reported at load time.
	InitialLatency int
}

// Load loads the plugin this descriptor points at.
func (d Descriptor) Load(host *Host) (*Instance, error) {
	return LoadWith(d.Path, d.ID, host, LoadOptions{Format: d.Format})
}

// KnobPreference is the host's preferred knob interaction mode.
type KnobPreference uint8

const (
	KnobUnspecified KnobPreference = iota
	KnobCircular
	KnobLinear
)

// Language is the host UI language offered to plugin editors.
type Language uint8

const (
	LanguageUnspecified Language = iota
	LanguageEnglish
	LanguageSpanish
	LanguageFrench
	LanguageGerman
	LanguageItalian
)

// Host is the information every backend receives about the hosting
// application.
type Host struct {
	Name    string
	Version string
	Vendor  string
	URL     string

	KnobPreference KnobPreference
	Language       Language
}

// NewHost returns a host record with the optional fields unset.
func NewHost(name, version, vendor string) *Host {
	return &Host{Name: name, Version: version, Vendor: vendor}
}

// PlayingState is the transport state.
type PlayingState uint8

const (
	Stopped PlayingState = iota
	Playing
	Recording
	OfflineRendering
)

// IsPlaying reports whether the transport is moving.
func (s PlayingState) IsPlaying() bool {
	return s != Stopped
}

// ProcessDetails carries the timing context of one processing call. Musical
// positions are in quarter notes.
type ProcessDetails struct {
	SampleRate int
	BlockSize  int
	Tempo      float64
	PlayerTime float64

	TimeSigNumerator   int
	TimeSigDenominator int

	CycleEnabled bool
	CycleStart   float64
	CycleEnd     float64

	PlayingState PlayingState
	BarStart     float64
	// Nanos is the system time of the block start in nanoseconds.
	Nanos float64
}

// DefaultProcessDetails returns 44.1 kHz, 512 samples, 120 BPM in 4/4 with
// the transport stopped.
func DefaultProcessDetails() ProcessDetails {
	return ProcessDetails{
		SampleRate:         44100,
		BlockSize:          512,
		Tempo:              120,
		TimeSigNumerator:   4,
		TimeSigDenominator: 4,
		PlayingState:       Stopped,
	}
}

// WindowType tags the platform handle passed to ShowEditor.
type WindowType uint8

const (
	WindowHWND WindowType = iota
	WindowX11
	WindowWayland
	WindowNSView
	WindowOther
)

func (w WindowType) String() string {
	switch w {
	case WindowHWND:
		return "hwnd"
	case WindowX11:
		return "x11"
	case WindowWayland:
		return "wayland"
	case WindowNSView:
		return "nsview"
	default:
		return "other"
	}
}

// ThisPlatform returns the native window type for the running OS.
func ThisPlatform() WindowType {
	switch runtime.GOOS {
	case "windows":
		return WindowHWND
	case "darwin":
		return WindowNSView
	case "linux", "freebsd", "openbsd", "netbsd":
		// TODO: detect a Wayland session from WAYLAND_DISPLAY once a backend can embed into one.
		return WindowX11
	default:
		return WindowOther
	}
}

// Size is an editor size in pixels.
type Size struct {
	Width  int
	Height int
}

// Colour is an 8-bit RGBA colour.
type Colour struct {
	R, G, B, A uint8
}

// Track describes the mixer track a plugin sits on. It is laid out so a
// bridge can hand it to native code unchanged.
type Track struct {
	Name   heapless.String[[64]byte]
	Colour Colour
}

// NewTrack builds a Track, failing when name exceeds 64 bytes.
func NewTrack(name string, colour Colour) (Track, error) {
	n, err := heapless.StringFrom[[64]byte](name)
	if err != nil {
		return Track{}, err
	}
	return Track{Name: n, Colour: colour}, nil
}
