package native

import (
	"unsafe"

	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/framework/process"
	"github.com/justyntemme/plughost/pkg/plugin"
)

// Plugin is the interface in-process plugins implement
type Plugin interface {
	// Info returns plugin metadata
	Info() Info

	// CreateProcessor creates a new instance of the audio processor
	CreateProcessor() Processor
}

// Processor handles the actual audio processing
type Processor interface {
	// Initialize is called after creation and whenever the sample rate or
	// block size changes, always while inactive.
	Initialize(sampleRate float64, maxBlockSize int) error

	// ProcessAudio processes one block and must not allocate. Parameter
	// events of the block are already applied to the registry.
	ProcessAudio(ctx *process.Context)

	Parameters() *param.Registry

	// Buses returns the current layout. It is called from the main thread.
	Buses() bus.IOConfiguration

	// SetActive is called when processing starts/stops
	SetActive(active bool) error

	LatencySamples() int
	TailSamples() int
}

// Editor is implemented by processors with an editor. edits reports the
// editor's parameter gestures to the host.
type Editor interface {
	OpenEditor(window unsafe.Pointer, kind plugin.WindowType, edits *Edits) (plugin.Size, error)
	CloseEditor()
}

// EditorListener receives parameter values the host changed, flushed from
// the main thread while the editor is open.
type EditorListener interface {
	ParameterChanged(id int32, normalized float64)
}

// Preset is a named set of plain parameter values.
type Preset struct {
	Name   string
	Values map[int32]float64
}

// PresetBank is implemented by processors with built-in presets.
type PresetBank interface {
	Presets() []Preset
}

// TrackAware is implemented by processors that show their track.
type TrackAware interface {
	SetTrack(track *plugin.Track)
}

// BaseProcessor provides common functionality for audio processors
type BaseProcessor struct {
	params     *param.Registry
	buses      bus.IOConfiguration
	sampleRate float64

	// Optional callbacks for customization
	onInitialize func(sampleRate float64, maxBlockSize int) error
	onSetActive  func(active bool) error
	onReset      func()
}

// NewBaseProcessor creates a new base processor with the given bus configuration
func NewBaseProcessor(buses bus.IOConfiguration) *BaseProcessor {
	return &BaseProcessor{
		params: param.NewRegistry(),
		buses:  buses,
	}
}

// Initialize implements the Processor interface
func (b *BaseProcessor) Initialize(sampleRate float64, maxBlockSize int) error {
	b.sampleRate = sampleRate

	if b.onInitialize != nil {
		return b.onInitialize(sampleRate, maxBlockSize)
	}

	return nil
}

// Parameters returns the parameter registry
func (b *BaseProcessor) Parameters() *param.Registry {
	return b.params
}

// Buses implements the Processor interface
func (b *BaseProcessor) Buses() bus.IOConfiguration {
	return b.buses
}

// SetActive implements the Processor interface
func (b *BaseProcessor) SetActive(active bool) error {
	if !active && b.onReset != nil {
		b.onReset()
	}

	if b.onSetActive != nil {
		return b.onSetActive(active)
	}

	return nil
}

// LatencySamples implements the Processor interface - default no latency
func (b *BaseProcessor) LatencySamples() int {
	return 0
}

// TailSamples implements the Processor interface - default no tail
func (b *BaseProcessor) TailSamples() int {
	return 0
}

// SampleRate returns the current sample rate
func (b *BaseProcessor) SampleRate() float64 {
	return b.sampleRate
}

// OnInitialize sets a callback for initialization
func (b *BaseProcessor) OnInitialize(fn func(sampleRate float64, maxBlockSize int) error) {
	b.onInitialize = fn
}

// OnSetActive sets a callback for activation/deactivation
func (b *BaseProcessor) OnSetActive(fn func(active bool) error) {
	b.onSetActive = fn
}

// OnReset sets a callback for when the processor should reset its state
func (b *BaseProcessor) OnReset(fn func()) {
	b.onReset = fn
}
