package plugin

import (
	"unsafe"

	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
)

// ReconfigureTiming says on which thread a backend accepts sample rate and
// block size changes.
type ReconfigureTiming uint8

const (
	// ReconfigureOnMainThread backends get changes at the start of the next
	// GetEvents drain.
	ReconfigureOnMainThread ReconfigureTiming = iota
	// ReconfigureOnAudioThread backends get changes at the start of the next
	// Process call.
	ReconfigureOnAudioThread
)

// Capabilities are the behavioural differences between backends that the
// Instance has to reconcile.
type Capabilities struct {
	Reconfigure ReconfigureTiming
	// SampleAccurateAutomation backends accept several values per parameter
	// in one block, so events are not deduplicated for them.
	SampleAccurateAutomation bool
}

// Backend is implemented once per plugin format.
//
// Process runs on the realtime thread and must not allocate or block. It may
// push notifications to the producer handed over at load time. Everything
// else is called from the main thread.
type Backend interface {
	Process(inputs, outputs []bus.AudioBus, events []event.HostEvent, details *ProcessDetails)

	PresetData() ([]byte, error)
	SetPresetData(data []byte) error
	PresetName(id int32) (string, error)
	SetPreset(id int32) error

	Parameter(index int32) (param.Info, error)
	ParameterCount() int

	// ShowEditor embeds the editor into window and returns its initial size.
	ShowEditor(window unsafe.Pointer, kind WindowType) (Size, error)
	HideEditor()

	// Suspend and Resume must be idempotent.
	Suspend()
	Resume()

	ChangeSampleRate(rate int)
	ChangeBlockSize(size int)

	IOConfiguration() bus.IOConfiguration
	Latency() int
	Capabilities() Capabilities

	// Close releases the plugin and unloads its module.
	Close() error
}

// EditorUpdater is implemented by backends that queue values for a
// secondary consumer, such as a separate edit controller, and need the
// queue flushed from the main thread.
type EditorUpdater interface {
	FlushEditorUpdates()
}

// TrackDetailsSetter is implemented by backends that can show the track the
// plugin sits on.
type TrackDetailsSetter interface {
	SetTrackDetails(track *Track) error
}
