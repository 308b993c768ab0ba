// Package event defines the events exchanged with a plugin and the ordering
// rules applied to each processing block.
package event

import (
	"fmt"

	"github.com/justyntemme/plughost/pkg/framework/param"
)

// HostEventKind selects the payload of a HostEvent.
type HostEventKind uint8

const (
	HostMidi HostEventKind = iota
	HostParameter
	HostNoteExpression
)

func (k HostEventKind) String() string {
	switch k {
	case HostMidi:
		return "midi"
	case HostParameter:
		return "parameter"
	case HostNoteExpression:
		return "note_expression"
	default:
		return fmt.Sprintf("host_event(%d)", uint8(k))
	}
}

// MidiEvent is a raw three byte MIDI message plus per-note extras.
type MidiEvent struct {
	// NoteLength in samples, 0 when unknown.
	NoteLength int
	Data       [3]byte
	// Detune in cents.
	Detune float32
	NoteID int32
}

// NoteExpressionType names the per-note dimension being modulated.
type NoteExpressionType uint8

const (
	ExpressionVolume NoteExpressionType = iota
	ExpressionPan
	ExpressionTuning
	ExpressionVibrato
	ExpressionExpression
	ExpressionBrightness
)

// NoteExpression modulates a single playing note.
type NoteExpression struct {
	NoteID int32
	Type   NoteExpressionType
	Value  float64
}

// HostEvent is sent to a plugin for one processing block. Only the payload
// selected by Kind is meaningful. Events are not retained past the call they
// are passed to.
type HostEvent struct {
	Kind HostEventKind
	// Offset is the sample position relative to the start of the block.
	Offset int
	// PPQ is the musical position in quarter notes, 0 when unknown.
	PPQ float64
	Bus int
	// Live is set for events coming from a live input such as a controller.
	Live bool

	Midi           MidiEvent
	Parameter      param.Update
	NoteExpression NoteExpression
}

// Midi returns a MIDI host event.
func Midi(offset int, data [3]byte) HostEvent {
	return HostEvent{Kind: HostMidi, Offset: offset, Midi: MidiEvent{Data: data}}
}

// Parameter returns a parameter change host event.
func Parameter(offset int, u param.Update) HostEvent {
	return HostEvent{Kind: HostParameter, Offset: offset, Parameter: u}
}

// Expression returns a note expression host event.
func Expression(offset int, noteID int32, kind NoteExpressionType, value float64) HostEvent {
	return HostEvent{
		Kind:           HostNoteExpression,
		Offset:         offset,
		NoteExpression: NoteExpression{NoteID: noteID, Type: kind, Value: value},
	}
}

// PluginEventKind selects the payload of a PluginEvent.
type PluginEventKind uint8

const (
	ChangeLatency PluginEventKind = iota
	ResizeWindow
	ParameterUpdate
	UpdateDisplay
	ConfigurationChanged
	RequestEditorOpen
	RequestEditorClose
	TailLengthChanged
)

var pluginEventNames = [...]string{
	ChangeLatency:        "change_latency",
	ResizeWindow:         "resize_window",
	ParameterUpdate:      "parameter_update",
	UpdateDisplay:        "update_display",
	ConfigurationChanged: "configuration_changed",
	RequestEditorOpen:    "request_editor_open",
	RequestEditorClose:   "request_editor_close",
	TailLengthChanged:    "tail_length_changed",
}

func (k PluginEventKind) String() string {
	if int(k) < len(pluginEventNames) {
		return pluginEventNames[k]
	}
	return fmt.Sprintf("plugin_event(%d)", uint8(k))
}

// PluginEvent is a notification from a plugin to the host. Only the fields
// used by Kind are set.
type PluginEvent struct {
	Kind PluginEventKind
	// Samples is the latency for ChangeLatency and the tail length for
	// TailLengthChanged.
	Samples   int
	Width     int
	Height    int
	Parameter param.Update
}

// Notify returns a payload-free event such as UpdateDisplay.
func Notify(kind PluginEventKind) PluginEvent {
	return PluginEvent{Kind: kind}
}

// LatencyChanged reports a new latency in samples.
func LatencyChanged(samples int) PluginEvent {
	return PluginEvent{Kind: ChangeLatency, Samples: samples}
}

// Resize reports a new editor size in pixels.
func Resize(width, height int) PluginEvent {
	return PluginEvent{Kind: ResizeWindow, Width: width, Height: height}
}

// ParameterChanged reports a value set by the plugin or its editor.
func ParameterChanged(u param.Update) PluginEvent {
	return PluginEvent{Kind: ParameterUpdate, Parameter: u}
}

// TailChanged reports how long output continues after input stops.
func TailChanged(samples int) PluginEvent {
	return PluginEvent{Kind: TailLengthChanged, Samples: samples}
}

func (e PluginEvent) String() string {
	switch e.Kind {
	case ChangeLatency, TailLengthChanged:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Samples)
	case ResizeWindow:
		return fmt.Sprintf("%s(%dx%d)", e.Kind, e.Width, e.Height)
	case ParameterUpdate:
		p := e.Parameter
		return fmt.Sprintf("%s(id=%d index=%d value=%.4f end=%v)", e.Kind, p.ID, p.Index, p.Value, p.EndEdit)
	default:
		return e.Kind.String()
	}
}
