package native

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/framework/process"
	"github.com/justyntemme/plughost/pkg/midi"
)

// Parameter IDs of the note monitor
const (
	MonitorParamLastNote int32 = iota
	MonitorParamVelocity
)

// NoteMonitorPlugin is a MIDI effect that reports the last note it
// received through read-only parameters.
type NoteMonitorPlugin struct{}

// Info returns plugin metadata
func (NoteMonitorPlugin) Info() Info {
	return Info{
		ID:       "com.plughost.notemonitor",
		Name:     "Note Monitor",
		Version:  "1.0.0",
		Vendor:   "plughost",
		Category: "Fx|Analyzer",
	}
}

// CreateProcessor creates a new audio processor
func (NoteMonitorPlugin) CreateProcessor() Processor {
	return NewNoteMonitor()
}

// NoteMonitor handles event processing
type NoteMonitor struct {
	*BaseProcessor

	lastNote *param.Parameter
	velocity *param.Parameter

	// notes counts note-ons since the preset was made, saved with it
	notes uint32
}

// NewNoteMonitor creates a new note monitor
func NewNoteMonitor() *NoteMonitor {
	p := &NoteMonitor{
		BaseProcessor: NewBaseProcessor(bus.NewMIDIEffect()),
		lastNote: param.New(MonitorParamLastNote, "Last Note").
			Range(0, 127).
			Steps(127).
			Formatter(func(v float64) string { return midi.NoteNumberToName(uint8(v)) }, nil).
			ReadOnly().
			Build(),
		velocity: param.New(MonitorParamVelocity, "Velocity").
			Range(0, 127).
			Steps(127).
			ReadOnly().
			Build(),
	}
	_ = p.Parameters().Add(p.lastNote, p.velocity)
	return p
}

// ProcessAudio implements Processor
func (p *NoteMonitor) ProcessAudio(ctx *process.Context) {
	changed := false
	for i := range ctx.Events {
		e, ok := midi.Decode(ctx.Events[i])
		if !ok {
			continue
		}
		switch e.Type {
		case midi.EventTypeNoteOn:
			p.notes++
			p.set(ctx, p.lastNote, float64(e.Data1))
			p.set(ctx, p.velocity, float64(e.Data2))
			changed = true
		case midi.EventTypeNoteOff:
			if math.Round(p.lastNote.PlainValue()) == float64(e.Data1) {
				p.set(ctx, p.velocity, 0)
				changed = true
			}
		}
	}
	if changed {
		ctx.Notify(event.Notify(event.UpdateDisplay))
	}
}

func (p *NoteMonitor) set(ctx *process.Context, prm *param.Parameter, plain float64) {
	v := prm.Normalize(plain)
	prm.SetValue(v)
	ctx.Notify(event.ParameterChanged(param.NewUpdate(prm.ID, float32(v))))
}

// Notes returns how many note-ons were seen.
func (p *NoteMonitor) Notes() uint32 {
	return p.notes
}

// SaveState implements state.CustomState
func (p *NoteMonitor) SaveState(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, p.notes)
}

// LoadState implements state.CustomState
func (p *NoteMonitor) LoadState(r io.Reader) error {
	return binary.Read(r, binary.LittleEndian, &p.notes)
}
