// Package midi gives a typed view of the raw MIDI bytes carried by host
// events.
package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/plughost/pkg/event"
)

type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeNoteOff
	EventTypeNoteOn
	EventTypePolyPressure
	EventTypeControlChange
	EventTypeProgramChange
	EventTypeChannelPressure
	EventTypePitchBend
)

func (t EventType) String() string {
	switch t {
	case EventTypeNoteOff:
		return "NoteOff"
	case EventTypeNoteOn:
		return "NoteOn"
	case EventTypePolyPressure:
		return "PolyPressure"
	case EventTypeControlChange:
		return "CC"
	case EventTypeProgramChange:
		return "ProgramChange"
	case EventTypeChannelPressure:
		return "ChannelPressure"
	case EventTypePitchBend:
		return "PitchBend"
	default:
		return "Unknown"
	}
}

const (
	CCModWheel    uint8 = 1
	CCVolume      uint8 = 7
	CCPan         uint8 = 10
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

// Event is a decoded channel voice message. Data1 and Data2 hold the key
// and velocity, the controller and value, or the pressure, depending on
// Type. Bend is only set for pitch bend.
type Event struct {
	Type    EventType
	Channel uint8
	Data1   uint8
	Data2   uint8
	Bend    int16
	Offset  int
}

func (e Event) String() string {
	switch e.Type {
	case EventTypeNoteOn, EventTypeNoteOff:
		return fmt.Sprintf("%s{ch:%d, note:%s, vel:%d, offset:%d}", e.Type, e.Channel, NoteNumberToName(e.Data1), e.Data2, e.Offset)
	case EventTypeControlChange:
		return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}", e.Channel, e.Data1, e.Data2, e.Offset)
	case EventTypePitchBend:
		return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}", e.Channel, e.Bend, e.Offset)
	case EventTypeProgramChange, EventTypeChannelPressure:
		return fmt.Sprintf("%s{ch:%d, val:%d, offset:%d}", e.Type, e.Channel, e.Data1, e.Offset)
	default:
		return fmt.Sprintf("%s{ch:%d, offset:%d}", e.Type, e.Channel, e.Offset)
	}
}

// messageLength returns how many of the three data bytes a status uses.
func messageLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	default:
		return 3
	}
}

// Decode reads the MIDI payload of a host event. It returns false for
// non-MIDI events and for messages that are not channel voice messages.
// A note on with velocity zero decodes as a note off.
func Decode(ev event.HostEvent) (Event, bool) {
	if ev.Kind != event.HostMidi {
		return Event{}, false
	}

	raw := ev.Midi.Data
	msg := gomidi.Message(raw[:messageLength(raw[0])])
	out := Event{Offset: ev.Offset}

	var bendAbs uint16
	switch {
	case msg.GetNoteOn(&out.Channel, &out.Data1, &out.Data2):
		out.Type = EventTypeNoteOn
		if out.Data2 == 0 {
			out.Type = EventTypeNoteOff
		}
	case msg.GetNoteOff(&out.Channel, &out.Data1, &out.Data2):
		out.Type = EventTypeNoteOff
	case msg.GetControlChange(&out.Channel, &out.Data1, &out.Data2):
		out.Type = EventTypeControlChange
	case msg.GetPitchBend(&out.Channel, &out.Bend, &bendAbs):
		out.Type = EventTypePitchBend
	case msg.GetProgramChange(&out.Channel, &out.Data1):
		out.Type = EventTypeProgramChange
	case msg.GetAfterTouch(&out.Channel, &out.Data1):
		out.Type = EventTypeChannelPressure
	case msg.GetPolyAfterTouch(&out.Channel, &out.Data1, &out.Data2):
		out.Type = EventTypePolyPressure
	default:
		return Event{}, false
	}
	return out, true
}

// Describe renders a MIDI host event for logs and CLI output.
func Describe(ev event.HostEvent) string {
	if e, ok := Decode(ev); ok {
		return e.String()
	}
	raw := ev.Midi.Data
	return gomidi.Message(raw[:]).String()
}

func hostEvent(offset int, msg gomidi.Message) event.HostEvent {
	var data [3]byte
	copy(data[:], msg.Bytes())
	return event.Midi(offset, data)
}

// NoteOn builds a note on host event.
func NoteOn(offset int, channel, key, velocity uint8) event.HostEvent {
	return hostEvent(offset, gomidi.NoteOn(channel, key, velocity))
}

// NoteOff builds a note off host event.
func NoteOff(offset int, channel, key uint8) event.HostEvent {
	return hostEvent(offset, gomidi.NoteOff(channel, key))
}

// ControlChange builds a CC host event.
func ControlChange(offset int, channel, controller, value uint8) event.HostEvent {
	return hostEvent(offset, gomidi.ControlChange(channel, controller, value))
}

// PitchBend builds a pitch bend host event. value is -8192..8191, 0 is center.
func PitchBend(offset int, channel uint8, value int16) event.HostEvent {
	return hostEvent(offset, gomidi.Pitchbend(channel, value))
}

// ProgramChange builds a program change host event.
func ProgramChange(offset int, channel, program uint8) event.HostEvent {
	return hostEvent(offset, gomidi.ProgramChange(channel, program))
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNumberToName renders a MIDI note number, e.g. 60 -> "C4".
func NoteNumberToName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}
