// Package bus describes a plugin's audio bus layout and checks caller buffers
// against it before every processing call.
package bus

import (
	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/heapless"
)

// MaxBuses is the number of buses each direction can hold.
const MaxBuses = 16

// MaxChannels is the largest channel count a single bus may declare.
const MaxChannels = 32

// Type represents the bus type
type Type int32

const (
	// TypeMain represents main bus
	TypeMain Type = 0
	// TypeAux represents auxiliary bus, e.g. a sidechain
	TypeAux Type = 1
)

// Info describes one audio bus.
type Info struct {
	Name     string
	Channels int
	Type     Type
}

// Buses is a fixed-capacity list of bus descriptors.
type Buses = heapless.Vec[Info, [MaxBuses]Info]

// IOConfiguration is a plugin's current bus layout. It is replaced as a whole
// whenever the plugin reports a change.
type IOConfiguration struct {
	Inputs      Buses
	Outputs     Buses
	EventInputs int
}

// InputChannels returns the channel count of input bus i.
func (c *IOConfiguration) InputChannels(i int) int {
	return c.Inputs.At(i).Channels
}

// OutputChannels returns the channel count of output bus i.
func (c *IOConfiguration) OutputChannels(i int) int {
	return c.Outputs.At(i).Channels
}

// TotalInputChannels sums the channels across input buses.
func (c *IOConfiguration) TotalInputChannels() int {
	return totalChannels(&c.Inputs)
}

// TotalOutputChannels sums the channels across output buses.
func (c *IOConfiguration) TotalOutputChannels() int {
	return totalChannels(&c.Outputs)
}

// Matches checks caller buffers against the layout: input bus count, output
// bus count, then channels per bus. The first difference is returned as a
// configuration mismatch error. A match never allocates.
func (c *IOConfiguration) Matches(inputs, outputs []AudioBus) error {
	if c.Inputs.Len() != len(inputs) || c.Outputs.Len() != len(outputs) {
		return errors.Mismatch("bus count mismatch: expected %d inputs and %d outputs, got %d inputs and %d outputs",
			c.Inputs.Len(), c.Outputs.Len(), len(inputs), len(outputs))
	}

	for i, want := range c.Inputs.Slice() {
		if got := inputs[i].Channels(); got != want.Channels {
			return errors.Mismatch("input bus %d channel count mismatch: expected %d, got %d", i, want.Channels, got)
		}
	}

	for i, want := range c.Outputs.Slice() {
		if got := outputs[i].Channels(); got != want.Channels {
			return errors.Mismatch("output bus %d channel count mismatch: expected %d, got %d", i, want.Channels, got)
		}
	}

	return nil
}

// AllocateBuffers returns silent buffers sized to the layout. It takes a
// value so it can be called directly on a template or a returned layout.
func (c IOConfiguration) AllocateBuffers(blockSize int) (inputs, outputs []AudioBus) {
	inputs = make([]AudioBus, c.Inputs.Len())
	for i, info := range c.Inputs.Slice() {
		inputs[i] = NewAudioBus(info.Channels, blockSize)
	}
	outputs = make([]AudioBus, c.Outputs.Len())
	for i, info := range c.Outputs.Slice() {
		outputs[i] = NewAudioBus(info.Channels, blockSize)
	}
	return inputs, outputs
}

func totalChannels(b *Buses) int {
	n := 0
	for _, info := range b.Slice() {
		n += info.Channels
	}
	return n
}

// AudioBus is one bus worth of non-interleaved sample buffers, one slice per
// channel.
type AudioBus struct {
	Data [][]float32
}

// NewAudioBus allocates a silent bus.
func NewAudioBus(channels, blockSize int) AudioBus {
	data := make([][]float32, channels)
	backing := make([]float32, channels*blockSize)
	for ch := range data {
		data[ch] = backing[ch*blockSize : (ch+1)*blockSize : (ch+1)*blockSize]
	}
	return AudioBus{Data: data}
}

// Channels returns the number of channel buffers.
func (b AudioBus) Channels() int {
	return len(b.Data)
}

// Samples returns the length of the first channel, or 0.
func (b AudioBus) Samples() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Clear zeroes every channel.
func (b AudioBus) Clear() {
	for _, ch := range b.Data {
		clear(ch)
	}
}
