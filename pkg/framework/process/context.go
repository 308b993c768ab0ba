// Package process provides the per-block context handed to in-process
// plugins. Nothing in it allocates once the context is built.
package process

import (
	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
)

// Notifier receives plugin-to-host notifications. A ring producer satisfies
// it.
type Notifier interface {
	TryPush(event.PluginEvent) bool
}

// Transport is the musical timing for one block.
type Transport struct {
	Tempo   float64
	PPQ     float64
	Playing bool
}

// Context describes one processing block.
type Context struct {
	Inputs     []bus.AudioBus
	Outputs    []bus.AudioBus
	Events     []event.HostEvent
	SampleRate float64
	Transport  Transport

	workBuffer []float32
	params     *param.Registry
	notifier   Notifier
}

// NewContext creates a new process context with pre-allocated buffers
func NewContext(maxBlockSize int, params *param.Registry, notifier Notifier) *Context {
	return &Context{
		workBuffer: make([]float32, maxBlockSize),
		params:     params,
		notifier:   notifier,
	}
}

// Reset points the context at a new block.
func (c *Context) Reset(inputs, outputs []bus.AudioBus, events []event.HostEvent) {
	c.Inputs = inputs
	c.Outputs = outputs
	c.Events = events
}

// Resize reallocates the work buffer. Call it off the audio thread.
func (c *Context) Resize(maxBlockSize int) {
	if maxBlockSize > cap(c.workBuffer) {
		c.workBuffer = make([]float32, maxBlockSize)
	}
	c.workBuffer = c.workBuffer[:maxBlockSize]
}

// Param returns the current value of a parameter (0-1 normalized)
func (c *Context) Param(id int32) float64 {
	if p := c.params.Get(id); p != nil {
		return p.Value()
	}
	return 0
}

// ParamPlain returns the current plain value of a parameter
func (c *Context) ParamPlain(id int32) float64 {
	if p := c.params.Get(id); p != nil {
		return p.PlainValue()
	}
	return 0
}

// ApplyParameterEvents writes every parameter event of the block into the
// registry in order and returns how many were applied.
func (c *Context) ApplyParameterEvents() int {
	n := 0
	for i := range c.Events {
		if c.Events[i].Kind == event.HostParameter && c.params.Apply(c.Events[i].Parameter) {
			n++
		}
	}
	return n
}

// Notify sends a notification to the host. It reports false when the host
// queue is full and the notification was dropped.
func (c *Context) Notify(ev event.PluginEvent) bool {
	if c.notifier == nil {
		return false
	}
	return c.notifier.TryPush(ev)
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	for _, b := range c.Inputs {
		if n := b.Samples(); n > 0 {
			return n
		}
	}
	for _, b := range c.Outputs {
		if n := b.Samples(); n > 0 {
			return n
		}
	}
	return 0
}

// MainInput returns the first input bus channels, or nil.
func (c *Context) MainInput() [][]float32 {
	if len(c.Inputs) == 0 {
		return nil
	}
	return c.Inputs[0].Data
}

// MainOutput returns the first output bus channels, or nil.
func (c *Context) MainOutput() [][]float32 {
	if len(c.Outputs) == 0 {
		return nil
	}
	return c.Outputs[0].Data
}

// Sidechain returns the second input bus channels, or nil.
func (c *Context) Sidechain() [][]float32 {
	if len(c.Inputs) < 2 {
		return nil
	}
	return c.Inputs[1].Data
}

// WorkBuffer returns the scratch buffer sized to the current block.
func (c *Context) WorkBuffer() []float32 {
	return c.workBuffer[:min(c.NumSamples(), len(c.workBuffer))]
}

// ProcessChannels calls fn for each channel pair of the main buses. Extra
// output channels get input channel ch % inputs, so mono feeds stereo.
func (c *Context) ProcessChannels(fn func(ch int, input, output []float32)) {
	in, out := c.MainInput(), c.MainOutput()
	if len(in) == 0 {
		return
	}
	for ch := range out {
		fn(ch, in[ch%len(in)], out[ch])
	}
}

// PassThrough copies the main input to the main output.
func (c *Context) PassThrough() {
	c.ProcessChannels(func(_ int, input, output []float32) {
		copy(output, input)
	})
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for _, b := range c.Outputs {
		b.Clear()
	}
}
