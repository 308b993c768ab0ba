package native

import (
	"sync/atomic"

	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/framework/process"
)

// Parameter IDs of the upmix plugin
const (
	UpmixParamMono int32 = iota
	UpmixParamLookahead
)

// LookaheadSamples is the upmix delay while lookahead is on.
const LookaheadSamples = 128

// UpmixPlugin delays its input and spreads it to stereo. Switching "Mono
// Input" on changes its layout from stereo to mono-in/stereo-out, which it
// announces with ConfigurationChanged.
type UpmixPlugin struct{}

// Info returns plugin metadata
func (UpmixPlugin) Info() Info {
	return Info{
		ID:       "com.plughost.upmix",
		Name:     "Upmix",
		Version:  "1.0.0",
		Vendor:   "plughost",
		Category: "Fx|Spatial",
	}
}

// CreateProcessor creates a new audio processor
func (UpmixPlugin) CreateProcessor() Processor {
	return NewUpmixProcessor()
}

// UpmixProcessor handles the audio processing
type UpmixProcessor struct {
	*BaseProcessor

	monoParam      *param.Parameter
	lookaheadParam *param.Parameter

	// read from the main thread through Buses and LatencySamples
	mono      atomic.Bool
	lookahead atomic.Bool

	lines [2][]float32
	pos   int
}

// NewUpmixProcessor creates a new upmix processor
func NewUpmixProcessor() *UpmixProcessor {
	p := &UpmixProcessor{
		BaseProcessor:  NewBaseProcessor(bus.NewEffectStereo()),
		monoParam:      param.New(UpmixParamMono, "Mono Input").Toggle().Build(),
		lookaheadParam: param.New(UpmixParamLookahead, "Lookahead").Toggle().Default(1).Build(),
	}
	_ = p.Parameters().Add(p.monoParam, p.lookaheadParam)
	p.lookahead.Store(true)

	p.OnInitialize(func(float64, int) error {
		for ch := range p.lines {
			p.lines[ch] = make([]float32, LookaheadSamples)
		}
		p.pos = 0
		return nil
	})
	p.OnReset(func() {
		for _, line := range p.lines {
			clear(line)
		}
	})
	return p
}

// Buses implements Processor
func (p *UpmixProcessor) Buses() bus.IOConfiguration {
	if p.mono.Load() {
		return bus.NewMonoToStereo()
	}
	return bus.NewEffectStereo()
}

// LatencySamples implements Processor
func (p *UpmixProcessor) LatencySamples() int {
	if p.lookahead.Load() {
		return LookaheadSamples
	}
	return 0
}

// ProcessAudio implements Processor. A layout change applies to the next
// block; this one is rendered with the buffers it was given.
func (p *UpmixProcessor) ProcessAudio(ctx *process.Context) {
	if mono := p.monoParam.Value() >= 0.5; mono != p.mono.Load() {
		p.mono.Store(mono)
		ctx.Notify(event.Notify(event.ConfigurationChanged))
	}
	p.lookahead.Store(p.lookaheadParam.Value() >= 0.5)

	if !p.lookahead.Load() {
		ctx.PassThrough()
		return
	}

	start := p.pos
	ctx.ProcessChannels(func(ch int, input, output []float32) {
		if ch >= len(p.lines) {
			return
		}
		line := p.lines[ch]
		pos := start
		for i, x := range input {
			output[i] = line[pos]
			line[pos] = x
			pos++
			if pos == LookaheadSamples {
				pos = 0
			}
		}
	})
	p.pos = (start + ctx.NumSamples()) % LookaheadSamples
}
