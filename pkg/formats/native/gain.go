package native

import (
	"math"
	"unsafe"

	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/framework/process"
	"github.com/justyntemme/plughost/pkg/plugin"
)

// Parameter IDs of the gain plugin
const (
	GainParamGain int32 = iota
	GainParamBypass
	GainParamOutputLevel
	GainParamZoom
)

const (
	editorWidth  = 400
	editorHeight = 300
)

// GainPlugin is a stereo volume control with an editor and built-in
// presets.
type GainPlugin struct{}

// Info returns plugin metadata
func (GainPlugin) Info() Info {
	return Info{
		ID:       "com.plughost.gain",
		Name:     "Simple Gain",
		Version:  "1.0.0",
		Vendor:   "plughost",
		Category: "Fx",
	}
}

// CreateProcessor creates a new audio processor
func (GainPlugin) CreateProcessor() Processor {
	return NewGainProcessor()
}

// GainProcessor handles the audio processing
type GainProcessor struct {
	*BaseProcessor

	gain   *param.Parameter
	bypass *param.Parameter
	level  *param.Parameter
	zoom   *param.Parameter

	edits *Edits
	// shown is the editor's copy of the parameter values, main thread only
	shown map[int32]float64
	track *plugin.Track
}

// NewGainProcessor creates a new gain processor
func NewGainProcessor() *GainProcessor {
	p := &GainProcessor{
		BaseProcessor: NewBaseProcessor(bus.NewEffectStereo()),
		gain: param.New(GainParamGain, "Gain").
			Range(-24, 24).
			Default(0).
			Unit("dB").
			Formatter(param.DecibelFormatter, param.DecibelParser).
			Build(),
		bypass: param.New(GainParamBypass, "Bypass").Bypass().Build(),
		level: param.New(GainParamOutputLevel, "Output Level").
			Range(0, 1).
			ReadOnly().
			Build(),
		zoom: param.New(GainParamZoom, "Editor Zoom").
			Range(1, 2).
			Default(1).
			Hidden().
			Build(),
	}
	_ = p.Parameters().Add(p.gain, p.bypass, p.level, p.zoom)
	return p
}

// ProcessAudio applies the gain and meters the output peak
func (p *GainProcessor) ProcessAudio(ctx *process.Context) {
	if p.bypass.Value() >= 0.5 {
		ctx.PassThrough()
		return
	}

	gain := float32(math.Pow(10, p.gain.PlainValue()/20))
	var peak float32
	ctx.ProcessChannels(func(_ int, input, output []float32) {
		for i, x := range input {
			y := x * gain
			output[i] = y
			if y < 0 {
				y = -y
			}
			peak = max(peak, y)
		}
	})
	p.level.SetValue(float64(peak))
}

// Presets implements PresetBank
func (p *GainProcessor) Presets() []Preset {
	return []Preset{
		{Name: "Unity", Values: map[int32]float64{GainParamGain: 0, GainParamBypass: 0}},
		{Name: "Boost", Values: map[int32]float64{GainParamGain: 6, GainParamBypass: 0}},
		{Name: "Cut", Values: map[int32]float64{GainParamGain: -6, GainParamBypass: 0}},
	}
}

func (p *GainProcessor) editorSize() plugin.Size {
	z := p.zoom.PlainValue()
	return plugin.Size{Width: int(editorWidth * z), Height: int(editorHeight * z)}
}

// OpenEditor implements Editor. The editor is headless; it keeps the values
// it would draw.
func (p *GainProcessor) OpenEditor(_ unsafe.Pointer, _ plugin.WindowType, edits *Edits) (plugin.Size, error) {
	p.edits = edits
	p.shown = make(map[int32]float64)
	for _, prm := range p.Parameters().All() {
		p.shown[prm.ID] = prm.Value()
	}
	return p.editorSize(), nil
}

// CloseEditor implements Editor
func (p *GainProcessor) CloseEditor() {
	p.edits = nil
	p.shown = nil
}

// ParameterChanged implements EditorListener. A zoom change resizes the
// window.
func (p *GainProcessor) ParameterChanged(id int32, normalized float64) {
	if p.shown == nil {
		return
	}
	old, seen := p.shown[id]
	p.shown[id] = normalized
	if id == GainParamZoom && (!seen || old != normalized) && p.edits != nil {
		size := p.editorSize()
		p.edits.Resize(size.Width, size.Height)
	}
}

// Shown returns the value the editor displays for id.
func (p *GainProcessor) Shown(id int32) (float64, bool) {
	v, ok := p.shown[id]
	return v, ok
}

// SetTrack implements TrackAware
func (p *GainProcessor) SetTrack(track *plugin.Track) {
	t := *track
	p.track = &t
}

// Track returns the track last set by the host, or nil.
func (p *GainProcessor) Track() *plugin.Track {
	return p.track
}
