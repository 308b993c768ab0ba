package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter is a parameter definition owned by an in-process plugin. Its
// normalized value is stored atomically so the audio thread can read it
// without locking.
type Parameter struct {
	ID           int32
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64 // normalized
	StepCount    int32
	Flags        uint32

	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Flags for parameters
const (
	CanAutomate     uint32 = 1 << 0
	IsReadOnly      uint32 = 1 << 1
	IsWrapAround    uint32 = 1 << 2
	IsList          uint32 = 1 << 3
	IsHidden        uint32 = 1 << 4
	IsProgramChange uint32 = 1 << 15
	IsBypass        uint32 = 1 << 16
)

// Value returns the current normalized value.
func (p *Parameter) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue stores a normalized value, clamped to [0, 1].
func (p *Parameter) SetValue(value float64) {
	p.value.Store(math.Float64bits(clamp01(value)))
}

// PlainValue returns the current value in the parameter's own range.
func (p *Parameter) PlainValue() float64 {
	return p.Denormalize(p.Value())
}

// SetFormatter sets custom value formatting
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue renders a normalized value the way an editor would show it.
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	if p.Unit != "" {
		return fmt.Sprintf("%.2f %s", plain, p.Unit)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses display text into a normalized value.
func (p *Parameter) ParseValue(str string) (float64, error) {
	parse := p.parseFunc
	if parse == nil {
		parse = func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	}
	plain, err := parse(str)
	if err != nil {
		return 0, err
	}
	return p.Normalize(plain), nil
}

// Normalize maps a plain value into [0, 1].
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	return clamp01((plain - p.Min) / (p.Max - p.Min))
}

// Denormalize maps a normalized value into [Min, Max].
func (p *Parameter) Denormalize(normalized float64) float64 {
	return p.Min + normalized*(p.Max-p.Min)
}

// Info snapshots the parameter for a host query.
func (p *Parameter) Info(index int32) Info {
	value := p.Value()
	return Info{
		ID:           p.ID,
		Name:         p.Name,
		Index:        index,
		Value:        float32(value),
		Formatted:    p.FormatValue(value),
		Hidden:       p.Flags&IsHidden != 0,
		CanAutomate:  p.Flags&CanAutomate != 0,
		WrapAround:   p.Flags&IsWrapAround != 0,
		ReadOnly:     p.Flags&IsReadOnly != 0,
		DefaultValue: float32(p.DefaultValue),
		HasDefault:   true,
	}
}

// Info is what a host learns about one parameter of a loaded plugin.
type Info struct {
	ID    int32
	Name  string
	Index int32
	// Value is normalized to [0, 1].
	Value float32
	// Formatted is the plugin's own rendering, e.g. "-6.0 dB".
	Formatted   string
	Hidden      bool
	CanAutomate bool
	WrapAround  bool
	ReadOnly    bool
	// DefaultValue is only meaningful when HasDefault is set; not every
	// format reports one.
	DefaultValue float32
	HasDefault   bool
}

// Update carries one parameter value between host and plugin.
type Update struct {
	ID    int32
	Index int32
	// Value is normalized, or NaN when there is no baseline.
	Value float32
	// Initial is the value before the current edit gesture started, used by
	// hosts for undo. NaN when unknown.
	Initial float32
	// EndEdit is set on the final value of a gesture.
	EndEdit bool
}

// NewUpdate returns an update addressed by id only.
func NewUpdate(id int32, value float32) Update {
	return Update{
		ID:      id,
		Index:   -1,
		Value:   value,
		Initial: float32(math.NaN()),
	}
}

// HasInitial reports whether the pre-edit value is known.
func (u Update) HasInitial() bool {
	return !math.IsNaN(float64(u.Initial))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
