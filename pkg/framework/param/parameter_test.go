package param

import (
	"math"
	"testing"
)

func TestBuilderDefaults(t *testing.T) {
	p := New(1, "Gain").Range(-60, 12).Default(0).Unit("dB").Build()

	if p.ID != 1 || p.Name != "Gain" {
		t.Errorf("Expected id 1 'Gain', got %d %q", p.ID, p.Name)
	}
	if p.Flags&CanAutomate == 0 {
		t.Error("Expected new parameters to be automatable")
	}

	want := 60.0 / 72.0
	if math.Abs(p.Value()-want) > 1e-9 {
		t.Errorf("Expected normalized default %f, got %f", want, p.Value())
	}
	if math.Abs(p.PlainValue()) > 1e-9 {
		t.Errorf("Expected plain value 0, got %f", p.PlainValue())
	}
}

func TestSetValueClamps(t *testing.T) {
	p := New(1, "Mix").Build()

	p.SetValue(1.5)
	if p.Value() != 1 {
		t.Errorf("Expected clamp to 1, got %f", p.Value())
	}
	p.SetValue(-0.5)
	if p.Value() != 0 {
		t.Errorf("Expected clamp to 0, got %f", p.Value())
	}
}

func TestFormatAndParse(t *testing.T) {
	tests := []struct {
		name       string
		param      *Parameter
		normalized float64
		want       string
	}{
		{"default", New(1, "Amount").Range(0, 10).Build(), 0.5, "5.00"},
		{"unit", New(2, "Time").Range(0, 100).Unit("ms").Build(), 0.25, "25.00 ms"},
		{"stepped", New(3, "Mode").Range(0, 4).Steps(4).Build(), 0.5, "2"},
		{"toggle", New(4, "Enable").Toggle().Build(), 1, "On"},
		{"decibel", New(5, "Gain").Range(-60, 0).Formatter(DecibelFormatter, DecibelParser).Build(), 0.9, "-6.0 dB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.param.FormatValue(tt.normalized); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	gain := New(5, "Gain").Range(-60, 0).Formatter(DecibelFormatter, DecibelParser).Build()
	v, err := gain.ParseValue("-6 dB")
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if math.Abs(v-0.9) > 1e-9 {
		t.Errorf("Expected 0.9, got %f", v)
	}
	if _, err := gain.ParseValue("loud"); err == nil {
		t.Error("Expected parse error")
	}
}

func TestInfoFlags(t *testing.T) {
	p := New(7, "Meter").ReadOnly().Hidden().WrapAround().Build()
	info := p.Info(3)

	if info.Index != 3 || info.ID != 7 {
		t.Errorf("Expected id 7 index 3, got %d %d", info.ID, info.Index)
	}
	if !info.ReadOnly || !info.Hidden || !info.WrapAround {
		t.Errorf("Expected flags to carry through, got %+v", info)
	}
	if info.CanAutomate {
		t.Error("Read-only parameter should not be automatable")
	}
	if !info.HasDefault {
		t.Error("Expected in-process parameters to report a default")
	}
}

func TestNewUpdate(t *testing.T) {
	u := NewUpdate(42, 0.25)

	if u.ID != 42 || u.Index != -1 {
		t.Errorf("Expected id 42 index -1, got %d %d", u.ID, u.Index)
	}
	if u.HasInitial() {
		t.Error("Expected NaN initial value")
	}
	if u.EndEdit {
		t.Error("Expected EndEdit to be false")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	gain := New(10, "Gain").Build()
	mix := New(20, "Mix").Build()
	meter := New(30, "Meter").ReadOnly().Build()

	if err := r.Add(gain, mix, meter); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(New(10, "Dup").Build()); err == nil {
		t.Error("Expected duplicate id to be rejected")
	}

	if r.Count() != 3 {
		t.Errorf("Expected 3 parameters, got %d", r.Count())
	}
	if r.GetByIndex(1) != mix || r.Get(20) != mix {
		t.Error("Lookup by index and id disagree")
	}
	if r.GetByIndex(3) != nil || r.GetByIndex(-1) != nil {
		t.Error("Expected nil for out of range index")
	}
	if r.IndexOf(30) != 2 || r.IndexOf(99) != -1 {
		t.Error("IndexOf returned wrong position")
	}

	if !r.Apply(NewUpdate(20, 0.75)) || mix.Value() != 0.75 {
		t.Errorf("Expected Apply by id, got %f", mix.Value())
	}
	if !r.Apply(Update{ID: -5, Index: 0, Value: 0.5}) || gain.Value() != 0.5 {
		t.Errorf("Expected Apply by index fallback, got %f", gain.Value())
	}
	if r.Apply(NewUpdate(30, 1)) {
		t.Error("Read-only parameter must not accept updates")
	}
	if r.Apply(NewUpdate(20, float32(math.NaN()))) {
		t.Error("NaN value must be ignored")
	}
}
