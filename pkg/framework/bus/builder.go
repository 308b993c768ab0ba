package bus

import (
	"fmt"
)

// Builder provides a fluent API for building bus configurations
type Builder struct {
	config IOConfiguration
	errors []error
}

// NewBuilder creates a new bus configuration builder
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(list *Buses, info Info) *Builder {
	if err := list.Push(info); err != nil {
		b.errors = append(b.errors, fmt.Errorf("bus %s: %w", info.Name, err))
	}
	return b
}

// WithAudioInput adds a main input bus.
func (b *Builder) WithAudioInput(name string, channels int) *Builder {
	return b.add(&b.config.Inputs, Info{Name: name, Channels: channels, Type: TypeMain})
}

// WithAudioOutput adds a main output bus.
func (b *Builder) WithAudioOutput(name string, channels int) *Builder {
	return b.add(&b.config.Outputs, Info{Name: name, Channels: channels, Type: TypeMain})
}

// WithAuxInput adds an auxiliary audio input bus (e.g., sidechain)
func (b *Builder) WithAuxInput(name string, channels int) *Builder {
	return b.add(&b.config.Inputs, Info{Name: name, Channels: channels, Type: TypeAux})
}

// WithAuxOutput adds an auxiliary audio output bus
func (b *Builder) WithAuxOutput(name string, channels int) *Builder {
	return b.add(&b.config.Outputs, Info{Name: name, Channels: channels, Type: TypeAux})
}

// WithEventInput adds an event (MIDI) input bus
func (b *Builder) WithEventInput() *Builder {
	b.config.EventInputs++
	return b
}

// WithStereoInput is a convenience method for adding stereo input
func (b *Builder) WithStereoInput(name string) *Builder {
	return b.WithAudioInput(name, 2)
}

// WithStereoOutput is a convenience method for adding stereo output
func (b *Builder) WithStereoOutput(name string) *Builder {
	return b.WithAudioOutput(name, 2)
}

// WithMonoInput is a convenience method for adding mono input
func (b *Builder) WithMonoInput(name string) *Builder {
	return b.WithAudioInput(name, 1)
}

// WithMonoOutput is a convenience method for adding mono output
func (b *Builder) WithMonoOutput(name string) *Builder {
	return b.WithAudioOutput(name, 1)
}

// WithSidechain adds a sidechain input bus (auxiliary stereo input)
func (b *Builder) WithSidechain(name string) *Builder {
	return b.WithAuxInput(name, 2)
}

// Validate checks if the configuration is valid
func (b *Builder) Validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("builder errors: %v", b.errors)
	}

	// MIDI-only plugins have no audio output but must take events.
	if b.config.Outputs.IsEmpty() && b.config.EventInputs == 0 {
		return fmt.Errorf("configuration must have at least one output bus or event input")
	}

	for _, list := range []*Buses{&b.config.Inputs, &b.config.Outputs} {
		for _, info := range list.Slice() {
			if info.Channels <= 0 {
				return fmt.Errorf("invalid channel count %d for bus %s", info.Channels, info.Name)
			}
			if info.Channels > MaxChannels {
				return fmt.Errorf("channel count %d exceeds maximum of %d for bus %s", info.Channels, MaxChannels, info.Name)
			}
		}
	}

	return nil
}

// Build returns the built configuration or an error
func (b *Builder) Build() (IOConfiguration, error) {
	if err := b.Validate(); err != nil {
		return IOConfiguration{}, err
	}
	return b.config, nil
}

// MustBuild returns the built configuration or panics on error
func (b *Builder) MustBuild() IOConfiguration {
	config, err := b.Build()
	if err != nil {
		panic(err)
	}
	return config
}
