package bus

// Common bus layouts

// NewEffectStereo creates a standard stereo effect configuration (1 stereo in, 1 stereo out)
func NewEffectStereo() IOConfiguration {
	return NewBuilder().
		WithStereoInput("Stereo In").
		WithStereoOutput("Stereo Out").
		MustBuild()
}

// NewEffectMono creates a mono effect configuration (1 mono in, 1 mono out)
func NewEffectMono() IOConfiguration {
	return NewBuilder().
		WithMonoInput("Mono In").
		WithMonoOutput("Mono Out").
		MustBuild()
}

// NewEffectStereoSidechain creates a stereo effect with sidechain input
func NewEffectStereoSidechain() IOConfiguration {
	return NewBuilder().
		WithStereoInput("Stereo In").
		WithStereoOutput("Stereo Out").
		WithSidechain("Sidechain In").
		MustBuild()
}

// NewMonoToStereo creates a mono-to-stereo effect configuration
func NewMonoToStereo() IOConfiguration {
	return NewBuilder().
		WithMonoInput("Mono In").
		WithStereoOutput("Stereo Out").
		MustBuild()
}

// NewGenerator is an instrument layout: stereo out and one event input.
func NewGenerator() IOConfiguration {
	return NewBuilder().
		WithStereoOutput("Stereo Out").
		WithEventInput().
		MustBuild()
}

// NewMIDIEffect has an event input and no audio.
func NewMIDIEffect() IOConfiguration {
	return NewBuilder().
		WithEventInput().
		MustBuild()
}

// FromChannelTotals guesses a layout for formats that only report total
// channel counts. One or two channels become a single bus; more become a
// stereo main bus plus one bus for the rest.
func FromChannelTotals(inputs, outputs, eventInputs int) IOConfiguration {
	var c IOConfiguration
	guess(&c.Inputs, inputs, "In")
	guess(&c.Outputs, outputs, "Out")
	c.EventInputs = min(eventInputs, 1)
	return c
}

func guess(list *Buses, total int, suffix string) {
	switch {
	case total <= 0:
	case total <= 2:
		_ = list.Push(Info{Name: "Main " + suffix, Channels: total, Type: TypeMain})
	default:
		_ = list.Push(Info{Name: "Main " + suffix, Channels: 2, Type: TypeMain})
		_ = list.Push(Info{Name: "Aux " + suffix, Channels: total - 2, Type: TypeAux})
	}
}
