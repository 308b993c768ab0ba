package param

// Builder provides a fluent API for declaring parameters
type Builder struct {
	param *Parameter
}

// New starts a normalized, automatable parameter.
func New(id int32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Max:       1,
			Flags:     CanAutomate,
		},
	}
}

// ShortName sets the short name
func (b *Builder) ShortName(name string) *Builder {
	b.param.ShortName = name
	return b
}

// Range sets the plain value range.
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default from a plain value. Call it after Range.
func (b *Builder) Default(plain float64) *Builder {
	b.param.DefaultValue = b.param.Normalize(plain)
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Steps sets the number of discrete steps
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Toggle makes a two-state parameter, off by default.
func (b *Builder) Toggle() *Builder {
	b.param.Min, b.param.Max = 0, 1
	b.param.StepCount = 1
	b.param.DefaultValue = 0
	return b.Formatter(OnOffFormatter, nil)
}

// ReadOnly marks the parameter as read-only. Read-only parameters cannot be
// automated.
func (b *Builder) ReadOnly() *Builder {
	b.param.Flags |= IsReadOnly
	b.param.Flags &^= CanAutomate
	return b
}

// Hidden keeps the parameter out of host parameter lists.
func (b *Builder) Hidden() *Builder {
	b.param.Flags |= IsHidden
	return b
}

// WrapAround marks a cyclic parameter such as a phase.
func (b *Builder) WrapAround() *Builder {
	b.param.Flags |= IsWrapAround
	return b
}

// Bypass marks this as the bypass parameter
func (b *Builder) Bypass() *Builder {
	b.param.Flags |= IsBypass
	return b.Toggle()
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the parameter set to its default.
func (b *Builder) Build() *Parameter {
	b.param.SetValue(b.param.DefaultValue)
	return b.param
}
