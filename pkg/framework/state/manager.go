package state

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/framework/param"
)

var magic = []byte("PLUGHOST")

// CustomState lets a plugin persist data beyond its parameter values.
type CustomState interface {
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
}

// Manager handles plugin state saving and loading
type Manager struct {
	version  uint32
	registry *param.Registry
	custom   CustomState
}

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{
		version:  1,
		registry: registry,
	}
}

// SetCustomState registers extra state saved after the parameters.
func (m *Manager) SetCustomState(c CustomState) {
	m.custom = c
}

// Save writes the plugin state to a writer
func (m *Manager) Save(w io.Writer) error {
	if _, err := w.Write(magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}

	params := m.registry.All()
	if err := binary.Write(w, binary.LittleEndian, int32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Value()); err != nil {
			return err
		}
	}

	if m.custom == nil {
		return binary.Write(w, binary.LittleEndian, uint32(0))
	}
	var custom bytes.Buffer
	if err := m.custom.SaveState(&custom); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(custom.Len())); err != nil {
		return err
	}
	_, err := w.Write(custom.Bytes())
	return err
}

// Load reads the plugin state from a reader. Unknown parameter ids are
// skipped so older presets keep loading after parameters are removed.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return malformed(err)
	}
	if !bytes.Equal(header, magic) {
		return errors.Malformed("state.Load", "invalid state header")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return malformed(err)
	}
	if version > m.version {
		return errors.Malformed("state.Load", "state version %d is newer than supported version %d", version, m.version)
	}

	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return malformed(err)
	}
	if count < 0 {
		return errors.Malformed("state.Load", "negative parameter count %d", count)
	}

	for i := int32(0); i < count; i++ {
		var id int32
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return malformed(err)
		}
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return malformed(err)
		}
		if p := m.registry.Get(id); p != nil {
			p.SetValue(value)
		}
	}

	var customLen uint32
	if err := binary.Read(r, binary.LittleEndian, &customLen); err != nil {
		return malformed(err)
	}
	if customLen == 0 {
		return nil
	}
	if m.custom == nil {
		return errors.Malformed("state.Load", "preset carries %d bytes of custom state but none is registered", customLen)
	}
	return m.custom.LoadState(io.LimitReader(r, int64(customLen)))
}

// Bytes is Save into a new slice.
func (m *Manager) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func malformed(err error) error {
	return errors.Wrap(errors.KindMalformed, "state.Load", err, "truncated state")
}
