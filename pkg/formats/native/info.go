package native

import (
	"github.com/google/uuid"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/plugin"
)

// namespace seeds the name-based UIDs of native plugins.
var namespace = uuid.MustParse("3f6b8f0e-52d1-4c4e-9a57-6d1f0b1c2a90")

// Info contains plugin metadata
type Info struct {
	ID       string // Unique plugin identifier (e.g., "com.example.myplugin")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Plugin category (e.g., "Fx", "Instrument")
}

// UID derives a stable class id from the string ID.
func (i Info) UID() uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(i.ID))
}

// Validate checks that the metadata can identify a plugin.
func (i Info) Validate() error {
	if i.ID == "" {
		return errors.New(errors.KindLoadFailure, "native.Info", "plugin ID is empty")
	}
	if i.Name == "" {
		return errors.New(errors.KindLoadFailure, "native.Info", "plugin %q has no name", i.ID)
	}
	return nil
}

func (i Info) descriptor(path string, latency int) plugin.Descriptor {
	return plugin.Descriptor{
		Name:           i.Name,
		ID:             i.ID,
		Vendor:         i.Vendor,
		Version:        i.Version,
		Path:           path,
		Format:         plugin.FormatNative,
		InitialLatency: latency,
	}
}
