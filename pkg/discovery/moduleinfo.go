package discovery

import (
	"os"
	"path/filepath"

	"github.com/df-mc/jsonc"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/plugin"
)

// audioModuleClass is the class category of VST3 audio processors.
const audioModuleClass = "Audio Module Class"

// ModuleInfo is the subset of a VST3 bundle's moduleinfo.json needed to
// list its plugins.
type ModuleInfo struct {
	Name        string `json:"Name"`
	Version     string `json:"Version"`
	FactoryInfo struct {
		Vendor string `json:"Vendor"`
		URL    string `json:"URL"`
	} `json:"Factory Info"`
	Classes []ModuleClass `json:"Classes"`
}

// ModuleClass is one class exported by a VST3 module.
type ModuleClass struct {
	CID           string   `json:"CID"`
	Category      string   `json:"Category"`
	Name          string   `json:"Name"`
	Vendor        string   `json:"Vendor"`
	Version       string   `json:"Version"`
	SubCategories []string `json:"Sub Categories"`
}

// ReadModuleInfo parses the moduleinfo.json shipped inside a VST3 bundle.
// The file allows comments.
func ReadModuleInfo(bundle string) (*ModuleInfo, error) {
	const op = "discovery.ReadModuleInfo"

	var data []byte
	var err error
	for _, candidate := range []string{
		filepath.Join(bundle, "Contents", "Resources", "moduleinfo.json"),
		filepath.Join(bundle, "Contents", "moduleinfo.json"),
	} {
		data, err = os.ReadFile(candidate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindNotFound, op, err, "moduleinfo.json")
	}

	var info ModuleInfo
	if err := jsonc.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(errors.KindMalformed, op, err, "moduleinfo.json")
	}
	return &info, nil
}

// Descriptors lists the audio processor classes as plugin descriptors.
func (m *ModuleInfo) Descriptors() []plugin.Descriptor {
	var descs []plugin.Descriptor
	for _, c := range m.Classes {
		if c.Category != audioModuleClass {
			continue
		}
		d := plugin.Descriptor{
			Name:    c.Name,
			ID:      c.CID,
			Vendor:  c.Vendor,
			Version: c.Version,
			Format:  plugin.FormatVST3,
		}
		if d.Vendor == "" {
			d.Vendor = m.FactoryInfo.Vendor
		}
		if d.Version == "" {
			d.Version = m.Version
		}
		descs = append(descs, d)
	}
	return descs
}

// probeVST3 reads the bundle metadata. Bundles built before moduleinfo.json
// existed are listed under their file name with an empty id, which loads the
// first class.
func probeVST3(path string) ([]plugin.Descriptor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.KindNotFound, "discovery.Probe", err, path)
	}

	info, err := ReadModuleInfo(path)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			return []plugin.Descriptor{{Name: baseName(path)}}, nil
		}
		return nil, err
	}
	return info.Descriptors(), nil
}
