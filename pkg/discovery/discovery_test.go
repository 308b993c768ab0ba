package discovery

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/plugin"
)

const moduleInfo = `{
	// written by the SDK's moduleinfotool
	"Name": "Reverb",
	"Version": "2.1.0",
	"Factory Info": {
		"Vendor": "Example Audio",
		"URL": "www.example.com"
	},
	"Classes": [
		{
			"CID": "5A3B1C2D4E5F60718293A4B5C6D7E8F9",
			"Category": "Audio Module Class",
			"Name": "Reverb",
			"Vendor": "",
			"Version": "2.1.0",
			"Sub Categories": ["Fx", "Reverb"]
		},
		{
			"CID": "0A3B1C2D4E5F60718293A4B5C6D7E8F9",
			"Category": "Component Controller Class",
			"Name": "Reverb Controller"
		}
	]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func pluginTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Reverb.vst3", "Contents", "Resources", "moduleinfo.json"), moduleInfo)
	writeFile(t, filepath.Join(dir, "Old.vst3", "Contents", "x86_64-linux", "Old.so"), "not an image")
	writeFile(t, filepath.Join(dir, "clap", "eq.clap"), "")
	writeFile(t, filepath.Join(dir, "vst", "broken.so"), "not an image")
	writeFile(t, filepath.Join(dir, "README.md"), "# plugins")
	return dir
}

func TestFormatChecks(t *testing.T) {
	dir := pluginTree(t)
	broken := filepath.Join(dir, "vst", "broken.so")

	if !IsVST2(broken, false) {
		t.Error("Expected a .so file to pass the extension check")
	}
	if IsVST2(broken, true) {
		t.Error("Expected a file without VSTPluginMain to fail the contents check")
	}
	if IsVST2(filepath.Join(dir, "missing.so"), false) {
		t.Error("Expected a missing file to be rejected")
	}
	if !IsVST3(filepath.Join(dir, "Reverb.vst3")) || IsVST3(broken) {
		t.Error("IsVST3 gave the wrong answer")
	}
	if !IsCLAP(filepath.Join(dir, "clap", "eq.clap")) || IsCLAP(broken) {
		t.Error("IsCLAP gave the wrong answer")
	}
}

func TestProbeVST3ModuleInfo(t *testing.T) {
	dir := pluginTree(t)
	path := filepath.Join(dir, "Reverb.vst3")

	descs, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("Expected only the audio module class, got %d descriptors", len(descs))
	}
	d := descs[0]
	if d.Name != "Reverb" || d.ID != "5A3B1C2D4E5F60718293A4B5C6D7E8F9" {
		t.Errorf("Unexpected descriptor %+v", d)
	}
	if d.Vendor != "Example Audio" {
		t.Errorf("Expected vendor to fall back to the factory, got %q", d.Vendor)
	}
	if d.Format != plugin.FormatVST3 || d.Path != path {
		t.Errorf("Expected format and path to be set, got %v %q", d.Format, d.Path)
	}
}

func TestProbeVST3WithoutModuleInfo(t *testing.T) {
	dir := pluginTree(t)

	descs, err := Probe(filepath.Join(dir, "Old.vst3"))
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if len(descs) != 1 || descs[0].Name != "Old" || descs[0].ID != "" {
		t.Errorf("Expected a single unnamed class, got %+v", descs)
	}
}

func TestProbeErrors(t *testing.T) {
	dir := pluginTree(t)

	_, err := Probe(filepath.Join(dir, "README.md"))
	if !stderrors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Expected unsupported error, got %v", err)
	}

	_, err = Probe(filepath.Join(dir, "vst", "broken.so"))
	if !stderrors.Is(err, errors.ErrMalformed) {
		t.Errorf("Expected malformed error, got %v", err)
	}

	writeFile(t, filepath.Join(dir, "Bad.vst3", "Contents", "moduleinfo.json"), "{ not json")
	_, err = Probe(filepath.Join(dir, "Bad.vst3"))
	if !stderrors.Is(err, errors.ErrMalformed) {
		t.Errorf("Expected malformed error for bad metadata, got %v", err)
	}
}

func TestScan(t *testing.T) {
	dir := pluginTree(t)

	descs := Scan(dir, filepath.Join(dir, "does-not-exist"))

	var names []string
	for _, d := range descs {
		names = append(names, d.Name)
	}
	sort.Strings(names)

	want := []string{"Old", "Reverb", "eq"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
			break
		}
	}
}

func TestRegisterProber(t *testing.T) {
	RegisterProber(plugin.FormatNative, func(path string) ([]plugin.Descriptor, error) {
		return []plugin.Descriptor{{Name: "Gain", ID: path}}, nil
	})
	defer RegisterProber(plugin.FormatNative, nil)

	descs, err := Probe("native:gain")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if len(descs) != 1 || descs[0].Format != plugin.FormatNative || descs[0].Path != "native:gain" {
		t.Errorf("Unexpected descriptors %+v", descs)
	}
}

type elfSymbol struct {
	name    string
	bind    elf.SymBind
	defined bool
}

// writeELF writes a minimal 64-bit shared object whose symbol table, static
// or dynamic, holds syms.
func writeELF(t *testing.T, path string, dynamic bool, syms ...elfSymbol) {
	t.Helper()

	const (
		textSize  = 16
		headerLen = 64
	)
	strtab := []byte{0}
	table := []elf.Sym64{{}}
	for _, s := range syms {
		sym := elf.Sym64{
			Name: uint32(len(strtab)),
			Info: elf.ST_INFO(s.bind, elf.STT_FUNC),
		}
		if s.defined {
			sym.Shndx = 1
		}
		strtab = append(append(strtab, s.name...), 0)
		table = append(table, sym)
	}
	shstrtab := []byte("\x00.text\x00.symtab\x00.strtab\x00.shstrtab\x00")

	var symtab bytes.Buffer
	if err := binary.Write(&symtab, binary.LittleEndian, table); err != nil {
		t.Fatalf("encode symbols: %v", err)
	}

	textOff := uint64(headerLen)
	symOff := textOff + textSize
	strOff := symOff + uint64(symtab.Len())
	shstrOff := strOff + uint64(len(strtab))
	shOff := shstrOff + uint64(len(shstrtab))

	symType := elf.SHT_SYMTAB
	if dynamic {
		symType = elf.SHT_DYNSYM
	}
	sections := []elf.Section64{
		{},
		{Name: 1, Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR), Off: textOff, Size: textSize},
		{Name: 7, Type: uint32(symType), Off: symOff, Size: uint64(symtab.Len()), Link: 3, Info: 1, Entsize: elf.Sym64Size},
		{Name: 15, Type: uint32(elf.SHT_STRTAB), Off: strOff, Size: uint64(len(strtab))},
		{Name: 23, Type: uint32(elf.SHT_STRTAB), Off: shstrOff, Size: uint64(len(shstrtab))},
	}

	header := elf.Header64{
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shOff,
		Ehsize:    headerLen,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  4,
	}
	copy(header.Ident[:], elf.ELFMAG)
	header.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	header.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	header.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	for _, part := range []any{header, make([]byte, textSize), symtab.Bytes(), strtab, shstrtab, sections} {
		if err := binary.Write(&out, binary.LittleEndian, part); err != nil {
			t.Fatalf("encode image: %v", err)
		}
	}
	writeFile(t, path, out.String())
}

func TestHasExport(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		dynamic bool
		syms    []elfSymbol
		want    bool
	}{
		{"global in symtab", false, []elfSymbol{{"helper", elf.STB_LOCAL, true}, {LegacyEntryPoint, elf.STB_GLOBAL, true}}, true},
		{"global in dynsym", true, []elfSymbol{{LegacyEntryPoint, elf.STB_GLOBAL, true}}, true},
		{"weak", true, []elfSymbol{{LegacyEntryPoint, elf.STB_WEAK, true}}, true},
		{"local only", false, []elfSymbol{{LegacyEntryPoint, elf.STB_LOCAL, true}}, false},
		{"undefined import", true, []elfSymbol{{LegacyEntryPoint, elf.STB_GLOBAL, false}}, false},
		{"other symbols", true, []elfSymbol{{"main", elf.STB_GLOBAL, true}}, false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("plugin%d.so", i))
			writeELF(t, path, tt.dynamic, tt.syms...)

			ok, err := HasExport(path, LegacyEntryPoint)
			if err != nil {
				t.Fatalf("HasExport failed: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, ok)
			}
		})
	}
}

func TestHasExportErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := HasExport(filepath.Join(dir, "missing.so"), LegacyEntryPoint)
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}

	text := filepath.Join(dir, "notes.so")
	writeFile(t, text, "just some text")
	_, err = HasExport(text, LegacyEntryPoint)
	if !stderrors.Is(err, errors.ErrMalformed) {
		t.Errorf("Expected malformed error, got %v", err)
	}
}
