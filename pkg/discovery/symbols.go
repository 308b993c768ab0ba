package discovery

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/plughost/pkg/errors"
)

// LegacyEntryPoint is the symbol every legacy-format plugin exports.
const LegacyEntryPoint = "VSTPluginMain"

// HasExport reports whether the shared library at path exports symbol. ELF,
// PE and Mach-O images are understood; a macOS bundle directory is resolved
// to its executable first.
func HasExport(path, symbol string) (bool, error) {
	const op = "discovery.HasExport"

	binaryPath, err := resolveBundle(path)
	if err != nil {
		return false, err
	}

	f, err := os.Open(binaryPath)
	if err != nil {
		return false, errors.Wrap(errors.KindNotFound, op, err, binaryPath)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false, errors.Wrap(errors.KindMalformed, op, err, "file too short")
	}

	switch {
	case bytes.Equal(magic[:], []byte(elf.ELFMAG)):
		return elfExports(f, symbol)
	case magic[0] == 'M' && magic[1] == 'Z':
		return peExports(f, symbol)
	case isMachO(magic):
		return machoExports(f, symbol)
	default:
		return false, errors.Malformed(op, "%s is not a shared library", binaryPath)
	}
}

func resolveBundle(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(errors.KindNotFound, "discovery.HasExport", err, path)
	}
	if !info.IsDir() {
		return path, nil
	}

	dir := filepath.Join(path, "Contents", "MacOS")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(errors.KindMalformed, "discovery.HasExport", err, "bundle has no executable")
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", errors.Malformed("discovery.HasExport", "bundle %s has no executable", path)
}

func elfExports(r io.ReaderAt, symbol string) (bool, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return false, errors.Wrap(errors.KindMalformed, "discovery.HasExport", err, "bad ELF image")
	}
	defer f.Close()

	// shared objects usually only carry the dynamic table
	if syms, err := f.DynamicSymbols(); err == nil && hasDefined(syms, symbol) {
		return true, nil
	}
	if syms, err := f.Symbols(); err == nil && hasDefined(syms, symbol) {
		return true, nil
	}
	return false, nil
}

// hasDefined reports whether symbol is defined with global or weak binding.
// Local symbols are not visible to a loader.
func hasDefined(syms []elf.Symbol, symbol string) bool {
	for _, s := range syms {
		if s.Name != symbol || s.Section == elf.SHN_UNDEF {
			continue
		}
		switch elf.ST_BIND(s.Info) {
		case elf.STB_GLOBAL, elf.STB_WEAK:
			return true
		}
	}
	return false
}

func isMachO(magic [4]byte) bool {
	switch binary.LittleEndian.Uint32(magic[:]) {
	case macho.Magic32, macho.Magic64, macho.MagicFat:
		return true
	}
	return binary.BigEndian.Uint32(magic[:]) == macho.MagicFat
}

func machoExports(r io.ReaderAt, symbol string) (bool, error) {
	// C symbols carry a leading underscore
	want := "_" + symbol

	if fat, err := macho.NewFatFile(r); err == nil {
		defer fat.Close()
		for _, arch := range fat.Arches {
			if machoHasSymbol(arch.File, want) {
				return true, nil
			}
		}
		return false, nil
	}

	f, err := macho.NewFile(r)
	if err != nil {
		return false, errors.Wrap(errors.KindMalformed, "discovery.HasExport", err, "bad Mach-O image")
	}
	defer f.Close()
	return machoHasSymbol(f, want), nil
}

func machoHasSymbol(f *macho.File, name string) bool {
	if f.Symtab == nil {
		return false
	}
	for _, s := range f.Symtab.Syms {
		// N_EXT set and defined in a section
		if s.Name == name && s.Type&0x01 != 0 && s.Sect != 0 {
			return true
		}
	}
	return false
}

// peExports walks the export directory, which debug/pe does not decode.
func peExports(r io.ReaderAt, symbol string) (bool, error) {
	const op = "discovery.HasExport"

	f, err := pe.NewFile(r)
	if err != nil {
		return false, errors.Wrap(errors.KindMalformed, op, err, "bad PE image")
	}
	defer f.Close()

	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			return false, nil
		}
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			return false, nil
		}
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	default:
		return false, nil
	}
	if dir.VirtualAddress == 0 || dir.Size < 40 {
		return false, nil
	}

	section, data, err := sectionFor(f, dir.VirtualAddress)
	if err != nil || section == nil {
		return false, err
	}
	rva := func(addr uint32) []byte {
		off := int64(addr) - int64(section.VirtualAddress)
		if off < 0 || off >= int64(len(data)) {
			return nil
		}
		return data[off:]
	}

	exportDir := rva(dir.VirtualAddress)
	if len(exportDir) < 40 {
		return false, errors.Malformed(op, "truncated export directory")
	}
	numberOfNames := binary.LittleEndian.Uint32(exportDir[24:])
	addressOfNames := binary.LittleEndian.Uint32(exportDir[32:])

	names := rva(addressOfNames)
	if uint64(len(names)) < uint64(numberOfNames)*4 {
		return false, errors.Malformed(op, "truncated export name table")
	}
	for i := uint32(0); i < numberOfNames; i++ {
		name := rva(binary.LittleEndian.Uint32(names[i*4:]))
		if name == nil {
			continue
		}
		if end := bytes.IndexByte(name, 0); end >= 0 {
			name = name[:end]
		}
		if string(name) == symbol {
			return true, nil
		}
	}
	return false, nil
}

func sectionFor(f *pe.File, addr uint32) (*pe.Section, []byte, error) {
	for _, s := range f.Sections {
		size := s.VirtualSize
		if size == 0 {
			size = s.Size
		}
		if addr >= s.VirtualAddress && addr < s.VirtualAddress+size {
			data, err := s.Data()
			if err != nil {
				return nil, nil, errors.Wrap(errors.KindMalformed, "discovery.HasExport", err, strings.TrimRight(s.Name, "\x00"))
			}
			return s, data, nil
		}
	}
	return nil, nil, nil
}
