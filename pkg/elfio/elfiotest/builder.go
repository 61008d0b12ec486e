// Package elfiotest builds minimal ELF objects for tests. The emitted files
// carry only what the inspector consumes: an ELF header, a .dynstr string
// table and a .dynamic section, always little-endian.
package elfiotest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
)

// Object describes the fixture to emit.
type Object struct {
	// Word32 emits an ELF32 object instead of the default ELF64.
	Word32 bool
	// Needed libraries, one DT_NEEDED entry each, in order.
	Needed []string
	// RPath and RunPath are colon-separated directory lists emitted as
	// DT_RPATH and DT_RUNPATH entries, in that order, after the DT_NEEDED
	// entries.
	RPath   string
	RunPath string
	// RawNeeded entries are appended verbatim to the end of the string table
	// (no terminator added) and referenced by additional DT_NEEDED entries.
	// Used to produce unterminated or invalid strings.
	RawNeeded [][]byte
	// OmitDynstr and OmitDynamic drop the respective section entirely.
	OmitDynstr  bool
	OmitDynamic bool
}

type dynEntry struct {
	tag elf.DynTag
	val uint64
}

type section struct {
	name    string
	typ     elf.SectionType
	data    []byte
	link    uint32
	entsize uint64
}

// Build returns the fixture as raw bytes.
func Build(o Object) []byte {
	strtab := []byte{0}
	offsets := map[string]uint64{}
	intern := func(s string) uint64 {
		if off, exists := offsets[s]; exists {
			return off
		}
		off := uint64(len(strtab))
		offsets[s] = off
		strtab = append(strtab, s...)
		strtab = append(strtab, 0)
		return off
	}

	var entries []dynEntry
	for _, lib := range o.Needed {
		entries = append(entries, dynEntry{elf.DT_NEEDED, intern(lib)})
	}
	if o.RPath != "" {
		entries = append(entries, dynEntry{elf.DT_RPATH, intern(o.RPath)})
	}
	if o.RunPath != "" {
		entries = append(entries, dynEntry{elf.DT_RUNPATH, intern(o.RunPath)})
	}
	for _, raw := range o.RawNeeded {
		entries = append(entries, dynEntry{elf.DT_NEEDED, uint64(len(strtab))})
		strtab = append(strtab, raw...)
	}
	entries = append(entries, dynEntry{elf.DT_NULL, 0})

	dynSize := 16
	if o.Word32 {
		dynSize = 8
	}
	dynamic := make([]byte, 0, len(entries)*dynSize)
	for _, e := range entries {
		if o.Word32 {
			dynamic = binary.LittleEndian.AppendUint32(dynamic, uint32(e.tag))
			dynamic = binary.LittleEndian.AppendUint32(dynamic, uint32(e.val))
		} else {
			dynamic = binary.LittleEndian.AppendUint64(dynamic, uint64(e.tag))
			dynamic = binary.LittleEndian.AppendUint64(dynamic, e.val)
		}
	}

	var sections []section
	dynstrIndex := uint32(0)
	if !o.OmitDynstr {
		dynstrIndex = uint32(len(sections) + 1)
		sections = append(sections, section{name: ".dynstr", typ: elf.SHT_STRTAB, data: strtab})
	}
	if !o.OmitDynamic {
		sections = append(sections, section{
			name:    ".dynamic",
			typ:     elf.SHT_DYNAMIC,
			data:    dynamic,
			link:    dynstrIndex,
			entsize: uint64(dynSize),
		})
	}

	shstrtab := []byte{0}
	names := make([]uint32, len(sections)+1)
	for i, s := range sections {
		names[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, s.name...)
		shstrtab = append(shstrtab, 0)
	}
	names[len(sections)] = uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".shstrtab"...)
	shstrtab = append(shstrtab, 0)
	sections = append(sections, section{name: ".shstrtab", typ: elf.SHT_STRTAB, data: shstrtab})

	if o.Word32 {
		return assemble32(sections, names)
	}
	return assemble64(sections, names)
}

// WriteFile writes the fixture to path.
func WriteFile(path string, o Object) error {
	return os.WriteFile(path, Build(o), 0755)
}

func assemble64(sections []section, names []uint32) []byte {
	const ehSize, shSize = 64, 64

	offsets := make([]uint64, len(sections))
	off := uint64(ehSize)
	for i, s := range sections {
		offsets[i] = off
		off += uint64(len(s.data))
	}
	shOff := off

	w := &leWriter{}
	w.ident(elf.ELFCLASS64)
	w.u16(uint16(elf.ET_DYN))
	w.u16(uint16(elf.EM_X86_64))
	w.u32(1)                        // e_version
	w.u64(0)                        // e_entry
	w.u64(0)                        // e_phoff
	w.u64(shOff)                    // e_shoff
	w.u32(0)                        // e_flags
	w.u16(ehSize)                   // e_ehsize
	w.u16(0)                        // e_phentsize
	w.u16(0)                        // e_phnum
	w.u16(shSize)                   // e_shentsize
	w.u16(uint16(len(sections) + 1)) // e_shnum
	w.u16(uint16(len(sections)))     // e_shstrndx

	for _, s := range sections {
		w.raw(s.data)
	}

	w.raw(make([]byte, shSize)) // null section header
	for i, s := range sections {
		w.u32(names[i])
		w.u32(uint32(s.typ))
		w.u64(0) // sh_flags
		w.u64(0) // sh_addr
		w.u64(offsets[i])
		w.u64(uint64(len(s.data)))
		w.u32(s.link)
		w.u32(0) // sh_info
		w.u64(1) // sh_addralign
		w.u64(s.entsize)
	}
	return w.buf.Bytes()
}

func assemble32(sections []section, names []uint32) []byte {
	const ehSize, shSize = 52, 40

	offsets := make([]uint32, len(sections))
	off := uint32(ehSize)
	for i, s := range sections {
		offsets[i] = off
		off += uint32(len(s.data))
	}
	shOff := off

	w := &leWriter{}
	w.ident(elf.ELFCLASS32)
	w.u16(uint16(elf.ET_DYN))
	w.u16(uint16(elf.EM_386))
	w.u32(1)                        // e_version
	w.u32(0)                        // e_entry
	w.u32(0)                        // e_phoff
	w.u32(shOff)                    // e_shoff
	w.u32(0)                        // e_flags
	w.u16(ehSize)                   // e_ehsize
	w.u16(0)                        // e_phentsize
	w.u16(0)                        // e_phnum
	w.u16(shSize)                   // e_shentsize
	w.u16(uint16(len(sections) + 1)) // e_shnum
	w.u16(uint16(len(sections)))     // e_shstrndx

	for _, s := range sections {
		w.raw(s.data)
	}

	w.raw(make([]byte, shSize)) // null section header
	for i, s := range sections {
		w.u32(names[i])
		w.u32(uint32(s.typ))
		w.u32(0) // sh_flags
		w.u32(0) // sh_addr
		w.u32(offsets[i])
		w.u32(uint32(len(s.data)))
		w.u32(s.link)
		w.u32(0) // sh_info
		w.u32(1) // sh_addralign
		w.u32(uint32(s.entsize))
	}
	return w.buf.Bytes()
}

type leWriter struct {
	buf bytes.Buffer
}

func (w *leWriter) ident(class elf.Class) {
	ident := make([]byte, elf.EI_NIDENT)
	copy(ident, elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	w.raw(ident)
}

func (w *leWriter) u16(v uint16) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *leWriter) u32(v uint32) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *leWriter) u64(v uint64) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *leWriter) raw(b []byte) { w.buf.Write(b) }
