package elfio

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

const dynstrSection = ".dynstr"

// WordSize classifies an object as targeting a 32-bit or 64-bit environment.
type WordSize uint8

const (
	Word32 WordSize = iota + 1
	Word64
)

func (w WordSize) String() string {
	switch w {
	case Word32:
		return "32-bit"
	case Word64:
		return "64-bit"
	}
	return "unknown"
}

// Metadata is the parse result for one object file. It holds everything the
// resolver needs without keeping the file open: the word size, the raw string
// table referenced by the dynamic entries and the raw dynamic entries
// themselves. It is immutable after Parse.
type Metadata struct {
	path    string
	word    WordSize
	order   binary.ByteOrder
	dynstr  []byte
	dynamic []byte
}

// Parse reads and structurally validates the object file at path. It fails
// with ReadError if the file cannot be read, FormatError if it is not a valid
// ELF object, MissingSectionError if the .dynstr section is absent and
// MissingDynamicSectionError if there are no dynamic entries.
func Parse(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	word, err := wordSize(f.Class)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	dynstr := f.Section(dynstrSection)
	if dynstr == nil {
		return nil, &MissingSectionError{Path: path, Section: dynstrSection}
	}
	dynstrData, err := dynstr.Data()
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	dynamic := f.SectionByType(elf.SHT_DYNAMIC)
	if dynamic == nil {
		return nil, &MissingDynamicSectionError{Path: path}
	}
	dynamicData, err := dynamic.Data()
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	return &Metadata{
		path:    path,
		word:    word,
		order:   f.ByteOrder,
		dynstr:  dynstrData,
		dynamic: dynamicData,
	}, nil
}

// WordSize returns the header class of the parsed object.
func (m *Metadata) WordSize() WordSize {
	return m.word
}

// Path returns the path the metadata was parsed from.
func (m *Metadata) Path() string {
	return m.path
}

// DependenciesAndHints scans the dynamic entries in file order. DT_NEEDED
// entries contribute dependency names, DT_RPATH and DT_RUNPATH entries
// contribute colon-separated search directories. Both hint kinds are folded
// into a single list in the order they appear. Any referenced string which is
// unterminated, out of range or not valid UTF-8 fails the whole scan with
// InvalidStringError.
func (m *Metadata) DependenciesAndHints() (needed []string, hints []string, err error) {
	entrySize := 16
	if m.word == Word32 {
		entrySize = 8
	}

	for off := 0; off+entrySize <= len(m.dynamic); off += entrySize {
		var tag elf.DynTag
		var val uint64
		if m.word == Word32 {
			tag = elf.DynTag(m.order.Uint32(m.dynamic[off:]))
			val = uint64(m.order.Uint32(m.dynamic[off+4:]))
		} else {
			tag = elf.DynTag(m.order.Uint64(m.dynamic[off:]))
			val = m.order.Uint64(m.dynamic[off+8:])
		}

		switch tag {
		case elf.DT_NULL:
			return needed, hints, nil
		case elf.DT_NEEDED:
			name, err := m.str(val)
			if err != nil {
				return nil, nil, err
			}
			needed = append(needed, name)
		case elf.DT_RPATH, elf.DT_RUNPATH:
			dirs, err := m.str(val)
			if err != nil {
				return nil, nil, err
			}
			hints = append(hints, strings.Split(dirs, ":")...)
		}
	}
	return needed, hints, nil
}

// str reads the null-terminated string at the given string table offset.
func (m *Metadata) str(offset uint64) (string, error) {
	if offset >= uint64(len(m.dynstr)) {
		return "", &InvalidStringError{Path: m.path, Offset: offset}
	}
	raw := m.dynstr[offset:]
	end := bytes.IndexByte(raw, 0)
	if end < 0 {
		return "", &InvalidStringError{Path: m.path, Offset: offset}
	}
	if !utf8.Valid(raw[:end]) {
		return "", &InvalidStringError{Path: m.path, Offset: offset}
	}
	return string(raw[:end]), nil
}

// ClassifyFile reads only the identification bytes of the object at path and
// returns its word size. It is cheaper than Parse and is used to check
// architecture compatibility of resolution candidates.
func ClassifyFile(path string) (WordSize, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	ident := make([]byte, elf.EI_NIDENT)
	if _, err := f.ReadAt(ident, 0); err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	if string(ident[:4]) != elf.ELFMAG {
		return 0, &FormatError{Path: path, Err: fmt.Errorf("bad magic number %v", ident[:4])}
	}
	word, err := wordSize(elf.Class(ident[elf.EI_CLASS]))
	if err != nil {
		return 0, &FormatError{Path: path, Err: err}
	}
	return word, nil
}

func wordSize(class elf.Class) (WordSize, error) {
	switch class {
	case elf.ELFCLASS32:
		return Word32, nil
	case elf.ELFCLASS64:
		return Word64, nil
	}
	return 0, fmt.Errorf("unknown ELF class %v", class)
}
