package elfio

import "fmt"

// ReadError indicates that the object file could not be opened or read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// FormatError indicates that the file is not a structurally valid ELF object.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s is not a valid ELF object: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// MissingSectionError indicates that a section required by name is absent.
type MissingSectionError struct {
	Path    string
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("%s has no %s section", e.Path, e.Section)
}

// MissingDynamicSectionError indicates that the object has no dynamic entries.
type MissingDynamicSectionError struct {
	Path string
}

func (e *MissingDynamicSectionError) Error() string {
	return fmt.Sprintf("%s has no dynamic section", e.Path)
}

// InvalidStringError indicates that a string referenced by a dynamic entry is
// not a terminated, valid string within the string table.
type InvalidStringError struct {
	Path   string
	Offset uint64
}

func (e *InvalidStringError) Error() string {
	return fmt.Sprintf("%s: invalid string at offset %d in %s", e.Path, e.Offset, dynstrSection)
}
