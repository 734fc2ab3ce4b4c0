package iolist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDocument is returned when the uploaded sheet has no header row.
	ErrEmptyDocument = errors.New("iolist: no header row in document")
	// ErrHeaderNotFound is returned when a header id does not exist.
	ErrHeaderNotFound = errors.New("iolist: header not found")
	// ErrItemNotFound is returned when an item id does not exist under the header.
	ErrItemNotFound = errors.New("iolist: item not found")
	// ErrDeviceNotFound is returned when a device id does not exist under the header.
	ErrDeviceNotFound = errors.New("iolist: device not found")
	// ErrDeviceExists is returned when a device name is already registered under the header.
	ErrDeviceExists = errors.New("iolist: device already exists")
	// ErrInvalidProtocol is returned when a protocol is outside the closed set.
	ErrInvalidProtocol = errors.New("iolist: invalid protocol")
)

// SchemaError reports required columns absent from the header row.
// Ingestion is aborted; nothing is persisted.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("iolist: required columns missing: %s", strings.Join(e.Missing, ", "))
}

// RequiredValueError reports an empty mandatory cell in a data row.
// Row is the 1-based index of the record within the sheet's data rows.
type RequiredValueError struct {
	Row    int
	Column string
}

func (e *RequiredValueError) Error() string {
	return fmt.Sprintf("iolist: row %d: required value %q is empty", e.Row, e.Column)
}

// FilenameParseError reports a file name without extractable hull/IMO tokens.
type FilenameParseError struct {
	Name string
}

func (e *FilenameParseError) Error() string {
	return fmt.Sprintf("iolist: cannot extract hull and IMO numbers from file name %q", e.Name)
}
