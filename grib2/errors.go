package grib2

import (
	"errors"
	"fmt"

	"github.com/driftline/stratus/grib2/packing"
	"github.com/driftline/stratus/grib2/section"
)

// ParseError represents an error during GRIB2 parsing with context about
// where in the input it occurred.
type ParseError struct {
	Section    int    // Which section (0-7), or -1 for file-level
	Offset     int    // Byte offset where the error occurred
	Message    string // Description
	Underlying error  // Wrapped error, if any
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	where := fmt.Sprintf("at offset %d", e.Offset)
	if e.Section >= 0 {
		where = fmt.Sprintf("section %d at offset %d", e.Section, e.Offset)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// InvalidFormatError indicates data that is structurally not a valid
// GRIB2 message: bad magic, overrunning section lengths, missing end
// marker.
type InvalidFormatError struct {
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid GRIB2 format at offset %d: %s", e.Offset, e.Message)
}

// UnsupportedTemplateError is re-exported from the section package; it is
// the skippable condition message iteration recognizes.
type UnsupportedTemplateError = section.UnsupportedTemplateError

// DegenerateFieldError is re-exported from the packing package.
type DegenerateFieldError = packing.DegenerateFieldError

// IsSkippable reports whether err is a per-message condition that message
// iteration may skip (with a warning) rather than abort on: unsupported
// templates, JPEG 2000 payloads, and degenerate constant fields.
func IsSkippable(err error) bool {
	var ute *UnsupportedTemplateError
	if errors.As(err, &ute) {
		return true
	}
	var dfe *DegenerateFieldError
	if errors.As(err, &dfe) {
		return true
	}
	return errors.Is(err, packing.ErrJpeg2000Unsupported)
}
