// Package section provides parsers for the eight GRIB2 message sections.
//
// Every parser takes the complete section bytes (including the length and
// section-number prefix for sections 1-7) and validates the declared
// length against the data it was handed, so a corrupt length can never
// walk the parser out of its section.
package section

import (
	"fmt"

	"github.com/driftline/stratus/grib2/internal/wire"
	"github.com/driftline/stratus/grib2/tables"
)

// Section0Length is the fixed size of the indicator section.
const Section0Length = 16

// EndMarker terminates every GRIB2 message.
const EndMarker = "7777"

// Section0 represents the GRIB2 Indicator Section.
//
// The first 16 bytes of every message: the "GRIB" magic, the discipline,
// the edition (always 2 here), and the total message length.
type Section0 struct {
	Discipline    uint8  // Discipline (Table 0.0)
	Edition       uint8  // GRIB edition number (must be 2)
	MessageLength uint64 // Total message length including this section
}

// ParseSection0 parses the Indicator Section:
//
//	Bytes 1-4:   "GRIB"
//	Bytes 5-6:   Reserved
//	Byte 7:      Discipline (Table 0.0)
//	Byte 8:      Edition number
//	Bytes 9-16:  Total length of message (uint64)
func ParseSection0(data []byte) (*Section0, error) {
	if len(data) < Section0Length {
		return nil, fmt.Errorf("section 0 must be %d bytes, got %d", Section0Length, len(data))
	}
	if string(data[0:4]) != "GRIB" {
		return nil, fmt.Errorf("expected GRIB magic number, found %q", string(data[0:4]))
	}

	r := wire.NewReader(data[4:])
	_ = r.Skip(2) // reserved
	discipline, _ := r.Uint8()
	edition, _ := r.Uint8()
	length, err := r.Uint64()
	if err != nil {
		return nil, err
	}

	if edition != 2 {
		return nil, fmt.Errorf("unsupported GRIB edition %d (only edition 2)", edition)
	}
	if length < Section0Length+4 {
		return nil, fmt.Errorf("message length %d too short for indicator and end marker", length)
	}

	return &Section0{
		Discipline:    discipline,
		Edition:       edition,
		MessageLength: length,
	}, nil
}

// DisciplineName returns the human-readable discipline name.
func (s *Section0) DisciplineName() string {
	return tables.GetDisciplineName(int(s.Discipline))
}
