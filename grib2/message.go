package grib2

import (
	"fmt"
	"time"

	"github.com/driftline/stratus/grib2/gridshape"
	"github.com/driftline/stratus/grib2/packing"
	"github.com/driftline/stratus/grib2/section"
)

// Message represents one decodable field of a GRIB2 message.
//
// A single GRIB2 message may repeat sections 4-7 behind a shared grid
// definition to pack several fields; ParseMessage returns one Message per
// field, with the shared sections aliased across them.
type Message struct {
	Section0 *section.Section0
	Section1 *section.Section1
	Section2 *section.Section2 // optional local use, may be nil
	Section3 *section.Section3
	Section4 *section.Section4
	Section5 *section.Section5
	Section6 *section.Section6
	Section7 *section.Section7
}

// sectionAt reads the (length, number) prefix at offset without parsing.
func sectionAt(data []byte, offset int) (length int, number uint8, err error) {
	if offset+5 > len(data) {
		return 0, 0, fmt.Errorf("truncated section header at offset %d", offset)
	}
	length = int(uint32(data[offset])<<24 | uint32(data[offset+1])<<16 |
		uint32(data[offset+2])<<8 | uint32(data[offset+3]))
	number = data[offset+4]
	if length < 5 || offset+length > len(data) {
		return 0, 0, fmt.Errorf("section %d at offset %d: length %d overruns message", number, offset, length)
	}
	return length, number, nil
}

// ParseMessage parses one complete GRIB2 message (from "GRIB" through
// "7777") and returns a Message per packed field.
//
// Section order is validated: within a field the section numbers must be
// strictly increasing over the repeatable 2-7 tail, and a new repetition
// may restart at section 2, 3 or 4 after a section 7.
func ParseMessage(data []byte) ([]*Message, error) {
	sec0, err := section.ParseSection0(data)
	if err != nil {
		return nil, &ParseError{Section: 0, Offset: 0, Message: "failed to parse Section 0", Underlying: err}
	}
	if uint64(len(data)) != sec0.MessageLength {
		return nil, &InvalidFormatError{
			Offset:  0,
			Message: fmt.Sprintf("message length mismatch: Section 0 says %d bytes, have %d", sec0.MessageLength, len(data)),
		}
	}
	if string(data[len(data)-4:]) != section.EndMarker {
		return nil, &InvalidFormatError{
			Offset:  len(data) - 4,
			Message: fmt.Sprintf("expected end marker %q", section.EndMarker),
		}
	}

	offset := section.Section0Length

	length, number, err := sectionAt(data, offset)
	if err != nil || number != 1 {
		return nil, &ParseError{Section: 1, Offset: offset, Message: "expected Section 1", Underlying: err}
	}
	sec1, err := section.ParseSection1(data[offset : offset+length])
	if err != nil {
		return nil, &ParseError{Section: 1, Offset: offset, Message: "failed to parse Section 1", Underlying: err}
	}
	offset += length

	var messages []*Message
	cur := &Message{Section0: sec0, Section1: sec1}
	lastNumber := uint8(1)

	for offset < len(data)-4 {
		length, number, err = sectionAt(data, offset)
		if err != nil {
			return nil, &ParseError{Section: -1, Offset: offset, Message: "invalid section framing", Underlying: err}
		}

		// Order check: numbers increase within a field; after a complete
		// field (section 7) a repetition restarts at 2, 3 or 4.
		if lastNumber == 7 {
			if number < 2 || number > 4 {
				return nil, &ParseError{
					Section: int(number), Offset: offset,
					Message: fmt.Sprintf("section %d cannot follow a completed field", number),
				}
			}
		} else if number <= lastNumber || number > 7 {
			return nil, &ParseError{
				Section: int(number), Offset: offset,
				Message: fmt.Sprintf("section %d out of order after section %d", number, lastNumber),
			}
		}

		body := data[offset : offset+length]
		switch number {
		case 2:
			cur.Section2, err = section.ParseSection2(body)
		case 3:
			cur.Section3, err = section.ParseSection3(body)
		case 4:
			cur.Section4, err = section.ParseSection4(body)
		case 5:
			cur.Section5, err = section.ParseSection5(body)
		case 6:
			var points uint32
			if cur.Section3 != nil {
				points = cur.Section3.NumDataPoints
			}
			cur.Section6, err = section.ParseSection6(body, points)
		case 7:
			cur.Section7, err = section.ParseSection7(body)
		}
		if err != nil {
			return nil, &ParseError{
				Section: int(number), Offset: offset,
				Message: fmt.Sprintf("failed to parse Section %d", number), Underlying: err,
			}
		}

		if number == 7 {
			if cur.Section3 == nil || cur.Section4 == nil || cur.Section5 == nil {
				return nil, &ParseError{
					Section: 7, Offset: offset,
					Message: "field completed without grid, product, or representation sections",
				}
			}
			messages = append(messages, cur)
			// The next field shares everything parsed so far; repeated
			// sections overwrite their slot on the copy.
			next := *cur
			cur = &next
		}

		lastNumber = number
		offset += length
	}

	if len(messages) == 0 {
		return nil, &ParseError{Section: -1, Offset: offset, Message: "message contains no complete field"}
	}
	return messages, nil
}

// Field is a decoded grid: geometry plus values in canonical order
// (row-major, northwest origin) and a per-point missing mask.
type Field struct {
	Geometry gridshape.Geometry
	Values   []float32
	Missing  []bool

	// Metadata extracted from sections 0, 1, and 4.
	Parameter     ParameterID
	LevelType     uint8
	LevelValue    float64
	ReferenceTime time.Time
	Forecast      time.Duration
	Center        string
}

// Decode unpacks this message's data section and canonicalizes it.
//
// The unpacked value count must equal the grid point count exactly
// (after bitmap expansion); anything else is a structural error.
func (m *Message) Decode() (*Field, error) {
	if m.Section5 == nil || m.Section5.Representation == nil {
		return nil, fmt.Errorf("message has no data representation (Section 5)")
	}
	if m.Section7 == nil {
		return nil, fmt.Errorf("message has no data section (Section 7)")
	}

	var bitmap []bool
	if m.Section6 != nil && m.Section6.HasBitmap() {
		bitmap = m.Section6.Bitmap
	}

	values, err := m.Section5.Representation.Decode(m.Section7.Data, bitmap)
	if err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}

	grid := m.Section3.Grid
	if len(values) != grid.NumPoints() {
		return nil, &InvalidFormatError{
			Message: fmt.Sprintf("unpacked %d values for a %d-point grid", len(values), grid.NumPoints()),
		}
	}

	ni, nj := grid.Dims()
	mode := grid.ScanMode()
	values = gridshape.Canonicalize(values, ni, nj, mode)

	missing := make([]bool, len(values))
	for i, v := range values {
		if packing.IsMissing(v) {
			missing[i] = true
		}
	}

	f := &Field{
		Geometry: grid,
		Values:   values,
		Missing:  missing,
	}
	m.populate(f)
	return f, nil
}

// populate fills Field metadata from the parsed sections.
func (m *Message) populate(f *Field) {
	if m.Section0 != nil {
		f.Parameter.Discipline = m.Section0.Discipline
	}
	if m.Section1 != nil {
		f.ReferenceTime = m.Section1.ReferenceTime
		f.Center = m.Section1.CenterName()
	}
	if m.Section4 != nil && m.Section4.Product != nil {
		p := m.Section4.Product
		f.Parameter.Category = p.ParameterCategory()
		f.Parameter.Number = p.ParameterNumber()
		f.LevelType, f.LevelValue = p.Level()
		if d, ok := p.ForecastDuration(); ok {
			f.Forecast = d
		}
	}
}

// ParameterID returns the message's parameter identifier without decoding.
func (m *Message) ParameterID() ParameterID {
	var id ParameterID
	if m.Section0 != nil {
		id.Discipline = m.Section0.Discipline
	}
	if m.Section4 != nil && m.Section4.Product != nil {
		id.Category = m.Section4.Product.ParameterCategory()
		id.Number = m.Section4.Product.ParameterNumber()
	}
	return id
}

// String returns a human-readable summary of the message.
func (m *Message) String() string {
	grid, prod := "unknown", "unknown"
	if m.Section3 != nil {
		grid = m.Section3.GridDescription()
	}
	if m.Section4 != nil && m.Section4.Product != nil {
		prod = m.Section4.Product.String()
	}
	return fmt.Sprintf("GRIB2 message: %s; %s", grid, prod)
}
