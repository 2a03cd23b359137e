package section

import (
	"fmt"

	"github.com/driftline/stratus/grib2/packing"
)

// Section5 represents the GRIB2 Data Representation Section.
type Section5 struct {
	Length         uint32
	NumDataValues  uint32 // Number of packed data values
	TemplateNumber uint16 // Data representation template number (Table 5.0)
	Representation packing.Representation
}

// ParseSection5 parses the Data Representation Section:
//
//	Bytes 1-4:  Length of section
//	Byte 5:     Section number (5)
//	Bytes 6-9:  Number of data values
//	Bytes 10-11: Data representation template number
//	Bytes 12-n: Template-specific representation
//
// Supported templates: 5.0 (simple), 5.2 (complex), 5.3 (complex with
// spatial differencing), 5.40 (JPEG 2000, parse-only), 5.41 (PNG).
func ParseSection5(data []byte) (*Section5, error) {
	r, length, err := parseHeader(data, 5, 11)
	if err != nil {
		return nil, err
	}

	numValues, _ := r.Uint32()
	templateNumber, _ := r.Uint16()
	templateData, err := r.BytesNoCopy(r.Remaining())
	if err != nil {
		return nil, err
	}

	var rep packing.Representation
	switch templateNumber {
	case 0:
		rep, err = packing.ParseSimple(numValues, templateData)
	case 2:
		rep, err = packing.ParseComplexPacked(numValues, templateData)
	case 3:
		rep, err = packing.ParseSpatialDiff(numValues, templateData)
	case 40:
		rep, err = packing.ParseJpeg2000Packed(numValues, templateData)
	case 41:
		rep, err = packing.ParsePngPacked(numValues, templateData)
	default:
		return nil, &UnsupportedTemplateError{Section: 5, Template: int(templateNumber)}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing data representation template 5.%d: %w", templateNumber, err)
	}

	return &Section5{
		Length:         length,
		NumDataValues:  numValues,
		TemplateNumber: templateNumber,
		Representation: rep,
	}, nil
}

// RepresentationDescription returns a human-readable description.
func (s *Section5) RepresentationDescription() string {
	if s.Representation != nil {
		return s.Representation.String()
	}
	return fmt.Sprintf("Unknown data representation template %d", s.TemplateNumber)
}
