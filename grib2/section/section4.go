package section

import (
	"fmt"

	"github.com/driftline/stratus/grib2/product"
)

// Section4 represents the GRIB2 Product Definition Section.
type Section4 struct {
	Length         uint32
	NumCoordValues uint16 // Number of coordinate values after the template
	TemplateNumber uint16 // Product definition template number (Table 4.0)
	Product        product.Product
}

// ParseSection4 parses the Product Definition Section:
//
//	Bytes 1-4: Length of section
//	Byte 5:    Section number (4)
//	Bytes 6-7: Number of coordinate values after template
//	Bytes 8-9: Product definition template number
//	Bytes 10-n: Template-specific product definition
//
// Supported templates: 4.0 (instantaneous analysis/forecast) and 4.8
// (statistically processed over a time interval).
func ParseSection4(data []byte) (*Section4, error) {
	r, length, err := parseHeader(data, 4, 9)
	if err != nil {
		return nil, err
	}

	numCoord, _ := r.Uint16()
	templateNumber, _ := r.Uint16()
	templateData, err := r.BytesNoCopy(r.Remaining())
	if err != nil {
		return nil, err
	}

	var prod product.Product
	switch templateNumber {
	case 0:
		prod, err = product.ParseTemplate40(templateData)
	case 8:
		prod, err = product.ParseTemplate48(templateData)
	default:
		return nil, &UnsupportedTemplateError{Section: 4, Template: int(templateNumber)}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing product template 4.%d: %w", templateNumber, err)
	}

	return &Section4{
		Length:         length,
		NumCoordValues: numCoord,
		TemplateNumber: templateNumber,
		Product:        prod,
	}, nil
}
