package section

import (
	"fmt"

	"github.com/driftline/stratus/grib2/gridshape"
)

// Section3 represents the GRIB2 Grid Definition Section.
type Section3 struct {
	Length         uint32
	Source         uint8  // Source of grid definition (Table 3.0)
	NumDataPoints  uint32 // Number of data points
	TemplateNumber uint16 // Grid definition template number (Table 3.1)
	Grid           gridshape.Geometry
}

// ParseSection3 parses the Grid Definition Section and dispatches on the
// template number:
//
//	Bytes 1-4:   Length of section
//	Byte 5:      Section number (3)
//	Byte 6:      Source of grid definition
//	Bytes 7-10:  Number of data points
//	Byte 11:     Number of octets for the optional points list
//	Byte 12:     Interpretation of the optional list
//	Bytes 13-14: Grid definition template number
//	Bytes 15-n:  Template-specific grid definition
//
// Grid dimensions live at template-specific offsets inside the template
// bytes; each gridshape parser owns its own layout. Supported templates:
// 0 (lat/lon), 10 (Mercator), 20 (polar stereographic), 30 (Lambert
// conformal), 40 (Gaussian), 90 (geostationary).
func ParseSection3(data []byte) (*Section3, error) {
	r, length, err := parseHeader(data, 3, 14)
	if err != nil {
		return nil, err
	}

	source, _ := r.Uint8()
	numDataPoints, _ := r.Uint32()
	optOctets, _ := r.Uint8()
	_, _ = r.Uint8() // interpretation of optional list
	templateNumber, _ := r.Uint16()
	templateData, err := r.BytesNoCopy(r.Remaining())
	if err != nil {
		return nil, err
	}

	if optOctets != 0 {
		return nil, fmt.Errorf("section 3: quasi-regular grids (optional points list) not supported")
	}

	var grid gridshape.Geometry
	switch templateNumber {
	case 0:
		grid, err = gridshape.ParseLatLonGrid(templateData)
	case 10:
		grid, err = gridshape.ParseMercatorGrid(templateData)
	case 20:
		grid, err = gridshape.ParsePolarStereographicGrid(templateData)
	case 30:
		grid, err = gridshape.ParseLambertConformalGrid(templateData)
	case 40:
		grid, err = gridshape.ParseGaussianGrid(templateData)
	case 90:
		grid, err = gridshape.ParseGeostationaryGrid(templateData)
	default:
		return nil, &UnsupportedTemplateError{Section: 3, Template: int(templateNumber)}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing grid template 3.%d: %w", templateNumber, err)
	}

	if grid.NumPoints() != int(numDataPoints) {
		return nil, fmt.Errorf("section 3: template dimensions yield %d points, section declares %d",
			grid.NumPoints(), numDataPoints)
	}

	return &Section3{
		Length:         length,
		Source:         source,
		NumDataPoints:  numDataPoints,
		TemplateNumber: templateNumber,
		Grid:           grid,
	}, nil
}

// GridDescription returns a human-readable description of the grid.
func (s *Section3) GridDescription() string {
	if s.Grid != nil {
		return s.Grid.String()
	}
	return fmt.Sprintf("Unknown grid template %d", s.TemplateNumber)
}
