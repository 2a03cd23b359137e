package section

import "fmt"

// Section6 represents the GRIB2 Bit Map Section: the optional per-point
// presence mask. Absent points carry no packed value and decode to the
// missing sentinel.
type Section6 struct {
	Length    uint32
	Indicator uint8  // Bitmap indicator (Table 6.0)
	Bitmap    []bool // true = data present; nil when no bitmap applies
}

// ParseSection6 parses the Bit Map Section:
//
//	Bytes 1-4: Length of section
//	Byte 5:    Section number (6)
//	Byte 6:    Bit-map indicator (0 = bitmap follows, 255 = none)
//	Bytes 7-n: Bit map, one bit per grid point, MSB first
//
// Indicator 254 (previously defined bitmap) is not supported by the data
// sources this decoder serves.
func ParseSection6(data []byte, numGridPoints uint32) (*Section6, error) {
	r, length, err := parseHeader(data, 6, 6)
	if err != nil {
		return nil, err
	}

	indicator, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	var bitmap []bool
	switch indicator {
	case 0:
		packed, _ := r.BytesNoCopy(r.Remaining())
		need := int(numGridPoints+7) / 8
		if len(packed) < need {
			return nil, fmt.Errorf("bitmap too short: need %d bytes for %d points, have %d",
				need, numGridPoints, len(packed))
		}
		bitmap = make([]bool, numGridPoints)
		for i := range bitmap {
			bitmap[i] = packed[i/8]&(1<<(7-i%8)) != 0
		}

	case 255:
		// No bitmap: every grid point is present.

	default:
		return nil, fmt.Errorf("unsupported bitmap indicator %d", indicator)
	}

	return &Section6{Length: length, Indicator: indicator, Bitmap: bitmap}, nil
}

// HasBitmap reports whether a bitmap applies to the data section.
func (s *Section6) HasBitmap() bool {
	return s.Bitmap != nil
}

// CountPresent returns the number of grid points marked present. With no
// bitmap it returns 0; the caller knows every point is present.
func (s *Section6) CountPresent() int {
	n := 0
	for _, present := range s.Bitmap {
		if present {
			n++
		}
	}
	return n
}
