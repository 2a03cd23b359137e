// Package packing provides data representation types and decoders for
// GRIB2 Section 5/7: simple packing, complex packing with and without
// spatial differencing, and PNG- and JPEG2000-packed payloads.
package packing

import (
	"math"
)

// Missing is the sentinel written for grid points that a bitmap marks
// absent. It matches the value wgrib2 and the NCEP decoders use, so
// downstream range checks can share a single definition.
const Missing float32 = 9.999e20

// IsMissing reports whether v is the missing-data sentinel.
func IsMissing(v float32) bool {
	return v > 9e20
}

// Representation represents a GRIB2 data representation template
// (Table 5.0). The set of templates is closed: adding one is a code
// change here, not a plugin.
type Representation interface {
	// TemplateNumber returns the data representation template number.
	TemplateNumber() int

	// NumDataValues returns the number of packed data values.
	NumDataValues() uint32

	// Decode unpacks the Section 7 payload and applies scaling. When
	// bitmap is non-nil it has one entry per grid point and the output
	// is expanded to its length, with absent points set to Missing.
	// The output always has exactly one value per grid point.
	Decode(packed []byte, bitmap []bool) ([]float32, error)

	// String returns a human-readable description.
	String() string
}

// scaling holds the common prefix of every data representation template:
//
//	Bytes 1-4: Reference value R (IEEE 754 float)
//	Bytes 5-6: Binary scale factor E (signed, sign-magnitude)
//	Bytes 7-8: Decimal scale factor D (signed, sign-magnitude)
//	Byte 9:    Bits per value
//
// The decoding formula is value = (R + X*2^E) * 10^-D.
type scaling struct {
	Reference    float32
	BinaryScale  int16
	DecimalScale int16
	Bits         uint8
}

// factors returns the precomputed 2^E and 10^-D multipliers.
func (s scaling) factors() (binScale, decScale float64) {
	return math.Pow(2, float64(s.BinaryScale)), math.Pow(10, -float64(s.DecimalScale))
}

// apply decodes one packed integer.
func (s scaling) apply(x int64, binScale, decScale float64) float32 {
	return float32((float64(s.Reference) + float64(x)*binScale) * decScale)
}

// expandBitmap distributes packed values over the bitmap, writing Missing
// at absent points. values must contain exactly one entry per set bit.
func expandBitmap(values []float32, bitmap []bool) ([]float32, error) {
	out := make([]float32, len(bitmap))
	idx := 0
	for i, present := range bitmap {
		if present {
			if idx >= len(values) {
				return nil, errBitmapShort(len(values))
			}
			out[i] = values[idx]
			idx++
		} else {
			out[i] = Missing
		}
	}
	if idx != len(values) {
		return nil, errBitmapExtra(len(values) - idx)
	}
	return out, nil
}
