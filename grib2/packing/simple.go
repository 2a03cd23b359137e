package packing

import (
	"fmt"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// Simple represents Data Representation Template 5.0: simple packing.
// This is the most common template; values are linearly scaled and packed
// as n-bit unsigned integers.
type Simple struct {
	scaling
	FieldType uint8  // Type of original field values (Table 5.1)
	NumValues uint32 // Number of data values to unpack
}

// ParseSimple parses Template 5.0 from the template-specific bytes
// following the Section 5 header:
//
//	Bytes 1-4: Reference value (IEEE 754 float)
//	Bytes 5-6: Binary scale factor (signed)
//	Bytes 7-8: Decimal scale factor (signed)
//	Byte 9:    Bits per value
//	Byte 10:   Type of original field values
func ParseSimple(numValues uint32, data []byte) (*Simple, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("template 5.0 requires at least 10 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)
	ref, _ := r.Float32()
	binScale, _ := r.Int16()
	decScale, _ := r.Int16()
	bits, _ := r.Uint8()
	fieldType, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	return &Simple{
		scaling: scaling{
			Reference:    ref,
			BinaryScale:  binScale,
			DecimalScale: decScale,
			Bits:         bits,
		},
		FieldType: fieldType,
		NumValues: numValues,
	}, nil
}

// TemplateNumber returns 0 for simple packing.
func (t *Simple) TemplateNumber() int { return 0 }

// NumDataValues returns the number of packed data values.
func (t *Simple) NumDataValues() uint32 { return t.NumValues }

// Decode unpacks simple-packed data: X raw n-bit integers mapped through
// value = (R + X*2^E) * 10^-D.
func (t *Simple) Decode(packed []byte, bitmap []bool) ([]float32, error) {
	binScale, decScale := t.factors()

	// Zero bits per value means every point is the reference value. This
	// is legitimate constant data (e.g. a zero precipitation field).
	if t.Bits == 0 {
		n := int(t.NumValues)
		if bitmap != nil {
			n = len(bitmap)
		}
		values := make([]float32, n)
		ref := t.apply(0, binScale, decScale)
		for i := range values {
			values[i] = ref
		}
		if bitmap != nil {
			for i, present := range bitmap {
				if !present {
					values[i] = Missing
				}
			}
		}
		return values, nil
	}

	br := wire.NewBitReader(packed)
	values := make([]float32, t.NumValues)
	for i := range values {
		x, err := br.ReadBits(int(t.Bits))
		if err != nil {
			return nil, fmt.Errorf("reading packed value %d: %w", i, err)
		}
		values[i] = t.apply(int64(x), binScale, decScale)
	}

	if err := checkDegenerate(values, t.apply(0, binScale, decScale), 0, t.Bits); err != nil {
		return nil, err
	}

	if bitmap != nil {
		return expandBitmap(values, bitmap)
	}
	return values, nil
}

// String returns a human-readable description.
func (t *Simple) String() string {
	return fmt.Sprintf("Template 5.0: Simple Packing, %d values, %d bits/value, R=%g E=%d D=%d",
		t.NumValues, t.Bits, t.Reference, t.BinaryScale, t.DecimalScale)
}
