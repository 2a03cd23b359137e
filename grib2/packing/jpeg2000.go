package packing

import (
	"fmt"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// Jpeg2000Packed represents Data Representation Template 5.40: grid-point
// data packed as a JPEG 2000 codestream.
//
// The template is parsed at its exact offsets so files carrying it can be
// cataloged and skipped cleanly, but payload decoding is not implemented:
// there is no maintained pure-Go JPEG 2000 decoder, and none of the
// supported data sources (GFS, HRRR, MRMS) emit it on fields the tile
// pipeline serves. Decode returns ErrJpeg2000Unsupported, which message
// iteration treats as a skippable condition.
type Jpeg2000Packed struct {
	scaling
	FieldType       uint8
	CompressionType uint8 // Table 5.40: 0 = lossless, 1 = lossy
	TargetRatio     uint8 // Target compression ratio (lossy only)
	NumValues       uint32
}

// ErrJpeg2000Unsupported is returned by Jpeg2000Packed.Decode.
var ErrJpeg2000Unsupported = fmt.Errorf("template 5.40: JPEG 2000 payload decoding not supported")

// ParseJpeg2000Packed parses Template 5.40:
//
//	Bytes 1-9: Common scaling prefix (R, E, D, bits)
//	Byte 10:   Type of original field values
//	Byte 11:   Type of compression used
//	Byte 12:   Target compression ratio
func ParseJpeg2000Packed(numValues uint32, data []byte) (*Jpeg2000Packed, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("template 5.40 requires at least 12 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)
	ref, _ := r.Float32()
	binScale, _ := r.Int16()
	decScale, _ := r.Int16()
	bits, _ := r.Uint8()
	fieldType, _ := r.Uint8()
	compression, _ := r.Uint8()
	ratio, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	return &Jpeg2000Packed{
		scaling: scaling{
			Reference:    ref,
			BinaryScale:  binScale,
			DecimalScale: decScale,
			Bits:         bits,
		},
		FieldType:       fieldType,
		CompressionType: compression,
		TargetRatio:     ratio,
		NumValues:       numValues,
	}, nil
}

// TemplateNumber returns 40 for JPEG 2000 packing.
func (t *Jpeg2000Packed) TemplateNumber() int { return 40 }

// NumDataValues returns the number of packed data values.
func (t *Jpeg2000Packed) NumDataValues() uint32 { return t.NumValues }

// Decode returns ErrJpeg2000Unsupported, except for the zero-bit constant
// field case which needs no codestream.
func (t *Jpeg2000Packed) Decode(packed []byte, bitmap []bool) ([]float32, error) {
	if t.Bits == 0 {
		s := &Simple{scaling: t.scaling, NumValues: t.NumValues}
		return s.Decode(nil, bitmap)
	}
	return nil, ErrJpeg2000Unsupported
}

// String returns a human-readable description.
func (t *Jpeg2000Packed) String() string {
	return fmt.Sprintf("Template 5.40: JPEG 2000 Packing, %d values, %d bits/value",
		t.NumValues, t.Bits)
}
