package packing

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// PngPacked represents Data Representation Template 5.41: grid-point data
// packed as a PNG image. The Section 7 payload is a complete PNG whose
// pixel channels carry the raw packed integers; MRMS uses this for some
// of its products.
type PngPacked struct {
	scaling
	FieldType uint8
	NumValues uint32
}

// ParsePngPacked parses Template 5.41, which carries only the common
// scaling prefix and the original field type.
func ParsePngPacked(numValues uint32, data []byte) (*PngPacked, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("template 5.41 requires at least 10 bytes, got %d", len(data))
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

	return &PngPacked{
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

// TemplateNumber returns 41 for PNG packing.
func (t *PngPacked) TemplateNumber() int { return 41 }

// NumDataValues returns the number of packed data values.
func (t *PngPacked) NumDataValues() uint32 { return t.NumValues }

// Decode decodes the embedded PNG and reshapes its pixels into the value
// sequence. The bit depth of the image must match the declared bits per
// value (8 or 16 for the supported sources).
func (t *PngPacked) Decode(packed []byte, bitmap []bool) ([]float32, error) {
	if t.Bits == 0 {
		// Constant field, same as simple packing with zero width.
		s := &Simple{scaling: t.scaling, NumValues: t.NumValues}
		return s.Decode(nil, bitmap)
	}

	img, err := png.Decode(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("decoding PNG payload: %w", err)
	}

	binScale, decScale := t.factors()
	values := make([]float32, 0, t.NumValues)

	switch im := img.(type) {
	case *image.Gray:
		for _, p := range im.Pix {
			values = append(values, t.apply(int64(p), binScale, decScale))
		}
	case *image.Gray16:
		for i := 0; i+1 < len(im.Pix); i += 2 {
			x := int64(im.Pix[i])<<8 | int64(im.Pix[i+1])
			values = append(values, t.apply(x, binScale, decScale))
		}
	default:
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g, _, _, _ := img.At(x, y).RGBA()
				values = append(values, t.apply(int64(g>>8), binScale, decScale))
			}
		}
	}

	if uint32(len(values)) < t.NumValues {
		return nil, fmt.Errorf("PNG payload holds %d values, need %d", len(values), t.NumValues)
	}
	values = values[:t.NumValues]

	if err := checkDegenerate(values, t.apply(0, binScale, decScale), 41, t.Bits); err != nil {
		return nil, err
	}

	if bitmap != nil {
		return expandBitmap(values, bitmap)
	}
	return values, nil
}

// String returns a human-readable description.
func (t *PngPacked) String() string {
	return fmt.Sprintf("Template 5.41: PNG Packing, %d values, %d bits/value, R=%g E=%d D=%d",
		t.NumValues, t.Bits, t.Reference, t.BinaryScale, t.DecimalScale)
}
