package packing

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"
)

// bitWriter mirrors the decoder's bit order for building test payloads.
type bitWriter struct {
	buf  []byte
	nbit int
}

func (w *bitWriter) writeBits(v uint64, nbits int) {
	for i := nbits - 1; i >= 0; i-- {
		if w.nbit%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		bit := byte(v>>i) & 1
		w.buf[len(w.buf)-1] |= bit << (7 - w.nbit%8)
		w.nbit++
	}
}

func packSimpleTemplate(ref float32, e, d int16, bits uint8) []byte {
	data := make([]byte, 10)
	u := math.Float32bits(ref)
	data[0], data[1], data[2], data[3] = byte(u>>24), byte(u>>16), byte(u>>8), byte(u)
	putSM16 := func(off int, v int16) {
		uv := uint16(v)
		if v < 0 {
			uv = uint16(-v) | 0x8000
		}
		data[off], data[off+1] = byte(uv>>8), byte(uv)
	}
	putSM16(4, e)
	putSM16(6, d)
	data[8] = bits
	return data
}

// TestSimpleRoundTrip packs values with the inverse of the scaling
// formula and checks decoding reproduces them within half a quantum.
func TestSimpleRoundTrip(t *testing.T) {
	cases := []struct {
		ref    float32
		e, d   int16
		bits   uint8
		values []float64
	}{
		{250.0, 0, 0, 12, []float64{250, 251, 300, 312.5, 260}},
		{-12.5, -2, 0, 16, []float64{-12.5, 0, 17.25, 100}},
		{27315, 0, 2, 20, []float64{273.15, 280.10, 310.00}},
	}

	for _, c := range cases {
		tmpl, err := ParseSimple(uint32(len(c.values)), packSimpleTemplate(c.ref, c.e, c.d, c.bits))
		if err != nil {
			t.Fatal(err)
		}

		binScale := math.Pow(2, float64(c.e))
		decScale := math.Pow(10, float64(c.d))
		var w bitWriter
		for _, v := range c.values {
			x := math.Round((v*decScale - float64(c.ref)) / binScale)
			w.writeBits(uint64(x), int(c.bits))
		}

		got, err := tmpl.Decode(w.buf, nil)
		if err != nil {
			t.Fatal(err)
		}

		tol := binScale / decScale / 2
		for i, v := range c.values {
			if math.Abs(float64(got[i])-v) > tol+1e-6 {
				t.Errorf("ref=%g e=%d d=%d: value %d = %g, want %g (tol %g)",
					c.ref, c.e, c.d, i, got[i], v, tol)
			}
		}
	}
}

func TestSimpleZeroBitsConstantField(t *testing.T) {
	tmpl, err := ParseSimple(6, packSimpleTemplate(101325, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Decode(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range got {
		if v != 101325 {
			t.Fatalf("constant field value = %g, want 101325", v)
		}
	}
}

func TestSimpleDegenerateRejected(t *testing.T) {
	// Eight bits per value but every packed integer is zero: the field
	// collapses to the reference value and must be rejected.
	tmpl, err := ParseSimple(16, packSimpleTemplate(5, 0, 0, 8))
	if err != nil {
		t.Fatal(err)
	}
	_, err = tmpl.Decode(make([]byte, 16), nil)
	var dfe *DegenerateFieldError
	if !errors.As(err, &dfe) {
		t.Fatalf("Decode = %v, want DegenerateFieldError", err)
	}
}

func TestSimpleBitmapExpansion(t *testing.T) {
	tmpl, err := ParseSimple(3, packSimpleTemplate(0, 0, 0, 8))
	if err != nil {
		t.Fatal(err)
	}

	var w bitWriter
	for _, x := range []uint64{10, 20, 30} {
		w.writeBits(x, 8)
	}

	bitmap := []bool{true, false, true, false, true}
	got, err := tmpl.Decode(w.buf, bitmap)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{10, Missing, 20, Missing, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %g, want %g", i, got[i], want[i])
		}
	}
}

// TestSpatialDiffInversion is the exactness property: order-2 differencing
// then prefix-sum reconstruction reproduces any integer sequence.
func TestSpatialDiffInversion(t *testing.T) {
	sequences := [][]int64{
		{5, 9, 2, 7, 7, 7, 100, -3, 42, 0},
		{0, 0, 0, 0, 0},
		{1, 2, 3, 4, 5, 6, 7},
		{1000000, -1000000, 999999, -999998, 500000},
	}

	for _, x := range sequences {
		// Second differences of x[2:].
		diffs := make([]int64, len(x))
		diffs[0], diffs[1] = x[0], x[1]
		minVal := int64(math.MaxInt64)
		for i := 2; i < len(x); i++ {
			diffs[i] = x[i] - 2*x[i-1] + x[i-2]
			if diffs[i] < minVal {
				minVal = diffs[i]
			}
		}
		if len(x) <= 2 {
			minVal = 0
		}
		// Encoders store diffs relative to the overall minimum.
		for i := 2; i < len(x); i++ {
			diffs[i] -= minVal
		}

		got := undiffOrder2(diffs, minVal)
		for i := range x {
			if got[i] != x[i] {
				t.Fatalf("sequence %v: reconstructed[%d] = %d, want %d", x, i, got[i], x[i])
			}
		}
	}
}

func TestSpatialDiffOrder1Inversion(t *testing.T) {
	x := []int64{10, 4, 4, 9, -2, 33}
	diffs := make([]int64, len(x))
	diffs[0] = x[0]
	minVal := int64(math.MaxInt64)
	for i := 1; i < len(x); i++ {
		diffs[i] = x[i] - x[i-1]
		if diffs[i] < minVal {
			minVal = diffs[i]
		}
	}
	for i := 1; i < len(x); i++ {
		diffs[i] -= minVal
	}

	got := undiffOrder1(diffs, minVal)
	for i := range x {
		if got[i] != x[i] {
			t.Fatalf("reconstructed[%d] = %d, want %d", i, got[i], x[i])
		}
	}
}

func TestComplexPackedGroups(t *testing.T) {
	// Two groups: refs 10 and 50, widths 4 and 0, lengths 3 and 2.
	template := make([]byte, 36)
	copy(template, packSimpleTemplate(0, 0, 0, 8))
	template[10] = 1 // group splitting method 1
	// NG = 2 (bytes 20-23)
	template[23] = 2
	template[24] = 0 // reference for group widths
	template[25] = 3 // bits per group width
	// reference for group lengths = 3 (bytes 26-29)
	template[29] = 3
	template[30] = 1 // length increment
	// true length of last group = 2 (bytes 31-34)
	template[34] = 2
	template[35] = 2 // bits per group length

	tmpl, err := ParseComplexPacked(5, template)
	if err != nil {
		t.Fatal(err)
	}

	// One continuous bit stream: references, widths, lengths, values,
	// with no padding between the substreams.
	var w bitWriter
	w.writeBits(10, 8) // group 0 reference
	w.writeBits(50, 8) // group 1 reference
	w.writeBits(4, 3)  // group 0 width
	w.writeBits(0, 3)  // group 1 width
	w.writeBits(0, 2)  // group 0 scaled length: 3 + 0*1 = 3
	w.writeBits(1, 2)  // group 1 scaled length (overridden by true last length)
	w.writeBits(1, 4)  // 11
	w.writeBits(5, 4)  // 15
	w.writeBits(9, 4)  // 19
	// group 1 width 0: both values are the reference, 50.

	got, err := tmpl.Decode(w.buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{11, 15, 19, 50, 50}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %g, want %g", i, got[i], want[i])
		}
	}
}

// TestComplexPackedUnalignedLiteral decodes a hand-assembled Section 7
// payload whose substreams do not land on byte boundaries, pinning the
// wire layout independently of any encoder helper. The stream is
//
//	refs    00011 01010        (5 bits each: 3, 10)
//	widths  010 000            (3 bits each: 2, 0)
//	lengths 0000 0001          (4 bits each: 0, 1)
//	values  01 10              (2 bits each: 1, 2)
//
// which packs to the bytes 1A 90 01 60.
func TestComplexPackedUnalignedLiteral(t *testing.T) {
	template := make([]byte, 36)
	copy(template, packSimpleTemplate(0, 0, 0, 5))
	template[10] = 1 // group splitting method 1
	template[23] = 2 // NG = 2
	template[24] = 0 // reference for group widths
	template[25] = 3 // bits per group width
	template[29] = 2 // reference for group lengths
	template[30] = 1 // length increment
	template[34] = 3 // true length of last group
	template[35] = 4 // bits per group length

	tmpl, err := ParseComplexPacked(5, template)
	if err != nil {
		t.Fatal(err)
	}

	got, err := tmpl.Decode([]byte{0x1A, 0x90, 0x01, 0x60}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{4, 5, 10, 10, 10}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestPngPackedDecode(t *testing.T) {
	// 4x2 grayscale image carrying raw integers 0, 10, ..., 70.
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 10)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	tmpl, err := ParsePngPacked(8, packSimpleTemplate(100, 0, 0, 8))
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range got {
		want := float32(100 + i*10)
		if got[i] != want {
			t.Errorf("value %d = %g, want %g", i, got[i], want)
		}
	}
}

func TestJpeg2000Unsupported(t *testing.T) {
	template := make([]byte, 12)
	copy(template, packSimpleTemplate(0, 0, 0, 12))
	tmpl, err := ParseJpeg2000Packed(10, template)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.Decode([]byte{0xFF}, nil); err != ErrJpeg2000Unsupported {
		t.Errorf("Decode = %v, want ErrJpeg2000Unsupported", err)
	}
}
