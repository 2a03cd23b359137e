package pngenc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: 255,
			})
		}
	}
	return img
}

// TestRoundTripAgainstStdlib is the conformance contract: any valid PNG
// decoder must accept our output and see identical pixels.
func TestRoundTripAgainstStdlib(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {3, 5}, {256, 256}, {257, 33}} {
		img := testImage(size[0], size[1])
		data, err := EncodeBytes(img, flate.BestSpeed)
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err, "stdlib decoder rejected our output for %v", size)

		bounds := decoded.Bounds()
		require.Equal(t, size[0], bounds.Dx())
		require.Equal(t, size[1], bounds.Dy())

		for y := range size[1] {
			for x := range size[0] {
				want := img.NRGBAAt(x, y)
				r, g, b, a := decoded.At(x, y).RGBA()
				got := color.NRGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
				require.Equal(t, want, got, "pixel (%d,%d) in %v", x, y, size)
			}
		}
	}
}

func TestSignature(t *testing.T) {
	data, err := EncodeBytes(testImage(4, 4), flate.BestSpeed)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, data[:8])
}

func TestTransparentImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	data, err := EncodeBytes(img, flate.BestSpeed)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	_, _, _, a := decoded.At(32, 32).RGBA()
	assert.Zero(t, a)
}

func TestEmptyImageRejected(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	_, err := EncodeBytes(img, flate.BestSpeed)
	assert.Error(t, err)
}

func TestDeterministicOutput(t *testing.T) {
	// Equal fingerprints must produce byte-identical tiles, so the
	// encoder must be deterministic.
	img := testImage(128, 128)
	a, err := EncodeBytes(img, flate.BestSpeed)
	require.NoError(t, err)
	b, err := EncodeBytes(img, flate.BestSpeed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
