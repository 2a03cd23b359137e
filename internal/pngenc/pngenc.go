// Package pngenc encodes RGBA rasters as PNG.
//
// The standard library encoder always runs its adaptive filter search,
// which dominates tile latency; tiles prefer speed over the last few
// percent of compression. This encoder writes the chunk stream directly -
// IHDR, IDAT, IEND with per-chunk CRC32 - selecting per row between no
// filter and the cheap Sub/Up filters by absolute-difference sum, and
// deflates with klauspost's flate at a configurable level.
package pngenc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

var signature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Filter type bytes per the PNG specification.
const (
	filterNone = 0
	filterSub  = 1
	filterUp   = 2
)

// Encode writes img as an 8-bit RGBA PNG. level is a flate compression
// level; BestSpeed is the right choice for tiles.
func Encode(w io.Writer, img *image.NRGBA, level int) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("cannot encode empty %dx%d image", width, height)
	}

	if _, err := w.Write(signature); err != nil {
		return err
	}

	// IHDR: width, height, bit depth 8, color type 6 (truecolor+alpha).
	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(height))
	ihdr[8] = 8
	ihdr[9] = 6
	if err := writeChunk(w, "IHDR", ihdr[:]); err != nil {
		return err
	}

	idat, err := compressRows(img, width, height, level)
	if err != nil {
		return err
	}
	if err := writeChunk(w, "IDAT", idat); err != nil {
		return err
	}
	return writeChunk(w, "IEND", nil)
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img *image.NRGBA, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(img.Pix)/4 + 128)
	if err := Encode(&buf, img, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeChunk frames one PNG chunk: length, type, data, CRC32 over type
// and data.
func writeChunk(w io.Writer, typ string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:], uint32(len(data)))
	copy(header[4:], typ)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	_, err := w.Write(sum[:])
	return err
}

// compressRows deflates the filtered scanlines into a zlib stream.
func compressRows(img *image.NRGBA, width, height, level int) ([]byte, error) {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.BestSpeed
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}

	stride := width * 4
	filtered := make([]byte, stride)
	var prev []byte

	for y := range height {
		row := img.Pix[y*img.Stride : y*img.Stride+stride]

		f := chooseFilter(row, prev)
		applyFilter(filtered, row, prev, f)

		if _, err := zw.Write([]byte{byte(f)}); err != nil {
			return nil, err
		}
		if _, err := zw.Write(filtered); err != nil {
			return nil, err
		}

		if prev == nil {
			prev = make([]byte, stride)
		}
		copy(prev, row)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// chooseFilter picks among None, Sub, and Up by minimum sum of absolute
// signed residuals - the standard heuristic, restricted to the cheap
// filters.
func chooseFilter(row, prev []byte) int {
	scoreNone := 0
	for _, v := range row {
		scoreNone += absResidual(v)
	}

	scoreSub := 0
	for i, v := range row {
		left := byte(0)
		if i >= 4 {
			left = row[i-4]
		}
		scoreSub += absResidual(v - left)
	}

	best, bestScore := filterNone, scoreNone
	if scoreSub < bestScore {
		best, bestScore = filterSub, scoreSub
	}

	if prev != nil {
		scoreUp := 0
		for i, v := range row {
			scoreUp += absResidual(v - prev[i])
		}
		if scoreUp < bestScore {
			best = filterUp
		}
	}
	return best
}

// absResidual interprets a filtered byte as signed and returns |v|.
func absResidual(v byte) int {
	if v < 128 {
		return int(v)
	}
	return 256 - int(v)
}

// applyFilter writes the filtered row into dst.
func applyFilter(dst, row, prev []byte, filter int) {
	switch filter {
	case filterSub:
		for i, v := range row {
			left := byte(0)
			if i >= 4 {
				left = row[i-4]
			}
			dst[i] = v - left
		}
	case filterUp:
		for i, v := range row {
			dst[i] = v - prev[i]
		}
	default:
		copy(dst, row)
	}
}
