// Package gribtest builds synthetic GRIB2 messages for tests.
//
// The encoder emits regular lat/lon grids (template 3.0) with
// instantaneous products (template 4.0) and simple packing (template
// 5.0), which is enough to exercise the full decode, render, and cache
// pipeline without checked-in binary fixtures. It intentionally lives
// outside the decoder's own packages so tests cannot share code with the
// parser under test.
package gribtest

import (
	"encoding/binary"
	"math"
	"time"
)

// FieldSpec describes one synthetic field.
type FieldSpec struct {
	Discipline uint8
	Category   uint8
	Number     uint8

	LevelType  uint8
	LevelScale uint8
	LevelValue uint32

	RefTime       time.Time
	ForecastHours uint32

	// Grid: regular lat/lon, north-to-south west-to-east scan.
	Ni, Nj             int
	La1, Lo1, La2, Lo2 float64 // degrees; La1/Lo1 is the first (NW) point

	// Values in canonical scan order (row-major from the NW corner).
	Values []float64

	// Packing controls. DecScale defaults to 0; Bits defaults to the
	// smallest width that spans the value range.
	DecScale int16
	Bits     uint8

	// Optional bitmap; when set, Values holds only the present points.
	Bitmap []bool
}

type builder struct {
	buf []byte
}

func (b *builder) u8(v uint8)   { b.buf = append(b.buf, v) }
func (b *builder) u16(v uint16) { b.buf = binary.BigEndian.AppendUint16(b.buf, v) }
func (b *builder) u32(v uint32) { b.buf = binary.BigEndian.AppendUint32(b.buf, v) }
func (b *builder) u64(v uint64) { b.buf = binary.BigEndian.AppendUint64(b.buf, v) }

func (b *builder) signMag32(v int32) {
	u := uint32(v)
	if v < 0 {
		u = uint32(-v) | 0x80000000
	}
	b.u32(u)
}

func (b *builder) signMag16(v int16) {
	u := uint16(v)
	if v < 0 {
		u = uint16(-v) | 0x8000
	}
	b.u16(u)
}

// section appends a (length, number) framed section built by fill.
func (b *builder) section(number uint8, fill func(s *builder)) {
	var s builder
	fill(&s)
	b.u32(uint32(len(s.buf) + 5))
	b.u8(number)
	b.buf = append(b.buf, s.buf...)
}

func microdeg(deg float64) int32 {
	return int32(math.Round(deg * 1e6))
}

// Message encodes one complete GRIB2 message for spec.
func Message(spec FieldSpec) []byte {
	if spec.RefTime.IsZero() {
		spec.RefTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	if spec.LevelType == 0 {
		spec.LevelType = 1 // surface
	}

	// Simple packing parameters: R is the scaled minimum, E = 0.
	decScale := math.Pow(10, float64(spec.DecScale))
	ref := math.Inf(1)
	maxScaled := math.Inf(-1)
	for _, v := range spec.Values {
		s := v * decScale
		ref = math.Min(ref, s)
		maxScaled = math.Max(maxScaled, s)
	}
	if len(spec.Values) == 0 {
		ref, maxScaled = 0, 0
	}

	bits := spec.Bits
	if bits == 0 {
		span := maxScaled - ref
		for bits = 1; bits < 24 && float64(uint64(1)<<bits-1) < span; bits++ {
		}
		if span == 0 {
			bits = 0
		}
	}

	var body builder

	// Section 1: identification.
	body.section(1, func(s *builder) {
		s.u16(7) // NCEP
		s.u16(0)
		s.u8(2) // master tables version
		s.u8(1)
		s.u8(1) // reference time = start of forecast
		s.u16(uint16(spec.RefTime.Year()))
		s.u8(uint8(spec.RefTime.Month()))
		s.u8(uint8(spec.RefTime.Day()))
		s.u8(uint8(spec.RefTime.Hour()))
		s.u8(uint8(spec.RefTime.Minute()))
		s.u8(uint8(spec.RefTime.Second()))
		s.u8(0) // operational
		s.u8(1) // forecast
	})

	// Section 3: grid definition, template 3.0.
	numPoints := uint32(spec.Ni * spec.Nj)
	di := math.Abs(spec.Lo2-spec.Lo1) / float64(spec.Ni-1)
	dj := math.Abs(spec.La1-spec.La2) / float64(spec.Nj-1)
	body.section(3, func(s *builder) {
		s.u8(0) // grid definition from template
		s.u32(numPoints)
		s.u8(0)
		s.u8(0)
		s.u16(0) // template 3.0

		s.u8(6) // spherical earth, 6371229 m
		for range 15 {
			s.u8(0)
		}
		s.u32(uint32(spec.Ni))
		s.u32(uint32(spec.Nj))
		s.u32(0) // basic angle
		s.u32(0)
		s.signMag32(microdeg(spec.La1))
		s.signMag32(microdeg(spec.Lo1))
		s.u8(0x30) // resolution flags: increments given
		s.signMag32(microdeg(spec.La2))
		s.signMag32(microdeg(spec.Lo2))
		s.u32(uint32(math.Round(di * 1e6)))
		s.u32(uint32(math.Round(dj * 1e6)))
		s.u8(0x00) // scan: +i, -j, row-major
	})

	// Section 4: product definition, template 4.0.
	body.section(4, func(s *builder) {
		s.u16(0) // no coordinate values
		s.u16(0) // template 4.0
		s.u8(spec.Category)
		s.u8(spec.Number)
		s.u8(2) // forecast
		s.u8(0)
		s.u8(96)
		s.u16(0)
		s.u8(0)
		s.u8(1) // hours
		s.u32(spec.ForecastHours)
		s.u8(spec.LevelType)
		s.u8(spec.LevelScale)
		s.u32(spec.LevelValue)
		s.u8(255) // no second surface
		s.u8(0)
		s.u32(0)
	})

	// Section 5: simple packing.
	body.section(5, func(s *builder) {
		s.u32(uint32(len(spec.Values)))
		s.u16(0) // template 5.0
		s.u32(math.Float32bits(float32(ref)))
		s.signMag16(0) // binary scale
		s.signMag16(spec.DecScale)
		s.u8(bits)
		s.u8(0) // floating point originals
	})

	// Section 6: bitmap.
	body.section(6, func(s *builder) {
		if spec.Bitmap == nil {
			s.u8(255)
			return
		}
		s.u8(0)
		var cur byte
		n := 0
		for _, present := range spec.Bitmap {
			cur <<= 1
			if present {
				cur |= 1
			}
			n++
			if n == 8 {
				s.u8(cur)
				cur, n = 0, 0
			}
		}
		if n > 0 {
			s.u8(cur << (8 - n))
		}
	})

	// Section 7: bit-packed values.
	body.section(7, func(s *builder) {
		if bits == 0 {
			return
		}
		var cur uint64
		var nbits int
		for _, v := range spec.Values {
			x := uint64(math.Round(v*decScale - ref))
			cur = cur<<bits | x
			nbits += int(bits)
			for nbits >= 8 {
				s.u8(byte(cur >> (nbits - 8)))
				nbits -= 8
			}
		}
		if nbits > 0 {
			s.u8(byte(cur << (8 - nbits)))
		}
	})

	// Assemble with the indicator and end marker.
	var msg builder
	msg.buf = append(msg.buf, "GRIB"...)
	msg.u16(0)
	msg.u8(spec.Discipline)
	msg.u8(2)
	msg.u64(uint64(16 + len(body.buf) + 4))
	msg.buf = append(msg.buf, body.buf...)
	msg.buf = append(msg.buf, "7777"...)
	return msg.buf
}

// File concatenates messages for several specs into one GRIB2 file.
func File(specs ...FieldSpec) []byte {
	var out []byte
	for _, spec := range specs {
		out = append(out, Message(spec)...)
	}
	return out
}

// UniformGrid builds a spec for a global grid whose values ramp linearly
// from lo at the north edge to hi at the south edge. Handy for asserting
// orientation after rendering.
func UniformGrid(category, number uint8, ni, nj int, lo, hi float64) FieldSpec {
	values := make([]float64, ni*nj)
	for row := range nj {
		v := lo + (hi-lo)*float64(row)/float64(nj-1)
		for col := range ni {
			values[row*ni+col] = v
		}
	}
	return FieldSpec{
		Category: category,
		Number:   number,
		Ni:       ni, Nj: nj,
		La1: 90, Lo1: 0,
		La2: -90, Lo2: 360 - 360/float64(ni),
		Values: values,
	}
}
