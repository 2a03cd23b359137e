package packing

import (
	"fmt"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// groupParams holds the group-splitting descriptors shared by Templates
// 5.2 and 5.3 (Table 5.4 group splitting method 1).
type groupParams struct {
	GroupSplitting   uint8  // Group splitting method (Table 5.4)
	MissingMgmt      uint8  // Missing value management (Table 5.5)
	PrimaryMissing   uint32 // Primary missing value substitute (raw bits)
	SecondaryMissing uint32
	NumGroups        uint32 // NG
	RefGroupWidth    uint8  // Reference for group widths
	BitsGroupWidth   uint8  // Bits used for each scaled group width
	RefGroupLength   uint32 // Reference for group lengths
	GroupLengthIncr  uint8  // Length increment for scaled group lengths
	LastGroupLength  uint32 // True length of the last group
	BitsGroupLength  uint8  // Bits used for each scaled group length
}

// parseGroupParams reads the 26 descriptor bytes that follow the common
// scaling prefix and field type in Templates 5.2 and 5.3.
func parseGroupParams(r *wire.Reader) (groupParams, error) {
	var g groupParams
	var err error

	g.GroupSplitting, _ = r.Uint8()
	g.MissingMgmt, _ = r.Uint8()
	g.PrimaryMissing, _ = r.Uint32()
	g.SecondaryMissing, _ = r.Uint32()
	g.NumGroups, _ = r.Uint32()
	g.RefGroupWidth, _ = r.Uint8()
	g.BitsGroupWidth, _ = r.Uint8()
	g.RefGroupLength, _ = r.Uint32()
	g.GroupLengthIncr, _ = r.Uint8()
	g.LastGroupLength, _ = r.Uint32()
	g.BitsGroupLength, err = r.Uint8()
	return g, err
}

// ComplexPacked represents Data Representation Template 5.2: complex
// packing. The data stream is split into groups, each with its own
// reference value, bit width, and length.
type ComplexPacked struct {
	scaling
	FieldType uint8
	Groups    groupParams
	NumValues uint32
}

// ParseComplexPacked parses Template 5.2 (36 template bytes):
//
//	Bytes 1-9:   Common scaling prefix (R, E, D, bits)
//	Byte 10:     Type of original field values
//	Byte 11:     Group splitting method
//	Byte 12:     Missing value management
//	Bytes 13-16: Primary missing value substitute
//	Bytes 17-20: Secondary missing value substitute
//	Bytes 21-24: Number of groups (NG)
//	Byte 25:     Reference for group widths
//	Byte 26:     Bits per scaled group width
//	Bytes 27-30: Reference for group lengths
//	Byte 31:     Group length increment
//	Bytes 32-35: True length of last group
//	Byte 36:     Bits per scaled group length
func ParseComplexPacked(numValues uint32, data []byte) (*ComplexPacked, error) {
	if len(data) < 36 {
		return nil, fmt.Errorf("template 5.2 requires at least 36 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)
	ref, _ := r.Float32()
	binScale, _ := r.Int16()
	decScale, _ := r.Int16()
	bits, _ := r.Uint8()
	fieldType, _ := r.Uint8()
	groups, err := parseGroupParams(r)
	if err != nil {
		return nil, err
	}

	return &ComplexPacked{
		scaling: scaling{
			Reference:    ref,
			BinaryScale:  binScale,
			DecimalScale: decScale,
			Bits:         bits,
		},
		FieldType: fieldType,
		Groups:    groups,
		NumValues: numValues,
	}, nil
}

// TemplateNumber returns 2 for complex packing.
func (t *ComplexPacked) TemplateNumber() int { return 2 }

// NumDataValues returns the number of packed data values.
func (t *ComplexPacked) NumDataValues() uint32 { return t.NumValues }

// Decode unpacks complex-packed data.
func (t *ComplexPacked) Decode(packed []byte, bitmap []bool) ([]float32, error) {
	raw, missing, err := unpackGroupsFrom(wire.NewBitReader(packed), &t.scaling, &t.Groups, int(t.NumValues))
	if err != nil {
		return nil, err
	}
	return finishComplex(&t.scaling, raw, missing, bitmap, 2)
}

// String returns a human-readable description.
func (t *ComplexPacked) String() string {
	return fmt.Sprintf("Template 5.2: Complex Packing, %d values, %d groups, R=%g E=%d D=%d",
		t.NumValues, t.Groups.NumGroups, t.Reference, t.BinaryScale, t.DecimalScale)
}

// SpatialDiff represents Data Representation Template 5.3: complex
// packing with spatial differencing of order 1 or 2. HRRR and NAM use
// this for most of their output.
type SpatialDiff struct {
	scaling
	FieldType   uint8
	Groups      groupParams
	Order       uint8 // Order of spatial differencing (1 or 2)
	ExtraOctets uint8 // Octets per extra descriptor (first values, minimum)
	NumValues   uint32
}

// ParseSpatialDiff parses Template 5.3, which is Template 5.2 plus:
//
//	Byte 37: Order of spatial differencing (Table 5.6)
//	Byte 38: Number of octets for extra descriptors
func ParseSpatialDiff(numValues uint32, data []byte) (*SpatialDiff, error) {
	if len(data) < 38 {
		return nil, fmt.Errorf("template 5.3 requires at least 38 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)
	ref, _ := r.Float32()
	binScale, _ := r.Int16()
	decScale, _ := r.Int16()
	bits, _ := r.Uint8()
	fieldType, _ := r.Uint8()
	groups, err := parseGroupParams(r)
	if err != nil {
		return nil, err
	}
	order, _ := r.Uint8()
	extraOctets, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	if order != 1 && order != 2 {
		return nil, fmt.Errorf("template 5.3: unsupported spatial differencing order %d", order)
	}

	return &SpatialDiff{
		scaling: scaling{
			Reference:    ref,
			BinaryScale:  binScale,
			DecimalScale: decScale,
			Bits:         bits,
		},
		FieldType:   fieldType,
		Groups:      groups,
		Order:       order,
		ExtraOctets: extraOctets,
		NumValues:   numValues,
	}, nil
}

// TemplateNumber returns 3 for complex packing with spatial differencing.
func (t *SpatialDiff) TemplateNumber() int { return 3 }

// NumDataValues returns the number of packed data values.
func (t *SpatialDiff) NumDataValues() uint32 { return t.NumValues }

// Decode unpacks the payload:
//
//  1. Read the order first values and the overall minimum, stored as
//     whole octets ahead of the group stream.
//  2. Unpack the grouped difference stream.
//  3. Reverse the differencing with a (double) prefix sum, adding the
//     overall minimum back at each step.
//  4. Apply the common scaling.
//
// The prefix sums run in int64: second-order recurrences on large grids
// overflow 32-bit intermediates.
func (t *SpatialDiff) Decode(packed []byte, bitmap []bool) ([]float32, error) {
	if len(packed) == 0 {
		return nil, fmt.Errorf("template 5.3: no packed data")
	}
	if t.ExtraOctets == 0 {
		return nil, fmt.Errorf("template 5.3: order %d differencing requires extra descriptors", t.Order)
	}

	br := wire.NewBitReader(packed)

	// Extra descriptors: order first values, then the overall minimum.
	firstVals := make([]int64, t.Order)
	for i := range firstVals {
		v, err := br.ReadBytes(int(t.ExtraOctets))
		if err != nil {
			return nil, fmt.Errorf("reading spatial diff first value %d: %w", i, err)
		}
		firstVals[i] = int64(v)
	}
	minVal, err := br.ReadSignedBytesSignMagnitude(int(t.ExtraOctets))
	if err != nil {
		return nil, fmt.Errorf("reading spatial diff minimum: %w", err)
	}

	n := int(t.NumValues)
	raw, missing, err := unpackGroupsFrom(br, &t.scaling, &t.Groups, n-len(firstVals))
	if err != nil {
		return nil, err
	}

	// Prepend the first values, then reverse the differencing. Missing
	// management shifts which points participate: absent points carry no
	// difference and are skipped by the recurrence.
	diffs := make([]int64, 0, n)
	diffs = append(diffs, firstVals...)
	for i, d := range raw {
		if !missing[i] {
			diffs = append(diffs, d)
		}
	}

	var vals []int64
	switch t.Order {
	case 1:
		vals = undiffOrder1(diffs, minVal)
	case 2:
		vals = undiffOrder2(diffs, minVal)
	}

	full := make([]int64, n)
	for i, k := 0, 0; i < n; i++ {
		if i < len(firstVals) || !missing[i-len(firstVals)] {
			full[i] = vals[k]
			k++
		}
	}

	allMissing := make([]bool, len(firstVals), n)
	allMissing = append(allMissing, missing...)

	return finishComplexInts(&t.scaling, full, allMissing, bitmap, 3, t.Bits)
}

// undiffOrder1 reverses first-order differencing:
// x[i] = x[i-1] + d[i] + min.
func undiffOrder1(diffs []int64, minVal int64) []int64 {
	vals := make([]int64, len(diffs))
	if len(diffs) == 0 {
		return vals
	}
	vals[0] = diffs[0]
	for i := 1; i < len(diffs); i++ {
		vals[i] = vals[i-1] + diffs[i] + minVal
	}
	return vals
}

// undiffOrder2 reverses second-order differencing with the recurrence
// x[i] = d[i] + 2*x[i-1] - x[i-2] + min.
func undiffOrder2(diffs []int64, minVal int64) []int64 {
	vals := make([]int64, len(diffs))
	if len(diffs) < 2 {
		copy(vals, diffs)
		return vals
	}
	vals[0] = diffs[0]
	vals[1] = diffs[1]
	for i := 2; i < len(diffs); i++ {
		vals[i] = diffs[i] + 2*vals[i-1] - vals[i-2] + minVal
	}
	return vals
}

// String returns a human-readable description.
func (t *SpatialDiff) String() string {
	return fmt.Sprintf("Template 5.3: Complex Packing (spatial diff order %d), %d values, %d groups, R=%g E=%d D=%d",
		t.Order, t.NumValues, t.Groups.NumGroups, t.Reference, t.BinaryScale, t.DecimalScale)
}

// unpackGroupsFrom reads NG groups from br: per-group references at the
// field bit width, then scaled widths, then scaled lengths, then the
// member values, all as one continuous bit stream with no padding
// between substreams - the layout wgrib2 and the NCEP g2clib unpacker
// read. Returns raw integers (group reference added) and a missing mask
// driven by Table 5.5 missing value management.
func unpackGroupsFrom(br *wire.BitReader, s *scaling, g *groupParams, n int) ([]int64, []bool, error) {
	if g.GroupSplitting != 1 {
		return nil, nil, fmt.Errorf("unsupported group splitting method %d", g.GroupSplitting)
	}
	if g.MissingMgmt > 1 {
		return nil, nil, fmt.Errorf("unsupported missing value management %d", g.MissingMgmt)
	}

	ng := int(g.NumGroups)

	// Group references.
	refs := make([]int64, ng)
	if s.Bits > 0 {
		for i := range refs {
			v, err := br.ReadBits(int(s.Bits))
			if err != nil {
				return nil, nil, fmt.Errorf("reading group reference %d: %w", i, err)
			}
			refs[i] = int64(v)
		}
	}

	// Group widths.
	widths := make([]int, ng)
	if g.BitsGroupWidth > 0 {
		for i := range widths {
			v, err := br.ReadBits(int(g.BitsGroupWidth))
			if err != nil {
				return nil, nil, fmt.Errorf("reading group width %d: %w", i, err)
			}
			widths[i] = int(v) + int(g.RefGroupWidth)
		}
	} else {
		for i := range widths {
			widths[i] = int(g.RefGroupWidth)
		}
	}

	// Group lengths; the last group always uses its true length.
	lengths := make([]int, ng)
	if g.BitsGroupLength > 0 {
		for i := range lengths {
			v, err := br.ReadBits(int(g.BitsGroupLength))
			if err != nil {
				return nil, nil, fmt.Errorf("reading group length %d: %w", i, err)
			}
			lengths[i] = int(g.RefGroupLength) + int(v)*int(g.GroupLengthIncr)
		}
	} else {
		for i := range lengths {
			lengths[i] = int(g.RefGroupLength)
		}
	}
	if ng > 0 {
		lengths[ng-1] = int(g.LastGroupLength)
	}

	// Member values.
	values := make([]int64, 0, n)
	missing := make([]bool, 0, n)
	for i := range ng {
		width := widths[i]

		// Under missing management 1, the all-ones pattern at the group
		// width marks a missing point; a zero-width group whose reference
		// is all-ones at the field width is entirely missing.
		missingPattern := int64(-1)
		if g.MissingMgmt == 1 {
			if width > 0 {
				missingPattern = int64(1)<<width - 1
			} else if s.Bits > 0 && refs[i] == int64(1)<<int(s.Bits)-1 {
				for j := 0; j < lengths[i] && len(values) < n; j++ {
					values = append(values, 0)
					missing = append(missing, true)
				}
				continue
			}
		}

		for j := 0; j < lengths[i] && len(values) < n; j++ {
			if width == 0 {
				values = append(values, refs[i])
				missing = append(missing, false)
				continue
			}
			v, err := br.ReadBits(width)
			if err != nil {
				return nil, nil, fmt.Errorf("reading value %d of group %d: %w", j, i, err)
			}
			if g.MissingMgmt == 1 && int64(v) == missingPattern {
				values = append(values, 0)
				missing = append(missing, true)
			} else {
				values = append(values, refs[i]+int64(v))
				missing = append(missing, false)
			}
		}
	}

	if len(values) != n {
		return nil, nil, fmt.Errorf("group lengths yield %d values, need %d", len(values), n)
	}
	return values, missing, nil
}

// finishComplex scales raw integers and applies bitmap expansion.
func finishComplex(s *scaling, raw []int64, missing []bool, bitmap []bool, template int) ([]float32, error) {
	return finishComplexInts(s, raw, missing, bitmap, template, s.Bits)
}

func finishComplexInts(s *scaling, raw []int64, missing []bool, bitmap []bool, template int, bits uint8) ([]float32, error) {
	binScale, decScale := s.factors()
	values := make([]float32, len(raw))
	for i, x := range raw {
		if missing[i] {
			values[i] = Missing
		} else {
			values[i] = s.apply(x, binScale, decScale)
		}
	}

	if err := checkDegenerate(values, s.apply(0, binScale, decScale), template, bits); err != nil {
		return nil, err
	}

	if bitmap != nil {
		return expandBitmap(values, bitmap)
	}
	return values, nil
}
