package grib2

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/driftline/stratus/grib2/gribtest"
)

func tempSpec() gribtest.FieldSpec {
	spec := gribtest.UniformGrid(0, 0, 36, 19, 250, 310) // temperature ramp
	spec.LevelType = 103
	spec.LevelValue = 2
	spec.ForecastHours = 6
	return spec
}

func TestFindMessages(t *testing.T) {
	file := gribtest.File(tempSpec(), tempSpec())
	boundaries, err := FindMessages(file, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(boundaries) != 2 {
		t.Fatalf("found %d messages, want 2", len(boundaries))
	}
	if boundaries[0].Start != 0 || boundaries[1].Start != int(boundaries[0].Length) {
		t.Errorf("unexpected boundaries %+v", boundaries)
	}
}

func TestFindMessagesSkipsPadding(t *testing.T) {
	msg := gribtest.Message(tempSpec())
	var file []byte
	file = append(file, "NWS BULLETIN HEADER\r\n"...)
	file = append(file, msg...)
	file = append(file, 0, 0, 0, 0)
	file = append(file, msg...)

	var warnings []string
	boundaries, err := FindMessages(file, func(offset int, m string) {
		warnings = append(warnings, m)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(boundaries) != 2 {
		t.Fatalf("found %d messages, want 2", len(boundaries))
	}
	if len(warnings) != 2 {
		t.Errorf("got %d padding warnings, want 2: %v", len(warnings), warnings)
	}
}

func TestFindMessagesTruncated(t *testing.T) {
	msg := gribtest.Message(tempSpec())
	if _, err := FindMessages(msg[:len(msg)-10], nil); err == nil {
		t.Error("truncated message accepted")
	}
}

func TestParseAndDecode(t *testing.T) {
	spec := tempSpec()
	msgs, err := ParseMessage(gribtest.Message(spec))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d fields, want 1", len(msgs))
	}
	m := msgs[0]

	id := m.ParameterID()
	if id.Discipline != 0 || id.Category != 0 || id.Number != 0 {
		t.Errorf("parameter = %+v", id)
	}
	if id.ShortName("gfs") != "TMP" {
		t.Errorf("short name = %q", id.ShortName("gfs"))
	}

	field, err := m.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(field.Values) != 36*19 {
		t.Fatalf("decoded %d values", len(field.Values))
	}
	if field.LevelType != 103 || field.LevelValue != 2 {
		t.Errorf("level = %d/%g", field.LevelType, field.LevelValue)
	}
	if field.Forecast.Hours() != 6 {
		t.Errorf("forecast = %v", field.Forecast)
	}

	// Northernmost row decodes to the ramp minimum, southernmost to the max.
	if math.Abs(float64(field.Values[0])-250) > 0.01 {
		t.Errorf("north edge = %g, want 250", field.Values[0])
	}
	last := field.Values[len(field.Values)-1]
	if math.Abs(float64(last)-310) > 0.01 {
		t.Errorf("south edge = %g, want 310", last)
	}
}

func TestDecodeWithBitmap(t *testing.T) {
	spec := tempSpec()
	n := spec.Ni * spec.Nj
	bitmap := make([]bool, n)
	var present []float64
	for i := range bitmap {
		bitmap[i] = i%3 != 0
		if bitmap[i] {
			present = append(present, spec.Values[i])
		}
	}
	spec.Bitmap = bitmap
	spec.Values = present

	msgs, err := ParseMessage(gribtest.Message(spec))
	if err != nil {
		t.Fatal(err)
	}
	field, err := msgs[0].Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(field.Values) != n {
		t.Fatalf("decoded %d values, want %d", len(field.Values), n)
	}
	for i := range field.Missing {
		if field.Missing[i] != (i%3 == 0) {
			t.Fatalf("missing[%d] = %v", i, field.Missing[i])
		}
	}
}

// spliceRepeatedField duplicates the section 4-7 run of a single-field
// message, producing a two-field message that shares sections 0-3.
func spliceRepeatedField(t *testing.T, msg []byte) []byte {
	t.Helper()

	offset := 16
	var start4, end7 int
	for offset < len(msg)-4 {
		length := int(binary.BigEndian.Uint32(msg[offset:]))
		number := msg[offset+4]
		if number == 4 && start4 == 0 {
			start4 = offset
		}
		offset += length
		if number == 7 {
			end7 = offset
			break
		}
	}
	if start4 == 0 || end7 == 0 {
		t.Fatal("could not locate sections 4-7")
	}

	out := make([]byte, 0, len(msg)+end7-start4)
	out = append(out, msg[:end7]...)
	out = append(out, msg[start4:end7]...)
	out = append(out, "7777"...)
	binary.BigEndian.PutUint64(out[8:], uint64(len(out)))
	return out
}

func TestParseMessageRepeatedSections(t *testing.T) {
	msg := spliceRepeatedField(t, gribtest.Message(tempSpec()))
	msgs, err := ParseMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d fields, want 2", len(msgs))
	}
	// Both fields share the grid and decode identically.
	for _, m := range msgs {
		if _, err := m.Decode(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestParseMessageOutOfOrderSection(t *testing.T) {
	msg := gribtest.Message(tempSpec())

	// Renumber section 3 as section 5: framing order breaks.
	offset := 16
	for offset < len(msg)-4 {
		length := int(binary.BigEndian.Uint32(msg[offset:]))
		if msg[offset+4] == 3 {
			msg[offset+4] = 5
			break
		}
		offset += length
	}

	if _, err := ParseMessage(msg); err == nil {
		t.Error("out-of-order section accepted")
	}
}

func TestScanMessagesParallel(t *testing.T) {
	specs := make([]gribtest.FieldSpec, 12)
	for i := range specs {
		s := tempSpec()
		s.ForecastHours = uint32(i)
		specs[i] = s
	}
	file := gribtest.File(specs...)

	msgs, err := ScanMessages(file, WithWorkers(4))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 12 {
		t.Fatalf("scanned %d messages, want 12", len(msgs))
	}
	// Order is preserved despite parallel parsing.
	for i, m := range msgs {
		d, ok := m.Section4.Product.ForecastDuration()
		if !ok || int(d.Hours()) != i {
			t.Errorf("message %d has forecast %v", i, d)
		}
	}
}

func TestScanMessagesFilter(t *testing.T) {
	wind := gribtest.UniformGrid(2, 2, 36, 19, -20, 20) // UGRD
	file := gribtest.File(tempSpec(), wind)

	msgs, err := ScanMessages(file, FilterParameter(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("filter kept %d messages, want 1", len(msgs))
	}
}

func TestReadFields(t *testing.T) {
	file := gribtest.File(tempSpec(), gribtest.UniformGrid(2, 2, 36, 19, -20, 20))
	fields, err := ReadFields(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("read %d fields, want 2", len(fields))
	}
	for _, f := range fields {
		if f.Geometry == nil || len(f.Values) != 36*19 {
			t.Errorf("incomplete field %+v", f.Parameter)
		}
	}
}

func TestSkipUnsupportedTemplate(t *testing.T) {
	good := gribtest.Message(tempSpec())
	bad := gribtest.Message(tempSpec())

	// Corrupt the grid template number of the bad message.
	offset := 16
	for offset < len(bad)-4 {
		length := int(binary.BigEndian.Uint32(bad[offset:]))
		if bad[offset+4] == 3 {
			bad[offset+13] = 77 // template 77: unsupported
			break
		}
		offset += length
	}

	file := append(append([]byte{}, bad...), good...)

	// Without skip: the scan fails.
	if _, err := ScanMessages(file); err == nil {
		t.Fatal("unsupported template did not fail strict scan")
	}

	// With skip: one message survives, one warning emitted.
	var warned []string
	msgs, err := ScanMessages(file, WithSkipUnsupported(), WithWarn(func(off int, m string) {
		warned = append(warned, m)
	}))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	found := false
	for _, w := range warned {
		if strings.Contains(w, "skipping") {
			found = true
		}
	}
	if !found {
		t.Errorf("no skip warning in %v", warned)
	}
}
