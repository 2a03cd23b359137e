package product

import (
	"fmt"
	"time"

	"github.com/driftline/stratus/grib2/internal/wire"
	"github.com/driftline/stratus/grib2/tables"
)

// Template48 represents Product Definition Template 4.8: average,
// accumulation or extreme over a continuous or non-continuous time
// interval. Accumulated precipitation fields use it.
type Template48 struct {
	Template40 // shares the full 4.0 prefix

	EndYear   uint16 // End of the overall time interval
	EndMonth  uint8
	EndDay    uint8
	EndHour   uint8
	EndMinute uint8
	EndSecond uint8

	NumTimeRanges    uint8  // Number of time range specifications
	NumMissingValues uint32 // Count of missing values in the statistic

	StatisticalProcess uint8 // Table 4.10: 0=avg, 1=accum, 2=max, 3=min
	TimeIncrementType  uint8 // Table 4.11
	StatUnit           uint8 // Table 4.4 unit of the statistic range
	StatLength         uint32
	IncrUnit           uint8
	IncrLength         uint32
}

// ParseTemplate48 parses Product Definition Template 4.8: the 25-byte
// Template 4.0 prefix followed by:
//
//	Bytes 26-27: Year of end of overall time interval
//	Byte 28:     Month
//	Byte 29:     Day
//	Byte 30:     Hour
//	Byte 31:     Minute
//	Byte 32:     Second
//	Byte 33:     Number of time range specifications
//	Bytes 34-37: Total number of missing data values
//	Byte 38:     Statistical process (Table 4.10)
//	Byte 39:     Type of time increment (Table 4.11)
//	Byte 40:     Unit of time for the statistical range
//	Bytes 41-44: Length of the statistical range
//	Byte 45:     Unit of time for the increment
//	Bytes 46-49: Time increment
func ParseTemplate48(data []byte) (*Template48, error) {
	if len(data) < 49 {
		return nil, fmt.Errorf("template 4.8 requires at least 49 bytes, got %d", len(data))
	}

	prefix, err := ParseTemplate40(data[:25])
	if err != nil {
		return nil, err
	}

	r := wire.NewReader(data)
	if err := r.Skip(25); err != nil {
		return nil, err
	}

	t := &Template48{Template40: *prefix}
	t.EndYear, _ = r.Uint16()
	t.EndMonth, _ = r.Uint8()
	t.EndDay, _ = r.Uint8()
	t.EndHour, _ = r.Uint8()
	t.EndMinute, _ = r.Uint8()
	t.EndSecond, _ = r.Uint8()
	t.NumTimeRanges, _ = r.Uint8()
	t.NumMissingValues, _ = r.Uint32()
	t.StatisticalProcess, _ = r.Uint8()
	t.TimeIncrementType, _ = r.Uint8()
	t.StatUnit, _ = r.Uint8()
	t.StatLength, _ = r.Uint32()
	t.IncrUnit, _ = r.Uint8()
	t.IncrLength, err = r.Uint32()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TemplateNumber returns 8 for Template 4.8.
func (t *Template48) TemplateNumber() int { return 8 }

// IntervalEnd returns the end of the overall statistical interval.
func (t *Template48) IntervalEnd() time.Time {
	return time.Date(int(t.EndYear), time.Month(t.EndMonth), int(t.EndDay),
		int(t.EndHour), int(t.EndMinute), int(t.EndSecond), 0, time.UTC)
}

// StatisticalDuration returns the length of the statistical range.
func (t *Template48) StatisticalDuration() (time.Duration, bool) {
	return tables.TimeRangeUnitDuration(int(t.StatUnit), t.StatLength)
}

// String returns a human-readable description.
func (t *Template48) String() string {
	process := map[uint8]string{0: "average", 1: "accumulation", 2: "maximum", 3: "minimum"}[t.StatisticalProcess]
	if process == "" {
		process = fmt.Sprintf("process %d", t.StatisticalProcess)
	}
	return fmt.Sprintf("Template 4.8: category=%d number=%d, %s over %d %s",
		t.Category, t.Number, process,
		t.StatLength, tables.GetTimeRangeUnitName(int(t.StatUnit)))
}
