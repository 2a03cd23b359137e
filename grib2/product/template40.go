package product

import (
	"fmt"
	"time"

	"github.com/driftline/stratus/grib2/internal/wire"
	"github.com/driftline/stratus/grib2/tables"
)

// Template40 represents Product Definition Template 4.0: analysis or
// forecast at a horizontal level or layer at a point in time. This is the
// product template used by the vast majority of forecast output.
type Template40 struct {
	Category           uint8 // Parameter category (Table 4.1)
	Number             uint8 // Parameter number (Table 4.2)
	GeneratingProcess  uint8 // Type of generating process (Table 4.3)
	BackgroundProcess  uint8
	ForecastProcess    uint8
	HoursAfterCutoff   uint16
	MinutesAfterCutoff uint8
	TimeRangeUnit      uint8  // Indicator of unit of time range (Table 4.4)
	ForecastTime       uint32 // Forecast time in TimeRangeUnit units
	FirstSurfaceType   uint8  // Type of first fixed surface (Table 4.5)
	FirstSurfaceScale  uint8
	FirstSurfaceValue  uint32
	SecondSurfaceType  uint8
	SecondSurfaceScale uint8
	SecondSurfaceValue uint32
}

// ParseTemplate40 parses Product Definition Template 4.0 from the
// template-specific bytes following the Section 4 header:
//
//	Byte 1:      Parameter category
//	Byte 2:      Parameter number
//	Byte 3:      Type of generating process
//	Byte 4:      Background generating process identifier
//	Byte 5:      Analysis or forecast generating process identifier
//	Bytes 6-7:   Hours after data cutoff
//	Byte 8:      Minutes after data cutoff
//	Byte 9:      Indicator of unit of time range
//	Bytes 10-13: Forecast time
//	Byte 14:     Type of first fixed surface
//	Byte 15:     Scale factor of first fixed surface
//	Bytes 16-19: Scaled value of first fixed surface
//	Byte 20:     Type of second fixed surface
//	Byte 21:     Scale factor of second fixed surface
//	Bytes 22-25: Scaled value of second fixed surface
func ParseTemplate40(data []byte) (*Template40, error) {
	if len(data) < 25 {
		return nil, fmt.Errorf("template 4.0 requires at least 25 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)

	t := &Template40{}
	t.Category, _ = r.Uint8()
	t.Number, _ = r.Uint8()
	t.GeneratingProcess, _ = r.Uint8()
	t.BackgroundProcess, _ = r.Uint8()
	t.ForecastProcess, _ = r.Uint8()
	t.HoursAfterCutoff, _ = r.Uint16()
	t.MinutesAfterCutoff, _ = r.Uint8()
	t.TimeRangeUnit, _ = r.Uint8()
	t.ForecastTime, _ = r.Uint32()
	t.FirstSurfaceType, _ = r.Uint8()
	t.FirstSurfaceScale, _ = r.Uint8()
	t.FirstSurfaceValue, _ = r.Uint32()
	t.SecondSurfaceType, _ = r.Uint8()
	t.SecondSurfaceScale, _ = r.Uint8()
	var err error
	t.SecondSurfaceValue, err = r.Uint32()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TemplateNumber returns 0 for Template 4.0.
func (t *Template40) TemplateNumber() int { return 0 }

// ParameterCategory returns the parameter category code.
func (t *Template40) ParameterCategory() uint8 { return t.Category }

// ParameterNumber returns the parameter number code.
func (t *Template40) ParameterNumber() uint8 { return t.Number }

// Level returns the first fixed surface type and its scaled value.
func (t *Template40) Level() (uint8, float64) {
	return t.FirstSurfaceType, scaledSurface(t.FirstSurfaceScale, t.FirstSurfaceValue)
}

// ForecastDuration returns the forecast horizon as a duration.
func (t *Template40) ForecastDuration() (time.Duration, bool) {
	return tables.TimeRangeUnitDuration(int(t.TimeRangeUnit), t.ForecastTime)
}

// String returns a human-readable description.
func (t *Template40) String() string {
	levelType, value := t.Level()
	return fmt.Sprintf("Template 4.0: category=%d number=%d, %s %g, fcst +%d %s",
		t.Category, t.Number,
		tables.GetLevelName(int(levelType)), value,
		t.ForecastTime, tables.GetTimeRangeUnitName(int(t.TimeRangeUnit)))
}
