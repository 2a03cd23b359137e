// Package product provides product definition types and parsers for GRIB2
// Section 4.
package product

import (
	"time"
)

// Product represents a GRIB2 product definition (Table 4.0 template).
type Product interface {
	// TemplateNumber returns the product definition template number.
	TemplateNumber() int

	// ParameterCategory returns the parameter category (Table 4.1).
	ParameterCategory() uint8

	// ParameterNumber returns the parameter number (Table 4.2).
	ParameterNumber() uint8

	// Level returns the first fixed surface as (type, scaled value).
	Level() (levelType uint8, value float64)

	// ForecastDuration returns the forecast horizon relative to the
	// reference time. ok is false when the time unit has no fixed
	// duration (months, years).
	ForecastDuration() (d time.Duration, ok bool)

	// String returns a human-readable description.
	String() string
}

// scaledSurface applies the Table 4.5 scaling: value / 10^scale.
func scaledSurface(scale uint8, value uint32) float64 {
	v := float64(value)
	for range scale {
		v /= 10
	}
	return v
}
