package grib2

import (
	"fmt"

	"github.com/driftline/stratus/grib2/tables"
)

// ParameterID uniquely identifies a GRIB2 parameter by the WMO
// (discipline, category, number) tuple.
type ParameterID struct {
	Discipline uint8 // WMO Code Table 0.0
	Category   uint8 // WMO Code Table 4.1
	Number     uint8 // WMO Code Table 4.2
}

// String returns the full parameter name from the WMO tables.
func (p ParameterID) String() string {
	return tables.GetParameterName(int(p.Discipline), int(p.Category), int(p.Number))
}

// ShortName returns the layer-naming abbreviation for the parameter as
// produced by model (e.g. "TMP", "UGRD"). Model-local tables take
// precedence, which keeps MRMS and HRRR reflectivity distinct.
func (p ParameterID) ShortName(model string) string {
	return tables.GetShortName(model, int(p.Discipline), int(p.Category), int(p.Number))
}

// Unit returns the physical unit of the parameter, or "".
func (p ParameterID) Unit() string {
	return tables.GetParameterUnit(int(p.Discipline), int(p.Category), int(p.Number))
}

// Key returns the compact dotted form used in logs and storage keys.
func (p ParameterID) Key() string {
	return fmt.Sprintf("%d.%d.%d", p.Discipline, p.Category, p.Number)
}
