package tables

import "time"

// WMO Code Table 4.4: Indicator of unit of time range.

var timeRangeUnitTable = NewSimpleTable([]*Entry{
	{0, "Minute", "Minute", ""},
	{1, "Hour", "Hour", ""},
	{2, "Day", "Day", ""},
	{3, "Month", "Month", ""},
	{4, "Year", "Year", ""},
	{10, "3 Hours", "3 hours", ""},
	{11, "6 Hours", "6 hours", ""},
	{12, "12 Hours", "12 hours", ""},
	{13, "Second", "Second", ""},
}, "Time Unit")

// GetTimeRangeUnitName returns the short name for a time range unit code.
func GetTimeRangeUnitName(code int) string {
	return timeRangeUnitTable.Name(code)
}

// TimeRangeUnitDuration converts a (unit, count) pair to a duration.
// Months and years have no fixed duration and return false.
func TimeRangeUnitDuration(unit int, count uint32) (time.Duration, bool) {
	n := time.Duration(count)
	switch unit {
	case 0:
		return n * time.Minute, true
	case 1:
		return n * time.Hour, true
	case 2:
		return n * 24 * time.Hour, true
	case 10:
		return n * 3 * time.Hour, true
	case 11:
		return n * 6 * time.Hour, true
	case 12:
		return n * 12 * time.Hour, true
	case 13:
		return n * time.Second, true
	default:
		return 0, false
	}
}

// WMO Code Table 1.2: Significance of reference time.

var timeSignificanceTable = NewSimpleTable([]*Entry{
	{0, "Analysis", "Analysis", ""},
	{1, "Start of Forecast", "Start of forecast", ""},
	{2, "Verifying Time", "Verifying time of forecast", ""},
	{3, "Observation Time", "Observation time", ""},
}, "Time Significance")

// GetTimeSignificanceName returns the name for a reference time significance code.
func GetTimeSignificanceName(code int) string {
	return timeSignificanceTable.Name(code)
}

// WMO Code Table 1.3: Production status of data.

var productionStatusTable = NewSimpleTable([]*Entry{
	{0, "Operational", "Operational products", ""},
	{1, "Operational Test", "Operational test products", ""},
	{2, "Research", "Research products", ""},
	{3, "Re-analysis", "Re-analysis products", ""},
}, "Production Status")

// GetProductionStatusName returns the name for a production status code.
func GetProductionStatusName(code int) string {
	return productionStatusTable.Name(code)
}

// WMO Code Table 1.4: Type of processed data.

var dataTypeTable = NewSimpleTable([]*Entry{
	{0, "Analysis", "Analysis products", ""},
	{1, "Forecast", "Forecast products", ""},
	{2, "Analysis and Forecast", "Analysis and forecast products", ""},
	{3, "Control Forecast", "Control forecast products", ""},
	{4, "Perturbed Forecast", "Perturbed forecast products", ""},
	{7, "Radar Observations", "Processed radar observations", ""},
	{8, "Event Probability", "Event probability", ""},
}, "Data Type")

// GetDataTypeName returns the name for a processed data type code.
func GetDataTypeName(code int) string {
	return dataTypeTable.Name(code)
}
