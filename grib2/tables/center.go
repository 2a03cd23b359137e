package tables

// WMO Common Code Table C-1: Identification of originating/generating center.
//
// Only the centers that appear in the supported data sources are listed;
// unknown codes fall back to a numbered name.

var centerTable = NewSimpleTable([]*Entry{
	{7, "NCEP", "US National Centers for Environmental Prediction", ""},
	{8, "NWSTG", "US NWS Telecommunications Gateway", ""},
	{9, "NWS", "US NWS - other", ""},
	{54, "Montreal", "Canadian Meteorological Service - Montreal", ""},
	{57, "AFWA", "US Air Force - Air Force Weather Agency", ""},
	{58, "FNMOC", "US Navy Fleet Numerical Meteorology and Oceanography Center", ""},
	{59, "FSL", "NOAA Forecast Systems Laboratory", ""},
	{60, "NCAR", "National Center for Atmospheric Research", ""},
	{74, "UKMO", "UK Met Office", ""},
	{78, "DWD", "Deutscher Wetterdienst (Offenbach)", ""},
	{85, "Meteo-France", "French Weather Service (Toulouse)", ""},
	{98, "ECMWF", "European Centre for Medium-Range Weather Forecasts", ""},
	{161, "NOAA", "US NOAA Office of Oceanic and Atmospheric Research", ""},
}, "Center")

// GetCenterName returns the short name for an originating center code.
func GetCenterName(code int) string {
	return centerTable.Name(code)
}

// GetCenterDescription returns the full description for a center code.
func GetCenterDescription(code int) string {
	return centerTable.Description(code)
}
