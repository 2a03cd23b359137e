package tables

// WMO Code Table 4.5: Fixed surface types and units.

var levelTable = NewSimpleTable([]*Entry{
	{1, "Surface", "Ground or water surface", ""},
	{2, "Cloud Base", "Cloud base level", ""},
	{3, "Cloud Top", "Cloud top level", ""},
	{4, "0C Isotherm", "Level of 0 degree C isotherm", ""},
	{5, "Condensation", "Level of adiabatic condensation lifted from the surface", ""},
	{6, "Max Wind", "Maximum wind level", ""},
	{7, "Tropopause", "Tropopause", ""},
	{8, "Nominal Top", "Nominal top of the atmosphere", ""},
	{10, "Atmosphere", "Entire atmosphere", ""},
	{100, "Isobaric", "Isobaric surface", "Pa"},
	{101, "MSL", "Mean sea level", ""},
	{102, "Altitude MSL", "Specific altitude above mean sea level", "m"},
	{103, "Height AGL", "Specified height level above ground", "m"},
	{104, "Sigma", "Sigma level", ""},
	{105, "Hybrid", "Hybrid level", ""},
	{106, "Depth BG", "Depth below land surface", "m"},
	{107, "Isentropic", "Isentropic (theta) level", "K"},
	{108, "Pressure Diff", "Level at specified pressure difference from ground", "Pa"},
	{109, "Potential Vorticity", "Potential vorticity surface", "K m2/(kg s)"},
	{200, "Entire Atmosphere", "Entire atmosphere (considered as a single layer)", ""},
	{220, "PBL", "Planetary boundary layer", ""},
}, "Level")

// GetLevelName returns the short name for a fixed surface type code.
func GetLevelName(code int) string {
	return levelTable.Name(code)
}

// GetLevelDescription returns the description for a fixed surface type code.
func GetLevelDescription(code int) string {
	return levelTable.Description(code)
}

// GetLevelUnit returns the unit for a fixed surface type code.
func GetLevelUnit(code int) string {
	return levelTable.Unit(code)
}
