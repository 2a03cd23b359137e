package tables

import "fmt"

// WMO Code Table 4.2: Parameter number by discipline and category.
//
// Keys are packed as discipline<<16 | category<<8 | number. The table
// carries the WMO standard entries for the parameters the supported data
// sources publish, plus the NCEP local range (192+) where GFS/HRRR use it.

func paramKey(discipline, category, number int) int {
	return discipline<<16 | category<<8 | number
}

var parameterEntries = map[int]*Entry{
	// Discipline 0, category 0: temperature
	paramKey(0, 0, 0):  {0, "Temperature", "Temperature", "K"},
	paramKey(0, 0, 2):  {2, "Potential Temperature", "Potential temperature", "K"},
	paramKey(0, 0, 6):  {6, "Dew Point", "Dew point temperature", "K"},
	paramKey(0, 0, 17): {17, "Skin Temperature", "Skin temperature", "K"},

	// Discipline 0, category 1: moisture
	paramKey(0, 1, 0):  {0, "Specific Humidity", "Specific humidity", "kg/kg"},
	paramKey(0, 1, 1):  {1, "Relative Humidity", "Relative humidity", "%"},
	paramKey(0, 1, 7):  {7, "Precipitation Rate", "Precipitation rate", "kg/m2/s"},
	paramKey(0, 1, 8):  {8, "Total Precipitation", "Total precipitation", "kg/m2"},
	paramKey(0, 1, 13): {13, "Water Equivalent of Snow", "Water equivalent of accumulated snow depth", "kg/m2"},

	// Discipline 0, category 2: momentum
	paramKey(0, 2, 1):  {1, "Wind Speed", "Wind speed", "m/s"},
	paramKey(0, 2, 2):  {2, "U-Component of Wind", "U-component of wind", "m/s"},
	paramKey(0, 2, 3):  {3, "V-Component of Wind", "V-component of wind", "m/s"},
	paramKey(0, 2, 22): {22, "Wind Gust", "Wind speed (gust)", "m/s"},

	// Discipline 0, category 3: mass
	paramKey(0, 3, 0): {0, "Pressure", "Pressure", "Pa"},
	paramKey(0, 3, 1): {1, "MSLP", "Pressure reduced to MSL", "Pa"},
	paramKey(0, 3, 5): {5, "Geopotential Height", "Geopotential height", "gpm"},

	// Discipline 0, category 6: cloud
	paramKey(0, 6, 1): {1, "Total Cloud Cover", "Total cloud cover", "%"},

	// Discipline 0, category 7: stability
	paramKey(0, 7, 6): {6, "CAPE", "Convective available potential energy", "J/kg"},
	paramKey(0, 7, 7): {7, "CIN", "Convective inhibition", "J/kg"},

	// Discipline 0, category 16: forecast radar imagery (NCEP local)
	paramKey(0, 16, 196): {196, "Composite Reflectivity", "Composite radar reflectivity", "dBZ"},
	paramKey(0, 16, 198): {198, "Simulated Reflectivity AGL", "Simulated reflectivity at height above ground", "dBZ"},

	// Discipline 0, category 19: physical atmospheric
	paramKey(0, 19, 0): {0, "Visibility", "Visibility", "m"},

	// Discipline 2, category 0: land surface / vegetation
	paramKey(2, 0, 0): {0, "Land Cover", "Land cover (1=land, 0=sea)", ""},

	// Discipline 10, category 3: oceanographic surface properties
	paramKey(10, 3, 0): {0, "Water Temperature", "Water temperature", "K"},

	// Discipline 209: MRMS local products
	paramKey(209, 3, 0): {0, "Merged Reflectivity", "MRMS merged base reflectivity", "dBZ"},
	paramKey(209, 6, 1): {1, "Precipitation Flag", "MRMS surface precipitation type", ""},
}

// GetParameterName returns the parameter name for a (discipline, category,
// number) tuple, or a numeric fallback.
func GetParameterName(discipline, category, number int) string {
	if e, ok := parameterEntries[paramKey(discipline, category, number)]; ok {
		return e.Name
	}
	return fmt.Sprintf("Parameter %d.%d.%d", discipline, category, number)
}

// GetParameterUnit returns the physical unit for a parameter, or "".
func GetParameterUnit(discipline, category, number int) string {
	if e, ok := parameterEntries[paramKey(discipline, category, number)]; ok {
		return e.Unit
	}
	return ""
}

// shortNames maps parameters to the wgrib2-style abbreviations that tile
// layers are named with.
var shortNames = map[int]string{
	paramKey(0, 0, 0):    "TMP",
	paramKey(0, 0, 2):    "POT",
	paramKey(0, 0, 6):    "DPT",
	paramKey(0, 1, 0):    "SPFH",
	paramKey(0, 1, 1):    "RH",
	paramKey(0, 1, 7):    "PRATE",
	paramKey(0, 1, 8):    "APCP",
	paramKey(0, 1, 13):   "WEASD",
	paramKey(0, 2, 1):    "WIND",
	paramKey(0, 2, 2):    "UGRD",
	paramKey(0, 2, 3):    "VGRD",
	paramKey(0, 2, 22):   "GUST",
	paramKey(0, 3, 0):    "PRES",
	paramKey(0, 3, 1):    "PRMSL",
	paramKey(0, 3, 5):    "HGT",
	paramKey(0, 6, 1):    "TCDC",
	paramKey(0, 7, 6):    "CAPE",
	paramKey(0, 7, 7):    "CIN",
	paramKey(0, 16, 196): "REFC",
	paramKey(0, 19, 0):   "VIS",
	paramKey(10, 3, 0):   "WTMP",
}

// Model-qualified overrides. MRMS and HRRR both serve reflectivity; the
// catalog keys layers as {model}_{parameter}, so the short names must
// diverge by model or the two products collide.
var modelShortNames = map[string]map[int]string{
	"mrms": {
		paramKey(209, 3, 0): "MergedReflectivity",
		paramKey(209, 6, 1): "PrecipFlag",
	},
	"hrrr": {
		paramKey(0, 16, 196): "REFC",
		paramKey(0, 16, 198): "REFD",
	},
}

// GetShortName returns the layer-naming abbreviation for a parameter as
// produced by model. Model-local tables win over the WMO defaults.
func GetShortName(model string, discipline, category, number int) string {
	key := paramKey(discipline, category, number)
	if local, ok := modelShortNames[model]; ok {
		if s, ok := local[key]; ok {
			return s
		}
	}
	if s, ok := shortNames[key]; ok {
		return s
	}
	return fmt.Sprintf("P%d_%d_%d", discipline, category, number)
}
