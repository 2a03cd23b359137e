package tables

// WMO Code Table 0.0: Discipline of processed data.

var disciplineTable = NewSimpleTable([]*Entry{
	{0, "Meteorological", "Meteorological products", ""},
	{1, "Hydrological", "Hydrological products", ""},
	{2, "Land Surface", "Land surface products", ""},
	{3, "Satellite Remote Sensing", "Satellite remote sensing products", ""},
	{4, "Space Weather", "Space weather products", ""},
	{10, "Oceanographic", "Oceanographic products", ""},
	{209, "MRMS", "NSSL Multi-Radar Multi-Sensor local products", ""},
}, "Discipline")

// GetDisciplineName returns the short name for a discipline code.
func GetDisciplineName(code int) string {
	return disciplineTable.Name(code)
}

// GetDisciplineDescription returns the full description for a discipline code.
func GetDisciplineDescription(code int) string {
	return disciplineTable.Description(code)
}
