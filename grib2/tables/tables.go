// Package tables provides WMO code table lookups for GRIB2 metadata.
//
// GRIB2 encodes nearly all of its metadata through numbered WMO code
// tables. This package keeps those tables as Go data structures (maps and
// slices) so lookups are O(1) and adding local-table entries is a data
// change, not new parsing code.
//
// Parameter lookups are model-qualified where it matters: MRMS and HRRR
// both publish reflectivity products under local table numbers that
// collide, so short-name resolution takes the producing model into
// account.
package tables

import "fmt"

// Entry represents a single entry in a WMO code table.
type Entry struct {
	Code        int    // Numeric code
	Name        string // Short name (e.g., "Temperature")
	Description string // Full description
	Unit        string // Unit of measurement, if applicable
}

// SimpleTable is a map-backed code table.
type SimpleTable struct {
	entries      map[int]*Entry
	fallbackName string
}

// NewSimpleTable creates a SimpleTable from a slice of entries.
func NewSimpleTable(entries []*Entry, fallbackName string) *SimpleTable {
	m := make(map[int]*Entry, len(entries))
	for _, e := range entries {
		m[e.Code] = e
	}
	return &SimpleTable{entries: m, fallbackName: fallbackName}
}

// Lookup returns the entry for code, or nil if absent.
func (t *SimpleTable) Lookup(code int) *Entry {
	return t.entries[code]
}

// Name returns the short name for code, or a fallback string.
func (t *SimpleTable) Name(code int) string {
	if e := t.entries[code]; e != nil {
		return e.Name
	}
	return fmt.Sprintf("%s %d", t.fallbackName, code)
}

// Description returns the full description for code, or a fallback string.
func (t *SimpleTable) Description(code int) string {
	if e := t.entries[code]; e != nil {
		return e.Description
	}
	return fmt.Sprintf("Unknown %s %d", t.fallbackName, code)
}

// Unit returns the unit string for code, or "".
func (t *SimpleTable) Unit(code int) string {
	if e := t.entries[code]; e != nil {
		return e.Unit
	}
	return ""
}

// Exists reports whether code exists in the table.
func (t *SimpleTable) Exists(code int) bool {
	_, ok := t.entries[code]
	return ok
}
