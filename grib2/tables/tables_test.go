package tables

import "testing"

func TestParameterLookup(t *testing.T) {
	if got := GetParameterName(0, 0, 0); got != "Temperature" {
		t.Errorf("GetParameterName(0,0,0) = %q, want Temperature", got)
	}
	if got := GetParameterUnit(0, 2, 2); got != "m/s" {
		t.Errorf("GetParameterUnit(0,2,2) = %q, want m/s", got)
	}
	if got := GetParameterName(0, 0, 250); got != "Parameter 0.0.250" {
		t.Errorf("unknown parameter fallback = %q", got)
	}
}

func TestShortNameModelQualified(t *testing.T) {
	// HRRR simulated reflectivity and MRMS merged reflectivity must not
	// resolve to the same layer name.
	hrrr := GetShortName("hrrr", 0, 16, 196)
	mrms := GetShortName("mrms", 209, 3, 0)
	if hrrr == mrms {
		t.Fatalf("hrrr and mrms reflectivity collide on %q", hrrr)
	}
	if hrrr != "REFC" {
		t.Errorf("hrrr REFC = %q", hrrr)
	}
	if mrms != "MergedReflectivity" {
		t.Errorf("mrms merged reflectivity = %q", mrms)
	}
}

func TestShortNameFallsBackToWMO(t *testing.T) {
	if got := GetShortName("gfs", 0, 0, 0); got != "TMP" {
		t.Errorf("GetShortName(gfs, TMP) = %q", got)
	}
}

func TestLevelTable(t *testing.T) {
	if got := GetLevelName(100); got != "Isobaric" {
		t.Errorf("GetLevelName(100) = %q", got)
	}
	if got := GetLevelUnit(103); got != "m" {
		t.Errorf("GetLevelUnit(103) = %q", got)
	}
}

func TestTimeRangeUnitDuration(t *testing.T) {
	d, ok := TimeRangeUnitDuration(1, 6)
	if !ok || d.Hours() != 6 {
		t.Errorf("TimeRangeUnitDuration(hour, 6) = %v, %v", d, ok)
	}
	if _, ok := TimeRangeUnitDuration(3, 1); ok {
		t.Error("months should not convert to a fixed duration")
	}
}
