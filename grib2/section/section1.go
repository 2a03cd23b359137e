package section

import (
	"fmt"
	"time"

	"github.com/driftline/stratus/grib2/tables"
)

// Section1 represents the GRIB2 Identification Section: message origin,
// reference time, and type of data. Variable length, minimum 21 bytes.
type Section1 struct {
	Length               uint32
	OriginatingCenter    uint16 // Originating/generating center (Common Table C-1)
	OriginatingSubcenter uint16
	MasterTablesVersion  uint8
	LocalTablesVersion   uint8
	RefTimeSignificance  uint8     // Significance of reference time (Table 1.2)
	ReferenceTime        time.Time // UTC
	ProductionStatus     uint8     // Table 1.3
	TypeOfData           uint8     // Table 1.4
}

// ParseSection1 parses the Identification Section:
//
//	Bytes 1-4:   Length of section
//	Byte 5:      Section number (1)
//	Bytes 6-7:   Originating center
//	Bytes 8-9:   Originating sub-center
//	Byte 10:     Master tables version
//	Byte 11:     Local tables version
//	Byte 12:     Significance of reference time
//	Bytes 13-14: Year
//	Byte 15:     Month
//	Byte 16:     Day
//	Byte 17:     Hour
//	Byte 18:     Minute
//	Byte 19:     Second
//	Byte 20:     Production status
//	Byte 21:     Type of processed data
func ParseSection1(data []byte) (*Section1, error) {
	r, length, err := parseHeader(data, 1, 21)
	if err != nil {
		return nil, err
	}

	center, _ := r.Uint16()
	subcenter, _ := r.Uint16()
	masterVersion, _ := r.Uint8()
	localVersion, _ := r.Uint8()
	significance, _ := r.Uint8()
	year, _ := r.Uint16()
	month, _ := r.Uint8()
	day, _ := r.Uint8()
	hour, _ := r.Uint8()
	minute, _ := r.Uint8()
	second, _ := r.Uint8()
	status, _ := r.Uint8()
	dataType, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	if day < 1 || day > 31 {
		return nil, fmt.Errorf("invalid day %d", day)
	}
	if hour > 23 || minute > 59 || second > 60 {
		return nil, fmt.Errorf("invalid time %02d:%02d:%02d", hour, minute, second)
	}

	return &Section1{
		Length:               length,
		OriginatingCenter:    center,
		OriginatingSubcenter: subcenter,
		MasterTablesVersion:  masterVersion,
		LocalTablesVersion:   localVersion,
		RefTimeSignificance:  significance,
		ReferenceTime: time.Date(int(year), time.Month(month), int(day),
			int(hour), int(minute), int(second), 0, time.UTC),
		ProductionStatus: status,
		TypeOfData:       dataType,
	}, nil
}

// CenterName returns the human-readable originating center name.
func (s *Section1) CenterName() string {
	return tables.GetCenterName(int(s.OriginatingCenter))
}

// ProductionStatusName returns the human-readable production status.
func (s *Section1) ProductionStatusName() string {
	return tables.GetProductionStatusName(int(s.ProductionStatus))
}

// DataTypeName returns the human-readable processed data type.
func (s *Section1) DataTypeName() string {
	return tables.GetDataTypeName(int(s.TypeOfData))
}
