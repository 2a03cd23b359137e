package section

// Section2 represents the GRIB2 Local Use Section. Its contents are
// center-defined; the bytes are kept verbatim for callers that understand
// the originating center's conventions (MRMS stores product strings here).
type Section2 struct {
	Length uint32
	Data   []byte // Local use data, excluding the 5-byte header
}

// ParseSection2 parses the Local Use Section:
//
//	Bytes 1-4: Length of section
//	Byte 5:    Section number (2)
//	Bytes 6-n: Local use data
func ParseSection2(data []byte) (*Section2, error) {
	r, length, err := parseHeader(data, 2, 5)
	if err != nil {
		return nil, err
	}

	local, err := r.Bytes(r.Remaining())
	if err != nil {
		return nil, err
	}
	return &Section2{Length: length, Data: local}, nil
}
