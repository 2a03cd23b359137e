package section

// Section7 represents the GRIB2 Data Section: the packed payload whose
// interpretation is owned by the Section 5 representation template.
type Section7 struct {
	Length uint32
	Data   []byte // Packed data, excluding the 5-byte header
}

// ParseSection7 parses the Data Section:
//
//	Bytes 1-4: Length of section
//	Byte 5:    Section number (7)
//	Bytes 6-n: Packed data
//
// The payload aliases the message buffer; unpacking is deferred until a
// caller asks for values.
func ParseSection7(data []byte) (*Section7, error) {
	r, length, err := parseHeader(data, 7, 5)
	if err != nil {
		return nil, err
	}

	packed, err := r.BytesNoCopy(r.Remaining())
	if err != nil {
		return nil, err
	}
	return &Section7{Length: length, Data: packed}, nil
}
