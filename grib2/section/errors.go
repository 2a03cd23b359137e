package section

import (
	"fmt"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// UnsupportedTemplateError indicates a template number this decoder does
// not implement. Message iteration treats it as skippable; decoding a
// message that carries one fails.
type UnsupportedTemplateError struct {
	Section  int // 3 = grid, 4 = product, 5 = data representation
	Template int
}

// Error implements the error interface.
func (e *UnsupportedTemplateError) Error() string {
	name := "unknown"
	switch e.Section {
	case 3:
		name = "grid definition"
	case 4:
		name = "product definition"
	case 5:
		name = "data representation"
	}
	return fmt.Sprintf("unsupported %s template %d in section %d", name, e.Template, e.Section)
}

// parseHeader validates the common prefix of sections 1-7 (length as
// uint32, section number as uint8) and returns a reader positioned just
// past it along with the declared length.
func parseHeader(data []byte, want uint8, minLen int) (*wire.Reader, uint32, error) {
	if len(data) < minLen {
		return nil, 0, fmt.Errorf("section %d must be at least %d bytes, got %d", want, minLen, len(data))
	}

	r := wire.NewReader(data)
	length, _ := r.Uint32()
	if int(length) != len(data) {
		return nil, 0, fmt.Errorf("section %d length mismatch: header says %d bytes, have %d bytes",
			want, length, len(data))
	}
	num, _ := r.Uint8()
	if num != want {
		return nil, 0, fmt.Errorf("expected section %d, got section %d", want, num)
	}
	return r, length, nil
}
