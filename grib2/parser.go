package grib2

import (
	"bytes"
	"fmt"

	"github.com/driftline/stratus/grib2/section"
)

// MessageBoundary locates one GRIB2 message within a file.
type MessageBoundary struct {
	Start  int    // Byte offset where the message starts
	Length uint64 // Message length in bytes
	Index  int    // Sequential index in the file (0-based)
}

// FindMessages scans data for GRIB2 message boundaries.
//
// The scan locates "GRIB" indicators, reads each message length from
// Section 0, and verifies the trailing "7777" end marker. Bytes between
// messages that are not a GRIB indicator are skipped: real archives
// concatenate forecast files and occasionally pad between them. Each skip
// is reported through warn (which may be nil).
//
// The scan is intentionally shallow - no section content is parsed - so
// boundaries can be found quickly before parallel decoding begins.
func FindMessages(data []byte, warn func(offset int, msg string)) ([]MessageBoundary, error) {
	var boundaries []MessageBoundary
	offset := 0
	index := 0

	for offset < len(data) {
		// Find the next indicator, skipping any padding.
		next := bytes.Index(data[offset:], []byte("GRIB"))
		if next < 0 {
			if warn != nil && len(data)-offset > 0 {
				warn(offset, fmt.Sprintf("%d trailing non-GRIB bytes", len(data)-offset))
			}
			break
		}
		if next > 0 {
			if warn != nil {
				warn(offset, fmt.Sprintf("%d non-GRIB bytes before next message", next))
			}
			offset += next
		}

		if offset+section.Section0Length > len(data) {
			return boundaries, &ParseError{
				Section: -1,
				Offset:  offset,
				Message: fmt.Sprintf("incomplete indicator at end of file: %d bytes remaining", len(data)-offset),
			}
		}

		sec0, err := section.ParseSection0(data[offset : offset+section.Section0Length])
		if err != nil {
			return nil, &ParseError{
				Section:    0,
				Offset:     offset,
				Message:    "failed to parse Section 0",
				Underlying: err,
			}
		}

		end := offset + int(sec0.MessageLength)
		if end > len(data) {
			return boundaries, &ParseError{
				Section: 0,
				Offset:  offset,
				Message: fmt.Sprintf("message length %d exceeds available data (%d bytes from offset %d)",
					sec0.MessageLength, len(data)-offset, offset),
			}
		}
		if string(data[end-4:end]) != section.EndMarker {
			return nil, &InvalidFormatError{
				Offset:  end - 4,
				Message: fmt.Sprintf("expected end marker %q, found %q", section.EndMarker, string(data[end-4:end])),
			}
		}

		boundaries = append(boundaries, MessageBoundary{
			Start:  offset,
			Length: sec0.MessageLength,
			Index:  index,
		})
		offset = end
		index++
	}

	return boundaries, nil
}

// SplitMessages splits data into individual complete GRIB2 messages.
// The returned slices alias data.
func SplitMessages(data []byte) ([][]byte, error) {
	boundaries, err := FindMessages(data, nil)
	if err != nil {
		return nil, err
	}
	messages := make([][]byte, len(boundaries))
	for i, b := range boundaries {
		messages[i] = data[b.Start : b.Start+int(b.Length)]
	}
	return messages, nil
}
