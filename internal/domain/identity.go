package domain

import (
	"fmt"
	"strings"
)

const (
	// trailingDigits is how many digits are cut from the end of a
	// timestamp's digit string (sub-second and offset digits in the
	// upstream format).
	trailingDigits = 8

	indexWidth = 3
)

// RenderTimestamp returns the full textual form of a timestamp, separators,
// fraction and offset included.
func RenderTimestamp(ts Timestamp) string {
	return ts.String()
}

// DigitsOnly keeps the ASCII decimal digits of s, in order.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// TruncateDigits drops the trailing 8 digits. Strings that are not longer
// than that collapse to "".
func TruncateDigits(digits string) string {
	if len(digits) <= trailingDigits {
		return ""
	}
	return digits[:len(digits)-trailingDigits]
}

// PadIndex renders a batch ordinal zero-padded to at least three digits.
func PadIndex(index int) string {
	return fmt.Sprintf("%0*d", indexWidth, index)
}

// TimestampKey is the timestamp segment of an event ID.
func TimestampKey(ts Timestamp) string {
	return TruncateDigits(DigitsOnly(RenderTimestamp(ts)))
}

// IsDegenerateTimestamp reports whether ts leaves an empty timestamp segment.
func IsDegenerateTimestamp(ts Timestamp) bool {
	return TimestampKey(ts) == ""
}

// EventID builds "<prefix>_<timestamp key>_<index>", or
// "<timestamp key>_<index>" when prefix is empty.
func EventID(prefix string, ts Timestamp, index int) string {
	id := TimestampKey(ts) + "_" + PadIndex(index)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
