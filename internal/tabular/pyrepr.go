package tabular

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v the way Python's repr does: shortest round-trip
// digits, a trailing ".0" on integral values, and scientific notation when
// the decimal exponent is below -4 or at least 16.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatNumber renders a JSON number literal: integers keep their digits,
// anything with a fraction or exponent is rendered as a float.
func FormatNumber(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if s == "-0" {
			return "0"
		}
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return FormatFloat(f)
}

// FormatString renders s as a Python string literal, single-quoted unless
// s contains a single quote and no double quote.
func FormatString(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = '"'
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\x`)
			b.WriteString(strconv.FormatInt(int64(r)|0x100, 16)[1:])
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// FormatFloats renders a Python list of floats.
func FormatFloats(values []float64) string {
	return formatList(len(values), func(i int) string { return FormatFloat(values[i]) })
}

// FormatNumbers renders a Python list of JSON numbers.
func FormatNumbers(values []json.Number) string {
	return formatList(len(values), func(i int) string { return FormatNumber(values[i]) })
}

// FormatStrings renders a Python list of strings.
func FormatStrings(values []string) string {
	return formatList(len(values), func(i int) string { return FormatString(values[i]) })
}

func formatList(n int, item func(int) string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item(i))
	}
	b.WriteByte(']')
	return b.String()
}
