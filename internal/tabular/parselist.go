package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errUnterminated = errors.New("unterminated string literal")

// ParseList splits a Python list literal produced by the Format* functions
// back into its elements. String elements are unquoted; other elements are
// returned as written.
func ParseList(cell string) ([]string, error) {
	s := strings.TrimSpace(cell)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("parse list %q: not a list literal", cell)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return []string{}, nil
	}

	var items []string
	for {
		var item string
		var err error
		if s[0] == '\'' || s[0] == '"' {
			item, s, err = readQuoted(s)
			if err != nil {
				return nil, fmt.Errorf("parse list %q: %w", cell, err)
			}
		} else {
			end := strings.IndexByte(s, ',')
			if end < 0 {
				end = len(s)
			}
			item, s = strings.TrimSpace(s[:end]), s[end:]
		}
		items = append(items, item)

		s = strings.TrimSpace(s)
		if s == "" {
			return items, nil
		}
		if s[0] != ',' {
			return nil, fmt.Errorf("parse list %q: expected ',' near %q", cell, s)
		}
		s = strings.TrimSpace(s[1:])
		if s == "" {
			return items, nil // trailing comma
		}
	}
}

// ParseFloatList parses a list literal whose elements are numbers.
func ParseFloatList(cell string) ([]float64, error) {
	items, err := ParseList(cell)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("parse list %q: element %d: %w", cell, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// readQuoted consumes one quoted literal from the front of s.
func readQuoted(s string) (string, string, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), s[i+1:], nil
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'x':
				if i+2 >= len(s) {
					return "", "", errUnterminated
				}
				v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
				if err != nil {
					return "", "", fmt.Errorf("bad escape \\x%s: %w", s[i+1:i+3], err)
				}
				b.WriteByte(byte(v))
				i += 2
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", "", errUnterminated
}
