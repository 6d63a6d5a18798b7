// Package encoding decodes the Shift-JIS labels embedded in PSX asset headers.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ShiftJISToUTF8 converts Shift-JIS encoded bytes to a UTF-8 string.
// Returns the bytes as-is if conversion fails.
func ShiftJISToUTF8(data []byte) string {
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToShiftJIS converts a UTF-8 string to Shift-JIS bytes.
// Returns the original bytes if conversion fails.
func UTF8ToShiftJIS(s string) []byte {
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// FixedStringToUTF8 converts a fixed-size, null-terminated Shift-JIS field.
// Trailing spaces, which some tools pad with instead of nulls, are dropped.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return strings.TrimRight(ShiftJISToUTF8(data), " ")
}

// UTF8ToFixedString encodes s into a null-padded field of size bytes.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToShiftJIS(s))
	return result
}

// Printable reports whether a decoded label looks like text rather than
// noise: no control characters and no replacement runes.
func Printable(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7F || r == '\uFFFD' {
			return false
		}
	}
	return true
}
