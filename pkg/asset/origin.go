// Package asset carries the identity metadata stamped onto every recovered
// entity, texture and animation.
package asset

import "fmt"

// Origin records where a recovered asset came from.
type Origin struct {
	Name      string // display name: file title plus offset suffix
	Format    string // "base" or "base/sub"
	SubFormat string // set by the decoder for nested containers
	Offset    int64  // absolute offset of the record in the stream
	Index     int    // ordinal among same-kind results at one offset
}

// FormatID joins a base format and an optional sub-format.
func FormatID(base, sub string) string {
	if sub == "" {
		return base
	}
	return base + "/" + sub
}

// DisplayName returns the file title, suffixed with the hex offset when the
// record does not start at the beginning of the file.
func DisplayName(title string, offset int64) string {
	if offset <= 0 {
		return title
	}
	return fmt.Sprintf("%s_%X", title, offset)
}

// String returns "name (format @ 0xOFFSET)".
func (o Origin) String() string {
	return fmt.Sprintf("%s (%s @ 0x%X)", o.Name, o.Format, o.Offset)
}
