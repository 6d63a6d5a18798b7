// Package cdsector presents the user data of a raw CD image as one
// contiguous stream, hiding sector headers and error correction bytes.
package cdsector

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrReadOnly is returned by Write.
	ErrReadOnly = errors.New("cd sector reader is read-only")

	// ErrInvalidLayout is returned for a layout whose user area does not
	// fit in its sector.
	ErrInvalidLayout = errors.New("invalid sector layout")
)

// RawSectorSize is the size of a full CD sector.
const RawSectorSize = 2352

// Layout describes where user data sits in each raw sector.
type Layout struct {
	SectorSize  int64
	UserOffset  int64 // bytes of sync and header before the user data
	UserSize    int64
	FirstSector int64 // sectors to skip at the start of the image
}

// Common layouts.
var (
	Mode1      = Layout{SectorSize: RawSectorSize, UserOffset: 16, UserSize: 2048}
	Mode2Form1 = Layout{SectorSize: RawSectorSize, UserOffset: 24, UserSize: 2048}
	Mode2Form2 = Layout{SectorSize: RawSectorSize, UserOffset: 24, UserSize: 2324}
)

// Validate checks that the user area fits in the sector.
func (l Layout) Validate() error {
	if l.SectorSize <= 0 || l.UserSize <= 0 || l.UserOffset < 0 || l.FirstSector < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidLayout, l)
	}
	if l.UserOffset+l.UserSize > l.SectorSize {
		return fmt.Errorf("%w: user area %d+%d exceeds sector of %d", ErrInvalidLayout, l.UserOffset, l.UserSize, l.SectorSize)
	}
	return nil
}

// Reader maps linear user-data positions onto a raw sector image.
type Reader struct {
	raw    io.ReadSeeker
	layout Layout
	size   int64 // user bytes
	pos    int64
}

// NewReader wraps raw. The raw size is taken by seeking to its end.
func NewReader(raw io.ReadSeeker, layout Layout) (*Reader, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	rawSize, err := raw.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("size raw image: %w", err)
	}
	return &Reader{raw: raw, layout: layout, size: userSize(rawSize, layout)}, nil
}

func userSize(rawSize int64, l Layout) int64 {
	avail := rawSize - l.FirstSector*l.SectorSize
	if avail <= 0 {
		return 0
	}
	full := avail / l.SectorSize
	size := full * l.UserSize
	if tail := avail%l.SectorSize - l.UserOffset; tail > 0 {
		size += min(tail, l.UserSize)
	}
	return size
}

// Size returns the number of user bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// RawOffset converts a user-data position to its offset in the raw image.
func (r *Reader) RawOffset(pos int64) int64 {
	l := r.layout
	sector := pos / l.UserSize
	return (l.FirstSector+sector)*l.SectorSize + l.UserOffset + pos%l.UserSize
}

// Read implements io.Reader. A read never spans the gap between two
// sectors' user areas in one call to the underlying stream.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && r.pos < r.size {
		within := r.pos % r.layout.UserSize
		chunk := min(int64(len(p)-n), r.layout.UserSize-within, r.size-r.pos)
		if _, err := r.raw.Seek(r.RawOffset(r.pos), io.SeekStart); err != nil {
			return n, err
		}
		got, err := io.ReadFull(r.raw, p[n:n+int(chunk)])
		n += got
		r.pos += int64(got)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			return n, err
		}
	}
	return n, nil
}

// Seek implements io.Seeker over user-data positions.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return r.pos, fmt.Errorf("cdsector: invalid whence %d", whence)
	}
	if abs < 0 {
		return r.pos, fmt.Errorf("cdsector: negative position %d", abs)
	}
	r.pos = abs
	return abs, nil
}

// Write always fails.
func (r *Reader) Write([]byte) (int, error) {
	return 0, ErrReadOnly
}

// LooksRaw reports whether an image size is a whole number of raw sectors
// and not also a whole number of 2048-byte user sectors.
func LooksRaw(size int64) bool {
	return size > 0 && size%RawSectorSize == 0 && size%2048 != 0
}

var syncPattern = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// Detect inspects the first sector header and, for mode 2, the subheader of
// raw and returns the matching layout. It reports false when the image does not start with a sector sync
// pattern.
func Detect(raw io.ReadSeeker) (Layout, bool) {
	if _, err := raw.Seek(0, io.SeekStart); err != nil {
		return Layout{}, false
	}
	head := make([]byte, 24)
	n, _ := io.ReadFull(raw, head)
	if n < 16 || !bytes.Equal(head[:12], syncPattern) {
		return Layout{}, false
	}
	switch head[15] {
	case 1:
		return Mode1, true
	case 2:
		if n < 24 {
			return Layout{}, false
		}
		// Subheader submode, bit 5 selects form 2.
		if head[18]&0x20 != 0 {
			return Mode2Form2, true
		}
		return Mode2Form1, true
	}
	return Layout{}, false
}
