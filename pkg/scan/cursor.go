package scan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated is recorded when a read runs past the end of the stream. It
// wraps ErrMismatch: a record that does not fit is not a record.
var ErrTruncated = fmt.Errorf("%w: truncated read", ErrMismatch)

// windowSize is the span of stream bytes a Cursor keeps buffered. Probes at
// neighbouring offsets are served from it without touching the stream.
const windowSize = 64 << 10

// Cursor is a little-endian reader over a seekable stream. Decoders address
// data relative to a base offset, which the scanner moves to each probe
// position.
//
// The first failed read is sticky: it is kept in Err and every later read
// returns zero values, so decoders can read a whole header and check once.
type Cursor struct {
	r    io.ReadSeeker
	size int64

	base int64
	pos  int64 // absolute
	end  int64 // furthest absolute byte read
	err  error

	win    []byte // stream bytes starting at winOff
	winOff int64

	buf [8]byte
}

// NewCursor wraps r. The stream size is taken by seeking to the end, so r
// must support io.SeekEnd.
func NewCursor(r io.ReadSeeker) (*Cursor, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: stream is not seekable: %v", ErrFatalConfig, err)
	}
	c := &Cursor{r: r, size: size}
	if err := c.Reset(0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFatalConfig, err)
	}
	return c, nil
}

// Reset moves the base and position to the absolute offset base and clears
// the sticky error and read high-water mark.
func (c *Cursor) Reset(base int64) error {
	if base < 0 || base > c.size {
		return fmt.Errorf("base 0x%X outside stream of %d bytes", base, c.size)
	}
	c.base, c.pos, c.end, c.err = base, base, base, nil
	return nil
}

// Size returns the stream length.
func (c *Cursor) Size() int64 { return c.size }

// Base returns the absolute offset format-relative addresses start from.
func (c *Cursor) Base() int64 { return c.base }

// Pos returns the position relative to Base.
func (c *Cursor) Pos() int64 { return c.pos - c.base }

// Abs returns the absolute position.
func (c *Cursor) Abs() int64 { return c.pos }

// End returns the absolute offset one past the furthest byte read since the
// last Reset.
func (c *Cursor) End() int64 { return c.end }

// Remaining returns the bytes between the position and the end of stream.
func (c *Cursor) Remaining() int64 { return c.size - c.pos }

// Err returns the first read error since the last Reset.
func (c *Cursor) Err() error { return c.err }

// SeekRel moves to off bytes past Base.
func (c *Cursor) SeekRel(off int64) {
	if c.err != nil {
		return
	}
	abs := c.base + off
	if off < 0 || abs > c.size {
		c.err = fmt.Errorf("%w: seek to +0x%X outside stream of %d bytes", ErrTruncated, off, c.size)
		return
	}
	c.pos = abs
}

// Skip advances n bytes without reading them.
func (c *Cursor) Skip(n int64) {
	c.SeekRel(c.Pos() + n)
}

// Read implements io.Reader. A short read is recorded as the sticky error.
func (c *Cursor) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.readAt(p, c.pos)
	c.pos += int64(n)
	if c.pos > c.end {
		c.end = c.pos
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: wanted %d bytes at 0x%X", ErrTruncated, len(p), c.pos-int64(n))
		}
		c.err = err
		return n, err
	}
	return n, nil
}

// readAt fills p from absolute offset off, through the window unless p is
// larger than it.
func (c *Cursor) readAt(p []byte, off int64) (int, error) {
	if len(p) > windowSize {
		if _, err := c.r.Seek(off, io.SeekStart); err != nil {
			return 0, err
		}
		return io.ReadFull(c.r, p)
	}
	if off < c.winOff || off+int64(len(p)) > c.winOff+int64(len(c.win)) {
		if err := c.slide(off); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.win[off-c.winOff:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// slide refills the window starting at off. A window cut short by the end
// of the stream is not an error.
func (c *Cursor) slide(off int64) error {
	if cap(c.win) == 0 {
		c.win = make([]byte, windowSize)
	}
	c.win = c.win[:0]
	c.winOff = off
	if _, err := c.r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(c.r, c.win[:cap(c.win)])
	c.win = c.win[:n]
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}

// Bytes reads n bytes into a new slice. It returns nil after an error.
func (c *Cursor) Bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || int64(n) > c.Remaining() {
		c.err = fmt.Errorf("%w: wanted %d bytes at 0x%X", ErrTruncated, n, c.pos)
		return nil
	}
	b := make([]byte, n)
	if _, err := c.Read(b); err != nil {
		return nil
	}
	return b
}

func (c *Cursor) fill(n int) []byte {
	b := c.buf[:n]
	if c.err != nil {
		clear(b)
		return b
	}
	if _, err := c.Read(b); err != nil {
		clear(b)
	}
	return b
}

// U8 reads one byte.
func (c *Cursor) U8() uint8 { return c.fill(1)[0] }

// U16 reads a little-endian uint16.
func (c *Cursor) U16() uint16 { return binary.LittleEndian.Uint16(c.fill(2)) }

// U32 reads a little-endian uint32.
func (c *Cursor) U32() uint32 { return binary.LittleEndian.Uint32(c.fill(4)) }

// I8 reads a signed byte.
func (c *Cursor) I8() int8 { return int8(c.U8()) }

// I16 reads a little-endian int16.
func (c *Cursor) I16() int16 { return int16(c.U16()) }

// I32 reads a little-endian int32.
func (c *Cursor) I32() int32 { return int32(c.U32()) }

// U32s reads n little-endian uint32 words.
func (c *Cursor) U32s(n int) []uint32 {
	raw := c.Bytes(n * 4)
	if raw == nil {
		return nil
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words
}
