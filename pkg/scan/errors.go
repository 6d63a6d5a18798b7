package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatch is wrapped by decoders for bytes that are not a record of
	// their format. It is the expected outcome at almost every offset.
	ErrMismatch = errors.New("not a record")

	// ErrFatalConfig is returned before scanning starts when the scan can
	// not run at all.
	ErrFatalConfig = errors.New("invalid scan configuration")
)

// Mismatch returns an error wrapping ErrMismatch.
func Mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMismatch, fmt.Sprintf(format, args...))
}

// DecodeFault is a panic raised by a decoder and recovered by the scanner.
type DecodeFault struct {
	Format string
	Offset int64
	Value  any
}

func (f *DecodeFault) Error() string {
	return fmt.Sprintf("%s decoder fault at 0x%X: %v", f.Format, f.Offset, f.Value)
}

// Unwrap returns the panic value when it was an error.
func (f *DecodeFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}
