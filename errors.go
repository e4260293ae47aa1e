package stamp

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned when the renderer could not supply a pixel buffer,
	// e.g. because the source photo could not be decoded.
	ErrSourceUnavailable = errors.New("stamp source unavailable")

	// ErrPaletteOverflow signals a palette with more than 256 entries or more than one
	// transparent entry. It is an internal invariant violation.
	ErrPaletteOverflow = errors.New("palette overflow")

	// ErrEncodeFailure wraps any failure raised while writing the output image.
	ErrEncodeFailure = errors.New("encode failure")
)

// SourceError describes a failed attempt to obtain the source pixel buffer.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrSourceUnavailable)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrSourceUnavailable, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SourceError) Unwrap() error { return e.Err }

// Is reports ErrSourceUnavailable as a match, so callers can test the error kind
// without knowing the cause.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// encodeError marks err as an encoding failure.
func encodeError(err error) error {
	if err == nil || errors.Is(err, ErrEncodeFailure) || errors.Is(err, ErrPaletteOverflow) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEncodeFailure, err)
}
