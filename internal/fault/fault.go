// Package fault defines the two error kinds shared by the atlas and the scene:
// fatal invariant violations that abort an operation, and missing resources
// that callers are expected to tolerate.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrFatal marks a programmer error or broken invariant. The operation
	// that returned it did not complete and must not be retried as-is.
	ErrFatal = errors.New("fatal")

	// ErrMissing marks a resource that could not be resolved. The affected
	// tile renders blank.
	ErrMissing = errors.New("missing resource")
)

// Fatalf returns an error wrapping ErrFatal.
func Fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}

// Missingf returns an error wrapping ErrMissing.
func Missingf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMissing, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err is, or wraps, ErrFatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsMissing reports whether err is, or wraps, ErrMissing.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissing)
}
