package lockstat

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine reports a structurally broken dump: a missing line
	// terminator, a missing separator, or a section cut short.
	ErrMalformedLine = errors.New("malformed line")
	// ErrLineTooLong reports a line longer than the configured maximum.
	ErrLineTooLong = errors.New("line exceeds maximum length")
)

// LineError locates a parse failure in the input.
type LineError struct {
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *LineError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("line %d: %v (%s): %q", e.Line, e.Err, e.Reason, e.Text)
	}
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
