package stream

import (
	"errors"
	"fmt"
)

// ErrNotData marks a frame that does not carry a "data: " payload
var ErrNotData = errors.New("frame is not a data frame")

// MalformedEventError is returned when a data frame carries invalid JSON.
// It never escapes the Decoder.
type MalformedEventError struct {
	Frame string
	Err   error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %q: %v", excerpt(e.Frame), e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

// StreamReadError represents a failure that ended a stream session,
// preserving how much content had been received before it.
type StreamReadError struct {
	Partial int
	Err     error
}

func (e *StreamReadError) Error() string {
	if e.Partial > 0 {
		return fmt.Sprintf("stream read error (partial content received: %d chars): %v", e.Partial, e.Err)
	}
	return fmt.Sprintf("stream read error: %v", e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

func excerpt(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
