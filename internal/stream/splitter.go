package stream

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FrameDelimiter terminates every frame on the wire
const FrameDelimiter = "\n\n"

// Splitter turns raw response bytes into complete frames.
//
// Bytes are decoded incrementally: an incomplete multi-byte sequence at the
// end of a chunk is held back until the next chunk completes it. Text after
// the last delimiter is kept until a later chunk terminates it.
type Splitter struct {
	dec     transform.Transformer
	undec   []byte
	pending string
}

// NewSplitter creates a splitter. When strict is set, invalid UTF-8 makes
// Feed fail; otherwise invalid bytes are replaced with U+FFFD.
func NewSplitter(strict bool) *Splitter {
	var dec transform.Transformer = encoding.UTF8Validator
	if !strict {
		dec = unicode.UTF8.NewDecoder()
	}
	return &Splitter{dec: dec}
}

// Feed appends chunk and returns every frame completed by it, in order.
// Returned frames do not include the delimiter.
func (s *Splitter) Feed(chunk []byte) ([]string, error) {
	text, err := s.decode(chunk)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	buf := s.pending + text
	parts := strings.Split(buf, FrameDelimiter)
	s.pending = parts[len(parts)-1]
	return parts[:len(parts)-1], nil
}

// Pending returns the decoded text still waiting for a delimiter
func (s *Splitter) Pending() string {
	return s.pending
}

// Reset drops all carried-over state
func (s *Splitter) Reset() {
	s.dec.Reset()
	s.undec = nil
	s.pending = ""
}

func (s *Splitter) decode(chunk []byte) (string, error) {
	src := chunk
	if len(s.undec) > 0 {
		src = append(s.undec, chunk...)
	}

	// U+FFFD is three bytes, so three times the input always fits.
	dst := make([]byte, 3*len(src)+4)
	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := s.dec.Transform(dst, src, false)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
		case errors.Is(err, transform.ErrShortSrc):
			s.undec = append([]byte(nil), src...)
			return out.String(), nil
		case errors.Is(err, transform.ErrShortDst) && (nDst > 0 || nSrc > 0):
		default:
			return "", fmt.Errorf("decode chunk: %w", err)
		}
	}
	s.undec = nil
	return out.String(), nil
}
