package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/liliang-cn/askchat/internal/domain"
)

// Encoder writes events in the frame format the Splitter consumes.
// Flushes after every frame when the writer supports it.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one "data: <json>\n\n" frame
func (e *Encoder) Encode(ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "%s%s%s", DataPrefix, data, FrameDelimiter); err != nil {
		return err
	}
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// EncodeFrame renders a single event as a frame string
func EncodeFrame(ev domain.StreamEvent) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return DataPrefix + string(data) + FrameDelimiter, nil
}
