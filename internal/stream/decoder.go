package stream

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/liliang-cn/askchat/internal/domain"
	"go.uber.org/zap"
)

// DataPrefix opens every payload-carrying frame
const DataPrefix = "data: "

// Parse decodes one frame into a StreamEvent.
//
// Returns ErrNotData for frames without the data prefix (blank frames,
// comments, stray lines) and *MalformedEventError for invalid JSON.
// Unknown event types are returned as-is; callers decide what to do with them.
func Parse(frame string) (domain.StreamEvent, error) {
	if strings.TrimSpace(frame) == "" || !strings.HasPrefix(frame, DataPrefix) {
		return domain.StreamEvent{}, ErrNotData
	}

	var ev domain.StreamEvent
	if err := json.Unmarshal([]byte(frame[len(DataPrefix):]), &ev); err != nil {
		return domain.StreamEvent{}, &MalformedEventError{Frame: frame, Err: err}
	}
	return ev, nil
}

// DecodeStats counts what a Decoder has seen
type DecodeStats struct {
	Events    int
	Ignored   int
	Malformed int
	Unknown   int
}

// Observer is notified about every decode outcome. Implemented by metrics.
type Observer interface {
	EventDecoded(t domain.EventType)
	EventMalformed()
}

// Decoder wraps Parse with the recovery policy: malformed and unknown
// events are logged and dropped, never propagated.
type Decoder struct {
	logger   *zap.Logger
	observer Observer
	stats    DecodeStats
}

// NewDecoder creates a decoder. Both arguments may be nil.
func NewDecoder(logger *zap.Logger, observer Observer) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger, observer: observer}
}

// Decode returns the event carried by frame and whether it should be applied
func (d *Decoder) Decode(frame string) (domain.StreamEvent, bool) {
	ev, err := Parse(frame)
	if err != nil {
		var malformed *MalformedEventError
		switch {
		case errors.Is(err, ErrNotData):
			d.stats.Ignored++
		case errors.As(err, &malformed):
			d.stats.Malformed++
			d.logger.Warn("Dropping malformed stream event",
				zap.String("frame", excerpt(malformed.Frame)),
				zap.Error(malformed.Err),
			)
			if d.observer != nil {
				d.observer.EventMalformed()
			}
		}
		return domain.StreamEvent{}, false
	}

	if !ev.Type.Known() {
		d.stats.Unknown++
		d.logger.Debug("Ignoring unknown stream event type", zap.String("type", string(ev.Type)))
		return domain.StreamEvent{}, false
	}

	d.stats.Events++
	if d.observer != nil {
		d.observer.EventDecoded(ev.Type)
	}
	return ev, true
}

// Stats returns the running counters
func (d *Decoder) Stats() DecodeStats {
	return d.stats
}
