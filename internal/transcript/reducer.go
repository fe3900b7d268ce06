package transcript

import (
	"strings"

	"github.com/liliang-cn/askchat/internal/domain"
	"go.uber.org/zap"
)

// StatusPlaceholder replaces the payload of status heartbeats
const StatusPlaceholder = " . "

// Mode selects how reasoning events accumulate
type Mode string

const (
	// ModeSnapshot treats every reasoning payload as the full current text
	ModeSnapshot Mode = "snapshot"
	// ModeChunked appends every reasoning payload to the running text
	ModeChunked Mode = "chunked"
)

// ParseMode maps a configuration value to a Mode. Anything other than
// "chunked" means snapshot.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeChunked)) {
		return ModeChunked
	}
	return ModeSnapshot
}

// Filter post-processes text before it is written to a message. It never
// sees or alters the accumulators.
type Filter func(string) string

// ReducerOptions configures a Reducer
type ReducerOptions struct {
	Mode   Mode
	Filter Filter
	Logger *zap.Logger
}

// Reducer folds the events of one stream session into a transcript message.
// It owns the session accumulators and is not safe for concurrent Apply calls.
type Reducer struct {
	t      *Transcript
	target int
	mode   Mode
	filter Filter
	logger *zap.Logger

	content   strings.Builder
	reasoning string
}

// NewReducer creates a reducer writing into the message at target, or into
// the last message when target is LastMessage
func NewReducer(t *Transcript, target int, opts ReducerOptions) *Reducer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeSnapshot
	}
	return &Reducer{
		t:      t,
		target: target,
		mode:   mode,
		filter: opts.Filter,
		logger: logger,
	}
}

// Apply folds one event
func (r *Reducer) Apply(ev domain.StreamEvent) {
	switch ev.Type {
	case domain.EventReasoning, domain.EventStatus:
		text := ev.Content
		if ev.Type == domain.EventStatus {
			text = StatusPlaceholder
		}
		if r.mode == ModeChunked {
			r.reasoning += text
		} else {
			r.reasoning = text
		}
		value := r.render(r.reasoning)
		r.t.UpdateAssistant(r.target, func(m *domain.Message) {
			m.Reasoning = value
		})

	case domain.EventContent:
		r.content.WriteString(ev.Content)
		r.writeContent()

	case domain.EventSource:
		if !ev.IsText() {
			r.logger.Warn("Ignoring source event with non-string content", zap.String("content", ev.Content))
			return
		}
		payload := strings.TrimSpace(ev.Content)
		if payload == "" {
			return
		}
		r.t.UpdateAssistant(r.target, func(m *domain.Message) {
			if looksLikeURL(payload) {
				m.Sources = attachURL(m.Sources, payload)
			} else {
				m.Sources = addName(m.Sources, payload)
			}
		})

	case domain.EventFiles:
		ref, ok := ev.File()
		if !ok {
			r.logger.Debug("Ignoring files event without fileName/filePath", zap.String("content", ev.Content))
			return
		}
		r.t.UpdateAssistant(r.target, func(m *domain.Message) {
			m.Sources = upsertFile(m.Sources, ref)
		})
	}
}

// Finish re-asserts the accumulated content on the target message
func (r *Reducer) Finish() {
	if r.content.Len() == 0 {
		return
	}
	r.writeContent()
}

// Content returns the content accumulator
func (r *Reducer) Content() string {
	return r.content.String()
}

// Reasoning returns the reasoning accumulator
func (r *Reducer) Reasoning() string {
	return r.reasoning
}

func (r *Reducer) writeContent() {
	value := r.render(r.content.String())
	r.t.UpdateAssistant(r.target, func(m *domain.Message) {
		m.Content = value
	})
}

func (r *Reducer) render(s string) string {
	if r.filter == nil {
		return s
	}
	return r.filter(s)
}
