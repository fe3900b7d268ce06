package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType discriminates stream events
type EventType string

const (
	EventReasoning EventType = "reasoning"
	EventContent   EventType = "content"
	EventSource    EventType = "source"
	EventStatus    EventType = "status"
	EventFiles     EventType = "files"
)

// Known reports whether t is an event type this client understands
func (t EventType) Known() bool {
	switch t {
	case EventReasoning, EventContent, EventSource, EventStatus, EventFiles:
		return true
	}
	return false
}

// FileRef is the structured payload of a files event
type FileRef struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
}

// StreamEvent is the decoded payload of one frame.
//
// The wire "content" field is either a string or a JSON object. For strings,
// Content holds the text and Object is nil. For anything else, Object holds
// the raw JSON and Content its compact text form.
type StreamEvent struct {
	Type    EventType
	Content string
	Object  json.RawMessage
}

// IsText reports whether the payload was a JSON string
func (e StreamEvent) IsText() bool {
	return e.Object == nil
}

// File extracts a FileRef from an object payload. It reports false unless
// both fileName and filePath are present and non-empty.
func (e StreamEvent) File() (FileRef, bool) {
	if e.Object == nil {
		return FileRef{}, false
	}
	var ref FileRef
	if err := json.Unmarshal(e.Object, &ref); err != nil {
		return FileRef{}, false
	}
	if ref.FileName == "" || ref.FilePath == "" {
		return FileRef{}, false
	}
	return ref, true
}

type wireEvent struct {
	Type    EventType       `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// UnmarshalJSON decodes the string-or-object content union
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = StreamEvent{Type: w.Type}

	raw := bytes.TrimSpace(w.Content)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		return json.Unmarshal(raw, &e.Content)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return fmt.Errorf("compact content: %w", err)
	}
	e.Object = json.RawMessage(compact.Bytes())
	e.Content = compact.String()
	return nil
}

// MarshalJSON encodes the event in its wire form
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: e.Type}
	if e.Object != nil {
		w.Content = e.Object
	} else {
		text, err := json.Marshal(e.Content)
		if err != nil {
			return nil, err
		}
		w.Content = text
	}
	return json.Marshal(w)
}

// NewTextEvent builds an event with a string payload
func NewTextEvent(t EventType, content string) StreamEvent {
	return StreamEvent{Type: t, Content: content}
}

// NewFilesEvent builds a files event
func NewFilesEvent(ref FileRef) StreamEvent {
	raw, _ := json.Marshal(ref)
	return StreamEvent{Type: EventFiles, Content: string(raw), Object: raw}
}
