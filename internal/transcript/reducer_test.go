package transcript

import (
	"testing"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversation() *Transcript {
	return New([]domain.Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant},
	})
}

func text(t domain.EventType, s string) domain.StreamEvent {
	return domain.NewTextEvent(t, s)
}

func assistant(t *testing.T, tr *Transcript) domain.Message {
	t.Helper()
	m, ok := tr.At(tr.Len() - 1)
	require.True(t, ok)
	require.Equal(t, domain.RoleAssistant, m.Role)
	return m
}

func TestReducerContent(t *testing.T) {
	t.Run("should append every content payload in order", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})

		r.Apply(text(domain.EventContent, "Hel"))
		assert.Equal(t, "Hel", assistant(t, tr).Content)
		r.Apply(text(domain.EventContent, "lo"))
		assert.Equal(t, "Hello", assistant(t, tr).Content)
		assert.Equal(t, "Hello", r.Content())
	})

	t.Run("should leave content unchanged when draining", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		for _, s := range []string{"a", "b", "c"} {
			r.Apply(text(domain.EventContent, s))
		}
		before := assistant(t, tr).Content
		version := tr.Version()

		r.Finish()
		assert.Equal(t, before, assistant(t, tr).Content)
		assert.Equal(t, "abc", assistant(t, tr).Content)
		assert.Greater(t, tr.Version(), version)
	})

	t.Run("should not touch the transcript when draining nothing", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		version := tr.Version()
		r.Finish()
		assert.Equal(t, version, tr.Version())
	})

	t.Run("should keep content and reasoning independent", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(text(domain.EventContent, "x"))
		r.Apply(text(domain.EventReasoning, "thinking"))
		r.Apply(text(domain.EventContent, "y"))

		m := assistant(t, tr)
		assert.Equal(t, "xy", m.Content)
		assert.Equal(t, "thinking", m.Reasoning)
	})
}

func TestReducerReasoning(t *testing.T) {
	t.Run("snapshot mode replaces", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{Mode: ModeSnapshot})
		r.Apply(text(domain.EventReasoning, "step 1"))
		r.Apply(text(domain.EventReasoning, "step 1, step 2"))
		assert.Equal(t, "step 1, step 2", assistant(t, tr).Reasoning)
	})

	t.Run("chunked mode appends", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{Mode: ModeChunked})
		r.Apply(text(domain.EventReasoning, "step 1"))
		r.Apply(text(domain.EventReasoning, ", step 2"))
		assert.Equal(t, "step 1, step 2", assistant(t, tr).Reasoning)
	})

	t.Run("status writes the placeholder", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(text(domain.EventStatus, "searching documents"))
		assert.Equal(t, StatusPlaceholder, assistant(t, tr).Reasoning)
	})

	t.Run("status heartbeats accumulate in chunked mode", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{Mode: ModeChunked})
		r.Apply(text(domain.EventStatus, ""))
		r.Apply(text(domain.EventStatus, ""))
		assert.Equal(t, StatusPlaceholder+StatusPlaceholder, r.Reasoning())
	})

	t.Run("object payloads are stringified", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(domain.StreamEvent{Type: domain.EventReasoning, Content: `{"step":1}`, Object: []byte(`{"step":1}`)})
		assert.Equal(t, `{"step":1}`, assistant(t, tr).Reasoning)
	})
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeChunked, ParseMode("chunked"))
	assert.Equal(t, ModeChunked, ParseMode(" Chunked "))
	assert.Equal(t, ModeSnapshot, ParseMode(""))
	assert.Equal(t, ModeSnapshot, ParseMode("full"))
}

func TestReducerSources(t *testing.T) {
	t.Run("should de-duplicate a name announced again after its url", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(text(domain.EventSource, "doc.pdf"))
		r.Apply(text(domain.EventSource, "http://x/doc.pdf"))
		r.Apply(text(domain.EventSource, "doc.pdf"))

		assert.Equal(t, []domain.Source{{Name: "doc.pdf", URL: "http://x/doc.pdf"}}, assistant(t, tr).Sources)
	})

	t.Run("should drop an earlier pending duplicate once a url resolves", func(t *testing.T) {
		sources := []domain.Source{{Name: "a.pdf"}, {Name: "b.pdf", URL: "http://b"}, {Name: "a.pdf"}}
		got := attachURL(sources, "http://a")
		assert.Equal(t, []domain.Source{{Name: "b.pdf", URL: "http://b"}, {Name: "a.pdf", URL: "http://a"}}, got)
	})

	t.Run("should attach urls to the last entry", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(text(domain.EventSource, "a.pdf"))
		r.Apply(text(domain.EventSource, "b.pdf"))
		r.Apply(text(domain.EventSource, "  https://x/b.pdf \n"))

		assert.Equal(t, []domain.Source{{Name: "a.pdf"}, {Name: "b.pdf", URL: "https://x/b.pdf"}}, assistant(t, tr).Sources)
	})

	t.Run("should ignore a url with no pending entry", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(text(domain.EventSource, "http://orphan"))
		assert.Empty(t, assistant(t, tr).Sources)
	})

	t.Run("should ignore non-string and blank payloads", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(domain.StreamEvent{Type: domain.EventSource, Content: `{"a":1}`, Object: []byte(`{"a":1}`)})
		r.Apply(text(domain.EventSource, "   "))
		assert.Empty(t, assistant(t, tr).Sources)
	})
}

func TestReducerFiles(t *testing.T) {
	t.Run("last write wins per file name", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(domain.NewFilesEvent(domain.FileRef{FileName: "report.pdf", FilePath: "/v1/report.pdf"}))
		r.Apply(domain.NewFilesEvent(domain.FileRef{FileName: "report.pdf", FilePath: "/v2/report.pdf"}))

		assert.Equal(t, []domain.Source{{Name: "report.pdf", URL: "/v2/report.pdf"}}, assistant(t, tr).Sources)
	})

	t.Run("resolves a name announced by a source event", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(text(domain.EventSource, "report.pdf"))
		r.Apply(domain.NewFilesEvent(domain.FileRef{FileName: "report.pdf", FilePath: "/f/report.pdf"}))
		assert.Equal(t, []domain.Source{{Name: "report.pdf", URL: "/f/report.pdf"}}, assistant(t, tr).Sources)
	})

	t.Run("ignores incomplete file refs", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{})
		r.Apply(domain.NewFilesEvent(domain.FileRef{FileName: "report.pdf"}))
		r.Apply(text(domain.EventFiles, "report.pdf"))
		assert.Empty(t, assistant(t, tr).Sources)
	})
}

func TestReducerTargeting(t *testing.T) {
	t.Run("should write into an explicit index", func(t *testing.T) {
		tr := New([]domain.Message{
			{Role: domain.RoleUser, Content: "q1"},
			{Role: domain.RoleAssistant, Content: "old"},
			{Role: domain.RoleUser, Content: "q2"},
		})
		r := NewReducer(tr, 1, ReducerOptions{})
		r.Apply(text(domain.EventContent, "new"))

		m, _ := tr.At(1)
		assert.Equal(t, "new", m.Content)
		last, _ := tr.At(2)
		assert.Equal(t, "q2", last.Content)
	})

	t.Run("should ignore non-assistant and out of range targets", func(t *testing.T) {
		tr := New([]domain.Message{{Role: domain.RoleUser, Content: "q"}})
		before := tr.Snapshot()

		NewReducer(tr, LastMessage, ReducerOptions{}).Apply(text(domain.EventContent, "x"))
		NewReducer(tr, 5, ReducerOptions{}).Apply(text(domain.EventContent, "x"))
		NewReducer(tr, -3, ReducerOptions{}).Apply(text(domain.EventReasoning, "x"))

		assert.Equal(t, before, tr.Snapshot())
	})

	t.Run("should render through the filter but accumulate raw text", func(t *testing.T) {
		tr := newConversation()
		r := NewReducer(tr, LastMessage, ReducerOptions{Filter: CollapseRepeats})
		r.Apply(text(domain.EventContent, "好!!"))
		r.Apply(text(domain.EventContent, "!"))

		assert.Equal(t, "好!", assistant(t, tr).Content)
		assert.Equal(t, "好!!!", r.Content())
	})
}
