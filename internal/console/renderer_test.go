package console

import (
	"bytes"
	"testing"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/transcript"
	"github.com/stretchr/testify/assert"
)

func show(process, refs bool) Options {
	return Options{Display: domain.DisplaySettings{ShowProcess: process, ShowReferences: refs}}
}

func TestRenderPrintsGrowthOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(false, false))

	r.Render(domain.Message{Content: "he"})
	r.Render(domain.Message{Content: "hello"})
	r.Render(domain.Message{Content: "hello"})
	r.Finish(domain.Message{Content: "hello!"})

	assert.Equal(t, "hello!\n", buf.String())
}

func TestRenderReasoningThenContent(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(true, false))

	r.Render(domain.Message{Reasoning: `step one\nstep`})
	r.Render(domain.Message{Reasoning: `step one\nstep two`})
	r.Render(domain.Message{Reasoning: `step one\nstep two`, Content: "answer"})
	r.Render(domain.Message{Reasoning: "changed after content", Content: "answer"})

	assert.Equal(t, "step one\nstep two\n\nanswer", buf.String())
}

func TestRenderHidesReasoning(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(false, false))

	r.Render(domain.Message{Reasoning: "secret"})
	r.Render(domain.Message{Reasoning: "secret", Content: "ok"})

	assert.Equal(t, "ok", buf.String())
}

func TestRenderReplacedReasoningStartsNewLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(true, false))

	r.Render(domain.Message{Reasoning: "thinking"})
	r.Render(domain.Message{Reasoning: transcript.StatusPlaceholder})

	assert.Equal(t, "thinking\n . ", buf.String())
}

func TestFinishListsSources(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(false, true))

	r.Finish(domain.Message{Content: "see", Sources: []domain.Source{
		{Name: "doc.pdf", URL: "http://x/doc.pdf"},
		{Name: "notes.md"},
	}})

	assert.Equal(t, "see\n\n[1] doc.pdf http://x/doc.pdf\n[2] notes.md\n", buf.String())
}

func TestBaselineThenRegenerate(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(false, false))

	r.Baseline(domain.Message{Content: "old answer"})
	r.Render(domain.Message{})
	r.Render(domain.Message{Content: "new"})

	assert.Equal(t, "\nnew", buf.String())
}

func TestFollow(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, show(false, false))

	tr := transcript.New([]domain.Message{{Role: domain.RoleUser, Content: "q"}})
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		r.Follow(tr, 1, done)
		close(finished)
	}()

	idx := tr.Append(domain.Message{Role: domain.RoleAssistant})
	tr.UpdateAssistant(idx, func(m *domain.Message) { m.Content = "a" })
	tr.UpdateAssistant(idx, func(m *domain.Message) { m.Content = "ab" })
	close(done)
	<-finished

	assert.Equal(t, "ab\n", buf.String())
}
