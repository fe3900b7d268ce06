// Package console renders a growing assistant message on a plain terminal.
// Text is append-only on a terminal, so growth is printed as a suffix and
// any in-place replacement starts a fresh line.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/transcript"
)

const (
	dim   = "\x1b[2m"
	reset = "\x1b[0m"
)

// Options configures a Renderer
type Options struct {
	Display domain.DisplaySettings
	// Color enables ANSI styling for reasoning and sources
	Color bool
}

// Renderer prints one assistant message as it streams
type Renderer struct {
	out  io.Writer
	opts Options

	reasoning string
	content   string
	inContent bool
}

// NewRenderer creates a renderer writing to out
func NewRenderer(out io.Writer, opts Options) *Renderer {
	return &Renderer{out: out, opts: opts}
}

// Baseline marks m as already on screen without printing it
func (r *Renderer) Baseline(m domain.Message) {
	r.reasoning = unescape(m.Reasoning)
	r.content = m.Content
	r.inContent = m.Content != ""
}

// Render prints whatever changed in m since the last call
func (r *Renderer) Render(m domain.Message) {
	if r.opts.Display.ShowProcess && !r.inContent {
		r.reasoning = r.emit(r.reasoning, unescape(m.Reasoning), true)
	}

	if m.Content == "" {
		if r.content != "" {
			// Cleared for a regenerate
			fmt.Fprintln(r.out)
			r.content = ""
			r.inContent = false
		}
		return
	}

	if !r.inContent {
		if r.reasoning != "" {
			fmt.Fprint(r.out, "\n\n")
		}
		r.inContent = true
	}
	r.content = r.emit(r.content, m.Content, false)
}

// Finish prints the sources and ends the line
func (r *Renderer) Finish(m domain.Message) {
	r.Render(m)
	fmt.Fprintln(r.out)

	if !r.opts.Display.ShowReferences || len(m.Sources) == 0 {
		return
	}
	fmt.Fprintln(r.out)
	for i, s := range m.Sources {
		line := fmt.Sprintf("[%d] %s", i+1, s.Name)
		if s.URL != "" {
			line += " " + s.URL
		}
		fmt.Fprintln(r.out, r.style(line))
	}
}

// Follow renders the message at index on every transcript change until done
// is closed. An index past the end is rendered once it appears.
func (r *Renderer) Follow(t *transcript.Transcript, index int, done <-chan struct{}) {
	changes, stop := t.Watch()
	defer stop()

	for {
		select {
		case <-changes:
			if m, ok := t.At(index); ok {
				r.Render(m)
			}
		case <-done:
			if m, ok := t.At(index); ok {
				r.Finish(m)
			} else {
				fmt.Fprintln(r.out)
			}
			return
		}
	}
}

// emit prints next relative to what was printed before and returns the new
// printed state
func (r *Renderer) emit(printed, next string, styled bool) string {
	if next == printed {
		return printed
	}
	text := next
	if strings.HasPrefix(next, printed) {
		text = next[len(printed):]
	} else if printed != "" {
		fmt.Fprintln(r.out)
	}
	if styled {
		text = r.style(text)
	}
	fmt.Fprint(r.out, text)
	return next
}

func (r *Renderer) style(s string) string {
	if !r.opts.Color || s == "" {
		return s
	}
	return dim + s + reset
}

// unescape turns the literal "\n" sequences some backends put in reasoning
// back into newlines
func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
