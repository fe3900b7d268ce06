package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events    []domain.StreamEvent
	content   strings.Builder
	reasoning string
	finished  int
}

func (s *recordingSink) Apply(ev domain.StreamEvent) {
	s.events = append(s.events, ev)
	switch ev.Type {
	case domain.EventContent:
		s.content.WriteString(ev.Content)
	case domain.EventReasoning:
		s.reasoning = ev.Content
	}
}

func (s *recordingSink) Finish()           { s.finished++ }
func (s *recordingSink) Content() string   { return s.content.String() }
func (s *recordingSink) Reasoning() string { return s.reasoning }

// chunkReader returns one chunk per Read call
type chunkReader struct {
	chunks [][]byte
	err    error
	onRead func(i int)
	reads  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	i := r.reads
	r.reads++
	if r.onRead != nil {
		r.onRead(i)
	}
	if i >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	return copy(p, r.chunks[i]), nil
}

func TestDriverRun(t *testing.T) {
	t.Run("should drive a fragmented stream to closed", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDriver(sink, DriverOptions{StrictUTF8: true})
		b := []byte(twoFrames)
		r := &chunkReader{chunks: [][]byte{b[:5], b[5:30], b[30:]}}

		summary, err := d.Run(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, StateClosed, summary.State)
		assert.Equal(t, StateClosed, d.State())
		assert.Equal(t, "hi!", summary.Content)
		assert.Equal(t, 2, summary.Frames)
		assert.Equal(t, 1, sink.finished)
	})

	t.Run("should survive a malformed frame", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDriver(sink, DriverOptions{})
		body := "data: {\"type\":\"content\",\"content\":\"a\"}\n\n" +
			"data: {not valid json\n\n" +
			"data: {\"type\":\"content\",\"content\":\"b\"}\n\n"

		summary, err := d.Run(context.Background(), strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, "ab", summary.Content)
		assert.Equal(t, 1, summary.Decode.Malformed)
	})

	t.Run("should process bytes returned together with eof", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDriver(sink, DriverOptions{BufferSize: 1 << 16})
		summary, err := d.Run(context.Background(), iotest.DataErrReader(strings.NewReader(twoFrames)))
		require.NoError(t, err)
		assert.Equal(t, "hi!", summary.Content)
	})

	t.Run("should discard an unterminated trailing frame", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDriver(sink, DriverOptions{})
		summary, err := d.Run(context.Background(), strings.NewReader(twoFrames+`data: {"type":"content","content":"lost"}`))
		require.NoError(t, err)
		assert.Equal(t, "hi!", summary.Content)
	})

	t.Run("should stop without processing once cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := &recordingSink{}
		d := NewDriver(sink, DriverOptions{})
		b := []byte(twoFrames)
		mid := strings.Index(twoFrames, "\n\n") + 2
		r := &chunkReader{
			chunks: [][]byte{b[:mid], b[mid:]},
			onRead: func(i int) {
				if i == 1 {
					cancel()
				}
			},
		}

		summary, err := d.Run(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, StateCancelled, summary.State)
		assert.Equal(t, "hi", summary.Content)
		assert.Zero(t, sink.finished)
	})

	t.Run("should report a read error and keep partial content", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDriver(sink, DriverOptions{})
		boom := errors.New("connection reset")
		r := &chunkReader{chunks: [][]byte{[]byte("data: {\"type\":\"content\",\"content\":\"par\"}\n\n")}, err: boom}

		summary, err := d.Run(context.Background(), r)
		var readErr *StreamReadError
		require.ErrorAs(t, err, &readErr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, readErr.Partial)
		assert.Equal(t, StateFailed, summary.State)
		assert.Equal(t, "par", summary.Content)
	})

	t.Run("should fail on undecodable bytes in strict mode", func(t *testing.T) {
		d := NewDriver(&recordingSink{}, DriverOptions{StrictUTF8: true})
		_, err := d.Run(context.Background(), strings.NewReader("data: \xff\n\n"))
		var readErr *StreamReadError
		require.ErrorAs(t, err, &readErr)
		assert.Equal(t, StateFailed, d.State())
	})

	t.Run("should refuse to run twice", func(t *testing.T) {
		d := NewDriver(&recordingSink{}, DriverOptions{})
		_, err := d.Run(context.Background(), strings.NewReader(""))
		require.NoError(t, err)
		_, err = d.Run(context.Background(), strings.NewReader(""))
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
