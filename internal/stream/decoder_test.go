package stream

import (
	"testing"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	decoded   map[domain.EventType]int
	malformed int
}

func (o *countingObserver) EventDecoded(t domain.EventType) {
	if o.decoded == nil {
		o.decoded = map[domain.EventType]int{}
	}
	o.decoded[t]++
}

func (o *countingObserver) EventMalformed() { o.malformed++ }

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    domain.StreamEvent
		wantErr error
	}{
		{
			name:  "content event",
			frame: `data: {"type":"content","content":"hi"}`,
			want:  domain.StreamEvent{Type: domain.EventContent, Content: "hi"},
		},
		{
			name:  "missing content",
			frame: `data: {"type":"status"}`,
			want:  domain.StreamEvent{Type: domain.EventStatus},
		},
		{
			name:  "trailing whitespace is tolerated",
			frame: "data: {\"type\":\"content\",\"content\":\"x\"}\n",
			want:  domain.StreamEvent{Type: domain.EventContent, Content: "x"},
		},
		{
			name:    "blank frame",
			frame:   "\n",
			wantErr: ErrNotData,
		},
		{
			name:    "comment line",
			frame:   ": keep-alive",
			wantErr: ErrNotData,
		},
		{
			name:    "prefix without space",
			frame:   `data:{"type":"content","content":"x"}`,
			wantErr: ErrNotData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.frame)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("object content keeps raw json", func(t *testing.T) {
		ev, err := Parse(`data: {"type":"files","content":{"fileName":"a.pdf", "filePath":"/f/a.pdf"}}`)
		require.NoError(t, err)
		assert.False(t, ev.IsText())
		assert.Equal(t, `{"fileName":"a.pdf","filePath":"/f/a.pdf"}`, ev.Content)

		ref, ok := ev.File()
		require.True(t, ok)
		assert.Equal(t, domain.FileRef{FileName: "a.pdf", FilePath: "/f/a.pdf"}, ref)
	})

	t.Run("invalid json is a malformed event", func(t *testing.T) {
		_, err := Parse(`data: {not valid json`)
		var malformed *MalformedEventError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, `data: {not valid json`, malformed.Frame)
	})
}

func TestDecoder(t *testing.T) {
	obs := &countingObserver{}
	d := NewDecoder(nil, obs)

	frames := []string{
		`data: {"type":"content","content":"a"}`,
		`data: {not valid json`,
		``,
		`data: {"type":"telemetry","content":"x"}`,
		`data: {"type":"reasoning","content":"r"}`,
	}

	var got []domain.StreamEvent
	for _, f := range frames {
		if ev, ok := d.Decode(f); ok {
			got = append(got, ev)
		}
	}

	assert.Equal(t, []domain.StreamEvent{
		{Type: domain.EventContent, Content: "a"},
		{Type: domain.EventReasoning, Content: "r"},
	}, got)
	assert.Equal(t, DecodeStats{Events: 2, Ignored: 1, Malformed: 1, Unknown: 1}, d.Stats())
	assert.Equal(t, 1, obs.malformed)
	assert.Equal(t, 1, obs.decoded[domain.EventContent])
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	frame, err := EncodeFrame(domain.NewFilesEvent(domain.FileRef{FileName: "a", FilePath: "b"}))
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"files\",\"content\":{\"fileName\":\"a\",\"filePath\":\"b\"}}\n\n", frame)

	ev, err := Parse(frame[:len(frame)-len(FrameDelimiter)])
	require.NoError(t, err)
	ref, ok := ev.File()
	require.True(t, ok)
	assert.Equal(t, "b", ref.FilePath)
}
