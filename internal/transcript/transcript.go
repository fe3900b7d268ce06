// Package transcript holds the client-side conversation state and the
// reducer that folds stream events into it.
package transcript

import (
	"sync"

	"github.com/liliang-cn/askchat/internal/domain"
)

// LastMessage targets whichever message is last at the time of each update
const LastMessage = -1

// Transcript is an ordered list of messages with a single-writer discipline.
// All mutation goes through its methods; readers get deep copies.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.Message
	version  uint64

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// New creates a transcript seeded with initial
func New(initial []domain.Message) *Transcript {
	t := &Transcript{watchers: make(map[int]chan struct{})}
	for _, m := range initial {
		t.messages = append(t.messages, m.Clone())
	}
	return t
}

// Len returns the number of messages
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Version increases on every mutation
func (t *Transcript) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Snapshot returns a deep copy of all messages
func (t *Transcript) Snapshot() []domain.Message {
	return t.Prefix(-1)
}

// Prefix returns a deep copy of the first n messages, or all when n < 0
func (t *Transcript) Prefix(n int) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n < 0 || n > len(t.messages) {
		n = len(t.messages)
	}
	out := make([]domain.Message, n)
	for i := 0; i < n; i++ {
		out[i] = t.messages[i].Clone()
	}
	return out
}

// At returns a copy of the message at index
func (t *Transcript) At(index int) (domain.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.messages) {
		return domain.Message{}, false
	}
	return t.messages[index].Clone(), true
}

// Append adds messages and returns the index of the last one
func (t *Transcript) Append(msgs ...domain.Message) int {
	t.mu.Lock()
	for _, m := range msgs {
		t.messages = append(t.messages, m.Clone())
	}
	idx := len(t.messages) - 1
	t.version++
	t.mu.Unlock()

	t.notify()
	return idx
}

// LastIndex returns the index of the last message with role, or -1
func (t *Transcript) LastIndex(role domain.Role) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return i
		}
	}
	return -1
}

// UpdateAssistant applies fn to the assistant message at index. Out of range
// indexes and non-assistant targets are ignored; the return value reports
// whether fn ran.
func (t *Transcript) UpdateAssistant(index int, fn func(m *domain.Message)) bool {
	t.mu.Lock()
	if index == LastMessage {
		index = len(t.messages) - 1
	}
	if index < 0 || index >= len(t.messages) || t.messages[index].Role != domain.RoleAssistant {
		t.mu.Unlock()
		return false
	}
	fn(&t.messages[index])
	t.version++
	t.mu.Unlock()

	t.notify()
	return true
}

// ResetAssistant clears content, reasoning and sources of the assistant
// message at index ahead of a regenerate
func (t *Transcript) ResetAssistant(index int) bool {
	return t.UpdateAssistant(index, func(m *domain.Message) {
		m.Content = ""
		m.Reasoning = ""
		m.Sources = nil
	})
}

// Touch signals watchers without changing any message, for state kept
// alongside the transcript such as a loading flag
func (t *Transcript) Touch() {
	t.mu.Lock()
	t.version++
	t.mu.Unlock()
	t.notify()
}

// Watch returns a channel that receives a signal after mutations. Signals
// are coalesced: a slow reader sees one pending signal, then reads the
// latest Snapshot. Call the returned function to stop watching.
func (t *Transcript) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	t.watchMu.Lock()
	id := t.nextID
	t.nextID++
	t.watchers[id] = ch
	t.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.watchMu.Lock()
			delete(t.watchers, id)
			t.watchMu.Unlock()
		})
	}
}

func (t *Transcript) notify() {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	for _, ch := range t.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
