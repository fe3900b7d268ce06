package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/askchat/internal/client"
	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/repository"
	"github.com/liliang-cn/askchat/internal/stream"
	"github.com/liliang-cn/askchat/internal/transcript"
	"go.uber.org/zap"
)

// Sender sends a transcript upstream and streams the reply. Implemented by
// client.Client.
type Sender interface {
	Send(ctx context.Context, messages []domain.WireMessage, extra map[string]any, start client.StartFunc) (stream.Summary, error)
}

// ChatService runs conversations. Each session has at most one request in
// flight; submit and regenerate return domain.ErrBusy while one is running.
type ChatService struct {
	sender      Sender
	sessionRepo *repository.SessionRepository
	reducer     transcript.ReducerOptions
	logger      *zap.Logger

	mu    sync.Mutex
	convs map[string]*Conversation
}

// NewChatService creates a new chat service
func NewChatService(
	sender Sender,
	sessionRepo *repository.SessionRepository,
	reducer transcript.ReducerOptions,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reducer.Logger == nil {
		reducer.Logger = logger
	}
	return &ChatService{
		sender:      sender,
		sessionRepo: sessionRepo,
		reducer:     reducer,
		logger:      logger,
		convs:       make(map[string]*Conversation),
	}
}

// Conversation is the live state of one session
type Conversation struct {
	ID         string
	Transcript *transcript.Transcript

	mu      sync.Mutex
	loading bool
	cancel  context.CancelFunc
}

// Loading reports whether a request is in flight
func (c *Conversation) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// View returns a snapshot for renderers
func (c *Conversation) View() domain.TranscriptView {
	return domain.TranscriptView{
		SessionID: c.ID,
		Messages:  c.Transcript.Snapshot(),
		IsLoading: c.Loading(),
	}
}

// begin marks the conversation busy and installs cancel
func (c *Conversation) begin(cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return false
	}
	c.loading = true
	c.cancel = cancel
	return true
}

func (c *Conversation) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.cancel = nil
}

// stop cancels the in-flight request, if any
func (c *Conversation) stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Turn is one running request
type Turn struct {
	conv    *Conversation
	done    chan struct{}
	summary stream.Summary
	err     error
}

// Conversation returns the conversation the turn writes to
func (t *Turn) Conversation() *Conversation {
	return t.conv
}

// Done is closed when the turn reaches a terminal state
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn ends or ctx is done. A cancelled turn returns a
// summary in stream.StateCancelled and a nil error.
func (t *Turn) Wait(ctx context.Context) (stream.Summary, error) {
	select {
	case <-t.done:
		return t.summary, t.err
	case <-ctx.Done():
		return stream.Summary{}, ctx.Err()
	}
}

// CreateSession creates a new, empty session
func (s *ChatService) CreateSession(ctx context.Context) (*domain.Session, error) {
	session := &domain.Session{}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.convs[session.ID] = &Conversation{ID: session.ID, Transcript: transcript.New(nil)}
	s.mu.Unlock()

	s.logger.Debug("Session created", zap.String("session_id", session.ID))
	return session, nil
}

// Open returns the live conversation for id, loading it from storage on
// first use
func (s *ChatService) Open(ctx context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.convs[id]; ok {
		return conv, nil
	}

	session, err := s.sessionRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	messages, err := s.sessionRepo.GetMessages(id)
	if err != nil {
		return nil, err
	}

	conv := &Conversation{ID: id, Transcript: transcript.New(messages)}
	s.convs[id] = conv
	return conv, nil
}

// View returns the transcript and loading flag of a session
func (s *ChatService) View(ctx context.Context, id string) (domain.TranscriptView, error) {
	conv, err := s.Open(ctx, id)
	if err != nil {
		return domain.TranscriptView{}, err
	}
	return conv.View(), nil
}

// Submit appends a user message and streams the assistant reply. The
// assistant message is appended only once the backend accepts the request.
func (s *ChatService) Submit(ctx context.Context, id, content string, extra map[string]any) (*Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidRequest)
	}
	conv, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	if !conv.begin(cancel) {
		cancel()
		return nil, domain.ErrBusy
	}

	conv.Transcript.Append(newMessage(id, domain.RoleUser, content))
	history := domain.ToWire(conv.Transcript.Snapshot())

	start := func() stream.Sink {
		idx := conv.Transcript.Append(newMessage(id, domain.RoleAssistant, ""))
		return transcript.NewReducer(conv.Transcript, idx, s.reducer)
	}
	return s.run(ctx, cancel, conv, history, extra, start), nil
}

// Regenerate re-runs the last assistant turn in place. The transcript must
// end with that assistant turn and hold a user turn before it. Everything
// before the assistant turn is sent again;
// the message is cleared only once the backend accepts the request.
func (s *ChatService) Regenerate(ctx context.Context, id string, extra map[string]any) (*Turn, error) {
	conv, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	if !conv.begin(cancel) {
		cancel()
		return nil, domain.ErrBusy
	}

	idx := conv.Transcript.LastIndex(domain.RoleAssistant)
	if idx < 0 || idx != conv.Transcript.Len()-1 || conv.Transcript.LastIndex(domain.RoleUser) < 0 {
		conv.end()
		cancel()
		return nil, domain.ErrNoAssistantTurn
	}
	history := domain.ToWire(conv.Transcript.Prefix(idx))

	start := func() stream.Sink {
		conv.Transcript.ResetAssistant(idx)
		return transcript.NewReducer(conv.Transcript, idx, s.reducer)
	}
	return s.run(ctx, cancel, conv, history, extra, start), nil
}

// newMessage gives a message the identity it keeps across saves
func newMessage(sessionID string, role domain.Role, content string) domain.Message {
	return domain.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func (s *ChatService) run(
	ctx context.Context,
	cancel context.CancelFunc,
	conv *Conversation,
	history []domain.WireMessage,
	extra map[string]any,
	start client.StartFunc,
) *Turn {
	turn := &Turn{conv: conv, done: make(chan struct{})}

	go func() {
		defer close(turn.done)
		defer cancel()

		turn.summary, turn.err = s.sender.Send(ctx, history, extra, start)
		conv.end()
		// Bump the version so watchers see the loading flag drop
		conv.Transcript.Touch()

		fields := []zap.Field{
			zap.String("session_id", conv.ID),
			zap.String("state", turn.summary.State.String()),
			zap.Int("frames", turn.summary.Frames),
		}
		if turn.err != nil {
			s.logger.Warn("Chat turn failed", append(fields, zap.Error(turn.err))...)
		} else {
			s.logger.Info("Chat turn finished", fields...)
		}

		if err := s.sessionRepo.SaveTranscript(conv.ID, conv.Transcript.Snapshot()); errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("Session deleted while streaming", zap.String("session_id", conv.ID))
		} else if err != nil {
			s.logger.Error("Failed to persist transcript", zap.String("session_id", conv.ID), zap.Error(err))
		}
	}()

	return turn
}

// Stop cancels the in-flight request of a session. Stopping an idle session
// is a no-op.
func (s *ChatService) Stop(ctx context.Context, id string) error {
	conv, err := s.Open(ctx, id)
	if err != nil {
		return err
	}
	if conv.stop() {
		s.logger.Info("Chat turn stopped", zap.String("session_id", id))
	}
	return nil
}

// Forget stops and drops the live state of a session
func (s *ChatService) Forget(id string) {
	s.mu.Lock()
	conv, ok := s.convs[id]
	delete(s.convs, id)
	s.mu.Unlock()

	if ok {
		conv.stop()
	}
}
