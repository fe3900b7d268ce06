package service

import (
	"context"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/repository"
)

// SessionService handles session administration
type SessionService struct {
	sessionRepo *repository.SessionRepository
	chat        *ChatService
}

// NewSessionService creates a new session service
func NewSessionService(sessionRepo *repository.SessionRepository, chat *ChatService) *SessionService {
	return &SessionService{sessionRepo: sessionRepo, chat: chat}
}

func (s *SessionService) ListSessions(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	sessions, err := s.sessionRepo.List(limit, offset)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	return sessions, nil
}

// DeleteSession stops any running turn and removes the session
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	s.chat.Forget(id)
	return s.sessionRepo.Delete(id)
}

// GetStats returns system statistics
func (s *SessionService) GetStats(ctx context.Context) (*domain.Stats, error) {
	sessions, err := s.sessionRepo.Count()
	if err != nil {
		return nil, err
	}
	chats, err := s.sessionRepo.CountChats()
	if err != nil {
		return nil, err
	}
	return &domain.Stats{TotalSessions: sessions, TotalChats: chats}, nil
}
