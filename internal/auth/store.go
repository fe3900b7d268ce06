package auth

import (
	"context"

	"github.com/liliang-cn/askchat/internal/repository"
)

// TokenKey is the credential key the access token is stored under
const TokenKey = "token"

// Store persists the access token. It implements client.TokenSource.
type Store struct {
	repo *repository.CredentialRepository
}

// NewStore creates a token store
func NewStore(repo *repository.CredentialRepository) *Store {
	return &Store{repo: repo}
}

// Token returns the stored token, or "" when logged out
func (s *Store) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.repo.Get(TokenKey)
}

// Save stores token
func (s *Store) Save(token string) error {
	return s.repo.Set(TokenKey, token)
}

// Clear removes the stored token
func (s *Store) Clear() error {
	return s.repo.Delete(TokenKey)
}
