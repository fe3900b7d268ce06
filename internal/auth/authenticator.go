package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LoginClient exchanges credentials for a token. Implemented by client.Client.
type LoginClient interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Authenticator logs in against the backend and persists the token
type Authenticator struct {
	client LoginClient
	store  *Store
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(client LoginClient, store *Store, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{client: client, store: store, logger: logger}
}

// Login authenticates username and stores the returned token
func (a *Authenticator) Login(ctx context.Context, username, password string) error {
	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.store.Save(token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	a.logger.Info("Logged in", zap.String("username", username))
	return nil
}

// Logout drops the stored token
func (a *Authenticator) Logout() error {
	return a.store.Clear()
}
