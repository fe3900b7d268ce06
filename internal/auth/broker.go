package auth

import (
	"context"
	"sync"

	"github.com/liliang-cn/askchat/internal/client"
	"go.uber.org/zap"
)

var (
	_ client.LoginRequester = (*Broker)(nil)
	_ client.LoginRequester = (*TerminalPrompter)(nil)
	_ client.TokenSource    = (*Store)(nil)
)

// Broker is the login collaborator for the gateway. Requests that hit an
// auth challenge park their retry here until a browser client posts
// credentials through Login. Requests whose context has ended are dropped.
type Broker struct {
	auth   *Authenticator
	logger *zap.Logger

	mu      sync.Mutex
	pending []waiter
}

type waiter struct {
	ctx   context.Context
	retry func()
}

// NewBroker creates a broker
func NewBroker(auth *Authenticator, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{auth: auth, logger: logger}
}

// RequestLogin implements client.LoginRequester
func (b *Broker) RequestLogin(ctx context.Context, retry func()) {
	b.mu.Lock()
	b.prune()
	b.pending = append(b.pending, waiter{ctx: ctx, retry: retry})
	n := len(b.pending)
	b.mu.Unlock()
	b.logger.Info("Waiting for login", zap.Int("pending", n))
}

// NeedLogin reports whether any live request is waiting for login
func (b *Broker) NeedLogin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	return len(b.pending) > 0
}

// Login authenticates and resumes every parked request
func (b *Broker) Login(ctx context.Context, username, password string) error {
	if err := b.auth.Login(ctx, username, password); err != nil {
		return err
	}
	b.Complete()
	return nil
}

// Complete resumes every parked request that is still waiting
func (b *Broker) Complete() {
	b.mu.Lock()
	b.prune()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, w := range pending {
		w.retry()
	}
	if len(pending) > 0 {
		b.logger.Info("Resumed requests after login", zap.Int("count", len(pending)))
	}
}

// prune drops waiters whose request has gone away. Callers hold mu.
func (b *Broker) prune() {
	live := b.pending[:0]
	for _, w := range b.pending {
		if w.ctx.Err() == nil {
			live = append(live, w)
		}
	}
	clear(b.pending[len(live):])
	b.pending = live
}
