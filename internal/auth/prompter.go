package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/liliang-cn/askchat/internal/client"
	"golang.org/x/sync/singleflight"
	"golang.org/x/term"
	"go.uber.org/zap"
)

// DefaultAttempts is how often a wrong password may be retyped
const DefaultAttempts = 3

// ErrAbandoned is reported to OnAbandon when the user gives up on login
var ErrAbandoned = errors.New("login abandoned")

// LineReader reads a plain and a hidden line. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
}

// TerminalPrompter asks for credentials on the terminal whenever the backend
// requires login. Concurrent requests share one prompt.
type TerminalPrompter struct {
	auth     *Authenticator
	reader   LineReader
	out      io.Writer
	attempts int
	logger   *zap.Logger
	group    singleflight.Group

	// OnAbandon is called when login is not completed; the pending request
	// then stays suspended until its context ends
	OnAbandon func(err error)
}

// NewTerminalPrompter creates a prompter. out receives status lines.
func NewTerminalPrompter(auth *Authenticator, reader LineReader, out io.Writer, logger *zap.Logger) *TerminalPrompter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminalPrompter{
		auth:     auth,
		reader:   reader,
		out:      out,
		attempts: DefaultAttempts,
		logger:   logger,
	}
}

// RequestLogin implements client.LoginRequester. It returns immediately; the
// prompt runs in the background and calls retry on success. The prompt is
// shared between requests, so it does not end with ctx.
func (p *TerminalPrompter) RequestLogin(ctx context.Context, retry func()) {
	go func() {
		_, err, shared := p.group.Do("login", func() (any, error) {
			return nil, p.prompt(context.Background())
		})
		if err != nil {
			p.logger.Debug("Login not completed", zap.Error(err), zap.Bool("shared", shared))
			if p.OnAbandon != nil {
				p.OnAbandon(err)
			}
			return
		}
		if ctx.Err() == nil {
			retry()
		}
	}()
}

func (p *TerminalPrompter) prompt(ctx context.Context) error {
	fmt.Fprintln(p.out, "Login required.")
	for i := 0; i < p.attempts; i++ {
		username, err := p.reader.Prompt("Username: ")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAbandoned, err)
		}
		username = strings.TrimSpace(username)
		if username == "" {
			return ErrAbandoned
		}
		password, err := p.reader.PasswordPrompt("Password: ")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAbandoned, err)
		}

		err = p.auth.Login(ctx, username, password)
		if err == nil {
			fmt.Fprintln(p.out, "Login successful.")
			return nil
		}

		var authErr *client.AuthRequiredError
		if !errors.As(err, &authErr) {
			fmt.Fprintf(p.out, "Login failed: %v\n", err)
			return err
		}
		fmt.Fprintln(p.out, "Invalid username or password.")
	}
	return fmt.Errorf("%w: too many failed attempts", ErrAbandoned)
}

// TermReader is a LineReader over a plain file descriptor, used when no line
// editor is active. Passwords are read without echo when fd is a terminal.
type TermReader struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewTermReader creates a reader on in; fd is in's file descriptor
func NewTermReader(in io.Reader, out io.Writer, fd int) *TermReader {
	return &TermReader{in: bufio.NewReader(in), out: out, fd: fd}
}

// Prompt reads one line
func (r *TermReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PasswordPrompt reads one line without echo when possible
func (r *TermReader) PasswordPrompt(prompt string) (string, error) {
	if !term.IsTerminal(r.fd) {
		return r.Prompt(prompt)
	}
	fmt.Fprint(r.out, prompt)
	data, err := term.ReadPassword(r.fd)
	fmt.Fprintln(r.out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
