package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/liliang-cn/askchat/internal/auth"
	"github.com/liliang-cn/askchat/internal/client"
	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/service"
	"github.com/liliang-cn/askchat/internal/stream"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const chatHelp = `Commands:
  /retry   regenerate the last reply
  /new     start a new session
  /id      print the session id
  /quit    exit
Ctrl+C while a reply streams stops it.`

func newChatCmd(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts, sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume a stored session")
	return cmd
}

// repl is one interactive chat
type repl struct {
	app     *app
	chat    *service.ChatService
	line    *liner.State
	session string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func runChat(ctx context.Context, opts *rootOptions, sessionID string) error {
	a, err := newApp(opts, zapcore.WarnLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := filepath.Join(filepath.Dir(a.cfg.Database.Path), "chat_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	var login client.LoginRequester
	if isTerminal(os.Stdin) {
		prompter := auth.NewTerminalPrompter(a.authenticator, line, os.Stdout, a.logger)
		prompter.OnAbandon = func(err error) {
			fmt.Fprintf(os.Stderr, "Login abandoned (%v). Press Ctrl+C to cancel the request.\n", err)
		}
		login = prompter
	}

	r := &repl{app: a, chat: a.chatService(login), line: line}
	if err := r.open(ctx, sessionID); err != nil {
		return err
	}

	// First Ctrl+C stops the streaming reply
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			r.stop()
		}
	}()

	welcome := a.cfg.Welcome
	fmt.Printf("%s\n%s\nType /help for commands.\n\n", welcome.Title, welcome.Message)

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) {
				a.logger.Debug("Prompt closed", zap.Error(err))
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Println(chatHelp)
		case "/id":
			fmt.Println(r.session)
		case "/new":
			if err := r.open(ctx, ""); err != nil {
				return err
			}
			fmt.Println("New session", r.session)
		case "/retry":
			r.regenerate(ctx)
		default:
			r.submit(ctx, input)
		}
	}
}

// open resumes id, or creates a session when id is empty
func (r *repl) open(ctx context.Context, id string) error {
	if id == "" {
		session, err := r.chat.CreateSession(ctx)
		if err != nil {
			return err
		}
		r.session = session.ID
		return nil
	}

	conv, err := r.chat.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to open session %s: %w", id, err)
	}
	r.session = id

	renderer := r.app.renderer()
	for _, m := range conv.Transcript.Snapshot() {
		if m.Role == domain.RoleUser {
			fmt.Printf("> %s\n", m.Content)
			continue
		}
		renderer.Finish(m)
		renderer = r.app.renderer()
	}
	return nil
}

func (r *repl) submit(ctx context.Context, input string) {
	ctx, cancel := r.begin(ctx)
	defer cancel()

	conv, err := r.chat.Open(ctx, r.session)
	if err != nil {
		r.report(err)
		return
	}
	// The reply lands right after the user turn Submit appends
	target := conv.Transcript.Len() + 1

	turn, err := r.chat.Submit(ctx, r.session, input, nil)
	if err != nil {
		r.report(err)
		return
	}
	r.follow(ctx, turn, target, nil)
}

func (r *repl) regenerate(ctx context.Context) {
	ctx, cancel := r.begin(ctx)
	defer cancel()

	conv, err := r.chat.Open(ctx, r.session)
	if err != nil {
		r.report(err)
		return
	}
	// Captured before the turn starts so the reset is seen as a change
	target := conv.Transcript.LastIndex(domain.RoleAssistant)
	old, _ := conv.Transcript.At(target)

	turn, err := r.chat.Regenerate(ctx, r.session, nil)
	if err != nil {
		r.report(err)
		return
	}
	r.follow(ctx, turn, target, &old)
}

func (r *repl) follow(ctx context.Context, turn *service.Turn, target int, baseline *domain.Message) {
	renderer := r.app.renderer()
	if baseline != nil {
		renderer.Baseline(*baseline)
	}
	renderer.Follow(turn.Conversation().Transcript, target, turn.Done())

	summary, err := turn.Wait(ctx)
	switch {
	case err != nil:
		r.report(err)
	case summary.State == stream.StateCancelled:
		fmt.Fprintln(os.Stderr, "[stopped]")
	}
}

// begin installs a cancel func for Ctrl+C
func (r *repl) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	return ctx, func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}
}

func (r *repl) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *repl) report(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
}

// describe turns an error into one human-readable line
func describe(err error) string {
	var transportErr *client.TransportError
	var readErr *stream.StreamReadError
	var authErr *client.AuthRequiredError
	switch {
	case errors.Is(err, domain.ErrBusy):
		return "a reply is still streaming"
	case errors.Is(err, domain.ErrNoAssistantTurn):
		return "nothing to regenerate yet"
	case errors.As(err, &authErr):
		return "login required; run `askchat login`"
	case errors.As(err, &transportErr) && transportErr.StatusCode > 0:
		return fmt.Sprintf("the backend returned HTTP %d", transportErr.StatusCode)
	case errors.As(err, &readErr):
		return fmt.Sprintf("the reply was cut off after %d characters: %v", readErr.Partial, readErr.Err)
	default:
		return err.Error()
	}
}
