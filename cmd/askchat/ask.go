package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/liliang-cn/askchat/internal/auth"
	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/stream"
	"github.com/liliang-cn/askchat/internal/transcript"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var extra []string

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send one prompt and print the streamed reply",
		Long:  "Send one prompt and print the streamed reply. Reads the prompt from stdin when no argument is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "" && !isTerminal(os.Stdin) {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				prompt = string(data)
			}
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("%w: empty prompt", domain.ErrInvalidRequest)
			}

			fields, err := parseExtra(extra)
			if err != nil {
				return err
			}
			return runAsk(cmd.Context(), opts, prompt, fields)
		},
	}
	cmd.Flags().StringArrayVar(&extra, "field", nil, "Extra request body field as key=value (repeatable)")
	return cmd
}

func runAsk(ctx context.Context, opts *rootOptions, prompt string, extra map[string]any) error {
	a, err := newApp(opts, zapcore.WarnLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	c := a.client
	if isTerminal(os.Stdin) {
		reader := auth.NewTermReader(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
		c = c.WithLogin(auth.NewTerminalPrompter(a.authenticator, reader, os.Stderr, a.logger))
	}

	tr := transcript.New([]domain.Message{{Role: domain.RoleUser, Content: prompt}})
	start := func() stream.Sink {
		idx := tr.Append(domain.Message{Role: domain.RoleAssistant})
		return transcript.NewReducer(tr, idx, a.reducerOptions())
	}

	done := make(chan struct{})
	rendered := make(chan struct{})
	go func() {
		a.renderer().Follow(tr, 1, done)
		close(rendered)
	}()

	summary, err := c.Send(ctx, domain.ToWire(tr.Snapshot()), extra, start)
	close(done)
	<-rendered

	if err != nil {
		return fmt.Errorf("%s", describe(err))
	}
	if summary.State == stream.StateCancelled {
		fmt.Fprintln(os.Stderr, "[stopped]")
	}
	return nil
}

// parseExtra turns key=value pairs into request body fields
func parseExtra(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: field %q is not key=value", domain.ErrInvalidRequest, p)
		}
		fields[k] = v
	}
	return fields, nil
}

