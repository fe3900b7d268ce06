package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/metrics"
	"github.com/liliang-cn/askchat/internal/stream"
	"go.uber.org/zap"
)

// TokenSource returns the persisted bearer token. An empty token means the
// request goes out anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// LoginRequester is the login collaborator. RequestLogin must eventually
// call retry after a successful login, or never call it if the user gives up.
// ctx belongs to the suspended request; once it is done nobody waits for
// retry any more.
type LoginRequester interface {
	RequestLogin(ctx context.Context, retry func())
}

// StartFunc is called once the backend accepts a request, right before the
// body is streamed. It returns the sink the events are folded into.
type StartFunc func() stream.Sink

// Options configures a Client
type Options struct {
	BaseURL      string
	ChatPath     string
	LoginPath    string
	UserInfoPath string

	HTTPClient *http.Client
	Tokens     TokenSource
	Login      LoginRequester

	StrictUTF8 bool
	BufferSize int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Client talks to the chat backend
type Client struct {
	opts   Options
	http   *http.Client
	logger *zap.Logger
}

// New creates a client
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(30 * time.Second)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{opts: opts, http: httpClient, logger: logger}
}

// WithLogin returns a copy of c that uses login as its login collaborator
func (c *Client) WithLogin(login LoginRequester) *Client {
	cp := *c
	cp.opts.Login = login
	return &cp
}

// NewHTTPClient returns an http.Client whose timeout covers connecting and
// waiting for response headers only, so long streams are not cut off.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Send posts the transcript and drives the reply stream into the sink
// returned by start.
//
// An auth challenge suspends the call until the login collaborator invokes
// retry, then the identical request is sent again. This repeats for as long
// as the backend keeps challenging. Cancelling ctx stops the call at any
// point; that is reported as a summary in StateCancelled with a nil error.
func (c *Client) Send(ctx context.Context, messages []domain.WireMessage, extra map[string]any, start StartFunc) (stream.Summary, error) {
	body, err := c.encodeBody(messages, extra)
	if err != nil {
		return stream.Summary{State: stream.StateFailed}, err
	}

	began := time.Now()
	summary, err := c.send(ctx, body, start)
	c.opts.Metrics.StreamFinished(summary.State.String(), time.Since(began))
	return summary, err
}

func (c *Client) send(ctx context.Context, body []byte, start StartFunc) (stream.Summary, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.post(ctx, c.opts.ChatPath, body)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(), nil
			}
			c.opts.Metrics.Request(0)
			return stream.Summary{State: stream.StateFailed}, &TransportError{Err: err}
		}
		c.opts.Metrics.Request(resp.StatusCode)

		authErr, err := challenge(resp)
		if err != nil {
			resp.Body.Close()
			if ctx.Err() != nil {
				return cancelled(), nil
			}
			return stream.Summary{State: stream.StateFailed}, &TransportError{StatusCode: resp.StatusCode, Err: err}
		}
		if authErr != nil {
			resp.Body.Close()
			c.logger.Info("Backend requires login",
				zap.Int("attempt", attempt),
				zap.String("reason", authErr.Reason))
			if err := c.awaitLogin(ctx, authErr); err != nil {
				if ctx.Err() != nil {
					return cancelled(), nil
				}
				return stream.Summary{State: stream.StateFailed}, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := excerpt(resp.Body)
			resp.Body.Close()
			c.logger.Warn("Chat request rejected",
				zap.Int("status", resp.StatusCode),
				zap.String("body", msg))
			return stream.Summary{State: stream.StateFailed}, &TransportError{StatusCode: resp.StatusCode, Body: msg}
		}

		return c.drive(ctx, resp, start())
	}
}

func (c *Client) drive(ctx context.Context, resp *http.Response, sink stream.Sink) (stream.Summary, error) {
	defer resp.Body.Close()

	driver := stream.NewDriver(sink, stream.DriverOptions{
		StrictUTF8: c.opts.StrictUTF8,
		BufferSize: c.opts.BufferSize,
		Logger:     c.logger,
		Observer:   c.opts.Metrics,
	})
	summary, err := driver.Run(ctx, resp.Body)
	if err == nil {
		c.logger.Debug("Stream finished",
			zap.String("state", summary.State.String()),
			zap.Int("frames", summary.Frames),
			zap.Int("malformed", summary.Decode.Malformed))
	}
	return summary, err
}

// awaitLogin blocks until the login collaborator calls retry or ctx ends
func (c *Client) awaitLogin(ctx context.Context, cause *AuthRequiredError) error {
	if c.opts.Login == nil {
		return cause
	}

	ready := make(chan struct{})
	var once sync.Once
	c.opts.Metrics.Reauth("requested")
	c.opts.Login.RequestLogin(ctx, func() {
		once.Do(func() { close(ready) })
	})

	select {
	case <-ready:
		c.opts.Metrics.Reauth("retried")
		return nil
	case <-ctx.Done():
		c.opts.Metrics.Reauth("abandoned")
		return ctx.Err()
	}
}

func (c *Client) encodeBody(messages []domain.WireMessage, extra map[string]any) ([]byte, error) {
	payload := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		if k == "messages" {
			c.logger.Warn("Ignoring extra field that would replace the transcript", zap.String("field", k))
			continue
		}
		payload[k] = v
	}
	if messages == nil {
		messages = []domain.WireMessage{}
	}
	payload["messages"] = messages

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(ctx, req)
	return c.http.Do(req)
}

// authorize attaches the bearer token when one is stored
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.opts.Tokens == nil {
		return
	}
	token, err := c.opts.Tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("Failed to read stored token, sending anonymously", zap.Error(err))
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.opts.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func cancelled() stream.Summary {
	return stream.Summary{State: stream.StateCancelled}
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
