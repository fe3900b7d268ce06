package main

import (
	"fmt"
	"os"

	"github.com/liliang-cn/askchat/internal/auth"
	"github.com/liliang-cn/askchat/internal/client"
	"github.com/liliang-cn/askchat/internal/config"
	"github.com/liliang-cn/askchat/internal/console"
	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/metrics"
	"github.com/liliang-cn/askchat/internal/repository"
	"github.com/liliang-cn/askchat/internal/service"
	"github.com/liliang-cn/askchat/internal/transcript"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the components every command shares
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *repository.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store         *auth.Store
	client        *client.Client
	authenticator *auth.Authenticator
	sessionRepo   *repository.SessionRepository
}

func newApp(opts *rootOptions, logFloor zapcore.Level) (*app, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging, logFloor)
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store := auth.NewStore(repository.NewCredentialRepository(db))
	c := client.New(client.Options{
		BaseURL:      cfg.Upstream.BaseURL,
		ChatPath:     cfg.Upstream.ChatPath,
		LoginPath:    cfg.Upstream.LoginPath,
		UserInfoPath: cfg.Upstream.UserInfoPath,
		HTTPClient:   client.NewHTTPClient(cfg.Upstream.ConnectTimeout),
		Tokens:       store,
		StrictUTF8:   cfg.Stream.StrictUTF8,
		BufferSize:   cfg.Stream.ReadBuffer,
		Logger:       logger,
		Metrics:      m,
	})

	return &app{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		registry:      registry,
		metrics:       m,
		store:         store,
		client:        c,
		authenticator: auth.NewAuthenticator(c, store, logger),
		sessionRepo:   repository.NewSessionRepository(db),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.logger.Sync()
}

// reducerOptions resolves the per-deployment stream settings
func (a *app) reducerOptions() transcript.ReducerOptions {
	opts := transcript.ReducerOptions{
		Mode:   transcript.ParseMode(a.cfg.Stream.Mode),
		Logger: a.logger,
	}
	if a.cfg.Stream.CollapseRepeats {
		opts.Filter = transcript.CollapseRepeats
	}
	return opts
}

// chatService builds a ChatService whose requests use login for re-auth
func (a *app) chatService(login client.LoginRequester) *service.ChatService {
	return service.NewChatService(a.client.WithLogin(login), a.sessionRepo, a.reducerOptions(), a.logger)
}

func (a *app) renderer() *console.Renderer {
	return console.NewRenderer(os.Stdout, console.Options{
		Display: domain.DisplaySettings{
			ShowProcess:    a.cfg.Display.ShowProcess,
			ShowReferences: a.cfg.Display.ShowReferences,
		},
		Color: isTerminal(os.Stdout),
	})
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
