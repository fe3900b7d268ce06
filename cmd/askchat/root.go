package main

import (
	"fmt"

	"github.com/liliang-cn/askchat/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rootOptions struct {
	configPath string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootOptions{v: viper.New()})
}

func buildRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "askchat",
		Short:         "Streaming chat client for an SSE chat backend",
		SilenceUsage:  true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file")
	flags.String("base-url", "", "Chat backend base URL")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("db", "", "Path to the local sqlite database")
	_ = opts.v.BindPFlag("upstream.base_url", flags.Lookup("base-url"))
	_ = opts.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("database.path", flags.Lookup("db"))

	cmd.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newAskCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
	)
	return cmd
}

// load reads the configuration with any flags the user set
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadWith(o.v, o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Interactive commands pass a floor so
// routine Info lines do not interleave with the rendered reply.
func newLogger(cfg config.LoggingConfig, floor zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging.level: %w", err)
		}
		level = parsed
	}
	if level < floor && !cfg.Development {
		level = floor
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
