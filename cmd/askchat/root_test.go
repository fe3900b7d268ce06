package main

import (
	"errors"
	"testing"

	"github.com/liliang-cn/askchat/internal/client"
	"github.com/liliang-cn/askchat/internal/config"
	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "chat", "ask", "login", "logout", "whoami"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	opts := &rootOptions{v: viper.New()}
	cmd := buildRootCmd(opts)
	require.NoError(t, cmd.PersistentFlags().Set("base-url", "http://backend:9000"))
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "debug"))

	cfg, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.Upstream.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/api/chat/stream", cfg.Upstream.ChatPath)
}

func TestParseExtra(t *testing.T) {
	fields, err := parseExtra([]string{"model=qwq", "temperature=0.2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"model": "qwq", "temperature": "0.2"}, fields)

	_, err = parseExtra([]string{"novalue"})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	fields, err = parseExtra(nil)
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrBusy, "a reply is still streaming"},
		{&client.AuthRequiredError{StatusCode: 401}, "login required; run `askchat login`"},
		{&client.TransportError{StatusCode: 503}, "the backend returned HTTP 503"},
		{&stream.StreamReadError{Partial: 12, Err: errors.New("reset")}, "the reply was cut off after 12 characters: reset"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describe(tt.err))
	}
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := newLogger(config.LoggingConfig{Level: "debug"}, zapcore.WarnLevel)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = newLogger(config.LoggingConfig{Level: "debug", Development: true}, zapcore.WarnLevel)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LoggingConfig{Level: "loud"}, zapcore.DebugLevel)
	assert.Error(t, err)
}
