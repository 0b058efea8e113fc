package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadConfig(t)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Chat.DefaultTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Chat.Retention)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
	assert.Empty(t, cfg.Database.Type)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Empty(t, cfg.Redis.Address)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadDefaultMessages(t *testing.T) {
	cfg := loadConfig(t)

	assert.Equal(t, "username must be at least 1 character", cfg.Chat.Messages.UsernameRequired)
	assert.Equal(t, "username must not contain whitespace", cfg.Chat.Messages.UsernameWhitespace)
	assert.Equal(t, "text must be at least 1 character", cfg.Chat.Messages.TextRequired)
	assert.Equal(t, "id must be an integer", cfg.Chat.Messages.IDType)
	assert.Equal(t, "no message found", cfg.Chat.Messages.NoMessageFound)
	assert.Equal(t, "no messages found", cfg.Chat.Messages.NoMailboxMessages)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHATBOX_SERVER_PORT", "9090")
	t.Setenv("CHATBOX_CHAT_DEFAULT_TIMEOUT", "5m")
	t.Setenv("CHATBOX_CHAT_RETENTION", "1h")
	t.Setenv("CHATBOX_CHAT_MSG_NO_MESSAGE_FOUND", "message missing")
	t.Setenv("CHATBOX_LOG_LEVEL", "debug")
	t.Setenv("CHATBOX_DATABASE_TYPE", "postgres")
	t.Setenv("CHATBOX_DATABASE_DSN", "postgres://localhost:5432/chatbox")

	cfg := loadConfig(t)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Chat.DefaultTimeout)
	assert.Equal(t, time.Hour, cfg.Chat.Retention)
	assert.Equal(t, "message missing", cfg.Chat.Messages.NoMessageFound)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost:5432/chatbox", cfg.Database.DSN)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CHATBOX_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := loadConfig(t)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRateLimit(t *testing.T) {
	t.Setenv("CHATBOX_RATELIMIT_ENABLED", "true")
	t.Setenv("CHATBOX_RATELIMIT_REQUESTS", "50")
	t.Setenv("CHATBOX_RATELIMIT_WINDOW", "30s")

	cfg := loadConfig(t)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Run("非法的默认超时", func(t *testing.T) {
		t.Setenv("CHATBOX_CHAT_DEFAULT_TIMEOUT", "not-a-duration")
		viper.Reset()
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("默认超时必须为正", func(t *testing.T) {
		t.Setenv("CHATBOX_CHAT_DEFAULT_TIMEOUT", "-1s")
		viper.Reset()
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("不支持的数据库类型", func(t *testing.T) {
		t.Setenv("CHATBOX_DATABASE_TYPE", "sqlite")
		viper.Reset()
		_, err := Load()
		assert.Error(t, err)
	})
}
