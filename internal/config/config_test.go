package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-account-service/internal/config"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/accounts")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr())
	require.True(t, cfg.Server.IsDev())
	require.Equal(t, 15*time.Minute, cfg.Security.AccessTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.Security.RefreshTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.Security.SessionTTL)
	require.Equal(t, 10*time.Minute, cfg.Security.OTPTTL)
	require.Equal(t, 15*time.Minute, cfg.Security.ResetTokenTTL)
	require.Equal(t, 5, cfg.Security.MaxLoginAttempts)
	require.Equal(t, 15*time.Minute, cfg.Security.LockoutWindow)
	require.False(t, cfg.Security.MatchIPAddress)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.False(t, cfg.Google.Enabled())
	require.False(t, cfg.Mail.Enabled())
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Cors.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", ":9090")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("MATCH_IP_ADDRESS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Addr())
	require.Equal(t, 5*time.Minute, cfg.Security.AccessTokenTTL)
	require.Equal(t, 3, cfg.Security.MaxLoginAttempts)
	require.True(t, cfg.Security.MatchIPAddress)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Cors.AllowedOrigins)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/accounts")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsSharedSecret(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "same-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "same-secret")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/accounts")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("POSTGRES_DSN", "")

	_, err := config.Load()
	require.Error(t, err)
}
