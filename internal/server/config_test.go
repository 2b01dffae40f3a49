package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvTesting)
	dir := writeConfig(t, `
[auth]
jwt_secret = "test-secret-key"
`)

	cfg, err := loadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, EnvTesting, cfg.Env)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.OnboardingTTL)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTTL)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, 5, cfg.Verification.MaxAttempts)
	assert.False(t, cfg.Mail.Enabled)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("APP_ENV", EnvTesting)
	t.Setenv("QWIZME_AUTH_JWT_SECRET", "from-environment-secret")
	t.Setenv("QWIZME_SERVER_PORT", "9999")
	dir := writeConfig(t, `
[auth]
jwt_secret = "file-secret"
`)

	cfg, err := loadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-environment-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		body    string
		wantErr bool
	}{
		{
			name:    "missing secret",
			env:     EnvTesting,
			body:    "[server]\nport = \"8000\"\n",
			wantErr: true,
		},
		{
			name:    "short secret in production",
			env:     EnvProduction,
			body:    "[auth]\njwt_secret = \"short\"\n",
			wantErr: true,
		},
		{
			name:    "short secret in development",
			env:     EnvDevelopment,
			body:    "[auth]\njwt_secret = \"short\"\n",
			wantErr: false,
		},
		{
			name:    "mail enabled without host",
			env:     EnvTesting,
			body:    "[auth]\njwt_secret = \"test-secret-key\"\n[mail]\nenabled = true\n",
			wantErr: true,
		},
		{
			name:    "bad trusted proxy",
			env:     EnvTesting,
			body:    "[server]\ntrusted_proxies = [\"10.0.0.0/33\"]\n[auth]\njwt_secret = \"test-secret-key\"\n",
			wantErr: true,
		},
		{
			name:    "trusted proxies",
			env:     EnvTesting,
			body:    "[server]\ntrusted_proxies = [\"10.0.0.0/8\", \"127.0.0.1\"]\n[auth]\njwt_secret = \"test-secret-key\"\n",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			_, err := loadConfig(writeConfig(t, tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
