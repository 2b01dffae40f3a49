package server

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/elskow/qwizme/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

const envPrefix = "QWIZME"

var ErrWeakSecret = errors.New("auth.jwt_secret must be at least 16 bytes")

func LoadConfig() (*config.AppConfig, error) {
	return loadConfig("./config/server")
}

func loadConfig(paths ...string) (*config.AppConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// QWIZME_AUTH_JWT_SECRET overrides auth.jwt_secret
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are invisible to Unmarshal unless bound.
	for _, key := range []string{
		"auth.jwt_secret",
		"database.password",
		"mail.enabled",
		"mail.smtp_host",
		"mail.smtp_user",
		"mail.smtp_password",
		"mail.from",
		"rate_limit.disabled",
		"settings.encryption_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Env = env

	// Load environment-specific configurations
	if envSettings := v.GetStringMap(fmt.Sprintf("mail.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("mail.%s", env), &cfg.Mail); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("grpc.port", "50051")
	v.SetDefault("grpc.max_receive_message_size", 4<<20)
	v.SetDefault("grpc.max_send_message_size", 4<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "qwizme")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.onboarding_ttl", 2*time.Hour)
	v.SetDefault("auth.reset_ttl", time.Hour)
	v.SetDefault("auth.verify_email_ttl", 24*time.Hour)
	v.SetDefault("auth.email_change_ttl", time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("verification.code_ttl", 10*time.Minute)
	v.SetDefault("verification.max_attempts", 5)

	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.from_name", "Qwiz Me")
	v.SetDefault("mail.use_tls", true)
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("mail.frontend_url", "http://localhost:5173")
	v.SetDefault("mail.failure_threshold", 5)
	v.SetDefault("mail.breaker_timeout", time.Minute)
}

func validate(cfg *config.AppConfig) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if cfg.Env != EnvDevelopment && cfg.Env != EnvTesting && len(cfg.Auth.JWTSecret) < 16 {
		return ErrWeakSecret
	}
	if cfg.Mail.Enabled && (cfg.Mail.SMTPHost == "" || cfg.Mail.From == "") {
		return errors.New("mail.smtp_host and mail.from are required when mail is enabled")
	}
	if _, err := parseTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return err
	}
	return nil
}
