package config

import "time"

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`

	// TrustedProxies lists the IPs or CIDRs allowed to set the client
	// address through forwarding headers.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type GRPCConfig struct {
	Port                  string `mapstructure:"port"`
	EnableReflection      bool   `mapstructure:"enable_reflection"`
	MaxReceiveMessageSize int    `mapstructure:"max_receive_message_size"`
	MaxSendMessageSize    int    `mapstructure:"max_send_message_size"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	OnboardingTTL  time.Duration `mapstructure:"onboarding_ttl"`
	ResetTTL       time.Duration `mapstructure:"reset_ttl"`
	VerifyEmailTTL time.Duration `mapstructure:"verify_email_ttl"`
	EmailChangeTTL time.Duration `mapstructure:"email_change_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
}

type VerificationConfig struct {
	CodeTTL     time.Duration `mapstructure:"code_ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type MailConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	SMTPHost         string        `mapstructure:"smtp_host"`
	SMTPPort         int           `mapstructure:"smtp_port"`
	SMTPUser         string        `mapstructure:"smtp_user"`
	SMTPPassword     string        `mapstructure:"smtp_password"`
	From             string        `mapstructure:"from"`
	FromName         string        `mapstructure:"from_name"`
	UseTLS           bool          `mapstructure:"use_tls"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FrontendURL      string        `mapstructure:"frontend_url"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
}

type RateLimitConfig struct {
	Disabled bool `mapstructure:"disabled"`
}

type SettingsConfig struct {
	// EncryptionKey is a base64 encoded 32 byte AES key.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type AppConfig struct {
	Env          string             `mapstructure:"env"`
	Server       ServerConfig       `mapstructure:"server"`
	GRPC         GRPCConfig         `mapstructure:"grpc"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Verification VerificationConfig `mapstructure:"verification"`
	Mail         MailConfig         `mapstructure:"mail"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Settings     SettingsConfig     `mapstructure:"settings"`
}
