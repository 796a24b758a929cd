package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Public base URL used to build dashboard, admin and login links in emails.
	AppURL     string `mapstructure:"APP_URL" validate:"required,url"`
	AppName    string `mapstructure:"APP_NAME" validate:"required"`
	EmailFrom  string `mapstructure:"EMAIL_FROM" validate:"required,email"`
	AdminEmail string `mapstructure:"ADMIN_EMAIL" validate:"omitempty,email"`

	// Used by the migrate command to seed the first admin account.
	AdminPassword string `mapstructure:"ADMIN_PASSWORD" validate:"omitempty,min=8"`

	// Empty key means emails are only logged by the worker.
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`

	StorageEndpoint  string `mapstructure:"STORAGE_ENDPOINT" validate:"omitempty,hostname_port|hostname"`
	StorageAccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket    string `mapstructure:"STORAGE_BUCKET" validate:"required_with=StorageEndpoint"`
	StorageRegion    string `mapstructure:"STORAGE_REGION"`
	StorageUseSSL    bool   `mapstructure:"STORAGE_USE_SSL"`
	StoragePublicURL string `mapstructure:"STORAGE_PUBLIC_URL" validate:"omitempty,url"`

	OIDCIssuerURL    string `mapstructure:"OIDC_ISSUER_URL" validate:"omitempty,url"`
	OIDCClientID     string `mapstructure:"OIDC_CLIENT_ID" validate:"required_with=OIDCIssuerURL"`
	OIDCClientSecret string `mapstructure:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `mapstructure:"OIDC_REDIRECT_URL" validate:"required_with=OIDCIssuerURL"`

	NotificationRetentionDays int    `mapstructure:"NOTIFICATION_RETENTION_DAYS" validate:"gte=1"`
	NotificationCleanupSpec   string `mapstructure:"NOTIFICATION_CLEANUP_SPEC" validate:"required"`
}

// StorageEnabled reports whether object storage credentials are configured.
func (c *Config) StorageEnabled() bool {
	return c.StorageEndpoint != "" && c.StorageAccessKey != ""
}

// OIDCEnabled reports whether third-party sign-in is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuerURL != ""
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"JWT_SECRET",
	"APP_URL",
	"APP_NAME",
	"EMAIL_FROM",
	"ADMIN_EMAIL",
	"ADMIN_PASSWORD",
	"RESEND_API_KEY",
	"STORAGE_ENDPOINT",
	"STORAGE_ACCESS_KEY",
	"STORAGE_SECRET_KEY",
	"STORAGE_BUCKET",
	"STORAGE_REGION",
	"STORAGE_USE_SSL",
	"STORAGE_PUBLIC_URL",
	"OIDC_ISSUER_URL",
	"OIDC_CLIENT_ID",
	"OIDC_CLIENT_SECRET",
	"OIDC_REDIRECT_URL",
	"NOTIFICATION_RETENTION_DAYS",
	"NOTIFICATION_CLEANUP_SPEC",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("APP_NAME", "ModelMagic")
	v.SetDefault("EMAIL_FROM", "noreply@modelmagic.com")
	v.SetDefault("STORAGE_BUCKET", "modelmagic-assets")
	v.SetDefault("STORAGE_REGION", "auto")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("NOTIFICATION_RETENTION_DAYS", 90)
	v.SetDefault("NOTIFICATION_CLEANUP_SPEC", "0 3 * * *")

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	if s := v.GetString("SHUTDOWN_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}

	c.AppURL = strings.TrimRight(c.AppURL, "/")

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.AppEnv == "production" && c.JWTSecret == "" {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET is required in production")
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Lookup returns the loaded configuration without panicking.
func Lookup() (*Config, bool) {
	return cfg, cfg != nil
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
