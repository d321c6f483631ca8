package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Env                 string `yaml:"env"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int    `yaml:"idleTimeoutSeconds"`
	FrontendURL         string `yaml:"frontend_url"`
	JWT          struct {
		AccessSecret     string `yaml:"accessSecret"`
		RefreshSecret    string `yaml:"refreshSecret"`
		AccessTTLMinutes int    `yaml:"accessTTLMinutes"`
		RefreshTTLDays   int    `yaml:"refreshTTLDays"`
	} `yaml:"jwt"`
}

type MongoCfg struct {
	URI                   string `yaml:"uri"`
	Database              string `yaml:"database"`
	ConnectTimeoutSeconds int    `yaml:"connectTimeoutSeconds"`
}

// ConnectTimeout bounds the initial dial and ping.
func (m MongoCfg) ConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeoutSeconds) * time.Second
}

type RedisCfg struct {
	Addr                  string `yaml:"addr"`
	Password              string `yaml:"password"`
	DB                    int    `yaml:"db"`
	ConnectTimeoutSeconds int    `yaml:"connectTimeoutSeconds"`
}

// ConnectTimeout bounds the startup ping.
func (r RedisCfg) ConnectTimeout() time.Duration {
	return time.Duration(r.ConnectTimeoutSeconds) * time.Second
}

type MailCfg struct {
	APIKey    string `yaml:"apiKey"`
	FromEmail string `yaml:"fromEmail"`
	FromName  string `yaml:"fromName"`
}

type AWSCfg struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`
}

type SecurityCfg struct {
	PasswordHashCost      int `yaml:"passwordHashCost"`
	ResetTokenTTLMinutes  int `yaml:"resetTokenTTLMinutes"`
	AuthRateLimitPerHour  int `yaml:"authRateLimitPerHour"`
	ResetRateLimitPerHour int `yaml:"resetRateLimitPerHour"`
}

type Config struct {
	App      AppCfg      `yaml:"app"`
	Mongo    MongoCfg    `yaml:"mongo"`
	Redis    RedisCfg    `yaml:"redis"`
	Mail     MailCfg     `yaml:"mail"`
	AWS      AWSCfg      `yaml:"aws"`
	Security SecurityCfg `yaml:"security"`
}

// Load reads config.yaml and applies environment overrides. Missing signing
// secrets or Mongo URI are fatal here so a misconfigured process never starts.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}
	overrideInt := func(env string, apply func(int)) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				apply(n)
			}
		}
	}

	override("APP_ENV", func(v string) { cfg.App.Env = v })
	overrideInt("APP_PORT", func(n int) { cfg.App.Port = n })
	override("FRONTEND_URL", func(v string) { cfg.App.FrontendURL = v })
	override("JWT_SECRET", func(v string) { cfg.App.JWT.AccessSecret = v })
	override("JWT_REFRESH_SECRET", func(v string) { cfg.App.JWT.RefreshSecret = v })
	overrideInt("JWT_ACCESS_TTL_MINUTES", func(n int) { cfg.App.JWT.AccessTTLMinutes = n })
	overrideInt("JWT_REFRESH_TTL_DAYS", func(n int) { cfg.App.JWT.RefreshTTLDays = n })
	override("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	override("MONGO_DB", func(v string) { cfg.Mongo.Database = v })
	override("REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	override("REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })
	overrideInt("REDIS_DB", func(n int) { cfg.Redis.DB = n })
	override("MAIL_API_KEY", func(v string) { cfg.Mail.APIKey = v })
	override("MAIL_FROM_EMAIL", func(v string) { cfg.Mail.FromEmail = v })
	override("MAIL_FROM_NAME", func(v string) { cfg.Mail.FromName = v })
	override("AWS_REGION", func(v string) { cfg.AWS.Region = v })
	override("AWS_BUCKET", func(v string) { cfg.AWS.Bucket = v })
	overrideInt("MONGO_CONNECT_TIMEOUT_SECONDS", func(n int) { cfg.Mongo.ConnectTimeoutSeconds = n })
	overrideInt("REDIS_CONNECT_TIMEOUT_SECONDS", func(n int) { cfg.Redis.ConnectTimeoutSeconds = n })
	overrideInt("PASSWORD_HASH_COST", func(n int) { cfg.Security.PasswordHashCost = n })
	overrideInt("RESET_TOKEN_TTL_MINUTES", func(n int) { cfg.Security.ResetTokenTTLMinutes = n })

	applyDefaults(cfg)

	if cfg.App.JWT.AccessSecret == "" {
		return nil, errors.New("JWT_SECRET is required (set in .env or config.yaml)")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is required")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.ReadTimeoutSeconds == 0 {
		cfg.App.ReadTimeoutSeconds = 10
	}
	if cfg.App.WriteTimeoutSeconds == 0 {
		cfg.App.WriteTimeoutSeconds = 10
	}
	if cfg.App.IdleTimeoutSeconds == 0 {
		cfg.App.IdleTimeoutSeconds = 60
	}
	if cfg.Mongo.ConnectTimeoutSeconds == 0 {
		cfg.Mongo.ConnectTimeoutSeconds = 10
	}
	if cfg.Redis.ConnectTimeoutSeconds == 0 {
		cfg.Redis.ConnectTimeoutSeconds = 5
	}
	if cfg.App.JWT.AccessTTLMinutes == 0 {
		cfg.App.JWT.AccessTTLMinutes = 15
	}
	if cfg.App.JWT.RefreshTTLDays == 0 {
		cfg.App.JWT.RefreshTTLDays = 7
	}
	if cfg.Security.ResetTokenTTLMinutes == 0 {
		cfg.Security.ResetTokenTTLMinutes = 60
	}
	if cfg.Security.AuthRateLimitPerHour == 0 {
		cfg.Security.AuthRateLimitPerHour = 30
	}
	if cfg.Security.ResetRateLimitPerHour == 0 {
		cfg.Security.ResetRateLimitPerHour = 5
	}
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = "http://localhost:5173"
	}
}

// ReadTimeout returns the HTTP server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.App.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.App.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the HTTP server idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.App.IdleTimeoutSeconds) * time.Second
}

// AccessTTL returns the access token lifetime as a duration.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.App.JWT.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime as a duration.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.App.JWT.RefreshTTLDays) * 24 * time.Hour
}

// ResetTokenTTL returns the password-reset credential lifetime.
func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.Security.ResetTokenTTLMinutes) * time.Minute
}
