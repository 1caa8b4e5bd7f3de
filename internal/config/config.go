package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	DatabaseURL      string   `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey    string   `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer        string   `mapstructure:"JWT_ISSUER"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`
	HistoryLimit     int      `mapstructure:"HISTORY_LIMIT"`
	AlertListLimit   int      `mapstructure:"ALERT_LIST_LIMIT"`
	SimulateInterval int      `mapstructure:"SIMULATE_INTERVAL_SECONDS"`
	SMTPHost         string   `mapstructure:"SMTP_HOST"`
	SMTPPort         int      `mapstructure:"SMTP_PORT"`
	SMTPFrom         string   `mapstructure:"SMTP_FROM"`
	NotifyEmail      bool     `mapstructure:"NOTIFY_EMAIL_ENABLED"`
	NotifySMS        bool     `mapstructure:"NOTIFY_SMS_ENABLED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("HISTORY_LIMIT", 100)
	v.SetDefault("ALERT_LIST_LIMIT", 50)
	v.SetDefault("SIMULATE_INTERVAL_SECONDS", 30)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFY_EMAIL_ENABLED", false)
	v.SetDefault("NOTIFY_SMS_ENABLED", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("HISTORY_LIMIT")
	v.BindEnv("ALERT_LIST_LIMIT")
	v.BindEnv("SIMULATE_INTERVAL_SECONDS")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("NOTIFY_EMAIL_ENABLED")
	v.BindEnv("NOTIFY_SMS_ENABLED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SIGNING_KEY.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In non-development
// modes JWT_SIGNING_KEY must be set so that real authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf(
			"JWT_SIGNING_KEY must be set when ENV=%q; refusing to start without authentication", c.Env)
	}
	if c.JWTSigningKey != "" && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.AlertListLimit <= 0 {
		return fmt.Errorf("ALERT_LIST_LIMIT must be positive, got %d", c.AlertListLimit)
	}
	if c.SimulateInterval <= 0 {
		return fmt.Errorf("SIMULATE_INTERVAL_SECONDS must be positive, got %d", c.SimulateInterval)
	}

	if c.NotifyEmail && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when NOTIFY_EMAIL_ENABLED is true")
	}

	return nil
}
