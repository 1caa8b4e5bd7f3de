package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Port:             "8000",
		Env:              "production",
		DatabaseURL:      "postgres://localhost/ldps",
		JWTSigningKey:    strings.Repeat("k", 32),
		HistoryLimit:     100,
		AlertListLimit:   50,
		SimulateInterval: 30,
	}
}

func TestValidateProductionRequiresSigningKey(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSigningKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing JWT_SIGNING_KEY in production")
	}
}

func TestValidateDevAllowsMissingSigningKey(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "development"
	cfg.JWTSigningKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected dev config without signing key to validate, got %v", err)
	}
}

func TestValidateRejectsShortSigningKey(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSigningKey = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short signing key")
	}
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"history", func(c *Config) { c.HistoryLimit = 0 }},
		{"alerts", func(c *Config) { c.AlertListLimit = -1 }},
		{"simulate", func(c *Config) { c.SimulateInterval = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateEmailRequiresSMTPHost(t *testing.T) {
	cfg := validConfig()
	cfg.NotifyEmail = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when email enabled without SMTP host")
	}
	cfg.SMTPHost = "smtp.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config with SMTP host to validate, got %v", err)
	}
}

func TestIsDev(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDev() {
		t.Error("expected IsDev for ENV=development")
	}
	if cfg.IsProduction() {
		t.Error("did not expect IsProduction for ENV=development")
	}
}
