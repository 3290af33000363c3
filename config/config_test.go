package config_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/caregate/caregate/config"
)

func TestLoad_Minimal(t *testing.T) {
	path := writeConfig(t, validConfig())

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Assistant.URL != "http://localhost:3000" {
		t.Errorf("Assistant.URL = %q", cfg.Assistant.URL)
	}

	// Defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "caregate.db" {
		t.Errorf("database defaults = %q %q", cfg.Database.Driver, cfg.Database.DSN)
	}
	if cfg.Payment.Provider != "none" {
		t.Errorf("default payment provider = %q, want none", cfg.Payment.Provider)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("default token TTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %q %q", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics path default = %q", cfg.Metrics.Path)
	}
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090
  base_url: "https://caregate.example.com"

assistant:
  url: "https://answers.internal:8443"
  api_key: "svc-key"
  timeout: 90s

auth:
  jwt_secret: "super-secret"
  token_ttl: 12h

payment:
  provider: "stripe"
  stripe_key: "sk_test_123"
  webhook_secret: "whsec_456"
  price_tiers:
    price_abc: pro
    price_def: premium

database:
  dsn: "/var/lib/caregate/caregate.db"

logging:
  level: debug
  format: console

metrics:
  enabled: true

openapi:
  enabled: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Assistant.Timeout != 90*time.Second {
		t.Errorf("assistant timeout = %v", cfg.Assistant.Timeout)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("token TTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Payment.PriceTiers["price_abc"] != "pro" {
		t.Errorf("price tiers = %v", cfg.Payment.PriceTiers)
	}
	if !cfg.Metrics.Enabled || !cfg.OpenAPI.Enabled {
		t.Error("metrics/openapi should be enabled")
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing assistant url",
			"auth:\n  jwt_secret: s\n",
			"assistant.url",
		},
		{
			"missing jwt secret",
			"assistant:\n  url: http://localhost:3000\n",
			"auth.jwt_secret",
		},
		{
			"stripe without key",
			validConfig() + "\npayment:\n  provider: stripe\n",
			"stripe_key",
		},
		{
			"unknown provider",
			validConfig() + "\npayment:\n  provider: paypal\n",
			"payment.provider",
		},
		{
			"bad log level",
			validConfig() + "\nlogging:\n  level: verbose\n",
			"logging.level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ASSISTANT_KEY", "expanded-key")

	path := writeConfig(t, `
assistant:
  url: "http://localhost:3000"
  api_key: "${TEST_ASSISTANT_KEY}"

auth:
  jwt_secret: "s"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Assistant.APIKey != "expanded-key" {
		t.Errorf("api key = %q, want expanded value", cfg.Assistant.APIKey)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAREGATE_SERVER_PORT", "9999")
	t.Setenv("CAREGATE_LOG_LEVEL", "debug")

	path := writeConfig(t, validConfig())
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("env override port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAREGATE_ASSISTANT_URL", "http://answers:3000")
	t.Setenv("CAREGATE_AUTH_JWT_SECRET", "env-secret")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Assistant.URL != "http://answers:3000" {
		t.Errorf("assistant url = %q", cfg.Assistant.URL)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadWithFallback(t *testing.T) {
	// No file, no env: error.
	os.Unsetenv("CAREGATE_ASSISTANT_URL")
	if _, err := config.LoadWithFallback(""); err == nil {
		t.Error("expected error with no config source")
	}

	// File present: file wins.
	path := writeConfig(t, validConfig())
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Assistant.URL != "http://localhost:3000" {
		t.Errorf("assistant url = %q", cfg.Assistant.URL)
	}

	// No file but env set: env wins.
	t.Setenv("CAREGATE_ASSISTANT_URL", "http://answers:3000")
	t.Setenv("CAREGATE_AUTH_JWT_SECRET", "env-secret")
	cfg, err = config.LoadWithFallback("/does/not/exist.yaml")
	if err != nil {
		t.Fatalf("LoadWithFallback env error: %v", err)
	}
	if cfg.Assistant.URL != "http://answers:3000" {
		t.Errorf("assistant url from env = %q", cfg.Assistant.URL)
	}
}
