package config

import (
	"testing"
)

func TestLoadServerConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("LISTEN_ADDR", "")
		t.Setenv("ALLOWED_ORIGINS", "")
		t.Setenv("RATE_LIMIT_REQUESTS", "")
		t.Setenv("RATE_LIMIT_PERIOD", "")
		t.Setenv("SWEEP_ENABLED", "")

		cfg := LoadServerConfig()

		if cfg.Environment != EnvDevelopment {
			t.Errorf("Environment = %s, want development", cfg.Environment)
		}
		if cfg.ListenAddr != ":8080" {
			t.Errorf("ListenAddr = %s, want :8080", cfg.ListenAddr)
		}
		if cfg.RateLimitRequests != 100 {
			t.Errorf("RateLimitRequests = %d, want 100", cfg.RateLimitRequests)
		}
		if cfg.RateLimitPeriod != "1m" {
			t.Errorf("RateLimitPeriod = %s, want 1m", cfg.RateLimitPeriod)
		}
		if !cfg.SweepEnabled {
			t.Error("SweepEnabled = false, want true")
		}
	})

	t.Run("invalid environment falls back to development", func(t *testing.T) {
		t.Setenv("ENV", "qa")

		cfg := LoadServerConfig()

		if cfg.Environment != EnvDevelopment {
			t.Errorf("Environment = %s, want development", cfg.Environment)
		}
	})

	t.Run("origins parsed from comma list", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

		cfg := LoadServerConfig()

		if len(cfg.AllowedOrigins) != 2 {
			t.Fatalf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
		}
		if cfg.AllowedOrigins[1] != "https://admin.example.com" {
			t.Errorf("second origin = %s", cfg.AllowedOrigins[1])
		}
	})

	t.Run("sweep can be disabled", func(t *testing.T) {
		t.Setenv("SWEEP_ENABLED", "false")

		cfg := LoadServerConfig()

		if cfg.SweepEnabled {
			t.Error("SweepEnabled = true, want false")
		}
	})
}

func TestCLIConfig(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := t.TempDir() + "/config.yml"
		cfg := &CLIConfig{DatabaseURL: "postgres://localhost/gatekeep"}

		if err := SaveCLIConfig(path, cfg); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded, err := LoadCLIConfig(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.DatabaseURL != cfg.DatabaseURL {
			t.Errorf("DatabaseURL = %s, want %s", loaded.DatabaseURL, cfg.DatabaseURL)
		}
	})

	t.Run("missing file yields empty config", func(t *testing.T) {
		loaded, err := LoadCLIConfig(t.TempDir() + "/missing.yml")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.DatabaseURL != "" {
			t.Errorf("DatabaseURL = %q, want empty", loaded.DatabaseURL)
		}
	})

	t.Run("validate requires database URL", func(t *testing.T) {
		cfg := &CLIConfig{}
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error")
		}
	})
}
