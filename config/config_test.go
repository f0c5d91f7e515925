package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Analysis.LookbackDays != 120 {
		t.Errorf("LookbackDays = %d, want 120", cfg.Analysis.LookbackDays)
	}
	if cfg.Analysis.MinBars != 50 {
		t.Errorf("MinBars = %d, want 50", cfg.Analysis.MinBars)
	}
	if cfg.Analysis.RiskFraction != 0.02 {
		t.Errorf("RiskFraction = %v, want 0.02", cfg.Analysis.RiskFraction)
	}
	if cfg.Analysis.DefaultStrategy != "balanced" {
		t.Errorf("DefaultStrategy = %q, want balanced", cfg.Analysis.DefaultStrategy)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_LOOKBACK_DAYS", "200")
	t.Setenv("ANALYSIS_RISK_FRACTION", "0.05")
	t.Setenv("ANALYSIS_DEFAULT_STRATEGY", "momentum")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Analysis.LookbackDays != 200 {
		t.Errorf("LookbackDays = %d, want 200", cfg.Analysis.LookbackDays)
	}
	if cfg.Analysis.RiskFraction != 0.05 {
		t.Errorf("RiskFraction = %v, want 0.05", cfg.Analysis.RiskFraction)
	}
	if cfg.Analysis.DefaultStrategy != "momentum" {
		t.Errorf("DefaultStrategy = %q, want momentum", cfg.Analysis.DefaultStrategy)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false with ENVIRONMENT=production")
	}
}

func TestLoadIgnoresOutOfRangeValues(t *testing.T) {
	t.Setenv("ANALYSIS_RISK_FRACTION", "0.5") // above the 0.1 ceiling
	t.Setenv("ANALYSIS_MIN_BARS", "-10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.RiskFraction != 0.02 {
		t.Errorf("out-of-range risk fraction = %v, want default 0.02", cfg.Analysis.RiskFraction)
	}
	if cfg.Analysis.MinBars != 50 {
		t.Errorf("negative min bars = %d, want default 50", cfg.Analysis.MinBars)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "min bars exceeds lookback",
			mutate:  func(c *Config) { c.Analysis.MinBars = 200 },
			wantErr: "ANALYSIS_MIN_BARS",
		},
		{
			name:    "risk fraction too large",
			mutate:  func(c *Config) { c.Analysis.RiskFraction = 0.5 },
			wantErr: "ANALYSIS_RISK_FRACTION",
		},
		{
			name:    "unknown default strategy",
			mutate:  func(c *Config) { c.Analysis.DefaultStrategy = "yolo" },
			wantErr: "ANALYSIS_DEFAULT_STRATEGY",
		},
		{
			name:    "non-positive capital",
			mutate:  func(c *Config) { c.Analysis.DefaultCapital = 0 },
			wantErr: "ANALYSIS_DEFAULT_CAPITAL",
		},
		{
			name:    "non-positive symbol cap",
			mutate:  func(c *Config) { c.Analysis.MaxSymbolsPerJob = 0 },
			wantErr: "ANALYSIS_MAX_SYMBOLS_PER_JOB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestFeatureDetection(t *testing.T) {
	cfg := NewTestConfig()
	if cfg.HasDatabase() {
		t.Error("HasDatabase() = true with empty URL")
	}
	if cfg.HasAlpaca() {
		t.Error("HasAlpaca() = true with no credentials")
	}

	cfg.Database.URL = "postgres://localhost/signals"
	cfg.Alpaca.APIKey = "key"
	cfg.Alpaca.APISecret = "secret"
	if !cfg.HasDatabase() {
		t.Error("HasDatabase() = false with URL set")
	}
	if !cfg.HasAlpaca() {
		t.Error("HasAlpaca() = false with credentials set")
	}
}
