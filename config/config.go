package config

import (
	"fmt"
	"os"
	"strconv"

	"signal-machine/strategy"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// External service configurations
	Alpaca AlpacaConfig

	// Analysis configuration
	Analysis AnalysisConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Environment is "development" or "production"; it selects the log format
	Environment string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey            string
	APISecret         string
	RequestsPerSecond float64
}

// AnalysisConfig holds the batch analysis knobs
type AnalysisConfig struct {
	LookbackDays             int
	MinBars                  int
	RiskFraction             float64
	DefaultCapital           float64
	DefaultStrategy          string
	InstrumentTimeoutSeconds int
	MaxConcurrentJobs        int
	MaxSymbolsPerJob         int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins string
	RequestTimeoutSec  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:            os.Getenv("ALPACA_API_KEY"),
			APISecret:         os.Getenv("ALPACA_API_SECRET"),
			RequestsPerSecond: getEnvFloatUnbounded("ALPACA_REQUESTS_PER_SECOND", 3),
		},
		Analysis: AnalysisConfig{
			LookbackDays:             getEnvInt("ANALYSIS_LOOKBACK_DAYS", 120),
			MinBars:                  getEnvInt("ANALYSIS_MIN_BARS", 50),
			RiskFraction:             getEnvFloatRange("ANALYSIS_RISK_FRACTION", 0.02, 0.001, 0.1),
			DefaultCapital:           getEnvFloatUnbounded("ANALYSIS_DEFAULT_CAPITAL", 100000),
			DefaultStrategy:          getEnvString("ANALYSIS_DEFAULT_STRATEGY", strategy.BaselineID),
			InstrumentTimeoutSeconds: getEnvInt("ANALYSIS_INSTRUMENT_TIMEOUT_SECONDS", 30),
			MaxConcurrentJobs:        getEnvInt("ANALYSIS_MAX_CONCURRENT_JOBS", 4),
			MaxSymbolsPerJob:         getEnvInt("ANALYSIS_MAX_SYMBOLS_PER_JOB", 100),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSec:  getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Environment: getEnvString("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Analysis.LookbackDays <= 0 {
		return fmt.Errorf("ANALYSIS_LOOKBACK_DAYS must be positive, got %d", c.Analysis.LookbackDays)
	}
	if c.Analysis.MinBars <= 0 {
		return fmt.Errorf("ANALYSIS_MIN_BARS must be positive, got %d", c.Analysis.MinBars)
	}
	if c.Analysis.MinBars > c.Analysis.LookbackDays {
		return fmt.Errorf("ANALYSIS_MIN_BARS (%d) cannot exceed ANALYSIS_LOOKBACK_DAYS (%d)",
			c.Analysis.MinBars, c.Analysis.LookbackDays)
	}
	if c.Analysis.RiskFraction <= 0 || c.Analysis.RiskFraction > 0.1 {
		return fmt.Errorf("ANALYSIS_RISK_FRACTION must be in (0, 0.1], got %.3f", c.Analysis.RiskFraction)
	}
	if c.Analysis.DefaultCapital <= 0 {
		return fmt.Errorf("ANALYSIS_DEFAULT_CAPITAL must be positive, got %.2f", c.Analysis.DefaultCapital)
	}
	if c.Analysis.InstrumentTimeoutSeconds <= 0 {
		return fmt.Errorf("ANALYSIS_INSTRUMENT_TIMEOUT_SECONDS must be positive, got %d", c.Analysis.InstrumentTimeoutSeconds)
	}
	if c.Analysis.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_CONCURRENT_JOBS must be positive, got %d", c.Analysis.MaxConcurrentJobs)
	}
	if c.Analysis.MaxSymbolsPerJob <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_SYMBOLS_PER_JOB must be positive, got %d", c.Analysis.MaxSymbolsPerJob)
	}
	if _, err := strategy.ProfileFor(c.Analysis.DefaultStrategy); err != nil {
		return fmt.Errorf("ANALYSIS_DEFAULT_STRATEGY %q is not a known strategy (known: %v)",
			c.Analysis.DefaultStrategy, strategy.IDs())
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// IsProduction returns true when running with the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		Alpaca: AlpacaConfig{
			APIKey:            "",
			APISecret:         "",
			RequestsPerSecond: 3,
		},
		Analysis: AnalysisConfig{
			LookbackDays:             120,
			MinBars:                  50,
			RiskFraction:             0.02,
			DefaultCapital:           100000,
			DefaultStrategy:          strategy.BaselineID,
			InstrumentTimeoutSeconds: 30,
			MaxConcurrentJobs:        4,
			MaxSymbolsPerJob:         100,
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
			RequestTimeoutSec:  60,
		},
		Environment: "development",
	}
}
