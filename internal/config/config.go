package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete screener runtime configuration
type Config struct {
	CacheDir     string          `yaml:"cache_dir"`
	SnapshotPath string          `yaml:"snapshot_path"` // static stock-list fallback
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Retry        RetryConfig     `yaml:"retry"`
	Pipeline     PipelineConfig  `yaml:"pipeline"`
	HTTP         HTTPConfig      `yaml:"http"`
	Provider     ProviderConfig  `yaml:"provider"`
	TTLHours     map[string]int  `yaml:"ttl_hours"` // per-dataset cache TTL overrides
}

// RateLimitConfig governs the shared sliding-window call budget
type RateLimitConfig struct {
	MaxCalls   int `yaml:"max_calls"`   // calls allowed per window
	WindowSecs int `yaml:"window_secs"` // rolling window length
}

// RetryConfig represents the bounded retry policy for upstream calls
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	DelayMS     int `yaml:"delay_ms"` // fixed inter-attempt delay
}

// PipelineConfig bounds the per-entity evaluation stage
type PipelineConfig struct {
	MaxWorkers       int `yaml:"max_workers"`
	ProgressInterval int `yaml:"progress_interval"` // report every N completions
}

// HTTPConfig holds listener settings for the API surface
type HTTPConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout_secs"`
	WriteTimeout int    `yaml:"write_timeout_secs"`
	IdleTimeout  int    `yaml:"idle_timeout_secs"`
}

// ProviderConfig holds upstream data-source settings
type ProviderConfig struct {
	Name      string  `yaml:"name"`       // eastmoney (default)
	RPS       float64 `yaml:"rps"`        // per-second request smoothing
	Burst     int     `yaml:"burst"`      // burst capacity for the smoother
	TimeoutMS int     `yaml:"timeout_ms"` // single-request timeout
	UserAgent string  `yaml:"user_agent"`
}

// Load reads and validates a YAML config file, applying defaults for
// anything left unset.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration. Limits sit below the
// upstream's documented quota on purpose.
func Default() *Config {
	return &Config{
		CacheDir:     "cache",
		SnapshotPath: "config/stocklist_snapshot.json",
		RateLimit: RateLimitConfig{
			MaxCalls:   100,
			WindowSecs: 60,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			DelayMS:     2000,
		},
		Pipeline: PipelineConfig{
			MaxWorkers:       16,
			ProgressInterval: 20,
		},
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         5000,
			ReadTimeout:  10,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Provider: ProviderConfig{
			Name:      "eastmoney",
			RPS:       4,
			Burst:     2,
			TimeoutMS: 30000,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		TTLHours: map[string]int{},
	}
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.RateLimit.MaxCalls <= 0 {
		return fmt.Errorf("rate_limit.max_calls must be positive, got %d", c.RateLimit.MaxCalls)
	}
	if c.RateLimit.WindowSecs <= 0 {
		return fmt.Errorf("rate_limit.window_secs must be positive, got %d", c.RateLimit.WindowSecs)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline.max_workers must be positive, got %d", c.Pipeline.MaxWorkers)
	}
	for ds, hours := range c.TTLHours {
		if hours <= 0 {
			return fmt.Errorf("ttl_hours[%s] must be positive, got %d", ds, hours)
		}
	}
	return nil
}

// RetryDelay returns the fixed inter-attempt delay as a duration
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMS) * time.Millisecond
}

// Window returns the rate-limit window as a duration
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowSecs) * time.Second
}
