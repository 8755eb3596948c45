package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Orch     OrchConfig
	Vendors  map[string]VendorOverride
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StorageConfig holds object-storage configuration
type StorageConfig struct {
	Bucket            string
	Region            string
	PublicRead        bool
	URLExpire         time.Duration
	MediaFetchTimeout time.Duration
}

// OrchConfig holds the process-wide orchestration defaults. Per-call values
// are derived from these and from vendor overrides.
type OrchConfig struct {
	RetryEnabled      bool
	PollInterval      time.Duration
	MaxPollAttempts   int
	MaxSubmitRetries  int
	BackoffMultiplier time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	RequestTimeout    time.Duration
}

// VendorOverride tunes per-vendor poll and timeout settings. Loaded from an
// optional YAML file; video vendors need far larger attempt budgets.
type VendorOverride struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
}

// UnmarshalYAML accepts durations in time.ParseDuration notation ("2s",
// "1m30s"); yaml has no native duration scalar.
func (v *VendorOverride) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		PollInterval    string `yaml:"poll_interval"`
		MaxPollAttempts int    `yaml:"max_poll_attempts"`
		RequestTimeout  string `yaml:"request_timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v.MaxPollAttempts = raw.MaxPollAttempts
	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		v.PollInterval = d
	}
	if raw.RequestTimeout != "" {
		d, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		v.RequestTimeout = d
	}
	return nil
}

// LoadConfig loads configuration from environment variables, plus the
// optional vendor-overrides file named by VENDORS_CONFIG.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "sqlite://./genbridge.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			Bucket:            getEnv("STORAGE_BUCKET", ""),
			Region:            getEnv("STORAGE_REGION", "us-east-1"),
			PublicRead:        getEnvAsBool("STORAGE_PUBLIC_READ", true),
			URLExpire:         getEnvAsDuration("STORAGE_URL_EXPIRE", time.Hour),
			MediaFetchTimeout: getEnvAsDuration("STORAGE_MEDIA_FETCH_TIMEOUT", 5*time.Minute),
		},
		Orch: OrchConfig{
			RetryEnabled:      getEnvAsBool("RETRY_ENABLED", true),
			PollInterval:      getEnvAsDuration("TASK_POLL_INTERVAL", 5*time.Second),
			MaxPollAttempts:   getEnvAsInt("TASK_MAX_POLL_ATTEMPTS", 120),
			MaxSubmitRetries:  getEnvAsInt("MAX_SUBMIT_RETRIES", 3),
			BackoffMultiplier: getEnvAsDuration("BACKOFF_MULTIPLIER", time.Second),
			BackoffMin:        getEnvAsDuration("BACKOFF_MIN", 2*time.Second),
			BackoffMax:        getEnvAsDuration("BACKOFF_MAX", 10*time.Second),
			RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 45*time.Second),
		},
		Vendors: map[string]VendorOverride{},
	}

	if path := os.Getenv("VENDORS_CONFIG"); path != "" {
		overrides, err := loadVendorOverrides(path)
		if err != nil {
			return nil, fmt.Errorf("load vendor overrides: %w", err)
		}
		cfg.Vendors = overrides
	}
	return cfg, nil
}

func loadVendorOverrides(path string) (map[string]VendorOverride, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Vendors map[string]VendorOverride `yaml:"vendors"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Vendors == nil {
		doc.Vendors = map[string]VendorOverride{}
	}
	return doc.Vendors, nil
}

// VendorOrch returns the orchestration defaults with any per-vendor override
// applied.
func (c *Config) VendorOrch(vendor string) OrchConfig {
	out := c.Orch
	ov, ok := c.Vendors[vendor]
	if !ok {
		return out
	}
	if ov.PollInterval > 0 {
		out.PollInterval = ov.PollInterval
	}
	if ov.MaxPollAttempts > 0 {
		out.MaxPollAttempts = ov.MaxPollAttempts
	}
	if ov.RequestTimeout > 0 {
		out.RequestTimeout = ov.RequestTimeout
	}
	return out
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Orch.MaxPollAttempts <= 0 {
		return NewAppError("CONFIG_ERROR", "TASK_MAX_POLL_ATTEMPTS must be positive", ErrInvalidInput)
	}
	if c.Orch.BackoffMin > c.Orch.BackoffMax {
		return NewAppError("CONFIG_ERROR", "BACKOFF_MIN may not exceed BACKOFF_MAX", ErrInvalidInput)
	}
	return nil
}
