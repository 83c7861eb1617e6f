package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration values.
type Config struct {
	// Secret gates the operator/client mode switch. SecretHash, when set,
	// replaces the plaintext comparison with a bcrypt check.
	Secret     string
	SecretHash string

	HTTPPort    string
	DatabaseDSN string

	// CatalogURL is the tabular export fetched on refresh. CatalogSeed is an
	// optional local CSV loaded when the cache is empty.
	CatalogURL  string
	CatalogSeed string

	PriceMarkup int64

	MinCodeLength        int
	ScanCooldown         time.Duration
	CameraSettleDelay    time.Duration
	ResolvedStopDelay    time.Duration
	NotFoundRetryDelay   time.Duration
	CameraErrorStopDelay time.Duration

	SyncInterval    time.Duration
	CleanupInterval time.Duration
	RetentionDays   int
	MaxSales        int
	MaxEvents       int
	MaxDailyUsage   int
}

// fileConfig is the optional YAML overlay. Only set fields override defaults.
type fileConfig struct {
	Secret        string `yaml:"secret"`
	SecretHash    string `yaml:"secret_hash"`
	HTTPPort      string `yaml:"http_port"`
	DatabaseDSN   string `yaml:"database_dsn"`
	CatalogURL    string `yaml:"catalog_url"`
	CatalogSeed   string `yaml:"catalog_seed"`
	PriceMarkup   *int64 `yaml:"price_markup"`
	MinCodeLength *int   `yaml:"min_code_length"`
	ScanCooldown  string `yaml:"scan_cooldown"`
	SyncInterval  string `yaml:"sync_interval"`
	RetentionDays *int   `yaml:"retention_days"`
	MaxSales      *int   `yaml:"max_sales"`
	MaxEvents     *int   `yaml:"max_events"`
}

// Load reads configuration from environment variables with reasonable
// defaults, then applies the optional YAML file named by CONFIG_FILE.
func Load() Config {
	cfg := Config{
		Secret:      envOr("SECRET", "gamezone"),
		SecretHash:  os.Getenv("SECRET_HASH"),
		HTTPPort:    envOr("HTTP_PORT", "8080"),
		DatabaseDSN: envOr("DATABASE_DSN", "file:gamezone.db?_pragma=busy_timeout(5000)"),
		CatalogURL:  os.Getenv("CATALOG_URL"),
		CatalogSeed: os.Getenv("CATALOG_SEED"),

		PriceMarkup: 1000,

		MinCodeLength:        6,
		ScanCooldown:         300 * time.Millisecond,
		CameraSettleDelay:    time.Second,
		ResolvedStopDelay:    time.Second,
		NotFoundRetryDelay:   300 * time.Millisecond,
		CameraErrorStopDelay: 3 * time.Second,

		SyncInterval:    5 * time.Minute,
		CleanupInterval: 24 * time.Hour,
		RetentionDays:   30,
		MaxSales:        1000,
		MaxEvents:       500,
		MaxDailyUsage:   100,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("unable to apply config file %s: %v", path, err)
		}
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", cfg.HTTPPort)
		cfg.HTTPPort = "8080"
	}

	return cfg
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}

	if fc.Secret != "" {
		c.Secret = fc.Secret
	}
	if fc.SecretHash != "" {
		c.SecretHash = fc.SecretHash
	}
	if fc.HTTPPort != "" {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.DatabaseDSN != "" {
		c.DatabaseDSN = fc.DatabaseDSN
	}
	if fc.CatalogURL != "" {
		c.CatalogURL = fc.CatalogURL
	}
	if fc.CatalogSeed != "" {
		c.CatalogSeed = fc.CatalogSeed
	}
	if fc.PriceMarkup != nil {
		c.PriceMarkup = *fc.PriceMarkup
	}
	if fc.MinCodeLength != nil {
		c.MinCodeLength = *fc.MinCodeLength
	}
	if fc.RetentionDays != nil {
		c.RetentionDays = *fc.RetentionDays
	}
	if fc.MaxSales != nil {
		c.MaxSales = *fc.MaxSales
	}
	if fc.MaxEvents != nil {
		c.MaxEvents = *fc.MaxEvents
	}
	if fc.ScanCooldown != "" {
		if d, err := time.ParseDuration(fc.ScanCooldown); err == nil && d > 0 {
			c.ScanCooldown = d
		} else {
			log.Printf("invalid scan_cooldown %q, keeping %s", fc.ScanCooldown, c.ScanCooldown)
		}
	}
	if fc.SyncInterval != "" {
		if d, err := time.ParseDuration(fc.SyncInterval); err == nil && d > 0 {
			c.SyncInterval = d
		} else {
			log.Printf("invalid sync_interval %q, keeping %s", fc.SyncInterval, c.SyncInterval)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
