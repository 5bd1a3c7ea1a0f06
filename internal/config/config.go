package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"innkeeper/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Engine     EngineConfig     `yaml:"engine"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	PropertyID  int64  `yaml:"property_id"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey binds an API key to a named client and its role.
type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// EngineConfig tunes the reservation engine itself.
type EngineConfig struct {
	HoldWindow        string         `yaml:"hold_window"`
	SweepInterval     string         `yaml:"sweep_interval"`
	SweepBatchSize    int            `yaml:"sweep_batch_size"`
	MaxAdvanceDays    int            `yaml:"max_advance_days"`
	WeekendMultiplier float64        `yaml:"weekend_multiplier"`
	Seasons           []SeasonConfig `yaml:"seasons"`
	CatalogCacheTTL   string         `yaml:"catalog_cache_ttl"`
	CommitMaxRetries  int            `yaml:"commit_max_retries"`
	DefaultCurrency   string         `yaml:"default_currency"`
}

// SeasonConfig declares a pricing season as inclusive calendar dates.
type SeasonConfig struct {
	Name       string  `yaml:"name"`
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	Multiplier float64 `yaml:"multiplier"`
}

func Load(configPath string) (*Config, error) {
	// .env дополняет окружение, его отсутствие не является ошибкой
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Engine.WeekendMultiplier < 0 {
		return errors.New("weekend multiplier must not be negative")
	}
	for _, field := range []struct{ name, value string }{
		{"hold_window", c.Engine.HoldWindow},
		{"sweep_interval", c.Engine.SweepInterval},
		{"catalog_cache_ttl", c.Engine.CatalogCacheTTL},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("engine %s: %w", field.name, err)
		}
	}
	for _, season := range c.Engine.Seasons {
		from, err := time.Parse(models.DateFormat, season.From)
		if err != nil {
			return fmt.Errorf("season %q: invalid from date: %w", season.Name, err)
		}
		to, err := time.Parse(models.DateFormat, season.To)
		if err != nil {
			return fmt.Errorf("season %q: invalid to date: %w", season.Name, err)
		}
		if to.Before(from) {
			return fmt.Errorf("season %q ends before it starts", season.Name)
		}
		if season.Multiplier <= 0 {
			return fmt.Errorf("season %q: multiplier must be positive", season.Name)
		}
	}

	roles := map[string]bool{"": true, "guest": true, "staff": true, "admin": true}
	for _, key := range c.API.Auth.APIKeys {
		if key.Key == "" {
			return fmt.Errorf("api key for client %q is empty", key.Name)
		}
		if !roles[key.Role] {
			return fmt.Errorf("api key for client %q has unknown role %q", key.Name, key.Role)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 20
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 40
	}

	if c.Engine.HoldWindow == "" {
		c.Engine.HoldWindow = models.DefaultHoldWindow.String()
	}
	if c.Engine.SweepInterval == "" {
		c.Engine.SweepInterval = models.DefaultSweepInterval.String()
	}
	if c.Engine.SweepBatchSize == 0 {
		c.Engine.SweepBatchSize = 100
	}
	if c.Engine.MaxAdvanceDays == 0 {
		c.Engine.MaxAdvanceDays = models.MaxAdvanceBookingDays
	}
	if c.Engine.WeekendMultiplier == 0 {
		c.Engine.WeekendMultiplier = 1.0
	}
	if c.Engine.CatalogCacheTTL == "" {
		c.Engine.CatalogCacheTTL = models.CatalogCacheTTL.String()
	}
	if c.Engine.CommitMaxRetries == 0 {
		c.Engine.CommitMaxRetries = models.CommitMaxRetries
	}
	if c.Engine.DefaultCurrency == "" {
		c.Engine.DefaultCurrency = "USD"
	}
}

// HoldWindowDuration returns the parsed hold window. Validate has
// already rejected malformed values.
func (e EngineConfig) HoldWindowDuration() time.Duration {
	d, err := time.ParseDuration(e.HoldWindow)
	if err != nil {
		return models.DefaultHoldWindow
	}
	return d
}

func (e EngineConfig) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(e.SweepInterval)
	if err != nil {
		return models.DefaultSweepInterval
	}
	return d
}

func (e EngineConfig) CatalogCacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(e.CatalogCacheTTL)
	if err != nil {
		return models.CatalogCacheTTL
	}
	return d
}
