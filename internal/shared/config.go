package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Account  AccountConfig  `toml:"account"`
	Cache    CacheConfig    `toml:"cache"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains the backend email preferences API settings.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	Token             string  `toml:"token"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// AccountConfig identifies whose preferences are cached locally.
type AccountConfig struct {
	ID           string `toml:"id"`
	DashboardURL string `toml:"dashboard_url"`
}

// CacheConfig selects the catalog cache backend.
type CacheConfig struct {
	Backend     string `toml:"backend"`
	TTL         string `toml:"ttl"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	RedisPrefix string `toml:"redis_prefix"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Timeout returns the HTTP client timeout.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTLDuration parses the cache TTL, defaulting to one hour.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return time.Hour, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("%w: cache ttl %q: %v", ErrInvalidConfig, c.TTL, err)
	}
	return d, nil
}

// Address returns host:port for the HTTP server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Account.ID == "" {
		return fmt.Errorf("%w: account.id is required", ErrInvalidConfig)
	}
	switch c.Cache.Backend {
	case "", "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads path (or the defaults when it does not exist) and applies environment overrides.
//
// A .env file in the working directory is loaded first if present.
func LoadConfigFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	ApplyEnv(config)
	return config, nil
}

// ApplyEnv overrides config fields from BAAS_* environment variables.
func ApplyEnv(config *Config) {
	if v := os.Getenv("BAAS_API_URL"); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv("BAAS_API_TOKEN"); v != "" {
		config.API.Token = v
	}
	if v := os.Getenv("BAAS_ACCOUNT"); v != "" {
		config.Account.ID = v
	}
	if v := os.Getenv("BAAS_DATABASE_PATH"); v != "" {
		config.Database.Path = v
	}
	if v := os.Getenv("BAAS_CACHE_BACKEND"); v != "" {
		config.Cache.Backend = v
	}
	if v := os.Getenv("BAAS_REDIS_ADDR"); v != "" {
		config.Cache.RedisAddr = v
	}
	if v := os.Getenv("BAAS_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("BAAS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
