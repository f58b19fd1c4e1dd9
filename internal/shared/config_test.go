package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./baas.db" {
			t.Errorf("expected database path ./baas.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.API.BaseURL != "https://api.meetingbaas.com" {
			t.Errorf("expected api base url https://api.meetingbaas.com, got %s", config.API.BaseURL)
		}

		if config.Cache.Backend != "sqlite" {
			t.Errorf("expected cache backend sqlite, got %s", config.Cache.Backend)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "http://localhost:8080"
token = "secret"

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[cache]
backend = "redis"
ttl = "15m"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Address() != "0.0.0.0:8080" {
			t.Errorf("expected address 0.0.0.0:8080, got %s", config.Server.Address())
		}

		if config.API.Token != "secret" {
			t.Errorf("expected token secret, got %s", config.API.Token)
		}

		if config.Account.ID != "default" {
			t.Errorf("unset sections should keep defaults, got account %q", config.Account.ID)
		}

		ttl, err := config.Cache.TTLDuration()
		if err != nil || ttl != 15*time.Minute {
			t.Errorf("expected ttl 15m, got %v (%v)", ttl, err)
		}
	})

	t.Run("LoadConfig fails on malformed toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[api\nbase_url ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "missing base url", mutate: func(c *Config) { c.API.BaseURL = "" }},
			{name: "missing account", mutate: func(c *Config) { c.Account.ID = "" }},
			{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }},
			{name: "bad ttl", mutate: func(c *Config) { c.Cache.TTL = "forever" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("BAAS_API_TOKEN", "from-env")
		t.Setenv("BAAS_API_URL", "http://env.local")
		t.Setenv("BAAS_REDIS_ADDR", "redis:6379")
		t.Setenv("BAAS_SERVER_PORT", "9999")

		config := DefaultConfig()
		ApplyEnv(config)

		if config.API.Token != "from-env" {
			t.Errorf("expected token from env, got %s", config.API.Token)
		}
		if config.API.BaseURL != "http://env.local" {
			t.Errorf("expected base url from env, got %s", config.API.BaseURL)
		}
		if config.Cache.RedisAddr != "redis:6379" {
			t.Errorf("expected redis addr from env, got %s", config.Cache.RedisAddr)
		}
		if config.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", config.Server.Port)
		}
	})

	t.Run("LoadConfigFromEnv without file", func(t *testing.T) {
		t.Setenv("BAAS_API_TOKEN", "env-only")

		config, err := LoadConfigFromEnv(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.API.Token != "env-only" {
			t.Errorf("expected env token, got %s", config.API.Token)
		}
	})

	t.Run("SaveConfig round trips", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.API.Token = "saved"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.API.Token != "saved" {
			t.Errorf("expected saved token, got %s", loaded.API.Token)
		}
	})
}
