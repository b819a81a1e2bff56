package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Stream     StreamConfig     `yaml:"stream"`
	Orders     OrdersConfig     `yaml:"orders"`
	Admin      AdminConfig      `yaml:"admin"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	ClientOrigin    string  `yaml:"client_origin"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// StreamConfig tunes the dashboard event stream.
type StreamConfig struct {
	KeepAliveSeconds int           `yaml:"keepalive_seconds"`
	KeepAlive        time.Duration `yaml:"-"`
	BufferSize       int           `yaml:"buffer_size"`
}

// OrdersConfig holds order placement and listing settings.
type OrdersConfig struct {
	TaxRate              float64 `yaml:"tax_rate"`
	ListDefaultLimit     int     `yaml:"list_default_limit"`
	ListMaxLimit         int     `yaml:"list_max_limit"`
	LockTerminalStatuses bool    `yaml:"lock_terminal_statuses"`
}

// AdminConfig guards the kitchen dashboard API. An empty token disables auth.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the configuration from the given path. A missing file is not an
// error; defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		log.Printf("config file %s not found; using defaults", path)
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("ignoring invalid PORT %q", v)
		}
	}
	if v := os.Getenv("CLIENT_ORIGIN"); v != "" {
		cfg.Server.ClientOrigin = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv("ADMIN_TOKEN"); ok {
		cfg.Admin.Token = v
	}
	if v := os.Getenv("TAX_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Orders.TaxRate = rate
		} else {
			log.Printf("ignoring invalid TAX_RATE %q", v)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.ClientOrigin == "" {
		cfg.Server.ClientOrigin = "http://localhost:3000"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "sqlite:orders.db"
	}

	if cfg.Stream.KeepAliveSeconds <= 0 {
		cfg.Stream.KeepAliveSeconds = 15
	}
	cfg.Stream.KeepAlive = time.Duration(cfg.Stream.KeepAliveSeconds) * time.Second
	if cfg.Stream.BufferSize <= 0 {
		cfg.Stream.BufferSize = 64
	}

	if cfg.Orders.ListDefaultLimit <= 0 {
		cfg.Orders.ListDefaultLimit = 50
	}
	if cfg.Orders.ListMaxLimit <= 0 {
		cfg.Orders.ListMaxLimit = 200
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
