package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultAppID     = "default-app-id"
	collectionFormat = "artifacts/%s/public/data/tables"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Seeding    SeedingConfig    `yaml:"seeding"`
	Notices    NoticesConfig    `yaml:"notices"`
	NATS       NATSConfig       `yaml:"nats"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	Locale          string  `yaml:"locale"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects and tunes the remote document store.
type StoreConfig struct {
	Backend             string        `yaml:"backend"` // "sql" or "mongo"
	AppID               string        `yaml:"app_id"`
	PollIntervalSeconds *int          `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
	Mongo               MongoConfig   `yaml:"mongo"`
}

// MongoConfig holds the MongoDB connection settings for the document backend.
type MongoConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, mysql or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig configures how the station identity is established.
type AuthConfig struct {
	CustomToken string `yaml:"custom_token"`
	TokenSecret string `yaml:"token_secret"`
}

// SeedingConfig controls the first-run table bootstrap.
type SeedingConfig struct {
	Enabled   bool `yaml:"enabled"`
	NumTables int  `yaml:"num_tables"`
}

// NoticesConfig controls how long user-visible notices stay active.
type NoticesConfig struct {
	TTLSeconds int           `yaml:"ttl_seconds"`
	TTL        time.Duration `yaml:"-"`
}

// NATSConfig holds the change notification bus settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// CollectionPath returns the per-app path of the tables collection.
func (c *Config) CollectionPath() string {
	return fmt.Sprintf(collectionFormat, c.Store.AppID)
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"TABLES_APP_ID":       &c.Store.AppID,
		"TABLES_AUTH_TOKEN":   &c.Auth.CustomToken,
		"TABLES_TOKEN_SECRET": &c.Auth.TokenSecret,
		"TABLES_DATABASE_DSN": &c.Database.DSN,
		"VAPID_PUBLIC_KEY":    &c.Push.PublicKey,
		"VAPID_PRIVATE_KEY":   &c.Push.PrivateKey,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 300
	}
	if c.Server.Locale == "" {
		c.Server.Locale = "pt-BR"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "sql"
	}
	if c.Store.AppID == "" {
		c.Store.AppID = defaultAppID
	}
	// An explicit zero disables polling.
	poll := 2
	if c.Store.PollIntervalSeconds != nil && *c.Store.PollIntervalSeconds >= 0 {
		poll = *c.Store.PollIntervalSeconds
	}
	c.Store.PollInterval = time.Duration(poll) * time.Second
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = "table_status"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "tables.db"
	}

	if c.Seeding.NumTables <= 0 {
		c.Seeding.NumTables = 10
	}

	if c.Notices.TTLSeconds <= 0 {
		c.Notices.TTLSeconds = 3
	}
	c.Notices.TTL = time.Duration(c.Notices.TTLSeconds) * time.Second

	if c.NATS.Subject == "" {
		c.NATS.Subject = "tables.changed"
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}

	if c.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		c.WorkerPool.Size = 1
	}
}
