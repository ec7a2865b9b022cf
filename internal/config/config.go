// Package config handles runtime configuration: defaults, an optional .env
// file, an optional YAML config file, and environment variable overrides,
// applied in that order.
package config

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/devvoxel/itemdb/internal/flagx"
)

// Backend type names accepted in configuration.
const (
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds every option the record store and the storage backends need
// at construction time.
type Config struct {
	// Backend selects the storage implementation: sqlite, mysql, postgres
	// or mongo.
	Backend string

	// DSN is the connection string for the mysql and postgres backends.
	DSN string
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	MongoURI      string
	MongoDatabase string
	MongoPrefix   string

	PoolSize int

	// SyncInterval is the cache refresh period. StartSync enforces a floor
	// regardless of what is configured here.
	SyncInterval time.Duration

	SearchLimit  int
	HistoryLimit int

	// WebhookURL enables the outbound change/error notifier when non-empty.
	WebhookURL string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendSQLite
	c.SQLitePath = "itemdb.sqlite"
	c.MongoURI = "mongodb://127.0.0.1:27017"
	c.MongoDatabase = "itemdb"
	c.MongoPrefix = "itemdb_"
	c.PoolSize = 10
	c.SyncInterval = 30 * time.Second
	c.SearchLimit = 25
	c.HistoryLimit = 10
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load builds a Config. path points at a YAML config file; when empty, the
// -c/-config command-line flag is consulted, and when that is absent too the
// file layer is skipped. A .env file in the working directory, if present,
// is loaded into the environment first.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.LoadDefaults()

	if path == "" {
		path = flagx.ConfigFileFlag()
	}
	if path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}

	parseEnv(cfg)
	return cfg, nil
}
