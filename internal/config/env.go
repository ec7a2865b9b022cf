package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from ITEMDB_* environment variables.
// Unset or malformed values leave the current value in place.
func parseEnv(c *Config) {
	c.Backend = getEnv("ITEMDB_BACKEND", c.Backend)
	c.DSN = getEnv("ITEMDB_DSN", c.DSN)
	c.SQLitePath = getEnv("ITEMDB_SQLITE_PATH", c.SQLitePath)
	c.MongoURI = getEnv("ITEMDB_MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("ITEMDB_MONGO_DATABASE", c.MongoDatabase)
	c.MongoPrefix = getEnv("ITEMDB_MONGO_PREFIX", c.MongoPrefix)
	c.PoolSize = getEnvInt("ITEMDB_POOL_SIZE", c.PoolSize)
	c.SyncInterval = getEnvDuration("ITEMDB_SYNC_INTERVAL", c.SyncInterval)
	c.SearchLimit = getEnvInt("ITEMDB_SEARCH_LIMIT", c.SearchLimit)
	c.HistoryLimit = getEnvInt("ITEMDB_HISTORY_LIMIT", c.HistoryLimit)
	c.WebhookURL = getEnv("ITEMDB_WEBHOOK_URL", c.WebhookURL)
	c.LogLevel = getEnv("ITEMDB_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("ITEMDB_LOG_FORMAT", c.LogFormat)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go duration syntax ("45s", "2m") or a bare number
// of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
