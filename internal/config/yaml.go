package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding. Pointer fields distinguish
// "absent" from zero values, and durations are accepted in Go syntax
// ("45s", "2m") rather than raw nanoseconds.
type fileConfig struct {
	Backend       *string `yaml:"backend"`
	DSN           *string `yaml:"dsn"`
	SQLitePath    *string `yaml:"sqlite_path"`
	MongoURI      *string `yaml:"mongo_uri"`
	MongoDatabase *string `yaml:"mongo_database"`
	MongoPrefix   *string `yaml:"mongo_prefix"`
	PoolSize      *int    `yaml:"pool_size"`
	SyncInterval  *string `yaml:"sync_interval"`
	SearchLimit   *int    `yaml:"search_limit"`
	HistoryLimit  *int    `yaml:"history_limit"`
	WebhookURL    *string `yaml:"webhook_url"`
	LogLevel      *string `yaml:"log_level"`
	LogFormat     *string `yaml:"log_format"`
}

// parseFile overlays Config with values from a YAML file. Only keys present
// in the file are touched; everything else keeps its current value.
func parseFile(c *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Backend, f.Backend)
	setString(&c.DSN, f.DSN)
	setString(&c.SQLitePath, f.SQLitePath)
	setString(&c.MongoURI, f.MongoURI)
	setString(&c.MongoDatabase, f.MongoDatabase)
	setString(&c.MongoPrefix, f.MongoPrefix)
	setInt(&c.PoolSize, f.PoolSize)
	setInt(&c.SearchLimit, f.SearchLimit)
	setInt(&c.HistoryLimit, f.HistoryLimit)
	setString(&c.WebhookURL, f.WebhookURL)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogFormat, f.LogFormat)

	if f.SyncInterval != nil {
		d, err := time.ParseDuration(*f.SyncInterval)
		if err != nil {
			return fmt.Errorf("parse config file %s: sync_interval: %w", path, err)
		}
		c.SyncInterval = d
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
