// internal/config/types.go

// Package config provides configuration types and loading for CatalogSync.
// It defines the YAML-backed settings for the target site, catalog database,
// reconciliation behavior, report output, and the monitoring endpoint.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Report     ReportConfig     `yaml:"report"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	LogLevel   string           `yaml:"log_level,omitempty"`
}

// SiteConfig describes the storefront the pipeline scrapes.
type SiteConfig struct {
	BaseURL          string            `yaml:"base_url"`
	ProductPath      string            `yaml:"product_path,omitempty"`
	SearchPath       string            `yaml:"search_path,omitempty"`
	SearchParam      string            `yaml:"search_param,omitempty"`
	MaxSearchResults int               `yaml:"max_search_results,omitempty"`
	RequestTimeout   time.Duration     `yaml:"request_timeout,omitempty"`
	RateLimit        float64           `yaml:"rate_limit,omitempty"`
	RateBurst        int               `yaml:"rate_burst,omitempty"`
	UserAgents       []string          `yaml:"user_agents,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	UseBrowser       bool              `yaml:"use_browser,omitempty"`
}

// DatabaseConfig describes the catalog database being reconciled.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table,omitempty"`
}

// ReconcileConfig controls reconciliation behavior.
type ReconcileConfig struct {
	ProductDelay time.Duration `yaml:"product_delay,omitempty"`
	Persist      bool          `yaml:"persist,omitempty"`
	Limit        int           `yaml:"limit,omitempty"`
}

// ReportConfig controls where the run report goes.
type ReportConfig struct {
	Format          string `yaml:"format,omitempty"`
	File            string `yaml:"file,omitempty"`
	MongoURI        string `yaml:"mongo_uri,omitempty"`
	MongoDatabase   string `yaml:"mongo_database,omitempty"`
	MongoCollection string `yaml:"mongo_collection,omitempty"`
}

// MonitoringConfig controls the optional HTTP monitoring endpoint.
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Address string `yaml:"address,omitempty"`
}

// ValidationError describes a single configuration problem.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
