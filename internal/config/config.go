// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// Substitute environment variables so DSNs and URIs can stay out of files
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %v", err)
	}

	return nil
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %v", err)
	}

	return nil
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Site.RequestTimeout == 0 {
		config.Site.RequestTimeout = 10 * time.Second
	}

	if config.Site.RateLimit == 0 {
		config.Site.RateLimit = 1.0
	}

	if config.Site.RateBurst == 0 {
		config.Site.RateBurst = 1
	}

	if config.Site.MaxSearchResults == 0 {
		config.Site.MaxSearchResults = 5
	}

	if config.Reconcile.ProductDelay == 0 {
		config.Reconcile.ProductDelay = 1500 * time.Millisecond
	}

	if config.Database.Table == "" {
		config.Database.Table = "products"
	}

	if config.Report.Format == "" {
		config.Report.Format = "json"
	}

	if config.Report.File == "" {
		config.Report.File = "reconciliation_report.json"
	}

	if config.Monitoring.Address == "" {
		config.Monitoring.Address = ":9090"
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// GenerateTemplate returns an example configuration suitable for a new site.
func GenerateTemplate() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:          "https://herbs.example.com",
			ProductPath:      "/index.php/products/",
			SearchPath:       "/index.php/search",
			SearchParam:      "q",
			MaxSearchResults: 5,
			RequestTimeout:   10 * time.Second,
			RateLimit:        1.0,
			RateBurst:        1,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			DSN:    "${CATALOG_DSN}",
			Table:  "products",
		},
		Reconcile: ReconcileConfig{
			ProductDelay: 1500 * time.Millisecond,
			Persist:      false,
		},
		Report: ReportConfig{
			Format: "json",
			File:   "reconciliation_report.json",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Address: ":9090",
		},
		LogLevel: "info",
	}
}
