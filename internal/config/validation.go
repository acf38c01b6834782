// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validDrivers = map[string]bool{
	"postgres": true,
	"mysql":    true,
	"sqlite3":  true,
}

var validFormats = map[string]bool{
	"json":  true,
	"csv":   true,
	"excel": true,
}

// Validate checks the configuration and returns the first group of problems
// found as a single error.
func (c *Config) Validate() error {
	errs := c.collectErrors()
	if len(errs) == 0 {
		return nil
	}

	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Error()
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// ValidateDetailed returns every configuration problem individually, for
// the validate CLI command.
func (c *Config) ValidateDetailed() []ValidationError {
	return c.collectErrors()
}

func (c *Config) collectErrors() []ValidationError {
	var errs []ValidationError

	if c.Site.BaseURL == "" {
		errs = append(errs, ValidationError{Path: "site.base_url", Message: "base URL is required"})
	} else if u, err := url.Parse(c.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Path: "site.base_url", Message: "must be an absolute http(s) URL"})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{Path: "site.base_url", Message: "scheme must be http or https"})
	}

	if c.Site.RateLimit < 0 {
		errs = append(errs, ValidationError{Path: "site.rate_limit", Message: "must not be negative"})
	}

	if c.Site.RequestTimeout < 0 {
		errs = append(errs, ValidationError{Path: "site.request_timeout", Message: "must not be negative"})
	}

	if c.Database.Driver == "" {
		errs = append(errs, ValidationError{Path: "database.driver", Message: "driver is required"})
	} else if !validDrivers[c.Database.Driver] {
		errs = append(errs, ValidationError{
			Path:    "database.driver",
			Message: fmt.Sprintf("unsupported driver %q (use postgres, mysql, or sqlite3)", c.Database.Driver),
		})
	}

	if c.Database.DSN == "" {
		errs = append(errs, ValidationError{Path: "database.dsn", Message: "DSN is required"})
	}

	if c.Reconcile.ProductDelay < 0 {
		errs = append(errs, ValidationError{Path: "reconcile.product_delay", Message: "must not be negative"})
	}

	if c.Reconcile.Limit < 0 {
		errs = append(errs, ValidationError{Path: "reconcile.limit", Message: "must not be negative"})
	}

	if c.Report.Format != "" && !validFormats[c.Report.Format] {
		errs = append(errs, ValidationError{
			Path:    "report.format",
			Message: fmt.Sprintf("unsupported format %q (use json, csv, or excel)", c.Report.Format),
		})
	}

	if c.Report.MongoURI != "" {
		if c.Report.MongoDatabase == "" {
			errs = append(errs, ValidationError{Path: "report.mongo_database", Message: "required when mongo_uri is set"})
		}
		if c.Report.MongoCollection == "" {
			errs = append(errs, ValidationError{Path: "report.mongo_collection", Message: "required when mongo_uri is set"})
		}
	}

	return errs
}
