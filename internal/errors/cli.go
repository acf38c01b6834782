// internal/errors/cli.go

// Package errors maps pipeline failures to exit codes and user-facing
// messages for the command line.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/CatalogSync/internal/scraper"
)

// Exit codes for the catalogsync binary.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitConfig     = 2
	ExitDatabase   = 3
	ExitNetwork    = 4
	ExitOutput     = 5
	ExitValidation = 6
	ExitCanceled   = 7
)

// ExitCode returns the exit code appropriate for the error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var fetchErr *scraper.FetchError
	if errors.As(err, &fetchErr) {
		return ExitNetwork
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitCanceled
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "configuration") || strings.Contains(errStr, "yaml"):
		return ExitConfig
	case strings.Contains(errStr, "validation"):
		return ExitValidation
	case strings.Contains(errStr, "database") || strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "dsn"):
		return ExitDatabase
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "no such host"):
		return ExitNetwork
	case strings.Contains(errStr, "report") || strings.Contains(errStr, "write"):
		return ExitOutput
	default:
		return ExitGeneral
	}
}

// FormatForCLI renders an error with a short diagnosis and suggestions.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	title, suggestions := diagnose(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", title, err.Error())
	if len(suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}

func diagnose(err error) (string, []string) {
	var fetchErr *scraper.FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case scraper.IsTimeout(err):
			return "Connection timeout", []string{
				"Check your internet connection",
				"Increase site.request_timeout in the configuration",
				"The storefront might be slow or under load",
			}
		case scraper.IsNotFound(err):
			return "Page not found", []string{
				"Verify site.base_url and site.product_path point at the storefront",
			}
		default:
			return "Fetch failed", []string{
				"Check that the storefront is reachable in a browser",
				"Lower site.rate_limit if the site is throttling requests",
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "yaml") || strings.Contains(errStr, "configuration"):
		return "Configuration problem", []string{
			"Check YAML indentation (use spaces, not tabs)",
			"Run `catalogsync validate -c <file>` for detailed diagnostics",
		}
	case strings.Contains(errStr, "database") || strings.Contains(errStr, "sql"):
		return "Database problem", []string{
			"Verify database.dsn and that the database is accepting connections",
			"Check that the products table exists and matches the expected schema",
		}
	case strings.Contains(errStr, "no such host"):
		return "Domain not found", []string{
			"Check that site.base_url is spelled correctly",
			"Verify the domain resolves from this machine",
		}
	default:
		return "Unexpected error", nil
	}
}
