// internal/errors/cli_test.go
package errors

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/valpere/CatalogSync/internal/scraper"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", fmt.Errorf("invalid configuration: missing base_url"), ExitConfig},
		{"yaml", fmt.Errorf("failed to parse YAML configuration"), ExitConfig},
		{"validation", fmt.Errorf("configuration validation failed"), ExitValidation},
		{"database", fmt.Errorf("failed to open database: bad dsn"), ExitDatabase},
		{"canceled", context.Canceled, ExitCanceled},
		{
			"fetch timeout",
			&scraper.FetchError{Kind: scraper.FetchTimeout, URL: "https://x", Err: context.DeadlineExceeded},
			ExitNetwork,
		},
		{
			"wrapped fetch error",
			fmt.Errorf("run failed: %w", &scraper.FetchError{Kind: scraper.FetchTransient, URL: "https://x", Err: fmt.Errorf("boom")}),
			ExitNetwork,
		},
		{"unknown", fmt.Errorf("something odd"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFormatForCLI(t *testing.T) {
	err := &scraper.FetchError{Kind: scraper.FetchTimeout, URL: "https://x", Err: context.DeadlineExceeded}
	out := FormatForCLI(err)
	if !strings.Contains(out, "Connection timeout") {
		t.Errorf("output missing diagnosis: %q", out)
	}
	if !strings.Contains(out, "Suggestions:") {
		t.Errorf("output missing suggestions: %q", out)
	}

	notFound := fmt.Errorf("discovery: %w", &scraper.FetchError{Kind: scraper.FetchNotFound, URL: "https://x/p/1"})
	if out := FormatForCLI(notFound); !strings.Contains(out, "Page not found") {
		t.Errorf("output missing not-found diagnosis: %q", out)
	}

	if FormatForCLI(nil) != "" {
		t.Error("nil error should format to empty string")
	}
}
