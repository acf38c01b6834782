// internal/reconcile/report_test.go
package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOutcomeStatus(t *testing.T) {
	price := decimal.RequireFromString("19.99")
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"error wins over everything", Outcome{Found: true, Error: "boom", Proposed: &ProposedUpdates{Price: &price}}, StatusError},
		{"not found", Outcome{Found: false}, StatusNotFound},
		{"needs update", Outcome{Found: true, Proposed: &ProposedUpdates{Price: &price}}, StatusNeedsUpdate},
		{"empty proposal is no change", Outcome{Found: true, Proposed: &ProposedUpdates{}}, StatusNoChange},
		{"found with nothing proposed", Outcome{Found: true}, StatusNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateReport(t *testing.T) {
	price := decimal.RequireFromString("5.00")
	outcomes := []Outcome{
		{ProductID: 1, Found: true, Proposed: &ProposedUpdates{Price: &price}},
		{ProductID: 2, Found: false},
		{ProductID: 3, Found: true},
		{ProductID: 4, Error: "fetch failed"},
		{ProductID: 5, Found: true, Proposed: &ProposedUpdates{Price: &price}},
	}

	report := GenerateReport(outcomes)

	if report.RunID == "" {
		t.Error("report must carry a run id")
	}
	if report.GeneratedAt.IsZero() {
		t.Error("report must carry a timestamp")
	}

	want := Summary{Checked: 5, Updated: 2, NoChanges: 1, NotFound: 1, Errors: 1}
	if report.Summary != want {
		t.Errorf("summary = %+v, want %+v", report.Summary, want)
	}

	// Buckets preserve input order.
	if report.NeedingUpdates[0].ProductID != 1 || report.NeedingUpdates[1].ProductID != 5 {
		t.Errorf("needing-updates order = %d, %d", report.NeedingUpdates[0].ProductID, report.NeedingUpdates[1].ProductID)
	}

	if got := len(report.Outcomes()); got != 5 {
		t.Errorf("Outcomes() returned %d entries, want 5", got)
	}
}

func TestReportJSONFieldNames(t *testing.T) {
	// The report is a durable artifact; these field names are a contract
	// with downstream consumers of archived runs.
	report := GenerateReport(nil)
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, field := range []string{
		`"run_id"`,
		`"generated_at"`,
		`"summary"`,
		`"checked"`,
		`"products_needing_updates"`,
		`"products_not_found"`,
		`"products_no_changes"`,
		`"errors"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("report JSON is missing %s: %s", field, data)
		}
	}

	// Empty buckets serialize as arrays, not null.
	if strings.Contains(string(data), "null") {
		t.Errorf("report JSON contains null buckets: %s", data)
	}
}

func TestProposedUpdatesIsEmpty(t *testing.T) {
	price := decimal.RequireFromString("1.00")
	stock := 5

	if !(ProposedUpdates{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if (ProposedUpdates{Price: &price}).IsEmpty() {
		t.Error("price-only proposal is not empty")
	}
	if (ProposedUpdates{StockQuantity: &stock}).IsEmpty() {
		t.Error("stock-only proposal is not empty")
	}
}
