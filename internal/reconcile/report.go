// internal/reconcile/report.go

package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome statuses, used for report bucketing and metrics labels.
const (
	StatusNeedsUpdate = "needs_update"
	StatusNoChange    = "no_change"
	StatusNotFound    = "not_found"
	StatusError       = "error"
)

// ProposedUpdates is the partial correction computed for one product.
// Nil fields mean "leave as stored".
type ProposedUpdates struct {
	Price         *decimal.Decimal `json:"price,omitempty" bson:"price,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty" bson:"stock_quantity,omitempty"`
}

// IsEmpty reports whether nothing would change.
func (p ProposedUpdates) IsEmpty() bool {
	return p.Price == nil && p.StockQuantity == nil
}

// Outcome records what happened to one product during a run. Outcomes are
// appended in input order, so report ordering is deterministic.
type Outcome struct {
	ProductID int64  `json:"product_id" bson:"product_id"`
	SKU       string `json:"sku" bson:"sku"`
	Name      string `json:"name" bson:"name"`

	Found     bool   `json:"found" bson:"found"`
	SourceURL string `json:"source_url,omitempty" bson:"source_url,omitempty"`

	Proposed *ProposedUpdates `json:"proposed_updates,omitempty" bson:"proposed_updates,omitempty"`

	// StockInferred marks a proposed stock value that was substituted from
	// the in-stock flag rather than read off the page. Kept for audit.
	StockInferred bool `json:"stock_inferred,omitempty" bson:"stock_inferred,omitempty"`

	AppliedToStorage bool   `json:"applied_to_storage" bson:"applied_to_storage"`
	Error            string `json:"error,omitempty" bson:"error,omitempty"`
}

// Status classifies the outcome into its report bucket.
func (o Outcome) Status() string {
	switch {
	case o.Error != "":
		return StatusError
	case !o.Found:
		return StatusNotFound
	case o.Proposed != nil && !o.Proposed.IsEmpty():
		return StatusNeedsUpdate
	default:
		return StatusNoChange
	}
}

// Summary holds the run counters.
type Summary struct {
	Checked   int `json:"checked" bson:"checked"`
	Updated   int `json:"updated" bson:"updated"`
	NoChanges int `json:"no_changes" bson:"no_changes"`
	NotFound  int `json:"not_found" bson:"not_found"`
	Errors    int `json:"errors" bson:"errors"`
}

// Report is the durable record of one run. Individual outcomes are never
// written to the primary database; this artifact is the audit trail, so its
// field names are frozen for downstream consumers of historical reports.
type Report struct {
	RunID       string    `json:"run_id" bson:"run_id"`
	GeneratedAt time.Time `json:"generated_at" bson:"generated_at"`
	Summary     Summary   `json:"summary" bson:"summary"`

	NeedingUpdates []Outcome `json:"products_needing_updates" bson:"products_needing_updates"`
	NotFound       []Outcome `json:"products_not_found" bson:"products_not_found"`
	NoChanges      []Outcome `json:"products_no_changes" bson:"products_no_changes"`
	Errors         []Outcome `json:"errors" bson:"errors"`
}

// GenerateReport buckets outcomes and computes the summary. Bucket order
// matches input order.
func GenerateReport(outcomes []Outcome) *Report {
	report := &Report{
		RunID:          uuid.NewString(),
		GeneratedAt:    time.Now().UTC(),
		NeedingUpdates: []Outcome{},
		NotFound:       []Outcome{},
		NoChanges:      []Outcome{},
		Errors:         []Outcome{},
	}

	for _, outcome := range outcomes {
		switch outcome.Status() {
		case StatusError:
			report.Errors = append(report.Errors, outcome)
		case StatusNotFound:
			report.NotFound = append(report.NotFound, outcome)
		case StatusNeedsUpdate:
			report.NeedingUpdates = append(report.NeedingUpdates, outcome)
		default:
			report.NoChanges = append(report.NoChanges, outcome)
		}
	}

	report.Summary = Summary{
		Checked:   len(outcomes),
		Updated:   len(report.NeedingUpdates),
		NoChanges: len(report.NoChanges),
		NotFound:  len(report.NotFound),
		Errors:    len(report.Errors),
	}

	return report
}

// Outcomes flattens the report bucket by bucket for tabular sinks.
func (r *Report) Outcomes() []Outcome {
	total := len(r.NeedingUpdates) + len(r.NotFound) + len(r.NoChanges) + len(r.Errors)
	outcomes := make([]Outcome, 0, total)
	outcomes = append(outcomes, r.NeedingUpdates...)
	outcomes = append(outcomes, r.NoChanges...)
	outcomes = append(outcomes, r.NotFound...)
	outcomes = append(outcomes, r.Errors...)
	return outcomes
}
