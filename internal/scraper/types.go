// internal/scraper/types.go
package scraper

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Name-similarity thresholds. The quick threshold filters URL candidates
// during discovery; the verify threshold gates any update that will be
// persisted. Both were tuned against the token-set similarity formula in
// NameSimilarity and must not be reused with a different metric.
const (
	QuickMatchThreshold  = 0.8
	VerifyMatchThreshold = 0.85
)

// MaxValidPrice bounds extracted prices. Anything above it is treated as
// scraped garbage and falls through to the next extraction strategy.
const MaxValidPrice = 10000

// FetchErrorKind classifies fetch failures for the discovery chain.
type FetchErrorKind int

const (
	// FetchTransient covers network errors and non-404 HTTP failures.
	FetchTransient FetchErrorKind = iota
	// FetchTimeout means the request exceeded its time bound.
	FetchTimeout
	// FetchNotFound means the server answered 404 for this URL.
	FetchNotFound
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// FetchError is the fetcher's single error type. The fetcher never retries:
// a failed URL is terminal for that candidate and the caller moves on to a
// different URL instead.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 fetch failure.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchNotFound
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchTimeout
}

// ProductPage is the extractor's view of one fetched page. It is created
// per fetch, consumed by the matcher and the reconciliation engine, and
// discarded.
type ProductPage struct {
	// IsProductPage is a permissive heuristic; false positives are filtered
	// downstream by identity verification.
	IsProductPage bool

	// Price is zero when no valid price was found. Zero is a sentinel, not
	// "free".
	Price decimal.Decimal

	// Stock is nil when presence is known but the quantity is not.
	Stock *int

	// InStock errs toward true when signals are ambiguous, so that a page
	// the extractor cannot read confidently never marks a product
	// discontinued.
	InStock bool

	SKU  string
	Name string
}
