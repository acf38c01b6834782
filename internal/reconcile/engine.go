// internal/reconcile/engine.go

// Package reconcile orchestrates discovery, extraction and matching across
// a batch of catalog products and decides which stored fields to correct.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/valpere/CatalogSync/internal/catalog"
	"github.com/valpere/CatalogSync/internal/scraper"
	"github.com/valpere/CatalogSync/internal/utils"
)

// InferredStockQuantity is substituted when a page signals availability but
// exposes no quantity. It is a heuristic placeholder, not a real inventory
// count; outcomes flag it so downstream consumers can treat it accordingly.
const InferredStockQuantity = 100

// DefaultProductDelay is the politeness pause between products. The pipeline
// is sequential by design, with one request in flight at a time, to stay
// under the target site's anti-scraping radar.
const DefaultProductDelay = 1500 * time.Millisecond

// priceEpsilon is the diff threshold for price updates.
var priceEpsilon = decimal.New(1, -2) // 0.01

// MetricsRecorder receives per-product and per-run observations.
type MetricsRecorder interface {
	ObserveOutcome(status string)
	ObserveRun(duration time.Duration, summary Summary)
}

// Options control a single run.
type Options struct {
	// Persist writes proposed updates through the storage interface.
	// When false the run is a dry run that only produces the report.
	Persist bool
}

// Engine processes a batch of products strictly one at a time.
type Engine struct {
	store      catalog.Store
	fetcher    *scraper.Fetcher
	discoverer *scraper.Discoverer
	delay      time.Duration
	metrics    MetricsRecorder
	logger     utils.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithDelay overrides the politeness delay between products.
func WithDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.delay = d
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine assembles a reconciliation engine.
func NewEngine(store catalog.Store, fetcher *scraper.Fetcher, discoverer *scraper.Discoverer, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		fetcher:    fetcher,
		discoverer: discoverer,
		delay:      DefaultProductDelay,
		logger:     utils.NewComponentLogger("reconcile"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes products in the order supplied and always produces a
// report: per-product failures are recorded as outcomes, never propagated.
// Cancellation is cooperative and checked between products, not mid-fetch,
// since fetches carry their own time bound. On cancellation Run returns the
// report for the products already processed alongside the context error.
func (e *Engine) Run(ctx context.Context, products []catalog.TargetProduct, opts Options) (*Report, error) {
	start := time.Now()
	outcomes := make([]Outcome, 0, len(products))

	for i, product := range products {
		if err := ctx.Err(); err != nil {
			return e.finish(start, outcomes), err
		}

		outcome := e.processProduct(ctx, product, opts)
		outcomes = append(outcomes, outcome)
		if e.metrics != nil {
			e.metrics.ObserveOutcome(outcome.Status())
		}
		e.logger.Infof("product %s (%d/%d): %s", product.SKU, i+1, len(products), outcome.Status())

		if i < len(products)-1 {
			if err := e.pause(ctx); err != nil {
				return e.finish(start, outcomes), err
			}
		}
	}

	return e.finish(start, outcomes), nil
}

func (e *Engine) finish(start time.Time, outcomes []Outcome) *Report {
	report := GenerateReport(outcomes)
	if e.metrics != nil {
		e.metrics.ObserveRun(time.Since(start), report.Summary)
	}
	return report
}

// processProduct runs the full chain for one product. Every failure mode is
// absorbed into the outcome.
func (e *Engine) processProduct(ctx context.Context, product catalog.TargetProduct, opts Options) Outcome {
	outcome := Outcome{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
	}

	sourceURL, err := e.discoverer.Discover(ctx, product)
	if err != nil {
		outcome.Error = fmt.Sprintf("discovery: %v", err)
		return outcome
	}
	if sourceURL == "" {
		return outcome // not found
	}

	page, err := e.fetchProductPage(ctx, sourceURL)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	if !page.IsProductPage {
		// Discovery can hand back a weak first-search-result fallback;
		// a non-product page at this point is treated as not found.
		return outcome
	}

	// Final verification gate. Discovery's fallback paths return unverified
	// candidates, so nothing is proposed below the strict threshold.
	if !scraper.MatchIdentity(page.SKU, page.Name, product.SKU, product.Name, scraper.VerifyMatchThreshold) {
		return outcome
	}

	outcome.Found = true
	outcome.SourceURL = sourceURL

	proposed, stockInferred := e.proposeUpdates(product, page)
	if proposed.IsEmpty() {
		return outcome
	}
	outcome.Proposed = &proposed
	outcome.StockInferred = stockInferred

	if opts.Persist {
		update := catalog.ProductUpdate{
			Price:         proposed.Price,
			StockQuantity: proposed.StockQuantity,
		}
		if err := e.store.UpdateProduct(ctx, product.ID, update); err != nil {
			outcome.Error = fmt.Sprintf("storage update: %v", err)
			return outcome
		}
		outcome.AppliedToStorage = true
	}

	return outcome
}

// proposeUpdates compares stored values against the live page. Price and
// stock diffs are computed independently; either may trigger an update. A
// price update additionally requires a usable (positive) live price.
func (e *Engine) proposeUpdates(product catalog.TargetProduct, page scraper.ProductPage) (ProposedUpdates, bool) {
	var proposed ProposedUpdates

	if page.Price.IsPositive() && product.Price.Sub(page.Price).Abs().GreaterThan(priceEpsilon) {
		livePrice := page.Price
		proposed.Price = &livePrice
	}

	liveStock, inferred := liveStockValue(page)
	if product.Stock() != liveStock {
		proposed.StockQuantity = &liveStock
	}

	return proposed, inferred && proposed.StockQuantity != nil
}

// liveStockValue resolves the page's stock signals into a single quantity.
// An exact extracted count wins; otherwise the in-stock flag substitutes
// InferredStockQuantity or zero. The bool reports whether the value was
// inferred rather than read.
func liveStockValue(page scraper.ProductPage) (int, bool) {
	if page.Stock != nil {
		return *page.Stock, false
	}
	if page.InStock {
		return InferredStockQuantity, true
	}
	return 0, true
}

func (e *Engine) fetchProductPage(ctx context.Context, sourceURL string) (scraper.ProductPage, error) {
	html, err := e.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return scraper.ProductPage{}, fmt.Errorf("fetch discovered page: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return scraper.ProductPage{}, fmt.Errorf("parse discovered page: %v", err)
	}
	return scraper.ExtractProduct(doc), nil
}

// pause waits out the inter-product delay, honoring cancellation.
func (e *Engine) pause(ctx context.Context) error {
	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
