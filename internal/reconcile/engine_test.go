// internal/reconcile/engine_test.go
package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valpere/CatalogSync/internal/catalog"
	"github.com/valpere/CatalogSync/internal/scraper"
)

// fakeStore records update calls; per-id errors simulate storage failures.
type fakeStore struct {
	updates map[int64][]catalog.ProductUpdate
	failFor map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		updates: make(map[int64][]catalog.ProductUpdate),
		failFor: make(map[int64]error),
	}
}

func (s *fakeStore) ProductsMissingPriceOrStock(ctx context.Context) ([]catalog.TargetProduct, error) {
	return nil, nil
}

func (s *fakeStore) UpdateProduct(ctx context.Context, id int64, update catalog.ProductUpdate) error {
	if err := s.failFor[id]; err != nil {
		return err
	}
	s.updates[id] = append(s.updates[id], update)
	return nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

// testSite serves product pages by slug and a search endpoint. Slugs listed
// in broken answer 500 to simulate network-level failures.
type testSite struct {
	products map[string]string
	search   map[string]string
	broken   map[string]bool
}

func (ts *testSite) serve() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.php/search" {
			if html, ok := ts.search[r.URL.Query().Get("q")]; ok {
				w.Write([]byte(html))
				return
			}
			w.Write([]byte("<html><body>No results</body></html>"))
			return
		}
		if slug, found := strings.CutPrefix(r.URL.Path, "/index.php/products/"); found {
			if ts.broken[slug] {
				http.Error(w, "upstream exploded", http.StatusInternalServerError)
				return
			}
			if html, ok := ts.products[slug]; ok {
				w.Write([]byte(html))
				return
			}
		}
		http.NotFound(w, r)
	}))
}

func newTestEngine(store catalog.Store, baseURL string) *Engine {
	fetcher := scraper.NewFetcher(scraper.FetcherConfig{RateLimit: 1000, RateBurst: 1000})
	discoverer := scraper.NewDiscoverer(
		scraper.DiscoveryConfig{BaseURL: baseURL},
		fetcher,
		scraper.NewMatcher(fetcher),
	)
	return NewEngine(store, fetcher, discoverer, WithDelay(time.Millisecond))
}

func pageWithPriceAndStock(name, sku, price string, stock int) string {
	return fmt.Sprintf(`<html><head>
		<script type="application/ld+json">
		{"@type":"Product","name":"%s","offers":{"price":"%s"}}
		</script></head><body>
		<h1>%s SKU: %s</h1>
		<div class="product-details"><span class="stock-quantity">%d in stock</span></div>
		<button class="add-to-cart">Add to Cart</button>
		</body></html>`, name, price, name, sku, stock)
}

func pageInStockNoQuantity(name, sku, price string) string {
	return fmt.Sprintf(`<html><body>
		<h1>%s SKU: %s</h1>
		<div class="product-details"><span class="product-price">$%s</span></div>
		<button class="add-to-cart">Add to Cart</button>
		</body></html>`, name, sku, price)
}

func pageOutOfStock(name, sku, price string) string {
	return fmt.Sprintf(`<html><body>
		<h1>%s SKU: %s</h1>
		<div class="product-details"><span class="product-price">$%s</span></div>
		<div class="out-of-stock">Out of stock</div>
		</body></html>`, name, sku, price)
}

func TestRunProposesAndPersistsUpdates(t *testing.T) {
	site := &testSite{products: map[string]string{
		"echinacea-extract": pageWithPriceAndStock("Echinacea Extract", "HB-100", "19.99", 42),
	}}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	engine := newTestEngine(store, server.URL)

	products := []catalog.TargetProduct{
		{ID: 1, SKU: "HB-100", Name: "Echinacea Extract", Slug: "echinacea-extract", Price: decimal.Zero},
	}

	report, err := engine.Run(context.Background(), products, Options{Persist: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Summary.Updated != 1 {
		t.Fatalf("updated = %d, want 1", report.Summary.Updated)
	}
	outcome := report.NeedingUpdates[0]
	if !outcome.Found || !outcome.AppliedToStorage {
		t.Errorf("outcome found=%v applied=%v, want both true", outcome.Found, outcome.AppliedToStorage)
	}
	if outcome.StockInferred {
		t.Error("stock was read off the page, not inferred")
	}

	updates := store.updates[1]
	if len(updates) != 1 {
		t.Fatalf("store saw %d updates, want exactly 1", len(updates))
	}
	if updates[0].Price == nil || !updates[0].Price.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("persisted price = %v, want 19.99", updates[0].Price)
	}
	if updates[0].StockQuantity == nil || *updates[0].StockQuantity != 42 {
		t.Errorf("persisted stock = %v, want 42", updates[0].StockQuantity)
	}
}

func TestRunDryRunDoesNotPersist(t *testing.T) {
	site := &testSite{products: map[string]string{
		"echinacea-extract": pageWithPriceAndStock("Echinacea Extract", "HB-100", "19.99", 42),
	}}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	engine := newTestEngine(store, server.URL)

	products := []catalog.TargetProduct{
		{ID: 1, SKU: "HB-100", Name: "Echinacea Extract", Slug: "echinacea-extract", Price: decimal.Zero},
	}

	report, err := engine.Run(context.Background(), products, Options{Persist: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.Updated != 1 {
		t.Fatalf("updated = %d, want 1", report.Summary.Updated)
	}
	if report.NeedingUpdates[0].AppliedToStorage {
		t.Error("dry run must not mark outcomes as applied")
	}
	if len(store.updates) != 0 {
		t.Errorf("dry run wrote %d updates to storage", len(store.updates))
	}
}

func TestRunStockInference(t *testing.T) {
	t.Run("in stock without quantity substitutes sentinel", func(t *testing.T) {
		site := &testSite{products: map[string]string{
			"valerian-root": pageInStockNoQuantity("Valerian Root", "HB-300", "12.50"),
		}}
		server := site.serve()
		defer server.Close()

		engine := newTestEngine(newFakeStore(), server.URL)
		products := []catalog.TargetProduct{
			{ID: 3, SKU: "HB-300", Name: "Valerian Root", Slug: "valerian-root", Price: decimal.RequireFromString("12.50")},
		}

		report, err := engine.Run(context.Background(), products, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Summary.Updated != 1 {
			t.Fatalf("updated = %d, want 1", report.Summary.Updated)
		}
		outcome := report.NeedingUpdates[0]
		if outcome.Proposed.StockQuantity == nil || *outcome.Proposed.StockQuantity != InferredStockQuantity {
			t.Errorf("proposed stock = %v, want %d", outcome.Proposed.StockQuantity, InferredStockQuantity)
		}
		if !outcome.StockInferred {
			t.Error("inferred stock must be flagged")
		}
		if outcome.Proposed.Price != nil {
			t.Errorf("price matches stored value, proposed = %v", outcome.Proposed.Price)
		}
	})

	t.Run("out of stock proposes zero", func(t *testing.T) {
		site := &testSite{products: map[string]string{
			"chamomile-tea": pageOutOfStock("Chamomile Tea", "HB-400", "8.99"),
		}}
		server := site.serve()
		defer server.Close()

		engine := newTestEngine(newFakeStore(), server.URL)
		stock := 10
		products := []catalog.TargetProduct{
			{ID: 4, SKU: "HB-400", Name: "Chamomile Tea", Slug: "chamomile-tea", Price: decimal.RequireFromString("8.99"), StockQuantity: &stock},
		}

		report, err := engine.Run(context.Background(), products, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Summary.Updated != 1 {
			t.Fatalf("updated = %d, want 1", report.Summary.Updated)
		}
		outcome := report.NeedingUpdates[0]
		if outcome.Proposed.StockQuantity == nil || *outcome.Proposed.StockQuantity != 0 {
			t.Errorf("proposed stock = %v, want 0", outcome.Proposed.StockQuantity)
		}
		if outcome.StockInferred {
			t.Error("a visible out-of-stock label is an exact signal, not an inference")
		}
	})
}

func TestRunIdempotentWhenStoredValuesMatch(t *testing.T) {
	site := &testSite{products: map[string]string{
		"echinacea-extract": pageWithPriceAndStock("Echinacea Extract", "HB-100", "19.99", 42),
	}}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	engine := newTestEngine(store, server.URL)

	stock := 42
	products := []catalog.TargetProduct{
		{ID: 1, SKU: "HB-100", Name: "Echinacea Extract", Slug: "echinacea-extract",
			Price: decimal.RequireFromString("19.99"), StockQuantity: &stock},
	}

	report, err := engine.Run(context.Background(), products, Options{Persist: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.NoChanges != 1 {
		t.Fatalf("no_changes = %d, want 1", report.Summary.NoChanges)
	}
	if len(store.updates) != 0 {
		t.Errorf("matching values still produced %d updates", len(store.updates))
	}
}

func TestRunBatchPartialFailure(t *testing.T) {
	site := &testSite{products: map[string]string{
		"product-one":   pageWithPriceAndStock("Product One", "SKU-1", "10.00", 5),
		"product-two":   pageWithPriceAndStock("Product Two", "SKU-2", "20.00", 5),
		"product-three": pageWithPriceAndStock("Product Three", "SKU-3", "30.00", 5),
	}}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	store.failFor[2] = fmt.Errorf("deadlock detected")
	engine := newTestEngine(store, server.URL)

	products := []catalog.TargetProduct{
		{ID: 1, SKU: "SKU-1", Name: "Product One", Slug: "product-one", Price: decimal.Zero},
		{ID: 2, SKU: "SKU-2", Name: "Product Two", Slug: "product-two", Price: decimal.Zero},
		{ID: 3, SKU: "SKU-3", Name: "Product Three", Slug: "product-three", Price: decimal.Zero},
	}

	report, err := engine.Run(context.Background(), products, Options{Persist: true})
	if err != nil {
		t.Fatalf("a per-product failure must not abort the run: %v", err)
	}

	if report.Summary.Checked != 3 {
		t.Errorf("checked = %d, want 3", report.Summary.Checked)
	}
	if report.Summary.Updated != 2 {
		t.Errorf("updated = %d, want 2", report.Summary.Updated)
	}
	if report.Summary.Errors != 1 {
		t.Errorf("errors = %d, want 1", report.Summary.Errors)
	}
	if len(report.Errors) == 1 && report.Errors[0].ProductID != 2 {
		t.Errorf("failed product id = %d, want 2", report.Errors[0].ProductID)
	}
	if len(store.updates[1]) != 1 || len(store.updates[3]) != 1 {
		t.Error("products 1 and 3 should both have persisted updates")
	}
}

func TestRunRecordsFetchFailureAsError(t *testing.T) {
	// Product two's pages answer 500. That is a transient network failure,
	// not proof the product is missing, so its outcome lands in the errors
	// bucket while products one and three still complete.
	site := &testSite{
		products: map[string]string{
			"product-one":   pageWithPriceAndStock("Product One", "SKU-1", "10.00", 5),
			"product-three": pageWithPriceAndStock("Product Three", "SKU-3", "30.00", 5),
		},
		broken: map[string]bool{"product-two": true},
	}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	engine := newTestEngine(store, server.URL)

	products := []catalog.TargetProduct{
		{ID: 1, SKU: "SKU-1", Name: "Product One", Slug: "product-one", Price: decimal.Zero},
		{ID: 2, SKU: "SKU-2", Name: "Product Two", Slug: "product-two", Price: decimal.Zero},
		{ID: 3, SKU: "SKU-3", Name: "Product Three", Slug: "product-three", Price: decimal.Zero},
	}

	report, err := engine.Run(context.Background(), products, Options{Persist: true})
	if err != nil {
		t.Fatalf("a per-product failure must not abort the run: %v", err)
	}

	if report.Summary.Checked != 3 {
		t.Errorf("checked = %d, want 3", report.Summary.Checked)
	}
	if report.Summary.Updated != 2 {
		t.Errorf("updated = %d, want 2", report.Summary.Updated)
	}
	if report.Summary.Errors != 1 {
		t.Fatalf("errors = %d, want 1 (summary: %+v)", report.Summary.Errors, report.Summary)
	}
	if report.Summary.NotFound != 0 {
		t.Errorf("not_found = %d, want 0: a dead fetch is not a missing product", report.Summary.NotFound)
	}
	if report.Errors[0].ProductID != 2 {
		t.Errorf("failed product id = %d, want 2", report.Errors[0].ProductID)
	}
	if report.Errors[0].Error == "" {
		t.Error("error outcome must carry the failure message")
	}
	if len(store.updates[1]) != 1 || len(store.updates[3]) != 1 {
		t.Error("products 1 and 3 should both have persisted updates")
	}
}

func TestRunRejectsWeakDiscoveryFallback(t *testing.T) {
	// Search hands back an unrelated product as its first-result fallback;
	// the engine's verification gate must refuse it.
	site := &testSite{
		products: map[string]string{
			"milk-thistle": pageWithPriceAndStock("Milk Thistle", "HB-700", "9.99", 3),
		},
		search: map[string]string{
			"HB-100": `<html><body><a href="/index.php/products/milk-thistle">Milk Thistle</a></body></html>`,
		},
	}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	engine := newTestEngine(store, server.URL)

	products := []catalog.TargetProduct{
		{ID: 1, SKU: "HB-100", Name: "Echinacea Extract", Slug: "", Price: decimal.Zero},
	}

	report, err := engine.Run(context.Background(), products, Options{Persist: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.NotFound != 1 {
		t.Fatalf("not_found = %d, want 1 (summary: %+v)", report.Summary.NotFound, report.Summary)
	}
	if len(store.updates) != 0 {
		t.Error("an unverified candidate must never reach storage")
	}
}

func TestRunCancellationReturnsPartialReport(t *testing.T) {
	site := &testSite{products: map[string]string{
		"product-one": pageWithPriceAndStock("Product One", "SKU-1", "10.00", 5),
		"product-two": pageWithPriceAndStock("Product Two", "SKU-2", "20.00", 5),
	}}
	server := site.serve()
	defer server.Close()

	store := newFakeStore()
	fetcher := scraper.NewFetcher(scraper.FetcherConfig{RateLimit: 1000, RateBurst: 1000})
	discoverer := scraper.NewDiscoverer(scraper.DiscoveryConfig{BaseURL: server.URL}, fetcher, scraper.NewMatcher(fetcher))
	// Long delay so cancellation lands in the inter-product pause.
	engine := NewEngine(store, fetcher, discoverer, WithDelay(10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	products := []catalog.TargetProduct{
		{ID: 1, SKU: "SKU-1", Name: "Product One", Slug: "product-one", Price: decimal.Zero},
		{ID: 2, SKU: "SKU-2", Name: "Product Two", Slug: "product-two", Price: decimal.Zero},
	}

	report, err := engine.Run(ctx, products, Options{})
	if err == nil {
		t.Fatal("expected a context error")
	}
	if report == nil {
		t.Fatal("cancellation must still return the partial report")
	}
	if report.Summary.Checked != 1 {
		t.Errorf("checked = %d, want 1 (first product finished before cancel)", report.Summary.Checked)
	}
}

func TestLiveStockValue(t *testing.T) {
	exact := 7
	tests := []struct {
		name         string
		page         scraper.ProductPage
		want         int
		wantInferred bool
	}{
		{"exact quantity wins", scraper.ProductPage{Stock: &exact, InStock: false}, 7, false},
		{"in stock without quantity", scraper.ProductPage{InStock: true}, InferredStockQuantity, true},
		{"out of stock without quantity", scraper.ProductPage{InStock: false}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, inferred := liveStockValue(tt.page)
			if got != tt.want || inferred != tt.wantInferred {
				t.Errorf("liveStockValue = (%d, %v), want (%d, %v)", got, inferred, tt.want, tt.wantInferred)
			}
		})
	}
}
