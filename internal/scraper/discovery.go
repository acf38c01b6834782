// internal/scraper/discovery.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/CatalogSync/internal/catalog"
	"github.com/valpere/CatalogSync/internal/utils"
)

// DiscoveryConfig describes the target site's URL layout.
type DiscoveryConfig struct {
	BaseURL          string
	ProductPath      string // path prefix of product-detail pages
	SearchPath       string // path of the site search endpoint
	SearchParam      string // query parameter carrying the search text
	MaxSearchResults int    // bound on candidate links examined per search
}

const (
	defaultProductPath      = "/index.php/products/"
	defaultSearchPath       = "/index.php/search"
	defaultSearchParam      = "q"
	defaultMaxSearchResults = 5
)

// nameKeywordMinLen: only tokens longer than this participate in
// search-result scoring.
const nameKeywordMinLen = 3

var (
	productLinkPattern = regexp.MustCompile(`/products/[A-Za-z0-9\-_]+`)
	numericSKUPattern  = regexp.MustCompile(`^\d+$`)
)

// Discoverer finds the live URL of a catalog product by trying strategies
// in a fixed order: slug variants, search by SKU, search by name, numeric
// SKU URL patterns. The chain stops at the first accepted URL. Every
// candidate costs a real network call; nothing is cached within one call.
type Discoverer struct {
	config  DiscoveryConfig
	fetcher *Fetcher
	matcher *Matcher
	logger  utils.Logger
}

// NewDiscoverer creates a discoverer, applying URL-layout defaults.
func NewDiscoverer(config DiscoveryConfig, fetcher *Fetcher, matcher *Matcher) *Discoverer {
	if config.ProductPath == "" {
		config.ProductPath = defaultProductPath
	}
	if config.SearchPath == "" {
		config.SearchPath = defaultSearchPath
	}
	if config.SearchParam == "" {
		config.SearchParam = defaultSearchParam
	}
	if config.MaxSearchResults <= 0 {
		config.MaxSearchResults = defaultMaxSearchResults
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Discoverer{
		config:  config,
		fetcher: fetcher,
		matcher: matcher,
		logger:  utils.NewComponentLogger("discovery"),
	}
}

// probeFailures tracks transient fetch failures across one discovery call.
// A 404 proves a candidate absent; a timeout or transient failure proves
// nothing, so a chain that exhausts through such failures must not report
// the product as missing from the site.
type probeFailures struct {
	count int
	last  error
}

func (p *probeFailures) note(err error) {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || IsNotFound(err) {
		return
	}
	p.count++
	p.last = err
}

func (p *probeFailures) err() error {
	if p.last == nil {
		return nil
	}
	return fmt.Errorf("%d candidate fetch(es) failed, last: %w", p.count, p.last)
}

// Discover returns the first URL accepted by the strategy chain, or "" when
// every strategy exhausts against pages that answered. Exhaustion caused by
// transient fetch failures is returned as an error instead: those candidates
// were never examined, so the product has not been proven absent.
func (d *Discoverer) Discover(ctx context.Context, product catalog.TargetProduct) (string, error) {
	fails := &probeFailures{}
	strategies := []struct {
		name string
		fn   func(context.Context, catalog.TargetProduct, *probeFailures) (string, error)
	}{
		{"slug_variants", d.bySlugVariants},
		{"sku_search", d.bySKUSearch},
		{"name_search", d.byNameSearch},
		{"numeric_sku_patterns", d.byNumericSKUPatterns},
	}

	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		found, err := strategy.fn(ctx, product, fails)
		if err != nil {
			return "", err
		}
		if found != "" {
			d.logger.Debugf("product %s resolved via %s: %s", product.SKU, strategy.name, found)
			return found, nil
		}
	}

	return "", fails.err()
}

// bySlugVariants probes product URLs derived from the stored slug.
func (d *Discoverer) bySlugVariants(ctx context.Context, product catalog.TargetProduct, fails *probeFailures) (string, error) {
	for _, variant := range slugVariants(product.Slug) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := d.productURL(variant)
		page, ok := d.candidatePage(ctx, candidate, fails)
		if !ok || !page.IsProductPage {
			continue
		}
		if MatchIdentity(page.SKU, page.Name, product.SKU, product.Name, QuickMatchThreshold) {
			return candidate, nil
		}
	}
	return "", nil
}

// slugVariants generates probe slugs in a fixed order: as stored, hyphens
// removed, hyphens as underscores, lowercased, trailing plural "s"
// stripped, and the last hyphen segment dropped.
func slugVariants(slug string) []string {
	if slug == "" {
		return nil
	}

	variants := []string{
		slug,
		strings.ReplaceAll(slug, "-", ""),
		strings.ReplaceAll(slug, "-", "_"),
		strings.ToLower(slug),
		strings.TrimSuffix(slug, "s"),
	}
	if i := strings.LastIndex(slug, "-"); i > 0 {
		variants = append(variants, slug[:i])
	}

	seen := make(map[string]bool, len(variants))
	unique := variants[:0]
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}
	return unique
}

// bySKUSearch queries the site search with the SKU and verifies a bounded
// number of result links against the product's identity at the quick
// threshold. When no candidate passes but results exist, the first result is
// returned as a last resort; that weaker guarantee is why the engine
// re-verifies at the strict threshold before persisting anything.
func (d *Discoverer) bySKUSearch(ctx context.Context, product catalog.TargetProduct, fails *probeFailures) (string, error) {
	if product.SKU == "" {
		return "", nil
	}

	results, err := d.searchResults(ctx, product.SKU, fails)
	if err != nil || len(results) == 0 {
		return "", err
	}

	for _, result := range d.bounded(results) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ok, err := d.matcher.Verify(ctx, result.URL, product.SKU, product.Name, QuickMatchThreshold)
		if err != nil {
			fails.note(err)
			continue
		}
		if ok {
			return result.URL, nil
		}
	}

	d.logger.Debugf("sku search for %s: no verified candidate, falling back to first result", product.SKU)
	return results[0].URL, nil
}

// byNameSearch queries the site search with the product name and scores
// each result's anchor text by keyword overlap. Like bySKUSearch it falls
// back to the first result when scoring is inconclusive.
func (d *Discoverer) byNameSearch(ctx context.Context, product catalog.TargetProduct, fails *probeFailures) (string, error) {
	if product.Name == "" {
		return "", nil
	}

	results, err := d.searchResults(ctx, product.Name, fails)
	if err != nil || len(results) == 0 {
		return "", err
	}

	keywords := nameKeywords(product.Name)
	if needed := minInt(2, len(keywords)); needed > 0 {
		for _, result := range d.bounded(results) {
			anchor := strings.ToLower(result.Text)
			hits := 0
			for _, kw := range keywords {
				if strings.Contains(anchor, kw) {
					hits++
				}
			}
			if hits >= needed {
				return result.URL, nil
			}
		}
	}

	d.logger.Debugf("name search for %q: no keyword match, falling back to first result", product.Name)
	return results[0].URL, nil
}

// byNumericSKUPatterns probes a small set of URL templates used by the site
// for products whose SKU is purely numeric.
func (d *Discoverer) byNumericSKUPatterns(ctx context.Context, product catalog.TargetProduct, fails *probeFailures) (string, error) {
	if !numericSKUPattern.MatchString(product.SKU) {
		return "", nil
	}

	slugs := []string{
		product.SKU,
		"product-" + product.SKU,
		"sku-" + product.SKU,
	}
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := d.productURL(slug)
		page, ok := d.candidatePage(ctx, candidate, fails)
		if !ok || !page.IsProductPage {
			continue
		}
		if MatchIdentity(page.SKU, page.Name, product.SKU, product.Name, QuickMatchThreshold) {
			return candidate, nil
		}
	}
	return "", nil
}

// searchResult is one product link scraped from a search results page.
type searchResult struct {
	URL  string
	Text string
}

// searchResults fetches the search page for a query and collects product
// links in document order, deduplicated. Fetch failures are noted and
// return no results rather than an error so the chain can continue.
func (d *Discoverer) searchResults(ctx context.Context, query string, fails *probeFailures) ([]searchResult, error) {
	searchURL := d.config.BaseURL + d.config.SearchPath + "?" + d.config.SearchParam + "=" + url.QueryEscape(query)

	doc, err := d.fetchDocument(ctx, searchURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fails.note(err)
		d.logger.Debugf("search fetch failed: %v", err)
		return nil, nil
	}

	base, err := url.Parse(d.config.BaseURL)
	if err != nil {
		return nil, nil
	}

	var results []searchResult
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !productLinkPattern.MatchString(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref).String()
		if seen[absolute] {
			return
		}
		seen[absolute] = true
		results = append(results, searchResult{
			URL:  absolute,
			Text: strings.TrimSpace(s.Text()),
		})
	})

	return results, nil
}

// candidatePage fetches and extracts one candidate URL. A 404 or unreadable
// markup just rejects the candidate; transient failures are noted so the
// chain can tell exhaustion from a site that never answered.
func (d *Discoverer) candidatePage(ctx context.Context, candidateURL string, fails *probeFailures) (ProductPage, bool) {
	doc, err := d.fetchDocument(ctx, candidateURL)
	if err != nil {
		fails.note(err)
		return ProductPage{}, false
	}
	return ExtractProduct(doc), true
}

func (d *Discoverer) fetchDocument(ctx context.Context, targetURL string) (*goquery.Document, error) {
	html, err := d.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (d *Discoverer) bounded(results []searchResult) []searchResult {
	if len(results) > d.config.MaxSearchResults {
		return results[:d.config.MaxSearchResults]
	}
	return results
}

func (d *Discoverer) productURL(slug string) string {
	return d.config.BaseURL + d.config.ProductPath + slug
}

// nameKeywords returns the lowercase tokens of a product name that are long
// enough to be distinctive.
func nameKeywords(name string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(name)) {
		if len(token) > nameKeywordMinLen {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
