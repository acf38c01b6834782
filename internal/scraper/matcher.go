// internal/scraper/matcher.go
package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/CatalogSync/internal/utils"
)

// Matcher decides whether a candidate page and a catalog row are the same
// product: exact SKU equality first, name-token similarity second.
type Matcher struct {
	fetcher *Fetcher
	logger  utils.Logger
}

// NewMatcher creates a matcher backed by the given fetcher.
func NewMatcher(fetcher *Fetcher) *Matcher {
	return &Matcher{
		fetcher: fetcher,
		logger:  utils.NewComponentLogger("matcher"),
	}
}

// Verify re-fetches the candidate page and checks its heading identity
// against the expected SKU and name at the given threshold. Callers must
// use VerifyMatchThreshold before committing an update; QuickMatchThreshold
// is only for first-pass candidate filtering.
func (m *Matcher) Verify(ctx context.Context, pageURL, expectedSKU, expectedName string, threshold float64) (bool, error) {
	html, err := m.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return false, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, err
	}

	pageName, pageSKU := headingIdentity(doc)
	return MatchIdentity(pageSKU, pageName, expectedSKU, expectedName, threshold), nil
}

// MatchIdentity is the verification rule on already-extracted identity:
// accept on case-insensitive SKU equality, else on name similarity above
// the threshold.
func MatchIdentity(pageSKU, pageName, expectedSKU, expectedName string, threshold float64) bool {
	if pageSKU != "" && strings.EqualFold(pageSKU, expectedSKU) {
		return true
	}
	return NameSimilarity(expectedName, pageName) > threshold
}

// NameSimilarity scores two product names as the size of their shared
// lowercase token set divided by the size of the larger token set. The
// match thresholds were tuned against this exact ratio; do not substitute
// an edit-distance metric.
func NameSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	shared := 0
	for token := range tokensA {
		if tokensB[token] {
			shared++
		}
	}

	larger := len(tokensA)
	if len(tokensB) > larger {
		larger = len(tokensB)
	}
	return float64(shared) / float64(larger)
}

func tokenSet(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(s)) {
		tokens[token] = true
	}
	return tokens
}
