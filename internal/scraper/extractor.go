// internal/scraper/extractor.go
package scraper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Selector lists are ordered: the first hit wins. They cover the markup
// variants observed on the target site over time.
var (
	productContainerSelectors = []string{
		".product-details",
		".product-detail",
		".product-info",
		"#product-details",
		"#product",
	}

	priceSelectors = []string{
		".product-price",
		".price-current",
		".current-price",
		".sale-price",
		".price",
		"span.amount",
		"[itemprop='price']",
	}

	stockQuantitySelectors = []string{
		"[data-stock]",
		"[data-quantity]",
		"[data-stock-quantity]",
		".stock-quantity",
		".qty-available",
		".inventory-count",
		"span.stock",
	}

	outOfStockSelectors = []string{
		".out-of-stock",
		".outofstock",
		".sold-out",
		".stock-out",
	}

	inStockSelectors = []string{
		".in-stock",
		".instock",
		".available",
	}

	addToCartSelectors = []string{
		".add-to-cart",
		"#add-to-cart",
		"button[name='add-to-cart']",
		"[data-action='add-to-cart']",
	}

	priceMetaSelectors = []string{
		"meta[property='product:price:amount']",
		"meta[property='og:price:amount']",
		"meta[name='price']",
		"meta[itemprop='price']",
	}
)

var (
	// currencyPattern matches "$1,299.99", "19.99", "450" and similar.
	currencyPattern = regexp.MustCompile(`\$?\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)
	integerPattern  = regexp.MustCompile(`\d+`)
	skuPattern      = regexp.MustCompile(`SKU:\s*([A-Za-z0-9\-]+)`)
)

// ExtractProduct reads one fetched page into a ProductPage. Each field uses
// an ordered fallback chain; the first valid result wins and nothing here
// returns an error, because a page the extractor cannot read is simply a
// rejected candidate.
func ExtractProduct(doc *goquery.Document) ProductPage {
	page := ProductPage{
		IsProductPage: isProductPage(doc),
	}
	page.Name, page.SKU = headingIdentity(doc)
	page.Price = extractPrice(doc)
	page.Stock = extractStockQuantity(doc)
	page.InStock = extractInStockFlag(doc)
	return page
}

// isProductPage is intentionally permissive: any single signal suffices,
// and the matcher filters false positives downstream.
func isProductPage(doc *goquery.Document) bool {
	h1HasSKU := false
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "SKU:") {
			h1HasSKU = true
			return false
		}
		return true
	})
	if h1HasSKU {
		return true
	}

	if doc.Find(strings.Join(productContainerSelectors, ", ")).Length() > 0 {
		return true
	}
	if doc.Find(strings.Join(priceSelectors, ", ")).Length() > 0 {
		return true
	}
	return strings.Contains(doc.Find("body").Text(), "Add to Cart")
}

// headingIdentity parses the site's product heading format
// "<Name> SKU: <SKU>" out of the first h1.
func headingIdentity(doc *goquery.Document) (name, sku string) {
	h1 := strings.TrimSpace(doc.Find("h1").First().Text())
	if h1 == "" {
		return "", ""
	}

	if m := skuPattern.FindStringSubmatch(h1); m != nil {
		sku = m[1]
	}
	if i := strings.Index(h1, "SKU:"); i >= 0 {
		name = strings.TrimSpace(h1[:i])
	} else {
		name = h1
	}
	return name, sku
}

// extractPrice runs the price fallback chain: structured data, meta tags,
// known selectors, then a whole-text currency scan. Every stage applies the
// same sanity bound; out-of-range matches fall through to the next stage.
func extractPrice(doc *goquery.Document) decimal.Decimal {
	if price, ok := structuredDataPrice(doc); ok {
		return price
	}
	if price, ok := metaTagPrice(doc); ok {
		return price
	}

	scope := priceScope(doc)
	if price, ok := selectorPrice(scope); ok {
		return price
	}
	if price, ok := textPrice(scope); ok {
		return price
	}
	return decimal.Zero
}

// priceScope narrows price scanning to the product-details container when
// one exists, so list prices of related products do not leak in.
func priceScope(doc *goquery.Document) *goquery.Selection {
	for _, sel := range productContainerSelectors {
		if container := doc.Find(sel); container.Length() > 0 {
			return container.First()
		}
	}
	return doc.Find("body")
}

// structuredDataPrice parses JSON-LD script tags looking for a Product item
// with a usable price, either directly or within its offers.
func structuredDataPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	var price decimal.Decimal
	found := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true // malformed structured data, try the next script
		}
		for _, item := range structuredDataItems(data) {
			if p, ok := productItemPrice(item); ok {
				price = p
				found = true
				return false
			}
		}
		return true
	})

	return price, found
}

// structuredDataItems flattens a JSON-LD document into its candidate items:
// a top-level array, a @graph array, or the single top-level object.
func structuredDataItems(data interface{}) []map[string]interface{} {
	var items []map[string]interface{}

	appendItem := func(v interface{}) {
		if m, ok := v.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}

	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			appendItem(item)
		}
	case map[string]interface{}:
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				appendItem(item)
			}
		}
		appendItem(v)
	}

	return items
}

// productItemPrice reads the price of one JSON-LD item if it is a Product.
func productItemPrice(item map[string]interface{}) (decimal.Decimal, bool) {
	if !isProductType(item["@type"]) {
		return decimal.Zero, false
	}

	switch offers := item["offers"].(type) {
	case map[string]interface{}:
		if p, ok := offerPrice(offers); ok {
			return p, true
		}
	case []interface{}:
		for _, o := range offers {
			if offer, ok := o.(map[string]interface{}); ok {
				if p, ok := offerPrice(offer); ok {
					return p, true
				}
			}
		}
	}

	return jsonPriceValue(item["price"])
}

func isProductType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func offerPrice(offer map[string]interface{}) (decimal.Decimal, bool) {
	if p, ok := jsonPriceValue(offer["price"]); ok {
		return p, true
	}
	return jsonPriceValue(offer["lowPrice"])
}

// jsonPriceValue accepts JSON-LD prices expressed as either numbers or
// strings, then applies the sanity bound.
func jsonPriceValue(v interface{}) (decimal.Decimal, bool) {
	switch p := v.(type) {
	case string:
		return parsePrice(p)
	case float64:
		d := decimal.NewFromFloat(p)
		if validPrice(d) {
			return d, true
		}
	}
	return decimal.Zero, false
}

func metaTagPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	for _, sel := range priceMetaSelectors {
		content, exists := doc.Find(sel).First().Attr("content")
		if !exists {
			continue
		}
		if price, ok := parsePrice(content); ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

func selectorPrice(scope *goquery.Selection) (decimal.Decimal, bool) {
	for _, sel := range priceSelectors {
		var price decimal.Decimal
		found := false
		scope.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if p, ok := firstValidPrice(s.Text()); ok {
				price = p
				found = true
				return false
			}
			return true
		})
		if found {
			return price, true
		}
	}
	return decimal.Zero, false
}

func textPrice(scope *goquery.Selection) (decimal.Decimal, bool) {
	return firstValidPrice(scope.Text())
}

// firstValidPrice scans text for currency-shaped matches and returns the
// first one that survives the sanity bound.
func firstValidPrice(text string) (decimal.Decimal, bool) {
	for _, match := range currencyPattern.FindAllString(text, -1) {
		if price, ok := parsePrice(match); ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

// parsePrice normalizes a raw price string (currency symbol, thousands
// separators) and applies the (0, MaxValidPrice] bound.
func parsePrice(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil || !validPrice(price) {
		return decimal.Zero, false
	}
	return price, true
}

func validPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThanOrEqual(decimal.NewFromInt(MaxValidPrice))
}

// extractStockQuantity returns the exact stock count when the page exposes
// one, zero when a visible out-of-stock label is present, and nil when only
// presence (not quantity) can be known.
func extractStockQuantity(doc *goquery.Document) *int {
	if hasVisibleOutOfStockLabel(doc) {
		zero := 0
		return &zero
	}

	for _, sel := range stockQuantitySelectors {
		var qty *int
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw := elementQuantityText(s, sel)
			if m := integerPattern.FindString(raw); m != "" {
				if n, err := strconv.Atoi(m); err == nil && n >= 0 {
					qty = &n
					return false
				}
			}
			return true
		})
		if qty != nil {
			return qty
		}
	}

	return nil
}

// elementQuantityText reads the data attribute for attribute selectors and
// the element text otherwise.
func elementQuantityText(s *goquery.Selection, sel string) string {
	if strings.HasPrefix(sel, "[data-") {
		attr := strings.Trim(sel, "[]")
		if v, ok := s.Attr(attr); ok {
			return v
		}
		return ""
	}
	return s.Text()
}

// extractInStockFlag applies the disjunctive availability heuristic. Any
// positive signal, or the absence of a negative one, counts as in stock.
func extractInStockFlag(doc *goquery.Document) bool {
	if doc.Find(strings.Join(inStockSelectors, ", ")).Length() > 0 {
		return true
	}
	if doc.Find(strings.Join(addToCartSelectors, ", ")).Length() > 0 {
		return true
	}
	if doc.Find(strings.Join(outOfStockSelectors, ", ")).Length() == 0 {
		return true
	}
	return !hasVisibleOutOfStockLabel(doc)
}

// hasVisibleOutOfStockLabel looks for an out-of-stock element that is not
// hidden via inline style or a hidden class.
func hasVisibleOutOfStockLabel(doc *goquery.Document) bool {
	visible := false
	doc.Find(strings.Join(outOfStockSelectors, ", ")).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if isHidden(s) {
			return true
		}
		visible = true
		return false
	})
	return visible
}

func isHidden(s *goquery.Selection) bool {
	if style, ok := s.Attr("style"); ok {
		compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
			return true
		}
	}
	return s.HasClass("hidden") || s.HasClass("d-none")
}
