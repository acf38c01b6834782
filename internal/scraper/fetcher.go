// internal/scraper/fetcher.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/CatalogSync/internal/utils"
)

// PageRenderer renders a page through a real browser. It is plugged in when
// the target site needs JavaScript to produce its markup.
type PageRenderer interface {
	Render(ctx context.Context, targetURL string) (string, error)
}

// FetchObserver receives the outcome of every fetch, for metrics.
type FetchObserver interface {
	ObserveFetch(result string, duration time.Duration)
}

// FetcherConfig defines configuration options for the page fetcher.
type FetcherConfig struct {
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	RateBurst  int
	UserAgents []string
	Headers    map[string]string
}

// Fetcher performs rate-limited GETs with browser-emulating headers.
// It deliberately has no retry logic: in this pipeline a retry is always
// expressed as trying a different URL, never re-fetching the same one.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	userAgents []string
	currentUA  int
	uaMu       sync.Mutex
	headers    map[string]string
	renderer   PageRenderer
	observer   FetchObserver
	logger     utils.Logger
}

// NewFetcher creates a fetcher with the specified configuration, applying
// defaults for anything unset.
func NewFetcher(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = defaultUserAgents()
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Fetcher{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		userAgents: config.UserAgents,
		headers:    config.Headers,
		logger:     utils.NewComponentLogger("fetcher"),
	}
}

// SetRenderer routes all fetches through a browser renderer.
func (f *Fetcher) SetRenderer(r PageRenderer) {
	f.renderer = r
}

// SetObserver installs a metrics observer.
func (f *Fetcher) SetObserver(o FetchObserver) {
	f.observer = o
}

// Fetch performs a single GET and returns the page body. Failures are
// classified: 404 is NotFound, an exceeded time bound is Timeout, and
// everything else (network errors, 5xx, other 4xx) is Transient. All three
// are terminal for the URL.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	start := time.Now()
	html, err := f.fetch(ctx, targetURL)
	if f.observer != nil {
		result := "ok"
		var fe *FetchError
		if errors.As(err, &fe) {
			result = fe.Kind.String()
		} else if err != nil {
			result = "transient"
		}
		f.observer.ObserveFetch(result, time.Since(start))
	}
	return html, err
}

func (f *Fetcher) fetch(ctx context.Context, targetURL string) (string, error) {
	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return "", &FetchError{Kind: FetchTransient, URL: targetURL, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", &FetchError{Kind: FetchTransient, URL: targetURL, Err: err}
	}

	if f.renderer != nil {
		html, err := f.renderer.Render(ctx, targetURL)
		if err != nil {
			kind := FetchTransient
			if errors.Is(err, context.DeadlineExceeded) {
				kind = FetchTimeout
			}
			return "", &FetchError{Kind: kind, URL: targetURL, Err: err}
		}
		return html, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", &FetchError{Kind: FetchTransient, URL: targetURL, Err: err}
	}
	f.setRequestHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		kind := FetchTransient
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = FetchTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = FetchTimeout
		}
		return "", &FetchError{Kind: kind, URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &FetchError{Kind: FetchNotFound, URL: targetURL}
	case resp.StatusCode >= 400:
		return "", &FetchError{
			Kind: FetchTransient,
			URL:  targetURL,
			Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{Kind: FetchTransient, URL: targetURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return string(body), nil
}

// setRequestHeaders makes requests look like an ordinary browser session.
func (f *Fetcher) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
}

// nextUserAgent returns the next user agent in rotation.
func (f *Fetcher) nextUserAgent() string {
	f.uaMu.Lock()
	defer f.uaMu.Unlock()

	ua := f.userAgents[f.currentUA]
	f.currentUA = (f.currentUA + 1) % len(f.userAgents)
	return ua
}

// defaultUserAgents returns a set of realistic user agent strings.
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	}
}
